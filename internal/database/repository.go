package database

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// CampaignRepository — доступ к кампаниям и журналу активности.
type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

func (r *CampaignRepository) GetByID(id uint) (*Campaign, error) {
	var c Campaign
	if err := r.db.First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) List(limit, offset int) ([]Campaign, error) {
	var cs []Campaign
	if err := r.db.Order("id DESC").Limit(limit).Offset(offset).Find(&cs).Error; err != nil {
		return nil, err
	}
	return cs, nil
}

// LogActivity пишет запись журнала; metadata сериализуется в JSON.
func (r *CampaignRepository) LogActivity(action string, metadata map[string]any) error {
	raw, err := json.Marshal(metadata)
	if err != nil {
		raw = []byte("{}")
	}
	return r.db.Create(&ActivityLog{Action: action, Metadata: string(raw)}).Error
}

// LogLLMRequest сохраняет LLM-запрос в журнал активности. Длинные prompt-ы
// обрезаются: журнал читает оператор, полный текст ему не нужен.
func (r *CampaignRepository) LogLLMRequest(ctx context.Context, campaignID *uint, leadID *uint, role, promptText, responseText, model string, tokensUsed int) error {
	const maxLogged = 2000
	if len(promptText) > maxLogged {
		promptText = promptText[:maxLogged] + "..."
	}
	if len(responseText) > maxLogged {
		responseText = responseText[:maxLogged] + "..."
	}
	meta := map[string]any{
		"role":     role,
		"model":    model,
		"tokens":   tokensUsed,
		"prompt":   promptText,
		"response": responseText,
	}
	if campaignID != nil {
		meta["campaign_id"] = *campaignID
	}
	if leadID != nil {
		meta["lead_id"] = *leadID
	}
	return r.LogActivity("LLM_REQUEST", meta)
}

func (r *CampaignRepository) RecentActivity(limit int) ([]ActivityLog, error) {
	var logs []ActivityLog
	if err := r.db.Order("id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}

// LeadRepository — доступ к лидам, DM-сообщениям и ответам.
type LeadRepository struct {
	db *gorm.DB
}

func NewLeadRepository(db *gorm.DB) *LeadRepository {
	return &LeadRepository{db: db}
}

func (r *LeadRepository) Create(l *Lead) error {
	return r.db.Create(l).Error
}

func (r *LeadRepository) GetByID(id uint) (*Lead, error) {
	var l Lead
	if err := r.db.First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

// FindByUsername ищет лида без учета регистра.
func (r *LeadRepository) FindByUsername(username string) (*Lead, error) {
	var l Lead
	err := r.db.Where("LOWER(username) = LOWER(?)", username).First(&l).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LeadRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	err := r.db.Model(&Lead{}).Where("LOWER(username) = LOWER(?)", username).Count(&count).Error
	return count > 0, err
}

func (r *LeadRepository) ListByCampaign(campaignID uint, limit, offset int) ([]Lead, error) {
	var ls []Lead
	err := r.db.Where("campaign_id = ?", campaignID).
		Order("score DESC").Limit(limit).Offset(offset).Find(&ls).Error
	return ls, err
}

func (r *LeadRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&Lead{}).Where("id = ?", id).Update("status", status).Error
}

func (r *LeadRepository) CreateDmMessage(m *DmMessage) error {
	return r.db.Create(m).Error
}

func (r *LeadRepository) GetDmMessage(id uint) (*DmMessage, error) {
	var m DmMessage
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

// LastSentDm возвращает последнее отправленное сообщение лида или nil.
func (r *LeadRepository) LastSentDm(leadID uint) (*DmMessage, error) {
	var m DmMessage
	err := r.db.Where("lead_id = ? AND status = ?", leadID, DmStatusSent).
		Order("sent_at DESC").First(&m).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *LeadRepository) HasSentDm(leadID uint) (bool, error) {
	var count int64
	err := r.db.Model(&DmMessage{}).
		Where("lead_id = ? AND status = ?", leadID, DmStatusSent).Count(&count).Error
	return count > 0, err
}

func (r *LeadRepository) UpdateDmStatus(id uint, status, failureReason string) error {
	updates := map[string]any{
		"status":         status,
		"failure_reason": failureReason,
	}
	if status == DmStatusSent {
		now := time.Now()
		updates["sent_at"] = &now
	}
	return r.db.Model(&DmMessage{}).Where("id = ?", id).Updates(updates).Error
}

func (r *LeadRepository) MarkDmSent(id, accountID uint) error {
	now := time.Now()
	return r.db.Model(&DmMessage{}).Where("id = ?", id).Updates(map[string]any{
		"status":     DmStatusSent,
		"sent_at":    &now,
		"account_id": accountID,
	}).Error
}

// ResponseExists проверяет, записан ли уже идентичный ответ на это сообщение.
func (r *LeadRepository) ResponseExists(dmMessageID uint, content string) (bool, error) {
	var count int64
	err := r.db.Model(&Response{}).
		Where("dm_message_id = ? AND message_content = ?", dmMessageID, content).
		Count(&count).Error
	return count > 0, err
}

func (r *LeadRepository) CreateResponse(resp *Response) error {
	return r.db.Create(resp).Error
}

// AccountRepository — доступ к IG-аккаунтам для ротации.
type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindAvailable возвращает самый давно не использованный активный аккаунт,
// не исчерпавший дневной лимит и отдыхавший не меньше cooldown. nil — все
// заняты или остывают.
func (r *AccountRepository) FindAvailable(cooldown time.Duration) (*InstagramAccount, error) {
	cutoff := time.Now().Add(-cooldown)
	var acc InstagramAccount
	err := r.db.
		Where("status = ? AND is_logged_in = ?", AccountStatusActive, true).
		Where("today_sent < daily_limit").
		Where("last_used_at IS NULL OR last_used_at < ?", cutoff).
		Order("last_used_at ASC NULLS FIRST").
		First(&acc).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *AccountRepository) GetByID(id uint) (*InstagramAccount, error) {
	var acc InstagramAccount
	if err := r.db.First(&acc, id).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *AccountRepository) ListLoggedIn() ([]InstagramAccount, error) {
	var accs []InstagramAccount
	err := r.db.Where("is_logged_in = ?", true).Find(&accs).Error
	return accs, err
}

func (r *AccountRepository) ListAll() ([]InstagramAccount, error) {
	var accs []InstagramAccount
	err := r.db.Find(&accs).Error
	return accs, err
}

func (r *AccountRepository) MarkUsed(id uint) error {
	return r.db.Model(&InstagramAccount{}).Where("id = ?", id).Updates(map[string]any{
		"last_used_at": time.Now(),
		"today_sent":   gorm.Expr("today_sent + 1"),
	}).Error
}

func (r *AccountRepository) UpdateStatus(id uint, status string) error {
	return r.db.Model(&InstagramAccount{}).Where("id = ?", id).Update("status", status).Error
}

// ResetDailyCounters обнуляет дневные счетчики всех аккаунтов (cron раз в сутки).
func (r *AccountRepository) ResetDailyCounters() error {
	return r.db.Model(&InstagramAccount{}).Where("1 = 1").Update("today_sent", 0).Error
}
