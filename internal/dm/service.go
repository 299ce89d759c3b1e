package dm

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"leadAgent/internal/accounts"
	"leadAgent/internal/config"
	"leadAgent/internal/database"
	"leadAgent/internal/logger"

	"go.uber.org/zap"
)

// Prober сообщает, настроен ли инструмент автоматизации.
type Prober interface {
	Available() bool
}

// leadStore — срез репозитория лидов, нужный сервису отправки.
type leadStore interface {
	GetByID(id uint) (*database.Lead, error)
	UpdateStatus(id uint, status string) error
	GetDmMessage(id uint) (*database.DmMessage, error)
	CreateDmMessage(m *database.DmMessage) error
	UpdateDmStatus(id uint, status, failureReason string) error
	MarkDmSent(id, accountID uint) error
}

// accountSource выдает аккаунты по правилам ротации.
type accountSource interface {
	Acquire() (*database.InstagramAccount, error)
	MarkUsed(accountID uint) error
}

// activityLog пишет события в журнал активности.
type activityLog interface {
	LogActivity(action string, metadata map[string]any) error
}

// ErrToolUnavailable — инструмент автоматизации не настроен.
var ErrToolUnavailable = errors.New("инструмент автоматизации браузера не настроен, отправка DM невозможна")

// Service связывает конвейер отправки с базой: статусы сообщений,
// ротация аккаунтов, журнал активности.
type Service struct {
	machine   *Machine
	prober    Prober
	accounts  accountSource
	leads     leadStore
	campaigns activityLog
	log       *logger.Zap
	cfg       config.Dm

	rng *rand.Rand
}

func NewService(machine *Machine, prober Prober, acc accountSource, leads leadStore, campaigns activityLog, log *logger.Zap, cfg config.Dm) *Service {
	return &Service{
		machine:   machine,
		prober:    prober,
		accounts:  acc,
		leads:     leads,
		campaigns: campaigns,
		log:       log,
		cfg:       cfg,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Approve подтверждает черновик: гейт отправки пропускает только
// подтвержденные и отредактированные оператором сообщения.
func (s *Service) Approve(dmMessageID uint) error {
	msg, err := s.leads.GetDmMessage(dmMessageID)
	if err != nil {
		return fmt.Errorf("сообщение %d: %w", dmMessageID, err)
	}
	if msg.Status == database.DmStatusSent {
		return fmt.Errorf("сообщение %d уже отправлено", dmMessageID)
	}
	if err := s.leads.UpdateDmStatus(dmMessageID, database.DmStatusApproved, ""); err != nil {
		return err
	}
	_ = s.campaigns.LogActivity("DM_APPROVED", map[string]any{
		"dm_id":   msg.ID,
		"lead_id": msg.LeadID,
	})
	return nil
}

// CreateUserDm сохраняет сообщение с текстом оператора, минуя генерацию.
// Ввод оператора сам по себе подтверждение: сообщение сразу готово к отправке.
func (s *Service) CreateUserDm(leadID uint, content, style string, imageURLs []string) (*database.DmMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("текст сообщения пуст")
	}
	if _, err := s.leads.GetByID(leadID); err != nil {
		return nil, fmt.Errorf("лид %d: %w", leadID, err)
	}

	msg := &database.DmMessage{
		LeadID:    leadID,
		Style:     style,
		Content:   content,
		ImageURLs: strings.Join(imageURLs, "\n"),
		Status:    database.DmStatusUserEdited,
	}
	if err := s.leads.CreateDmMessage(msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// SendMessage отправляет подтвержденное DM-сообщение лиду.
// textOnly принудительно отключает вложения — используется для повторной
// отправки, когда фаза изображений ранее падала.
func (s *Service) SendMessage(ctx context.Context, dmMessageID uint, textOnly bool) (*Outcome, error) {
	// Доступность проверяется до любых изменений в базе.
	if !s.prober.Available() {
		return nil, ErrToolUnavailable
	}

	msg, err := s.leads.GetDmMessage(dmMessageID)
	if err != nil {
		return nil, fmt.Errorf("сообщение %d: %w", dmMessageID, err)
	}
	switch msg.Status {
	case database.DmStatusApproved, database.DmStatusUserEdited, database.DmStatusFailed:
	default:
		return nil, fmt.Errorf("сообщение %d в статусе %s, отправлять можно только подтвержденные", dmMessageID, msg.Status)
	}

	lead, err := s.leads.GetByID(msg.LeadID)
	if err != nil {
		return nil, fmt.Errorf("лид %d: %w", msg.LeadID, err)
	}

	account, err := s.accounts.Acquire()
	if err != nil {
		return nil, err
	}

	var imageURLs []string
	if !textOnly {
		imageURLs = msg.ImageURLList()
	}

	outcome, sendErr := s.machine.Send(ctx, account.BrowserProfile, lead.Username, msg.Content, imageURLs)

	// Текст ушел — аккаунт использован, независимо от судьбы изображений.
	if outcome != nil && outcome.TextSent {
		if err := s.accounts.MarkUsed(account.ID); err != nil {
			s.log.Error("не удалось обновить счетчики аккаунта", zap.Error(err))
		}
	}

	if sendErr != nil {
		if outcome != nil && outcome.TextSent {
			// Частичный успех: текст доставлен, изображения нет.
			// Сообщение помечается отправленным, причина сбоя сохраняется.
			reason := fmt.Sprintf("изображения не отправлены: %v", sendErr)
			if err := s.leads.MarkDmSent(msg.ID, account.ID); err != nil {
				s.log.Error("не удалось отметить отправку", zap.Error(err))
			}
			if err := s.leads.UpdateDmStatus(msg.ID, database.DmStatusSent, reason); err != nil {
				s.log.Error("не удалось сохранить причину сбоя", zap.Error(err))
			}
			s.afterSend(lead, msg, account, outcome)
			return outcome, fmt.Errorf("текст отправлен, фаза изображений не удалась: %w", sendErr)
		}
		if err := s.leads.UpdateDmStatus(msg.ID, database.DmStatusFailed, sendErr.Error()); err != nil {
			s.log.Error("не удалось отметить сбой отправки", zap.Error(err))
		}
		_ = s.campaigns.LogActivity("ERROR", map[string]any{
			"lead_id": lead.ID,
			"dm_id":   msg.ID,
			"error":   sendErr.Error(),
		})
		return outcome, sendErr
	}

	if err := s.leads.MarkDmSent(msg.ID, account.ID); err != nil {
		s.log.Error("не удалось отметить отправку", zap.Error(err))
	}
	s.afterSend(lead, msg, account, outcome)
	return outcome, nil
}

func (s *Service) afterSend(lead *database.Lead, msg *database.DmMessage, account *database.InstagramAccount, outcome *Outcome) {
	if err := s.leads.UpdateStatus(lead.ID, database.LeadStatusDmSent); err != nil {
		s.log.Error("не удалось обновить статус лида", zap.Error(err))
	}
	_ = s.campaigns.LogActivity("DM_SENT", map[string]any{
		"lead_id":     lead.ID,
		"username":    lead.Username,
		"dm_id":       msg.ID,
		"account_id":  account.ID,
		"image_count": outcome.ImageCount,
		"image_phase": outcome.ImagePhase.String(),
	})
}

// BatchResult — итог пакетной отправки.
type BatchResult struct {
	Sent   int
	Failed int
	Errors []string
}

// SendBatch отправляет несколько сообщений подряд со случайной паузой
// между отправками. Ошибки отдельных сообщений не прерывают пакет.
func (s *Service) SendBatch(ctx context.Context, dmMessageIDs []uint, textOnly bool) (*BatchResult, error) {
	if !s.prober.Available() {
		return nil, ErrToolUnavailable
	}

	result := &BatchResult{}
	for i, id := range dmMessageIDs {
		if i > 0 {
			delay := s.batchDelay()
			s.log.Info("пауза перед следующей отправкой", zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(delay):
			}
		}

		if _, err := s.SendMessage(ctx, id, textOnly); err != nil {
			if errors.Is(err, accounts.ErrNoAccountAvailable) {
				result.Errors = append(result.Errors, err.Error())
				result.Failed += len(dmMessageIDs) - i
				return result, err
			}
			result.Failed++
			result.Errors = append(result.Errors, fmt.Sprintf("сообщение %d: %v", id, err))
			continue
		}
		result.Sent++
	}
	return result, nil
}

// batchDelay возвращает случайную паузу в диапазоне MinSendDelay..MaxSendDelay.
// Равномерные интервалы между DM — типичный признак бота.
func (s *Service) batchDelay() time.Duration {
	min, max := s.cfg.MinSendDelay, s.cfg.MaxSendDelay
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}
