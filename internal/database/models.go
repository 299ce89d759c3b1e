// Package database предоставляет модели данных и репозитории для PostgreSQL.
// Использует GORM; сущности зеркалят реляционную схему дашборда лидогенерации.
package database

import (
	"strings"
	"time"
)

// Статусы лида по мере прохождения воронки.
const (
	LeadStatusDiscovered = "DISCOVERED"
	LeadStatusDmSent     = "DM_SENT"
	LeadStatusResponded  = "RESPONDED"
)

// Статусы DM-сообщения.
const (
	DmStatusAIGenerated = "AI_GENERATED"
	DmStatusUserEdited  = "USER_EDITED"
	DmStatusApproved    = "APPROVED"
	DmStatusSent        = "SENT"
	DmStatusFailed      = "FAILED"
)

// Статусы IG-аккаунта для ротации.
const (
	AccountStatusActive  = "ACTIVE"
	AccountStatusPaused  = "PAUSED"
	AccountStatusCooling = "COOLING"
	AccountStatusBlocked = "BLOCKED"
)

// Campaign описывает одну поисковую кампанию: hashtag-и и диапазон подписчиков.
type Campaign struct {
	ID           uint      `gorm:"primaryKey"`
	Name         string    `gorm:"type:varchar(255);not null"`
	Hashtags     string    `gorm:"type:text"` // Список через запятую
	MinFollowers int       `gorm:"not null;default:0"`
	MaxFollowers int       `gorm:"not null;default:0"`
	MaxLeads     int       `gorm:"not null;default:20"`
	Context      string    `gorm:"type:text"` // Фон кампании для генерации DM
	IsActive     bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}

// HashtagList возвращает hashtag-и кампании без пустых элементов.
func (c *Campaign) HashtagList() []string {
	parts := strings.Split(c.Hashtags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Lead — найденный и оцененный AI профиль-кандидат.
type Lead struct {
	ID                uint      `gorm:"primaryKey"`
	CampaignID        uint      `gorm:"index;not null"`
	Username          string    `gorm:"type:varchar(64);index;not null"`
	FullName          string    `gorm:"type:varchar(255)"`
	Biography         string    `gorm:"type:text"`
	ProfileURL        string    `gorm:"type:text"`
	FollowersCount    int       `gorm:"not null;default:0"`
	PostsCount        int       `gorm:"not null;default:0"`
	IsBusinessAccount bool      `gorm:"not null;default:false"`
	Score             float64   `gorm:"not null;default:0"` // AI-балл 0-10
	Reasons           string    `gorm:"type:text"`          // Обоснования AI, через перевод строки
	Status            string    `gorm:"type:varchar(32);not null;default:'DISCOVERED'"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`

	DmMessages []DmMessage `gorm:"foreignKey:LeadID"`
}

// DmMessage — один вариант DM: сгенерированный, подтвержденный или отправленный.
type DmMessage struct {
	ID            uint   `gorm:"primaryKey"`
	LeadID        uint   `gorm:"index;not null"`
	AccountID     *uint  `gorm:"index"`            // Аккаунт, с которого отправлено
	Style         string `gorm:"type:varchar(32)"` // PROFESSIONAL, FRIENDLY, VALUE_FOCUSED
	Content       string `gorm:"type:text;not null"`
	ImageURLs     string `gorm:"type:text"` // Публичные URL вложений, через перевод строки
	Status        string `gorm:"type:varchar(32);not null;default:'AI_GENERATED'"`
	FailureReason string `gorm:"type:text"`
	SentAt        *time.Time
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// ImageURLList возвращает URL вложений без пустых строк.
func (m *DmMessage) ImageURLList() []string {
	parts := strings.Split(m.ImageURLs, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Response — входящий ответ лида на отправленный DM с AI-классификацией.
type Response struct {
	ID             uint      `gorm:"primaryKey"`
	LeadID         uint      `gorm:"index;not null"`
	DmMessageID    uint      `gorm:"index;not null"`
	MessageContent string    `gorm:"type:text;not null"`
	Sentiment      string    `gorm:"type:varchar(32);not null;default:'NEEDS_REVIEW'"`
	IsPositive     bool      `gorm:"not null;default:false"`
	ReceivedAt     time.Time `gorm:"not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
}

// InstagramAccount — отправляющая личность: один browser profile инструмента
// автоматизации на одну учетную запись.
type InstagramAccount struct {
	ID             uint   `gorm:"primaryKey"`
	Username       string `gorm:"type:varchar(64);not null"`
	BrowserProfile string `gorm:"type:varchar(64);not null"`
	Status         string `gorm:"type:varchar(32);not null;default:'ACTIVE'"`
	IsLoggedIn     bool   `gorm:"not null;default:false"`
	TodaySent      int    `gorm:"not null;default:0"`
	DailyLimit     int    `gorm:"not null;default:100"`
	LastUsedAt     *time.Time
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// ActivityLog — журнал действий системы для страницы активности.
type ActivityLog struct {
	ID        uint      `gorm:"primaryKey"`
	Action    string    `gorm:"type:varchar(64);not null"` // CAMPAIGN_STARTED, LEAD_CREATED, DM_SENT, ERROR
	Metadata  string    `gorm:"type:jsonb"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
