// Package accounts реализует ротацию отправляющих Instagram-аккаунтов:
// дневные лимиты, cooldown между использованиями и выбор наименее
// недавно использованного аккаунта.
package accounts

import (
	"fmt"
	"time"

	"leadAgent/internal/database"
	"leadAgent/internal/logger"

	"go.uber.org/zap"
)

// ErrNoAccountAvailable возвращается, когда все аккаунты исчерпали
// дневной лимит или находятся в cooldown.
var ErrNoAccountAvailable = fmt.Errorf("нет доступных аккаунтов для отправки")

// Manager распределяет отправку DM между аккаунтами.
type Manager struct {
	repo     *database.AccountRepository
	log      *logger.Zap
	cooldown time.Duration
}

func NewManager(repo *database.AccountRepository, log *logger.Zap, cooldown time.Duration) *Manager {
	if cooldown <= 0 {
		cooldown = 6 * time.Hour
	}
	return &Manager{repo: repo, log: log, cooldown: cooldown}
}

// Acquire возвращает аккаунт, готовый к отправке: ACTIVE, залогинен,
// дневной лимит не исчерпан, cooldown истек. Из подходящих берется
// наименее недавно использованный.
func (m *Manager) Acquire() (*database.InstagramAccount, error) {
	acc, err := m.repo.FindAvailable(m.cooldown)
	if err != nil {
		return nil, fmt.Errorf("ошибка поиска аккаунта: %w", err)
	}
	if acc == nil {
		return nil, ErrNoAccountAvailable
	}

	m.log.Debug("выбран аккаунт для отправки",
		zap.Uint("account_id", acc.ID),
		zap.String("username", acc.Username),
		zap.Int("today_sent", acc.TodaySent),
		zap.Int("daily_limit", acc.DailyLimit))
	return acc, nil
}

// MarkUsed фиксирует использование: инкремент дневного счетчика
// и отметка времени для cooldown.
func (m *Manager) MarkUsed(accountID uint) error {
	if err := m.repo.MarkUsed(accountID); err != nil {
		return fmt.Errorf("ошибка обновления счетчиков аккаунта: %w", err)
	}
	return nil
}

// MarkBlocked переводит аккаунт в BLOCKED после признаков блокировки
// со стороны Instagram. Дальше ротация его не выдает.
func (m *Manager) MarkBlocked(accountID uint) error {
	m.log.Warn("аккаунт помечен как заблокированный", zap.Uint("account_id", accountID))
	return m.repo.UpdateStatus(accountID, database.AccountStatusBlocked)
}

// Stats описывает состояние одного аккаунта в ротации.
type Stats struct {
	Account       database.InstagramAccount
	Remaining     int // Остаток дневного лимита
	InCooldown    bool
	AvailableFrom *time.Time // Когда истечет cooldown; nil если доступен
}

// Overview возвращает состояние всех аккаунтов.
func (m *Manager) Overview() ([]Stats, error) {
	accounts, err := m.repo.ListAll()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]Stats, 0, len(accounts))
	for _, acc := range accounts {
		st := Stats{Account: acc, Remaining: acc.DailyLimit - acc.TodaySent}
		if st.Remaining < 0 {
			st.Remaining = 0
		}
		if acc.LastUsedAt != nil {
			next := acc.LastUsedAt.Add(m.cooldown)
			if next.After(now) {
				st.InCooldown = true
				st.AvailableFrom = &next
			}
		}
		out = append(out, st)
	}
	return out, nil
}

// NextAvailableTime возвращает ближайший момент, когда хоть один аккаунт
// выйдет из cooldown. Нулевое время - доступен уже сейчас или аккаунтов нет.
func (m *Manager) NextAvailableTime() (time.Time, error) {
	stats, err := m.Overview()
	if err != nil {
		return time.Time{}, err
	}

	var earliest time.Time
	for _, st := range stats {
		if st.Account.Status != database.AccountStatusActive || !st.Account.IsLoggedIn || st.Remaining == 0 {
			continue
		}
		if !st.InCooldown {
			return time.Time{}, nil
		}
		if earliest.IsZero() || st.AvailableFrom.Before(earliest) {
			earliest = *st.AvailableFrom
		}
	}
	return earliest, nil
}

// ResetDailyCounters обнуляет дневные счетчики. Вызывается по расписанию
// в полночь локального времени.
func (m *Manager) ResetDailyCounters() error {
	m.log.Info("сброс дневных счетчиков аккаунтов")
	return m.repo.ResetDailyCounters()
}
