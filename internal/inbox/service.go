package inbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"leadAgent/internal/database"
	"leadAgent/internal/llm"
	"leadAgent/internal/logger"
	"leadAgent/internal/openclaw"

	"go.uber.org/zap"
)

const inboxURL = "https://www.instagram.com/direct/inbox/"

const (
	pauseAfterInboxNav  = 4 * time.Second
	pauseBetweenProfile = 2 * time.Second
)

// classifier — минимальный срез llm.Analyzer, нужный inbox-проверке.
type classifier interface {
	ClassifySentiment(ctx context.Context, message string, leadID *uint) (*llm.SentimentResult, error)
}

type prober interface {
	Available() bool
}

// ErrToolUnavailable — инструмент автоматизации не настроен.
var ErrToolUnavailable = errors.New("инструмент автоматизации браузера не настроен, проверка inbox невозможна")

// Report — итог проверки одного аккаунта.
type Report struct {
	Examined int      // Диалогов с последним сообщением просмотрено
	Created  int      // Создано новых Response
	Errors   []string // Ошибки по отдельным диалогам
}

// leadStore — срез репозитория лидов, нужный проверке inbox.
type leadStore interface {
	FindByUsername(username string) (*database.Lead, error)
	LastSentDm(leadID uint) (*database.DmMessage, error)
	ResponseExists(dmMessageID uint, content string) (bool, error)
	CreateResponse(resp *database.Response) error
	UpdateStatus(id uint, status string) error
}

// accountStore перечисляет аккаунты, чьи inbox нужно проверять.
type accountStore interface {
	ListLoggedIn() ([]database.InstagramAccount, error)
}

// Service проверяет inbox аккаунтов и записывает ответы лидов.
type Service struct {
	driver     openclaw.Driver
	prober     prober
	leads      leadStore
	accounts   accountStore
	classifier classifier
	log        *logger.Zap

	sleep func(ctx context.Context, d time.Duration)
}

func NewService(driver openclaw.Driver, prober prober, leads leadStore, accounts accountStore, classifier classifier, log *logger.Zap) *Service {
	return &Service{
		driver:     driver,
		prober:     prober,
		leads:      leads,
		accounts:   accounts,
		classifier: classifier,
		log:        log,
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
}

// CheckAccount проверяет inbox одного browser profile. Ошибка отдельного
// диалога не прерывает проверку остальных.
func (s *Service) CheckAccount(ctx context.Context, profile string) (*Report, error) {
	if !s.prober.Available() {
		return nil, ErrToolUnavailable
	}

	report := &Report{}

	if err := s.driver.Navigate(ctx, inboxURL, profile); err != nil {
		return report, fmt.Errorf("навигация в inbox: %w", err)
	}
	s.sleep(ctx, pauseAfterInboxNav)

	snap, err := s.driver.Snapshot(ctx, profile)
	if err != nil {
		return report, err
	}

	conversations := ParseSnapshot(snap)
	s.log.Debug("inbox распарсен",
		zap.String("profile", profile),
		zap.Int("conversations", len(conversations)))

	for _, conv := range conversations {
		if conv.LastMessage == "" {
			continue
		}
		report.Examined++
		if err := s.processConversation(ctx, conv, report); err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("@%s: %v", conv.Username, err))
		}
	}
	return report, nil
}

func (s *Service) processConversation(ctx context.Context, conv Conversation, report *Report) error {
	lead, err := s.leads.FindByUsername(conv.Username)
	if err != nil {
		return err
	}
	if lead == nil {
		return nil // Диалог не с нашим лидом
	}

	dmMsg, err := s.leads.LastSentDm(lead.ID)
	if err != nil {
		return err
	}
	if dmMsg == nil {
		return nil // Мы этому лиду еще не писали
	}

	// Одно и то же сообщение не записывается дважды.
	exists, err := s.leads.ResponseExists(dmMsg.ID, conv.LastMessage)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	// Без AI-клиента ответ все равно сохраняется, но уходит на ручной разбор.
	sentiment := &llm.SentimentResult{Sentiment: llm.SentimentNeedsReview}
	if s.classifier != nil {
		sentiment, err = s.classifier.ClassifySentiment(ctx, conv.LastMessage, &lead.ID)
		if err != nil {
			return fmt.Errorf("классификация ответа: %w", err)
		}
	}

	if err := s.leads.CreateResponse(&database.Response{
		LeadID:         lead.ID,
		DmMessageID:    dmMsg.ID,
		MessageContent: conv.LastMessage,
		Sentiment:      sentiment.Sentiment,
		IsPositive:     sentiment.IsPositive,
		ReceivedAt:     time.Now(),
	}); err != nil {
		return err
	}
	if err := s.leads.UpdateStatus(lead.ID, database.LeadStatusResponded); err != nil {
		return err
	}

	report.Created++
	s.log.Info("получен ответ лида",
		zap.String("username", conv.Username),
		zap.String("sentiment", sentiment.Sentiment))
	return nil
}

// CheckAllAccounts проверяет inbox всех залогиненных аккаунтов по очереди.
func (s *Service) CheckAllAccounts(ctx context.Context) (map[string]*Report, int, error) {
	list, err := s.accounts.ListLoggedIn()
	if err != nil {
		return nil, 0, err
	}

	byProfile := make(map[string]*Report, len(list))
	totalCreated := 0
	for i, acc := range list {
		if i > 0 {
			s.sleep(ctx, pauseBetweenProfile)
		}
		report, err := s.CheckAccount(ctx, acc.BrowserProfile)
		if err != nil {
			if report == nil {
				report = &Report{}
			}
			report.Errors = append(report.Errors, err.Error())
		}
		byProfile[acc.BrowserProfile] = report
		totalCreated += report.Created
	}
	return byProfile, totalCreated, nil
}
