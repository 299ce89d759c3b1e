package inbox

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"leadAgent/internal/database"
	"leadAgent/internal/llm"
	"leadAgent/internal/logger"
	"leadAgent/internal/openclaw"
	"leadAgent/internal/snapshot"

	"go.uber.org/zap"
)

// fakeDriver отдает один и тот же snapshot страницы inbox.
type fakeDriver struct {
	page string
	gen  uint64
}

func (f *fakeDriver) Navigate(ctx context.Context, url, profile string) error { return nil }

func (f *fakeDriver) Snapshot(ctx context.Context, profile string) (snapshot.Snapshot, error) {
	f.gen++
	return snapshot.New(f.page, f.gen), nil
}

func (f *fakeDriver) Click(ctx context.Context, ref snapshot.Ref, profile string) error { return nil }
func (f *fakeDriver) Type(ctx context.Context, ref snapshot.Ref, text, profile string) error {
	return nil
}
func (f *fakeDriver) PressKey(ctx context.Context, key, profile string) error { return nil }
func (f *fakeDriver) Upload(ctx context.Context, paths []string, ref snapshot.Ref, profile string, mode openclaw.UploadMode) error {
	return nil
}
func (f *fakeDriver) UploadDir() string { return "" }

type fakeStore struct {
	leads     map[string]*database.Lead // ключ — username в нижнем регистре
	lastSent  map[uint]*database.DmMessage
	existing  map[string]bool
	responses []*database.Response
}

func (f *fakeStore) FindByUsername(username string) (*database.Lead, error) {
	return f.leads[strings.ToLower(username)], nil
}

func (f *fakeStore) LastSentDm(leadID uint) (*database.DmMessage, error) {
	return f.lastSent[leadID], nil
}

func (f *fakeStore) ResponseExists(dmMessageID uint, content string) (bool, error) {
	return f.existing[fmt.Sprintf("%d|%s", dmMessageID, content)], nil
}

func (f *fakeStore) CreateResponse(resp *database.Response) error {
	f.responses = append(f.responses, resp)
	return nil
}

func (f *fakeStore) UpdateStatus(id uint, status string) error {
	for _, l := range f.leads {
		if l.ID == id {
			l.Status = status
		}
	}
	return nil
}

type fakeAccountStore struct {
	list []database.InstagramAccount
}

func (f *fakeAccountStore) ListLoggedIn() ([]database.InstagramAccount, error) {
	return f.list, nil
}

type fakeClassifier struct {
	calls int
}

func (f *fakeClassifier) ClassifySentiment(ctx context.Context, message string, leadID *uint) (*llm.SentimentResult, error) {
	f.calls++
	return &llm.SentimentResult{Sentiment: llm.SentimentPositive, IsPositive: true}, nil
}

type alwaysAvailable struct{}

func (alwaysAvailable) Available() bool { return true }

func newTestInbox(d *fakeDriver, store *fakeStore, cl classifier) *Service {
	s := NewService(d, alwaysAvailable{}, store, &fakeAccountStore{}, cl, &logger.Zap{Logger: zap.NewNop()})
	s.sleep = func(ctx context.Context, d time.Duration) {}
	return s
}

func TestCheckAccountCounting(t *testing.T) {
	// alice — новый ответ лида, stranger — не лид, bob — ответ уже записан.
	// Просмотрено три диалога, создается ровно один Response.
	page := strings.Join([]string{
		"alice",
		"Интересно, расскажите",
		"stranger",
		"hello there",
		"bob",
		"Спасибо, не надо",
	}, "\n")

	store := &fakeStore{
		leads: map[string]*database.Lead{
			"alice": {ID: 1, Username: "alice", Status: database.LeadStatusDmSent},
			"bob":   {ID: 2, Username: "bob", Status: database.LeadStatusDmSent},
		},
		lastSent: map[uint]*database.DmMessage{
			1: {ID: 11, LeadID: 1, Status: database.DmStatusSent},
			2: {ID: 22, LeadID: 2, Status: database.DmStatusSent},
		},
		existing: map[string]bool{"22|Спасибо, не надо": true},
	}
	cl := &fakeClassifier{}
	svc := newTestInbox(&fakeDriver{page: page}, store, cl)

	report, err := svc.CheckAccount(context.Background(), "openclaw")
	if err != nil {
		t.Fatalf("CheckAccount: %v", err)
	}
	if report.Examined != 3 {
		t.Errorf("Examined = %d, ожидалось 3 просмотренных диалога", report.Examined)
	}
	if report.Created != 1 {
		t.Errorf("Created = %d, ожидался один новый ответ", report.Created)
	}
	if len(store.responses) != 1 || store.responses[0].DmMessageID != 11 {
		t.Fatalf("responses = %+v, ожидался один ответ на сообщение 11", store.responses)
	}
	if cl.calls != 1 {
		t.Errorf("классификатор вызван %d раз, ожидался 1 (не-лиды и дубликаты не классифицируются)", cl.calls)
	}
	if store.leads["alice"].Status != database.LeadStatusResponded {
		t.Errorf("статус alice = %s, ожидался RESPONDED", store.leads["alice"].Status)
	}
	if store.leads["bob"].Status != database.LeadStatusDmSent {
		t.Errorf("статус bob = %s, дубликат не должен менять статус", store.leads["bob"].Status)
	}
}

func TestCheckAccountNilClassifier(t *testing.T) {
	page := "alice\nИнтересно, расскажите"
	store := &fakeStore{
		leads:    map[string]*database.Lead{"alice": {ID: 1, Username: "alice"}},
		lastSent: map[uint]*database.DmMessage{1: {ID: 11, LeadID: 1, Status: database.DmStatusSent}},
	}
	svc := newTestInbox(&fakeDriver{page: page}, store, nil)

	report, err := svc.CheckAccount(context.Background(), "openclaw")
	if err != nil {
		t.Fatalf("CheckAccount: %v", err)
	}
	if report.Created != 1 {
		t.Fatalf("Created = %d, без AI-клиента ответ все равно записывается", report.Created)
	}
	if store.responses[0].Sentiment != llm.SentimentNeedsReview {
		t.Errorf("sentiment = %s, ожидался NEEDS_REVIEW", store.responses[0].Sentiment)
	}
}
