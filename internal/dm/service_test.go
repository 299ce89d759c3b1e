package dm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"leadAgent/internal/config"
	"leadAgent/internal/database"
	"leadAgent/internal/logger"

	"go.uber.org/zap"
)

// fakeLeadStore держит лидов и сообщения в памяти.
type fakeLeadStore struct {
	leads    map[uint]*database.Lead
	messages map[uint]*database.DmMessage
	nextID   uint
}

func newFakeLeadStore() *fakeLeadStore {
	return &fakeLeadStore{
		leads:    make(map[uint]*database.Lead),
		messages: make(map[uint]*database.DmMessage),
	}
}

func (f *fakeLeadStore) GetByID(id uint) (*database.Lead, error) {
	l, ok := f.leads[id]
	if !ok {
		return nil, fmt.Errorf("лид %d не найден", id)
	}
	return l, nil
}

func (f *fakeLeadStore) UpdateStatus(id uint, status string) error {
	l, ok := f.leads[id]
	if !ok {
		return fmt.Errorf("лид %d не найден", id)
	}
	l.Status = status
	return nil
}

func (f *fakeLeadStore) GetDmMessage(id uint) (*database.DmMessage, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, fmt.Errorf("сообщение %d не найдено", id)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeLeadStore) CreateDmMessage(m *database.DmMessage) error {
	f.nextID++
	m.ID = f.nextID
	f.messages[m.ID] = m
	return nil
}

func (f *fakeLeadStore) UpdateDmStatus(id uint, status, failureReason string) error {
	m, ok := f.messages[id]
	if !ok {
		return fmt.Errorf("сообщение %d не найдено", id)
	}
	m.Status = status
	m.FailureReason = failureReason
	return nil
}

func (f *fakeLeadStore) MarkDmSent(id, accountID uint) error {
	m, ok := f.messages[id]
	if !ok {
		return fmt.Errorf("сообщение %d не найдено", id)
	}
	m.Status = database.DmStatusSent
	m.AccountID = &accountID
	now := time.Now()
	m.SentAt = &now
	return nil
}

type fakeAccounts struct {
	account database.InstagramAccount
	used    []uint
}

func (f *fakeAccounts) Acquire() (*database.InstagramAccount, error) {
	cp := f.account
	return &cp, nil
}

func (f *fakeAccounts) MarkUsed(accountID uint) error {
	f.used = append(f.used, accountID)
	return nil
}

type fakeActivity struct {
	actions []string
}

func (f *fakeActivity) LogActivity(action string, metadata map[string]any) error {
	f.actions = append(f.actions, action)
	return nil
}

type toolOn struct{}

func (toolOn) Available() bool { return true }

func newTestService(d *fakeDriver, store *fakeLeadStore, acc *fakeAccounts, activity *fakeActivity) *Service {
	log := &logger.Zap{Logger: zap.NewNop()}
	cfg := config.Dm{
		MinSendDelay: time.Millisecond,
		MaxSendDelay: 2 * time.Millisecond,
	}
	return NewService(newTestMachine(d, ""), toolOn{}, acc, store, activity, log, cfg)
}

func TestDraftApproveSendFlow(t *testing.T) {
	store := newFakeLeadStore()
	store.leads[1] = &database.Lead{ID: 1, Username: "target_user", Status: database.LeadStatusDiscovered}
	msg := &database.DmMessage{LeadID: 1, Content: "привет", Status: database.DmStatusAIGenerated}
	if err := store.CreateDmMessage(msg); err != nil {
		t.Fatal(err)
	}

	d := &fakeDriver{snapshots: []string{profileSnap, dmSnap, dmSnap}}
	acc := &fakeAccounts{account: database.InstagramAccount{ID: 7, BrowserProfile: "openclaw"}}
	activity := &fakeActivity{}
	svc := newTestService(d, store, acc, activity)

	// Свежий черновик через гейт не проходит.
	if _, err := svc.SendMessage(context.Background(), msg.ID, false); err == nil {
		t.Fatal("неподтвержденный черновик не должен отправляться")
	}
	if d.navCalls != 0 {
		t.Errorf("navCalls = %d: до подтверждения браузер не должен трогаться", d.navCalls)
	}

	if err := svc.Approve(msg.ID); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if store.messages[msg.ID].Status != database.DmStatusApproved {
		t.Fatalf("статус после подтверждения: %s", store.messages[msg.ID].Status)
	}

	out, err := svc.SendMessage(context.Background(), msg.ID, false)
	if err != nil {
		t.Fatalf("SendMessage после подтверждения: %v", err)
	}
	if !out.TextSent {
		t.Error("текст должен быть отправлен")
	}
	if store.messages[msg.ID].Status != database.DmStatusSent {
		t.Errorf("статус сообщения: %s, ожидался SENT", store.messages[msg.ID].Status)
	}
	if store.leads[1].Status != database.LeadStatusDmSent {
		t.Errorf("статус лида: %s, ожидался DM_SENT", store.leads[1].Status)
	}
	if len(acc.used) != 1 || acc.used[0] != 7 {
		t.Errorf("used = %v, ожидалась отметка аккаунта 7", acc.used)
	}
	sentLogged := false
	for _, a := range activity.actions {
		if a == "DM_SENT" {
			sentLogged = true
		}
	}
	if !sentLogged {
		t.Errorf("activity = %v, нет записи DM_SENT", activity.actions)
	}
}

func TestApproveSentMessageRejected(t *testing.T) {
	store := newFakeLeadStore()
	msg := &database.DmMessage{LeadID: 1, Content: "привет", Status: database.DmStatusSent}
	if err := store.CreateDmMessage(msg); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(&fakeDriver{}, store, &fakeAccounts{}, &fakeActivity{})

	if err := svc.Approve(msg.ID); err == nil {
		t.Fatal("отправленное сообщение нельзя подтверждать повторно")
	}
}

func TestCreateUserDmSendableImmediately(t *testing.T) {
	store := newFakeLeadStore()
	store.leads[3] = &database.Lead{ID: 3, Username: "target_user"}

	d := &fakeDriver{snapshots: []string{profileSnap, dmSnap, dmSnap}}
	acc := &fakeAccounts{account: database.InstagramAccount{ID: 2, BrowserProfile: "openclaw"}}
	svc := newTestService(d, store, acc, &fakeActivity{})

	msg, err := svc.CreateUserDm(3, "  добрый день  ", "", nil)
	if err != nil {
		t.Fatalf("CreateUserDm: %v", err)
	}
	if msg.Status != database.DmStatusUserEdited {
		t.Errorf("статус: %s, ожидался USER_EDITED", msg.Status)
	}
	if msg.Content != "добрый день" {
		t.Errorf("content = %q, пробелы должны обрезаться", msg.Content)
	}

	out, err := svc.SendMessage(context.Background(), msg.ID, false)
	if err != nil {
		t.Fatalf("пользовательское сообщение должно отправляться без подтверждения: %v", err)
	}
	if !out.TextSent {
		t.Error("текст должен быть отправлен")
	}
}

func TestCreateUserDmEmptyContent(t *testing.T) {
	store := newFakeLeadStore()
	store.leads[3] = &database.Lead{ID: 3, Username: "target_user"}
	svc := newTestService(&fakeDriver{}, store, &fakeAccounts{}, &fakeActivity{})

	if _, err := svc.CreateUserDm(3, "   ", "", nil); err == nil {
		t.Fatal("пустой текст должен отклоняться")
	}
	if _, err := svc.CreateUserDm(99, "текст", "", nil); err == nil || !strings.Contains(err.Error(), "99") {
		t.Fatalf("несуществующий лид должен отклоняться, получено %v", err)
	}
}
