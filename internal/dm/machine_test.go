package dm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"leadAgent/internal/config"
	"leadAgent/internal/logger"
	"leadAgent/internal/openclaw"
	"leadAgent/internal/resolver"
	"leadAgent/internal/snapshot"

	"go.uber.org/zap"
)

// fakeDriver проигрывает заранее заданную последовательность snapshot-ов
// и записывает все действия.
type fakeDriver struct {
	snapshots []string
	snapIdx   int
	gen       uint64

	navErrs   []error
	navCalls  int
	clicks    []string
	typed     []string
	keys      []string
	uploads   [][]string
	uploadErr error
	dir       string
}

func (f *fakeDriver) Navigate(ctx context.Context, url, profile string) error {
	f.navCalls++
	if len(f.navErrs) > 0 {
		err := f.navErrs[0]
		f.navErrs = f.navErrs[1:]
		return err
	}
	return nil
}

func (f *fakeDriver) Snapshot(ctx context.Context, profile string) (snapshot.Snapshot, error) {
	raw := f.snapshots[len(f.snapshots)-1]
	if f.snapIdx < len(f.snapshots) {
		raw = f.snapshots[f.snapIdx]
		f.snapIdx++
	}
	f.gen++
	return snapshot.New(raw, f.gen), nil
}

func (f *fakeDriver) Click(ctx context.Context, ref snapshot.Ref, profile string) error {
	f.clicks = append(f.clicks, ref.ID)
	return nil
}

func (f *fakeDriver) Type(ctx context.Context, ref snapshot.Ref, text, profile string) error {
	f.typed = append(f.typed, text)
	return nil
}

func (f *fakeDriver) PressKey(ctx context.Context, key, profile string) error {
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeDriver) Upload(ctx context.Context, paths []string, ref snapshot.Ref, profile string, mode openclaw.UploadMode) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploads = append(f.uploads, paths)
	return nil
}

func (f *fakeDriver) UploadDir() string { return f.dir }

const profileSnap = `- banner:
  - img "avatar" [ref=e5]
  - heading "someone" [ref=e8]
  - button "追蹤" [ref=e10]
  - button "發送訊息" [ref=e12]
- main:
  - link "貼文" /url: https://www.instagram.com/p/abc/ [ref=e30]`

const dmSnap = `- main:
  - link "貼文" /url: https://www.instagram.com/p/abc/ [ref=e30]
- dialog:
  - button "選擇表情符號" [ref=e590]
  - generic [ref=e271]: textbox "訊息" [active] [ref=e595]
  - button "語音片段" [ref=e600]`

const dmSnapWithFileInput = dmSnap + `
  - input type=file accept="image/*" .jpg .png [ref=e650]`

const dmSnapWithSendButton = dmSnap + `
  - button "傳送" [ref=e700]`

const dmSnapWithAttachButton = dmSnap + `
  - button "新增相片或影片" [ref=e620]`

func newTestMachine(d *fakeDriver, debugPath string) *Machine {
	log := &logger.Zap{Logger: zap.NewNop()}
	cfg := config.Dm{
		HeaderLines:  150,
		TailLines:    250,
		NavRetries:   3,
		NavRetryWait: time.Millisecond,
	}
	m := NewMachine(d, resolver.DefaultTable(cfg.HeaderLines, cfg.TailLines), log, cfg, debugPath)
	m.sleep = func(ctx context.Context, d time.Duration) {}
	return m
}

func TestSendTextOnly(t *testing.T) {
	d := &fakeDriver{snapshots: []string{profileSnap, dmSnap, dmSnap}}
	m := newTestMachine(d, "")

	out, err := m.Send(context.Background(), "openclaw", "target_user", "привет", nil)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !out.TextSent {
		t.Error("текст должен быть отправлен")
	}
	if out.ImageCount != 0 {
		t.Errorf("ImageCount = %d, ожидалось 0", out.ImageCount)
	}
	// Без изображений фаза изображений всегда подтверждена.
	if out.ImagePhase != ImagePhaseConfirmed {
		t.Errorf("ImagePhase = %v, ожидалось CONFIRMED", out.ImagePhase)
	}

	if d.clicks[0] != "e12" {
		t.Errorf("первый клик по %s, ожидалась кнопка сообщения e12", d.clicks[0])
	}
	if len(d.typed) != 1 || d.typed[0] != "привет" {
		t.Errorf("typed = %v", d.typed)
	}
	if len(d.keys) != 1 || d.keys[0] != "Enter" {
		t.Errorf("keys = %v, ожидался один Enter", d.keys)
	}
}

func TestSendNavRetryExhausted(t *testing.T) {
	crash := errors.New("page.goto: Page crashed")
	d := &fakeDriver{
		snapshots: []string{profileSnap},
		navErrs:   []error{crash, crash, crash},
	}
	m := newTestMachine(d, "")

	out, err := m.Send(context.Background(), "openclaw", "target_user", "привет", nil)
	if err == nil {
		t.Fatal("ожидалась ошибка навигации")
	}
	if d.navCalls != 3 {
		t.Errorf("navCalls = %d, ожидалось 3", d.navCalls)
	}
	if out.TextSent {
		t.Error("текст не должен считаться отправленным")
	}
}

func TestSendNavRecovers(t *testing.T) {
	crash := errors.New("page.goto: Page crashed")
	d := &fakeDriver{
		snapshots: []string{profileSnap, dmSnap, dmSnap},
		navErrs:   []error{crash, crash, nil},
	}
	m := newTestMachine(d, "")

	out, err := m.Send(context.Background(), "openclaw", "target_user", "привет", nil)
	if err != nil {
		t.Fatalf("Send после восстановления навигации: %v", err)
	}
	if d.navCalls != 3 {
		t.Errorf("navCalls = %d, ожидалось 3", d.navCalls)
	}
	if !out.TextSent {
		t.Error("текст должен быть отправлен")
	}
}

func TestSendNonRetryableNavError(t *testing.T) {
	d := &fakeDriver{
		snapshots: []string{profileSnap},
		navErrs:   []error{errors.New("net::ERR_NAME_NOT_RESOLVED")},
	}
	m := newTestMachine(d, "")

	if _, err := m.Send(context.Background(), "openclaw", "target_user", "привет", nil); err == nil {
		t.Fatal("ожидалась ошибка навигации")
	}
	if d.navCalls != 1 {
		t.Errorf("navCalls = %d: ошибка вне retry-класса не должна повторяться", d.navCalls)
	}
}

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte("jpegdata"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSendWithImagesConfirmed(t *testing.T) {
	srv := imageServer(t)
	d := &fakeDriver{
		dir: t.TempDir(),
		snapshots: []string{
			profileSnap,          // после навигации
			dmSnap,               // проверка DM-окна
			dmSnap,               // свежий ref для ввода текста
			dmSnapWithFileInput,  // поиск file input
			dmSnapWithFileInput,  // пересъем после скачивания
			dmSnapWithSendButton, // кнопка отправки
		},
	}
	m := newTestMachine(d, filepath.Join(t.TempDir(), "panel.txt"))

	urls := []string{srv.URL + "/a.jpg", srv.URL + "/b.jpg"}
	out, err := m.Send(context.Background(), "openclaw", "target_user", "привет", urls)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !out.TextSent {
		t.Error("текст должен быть отправлен")
	}
	if out.ImageCount != 2 {
		t.Errorf("ImageCount = %d, ожидалось 2", out.ImageCount)
	}
	if out.ImagePhase != ImagePhaseConfirmed {
		t.Errorf("ImagePhase = %v, ожидалось CONFIRMED (кнопка нажата)", out.ImagePhase)
	}
	if len(d.uploads) != 1 || len(d.uploads[0]) != 2 {
		t.Errorf("uploads = %v, ожидалась одна загрузка двух файлов", d.uploads)
	}
	// Последний клик — кнопка отправки.
	if last := d.clicks[len(d.clicks)-1]; last != "e700" {
		t.Errorf("последний клик по %s, ожидалась кнопка e700", last)
	}
}

func TestSendWithImagesFallbackUnverified(t *testing.T) {
	srv := imageServer(t)
	d := &fakeDriver{
		dir: t.TempDir(),
		snapshots: []string{
			profileSnap,
			dmSnap,
			dmSnap,
			dmSnapWithFileInput,
			dmSnapWithFileInput,
			dmSnap, // кнопки отправки нет, остается поле ввода
		},
	}
	m := newTestMachine(d, filepath.Join(t.TempDir(), "panel.txt"))

	out, err := m.Send(context.Background(), "openclaw", "target_user", "привет", []string{srv.URL + "/a.jpg"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.ImagePhase != ImagePhaseAttemptedUnverified {
		t.Errorf("ImagePhase = %v, ожидалось ATTEMPTED_UNVERIFIED", out.ImagePhase)
	}
	// Fallback вводит перевод строки в поле сообщения.
	found := false
	for _, txt := range d.typed {
		if txt == "\n" {
			found = true
		}
	}
	if !found {
		t.Error("fallback должен ввести перевод строки в поле сообщения")
	}
}

func TestSendWithImagesAttachGoneAfterUpload(t *testing.T) {
	// Превью заняло место кнопки прикрепления: повторного клика по ней
	// быть не должно, отправка завершается кнопкой отправки.
	srv := imageServer(t)
	d := &fakeDriver{
		dir: t.TempDir(),
		snapshots: []string{
			profileSnap,
			dmSnap,
			dmSnap,
			dmSnapWithAttachButton, // поиск точки прикрепления
			dmSnapWithAttachButton, // пересъем после скачивания
			dmSnap,                 // после upload кнопка пропала
			dmSnapWithSendButton,   // кнопка отправки
		},
	}
	m := newTestMachine(d, filepath.Join(t.TempDir(), "panel.txt"))

	out, err := m.Send(context.Background(), "openclaw", "target_user", "привет", []string{srv.URL + "/a.jpg"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if out.ImagePhase != ImagePhaseConfirmed {
		t.Errorf("ImagePhase = %v, ожидалось CONFIRMED (кнопка отправки нажата)", out.ImagePhase)
	}
	if len(d.uploads) != 1 {
		t.Errorf("uploads = %v, ожидалась одна загрузка", d.uploads)
	}
	for _, c := range d.clicks {
		if c == "e620" {
			t.Error("клик по устаревшему ref кнопки прикрепления недопустим")
		}
	}
	if last := d.clicks[len(d.clicks)-1]; last != "e700" {
		t.Errorf("последний клик по %s, ожидалась кнопка отправки e700", last)
	}
}

func TestSendWithImagesNoAttachPoint(t *testing.T) {
	srv := imageServer(t)
	d := &fakeDriver{
		dir: t.TempDir(),
		snapshots: []string{
			profileSnap,
			dmSnap,
			dmSnap,
			dmSnap, // ни file input, ни кнопки прикрепления
		},
	}
	m := newTestMachine(d, filepath.Join(t.TempDir(), "panel.txt"))

	out, err := m.Send(context.Background(), "openclaw", "target_user", "привет", []string{srv.URL + "/a.jpg"})
	if err == nil {
		t.Fatal("ожидалась ошибка: нет точки прикрепления")
	}
	if !out.TextSent {
		t.Error("текст к этому моменту уже отправлен")
	}
	if out.ImagePhase != ImagePhaseFailed {
		t.Errorf("ImagePhase = %v, ожидалось FAILED", out.ImagePhase)
	}
}

func TestSendWithImagesStaleScreenEscapes(t *testing.T) {
	srv := imageServer(t)
	d := &fakeDriver{
		dir:       t.TempDir(),
		uploadErr: errors.New("Element e650 not found"),
		snapshots: []string{
			profileSnap,
			dmSnap,
			dmSnap,
			dmSnapWithFileInput,
			dmSnapWithFileInput,
		},
	}
	m := newTestMachine(d, filepath.Join(t.TempDir(), "panel.txt"))

	out, err := m.Send(context.Background(), "openclaw", "target_user", "привет", []string{srv.URL + "/a.jpg"})
	if err == nil {
		t.Fatal("ожидалась ошибка фазы изображений")
	}
	if !strings.Contains(err.Error(), "Escape") {
		t.Errorf("ошибка должна упоминать Escape-восстановление: %v", err)
	}
	if out.ImagePhase != ImagePhaseFailed {
		t.Errorf("ImagePhase = %v, ожидалось FAILED", out.ImagePhase)
	}
	escaped := false
	for _, k := range d.keys {
		if k == "Escape" {
			escaped = true
		}
	}
	if !escaped {
		t.Error("после пропажи элемента должен быть нажат Escape")
	}
}
