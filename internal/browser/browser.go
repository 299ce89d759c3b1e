// Package browser — локальный playwright-драйвер, запасной вариант когда
// CLI-инструмент автоматизации не настроен. Реализует тот же контракт
// openclaw.Driver: snapshot с ref-метками, клики и ввод по ref.
// Каждый browser profile живет в своем persistent context (отдельный
// каталог userdata = отдельная IG-сессия).
package browser

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"leadAgent/internal/config"
	"leadAgent/internal/logger"
	"leadAgent/internal/openclaw"
	"leadAgent/internal/snapshot"

	"github.com/playwright-community/playwright-go"
	"go.uber.org/zap"
)

const (
	navigateTimeout = 60 * time.Second
	actionTimeout   = 10 * time.Second
)

type session struct {
	context playwright.BrowserContext
	page    playwright.Page
}

type Driver struct {
	cfg config.Browser
	log *logger.Zap

	mu          sync.Mutex
	pw          *playwright.Playwright
	sessions    map[string]*session
	generations map[string]uint64
	uploadDir   string
}

// компилятор проверяет соответствие контракту
var _ openclaw.Driver = (*Driver)(nil)

func New(cfg config.Browser, uploadDir string, log *logger.Zap) *Driver {
	return &Driver{
		cfg:         cfg,
		log:         log,
		sessions:    make(map[string]*session),
		generations: make(map[string]uint64),
		uploadDir:   uploadDir,
	}
}

// Available — playwright-драйвер считается доступным всегда: браузер
// поднимается лениво при первом обращении.
func (d *Driver) Available() bool { return true }

func (d *Driver) UploadDir() string { return d.uploadDir }

// ensureSession лениво запускает playwright и persistent context профиля.
func (d *Driver) ensureSession(profile string) (*session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if s, ok := d.sessions[profile]; ok {
		return s, nil
	}

	if d.pw == nil {
		pw, err := playwright.Run()
		if err != nil {
			return nil, fmt.Errorf("запуск playwright: %w", err)
		}
		d.pw = pw
	}

	opts := playwright.BrowserTypeLaunchPersistentContextOptions{
		Headless: playwright.Bool(d.cfg.Headless),
		Args:     []string{"--no-sandbox"},
	}
	if d.cfg.Display != "" {
		opts.Env = map[string]string{"DISPLAY": d.cfg.Display}
	}

	userDataDir := filepath.Join(d.cfg.UserDataDir, profile)
	browserContext, err := d.pw.Firefox.LaunchPersistentContext(userDataDir, opts)
	if err != nil {
		return nil, fmt.Errorf("запуск браузера для profile %q: %w", profile, err)
	}

	var page playwright.Page
	if pages := browserContext.Pages(); len(pages) > 0 {
		page = pages[0]
	} else {
		page, err = browserContext.NewPage()
		if err != nil {
			_ = browserContext.Close()
			return nil, err
		}
	}
	page.SetDefaultTimeout(float64(actionTimeout.Milliseconds()))

	s := &session{context: browserContext, page: page}
	d.sessions[profile] = s
	d.log.Info("playwright-сессия запущена",
		zap.String("profile", profile),
		zap.String("userdata", userDataDir))
	return s, nil
}

func (d *Driver) bumpGeneration(profile string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.generations[profile]++
	return d.generations[profile]
}

func (d *Driver) checkRef(ref snapshot.Ref, profile string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	current := d.generations[profile]
	if ref.IsZero() || ref.Generation != current {
		return &openclaw.StaleRefError{Ref: ref, Profile: profile, Generation: current}
	}
	return nil
}

func refSelector(ref snapshot.Ref) string {
	return fmt.Sprintf(`[data-agent-ref=%q]`, ref.ID)
}

func (d *Driver) Navigate(ctx context.Context, url, profile string) error {
	s, err := d.ensureSession(profile)
	if err != nil {
		return err
	}

	_, err = s.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(navigateTimeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("навигация %s: %w", url, err)
	}

	d.dismissPopups(s.page)
	d.bumpGeneration(profile)
	return nil
}

func (d *Driver) Click(ctx context.Context, ref snapshot.Ref, profile string) error {
	if err := d.checkRef(ref, profile); err != nil {
		return err
	}
	s, err := d.ensureSession(profile)
	if err != nil {
		return err
	}

	sel := refSelector(ref)
	loc := s.page.Locator(sel)
	// Элемент может быть за пределами viewport
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("элемент %s not visible: %w", ref.ID, err)
	}
	if err := loc.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(float64(actionTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("клик по %s: %w", ref.ID, err)
	}
	return nil
}

func (d *Driver) Type(ctx context.Context, ref snapshot.Ref, text, profile string) error {
	if err := d.checkRef(ref, profile); err != nil {
		return err
	}
	s, err := d.ensureSession(profile)
	if err != nil {
		return err
	}

	loc := s.page.Locator(refSelector(ref))
	if err := loc.ScrollIntoViewIfNeeded(); err != nil {
		return fmt.Errorf("элемент %s not visible: %w", ref.ID, err)
	}
	// PressSequentially, а не Fill: contenteditable-поля IG игнорируют Fill,
	// а перевод строки должен дойти как нажатие клавиши.
	if err := loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Timeout: playwright.Float(float64(actionTimeout.Milliseconds())),
	}); err != nil {
		return fmt.Errorf("ввод в %s: %w", ref.ID, err)
	}
	return nil
}

func (d *Driver) PressKey(ctx context.Context, key, profile string) error {
	s, err := d.ensureSession(profile)
	if err != nil {
		return err
	}
	if err := s.page.Keyboard().Press(key); err != nil {
		return fmt.Errorf("нажатие %s: %w", key, err)
	}
	return nil
}

func (d *Driver) Upload(ctx context.Context, paths []string, ref snapshot.Ref, profile string, mode openclaw.UploadMode) error {
	if err := d.checkRef(ref, profile); err != nil {
		return err
	}
	for _, p := range paths {
		if !insideDir(d.uploadDir, p) {
			return fmt.Errorf("файл %s вне каталога загрузок %s", p, d.uploadDir)
		}
	}
	s, err := d.ensureSession(profile)
	if err != nil {
		return err
	}

	sel := refSelector(ref)
	switch mode {
	case openclaw.UploadViaInput:
		if err := s.page.Locator(sel).SetInputFiles(paths); err != nil {
			return fmt.Errorf("upload в file input %s: %w", ref.ID, err)
		}
	case openclaw.UploadViaAttach:
		// Кнопка открывает системный диалог выбора файла; перехватываем его.
		fc, err := s.page.ExpectFileChooser(func() error {
			return s.page.Locator(sel).Click()
		})
		if err != nil {
			return fmt.Errorf("диалог выбора файла после клика по %s: %w", ref.ID, err)
		}
		if err := fc.SetFiles(paths); err != nil {
			return fmt.Errorf("установка файлов: %w", err)
		}
	default:
		return fmt.Errorf("неизвестный режим загрузки %d", mode)
	}
	return nil
}

func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	var firstErr error
	for profile, s := range d.sessions {
		if err := s.context.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(d.sessions, profile)
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
		d.pw = nil
	}
	return firstErr
}

func insideDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && (len(rel) < 3 || rel[:3] != ".."+string(filepath.Separator))
}
