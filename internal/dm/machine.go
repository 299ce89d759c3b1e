// Package dm реализует конвейер отправки Instagram DM через snapshot-модель
// инструмента автоматизации: навигация на профиль, открытие DM-окна,
// текстовая фаза и опциональная фаза изображений с цепочкой fallback-ов.
package dm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"leadAgent/internal/config"
	"leadAgent/internal/logger"
	"leadAgent/internal/openclaw"
	"leadAgent/internal/resolver"
	"leadAgent/internal/retry"
	"leadAgent/internal/snapshot"

	"go.uber.org/zap"
)

// ImagePhase — трехзначный итог фазы изображений. Инструмент не умеет
// подтверждать доставку, поэтому «кнопка отправки нажата» и «отправка
// инициирована вслепую» — разные исходы.
type ImagePhase int

const (
	// ImagePhaseConfirmed — изображений не было, либо кнопка отправки
	// была найдена и нажата без ошибки.
	ImagePhaseConfirmed ImagePhase = iota
	// ImagePhaseAttemptedUnverified — сработал fallback (Enter в поле ввода):
	// отправка инициирована, но подтверждения нет.
	ImagePhaseAttemptedUnverified
	// ImagePhaseFailed — фаза изображений завершилась ошибкой.
	ImagePhaseFailed
)

func (p ImagePhase) String() string {
	switch p {
	case ImagePhaseConfirmed:
		return "CONFIRMED"
	case ImagePhaseAttemptedUnverified:
		return "ATTEMPTED_UNVERIFIED"
	case ImagePhaseFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

// Outcome — результат одной отправки DM.
type Outcome struct {
	TextSent   bool
	ImageCount int
	ImagePhase ImagePhase
}

// Паузы между шагами: IG рендерит DOM асинхронно, без них ref берется
// со старого экрана. Значения сняты с реальных прогонов.
const (
	pauseAfterNavigate   = 3500 * time.Millisecond
	pauseAfterOpenDm     = 3500 * time.Millisecond
	pauseAfterClickInput = 600 * time.Millisecond
	pauseAfterType       = 500 * time.Millisecond
	pauseBeforeEnter     = 400 * time.Millisecond
	pauseAfterTextSend   = 2500 * time.Millisecond
	pauseBeforeImageSend = 3 * time.Second
	pauseAfterSendClick  = 2 * time.Second
	pauseAfterEscape     = 2 * time.Second
	pauseResnapshotRetry = time.Second
)

// Machine ведет отправку одного DM от начала до конца.
type Machine struct {
	driver    openclaw.Driver
	table     *resolver.Table
	log       *logger.Zap
	cfg       config.Dm
	debugPath string

	// Подменяется в тестах, чтобы не ждать реальные паузы.
	sleep func(ctx context.Context, d time.Duration)
}

func NewMachine(driver openclaw.Driver, table *resolver.Table, log *logger.Zap, cfg config.Dm, debugPath string) *Machine {
	return &Machine{
		driver:    driver,
		table:     table,
		log:       log,
		cfg:       cfg,
		debugPath: debugPath,
		sleep:     sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// Send отправляет DM пользователю targetUsername от имени browser profile.
// При наличии imageURLs сначала уходит текст (первое сообщение), затем
// изображения (второе). Возвращаемый Outcome валиден и при ошибке фазы
// изображений: текст к этому моменту уже отправлен.
func (m *Machine) Send(ctx context.Context, profile, targetUsername, messageText string, imageURLs []string) (*Outcome, error) {
	out := &Outcome{ImageCount: len(imageURLs), ImagePhase: ImagePhaseConfirmed}

	m.log.Info("отправка DM",
		zap.String("profile", profile),
		zap.String("target", targetUsername),
		zap.Int("images", len(imageURLs)))

	// 1. Навигация на профиль. Упавшая вкладка — временная ошибка, повторяем.
	profileURL := "https://www.instagram.com/" + targetUsername + "/"
	nav := retry.Policy{
		MaxAttempts: m.cfg.NavRetries,
		Backoff:     m.cfg.NavRetryWait,
		Retryable:   openclaw.IsSessionCrash,
	}
	if err := nav.Do(ctx, func() error {
		return m.driver.Navigate(ctx, profileURL, profile)
	}); err != nil {
		return out, fmt.Errorf("навигация на профиль @%s: %w", targetUsername, err)
	}
	m.sleep(ctx, pauseAfterNavigate)

	// 2. Кнопка «Отправить сообщение» ищется только в шапке профиля,
	// иначе можно кликнуть по посту.
	snap, err := m.driver.Snapshot(ctx, profile)
	if err != nil {
		return out, err
	}
	msgButton, err := m.table.Resolve(snap, resolver.RoleProfileMessageButton)
	if err != nil {
		return out, fmt.Errorf("кнопка сообщения на профиле @%s не найдена (проверьте логин и существование пользователя): %w", targetUsername, err)
	}
	m.log.Debug("открываем DM-окно", zap.String("ref", msgButton.ID))
	if err := m.driver.Click(ctx, msgButton, profile); err != nil {
		return out, fmt.Errorf("клик по кнопке сообщения: %w", err)
	}
	m.sleep(ctx, pauseAfterOpenDm)

	// 3. Проверяем, что DM-окно открылось: в хвосте snapshot должно
	// появиться поле ввода.
	snap, err = m.driver.Snapshot(ctx, profile)
	if err != nil {
		return out, err
	}
	if _, err := m.table.Resolve(snap, resolver.RoleMessageInput); err != nil {
		var nf *resolver.NotFoundError
		if errors.As(err, &nf) {
			return out, fmt.Errorf("DM-окно не открылось (возможно, клик попал в пост): %w", err)
		}
		return out, err
	}

	if len(imageURLs) > 0 {
		m.dumpDebugSnapshot(snap)
	}

	// 4. Текстовая фаза.
	if err := m.sendText(ctx, profile, snap, messageText); err != nil {
		return out, err
	}
	out.TextSent = true

	// 5. Фаза изображений.
	if len(imageURLs) > 0 {
		phase, err := m.sendImages(ctx, profile, imageURLs)
		out.ImagePhase = phase
		if err != nil {
			return out, err
		}
	}

	m.log.Info("DM отправлен",
		zap.String("target", targetUsername),
		zap.Bool("text_sent", out.TextSent),
		zap.String("image_phase", out.ImagePhase.String()))
	return out, nil
}

// sendText вводит текст в поле сообщения и отправляет Enter-ом.
// После клика по полю snapshot снимается заново: клик мог перестроить
// DOM, и только свежий ref валиден для ввода.
func (m *Machine) sendText(ctx context.Context, profile string, snap snapshot.Snapshot, text string) error {
	input, err := m.table.Resolve(snap, resolver.RoleMessageInput)
	if err != nil {
		return err
	}
	if err := m.driver.Click(ctx, input, profile); err != nil {
		return fmt.Errorf("клик по полю ввода: %w", err)
	}
	m.sleep(ctx, pauseAfterClickInput)

	snap, err = m.driver.Snapshot(ctx, profile)
	if err != nil {
		return err
	}
	fresh, err := m.table.Resolve(snap, resolver.RoleMessageInput)
	if err != nil {
		return fmt.Errorf("после клика поле ввода пропало из snapshot: %w", err)
	}
	if err := m.driver.Type(ctx, fresh, text, profile); err != nil {
		return fmt.Errorf("ввод текста: %w", err)
	}
	m.sleep(ctx, pauseAfterType)
	if err := m.driver.Click(ctx, fresh, profile); err != nil {
		return fmt.Errorf("возврат фокуса в поле ввода: %w", err)
	}
	m.sleep(ctx, pauseBeforeEnter)
	if err := m.driver.PressKey(ctx, "Enter", profile); err != nil {
		return fmt.Errorf("отправка Enter: %w", err)
	}
	m.sleep(ctx, pauseAfterTextSend)
	m.log.Debug("текстовая фаза завершена")
	return nil
}

// sendImages загружает изображения и отправляет их вторым сообщением.
// Цепочка: кнопка отправки -> Enter в поле ввода -> слепой Enter x2.
// Escape здесь допустим только при ошибке: в штатном потоке он закрывает
// само DM-окно.
func (m *Machine) sendImages(ctx context.Context, profile string, imageURLs []string) (ImagePhase, error) {
	snap, err := m.driver.Snapshot(ctx, profile)
	if err != nil {
		return ImagePhaseFailed, err
	}
	fileInput, fileErr := m.table.Resolve(snap, resolver.RoleFileInput)
	attach, attachErr := m.table.Resolve(snap, resolver.RoleAttachButton)
	if fileErr != nil && attachErr != nil {
		return ImagePhaseFailed, fmt.Errorf("не найден ни file input, ни кнопка прикрепления (дамп snapshot: %s): %w", m.debugPath, attachErr)
	}

	localPaths, err := openclaw.DownloadToUploadDir(ctx, m.driver.UploadDir(), imageURLs)
	if err != nil {
		return ImagePhaseFailed, fmt.Errorf("загрузка изображений: %w", err)
	}
	defer openclaw.RemoveFiles(localPaths)

	// Скачивание занимает время, ref мог устареть: пересъем и повторное
	// разрешение, старые ref только как индикатор «элемент существовал».
	snap, err = m.driver.Snapshot(ctx, profile)
	if err != nil {
		return ImagePhaseFailed, err
	}
	fileInput, fileErr = m.table.Resolve(snap, resolver.RoleFileInput)
	attach, attachErr = m.table.Resolve(snap, resolver.RoleAttachButton)

	phase, err := m.uploadAndSend(ctx, profile, localPaths, fileInput, fileErr, attach, attachErr)
	if err != nil {
		if openclaw.IsElementMissing(err) {
			// Экран сменился (клик попал в пост или поверх вылез modal),
			// все ref недействительны. Escape закрывает лишнее окно.
			m.log.Warn("элемент пропал, закрываем наложенное окно Escape-ом", zap.Error(err))
			if escErr := m.driver.PressKey(ctx, "Escape", profile); escErr == nil {
				m.sleep(ctx, pauseAfterEscape)
			}
			return ImagePhaseFailed, fmt.Errorf("экран сменился во время фазы изображений, нажат Escape, повторите отправку: %w", err)
		}
		return ImagePhaseFailed, err
	}
	return phase, nil
}

func (m *Machine) uploadAndSend(ctx context.Context, profile string, localPaths []string, fileInput snapshot.Ref, fileErr error, attach snapshot.Ref, attachErr error) (ImagePhase, error) {
	switch {
	case fileErr == nil:
		// Скрытый <input type="file">: ставим файлы напрямую, без диалога.
		m.log.Debug("upload через file input", zap.String("ref", fileInput.ID))
		if err := m.driver.Upload(ctx, localPaths, fileInput, profile, openclaw.UploadViaInput); err != nil {
			return ImagePhaseFailed, fmt.Errorf("upload через file input: %w", err)
		}
	case attachErr == nil:
		m.log.Debug("upload через кнопку прикрепления", zap.String("ref", attach.ID))
		if err := m.driver.Upload(ctx, localPaths, attach, profile, openclaw.UploadViaAttach); err != nil {
			return ImagePhaseFailed, fmt.Errorf("upload через кнопку прикрепления: %w", err)
		}
		// Upload мог перестроить DOM. Кликаем по кнопке только по свежему
		// ref; если она исчезла (превью заняло ее место) — клик не нужен.
		snap, err := m.driver.Snapshot(ctx, profile)
		if err != nil {
			return ImagePhaseFailed, err
		}
		if again, err := m.table.Resolve(snap, resolver.RoleAttachButton); err == nil {
			if again.ID != attach.ID {
				if err := m.driver.Upload(ctx, localPaths, again, profile, openclaw.UploadViaAttach); err != nil {
					return ImagePhaseFailed, fmt.Errorf("повторный upload по свежему ref: %w", err)
				}
			}
			if err := m.driver.Click(ctx, again, profile); err != nil {
				return ImagePhaseFailed, fmt.Errorf("клик по кнопке прикрепления: %w", err)
			}
		} else {
			m.log.Debug("кнопка прикрепления пропала после upload, клик пропущен")
		}
	default:
		return ImagePhaseFailed, fmt.Errorf("после скачивания не найден ref для upload: %w", attachErr)
	}

	// Ждем появления превью и отправляем.
	m.sleep(ctx, pauseBeforeImageSend)

	// Приоритет 1: кнопка отправки (бумажный самолетик). Единственный
	// вариант, который можно считать подтвержденным.
	snap, err := m.driver.Snapshot(ctx, profile)
	if err != nil {
		return ImagePhaseFailed, err
	}
	if send, err := m.table.Resolve(snap, resolver.RoleSendButton); err == nil {
		if clickErr := m.driver.Click(ctx, send, profile); clickErr == nil {
			m.sleep(ctx, pauseAfterSendClick)
			m.log.Debug("изображения отправлены кнопкой", zap.String("ref", send.ID))
			return ImagePhaseConfirmed, nil
		} else {
			m.log.Warn("клик по кнопке отправки не удался, переходим к fallback", zap.Error(clickErr))
		}
	} else {
		m.log.Debug("кнопка отправки не найдена, переходим к fallback")
	}

	// Приоритет 2: Enter в поле ввода. Поле могло пересняться, при неудаче
	// пробуем еще раз через секунду.
	input, inputErr := m.table.Resolve(snap, resolver.RoleMessageInput)
	if inputErr != nil {
		m.sleep(ctx, pauseResnapshotRetry)
		if snap, err = m.driver.Snapshot(ctx, profile); err != nil {
			return ImagePhaseFailed, err
		}
		input, inputErr = m.table.Resolve(snap, resolver.RoleMessageInput)
	}
	if inputErr == nil {
		if err := m.driver.Click(ctx, input, profile); err == nil {
			m.sleep(ctx, pauseAfterClickInput)
			// Перевод строки прямо в поле сообщения срабатывает стабильнее,
			// чем Enter по всей странице.
			if err := m.driver.Type(ctx, input, "\n", profile); err == nil {
				m.sleep(ctx, pauseAfterType)
				_ = m.driver.Click(ctx, input, profile)
				m.sleep(ctx, pauseBeforeEnter)
				if err := m.driver.PressKey(ctx, "Enter", profile); err == nil {
					m.sleep(ctx, pauseAfterTextSend)
					m.log.Debug("изображения отправлены через поле ввода")
					return ImagePhaseAttemptedUnverified, nil
				}
			}
		}
	}

	// Приоритет 3: слепой Enter дважды.
	m.log.Debug("fallback: Enter x2")
	if err := m.driver.PressKey(ctx, "Enter", profile); err != nil {
		return ImagePhaseFailed, fmt.Errorf("fallback Enter: %w", err)
	}
	m.sleep(ctx, pauseAfterClickInput)
	if err := m.driver.PressKey(ctx, "Enter", profile); err != nil {
		return ImagePhaseFailed, fmt.Errorf("fallback Enter: %w", err)
	}
	m.sleep(ctx, pauseAfterTextSend)
	return ImagePhaseAttemptedUnverified, nil
}

// dumpDebugSnapshot пишет хвост snapshot в файл: по нему удобно сверять
// ref-ы кнопок с реальным экраном.
func (m *Machine) dumpDebugSnapshot(snap snapshot.Snapshot) {
	path := m.debugPath
	if path == "" {
		ts := time.Now().Format("20060102150405")
		path = filepath.Join(os.TempDir(), fmt.Sprintf("dm-panel-snapshot-%s.txt", ts))
	}
	if err := os.WriteFile(path, []byte(snap.Tail(m.cfg.TailLines).Text()), 0o644); err != nil {
		m.log.Debug("не удалось записать дамп snapshot", zap.Error(err))
		return
	}
	m.debugPath = path
	m.log.Debug("дамп DM-окна записан", zap.String("path", path))
}
