// Package openclaw — тонкий командный слой над CLI-инструментом автоматизации
// браузера. Каждая операция — блокирующий вызов инструмента в рамках одного
// browser profile (изолированная сессия = один IG-аккаунт); параллельных
// действий внутри одного profile слой не допускает по построению: гонка на
// общей сессии ломает валидность ref.
package openclaw

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"leadAgent/internal/snapshot"
)

// UploadMode указывает, как интерпретировать ref при загрузке файлов.
type UploadMode int

const (
	// UploadViaInput — ref указывает на <input type="file">, файл ставится
	// напрямую без диалога выбора.
	UploadViaInput UploadMode = iota
	// UploadViaAttach — ref указывает на кнопку «прикрепить»: загрузка
	// взводится, затем кнопку нужно кликнуть.
	UploadViaAttach
)

// Driver — граница инструмента автоматизации. Реализации: CLI (этот пакет)
// и локальный playwright (internal/browser). Интерфейс позволяет подменять
// драйвер тестовым двойником.
type Driver interface {
	Navigate(ctx context.Context, url, profile string) error
	Snapshot(ctx context.Context, profile string) (snapshot.Snapshot, error)
	Click(ctx context.Context, ref snapshot.Ref, profile string) error
	Type(ctx context.Context, ref snapshot.Ref, text, profile string) error
	PressKey(ctx context.Context, key, profile string) error
	Upload(ctx context.Context, paths []string, ref snapshot.Ref, profile string, mode UploadMode) error
	// UploadDir — каталог-песочница: инструмент принимает только файлы из него.
	UploadDir() string
}

// CommandError — типизированная ошибка вызова инструмента, несет захваченный
// вывод процесса: оператор решает о повторе руками, ему нужен текст, а не код.
type CommandError struct {
	Cmd    string
	Stdout string
	Stderr string
	Err    error
}

const maxCapturedOutput = 3000

func (e *CommandError) Error() string {
	parts := []string{fmt.Sprintf("команда openclaw %q: %v", e.Cmd, e.Err)}
	if e.Stderr != "" {
		parts = append(parts, "--- stderr ---\n"+e.Stderr)
	}
	if e.Stdout != "" {
		parts = append(parts, "--- stdout ---\n"+e.Stdout)
	}
	full := strings.Join(parts, "\n")
	if len(full) > maxCapturedOutput {
		return full[:maxCapturedOutput] + "\n... (обрезано)"
	}
	return full
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// StaleRefError — попытка использовать ref против более нового snapshot.
// Это ошибка программирования в вызывающем коде, а не состояние страницы.
type StaleRefError struct {
	Ref        snapshot.Ref
	Profile    string
	Generation uint64
}

func (e *StaleRefError) Error() string {
	return fmt.Sprintf("ref %s принадлежит snapshot поколения %d, текущее поколение profile %q — %d: пересними snapshot и разреши элемент заново",
		e.Ref.ID, e.Ref.Generation, e.Profile, e.Generation)
}

var (
	reElementMissing = regexp.MustCompile(`(?i)not found|not visible|Element.*e\d+.*not`)
	reSessionCrash   = regexp.MustCompile(`(?i)crashed|page\.goto`)
)

// IsElementMissing распознает ошибки класса «элемент не найден/не виден» —
// после них уместно нажать Escape и повторить операцию целиком.
func IsElementMissing(err error) bool {
	return err != nil && reElementMissing.MatchString(err.Error())
}

// IsSessionCrash распознает временные ошибки навигации (упавшая вкладка),
// при которых навигацию стоит повторить на месте.
func IsSessionCrash(err error) bool {
	return err != nil && reSessionCrash.MatchString(err.Error())
}
