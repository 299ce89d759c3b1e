// Package retry централизует политику повторов: максимум попыток, пауза и
// предикат повторяемости объявляются один раз на класс операций, а не
// рассыпаются по вызывающим местам.
package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy описывает повторы для одного класса операций.
type Policy struct {
	MaxAttempts int
	Backoff     time.Duration
	// Retryable решает, стоит ли повторять после данной ошибки.
	// nil означает «повторять любую ошибку».
	Retryable func(error) bool
}

// Do выполняет fn до первого успеха или исчерпания попыток. Между попытками
// выдерживается Backoff с учетом отмены контекста. Неповторяемая ошибка
// возвращается сразу.
func (p Policy) Do(ctx context.Context, fn func() error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.Backoff):
			}
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if p.Retryable != nil && !p.Retryable(err) {
			return err
		}
	}

	return fmt.Errorf("после %d попыток: %w", attempts, lastErr)
}
