// Package resolver находит ссылки элементов в snapshot по семантической роли.
// Вместо разбросанных по коду regex-веток каждая роль описана упорядоченной
// цепочкой типизированных правил: порядок правил — часть контракта, первое
// сработавшее правило выигрывает.
package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"leadAgent/internal/snapshot"
)

// Role — семантическое намерение поиска.
type Role string

const (
	RoleMessageInput         Role = "message-input"
	RoleSendButton           Role = "send-button"
	RoleAttachButton         Role = "attach-button"
	RoleFileInput            Role = "file-input"
	RoleProfileMessageButton Role = "profile-message-button"
)

// Region ограничивает поиск частью snapshot. Head — «шапка» страницы,
// Tail — хвост дерева, куда дописывается открытое DM-окно.
type Region struct {
	Head int
	Tail int
}

func (r Region) apply(s snapshot.Snapshot) snapshot.Snapshot {
	if r.Head > 0 {
		return s.Head(r.Head)
	}
	if r.Tail > 0 {
		return s.Tail(r.Tail)
	}
	return s
}

// Rule — одно правило поиска внутри цепочки роли.
//
// Строка-кандидат обязана содержать все Require-паттерны и ни одного
// Exclude-паттерна (правила плюс общие исключения роли). Ref берется только
// после первого совпавшего якоря из Anchors — внешние контейнеры, чьи ref
// стоят в начале строки, никогда не возвращаются: такой ref может указывать
// на пост, и клик по нему уводит со страницы.
type Rule struct {
	Name        string
	Require     []*regexp.Regexp
	Exclude     []*regexp.Regexp
	Anchors     []*regexp.Regexp
	LineLastRef bool // Если после якоря ref не нашелся — взять последний ref строки
	TakeLast    bool // Позиционный fallback: последний кандидат по всем строкам
}

// Query — цепочка правил одной роли с общими исключениями и регионом поиска.
type Query struct {
	Role    Role
	Region  Region
	Exclude []*regexp.Regexp
	Rules   []Rule
}

// NotFoundError сообщает, какую роль не удалось разрешить, и несет фрагмент
// просмотренного региона для диагностики. Для вызывающего это всегда
// повторяемое состояние: пересними snapshot и попробуй еще раз.
type NotFoundError struct {
	Role    Role
	Snippet string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("элемент роли %q не найден в snapshot (фрагмент региона: %s)", e.Role, e.Snippet)
}

// Table хранит описания всех ролей. Списки ключевых слов и размеры регионов —
// данные, а не константы: внешний UI дрейфует, и правки не должны требовать
// перекомпиляции логики.
type Table struct {
	queries map[Role]Query
}

// NewTable собирает таблицу из готовых описаний ролей.
func NewTable(queries ...Query) *Table {
	t := &Table{queries: make(map[Role]Query, len(queries))}
	for _, q := range queries {
		t.queries[q.Role] = q
	}
	return t
}

// Resolve возвращает ref лучшего кандидата для роли или *NotFoundError.
func (t *Table) Resolve(s snapshot.Snapshot, role Role) (snapshot.Ref, error) {
	q, ok := t.queries[role]
	if !ok {
		return snapshot.Ref{}, fmt.Errorf("неизвестная роль %q", role)
	}

	region := q.Region.apply(s)
	for _, rule := range q.Rules {
		if ref := matchRule(region, rule, q.Exclude); !ref.IsZero() {
			return ref, nil
		}
	}

	return snapshot.Ref{}, &NotFoundError{Role: role, Snippet: snippet(region)}
}

func matchRule(s snapshot.Snapshot, rule Rule, globalExclude []*regexp.Regexp) snapshot.Ref {
	var last snapshot.Ref
	for _, line := range s.Lines {
		if matchesAny(line, globalExclude) || matchesAny(line, rule.Exclude) {
			continue
		}
		if !matchesAll(line, rule.Require) {
			continue
		}

		ref := anchoredRef(s, line, rule)
		if ref.IsZero() {
			continue
		}
		if rule.TakeLast {
			last = ref
			continue
		}
		return ref
	}
	return last
}

// anchoredRef применяет правило «ref после ключевого слова».
func anchoredRef(s snapshot.Snapshot, line string, rule Rule) snapshot.Ref {
	for _, anchor := range rule.Anchors {
		loc := anchor.FindStringIndex(line)
		if loc == nil {
			continue
		}
		if ref := s.RefAfter(line, loc[0]); !ref.IsZero() {
			return ref
		}
		if rule.LineLastRef {
			return s.LastRef(line)
		}
		// Все ref строки стоят до якоря — строку пропускаем целиком,
		// а не деградируем до «первого ref».
		return snapshot.Ref{}
	}
	if len(rule.Anchors) == 0 {
		return s.FirstRef(line)
	}
	return snapshot.Ref{}
}

func matchesAny(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func matchesAll(line string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if !p.MatchString(line) {
			return false
		}
	}
	return true
}

func snippet(s snapshot.Snapshot) string {
	const maxLen = 200
	text := strings.ReplaceAll(s.Text(), "\n", " ")
	if len(text) > maxLen {
		return text[:maxLen] + "…"
	}
	return text
}
