// Package snapshot моделирует текстовый дамп accessibility-дерева страницы.
// Snapshot — единственный канал наблюдения за браузером: набор строк, в каждой
// из которых может встречаться токен [ref=eNNN] — непрозрачный идентификатор
// интерактивного элемента. Ref действителен только внутри породившего его
// snapshot: после любого действия, меняющего страницу, нужен новый snapshot.
package snapshot

import (
	"regexp"
	"sort"
	"strings"
)

// refToken — грамматика токена ссылки в строке snapshot.
var refToken = regexp.MustCompile(`\[ref=(e\d+)\]`)

// Ref — непрозрачная ссылка на элемент, привязанная к поколению snapshot.
// Использование ref против более нового поколения — ошибка программирования,
// драйвер обязан её обнаружить, а не молча кликнуть не туда.
type Ref struct {
	ID         string
	Generation uint64
}

// IsZero сообщает, что ссылка не была найдена.
func (r Ref) IsZero() bool {
	return r.ID == ""
}

// Snapshot — один дамп страницы. Generation монотонно растет на каждый
// перезахват; Lines неизменяемы после создания.
type Snapshot struct {
	Generation uint64
	Lines      []string
}

// New разбирает сырой текст дампа в строки, отбрасывая пустые края.
func New(raw string, generation uint64) Snapshot {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	return Snapshot{Generation: generation, Lines: lines}
}

// Head возвращает первые n строк. Используется для «шапки» профиля: кнопка
// сообщения живет в начале дерева, а похожие кнопки постов — ниже.
func (s Snapshot) Head(n int) Snapshot {
	if n < 0 {
		n = 0
	}
	if n > len(s.Lines) {
		n = len(s.Lines)
	}
	return Snapshot{Generation: s.Generation, Lines: s.Lines[:n]}
}

// Tail возвращает последние m строк. Открытое DM-окно дописывается в конец
// дерева, поэтому поиск по всему snapshot рискует попасть в элементы страницы
// позади окна.
func (s Snapshot) Tail(m int) Snapshot {
	if m < 0 {
		m = 0
	}
	if m > len(s.Lines) {
		m = len(s.Lines)
	}
	return Snapshot{Generation: s.Generation, Lines: s.Lines[len(s.Lines)-m:]}
}

// Len — количество строк.
func (s Snapshot) Len() int {
	return len(s.Lines)
}

// Text склеивает строки обратно — для диагностических дампов.
func (s Snapshot) Text() string {
	return strings.Join(s.Lines, "\n")
}

// FirstRef возвращает первый ref в строке.
func (s Snapshot) FirstRef(line string) Ref {
	m := refToken.FindStringSubmatch(line)
	if m == nil {
		return Ref{}
	}
	return Ref{ID: m[1], Generation: s.Generation}
}

// RefAfter возвращает первый ref, начинающийся не раньше байтового смещения
// offset. Строка часто содержит сначала ref внешнего контейнера, а после
// ключевого слова — ref самого интерактивного элемента; брать «первый ref в
// строке» нельзя, контейнер может оказаться ссылкой на пост.
func (s Snapshot) RefAfter(line string, offset int) Ref {
	for _, loc := range refToken.FindAllStringSubmatchIndex(line, -1) {
		if loc[0] >= offset {
			return Ref{ID: line[loc[2]:loc[3]], Generation: s.Generation}
		}
	}
	return Ref{}
}

// LastRef возвращает последний ref в строке.
func (s Snapshot) LastRef(line string) Ref {
	ms := refToken.FindAllStringSubmatch(line, -1)
	if len(ms) == 0 {
		return Ref{}
	}
	return Ref{ID: ms[len(ms)-1][1], Generation: s.Generation}
}

// AllRefs возвращает отсортированный список уникальных ref всего snapshot —
// для сопоставления дампа с выбранными ссылками при разборе инцидентов.
func (s Snapshot) AllRefs() []string {
	seen := make(map[string]struct{})
	for _, line := range s.Lines {
		for _, m := range refToken.FindAllStringSubmatch(line, -1) {
			seen[m[1]] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// StripRefs убирает токены ссылок из строки — остается видимый текст.
func StripRefs(line string) string {
	return strings.TrimSpace(refToken.ReplaceAllString(line, ""))
}
