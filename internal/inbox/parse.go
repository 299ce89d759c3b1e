// Package inbox проверяет входящие Instagram Direct: парсит список диалогов
// из snapshot, сопоставляет отправителей с лидами и классифицирует ответы.
package inbox

import (
	"regexp"
	"strings"

	"leadAgent/internal/snapshot"
)

// Conversation — один диалог из списка inbox.
type Conversation struct {
	Username    string
	LastMessage string
}

// reHandle распознает строку, состоящую только из Instagram-handle.
var reHandle = regexp.MustCompile(`^@?([a-zA-Z0-9_.]{1,30})$`)

// ParseSnapshot извлекает диалоги из snapshot страницы inbox.
// Структура списка: строка с username, следом строка с последним сообщением.
// Следующая строка потребляется как сообщение только если сама не похожа
// на username и короче 500 символов — иначе диалог остается без текста.
func ParseSnapshot(snap snapshot.Snapshot) []Conversation {
	lines := make([]string, 0, len(snap.Lines))
	for _, l := range snap.Lines {
		if t := strings.TrimSpace(l); t != "" {
			lines = append(lines, t)
		}
	}

	var out []Conversation
	for i := 0; i < len(lines); i++ {
		clean := strings.TrimSpace(snapshot.StripRefs(lines[i]))
		m := reHandle.FindStringSubmatch(clean)
		if m == nil || len(clean) < 2 || len(clean) > 30 {
			continue
		}
		username := m[1]

		if i+1 < len(lines) {
			next := strings.TrimSpace(snapshot.StripRefs(lines[i+1]))
			if next != "" && len(next) < 500 && !reHandle.MatchString(next) {
				out = append(out, Conversation{Username: username, LastMessage: next})
				i++
				continue
			}
		}
		out = append(out, Conversation{Username: username})
	}
	return out
}
