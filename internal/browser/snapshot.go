package browser

import (
	"context"
	"fmt"

	"leadAgent/internal/snapshot"
)

// renderScript обходит интерактивные и текстовые элементы страницы и
// строит текстовое дерево с [ref=eN]-метками в формате, который понимает
// resolver. Одновременно помечает элементы атрибутом data-agent-ref:
// по нему ref превращается обратно в селектор при клике.
const renderScript = `() => {
  const roleOf = (el) => {
    const explicit = el.getAttribute('role');
    if (explicit) return explicit;
    switch (el.tagName) {
      case 'A': return 'link';
      case 'BUTTON': return 'button';
      case 'TEXTAREA': return 'textbox';
      case 'IMG': return 'img';
      case 'H1': case 'H2': case 'H3': return 'heading';
      case 'INPUT': return el.type === 'file' ? 'input' : 'textbox';
      default:
        return el.getAttribute('contenteditable') === 'true' ? 'textbox' : 'generic';
    }
  };
  const nameOf = (el) => {
    const raw = el.getAttribute('aria-label') || el.getAttribute('placeholder') ||
      el.alt || (el.innerText || '');
    return raw.replace(/\s+/g, ' ').trim().slice(0, 160);
  };
  const lines = [];
  let n = 0;
  const els = document.querySelectorAll(
    'a, button, textarea, img, h1, h2, h3, input, [role], [contenteditable="true"]'
  );
  for (const el of els) {
    const rect = el.getBoundingClientRect();
    const isFileInput = el.tagName === 'INPUT' && el.type === 'file';
    if (rect.width === 0 && rect.height === 0 && !isFileInput) continue;
    n++;
    const ref = 'e' + n;
    el.setAttribute('data-agent-ref', ref);
    let line = '- ' + roleOf(el);
    const name = nameOf(el);
    if (name) line += ' "' + name.replace(/"/g, "'") + '"';
    if (isFileInput) line += ' type=file accept=' + (el.accept || '*');
    if (el.tagName === 'A' && el.href) line += ' /url: ' + el.href;
    if (document.activeElement === el) line += ' [active]';
    line += ' [ref=' + ref + ']';
    lines.push(line);
  }
  return lines.join('\n');
}`

// Snapshot строит ref-аннотированное представление текущей страницы.
// Каждый вызов заново нумерует элементы и открывает новое поколение ref.
func (d *Driver) Snapshot(ctx context.Context, profile string) (snapshot.Snapshot, error) {
	s, err := d.ensureSession(profile)
	if err != nil {
		return snapshot.Snapshot{}, err
	}

	result, err := s.page.Evaluate(renderScript)
	if err != nil {
		return snapshot.Snapshot{}, fmt.Errorf("построение snapshot: %w", err)
	}
	raw, ok := result.(string)
	if !ok {
		return snapshot.Snapshot{}, fmt.Errorf("snapshot-скрипт вернул %T вместо строки", result)
	}

	return snapshot.New(raw, d.bumpGeneration(profile)), nil
}
