package snapshot

import (
	"strings"
	"testing"
)

func TestHeadTailLength(t *testing.T) {
	s := New("a\nb\nc\nd\ne", 1)

	tests := []struct {
		name string
		got  Snapshot
		want []string
	}{
		{"head меньше длины", s.Head(2), []string{"a", "b"}},
		{"head больше длины", s.Head(10), []string{"a", "b", "c", "d", "e"}},
		{"head ноль", s.Head(0), nil},
		{"head отрицательный", s.Head(-1), nil},
		{"tail меньше длины", s.Tail(2), []string{"d", "e"}},
		{"tail больше длины", s.Tail(10), []string{"a", "b", "c", "d", "e"}},
		{"tail ноль", s.Tail(0), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Len() != len(tt.want) {
				t.Fatalf("len = %d, ожидалось %d", tt.got.Len(), len(tt.want))
			}
			for i, w := range tt.want {
				if tt.got.Lines[i] != w {
					t.Errorf("строка %d = %q, ожидалось %q", i, tt.got.Lines[i], w)
				}
			}
			if tt.got.Generation != s.Generation {
				t.Errorf("срез потерял поколение: %d", tt.got.Generation)
			}
		})
	}
}

func TestTailIsSuffix(t *testing.T) {
	s := New("x\ny\nz", 3)
	tail := s.Tail(2)
	if !strings.HasSuffix(s.Text(), tail.Text()) {
		t.Fatalf("tail %q не является суффиксом %q", tail.Text(), s.Text())
	}
}

func TestSlicingIdempotent(t *testing.T) {
	s := New("a\nb\nc", 1)
	if got := s.Head(2).Head(2); got.Len() != 2 {
		t.Errorf("повторный head изменил длину: %d", got.Len())
	}
	if got := s.Tail(2).Tail(2); got.Len() != 2 || got.Lines[0] != "b" {
		t.Errorf("повторный tail изменил результат: %v", got.Lines)
	}
}

func TestRefAfter(t *testing.T) {
	s := New("", 7)
	line := `generic [ref=e1] button "Send" [ref=e2]`

	idx := strings.Index(line, "Send")
	ref := s.RefAfter(line, idx)
	if ref.ID != "e2" {
		t.Fatalf("RefAfter выбрал %q, ожидался e2", ref.ID)
	}
	if ref.Generation != 7 {
		t.Fatalf("ref не унаследовал поколение: %d", ref.Generation)
	}

	// До ключевого слова — первый ref строки.
	if got := s.RefAfter(line, 0); got.ID != "e1" {
		t.Errorf("RefAfter(0) = %q", got.ID)
	}
	// После всех ref — пусто.
	if got := s.RefAfter(line, len(line)); !got.IsZero() {
		t.Errorf("RefAfter за концом строки вернул %q", got.ID)
	}
}

func TestFirstLastAllRefs(t *testing.T) {
	s := New("generic [ref=e3] img [ref=e10]\nbutton [ref=e3]", 2)

	if got := s.FirstRef(s.Lines[0]); got.ID != "e3" {
		t.Errorf("FirstRef = %q", got.ID)
	}
	if got := s.LastRef(s.Lines[0]); got.ID != "e10" {
		t.Errorf("LastRef = %q", got.ID)
	}
	all := s.AllRefs()
	if len(all) != 2 || all[0] != "e10" || all[1] != "e3" {
		t.Errorf("AllRefs = %v", all)
	}
}

func TestStripRefs(t *testing.T) {
	if got := StripRefs(`  textbox "訊息" [ref=e595]  `); got != `textbox "訊息"` {
		t.Errorf("StripRefs = %q", got)
	}
}
