package openclaw

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"leadAgent/internal/config"
	"leadAgent/internal/logger"
	"leadAgent/internal/snapshot"
)

func testClient(t *testing.T) *Client {
	t.Helper()
	log, err := logger.New("dev", "error")
	if err != nil {
		t.Fatal(err)
	}
	return NewClient(config.OpenClaw{
		KnownProfiles: []string{"openclaw", "chrome"},
		UploadDir:     filepath.Join(t.TempDir(), "uploads"),
	}, log)
}

func TestResolveProfile(t *testing.T) {
	c := testClient(t)

	tests := []struct {
		in, want string
	}{
		{"openclaw", "openclaw"},
		{"chrome", "chrome"},
		{"profile-1", "openclaw"}, // неизвестный profile из БД сводится к первому известному
		{"  chrome  ", "chrome"},
		{"", "openclaw"},
	}
	for _, tt := range tests {
		if got := c.ResolveProfile(tt.in); got != tt.want {
			t.Errorf("ResolveProfile(%q) = %q, ожидалось %q", tt.in, got, tt.want)
		}
	}
}

func TestStaleRefDetection(t *testing.T) {
	c := testClient(t)

	// Поколение 1 для profile A.
	gen := c.bumpGeneration("a")
	ref := snapshot.Ref{ID: "e5", Generation: gen}
	if err := c.checkRef(ref, "a"); err != nil {
		t.Fatalf("свежий ref отвергнут: %v", err)
	}

	// Новый snapshot того же profile делает ref устаревшим.
	c.bumpGeneration("a")
	err := c.checkRef(ref, "a")
	var stale *StaleRefError
	if !errors.As(err, &stale) {
		t.Fatalf("ожидался StaleRefError, получено %v", err)
	}
	if stale.Ref.ID != "e5" || stale.Generation != 2 {
		t.Errorf("ошибка несет неверные данные: %+v", stale)
	}

	// Поколения независимы между profile.
	genB := c.bumpGeneration("b")
	if err := c.checkRef(snapshot.Ref{ID: "e1", Generation: genB}, "b"); err != nil {
		t.Errorf("поколение profile b затронуто profile a: %v", err)
	}
}

func TestCheckRefRejectsZero(t *testing.T) {
	c := testClient(t)
	if err := c.checkRef(snapshot.Ref{}, "a"); err == nil {
		t.Fatal("пустой ref прошел проверку")
	}
}

func TestInsideUploadDir(t *testing.T) {
	c := testClient(t)
	dir := c.UploadDir()

	if !c.insideUploadDir(filepath.Join(dir, "x.jpg")) {
		t.Error("файл внутри каталога отвергнут")
	}
	if !c.insideUploadDir(filepath.Join(dir, "sub", "x.jpg")) {
		t.Error("файл в подкаталоге отвергнут")
	}
	if c.insideUploadDir(filepath.Join(dir, "..", "escape.jpg")) {
		t.Error("выход из каталога принят")
	}
	if c.insideUploadDir("/etc/passwd") {
		t.Error("абсолютный посторонний путь принят")
	}
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		missing bool
		crash   bool
	}{
		{"element not found", errors.New(`Element "e42" not found`), true, false},
		{"not visible", errors.New("element is not visible"), true, false},
		{"crash", errors.New("Page crashed"), false, true},
		{"goto", errors.New("page.goto: net::ERR_ABORTED"), false, true},
		{"other", errors.New("permission denied"), false, false},
		{"nil", nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsElementMissing(tt.err); got != tt.missing {
				t.Errorf("IsElementMissing = %v", got)
			}
			if got := IsSessionCrash(tt.err); got != tt.crash {
				t.Errorf("IsSessionCrash = %v", got)
			}
		})
	}
}

func TestCommandErrorOutputCaptured(t *testing.T) {
	err := &CommandError{
		Cmd:    "click e5",
		Stdout: "partial output",
		Stderr: "boom",
		Err:    errors.New("exit status 1"),
	}
	msg := err.Error()
	for _, want := range []string{"click e5", "boom", "partial output"} {
		if !strings.Contains(msg, want) {
			t.Errorf("в сообщении нет %q: %s", want, msg)
		}
	}
}
