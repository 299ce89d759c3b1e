package discovery

import (
	"context"
	"errors"
	"testing"
	"time"

	"leadAgent/internal/config"
	"leadAgent/internal/logger"
	"leadAgent/internal/openclaw"
	"leadAgent/internal/snapshot"

	"go.uber.org/zap"
)

// fakeDriver отдает snapshot по последнему навигированному URL.
type fakeDriver struct {
	pages   map[string]string
	navErrs map[string]error
	current string
	visits  []string
	gen     uint64
}

func (f *fakeDriver) Navigate(ctx context.Context, url, profile string) error {
	f.current = url
	f.visits = append(f.visits, url)
	if err := f.navErrs[url]; err != nil {
		return err
	}
	return nil
}

func (f *fakeDriver) Snapshot(ctx context.Context, profile string) (snapshot.Snapshot, error) {
	f.gen++
	return snapshot.New(f.pages[f.current], f.gen), nil
}

func (f *fakeDriver) Click(ctx context.Context, ref snapshot.Ref, profile string) error { return nil }
func (f *fakeDriver) Type(ctx context.Context, ref snapshot.Ref, text, profile string) error {
	return nil
}
func (f *fakeDriver) PressKey(ctx context.Context, key, profile string) error { return nil }
func (f *fakeDriver) Upload(ctx context.Context, paths []string, ref snapshot.Ref, profile string, mode openclaw.UploadMode) error {
	return nil
}
func (f *fakeDriver) UploadDir() string { return "" }

type alwaysAvailable struct{}

func (alwaysAvailable) Available() bool { return true }

const hashtagPage = `- main:
  - generic: 美味蛋糕 @user_in 合作款 [ref=e5]
  - generic: photo by @user_out [ref=e6]
  - generic: @user_in again [ref=e7]
  - generic: 訂購請洽 @12345 [ref=e8]
  - generic: follow us on @instagram [ref=e9]
  - generic: mystery @user_unparsable [ref=e10]`

func profilePage(followers string) string {
	return `- main:
  - heading "Someone" [ref=e8]
  - generic: "10" 貼文
  - generic: ` + followers + `位粉絲`
}

func newTestScanner(d *fakeDriver) *Scanner {
	cfg := config.Discovery{
		MaxHashtags:   5,
		MaxMentions:   10,
		MinVisitDelay: time.Millisecond,
		MaxVisitDelay: 2 * time.Millisecond,
	}
	s := NewScanner(d, alwaysAvailable{}, &logger.Zap{Logger: zap.NewNop()}, cfg)
	s.sleep = func(ctx context.Context, d time.Duration) {}
	return s
}

func TestScanFollowerRangeFilter(t *testing.T) {
	d := &fakeDriver{pages: map[string]string{
		"https://www.instagram.com/explore/tags/cake/": hashtagPage,
		"https://www.instagram.com/user_in/":           profilePage("4.5萬"),
		"https://www.instagram.com/user_out/":          profilePage("6萬"),
		"https://www.instagram.com/user_unparsable/":   profilePage("粉絲"),
	}}
	s := newTestScanner(d)

	got, err := s.Scan(context.Background(), "openclaw", Criteria{
		Hashtags:     []string{"cake"},
		MinFollowers: 10000,
		MaxFollowers: 50000,
		MaxProfiles:  20,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("получено %d профилей, ожидался 1: %+v", len(got), got)
	}
	if got[0].Username != "user_in" {
		t.Errorf("username = %q, ожидалось user_in", got[0].Username)
	}
	if got[0].FollowersCount != 45000 {
		t.Errorf("followers = %d, ожидалось 45000", got[0].FollowersCount)
	}

	// Цифровой handle и blocklist не посещаются, дубликат — один визит.
	for _, v := range d.visits {
		if v == "https://www.instagram.com/12345/" || v == "https://www.instagram.com/instagram/" {
			t.Errorf("отфильтрованный handle не должен посещаться: %s", v)
		}
	}
	inVisits := 0
	for _, v := range d.visits {
		if v == "https://www.instagram.com/user_in/" {
			inVisits++
		}
	}
	if inVisits != 1 {
		t.Errorf("user_in посещен %d раз, ожидался 1", inVisits)
	}
}

func TestScanPacesFailedVisits(t *testing.T) {
	// Ошибка визита не отменяет паузу: серия недоступных профилей подряд
	// не должна превращаться в очередь запросов без задержек.
	d := &fakeDriver{
		pages: map[string]string{
			"https://www.instagram.com/explore/tags/cake/": hashtagPage,
		},
		navErrs: map[string]error{
			"https://www.instagram.com/user_in/":         errors.New("page.goto: timeout"),
			"https://www.instagram.com/user_out/":        errors.New("page.goto: timeout"),
			"https://www.instagram.com/user_unparsable/": errors.New("page.goto: timeout"),
		},
	}
	s := newTestScanner(d)

	var courtesy int
	s.sleep = func(ctx context.Context, d time.Duration) {
		if d < time.Second {
			courtesy++
		}
	}

	got, err := s.Scan(context.Background(), "openclaw", Criteria{
		Hashtags:     []string{"cake"},
		MinFollowers: 0,
		MaxFollowers: 100000,
		MaxProfiles:  20,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("получено %d профилей, все визиты падали", len(got))
	}
	if courtesy != 3 {
		t.Errorf("пауз между визитами %d, ожидалось 3 — по одной на каждый неудачный визит", courtesy)
	}
}

func TestScanMaxProfilesCap(t *testing.T) {
	d := &fakeDriver{pages: map[string]string{
		"https://www.instagram.com/explore/tags/cake/": hashtagPage,
		"https://www.instagram.com/user_in/":           profilePage("2萬"),
		"https://www.instagram.com/user_out/":          profilePage("2萬"),
		"https://www.instagram.com/user_unparsable/":   profilePage("2萬"),
	}}
	s := newTestScanner(d)

	got, err := s.Scan(context.Background(), "openclaw", Criteria{
		Hashtags:     []string{"cake"},
		MinFollowers: 10000,
		MaxFollowers: 50000,
		MaxProfiles:  2,
	})
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("получено %d профилей, лимит 2", len(got))
	}
}
