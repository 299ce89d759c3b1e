package discovery

import (
	"testing"

	"leadAgent/internal/snapshot"
)

func TestParseCount(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"4.5萬", 45000},
		{"1萬", 10000},
		{"2.3K", 2300},
		{"15k", 15000},
		{"1.2M", 1200000},
		{"1,234", 1234},
		{"987", 987},
		{"粉絲", 0},
		{"", 0},
	}
	for _, tt := range tests {
		if got := ParseCount(tt.raw); got != tt.want {
			t.Errorf("ParseCount(%q) = %d, ожидалось %d", tt.raw, got, tt.want)
		}
	}
}

const profileSnapZh = `- main:
  - heading "王小明" [ref=e8]
  - generic: "128" 貼文
  - generic: 4.5萬位粉絲
  - button "台北甜點工作室主理人，客製蛋糕與手作課程，提供宅配服務與企業訂製方案，歡迎私訊洽詢" [ref=e20]
  - generic: 專業儀表板`

const profileSnapEn = `- main:
  - heading "John Baker" [ref=e8]
  - generic: 42 posts
  - generic: 60,000 followers
  - link "Digital creator" [ref=e15]`

func TestExtractProfileChineseLocale(t *testing.T) {
	p := ExtractProfile(snapshot.New(profileSnapZh, 1), "wang.ming")

	if p.FollowersCount != 45000 {
		t.Errorf("FollowersCount = %d, ожидалось 45000", p.FollowersCount)
	}
	if p.PostsCount != 128 {
		t.Errorf("PostsCount = %d, ожидалось 128", p.PostsCount)
	}
	if p.FullName != "王小明" {
		t.Errorf("FullName = %q", p.FullName)
	}
	if p.Biography == "" {
		t.Error("bio должно извлекаться из кнопки с длинным текстом")
	}
	if !p.IsBusinessAccount {
		t.Error("專業儀表板 — маркер бизнес-аккаунта")
	}
}

func TestExtractProfileEnglishLocale(t *testing.T) {
	p := ExtractProfile(snapshot.New(profileSnapEn, 1), "john.baker")

	if p.FollowersCount != 60000 {
		t.Errorf("FollowersCount = %d, ожидалось 60000", p.FollowersCount)
	}
	if p.PostsCount != 42 {
		t.Errorf("PostsCount = %d, ожидалось 42", p.PostsCount)
	}
	if !p.IsBusinessAccount {
		t.Error("Digital creator — маркер бизнес-аккаунта")
	}
}

func TestExtractProfileEmptySnapshot(t *testing.T) {
	p := ExtractProfile(snapshot.New("- main:", 1), "ghost")

	if p.FullName != "ghost" {
		t.Errorf("FullName = %q, без heading должен быть username", p.FullName)
	}
	if p.FollowersCount != 0 || p.PostsCount != 0 || p.IsBusinessAccount {
		t.Errorf("пустой snapshot должен давать нулевой профиль: %+v", p)
	}
}
