// Package discovery сканирует hashtag-страницы Instagram, извлекает профили
// кандидатов из snapshot и превращает подходящие в лидов через AI-оценку.
package discovery

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"leadAgent/internal/snapshot"
)

// Profile — данные, которые удается вытащить из snapshot страницы профиля.
type Profile struct {
	Username          string
	FullName          string
	Biography         string
	FollowersCount    int
	PostsCount        int
	IsBusinessAccount bool
}

var (
	// Счетчик подписчиков: китайская локаль «N位粉絲» (N может нести 萬/K/M)
	// или английская «N followers».
	reFollowers = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?[萬KMkm]?)位粉絲|(\d+(?:,\d+)*)\s*followers`)
	rePosts     = regexp.MustCompile(`(?i)"(\d+)"\s*貼文|(\d+)\s*posts`)
	reHeading   = regexp.MustCompile(`heading\s+"([^"]+)"`)
	// Bio на странице профиля рендерится кнопкой «подробнее»; берем текст
	// разумной длины, чтобы не зацепить служебные кнопки.
	reBioButton = regexp.MustCompile(`button\s+"([^"]{30,500})"`)
	reCount     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*([KMkm])?`)
)

// Маркеры бизнес-аккаунта в двух локалях.
var businessMarkers = []string{
	"專業儀表板",
	"Professional dashboard",
	"數位創作者",
	"Digital creator",
}

// ParseCount разбирает счетчик с суффиксами 萬 (x10000), K и M и
// разделителями-запятыми. Неразборчивое значение дает 0 — вызывающий код
// трактует его как «вне диапазона».
func ParseCount(raw string) int {
	cleaned := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if strings.Contains(cleaned, "萬") {
		num, err := strconv.ParseFloat(strings.ReplaceAll(cleaned, "萬", ""), 64)
		if err != nil {
			return 0
		}
		return int(math.Round(num * 10000))
	}
	m := reCount.FindStringSubmatch(cleaned)
	if m == nil {
		return 0
	}
	num, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0
	}
	switch strings.ToUpper(m[2]) {
	case "K":
		num *= 1000
	case "M":
		num *= 1000000
	}
	return int(math.Round(num))
}

// ExtractProfile вытаскивает данные профиля из snapshot его страницы.
// Чего нет в snapshot, то остается нулевым; fullName в худшем случае
// падает обратно на username.
func ExtractProfile(snap snapshot.Snapshot, username string) Profile {
	text := snap.Text()

	p := Profile{Username: username, FullName: username}

	if m := reFollowers.FindStringSubmatch(text); m != nil {
		countStr := m[1]
		if countStr == "" {
			countStr = m[2]
		}
		p.FollowersCount = ParseCount(countStr)
	}
	if m := rePosts.FindStringSubmatch(text); m != nil {
		countStr := m[1]
		if countStr == "" {
			countStr = m[2]
		}
		p.PostsCount, _ = strconv.Atoi(countStr)
	}
	if m := reHeading.FindStringSubmatch(text); m != nil {
		p.FullName = m[1]
	}
	if m := reBioButton.FindStringSubmatch(text); m != nil {
		p.Biography = m[1]
	}
	for _, marker := range businessMarkers {
		if strings.Contains(text, marker) {
			p.IsBusinessAccount = true
			break
		}
	}
	return p
}
