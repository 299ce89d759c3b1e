package discovery

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/url"
	"regexp"
	"strings"
	"time"

	"leadAgent/internal/config"
	"leadAgent/internal/logger"
	"leadAgent/internal/openclaw"

	"go.uber.org/zap"
)

const (
	pauseAfterHashtagNav = 3 * time.Second
	pauseAfterProfileNav = 2 * time.Second
)

// reMention — @mention в тексте hashtag-страницы. Короче трех символов
// почти всегда мусор из обрезанных строк.
var reMention = regexp.MustCompile(`@([a-zA-Z0-9_.]{3,30})`)

// defaultMentionBlocklist отсеивает handle, которые встречаются в подписях
// постоянно и пользователями не являются.
var defaultMentionBlocklist = []string{"instagram", "facebook", "gmail", "yahoo", "hotmail"}

type prober interface {
	Available() bool
}

// ErrToolUnavailable — инструмент автоматизации не настроен.
var ErrToolUnavailable = errors.New("инструмент автоматизации браузера не настроен, сканирование невозможно")

// Scanner обходит hashtag-страницы и собирает профили кандидатов.
type Scanner struct {
	driver    openclaw.Driver
	prober    prober
	log       *logger.Zap
	cfg       config.Discovery
	blocklist map[string]bool

	rng   *rand.Rand
	sleep func(ctx context.Context, d time.Duration)
}

func NewScanner(driver openclaw.Driver, prober prober, log *logger.Zap, cfg config.Discovery) *Scanner {
	bl := make(map[string]bool, len(defaultMentionBlocklist))
	for _, b := range defaultMentionBlocklist {
		bl[b] = true
	}
	return &Scanner{
		driver:    driver,
		prober:    prober,
		log:       log,
		cfg:       cfg,
		blocklist: bl,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep: func(ctx context.Context, d time.Duration) {
			t := time.NewTimer(d)
			defer t.Stop()
			select {
			case <-ctx.Done():
			case <-t.C:
			}
		},
	}
}

// SetBlocklist заменяет стандартный blocklist @mention-ов.
func (s *Scanner) SetBlocklist(handles []string) {
	bl := make(map[string]bool, len(handles))
	for _, h := range handles {
		bl[strings.ToLower(h)] = true
	}
	s.blocklist = bl
}

// Criteria — границы поиска для одного прогона.
type Criteria struct {
	Hashtags     []string
	MinFollowers int
	MaxFollowers int
	MaxProfiles  int
}

// Scan обходит hashtag-страницы кампании и возвращает профили в заданном
// диапазоне подписчиков. Ошибки отдельных hashtag-ов и профилей логируются
// и не прерывают обход.
func (s *Scanner) Scan(ctx context.Context, profile string, criteria Criteria) ([]Profile, error) {
	if !s.prober.Available() {
		return nil, ErrToolUnavailable
	}

	hashtags := criteria.Hashtags
	if len(hashtags) > s.cfg.MaxHashtags {
		hashtags = hashtags[:s.cfg.MaxHashtags]
	}

	var results []Profile
	visited := make(map[string]bool)

	for _, tag := range hashtags {
		if len(results) >= criteria.MaxProfiles {
			break
		}
		if err := ctx.Err(); err != nil {
			return results, err
		}

		mentions, err := s.collectMentions(ctx, profile, tag, visited)
		if err != nil {
			s.log.Warn("hashtag пропущен", zap.String("tag", tag), zap.Error(err))
			continue
		}
		s.log.Info("hashtag просканирован",
			zap.String("tag", tag),
			zap.Int("mentions", len(mentions)))

		for _, username := range mentions {
			if len(results) >= criteria.MaxProfiles {
				break
			}
			if visited[username] {
				continue
			}
			visited[username] = true

			p, err := s.visitProfile(ctx, profile, username)

			// Случайная пауза после каждого визита, удачного или нет:
			// серия ошибок подряд без пауз — такой же бот-паттерн,
			// как и равномерный обход.
			s.sleep(ctx, s.visitDelay())

			if err != nil {
				// Закрытый или удаленный профиль — штатная ситуация.
				s.log.Debug("профиль пропущен", zap.String("username", username), zap.Error(err))
				continue
			}
			if p.FollowersCount < criteria.MinFollowers || p.FollowersCount > criteria.MaxFollowers {
				s.log.Debug("вне диапазона подписчиков",
					zap.String("username", username),
					zap.Int("followers", p.FollowersCount))
				continue
			}
			results = append(results, p)
		}
	}
	return results, nil
}

// collectMentions снимает snapshot hashtag-страницы и извлекает уникальные
// @mention, отфильтровывая чисто числовые и заблокированные handle.
func (s *Scanner) collectMentions(ctx context.Context, profile, tag string, visited map[string]bool) ([]string, error) {
	tagURL := "https://www.instagram.com/explore/tags/" + url.PathEscape(tag) + "/"
	if err := s.driver.Navigate(ctx, tagURL, profile); err != nil {
		return nil, fmt.Errorf("навигация на #%s: %w", tag, err)
	}
	s.sleep(ctx, pauseAfterHashtagNav)

	snap, err := s.driver.Snapshot(ctx, profile)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var mentions []string
	for _, m := range reMention.FindAllStringSubmatch(snap.Text(), -1) {
		u := m[1]
		if isAllDigits(u) || s.blocklist[strings.ToLower(u)] || visited[u] || seen[u] {
			continue
		}
		seen[u] = true
		mentions = append(mentions, u)
		if len(mentions) >= s.cfg.MaxMentions {
			break
		}
	}
	return mentions, nil
}

func (s *Scanner) visitProfile(ctx context.Context, profile, username string) (Profile, error) {
	if err := s.driver.Navigate(ctx, "https://www.instagram.com/"+username+"/", profile); err != nil {
		return Profile{}, err
	}
	s.sleep(ctx, pauseAfterProfileNav)

	snap, err := s.driver.Snapshot(ctx, profile)
	if err != nil {
		return Profile{}, err
	}
	return ExtractProfile(snap, username), nil
}

func (s *Scanner) visitDelay() time.Duration {
	min, max := s.cfg.MinVisitDelay, s.cfg.MaxVisitDelay
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}
