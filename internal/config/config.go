package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Cfg struct {
	App        App
	Database   Database
	Logger     Logger
	OpenAI     OpenAI
	OpenClaw   OpenClaw
	Browser    Browser
	Discovery  Discovery
	Dm         Dm
	Migrations Migrations
}

type App struct {
	Host string
	Port string
}

type Database struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
}

type Migrations struct {
	Path string
}

type Logger struct {
	Env   string
	Level string
}

type OpenAI struct {
	KeyAI     string
	Model     string
	MaxTokens int
}

// OpenClaw описывает запуск CLI-инструмента автоматизации браузера.
// Один browser profile = одна изолированная сессия = один IG-аккаунт.
type OpenClaw struct {
	ProjectRoot    string        // Каталог проекта, где установлен openclaw
	KnownProfiles  []string      // Profile, которые реально существуют в Gateway
	CommandTimeout time.Duration // Таймаут обычной команды (snapshot/click/type)
	NavTimeout     time.Duration // Навигация заметно дольше
	KeyTimeout     time.Duration // press — самая быстрая команда
	UploadDir      string        // Только из этого каталога инструмент принимает файлы
	DebugSnapshot  string        // Необязательный путь для дампа snapshot DM-окна
}

// Browser — fallback на локальный playwright, когда OpenClaw не настроен.
type Browser struct {
	Display      string
	Headless     bool
	UserDataDir  string
	BrowsersPath string
}

// Discovery — параметры сканирования hashtag-страниц.
// Пороги и задержки подобраны эмпирически, поэтому вынесены в конфигурацию.
type Discovery struct {
	MaxHashtags    int
	MaxMentions    int           // Максимум рассмотренных @mention на один hashtag
	MinVisitDelay  time.Duration // Нижняя граница паузы между профилями
	MaxVisitDelay  time.Duration
	ScoreThreshold float64 // Минимальный AI-балл для создания лида
}

// Dm — параметры DM-конвейера.
type Dm struct {
	HeaderLines  int // Зона «шапки» профиля, где ищем кнопку сообщения
	TailLines    int // Хвост snapshot, где живет открытое DM-окно
	NavRetries   int
	NavRetryWait time.Duration
	MinSendDelay time.Duration // Пауза между отправками в batch-режиме
	MaxSendDelay time.Duration

	// Переопределение лексики resolver-а. Пустой список — стандартный
	// словарь zh-TW/en; непустой полностью заменяет соответствующий набор.
	SendKeywords    []string
	AttachKeywords  []string
	MessageKeywords []string
}

func Load() (*Cfg, error) {
	_ = godotenv.Load()

	cfg := &Cfg{
		App: App{
			Host: env("APP_HOST", "0.0.0.0"),
			Port: env("APP_PORT", "8080"),
		},
		Database: Database{
			Host:     os.Getenv("DB_HOST"),
			Port:     os.Getenv("DB_PORT"),
			Name:     os.Getenv("DB_NAME"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASS"),
		},
		Logger: Logger{
			Env:   env("ENV", "dev"),
			Level: env("LOG_LEVEL", "info"),
		},
		OpenAI: OpenAI{
			KeyAI:     os.Getenv("OPENAI_API_KEY"),
			Model:     env("OPENAI_MODEL", "gpt-4o-mini"),
			MaxTokens: envInt("OPENAI_MAX_TOKENS", 2000),
		},
		OpenClaw: OpenClaw{
			ProjectRoot:    env("OPENCLAW_PROJECT_ROOT", defaultVendorPath()),
			KnownProfiles:  envList("OPENCLAW_PROFILES", []string{"openclaw", "chrome"}),
			CommandTimeout: envDuration("OPENCLAW_CMD_TIMEOUT", 60*time.Second),
			NavTimeout:     envDuration("OPENCLAW_NAV_TIMEOUT", 90*time.Second),
			KeyTimeout:     envDuration("OPENCLAW_KEY_TIMEOUT", 10*time.Second),
			UploadDir:      env("OPENCLAW_UPLOAD_DIR", filepath.Join(os.TempDir(), "openclaw", "uploads")),
			DebugSnapshot:  os.Getenv("OPENCLAW_DM_DEBUG_SNAPSHOT"),
		},
		Browser: Browser{
			Display:      env("DISPLAY", ":0"),
			Headless:     envBool("PW_HEADLESS"),
			UserDataDir:  env("PW_USER_DATA_DIR", "./userdata"),
			BrowsersPath: env("PLAYWRIGHT_BROWSERS_PATH", ""),
		},
		Discovery: Discovery{
			MaxHashtags:    envInt("DISCOVERY_MAX_HASHTAGS", 5),
			MaxMentions:    envInt("DISCOVERY_MAX_MENTIONS", 10),
			MinVisitDelay:  envDuration("DISCOVERY_MIN_VISIT_DELAY", 1500*time.Millisecond),
			MaxVisitDelay:  envDuration("DISCOVERY_MAX_VISIT_DELAY", 2500*time.Millisecond),
			ScoreThreshold: envFloat("LEAD_SCORE_THRESHOLD", 7.0),
		},
		Dm: Dm{
			HeaderLines:  envInt("DM_HEADER_LINES", 150),
			TailLines:    envInt("DM_TAIL_LINES", 250),
			NavRetries:   envInt("DM_NAV_RETRIES", 3),
			NavRetryWait: envDuration("DM_NAV_RETRY_WAIT", 5*time.Second),
			MinSendDelay: envDuration("DM_MIN_SEND_DELAY", 2*time.Minute),
			MaxSendDelay: envDuration("DM_MAX_SEND_DELAY", 5*time.Minute),

			SendKeywords:    envList("DM_SEND_KEYWORDS", nil),
			AttachKeywords:  envList("DM_ATTACH_KEYWORDS", nil),
			MessageKeywords: envList("DM_MESSAGE_KEYWORDS", nil),
		},
		Migrations: Migrations{
			Path: env("MIGRATIONS_PATH", "file://migrations"),
		},
	}

	return cfg, nil
}

// defaultVendorPath — если OPENCLAW_PROJECT_ROOT не задан, пробуем vendored submodule.
func defaultVendorPath() string {
	wd, err := os.Getwd()
	if err != nil {
		return ""
	}
	vendored := filepath.Join(wd, "vendor", "clawdbot_hair_domain")
	if _, err := os.Stat(vendored); err == nil {
		return vendored
	}
	return ""
}

func env(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func envInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return defaultValue
}

func envFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func envDuration(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func envList(key string, defaultValue []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "true" || v == "1" || v == "yes"
}
