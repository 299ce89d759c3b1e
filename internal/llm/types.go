// Package llm предоставляет интеграцию с OpenAI GPT-4o для оценки профилей,
// классификации ответов лидов и генерации черновиков сообщений.
// Включает rate limiting, логирование запросов и фильтрацию персональных данных.
package llm

import "context"

// Logger определяет интерфейс для логирования LLM запросов.
type Logger interface {
	// LogLLMRequest сохраняет информацию о запросе к LLM в базу данных.
	LogLLMRequest(ctx context.Context, campaignID *uint, leadID *uint, role, promptText, responseText, model string, tokensUsed int) error
}

// Analyzer определяет интерфейс для взаимодействия с LLM.
// Все методы поддерживают контекст для отмены и логирование запросов.
type Analyzer interface {
	// ScoreProfile оценивает профиль Instagram на пригодность как лид (0-10).
	ScoreProfile(ctx context.Context, profile ProfileInput, criteria string, campaignID *uint) (*ProfileScore, error)

	// ClassifySentiment классифицирует входящий ответ лида.
	ClassifySentiment(ctx context.Context, message string, leadID *uint) (*SentimentResult, error)

	// GenerateDmDrafts генерирует три варианта первого сообщения для лида.
	GenerateDmDrafts(ctx context.Context, profile ProfileInput, productPitch string, leadID *uint) (*DmDrafts, error)
}

// ProfileInput описывает данные профиля, передаваемые в LLM для анализа.
type ProfileInput struct {
	Username   string `json:"username"`
	FullName   string `json:"full_name"`
	Bio        string `json:"bio"`
	Followers  int    `json:"followers"`
	Posts      int    `json:"posts"`
	IsBusiness bool   `json:"is_business"`
}

// ProfileScore представляет результат оценки профиля.
type ProfileScore struct {
	Score   float64  `json:"score"`   // Оценка 0-10
	Reasons []string `json:"reasons"` // Обоснование оценки
}

// Возможные значения SentimentResult.Sentiment.
const (
	SentimentPositive    = "POSITIVE"
	SentimentNeutral     = "NEUTRAL"
	SentimentNegative    = "NEGATIVE"
	SentimentNeedsReview = "NEEDS_REVIEW"
)

// SentimentResult представляет результат классификации ответа.
type SentimentResult struct {
	Sentiment  string `json:"sentiment"`   // POSITIVE | NEUTRAL | NEGATIVE | NEEDS_REVIEW
	IsPositive bool   `json:"is_positive"` // Истинно только для явного интереса
}

// DmDrafts содержит три варианта первого сообщения в разных тонах.
type DmDrafts struct {
	Professional string `json:"professional"`
	Friendly     string `json:"friendly"`
	ValueFocused string `json:"value_focused"`
}
