package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// ScoreProfile оценивает профиль Instagram как потенциального лида.
// При ошибке парсинга возвращает консервативную оценку 0, а не ошибку:
// сомнительный профиль лучше пропустить, чем отправить DM не тому человеку.
func (c *Client) ScoreProfile(ctx context.Context, profile ProfileInput, criteria string, campaignID *uint) (*ProfileScore, error) {
	systemPrompt := `Ты аналитик по лидогенерации. Оцени профиль Instagram как потенциального клиента.

Профили в основном на традиционном китайском (Тайвань) - анализируй их на языке оригинала.

Критерии:
- Соответствие целевой аудитории кампании
- Активность профиля (количество постов)
- Размер аудитории (подписчики)
- Бизнес-аккаунт или творческий аккаунт
- Содержание bio

Отвечай ТОЛЬКО в формате JSON:
{
  "score": 7.5,
  "reasons": ["причина 1", "причина 2"]
}

score - число от 0 до 10.`

	profileJSON, _ := json.MarshalIndent(profile, "", "  ")
	userPrompt := fmt.Sprintf(`Целевая аудитория кампании: %s

Профиль:
%s`, criteria, profileJSON)

	resp, err := c.createChatCompletionWithRateLimit(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		c.logRequest(ctx, campaignID, nil, "score_error", systemPrompt, userPrompt, err.Error(), 0)
		return nil, fmt.Errorf("ошибка запроса оценки профиля: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("пустой ответ от OpenAI")
	}

	responseText := resp.Choices[0].Message.Content
	c.logRequest(ctx, campaignID, nil, "score", systemPrompt, userPrompt, responseText, resp.Usage.TotalTokens)

	var score ProfileScore
	if err := ExtractJSON(responseText, &score); err != nil {
		// Консервативный fallback: непонятный ответ = неподходящий профиль
		return &ProfileScore{Score: 0, Reasons: []string{"не удалось разобрать ответ модели"}}, nil
	}
	if score.Score < 0 {
		score.Score = 0
	}
	if score.Score > 10 {
		score.Score = 10
	}
	return &score, nil
}

// ClassifySentiment классифицирует входящий ответ лида.
// При ошибке парсинга возвращает NEEDS_REVIEW - такие ответы
// разбирает оператор вручную.
func (c *Client) ClassifySentiment(ctx context.Context, message string, leadID *uint) (*SentimentResult, error) {
	systemPrompt := `Ты классифицируешь ответы на холодные сообщения в Instagram.

Сообщения могут быть на китайском или английском.

Категории:
- POSITIVE: явный интерес, вопрос о продукте, просьба рассказать подробнее
- NEUTRAL: вежливый ответ без интереса
- NEGATIVE: отказ, просьба не писать, раздражение
- NEEDS_REVIEW: неоднозначно, сарказм, не по теме

Отвечай ТОЛЬКО в формате JSON:
{
  "sentiment": "POSITIVE",
  "is_positive": true
}

is_positive = true только для POSITIVE.`

	userPrompt := fmt.Sprintf("Ответ лида:\n%s", c.sanitizer.Sanitize(message))

	resp, err := c.createChatCompletionWithRateLimit(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0,
	})
	if err != nil {
		c.logRequest(ctx, nil, leadID, "sentiment_error", systemPrompt, userPrompt, err.Error(), 0)
		return nil, fmt.Errorf("ошибка запроса классификации: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("пустой ответ от OpenAI")
	}

	responseText := resp.Choices[0].Message.Content
	c.logRequest(ctx, nil, leadID, "sentiment", systemPrompt, userPrompt, responseText, resp.Usage.TotalTokens)

	var result SentimentResult
	if err := ExtractJSON(responseText, &result); err != nil {
		return &SentimentResult{Sentiment: SentimentNeedsReview, IsPositive: false}, nil
	}

	switch result.Sentiment {
	case SentimentPositive, SentimentNeutral, SentimentNegative, SentimentNeedsReview:
	default:
		result.Sentiment = SentimentNeedsReview
		result.IsPositive = false
	}
	if result.Sentiment != SentimentPositive {
		result.IsPositive = false
	}
	return &result, nil
}

// GenerateDmDrafts генерирует три варианта первого сообщения под профиль лида.
func (c *Client) GenerateDmDrafts(ctx context.Context, profile ProfileInput, productPitch string, leadID *uint) (*DmDrafts, error) {
	systemPrompt := `Ты пишешь первые сообщения для лидогенерации в Instagram.

Пиши на традиционном китайском (Тайвань), если bio профиля на китайском, иначе на английском.

Требования:
- Короткое сообщение (2-3 предложения)
- Персонализация по bio профиля
- Без спам-клише и капса
- Без ссылок

Отвечай ТОЛЬКО в формате JSON с тремя вариантами:
{
  "professional": "деловой тон...",
  "friendly": "дружелюбный тон...",
  "value_focused": "акцент на пользе для лида..."
}`

	profileJSON, _ := json.MarshalIndent(profile, "", "  ")
	userPrompt := fmt.Sprintf(`Продукт: %s

Профиль лида:
%s`, productPitch, profileJSON)

	resp, err := c.createChatCompletionWithRateLimit(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.8, // Разнообразие формулировок
	})
	if err != nil {
		c.logRequest(ctx, nil, leadID, "drafts_error", systemPrompt, userPrompt, err.Error(), 0)
		return nil, fmt.Errorf("ошибка запроса генерации сообщений: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("пустой ответ от OpenAI")
	}

	responseText := resp.Choices[0].Message.Content
	c.logRequest(ctx, nil, leadID, "drafts", systemPrompt, userPrompt, responseText, resp.Usage.TotalTokens)

	var drafts DmDrafts
	if err := ExtractJSON(responseText, &drafts); err != nil {
		return nil, err
	}
	if drafts.Professional == "" && drafts.Friendly == "" && drafts.ValueFocused == "" {
		return nil, fmt.Errorf("модель вернула пустые черновики")
	}
	return &drafts, nil
}
