package llm

import (
	"context"

	"leadAgent/internal/sanitizer"

	"github.com/sashabaranov/go-openai"
)

type Client struct {
	client      *openai.Client
	model       string
	logger      Logger
	sanitizer   *sanitizer.TextSanitizer
	rateLimiter *RateLimiter
}

func NewClient(apiKey, model string, logger Logger) *Client {
	return NewClientWithRateLimit(apiKey, model, logger, 60, 90000)
}

func NewClientWithRateLimit(apiKey, model string, logger Logger, requestsPerMinute, tokensPerHour int) *Client {
	return &Client{
		client:      openai.NewClient(apiKey),
		model:       model,
		logger:      logger,
		sanitizer:   sanitizer.New(),
		rateLimiter: NewRateLimiter(requestsPerMinute, tokensPerHour),
	}
}

// createChatCompletionWithRateLimit выполняет запрос с проверкой rate limit
func (c *Client) createChatCompletionWithRateLimit(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	// Проверка лимита запросов
	if err := c.rateLimiter.AllowRequest(); err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	// Оценка количества токенов (грубая оценка: ~4 символа на токен)
	estimatedTokens := 0
	for _, msg := range req.Messages {
		estimatedTokens += len(msg.Content) / 4
	}
	estimatedTokens += req.MaxTokens // добавляем токены ответа

	// Проверка лимита токенов
	if err := c.rateLimiter.AllowTokens(estimatedTokens); err != nil {
		return openai.ChatCompletionResponse{}, err
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return resp, err
	}

	// Корректируем использованные токены (теперь знаем точное значение)
	if resp.Usage.TotalTokens > estimatedTokens {
		c.rateLimiter.ConsumeTokens(resp.Usage.TotalTokens - estimatedTokens)
	}

	return resp, nil
}

func formatPrompt(systemMsg, userPrompt string) string {
	return "System: " + systemMsg + "\n\nUser: " + userPrompt
}

// logRequest логирует запрос/ответ с фильтрацией персональных данных.
func (c *Client) logRequest(ctx context.Context, campaignID, leadID *uint, role, systemMsg, userPrompt, response string, tokens int) {
	if c.logger == nil {
		return
	}
	prompt := c.sanitizer.Sanitize(formatPrompt(systemMsg, userPrompt))
	_ = c.logger.LogLLMRequest(ctx, campaignID, leadID, role, prompt, c.sanitizer.Sanitize(response), c.model, tokens)
}
