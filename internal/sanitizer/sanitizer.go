// Package sanitizer вычищает персональные данные из текста, уходящего во
// внешний LLM: входящие ответы лидов и фрагменты snapshot могут содержать
// email, телефоны и номера карт чужих людей.
package sanitizer

import "regexp"

type Rule interface {
	Sanitize(text string) string
}

type TextSanitizer struct {
	rules []Rule
}

func New() *TextSanitizer {
	return &TextSanitizer{
		rules: []Rule{
			&EmailRule{},
			&PhoneRule{},
			&CardRule{},
		},
	}
}

func (s *TextSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}
	for _, rule := range s.rules {
		text = rule.Sanitize(text)
	}
	return text
}

type EmailRule struct{}

var reEmail = regexp.MustCompile(`\b[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\b`)

func (r *EmailRule) Sanitize(text string) string {
	return reEmail.ReplaceAllString(text, `[FILTERED_EMAIL]`)
}

type PhoneRule struct{}

var rePhones = []*regexp.Regexp{
	regexp.MustCompile(`\+886\s?\d{1,2}[-.\s]?\d{3,4}[-.\s]?\d{3,4}`),
	regexp.MustCompile(`09\d{2}[-.\s]?\d{3}[-.\s]?\d{3}`),
	regexp.MustCompile(`\+?\d{1,3}[-.\s]\(?\d{2,4}\)?[-.\s]\d{3,4}[-.\s]\d{2,4}`),
	regexp.MustCompile(`(?i)(phone|tel\.?|電話|手機)\s*[:=]\s*["']?([+\d\s\-()]{7,})["']?`),
}

func (r *PhoneRule) Sanitize(text string) string {
	for _, p := range rePhones {
		text = p.ReplaceAllString(text, `[FILTERED_PHONE]`)
	}
	return text
}

type CardRule struct{}

var reCard = regexp.MustCompile(`\b\d{4}[-\s]?\d{4}[-\s]?\d{4}[-\s]?\d{4}\b`)

func (r *CardRule) Sanitize(text string) string {
	return reCard.ReplaceAllString(text, `[FILTERED_CARD]`)
}
