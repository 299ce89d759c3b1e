package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON достает JSON-объект из ответа модели и парсит его в out.
// Модели иногда оборачивают JSON в markdown-блок или добавляют текст
// вокруг - берем подстроку от первой '{' до последней '}'.
func ExtractJSON(response string, out interface{}) error {
	text := strings.TrimSpace(response)

	if err := json.Unmarshal([]byte(text), out); err == nil {
		return nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("в ответе LLM нет JSON-объекта")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), out); err != nil {
		return fmt.Errorf("ошибка парсинга JSON из ответа LLM: %w", err)
	}
	return nil
}
