// Package llm phrases answers about the lab catalog with a hosted language model.
package llm

import (
	"fmt"
	"strings"
)

const systemPrompt = `Ты консультант медицинской лаборатории. Отвечай кратко и только по-русски.
Используй ТОЛЬКО список анализов ниже, каждая строка: название | цена | срок выполнения.
Если нужного анализа в списке нет, ответь одной фразой: "Анализ не найден в списке".
Не придумывай цены, сроки и анализы, которых нет в списке. Не ставь диагнозы.`

// buildUserPrompt puts the catalog grounding and the question into one message.
func buildUserPrompt(query, grounding string) string {
	grounding = strings.TrimSpace(grounding)
	if grounding == "" {
		grounding = "(список пуст)"
	}
	return fmt.Sprintf("Список анализов:\n%s\n\nВопрос клиента: %s", grounding, strings.TrimSpace(query))
}
