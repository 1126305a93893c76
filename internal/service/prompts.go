package service

import (
	"fmt"
	"strings"

	"decision-server/internal/model"
)

// PromptBuilder собирает промпты генераторов.
// Если задан бюджет токенов, в промпт сценария попадают только самые свежие описания истории,
// которые в него помещаются. Проверка уникальности при этом всё равно идёт по всей истории.
type PromptBuilder struct {
	tokens        *TokenEstimator
	historyBudget int
}

// NewPromptBuilder создаёт сборщик. historyBudget <= 0 отключает обрезку истории.
func NewPromptBuilder(tokens *TokenEstimator, historyBudget int) *PromptBuilder {
	return &PromptBuilder{tokens: tokens, historyBudget: historyBudget}
}

// ScenarioPrompt - промпт для генерации одного сценария.
func (b *PromptBuilder) ScenarioPrompt(category, role string, history []model.Scenario) string {
	var sb strings.Builder
	roleContext := ""
	if role != "" {
		roleContext = fmt.Sprintf(" for a %s", role)
	}
	fmt.Fprintf(&sb, "Generate a realistic decision-making scenario%s in the %s category.\n", roleContext, category)
	sb.WriteString("The scenario should be 3-5 sentences long and present a clear decision point.\n")
	sb.WriteString("Provide exactly 4 distinct options, exactly one of which is clearly the best choice.\n")

	if recent := b.recentDescriptions(history); len(recent) > 0 {
		sb.WriteString("\nThe following scenarios were already used. Do not repeat or closely paraphrase them:\n")
		for _, d := range recent {
			fmt.Fprintf(&sb, "- %s\n", d)
		}
	}

	sb.WriteString("\nRespond with a single JSON object and nothing else, using exactly these keys:\n")
	sb.WriteString(`{"description": string, "options": [string, string, string, string], "best_option": integer index 0-3 of the best option}`)
	sb.WriteString("\n")
	return sb.String()
}

// recentDescriptions возвращает описания истории в исходном порядке,
// отбрасывая самые старые, пока они не уложатся в бюджет.
func (b *PromptBuilder) recentDescriptions(history []model.Scenario) []string {
	if len(history) == 0 {
		return nil
	}
	if b.historyBudget <= 0 {
		out := make([]string, 0, len(history))
		for _, h := range history {
			out = append(out, h.Description)
		}
		return out
	}
	used := 0
	first := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := b.tokens.Count(history[i].Description)
		if used+cost > b.historyBudget {
			break
		}
		used += cost
		first = i
	}
	out := make([]string, 0, len(history)-first)
	for _, h := range history[first:] {
		out = append(out, h.Description)
	}
	return out
}

// FeedbackPrompt - промпт итоговой оценки. Рекомендуемый вариант передаётся текстом, а не индексом.
func (b *PromptBuilder) FeedbackPrompt(responses []model.Response) string {
	var sb strings.Builder
	sb.WriteString("Review these decision-making responses and provide feedback.\n\n")
	for i, r := range responses {
		fmt.Fprintf(&sb, "Scenario %d: %s\n", i+1, r.Scenario.Description)
		fmt.Fprintf(&sb, "User's choice: %s\n", r.SelectedOption)
		fmt.Fprintf(&sb, "Recommended choice: %s\n", r.Scenario.BestOptionText())
		if r.Explanation != "" {
			fmt.Fprintf(&sb, "User's explanation: %s\n", r.Explanation)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "Count how many of the %d choices match the recommended choice.\n", len(responses))
	sb.WriteString("Give a short overall assessment of the user's decision-making and one key improvement suggestion.\n")
	sb.WriteString("Respond with a single JSON object and nothing else, using exactly these keys:\n")
	sb.WriteString(`{"correct_count": integer, "feedback": string, "suggestion": string}`)
	sb.WriteString("\n")
	return sb.String()
}
