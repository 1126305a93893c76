package model

import "fmt"

// OptionsPerScenario - сколько вариантов ответа должно быть у каждого сценария.
const OptionsPerScenario = 4

// Scenario - ситуация для принятия решения с четырьмя вариантами и рекомендуемым выбором.
// После создания не изменяется.
type Scenario struct {
	Description string   `json:"description"`
	Options     []string `json:"options"`
	BestOption  int      `json:"best_option"`
}

// Validate проверяет инварианты формы: непустое описание, ровно 4 варианта, индекс в [0,3].
func (s Scenario) Validate() error {
	if s.Description == "" {
		return fmt.Errorf("%w: description is empty", ErrContractViolation)
	}
	if len(s.Options) != OptionsPerScenario {
		return fmt.Errorf("%w: expected %d options, got %d", ErrContractViolation, OptionsPerScenario, len(s.Options))
	}
	if s.BestOption < 0 || s.BestOption >= OptionsPerScenario {
		return fmt.Errorf("%w: best_option %d out of range [0,%d]", ErrContractViolation, s.BestOption, OptionsPerScenario-1)
	}
	return nil
}

// BestOptionText возвращает текст рекомендуемого варианта или пустую строку,
// если индекс вне диапазона.
func (s Scenario) BestOptionText() string {
	if s.BestOption < 0 || s.BestOption >= len(s.Options) {
		return ""
	}
	return s.Options[s.BestOption]
}

// HasOption сообщает, является ли text одним из вариантов (точное совпадение).
func (s Scenario) HasOption(text string) bool {
	for _, o := range s.Options {
		if o == text {
			return true
		}
	}
	return false
}

// Response - ответ пользователя на один сценарий.
// Scenario указывает на тот же объект, что лежит в сессии, а не на копию.
type Response struct {
	Scenario       *Scenario `json:"scenario"`
	SelectedOption string    `json:"selected_option"`
	Explanation    string    `json:"explanation"`
}

// IsCorrect сравнивает выбранный вариант с рекомендуемым.
func (r Response) IsCorrect() bool {
	if r.Scenario == nil {
		return false
	}
	best := r.Scenario.BestOptionText()
	return best != "" && r.SelectedOption == best
}

// CountCorrect пересчитывает число верных ответов локально.
// Это значение считается авторитетным, в отличие от того, что сообщает модель.
func CountCorrect(responses []Response) int {
	n := 0
	for _, r := range responses {
		if r.IsCorrect() {
			n++
		}
	}
	return n
}

// Feedback - итоговая оценка сессии.
type Feedback struct {
	CorrectCount  int    `json:"correct_count"`
	ReportedCount int    `json:"reported_count"`
	Total         int    `json:"total"`
	Feedback      string `json:"feedback"`
	Suggestion    string `json:"suggestion"`
}
