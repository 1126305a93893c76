package model

import (
	"fmt"
	"strings"
	"time"
)

// DefaultMaxScenarios - длина сессии по умолчанию.
const DefaultMaxScenarios = 10

// Page - экран, на котором находится пользователь.
type Page string

const (
	PagePractice Page = "practice"
	PageScenario Page = "scenario"
	PageResults  Page = "results"
)

// Session - явный контекст одной сессии тренировки.
// Владеет сценариями и ответами; генераторы получают из неё только копии истории.
// Формат JSON совпадает с плоским снимком, который сохраняет SnapshotStore.
type Session struct {
	ID           string      `json:"id"`
	Category     string      `json:"category"`
	Role         string      `json:"role"`
	Page         Page        `json:"page"`
	CurrentIndex int         `json:"current_scenario"`
	MaxScenarios int         `json:"max_scenarios"`
	Scenarios    []*Scenario `json:"scenarios"`
	Responses    []Response  `json:"responses"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`

	// CompletionReported - событие о завершении уже опубликовано.
	CompletionReported bool `json:"completion_reported,omitempty"`
}

// NewSession создаёт сессию с первым сценарием категории.
func NewSession(id, category, role string, first Scenario, maxScenarios int, now time.Time) *Session {
	if maxScenarios <= 0 {
		maxScenarios = DefaultMaxScenarios
	}
	return &Session{
		ID:           id,
		Category:     category,
		Role:         role,
		Page:         PageScenario,
		MaxScenarios: maxScenarios,
		Scenarios:    []*Scenario{&first},
		Responses:    []Response{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Session) limit() int {
	if s.MaxScenarios <= 0 {
		return DefaultMaxScenarios
	}
	return s.MaxScenarios
}

// IsComplete - все сценарии сессии отвечены.
func (s *Session) IsComplete() bool {
	return s.CurrentIndex >= s.limit()
}

// Current возвращает текущий сценарий, если он уже сгенерирован.
func (s *Session) Current() (*Scenario, bool) {
	if s.IsComplete() || s.CurrentIndex >= len(s.Scenarios) {
		return nil, false
	}
	return s.Scenarios[s.CurrentIndex], true
}

// NeedsScenario - текущий сценарий ещё не сгенерирован.
func (s *Session) NeedsScenario() bool {
	return !s.IsComplete() && s.CurrentIndex >= len(s.Scenarios)
}

// HasNext - следующий за текущим сценарий уже есть в сессии.
func (s *Session) HasNext() bool {
	return s.CurrentIndex+1 < len(s.Scenarios)
}

// RemainingAfterCurrent - сколько сценариев ещё понадобится после текущего.
func (s *Session) RemainingAfterCurrent() int {
	return s.limit() - s.CurrentIndex - 1
}

// AppendScenario добавляет сценарий, не превышая лимит сессии.
func (s *Session) AppendScenario(sc *Scenario, now time.Time) error {
	if len(s.Scenarios) >= s.limit() {
		return fmt.Errorf("%w: limit of %d scenarios reached", ErrSessionComplete, s.limit())
	}
	s.Scenarios = append(s.Scenarios, sc)
	s.UpdatedAt = now
	return nil
}

// Answer записывает ответ на текущий сценарий и переходит к следующему.
func (s *Session) Answer(selected, explanation string, now time.Time) (Response, error) {
	if s.IsComplete() {
		return Response{}, ErrSessionComplete
	}
	current, ok := s.Current()
	if !ok {
		return Response{}, fmt.Errorf("%w: current scenario is not generated yet", ErrInvalidOption)
	}
	if !current.HasOption(selected) {
		return Response{}, fmt.Errorf("%w: %q", ErrInvalidOption, selected)
	}
	resp := Response{
		Scenario:       current,
		SelectedOption: selected,
		Explanation:    strings.TrimSpace(explanation),
	}
	s.Responses = append(s.Responses, resp)
	s.CurrentIndex++
	if s.IsComplete() {
		s.Page = PageResults
	}
	s.UpdatedAt = now
	return resp, nil
}

// History возвращает копию уже показанных сценариев для генератора.
func (s *Session) History() []Scenario {
	out := make([]Scenario, 0, len(s.Scenarios))
	for _, sc := range s.Scenarios {
		if sc != nil {
			out = append(out, *sc)
		}
	}
	return out
}

// Progress возвращает число отвеченных сценариев и длину сессии.
func (s *Session) Progress() (done, total int) {
	return len(s.Responses), s.limit()
}

// Reset возвращает пользователя к выбору категории ("выбрать другой сценарий").
func (s *Session) Reset(now time.Time) {
	s.CurrentIndex = 0
	s.Scenarios = []*Scenario{}
	s.Responses = []Response{}
	s.CompletionReported = false
	s.Page = PagePractice
	s.UpdatedAt = now
}

// Restart начинает сессию заново в категории category, сохраняя id и роль.
func (s *Session) Restart(category string, first Scenario, now time.Time) {
	s.Reset(now)
	s.Category = category
	s.Scenarios = []*Scenario{&first}
	s.Page = PageScenario
}

// Relink восстанавливает общие ссылки ответов на сценарии после десериализации:
// i-й ответ относится к i-му сценарию.
func (s *Session) Relink() {
	for i := range s.Responses {
		if i < len(s.Scenarios) && s.Scenarios[i] != nil {
			s.Responses[i].Scenario = s.Scenarios[i]
		}
	}
}

// AnswerResult - строка страницы результатов.
type AnswerResult struct {
	Number        int      `json:"number"`
	Description   string   `json:"description"`
	Options       []string `json:"options"`
	Selected      string   `json:"selected_option"`
	CorrectAnswer string   `json:"correct_answer"`
	IsCorrect     bool     `json:"is_correct"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Results собирает построчный разбор ответов.
func (s *Session) Results() []AnswerResult {
	out := make([]AnswerResult, 0, len(s.Responses))
	for i, r := range s.Responses {
		row := AnswerResult{
			Number:      i + 1,
			Selected:    r.SelectedOption,
			IsCorrect:   r.IsCorrect(),
			Explanation: r.Explanation,
		}
		if r.Scenario != nil {
			row.Description = r.Scenario.Description
			row.Options = r.Scenario.Options
			row.CorrectAnswer = r.Scenario.BestOptionText()
		}
		out = append(out, row)
	}
	return out
}
