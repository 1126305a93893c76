package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"decision-server/internal/model"

	"github.com/go-playground/validator/v10"
)

var payloadValidator = validator.New(validator.WithRequiredStructEnabled())

// scenarioPayload - ответ модели со сценарием. Указатель нужен, чтобы отличить отсутствующий best_option от 0.
type scenarioPayload struct {
	Description string   `json:"description" validate:"required"`
	Options     []string `json:"options" validate:"required,len=4,unique,dive,required"`
	BestOption  *int     `json:"best_option" validate:"required,min=0,max=3"`
}

type feedbackPayload struct {
	CorrectCount *int   `json:"correct_count" validate:"required,min=0"`
	Feedback     string `json:"feedback" validate:"required"`
	Suggestion   string `json:"suggestion" validate:"required"`
}

// decodeStrict разбирает ровно один JSON-объект без лишних полей и хвоста.
func decodeStrict(text string, dst any) error {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", model.ErrMalformedPayload, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: unexpected data after JSON object", model.ErrMalformedPayload)
	}
	return nil
}

// validatePayload проверяет теги validate и переводит ошибки в ErrContractViolation.
func validatePayload(v any) error {
	err := payloadValidator.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", model.ErrContractViolation, err)
	}
	var buf bytes.Buffer
	for i, fe := range verrs {
		if i > 0 {
			buf.WriteString("; ")
		}
		fmt.Fprintf(&buf, "%s failed %q", fe.Namespace(), fe.Tag())
		if fe.Param() != "" {
			fmt.Fprintf(&buf, " (%s)", fe.Param())
		}
	}
	return fmt.Errorf("%w: %s", model.ErrContractViolation, buf.String())
}

// ParseScenario разбирает и проверяет сценарий из текста модели.
func ParseScenario(text string) (model.Scenario, error) {
	var p scenarioPayload
	if err := decodeStrict(text, &p); err != nil {
		return model.Scenario{}, err
	}
	if err := validatePayload(&p); err != nil {
		return model.Scenario{}, err
	}
	sc := model.Scenario{
		Description: strings.TrimSpace(p.Description),
		Options:     p.Options,
		BestOption:  *p.BestOption,
	}
	if err := sc.Validate(); err != nil {
		return model.Scenario{}, err
	}
	return sc, nil
}

// parseFeedback разбирает и проверяет итоговую оценку. Возвращает число верных ответов по версии модели.
func parseFeedback(text string) (feedbackPayload, error) {
	var p feedbackPayload
	if err := decodeStrict(text, &p); err != nil {
		return p, err
	}
	if err := validatePayload(&p); err != nil {
		return p, err
	}
	return p, nil
}
