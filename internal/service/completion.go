package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"decision-server/internal/config"
	"decision-server/internal/model"

	"go.uber.org/zap"
)

// Значения по умолчанию для одного запроса к модели.
const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1000
	DefaultTimeout     = 30 * time.Second
)

// GenerationParams - параметры одного запроса. nil означает значение по умолчанию клиента.
// Указатели нужны, чтобы отличить 0/0.0 от отсутствия значения.
type GenerationParams struct {
	Temperature *float64
	MaxTokens   *int
	Timeout     *time.Duration
}

// CompletionClient выполняет ровно один запрос к модели и возвращает текст лучшего варианта
// без обрамления ```json / ```. Повторов на этом уровне нет.
//
// Ошибки оборачивают один из model.ErrTimeout, model.ErrRateLimited, model.ErrAuthFailure,
// model.ErrEmptyResponse, model.ErrTransport или model.ErrInvalidRequest.
type CompletionClient interface {
	Complete(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// resolvedParams - параметры запроса после подстановки значений по умолчанию.
type resolvedParams struct {
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

type completionDefaults struct {
	temperature float64
	maxTokens   int
	timeout     time.Duration
}

func defaultsFromConfig(cfg *config.Config) completionDefaults {
	d := completionDefaults{temperature: DefaultTemperature, maxTokens: DefaultMaxTokens, timeout: DefaultTimeout}
	if cfg == nil {
		return d
	}
	d.temperature = cfg.AITemperature
	if cfg.AIMaxTokens > 0 {
		d.maxTokens = cfg.AIMaxTokens
	}
	if cfg.AITimeout > 0 {
		d.timeout = cfg.AITimeout
	}
	return d
}

func (d completionDefaults) resolve(p GenerationParams) (resolvedParams, error) {
	r := resolvedParams{temperature: d.temperature, maxTokens: d.maxTokens, timeout: d.timeout}
	if p.Temperature != nil {
		r.temperature = *p.Temperature
	}
	if p.MaxTokens != nil {
		r.maxTokens = *p.MaxTokens
	}
	if p.Timeout != nil {
		r.timeout = *p.Timeout
	}
	if r.temperature < 0 || r.temperature > 1 {
		return r, fmt.Errorf("%w: temperature %v out of range [0,1]", model.ErrInvalidRequest, r.temperature)
	}
	if r.maxTokens <= 0 {
		return r, fmt.Errorf("%w: max_tokens must be positive", model.ErrInvalidRequest)
	}
	if r.timeout <= 0 {
		return r, fmt.Errorf("%w: timeout must be positive", model.ErrInvalidRequest)
	}
	return r, nil
}

// StripCodeFence убирает markdown-обрамление ```json ... ``` или ``` ... ``` в начале и конце текста.
func StripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	switch {
	case len(s) >= 7 && strings.EqualFold(s[:7], "```json"):
		s = s[7:]
	case strings.HasPrefix(s, "```"):
		s = s[3:]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// NewCompletionClient создаёт клиента по AI_CLIENT_TYPE.
func NewCompletionClient(cfg *config.Config, tokens *TokenEstimator, logger *zap.Logger) (CompletionClient, error) {
	switch cfg.AIClientType {
	case config.ClientTypeOpenAI, "":
		return NewOpenAIClient(cfg, tokens, logger), nil
	case config.ClientTypeOllama:
		return NewOllamaClient(cfg, tokens, logger)
	default:
		return nil, fmt.Errorf("unsupported AI client type: %q", cfg.AIClientType)
	}
}

func float64Ptr(v float64) *float64 { return &v }

func intPtr(v int) *int { return &v }
