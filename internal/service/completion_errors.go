package service

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"decision-server/internal/model"

	"github.com/ollama/ollama/api"
	openai "github.com/sashabaranov/go-openai"
)

// classifyCompletionError переводит ошибку транспорта или API в таксономию model.Err*.
// Исходная ошибка остаётся доступной через errors.Is/As.
func classifyCompletionError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", model.ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %w", model.ErrTimeout, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return classifyStatus(reqErr.HTTPStatusCode, err)
	}
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr.StatusCode, err)
	}
	return classifyMessage(err)
}

// classifyMessage - запасной вариант для ошибок без кода статуса
// (например, Ollama возвращает текст ошибки из тела ответа как обычную ошибку).
func classifyMessage(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"), strings.Contains(msg, "quota"):
		return fmt.Errorf("%w: %w", model.ErrRateLimited, err)
	case strings.Contains(msg, "unauthorized"), strings.Contains(msg, "authentication"), strings.Contains(msg, "api key"):
		return fmt.Errorf("%w: %w", model.ErrAuthFailure, err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return fmt.Errorf("%w: %w", model.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", model.ErrTransport, err)
	}
}

func classifyStatus(status int, err error) error {
	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", model.ErrRateLimited, err)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %w", model.ErrAuthFailure, err)
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: %w", model.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", model.ErrTransport, err)
	}
}

// statusLabel - значение метки status для метрик запросов.
func statusLabel(err error) string {
	if err == nil {
		return "success"
	}
	return string(model.KindOf(err))
}
