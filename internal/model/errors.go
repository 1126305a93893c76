package model

import "errors"

// Ошибки, общие для всего приложения.
var (
	// Completion Client
	ErrTimeout        = errors.New("completion request timed out")
	ErrRateLimited    = errors.New("completion service rate limit exceeded")
	ErrAuthFailure    = errors.New("completion service rejected credentials")
	ErrEmptyResponse  = errors.New("completion service returned an empty response")
	ErrTransport      = errors.New("completion service transport error")
	ErrInvalidRequest = errors.New("invalid request")

	// Разбор и проверка ответов модели
	ErrMalformedPayload  = errors.New("malformed payload")
	ErrContractViolation = errors.New("payload violates contract")

	// Генераторы
	ErrGenerationExhausted      = errors.New("scenario generation attempts exhausted")
	ErrFeedbackGenerationFailed = errors.New("feedback generation failed")

	// Ввод пользователя и сессии
	ErrInvalidRole       = errors.New("invalid role")
	ErrInvalidCategory   = errors.New("unknown category")
	ErrInvalidOption     = errors.New("selected option is not one of the scenario options")
	ErrSessionNotFound   = errors.New("session not found")
	ErrSessionComplete   = errors.New("session has no more scenarios")
	ErrSessionIncomplete = errors.New("session is not complete yet")
)

// ErrorKind - категория ошибки, по которой выбирается сообщение пользователю.
type ErrorKind string

const (
	KindTimeout             ErrorKind = "timeout"
	KindRateLimited         ErrorKind = "rate_limited"
	KindAuthFailure         ErrorKind = "auth_failure"
	KindEmptyResponse       ErrorKind = "empty_response"
	KindTransport           ErrorKind = "transport_error"
	KindMalformedPayload    ErrorKind = "malformed_payload"
	KindContractViolation   ErrorKind = "contract_violation"
	KindGenerationExhausted ErrorKind = "generation_exhausted"
	KindInvalidRole         ErrorKind = "invalid_role"
	KindFeedbackFailed      ErrorKind = "feedback_generation_failed"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindNotFound            ErrorKind = "not_found"
	KindConflict            ErrorKind = "conflict"
	KindUnknown             ErrorKind = "unknown"
)

// Порядок важен: транспортные причины проверяются раньше обёрток генераторов,
// чтобы, например, таймаут внутри FeedbackGenerationFailed оставался таймаутом.
var kindOrder = []struct {
	err  error
	kind ErrorKind
}{
	{ErrRateLimited, KindRateLimited},
	{ErrTimeout, KindTimeout},
	{ErrAuthFailure, KindAuthFailure},
	{ErrEmptyResponse, KindEmptyResponse},
	{ErrTransport, KindTransport},
	{ErrInvalidRole, KindInvalidRole},
	{ErrGenerationExhausted, KindGenerationExhausted},
	{ErrFeedbackGenerationFailed, KindFeedbackFailed},
	{ErrMalformedPayload, KindMalformedPayload},
	{ErrContractViolation, KindContractViolation},
	{ErrInvalidCategory, KindInvalidInput},
	{ErrInvalidOption, KindInvalidInput},
	{ErrInvalidRequest, KindInvalidInput},
	{ErrSessionNotFound, KindNotFound},
	{ErrSessionComplete, KindConflict},
	{ErrSessionIncomplete, KindConflict},
}

// KindOf возвращает категорию ошибки. nil даёт пустую строку.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	for _, k := range kindOrder {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindUnknown
}
