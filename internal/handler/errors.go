package handler

import (
	"errors"
	"net/http"

	"decision-server/internal/middleware"
	"decision-server/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorBody - тело ошибки JSON API.
type ErrorBody struct {
	Kind      model.ErrorKind `json:"kind"`
	Message   string          `json:"message"`
	Retryable bool            `json:"retryable"`
}

// ErrorResponse - ответ JSON API с ошибкой.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// errorView - то, что показывается пользователю для ошибки.
type errorView struct {
	status    int
	kind      model.ErrorKind
	title     string
	message   string
	retryable bool
}

const (
	msgRateLimited = "The AI service is receiving too many requests right now. Please wait a few seconds and try again."
	msgTimeout     = "The AI service took too long to respond. Please try again."
	msgAuth        = "The AI service rejected the server's credentials. Please check the API key configuration."
	msgGeneric     = "Something went wrong while talking to the AI service. Please try again."
)

// describeError сопоставляет ошибку со статусом HTTP и одной из пользовательских категорий:
// лимит запросов, таймаут, аутентификация или общая ошибка.
func describeError(err error) errorView {
	kind := model.KindOf(err)
	switch kind {
	case model.KindRateLimited:
		return errorView{http.StatusTooManyRequests, kind, "Rate limit reached", msgRateLimited, true}
	case model.KindTimeout:
		return errorView{http.StatusGatewayTimeout, kind, "Request timed out", msgTimeout, true}
	case model.KindAuthFailure:
		return errorView{http.StatusBadGateway, kind, "Authentication failed", msgAuth, false}
	case model.KindEmptyResponse, model.KindTransport, model.KindMalformedPayload,
		model.KindContractViolation, model.KindGenerationExhausted, model.KindFeedbackFailed:
		return errorView{http.StatusBadGateway, kind, "Generation failed", msgGeneric, true}
	case model.KindInvalidRole:
		return errorView{http.StatusBadRequest, kind, "Invalid role",
			"Please enter a role of at most 100 characters without inappropriate content.", false}
	case model.KindInvalidInput:
		return errorView{http.StatusBadRequest, kind, "Invalid request", err.Error(), false}
	case model.KindNotFound:
		return errorView{http.StatusNotFound, kind, "Session not found",
			"This session does not exist or has expired. Please start a new one.", false}
	case model.KindConflict:
		return errorView{http.StatusConflict, kind, "Not available", conflictMessage(err), false}
	default:
		return errorView{http.StatusInternalServerError, model.KindUnknown, "Unexpected error", msgGeneric, true}
	}
}

func conflictMessage(err error) string {
	if errors.Is(err, model.ErrSessionIncomplete) {
		return "Results are available once every scenario has been answered."
	}
	return "This session is already complete."
}

// abortWithError отвечает ошибкой JSON API.
func (h *Handler) abortWithError(c *gin.Context, err error) {
	view := describeError(err)
	h.logError(c, view, err)
	c.AbortWithStatusJSON(view.status, ErrorResponse{Error: ErrorBody{
		Kind:      view.kind,
		Message:   view.message,
		Retryable: view.retryable,
	}})
}

// renderError показывает страницу ошибки с кнопкой повтора.
func (h *Handler) renderError(c *gin.Context, err error, retryURL string) {
	view := describeError(err)
	h.logError(c, view, err)
	c.HTML(view.status, "error.html", gin.H{
		"Title":     view.title,
		"Message":   view.message,
		"Kind":      view.kind,
		"Retryable": view.retryable,
		"RetryURL":  retryURL,
	})
	c.Abort()
}

func (h *Handler) logError(c *gin.Context, view errorView, err error) {
	fields := []zap.Field{
		zap.Error(err),
		zap.String("kind", string(view.kind)),
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", middleware.RequestID(c)),
	}
	if view.status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", fields...)
		return
	}
	h.logger.Warn("Request rejected", fields...)
}
