package handler

import (
	"context"
	"net/http"

	"decision-server/internal/model"
	"decision-server/internal/session"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SessionService - операции над сессиями, которые нужны обработчикам.
type SessionService interface {
	Start(ctx context.Context, category, role string) (*model.Session, error)
	Get(ctx context.Context, id string) (*model.Session, error)
	CurrentScenario(ctx context.Context, id string) (*model.Session, *model.Scenario, error)
	Answer(ctx context.Context, id, selected, explanation string) (*model.Session, error)
	Prefetch(ctx context.Context, id string) bool
	Results(ctx context.Context, id string) (*session.Results, error)
	Reset(ctx context.Context, id string) (*model.Session, error)
	ChooseCategory(ctx context.Context, id, category string) (*model.Session, error)
	Delete(ctx context.Context, id string) error
}

var _ SessionService = (*session.Manager)(nil)

// Handler обслуживает HTML-страницы тренажёра и JSON API.
type Handler struct {
	sessions  SessionService
	scenarios session.ScenarioSource
	feedback  session.FeedbackSource
	logger    *zap.Logger
}

// NewHandler создаёт обработчик. scenarios и feedback используются stateless-эндпоинтами API.
func NewHandler(
	sessions SessionService,
	scenarios session.ScenarioSource,
	feedback session.FeedbackSource,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		sessions:  sessions,
		scenarios: scenarios,
		feedback:  feedback,
		logger:    logger.Named("Handler"),
	}
}

// RegisterRoutes регистрирует HTML-страницы, /api/v1 и /health.
// Шаблоны должны быть установлены на router заранее (router.SetHTMLTemplate).
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/health", h.healthCheck)

	router.GET("/", h.showLanding)
	router.GET("/practice", h.showPractice)
	router.POST("/sessions", h.handleStart)

	pages := router.Group("/sessions/:id")
	{
		pages.GET("", h.showSession)
		pages.POST("/answer", h.handleAnswer)
		pages.POST("/reset", h.handleReset)
		pages.POST("/category", h.handleChooseCategory)
		pages.POST("/new", h.handleNewSession)
	}

	api := router.Group("/api/v1")
	{
		api.GET("/categories", h.listCategories)
		api.POST("/roles/validate", h.validateRole)
		api.POST("/scenarios/generate", h.generateScenario)
		api.POST("/feedback/generate", h.generateFeedback)

		api.POST("/sessions", h.createSession)
		api.GET("/sessions/:id", h.getSession)
		api.DELETE("/sessions/:id", h.deleteSession)
		api.GET("/sessions/:id/scenario", h.getCurrentScenario)
		api.POST("/sessions/:id/answers", h.submitAnswer)
		api.GET("/sessions/:id/results", h.getResults)
		api.POST("/sessions/:id/reset", h.resetSession)
		api.POST("/sessions/:id/category", h.chooseCategory)
	}
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
