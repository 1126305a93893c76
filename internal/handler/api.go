package handler

import (
	"fmt"
	"net/http"

	"decision-server/internal/model"
	"decision-server/internal/validation"

	"github.com/gin-gonic/gin"
)

type createSessionRequest struct {
	Category string `json:"category" binding:"required"`
	Role     string `json:"role"`
}

type chooseCategoryRequest struct {
	Category string `json:"category" binding:"required"`
}

type answerRequest struct {
	SelectedOption string `json:"selected_option" binding:"required"`
	Explanation    string `json:"explanation" binding:"max=2000"`
}

type validateRoleRequest struct {
	Role string `json:"role"`
}

type generateScenarioRequest struct {
	Category string           `json:"category" binding:"required"`
	Role     string           `json:"role"`
	History  []model.Scenario `json:"history"`
}

type responseInput struct {
	Scenario       *model.Scenario `json:"scenario" binding:"required"`
	SelectedOption string          `json:"selected_option"`
	Explanation    string          `json:"explanation"`
}

type generateFeedbackRequest struct {
	Responses []responseInput `json:"responses" binding:"dive"`
}

// sessionView - состояние сессии без ответов на текущие сценарии.
type sessionView struct {
	ID              string     `json:"id"`
	Category        string     `json:"category"`
	Role            string     `json:"role"`
	Page            model.Page `json:"page"`
	CurrentScenario int        `json:"current_scenario"`
	MaxScenarios    int        `json:"max_scenarios"`
	Answered        int        `json:"answered"`
	Complete        bool       `json:"complete"`
}

func newSessionView(s *model.Session) sessionView {
	done, total := s.Progress()
	return sessionView{
		ID:              s.ID,
		Category:        s.Category,
		Role:            s.Role,
		Page:            s.Page,
		CurrentScenario: s.CurrentIndex,
		MaxScenarios:    total,
		Answered:        done,
		Complete:        s.IsComplete(),
	}
}

// scenarioView - сценарий для показа, без лучшего варианта.
type scenarioView struct {
	Number      int      `json:"number"`
	Total       int      `json:"total"`
	Description string   `json:"description"`
	Options     []string `json:"options"`
}

func bindJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}
	return nil
}

func (h *Handler) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": model.Categories})
}

func (h *Handler) validateRole(c *gin.Context) {
	var req validateRoleRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}
	if err := validation.ValidateRole(req.Role); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// generateScenario - stateless генерация: история передаётся в запросе.
func (h *Handler) generateScenario(c *gin.Context) {
	var req generateScenarioRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}
	sc, err := h.scenarios.Generate(c.Request.Context(), req.Category, req.Role, req.History)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sc)
}

func (h *Handler) generateFeedback(c *gin.Context) {
	var req generateFeedbackRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}
	responses := make([]model.Response, 0, len(req.Responses))
	for i, r := range req.Responses {
		if err := r.Scenario.Validate(); err != nil {
			h.abortWithError(c, fmt.Errorf("%w: responses[%d].scenario: %v", model.ErrInvalidRequest, i, err))
			return
		}
		if !r.Scenario.HasOption(r.SelectedOption) {
			h.abortWithError(c, fmt.Errorf("%w: responses[%d].selected_option %q", model.ErrInvalidOption, i, r.SelectedOption))
			return
		}
		responses = append(responses, model.Response{
			Scenario:       r.Scenario,
			SelectedOption: r.SelectedOption,
			Explanation:    r.Explanation,
		})
	}
	fb, err := h.feedback.Generate(c.Request.Context(), responses)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, fb)
}

func (h *Handler) createSession(c *gin.Context) {
	var req createSessionRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}
	s, err := h.sessions.Start(c.Request.Context(), req.Category, req.Role)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Header("Location", "/api/v1/sessions/"+s.ID)
	c.JSON(http.StatusCreated, gin.H{"session": newSessionView(s)})
}

func (h *Handler) getSession(c *gin.Context) {
	s, err := h.sessions.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": newSessionView(s)})
}

func (h *Handler) deleteSession(c *gin.Context) {
	if err := h.sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// getCurrentScenario отдаёт текущий сценарий, генерируя его при необходимости, и запускает
// предзагрузку следующего. scenario равен null, пока категория не выбрана.
func (h *Handler) getCurrentScenario(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	s, sc, err := h.sessions.CurrentScenario(ctx, id)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	var view *scenarioView
	if sc != nil {
		h.sessions.Prefetch(ctx, id)
		done, total := s.Progress()
		view = &scenarioView{
			Number:      done + 1,
			Total:       total,
			Description: sc.Description,
			Options:     sc.Options,
		}
	}
	c.JSON(http.StatusOK, gin.H{"session": newSessionView(s), "scenario": view})
}

func (h *Handler) submitAnswer(c *gin.Context) {
	var req answerRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}
	s, err := h.sessions.Answer(c.Request.Context(), c.Param("id"), req.SelectedOption, req.Explanation)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": newSessionView(s)})
}

func (h *Handler) getResults(c *gin.Context) {
	res, err := h.sessions.Results(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"session":  newSessionView(res.Session),
		"feedback": res.Feedback,
		"answers":  res.Answers,
	})
}

func (h *Handler) resetSession(c *gin.Context) {
	s, err := h.sessions.Reset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": newSessionView(s)})
}

func (h *Handler) chooseCategory(c *gin.Context) {
	var req chooseCategoryRequest
	if err := bindJSON(c, &req); err != nil {
		h.abortWithError(c, err)
		return
	}
	s, err := h.sessions.ChooseCategory(c.Request.Context(), c.Param("id"), req.Category)
	if err != nil {
		h.abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": newSessionView(s)})
}
