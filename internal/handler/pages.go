package handler

import (
	"fmt"
	"net/http"

	"decision-server/internal/model"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func sessionURL(id string) string {
	return "/sessions/" + id
}

func (h *Handler) showLanding(c *gin.Context) {
	c.HTML(http.StatusOK, "landing.html", gin.H{
		"Title": "Decision Practice",
	})
}

func (h *Handler) showPractice(c *gin.Context) {
	h.renderPractice(c, http.StatusOK, nil, "")
}

// renderPractice показывает выбор категории. Для существующей сессии (после "выбрать другой сценарий")
// форма ведёт на смену категории, роль остаётся прежней.
func (h *Handler) renderPractice(c *gin.Context, status int, s *model.Session, formError string) {
	data := gin.H{
		"Title":      "Choose a category",
		"Categories": model.Categories,
		"Action":     "/sessions",
		"FormError":  formError,
		"Role":       c.PostForm("role"),
	}
	if s != nil {
		data["Action"] = sessionURL(s.ID) + "/category"
		data["Session"] = s
		data["Role"] = s.Role
	}
	c.HTML(status, "practice.html", data)
}

func (h *Handler) handleStart(c *gin.Context) {
	category := c.PostForm("category")
	role := c.PostForm("role")

	s, err := h.sessions.Start(c.Request.Context(), category, role)
	if err != nil {
		kind := model.KindOf(err)
		if kind == model.KindInvalidRole || kind == model.KindInvalidInput {
			view := describeError(err)
			h.logger.Info("Start rejected", zap.String("kind", string(kind)), zap.Error(err))
			h.renderPractice(c, view.status, nil, view.message)
			return
		}
		h.renderError(c, err, "/practice")
		return
	}
	c.Redirect(http.StatusSeeOther, sessionURL(s.ID))
}

// showSession показывает текущий экран сессии: выбор категории, сценарий или результаты.
func (h *Handler) showSession(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	s, err := h.sessions.Get(ctx, id)
	if err != nil {
		h.renderError(c, err, "/practice")
		return
	}

	switch {
	case s.Page == model.PagePractice:
		h.renderPractice(c, http.StatusOK, s, "")
	case s.IsComplete():
		h.showResults(c, s)
	default:
		h.showScenario(c, s)
	}
}

func (h *Handler) showScenario(c *gin.Context, s *model.Session) {
	ctx := c.Request.Context()
	id := s.ID
	s, sc, err := h.sessions.CurrentScenario(ctx, id)
	if err != nil {
		h.renderError(c, err, sessionURL(id))
		return
	}
	if sc == nil {
		h.renderPractice(c, http.StatusOK, s, "")
		return
	}
	h.sessions.Prefetch(ctx, id)

	done, total := s.Progress()
	c.HTML(http.StatusOK, "scenario.html", gin.H{
		"Title":    fmt.Sprintf("Scenario %d of %d", done+1, total),
		"Session":  s,
		"Scenario": sc,
		"Number":   done + 1,
		"Total":    total,
	})
}

func (h *Handler) showResults(c *gin.Context, s *model.Session) {
	res, err := h.sessions.Results(c.Request.Context(), s.ID)
	if err != nil {
		h.renderError(c, err, sessionURL(s.ID))
		return
	}
	c.HTML(http.StatusOK, "results.html", gin.H{
		"Title":    "Your results",
		"Session":  res.Session,
		"Feedback": res.Feedback,
		"Answers":  res.Answers,
	})
}

func (h *Handler) handleAnswer(c *gin.Context) {
	id := c.Param("id")
	selected := c.PostForm("option")
	if selected == "" {
		h.renderError(c, fmt.Errorf("%w: please select an option", model.ErrInvalidOption), sessionURL(id))
		return
	}
	if _, err := h.sessions.Answer(c.Request.Context(), id, selected, c.PostForm("explanation")); err != nil {
		h.renderError(c, err, sessionURL(id))
		return
	}
	c.Redirect(http.StatusSeeOther, sessionURL(id))
}

func (h *Handler) handleReset(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.sessions.Reset(c.Request.Context(), id); err != nil {
		h.renderError(c, err, sessionURL(id))
		return
	}
	c.Redirect(http.StatusSeeOther, sessionURL(id))
}

func (h *Handler) handleChooseCategory(c *gin.Context) {
	id := c.Param("id")
	if _, err := h.sessions.ChooseCategory(c.Request.Context(), id, c.PostForm("category")); err != nil {
		h.renderError(c, err, sessionURL(id))
		return
	}
	c.Redirect(http.StatusSeeOther, sessionURL(id))
}

func (h *Handler) handleNewSession(c *gin.Context) {
	id := c.Param("id")
	if err := h.sessions.Delete(c.Request.Context(), id); err != nil {
		h.renderError(c, err, "/practice")
		return
	}
	c.Redirect(http.StatusSeeOther, "/practice")
}
