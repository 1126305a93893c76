package service

import (
	"context"
	"fmt"

	"decision-server/internal/model"

	"go.uber.org/zap"
)

// DefaultFeedbackAttempts - одна попытка и один повтор при неверном ответе модели.
const DefaultFeedbackAttempts = 2

const generatorFeedback = "feedback"

// Тексты для пустой сессии: модель в этом случае не вызывается.
const (
	emptyFeedbackText       = "No responses were submitted, so there is nothing to assess yet."
	emptyFeedbackSuggestion = "Work through a few scenarios and explain your reasoning to receive feedback."
)

// FeedbackGenerator строит итоговую оценку сессии.
// Число верных ответов всегда пересчитывается локально; значение модели сохраняется только для справки.
type FeedbackGenerator struct {
	client      CompletionClient
	prompts     *PromptBuilder
	maxAttempts int
	params      GenerationParams
	logger      *zap.Logger
}

// NewFeedbackGenerator создаёт генератор. maxAttempts <= 0 заменяется на DefaultFeedbackAttempts.
func NewFeedbackGenerator(client CompletionClient, prompts *PromptBuilder, maxAttempts int, logger *zap.Logger) *FeedbackGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultFeedbackAttempts
	}
	if prompts == nil {
		prompts = NewPromptBuilder(nil, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FeedbackGenerator{
		client:      client,
		prompts:     prompts,
		maxAttempts: maxAttempts,
		logger:      logger.Named("feedback_generator"),
	}
}

// Generate оценивает ответы. Для пустого списка возвращает нейтральный отзыв с CorrectCount = 0
// без обращения к модели. Ошибки Completion Client возвращаются сразу и без изменений;
// после исчерпания попыток на неверных ответах возвращается ErrFeedbackGenerationFailed.
func (g *FeedbackGenerator) Generate(ctx context.Context, responses []model.Response) (model.Feedback, error) {
	if len(responses) == 0 {
		generationResultsTotal.WithLabelValues(generatorFeedback, "empty").Inc()
		return model.Feedback{
			Feedback:   emptyFeedbackText,
			Suggestion: emptyFeedbackSuggestion,
		}, nil
	}
	for i, r := range responses {
		if r.Scenario == nil {
			return model.Feedback{}, fmt.Errorf("%w: response %d has no scenario", model.ErrInvalidRequest, i+1)
		}
	}

	correct := model.CountCorrect(responses)
	prompt := g.prompts.FeedbackPrompt(responses)
	log := g.logger.With(zap.Int("responses", len(responses)), zap.Int("correct_count", correct))

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.client.Complete(ctx, prompt, g.params)
		if err != nil {
			generationAttemptsTotal.WithLabelValues(generatorFeedback, string(model.KindOf(err))).Inc()
			generationResultsTotal.WithLabelValues(generatorFeedback, string(model.KindOf(err))).Inc()
			log.Warn("Completion failed, not retrying", zap.Int("attempt", attempt), zap.Error(err))
			return model.Feedback{}, err
		}

		p, err := parseFeedback(text)
		if err != nil {
			lastErr = err
			generationAttemptsTotal.WithLabelValues(generatorFeedback, string(model.KindOf(err))).Inc()
			log.Warn("Feedback rejected", zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		reported := *p.CorrectCount
		if reported != correct {
			log.Info("Model reported a different correct count, using local tally", zap.Int("reported", reported))
		}
		generationAttemptsTotal.WithLabelValues(generatorFeedback, "success").Inc()
		generationResultsTotal.WithLabelValues(generatorFeedback, "success").Inc()
		return model.Feedback{
			CorrectCount:  correct,
			ReportedCount: reported,
			Total:         len(responses),
			Feedback:      p.Feedback,
			Suggestion:    p.Suggestion,
		}, nil
	}

	generationResultsTotal.WithLabelValues(generatorFeedback, string(model.KindFeedbackFailed)).Inc()
	return model.Feedback{}, fmt.Errorf("%w after %d attempts: %w", model.ErrFeedbackGenerationFailed, g.maxAttempts, lastErr)
}
