package service

import (
	"context"
	"fmt"
	"strings"

	"decision-server/internal/model"
	"decision-server/internal/validation"

	"go.uber.org/zap"
)

// DefaultScenarioAttempts - сколько всего попыток (не повторов) делает ScenarioGenerator.
const DefaultScenarioAttempts = 3

const generatorScenario = "scenario"

// ScenarioGenerator генерирует сценарии и проверяет их по контракту.
// Состояния между вызовами не хранит и историю не изменяет.
type ScenarioGenerator struct {
	client      CompletionClient
	prompts     *PromptBuilder
	maxAttempts int
	params      GenerationParams
	logger      *zap.Logger
}

// NewScenarioGenerator создаёт генератор. maxAttempts <= 0 заменяется на DefaultScenarioAttempts.
func NewScenarioGenerator(client CompletionClient, prompts *PromptBuilder, maxAttempts int, logger *zap.Logger) *ScenarioGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultScenarioAttempts
	}
	if prompts == nil {
		prompts = NewPromptBuilder(nil, 0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScenarioGenerator{
		client:      client,
		prompts:     prompts,
		maxAttempts: maxAttempts,
		logger:      logger.Named("scenario_generator"),
	}
}

// Generate возвращает новый сценарий для категории и роли, не повторяющий описания из history.
//
// Ошибки разбора и нарушения контракта повторяются до maxAttempts попыток включительно,
// после чего возвращается ErrGenerationExhausted с последней причиной.
// Ошибки Completion Client возвращаются сразу и без изменений.
func (g *ScenarioGenerator) Generate(ctx context.Context, category, role string, history []model.Scenario) (model.Scenario, error) {
	if strings.TrimSpace(category) == "" {
		return model.Scenario{}, fmt.Errorf("%w: category is empty", model.ErrInvalidRequest)
	}
	role = strings.TrimSpace(role)
	if role != "" {
		if err := validation.ValidateRole(role); err != nil {
			return model.Scenario{}, err
		}
	}

	seen := make(map[string]struct{}, len(history))
	for _, h := range history {
		seen[h.Description] = struct{}{}
	}
	prompt := g.prompts.ScenarioPrompt(category, role, history)
	log := g.logger.With(zap.String("category", category), zap.Int("history_len", len(history)))

	var lastErr error
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		text, err := g.client.Complete(ctx, prompt, g.params)
		if err != nil {
			generationAttemptsTotal.WithLabelValues(generatorScenario, string(model.KindOf(err))).Inc()
			generationResultsTotal.WithLabelValues(generatorScenario, string(model.KindOf(err))).Inc()
			log.Warn("Completion failed, not retrying", zap.Int("attempt", attempt), zap.Error(err))
			return model.Scenario{}, err
		}

		sc, err := ParseScenario(text)
		if err == nil {
			if _, dup := seen[sc.Description]; dup {
				err = fmt.Errorf("%w: description duplicates an earlier scenario", model.ErrContractViolation)
			}
		}
		if err == nil {
			generationAttemptsTotal.WithLabelValues(generatorScenario, "success").Inc()
			generationResultsTotal.WithLabelValues(generatorScenario, "success").Inc()
			log.Debug("Scenario generated", zap.Int("attempt", attempt))
			return sc, nil
		}

		lastErr = err
		generationAttemptsTotal.WithLabelValues(generatorScenario, string(model.KindOf(err))).Inc()
		log.Warn("Scenario rejected",
			zap.Int("attempt", attempt), zap.Int("max_attempts", g.maxAttempts), zap.Error(err))
	}

	generationResultsTotal.WithLabelValues(generatorScenario, string(model.KindGenerationExhausted)).Inc()
	return model.Scenario{}, fmt.Errorf("%w after %d attempts: %w", model.ErrGenerationExhausted, g.maxAttempts, lastErr)
}
