package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"decision-server/internal/mocks"
	"decision-server/internal/model"
	"decision-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const validScenarioJSON = `{"description":"Your team disagrees about a release.","options":["Ship now","Delay a week","Ask the client","Split the release"],"best_option":1}`

func scenarioJSON(desc string, best int) string {
	return fmt.Sprintf(`{"description":%q,"options":["A","B","C","D"],"best_option":%d}`, desc, best)
}

func newScenarioGenerator(client service.CompletionClient) *service.ScenarioGenerator {
	return service.NewScenarioGenerator(client, service.NewPromptBuilder(nil, 0), service.DefaultScenarioAttempts, zap.NewNop())
}

func TestScenarioGenerator_FirstAttempt(t *testing.T) {
	client := mocks.NewMockCompletionClient(t)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Leadership") && !strings.Contains(p, " for a ")
	}), mock.Anything).Return(validScenarioJSON, nil).Once()

	sc, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", "", nil)
	require.NoError(t, err)

	assert.Len(t, sc.Options, model.OptionsPerScenario)
	assert.Equal(t, 1, sc.BestOption)
	assert.Equal(t, "Delay a week", sc.BestOptionText())
	client.AssertNumberOfCalls(t, "Complete", 1)
}

func TestScenarioGenerator_SucceedsOnThirdAttempt(t *testing.T) {
	client := mocks.NewMockCompletionClient(t)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("not json", nil).Twice()
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(validScenarioJSON, nil).Once()

	sc, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Your team disagrees about a release.", sc.Description)
	client.AssertNumberOfCalls(t, "Complete", 3)
}

func TestScenarioGenerator_ExhaustsAfterThreeAttempts(t *testing.T) {
	client := mocks.NewMockCompletionClient(t)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(`{"description":`, nil).Times(3)

	_, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", "", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrGenerationExhausted)
	assert.ErrorIs(t, err, model.ErrMalformedPayload, "last cause is kept")
	assert.Equal(t, model.KindGenerationExhausted, model.KindOf(err))
	client.AssertNumberOfCalls(t, "Complete", 3)
}

func TestScenarioGenerator_ContractViolationsAreRetried(t *testing.T) {
	client := mocks.NewMockCompletionClient(t)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"description":"x","options":["a","b","c"],"best_option":1}`, nil).Once()
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"description":"x","options":["a","b","c","d"],"best_option":7}`, nil).Once()
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"description":"x","options":["a","b","c","d"],"best_option":2}`, nil).Once()

	sc, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", "", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sc.BestOption)
}

func TestScenarioGenerator_RejectsDuplicateDescription(t *testing.T) {
	history := []model.Scenario{{Description: "Seen before", Options: []string{"A", "B", "C", "D"}}}

	client := mocks.NewMockCompletionClient(t)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Seen before")
	}), mock.Anything).Return(scenarioJSON("Seen before", 0), nil).Once()
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(scenarioJSON("Fresh", 3), nil).Once()

	sc, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", "", history)
	require.NoError(t, err)
	assert.Equal(t, "Fresh", sc.Description)
	assert.Equal(t, "Seen before", history[0].Description)
	assert.Len(t, history, 1)
}

func TestScenarioGenerator_OnlyDuplicatesExhausts(t *testing.T) {
	history := []model.Scenario{{Description: "Same"}}
	client := mocks.NewMockCompletionClient(t)
	client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(scenarioJSON("Same", 0), nil).Times(3)

	_, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", "", history)
	assert.ErrorIs(t, err, model.ErrGenerationExhausted)
	assert.ErrorIs(t, err, model.ErrContractViolation)
}

func TestScenarioGenerator_TransportErrorsAreNotRetried(t *testing.T) {
	for _, cause := range []error{model.ErrRateLimited, model.ErrTimeout, model.ErrAuthFailure, model.ErrEmptyResponse, model.ErrTransport} {
		t.Run(cause.Error(), func(t *testing.T) {
			client := mocks.NewMockCompletionClient(t)
			client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return("", cause).Once()

			_, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", "", nil)
			assert.ErrorIs(t, err, cause)
			assert.NotErrorIs(t, err, model.ErrGenerationExhausted)
			client.AssertNumberOfCalls(t, "Complete", 1)
		})
	}
}

func TestScenarioGenerator_InvalidRoleFailsBeforeAnyCall(t *testing.T) {
	client := mocks.NewMockCompletionClient(t)

	_, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", strings.Repeat("x", 101), nil)
	assert.ErrorIs(t, err, model.ErrInvalidRole)

	_, err = newScenarioGenerator(client).Generate(context.Background(), " ", "", nil)
	assert.ErrorIs(t, err, model.ErrInvalidRequest)

	client.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything, mock.Anything)
}

func TestScenarioGenerator_BlankRoleTreatedAsAbsent(t *testing.T) {
	client := mocks.NewMockCompletionClient(t)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return !strings.Contains(p, " for a ")
	}), mock.Anything).Return(validScenarioJSON, nil).Once()

	_, err := newScenarioGenerator(client).Generate(context.Background(), "Leadership", "   ", nil)
	require.NoError(t, err)
}

func TestScenarioGenerator_RoleInPrompt(t *testing.T) {
	client := mocks.NewMockCompletionClient(t)
	client.On("Complete", mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "for a Software Engineer")
	}), mock.Anything).Return(validScenarioJSON, nil).Once()

	_, err := newScenarioGenerator(client).Generate(context.Background(), "Problem Solving", "Software Engineer", nil)
	require.NoError(t, err)
}

func TestScenarioGenerator_SessionOfScenariosIsUniqueAndWellFormed(t *testing.T) {
	client := mocks.NewMockCompletionClient(t)
	for i := 0; i < 10; i++ {
		// Каждое описание сначала приходит повтором предыдущего, затем новым.
		if i > 0 {
			client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(scenarioJSON(fmt.Sprintf("desc %d", i-1), i%4), nil).Once()
		}
		client.On("Complete", mock.Anything, mock.Anything, mock.Anything).Return(scenarioJSON(fmt.Sprintf("desc %d", i), i%4), nil).Once()
	}

	gen := newScenarioGenerator(client)
	var history []model.Scenario
	seen := map[string]bool{}
	for i := 0; i < 10; i++ {
		sc, err := gen.Generate(context.Background(), "Leadership", "", history)
		require.NoError(t, err)
		assert.Len(t, sc.Options, 4)
		assert.True(t, sc.BestOption >= 0 && sc.BestOption <= 3)
		assert.False(t, seen[sc.Description], sc.Description)
		seen[sc.Description] = true
		history = append(history, sc)
	}
}
