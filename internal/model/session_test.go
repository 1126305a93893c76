package model

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, max int) *Session {
	t.Helper()
	first, err := FirstScenario("Leadership")
	require.NoError(t, err)
	return NewSession("s-1", "Leadership", "Engineer", first, max, testNow)
}

func TestSessionAnswerFlow(t *testing.T) {
	s := newTestSession(t, 2)
	assert.Equal(t, PageScenario, s.Page)
	assert.False(t, s.NeedsScenario())

	cur, ok := s.Current()
	require.True(t, ok)

	_, err := s.Answer("not an option", "", testNow)
	assert.ErrorIs(t, err, ErrInvalidOption)

	resp, err := s.Answer(cur.Options[1], "  because  ", testNow)
	require.NoError(t, err)
	assert.Equal(t, "because", resp.Explanation)
	assert.Same(t, cur, resp.Scenario)
	assert.True(t, s.NeedsScenario())

	_, err = s.Answer("A", "", testNow)
	assert.ErrorIs(t, err, ErrInvalidOption)

	require.NoError(t, s.AppendScenario(sampleScenario("second", 0), testNow))
	_, err = s.Answer("A", "", testNow)
	require.NoError(t, err)

	assert.True(t, s.IsComplete())
	assert.Equal(t, PageResults, s.Page)
	_, err = s.Answer("A", "", testNow)
	assert.ErrorIs(t, err, ErrSessionComplete)

	done, total := s.Progress()
	assert.Equal(t, 2, done)
	assert.Equal(t, 2, total)
}

func TestSessionAppendRespectsLimit(t *testing.T) {
	s := newTestSession(t, 3)
	require.NoError(t, s.AppendScenario(sampleScenario("2", 0), testNow))
	require.NoError(t, s.AppendScenario(sampleScenario("3", 0), testNow))
	err := s.AppendScenario(sampleScenario("4", 0), testNow)
	assert.ErrorIs(t, err, ErrSessionComplete)
	assert.Len(t, s.Scenarios, 3)
}

func TestSessionDefaultLimit(t *testing.T) {
	s := newTestSession(t, 0)
	assert.Equal(t, DefaultMaxScenarios, s.MaxScenarios)
	assert.Equal(t, DefaultMaxScenarios-1, s.RemainingAfterCurrent())
}

func TestSessionHistoryIsCopy(t *testing.T) {
	s := newTestSession(t, 10)
	h := s.History()
	require.Len(t, h, 1)
	h[0].Description = "mutated"
	assert.NotEqual(t, "mutated", s.Scenarios[0].Description)
}

func TestSessionReset(t *testing.T) {
	s := newTestSession(t, 10)
	cur, _ := s.Current()
	_, err := s.Answer(cur.Options[0], "", testNow)
	require.NoError(t, err)
	s.CompletionReported = true

	s.Reset(testNow)
	assert.Equal(t, PagePractice, s.Page)
	assert.False(t, s.CompletionReported)
	assert.Empty(t, s.Scenarios)
	assert.Empty(t, s.Responses)
	assert.Equal(t, 0, s.CurrentIndex)
}

func TestSessionSnapshotRoundTrip(t *testing.T) {
	s := newTestSession(t, 10)
	for i := 0; i < 3; i++ {
		cur, ok := s.Current()
		require.True(t, ok)
		_, err := s.Answer(cur.Options[i%4], fmt.Sprintf("reason %d", i), testNow)
		require.NoError(t, err)
		require.NoError(t, s.AppendScenario(sampleScenario(fmt.Sprintf("generated %d", i), i%4), testNow))
	}

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, key := range []string{"current_scenario", "scenarios", "responses", "role", "category", "page"} {
		assert.Contains(t, raw, key)
	}

	var restored Session
	require.NoError(t, json.Unmarshal(data, &restored))
	restored.Relink()

	assert.Equal(t, s.CurrentIndex, restored.CurrentIndex)
	assert.Equal(t, s.History(), restored.History())
	require.Len(t, restored.Responses, 3)
	for i, r := range restored.Responses {
		assert.Same(t, restored.Scenarios[i], r.Scenario)
		assert.Equal(t, s.Responses[i].SelectedOption, r.SelectedOption)
		assert.Equal(t, s.Responses[i].Explanation, r.Explanation)
	}
	assert.Equal(t, CountCorrect(s.Responses), CountCorrect(restored.Responses))
}

func TestSessionResults(t *testing.T) {
	s := newTestSession(t, 10)
	cur, _ := s.Current()
	_, err := s.Answer(cur.Options[cur.BestOption], "", testNow)
	require.NoError(t, err)

	rows := s.Results()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsCorrect)
	assert.Equal(t, 1, rows[0].Number)
	assert.Equal(t, cur.BestOptionText(), rows[0].CorrectAnswer)
}

func TestSessionRestart(t *testing.T) {
	s := newTestSession(t, 10)
	cur, _ := s.Current()
	_, err := s.Answer(cur.Options[0], "", testNow)
	require.NoError(t, err)

	first, err := FirstScenario("Communication")
	require.NoError(t, err)
	s.Restart("Communication", first, testNow)

	assert.Equal(t, "s-1", s.ID)
	assert.Equal(t, "Engineer", s.Role)
	assert.Equal(t, "Communication", s.Category)
	assert.Equal(t, PageScenario, s.Page)
	assert.Empty(t, s.Responses)
	require.Len(t, s.Scenarios, 1)
	assert.Equal(t, first.Description, s.Scenarios[0].Description)
}
