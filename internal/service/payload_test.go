package service

import (
	"testing"

	"decision-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario(`{"description":" A hard call. ","options":["a","b","c","d"],"best_option":0}`)
	require.NoError(t, err)
	assert.Equal(t, "A hard call.", sc.Description)
	assert.Equal(t, []string{"a", "b", "c", "d"}, sc.Options)
	assert.Equal(t, 0, sc.BestOption)
}

func TestParseScenarioRejects(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want error
	}{
		{"not json", "Here is a scenario: pick one", model.ErrMalformedPayload},
		{"truncated", `{"description":"x","options":["a","b"`, model.ErrMalformedPayload},
		{"trailing data", `{"description":"x","options":["a","b","c","d"],"best_option":1} extra`, model.ErrMalformedPayload},
		{"unknown key", `{"description":"x","options":["a","b","c","d"],"best_option":1,"explanation":"y"}`, model.ErrMalformedPayload},
		{"string index", `{"description":"x","options":["a","b","c","d"],"best_option":"1"}`, model.ErrMalformedPayload},
		{"fractional index", `{"description":"x","options":["a","b","c","d"],"best_option":1.5}`, model.ErrMalformedPayload},
		{"missing description", `{"options":["a","b","c","d"],"best_option":1}`, model.ErrContractViolation},
		{"blank description", `{"description":"  ","options":["a","b","c","d"],"best_option":1}`, model.ErrContractViolation},
		{"missing index", `{"description":"x","options":["a","b","c","d"]}`, model.ErrContractViolation},
		{"three options", `{"description":"x","options":["a","b","c"],"best_option":1}`, model.ErrContractViolation},
		{"five options", `{"description":"x","options":["a","b","c","d","e"],"best_option":1}`, model.ErrContractViolation},
		{"duplicate options", `{"description":"x","options":["a","a","c","d"],"best_option":1}`, model.ErrContractViolation},
		{"empty option", `{"description":"x","options":["a","","c","d"],"best_option":1}`, model.ErrContractViolation},
		{"index too large", `{"description":"x","options":["a","b","c","d"],"best_option":4}`, model.ErrContractViolation},
		{"negative index", `{"description":"x","options":["a","b","c","d"],"best_option":-1}`, model.ErrContractViolation},
		{"null", `null`, model.ErrContractViolation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario(tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseFeedback(t *testing.T) {
	p, err := parseFeedback(`{"correct_count":0,"feedback":"ok","suggestion":"more"}`)
	require.NoError(t, err)
	assert.Equal(t, 0, *p.CorrectCount)

	_, err = parseFeedback(`{"feedback":"ok","suggestion":"more"}`)
	assert.ErrorIs(t, err, model.ErrContractViolation)

	_, err = parseFeedback(`{"correct_count":1,"feedback":"","suggestion":"more"}`)
	assert.ErrorIs(t, err, model.ErrContractViolation)

	_, err = parseFeedback(`{"correct_count":-1,"feedback":"ok","suggestion":"more"}`)
	assert.ErrorIs(t, err, model.ErrContractViolation)

	_, err = parseFeedback(`{"overall":"ok"}`)
	assert.ErrorIs(t, err, model.ErrMalformedPayload)
}
