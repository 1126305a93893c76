package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"decision-server/internal/config"
	"decision-server/internal/model"

	"github.com/ollama/ollama/api"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const providerOllama = "ollama"

// ollamaClient реализует CompletionClient через нативный API Ollama.
type ollamaClient struct {
	client   *api.Client
	model    string
	defaults completionDefaults
	tokens   *TokenEstimator
	logger   *zap.Logger
}

// NewOllamaClient создаёт клиента Ollama. AI_BASE_URL указывается без суффикса /v1.
func NewOllamaClient(cfg *config.Config, tokens *TokenEstimator, logger *zap.Logger) (CompletionClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.AIBaseURL, "/"), "/v1")
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Ollama base URL %q: %w", baseURL, err)
	}

	logger.Info("Ollama client created", zap.String("base_url", baseURL), zap.String("model", cfg.AIModel))

	return &ollamaClient{
		client:   api.NewClient(parsedURL, &http.Client{}),
		model:    cfg.AIModel,
		defaults: defaultsFromConfig(cfg),
		tokens:   tokens,
		logger:   logger.Named("ollama_client"),
	}, nil
}

// Complete выполняет не потоковый chat-запрос с форматом ответа json.
func (c *ollamaClient) Complete(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	labels := prometheus.Labels{"provider": providerOllama, "model": c.model}

	if strings.TrimSpace(prompt) == "" {
		err := fmt.Errorf("%w: prompt is empty", model.ErrInvalidRequest)
		aiRequestsTotal.With(withStatus(labels, err)).Inc()
		return "", err
	}
	p, err := c.defaults.resolve(params)
	if err != nil {
		aiRequestsTotal.With(withStatus(labels, err)).Inc()
		return "", err
	}
	aiPromptTokens.WithLabelValues(c.model).Observe(float64(c.tokens.Count(prompt)))

	stream := false
	req := &api.ChatRequest{
		Model:    c.model,
		Messages: []api.Message{{Role: "user", Content: prompt}},
		Stream:   &stream,
		Format:   json.RawMessage(`"json"`),
		Options: map[string]interface{}{
			"temperature": p.temperature,
			"num_predict": p.maxTokens,
		},
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	var resp api.ChatResponse
	err = c.client.Chat(reqCtx, req, func(r api.ChatResponse) error {
		resp = r
		return nil
	})
	duration := time.Since(start)
	aiRequestDuration.With(labels).Observe(duration.Seconds())

	if err != nil {
		classified := classifyCompletionError(err)
		aiRequestsTotal.With(withStatus(labels, classified)).Inc()
		c.logger.Warn("Completion request failed",
			zap.Duration("duration", duration), zap.String("kind", string(model.KindOf(classified))), zap.Error(err))
		return "", classified
	}

	text := StripCodeFence(resp.Message.Content)
	if text == "" {
		err := fmt.Errorf("%w: message content is empty", model.ErrEmptyResponse)
		aiRequestsTotal.With(withStatus(labels, err)).Inc()
		return "", err
	}

	aiRequestsTotal.With(withStatus(labels, nil)).Inc()
	c.logger.Debug("Completion received",
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", resp.PromptEvalCount),
		zap.Int("completion_tokens", resp.EvalCount))
	return text, nil
}
