package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"decision-server/internal/config"
	"decision-server/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const providerOpenAI = "openai"

// openAIClient реализует CompletionClient поверх любого OpenAI-совместимого API.
type openAIClient struct {
	client   *openai.Client
	model    string
	defaults completionDefaults
	tokens   *TokenEstimator
	logger   *zap.Logger
}

// NewOpenAIClient создаёт клиента. tokens может быть nil.
func NewOpenAIClient(cfg *config.Config, tokens *TokenEstimator, logger *zap.Logger) CompletionClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	clientCfg := openai.DefaultConfig(cfg.AIAPIKey)
	if cfg.AIBaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.AIBaseURL, "/")
	}
	// Таймаут задаётся контекстом каждого запроса.
	clientCfg.HTTPClient = &http.Client{}

	logger.Info("OpenAI client created",
		zap.String("base_url", clientCfg.BaseURL), zap.String("model", cfg.AIModel))

	return &openAIClient{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    cfg.AIModel,
		defaults: defaultsFromConfig(cfg),
		tokens:   tokens,
		logger:   logger.Named("openai_client"),
	}
}

// Complete отправляет prompt одним сообщением пользователя.
func (c *openAIClient) Complete(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	labels := prometheus.Labels{"provider": providerOpenAI, "model": c.model}

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

	promptTokens := c.tokens.Count(prompt)
	aiPromptTokens.WithLabelValues(c.model).Observe(float64(promptTokens))

	reqCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.client.CreateChatCompletion(reqCtx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(p.temperature),
		MaxTokens:   p.maxTokens,
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

	if len(resp.Choices) == 0 {
		err := fmt.Errorf("%w: no choices returned", model.ErrEmptyResponse)
		aiRequestsTotal.With(withStatus(labels, err)).Inc()
		return "", err
	}
	text := StripCodeFence(resp.Choices[0].Message.Content)
	if text == "" {
		err := fmt.Errorf("%w: message content is empty", model.ErrEmptyResponse)
		aiRequestsTotal.With(withStatus(labels, err)).Inc()
		return "", err
	}

	aiRequestsTotal.With(withStatus(labels, nil)).Inc()
	c.logger.Debug("Completion received",
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens_estimate", promptTokens),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int("response_length", len(text)))
	return text, nil
}

func withStatus(labels prometheus.Labels, err error) prometheus.Labels {
	out := prometheus.Labels{"status": statusLabel(err)}
	for k, v := range labels {
		out[k] = v
	}
	return out
}
