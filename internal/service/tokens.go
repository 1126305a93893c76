package service

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
)

// TokenEstimator оценивает число токенов в тексте через tiktoken.
// Кодировка загружается при первом обращении; если загрузка не удалась,
// используется грубая оценка в 4 символа на токен. nil-значение тоже работает на этой оценке.
type TokenEstimator struct {
	model  string
	logger *zap.Logger

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// NewTokenEstimator создаёт оценщик для модели.
func NewTokenEstimator(model string, logger *zap.Logger) *TokenEstimator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TokenEstimator{model: model, logger: logger.Named("tokens")}
}

func (e *TokenEstimator) load() {
	enc, err := tiktoken.EncodingForModel(e.model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
	}
	if err != nil {
		e.logger.Warn("tiktoken encoding unavailable, falling back to length estimate",
			zap.String("model", e.model), zap.Error(err))
		return
	}
	e.enc = enc
}

// Count возвращает оценку числа токенов.
func (e *TokenEstimator) Count(text string) int {
	if text == "" {
		return 0
	}
	if e == nil {
		return roughTokenCount(text)
	}
	e.once.Do(e.load)
	if e.enc == nil {
		return roughTokenCount(text)
	}
	return len(e.enc.Encode(text, nil, nil))
}

func roughTokenCount(text string) int {
	return (len(text) + 3) / 4
}
