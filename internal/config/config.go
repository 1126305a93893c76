package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
)

// Поддерживаемые значения AI_CLIENT_TYPE и SESSION_STORE.
const (
	ClientTypeOpenAI = "openai"
	ClientTypeOllama = "ollama"

	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
)

// Config содержит конфигурацию сервиса сценариев.
type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Env         string `envconfig:"ENV" default:"development"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogEncoding string `envconfig:"LOG_ENCODING" default:"json"`
	LogOutput   string `envconfig:"LOG_OUTPUT" default:"stdout"`

	// Настройки AI
	AIClientType  string        `envconfig:"AI_CLIENT_TYPE" default:"openai"`
	AIBaseURL     string        `envconfig:"AI_BASE_URL" default:"https://api.openai.com/v1"`
	AIModel       string        `envconfig:"AI_MODEL" default:"gpt-4"`
	AITemperature float64       `envconfig:"AI_TEMPERATURE" default:"0.3"`
	AIMaxTokens   int           `envconfig:"AI_MAX_TOKENS" default:"1000"`
	AITimeout     time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	// Бюджет токенов на сериализованную историю в промпте. 0 - без ограничения.
	AIHistoryTokenBudget int `envconfig:"AI_HISTORY_TOKEN_BUDGET" default:"2000"`
	// Секретное поле без envconfig тега
	AIAPIKey string `ignored:"true"`

	// Генерация
	ScenarioMaxAttempts int           `envconfig:"SCENARIO_MAX_ATTEMPTS" default:"3"`
	FeedbackMaxAttempts int           `envconfig:"FEEDBACK_MAX_ATTEMPTS" default:"2"`
	GenerationCooldown  time.Duration `envconfig:"GENERATION_COOLDOWN" default:"2s"`
	PrefetchEnabled     bool          `envconfig:"PREFETCH_ENABLED" default:"true"`

	// Сессии
	SessionMaxScenarios int           `envconfig:"SESSION_MAX_SCENARIOS" default:"10"`
	SessionStore        string        `envconfig:"SESSION_STORE" default:"memory"`
	SessionFileDir      string        `envconfig:"SESSION_FILE_DIR" default:"./data/sessions"`
	SessionTTL          time.Duration `envconfig:"SESSION_TTL" default:"24h"`

	// Redis
	RedisAddr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`

	// RabbitMQ. Пустой URL отключает публикацию событий.
	RabbitMQURL        string `envconfig:"RABBITMQ_URL" default:""`
	SessionEventsQueue string `envconfig:"SESSION_EVENTS_QUEUE" default:"decision_session_events"`

	CORSAllowedOrigins string `envconfig:"CORS_ALLOWED_ORIGINS" default:""`
}

// LoadConfig загружает конфигурацию: сначала .env (если есть), затем переменные окружения и секреты.
func LoadConfig(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	cfg.AIAPIKey = ReadSecretOrEnv("ai_api_key", "AI_API_KEY")
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = ReadSecretOrEnv("redis_password", "REDIS_PASSWORD")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет согласованность значений.
func (c *Config) Validate() error {
	switch c.AIClientType {
	case ClientTypeOpenAI:
		if c.AIAPIKey == "" {
			return errors.New("AI_API_KEY is required for the openai client")
		}
	case ClientTypeOllama:
	default:
		return fmt.Errorf("unsupported AI_CLIENT_TYPE %q", c.AIClientType)
	}
	switch c.SessionStore {
	case StoreMemory, StoreFile, StoreRedis:
	default:
		return fmt.Errorf("unsupported SESSION_STORE %q", c.SessionStore)
	}
	if c.AITemperature < 0 || c.AITemperature > 1 {
		return fmt.Errorf("AI_TEMPERATURE must be within [0,1], got %v", c.AITemperature)
	}
	if c.AIMaxTokens <= 0 {
		return errors.New("AI_MAX_TOKENS must be positive")
	}
	if c.AITimeout <= 0 {
		return errors.New("AI_TIMEOUT must be positive")
	}
	if c.ScenarioMaxAttempts <= 0 || c.FeedbackMaxAttempts <= 0 {
		return errors.New("generation attempts must be positive")
	}
	if c.SessionMaxScenarios <= 0 {
		return errors.New("SESSION_MAX_SCENARIOS must be positive")
	}
	if c.GenerationCooldown < 0 {
		return errors.New("GENERATION_COOLDOWN must not be negative")
	}
	return nil
}

// GetAllowedOrigins разбирает CORS_ALLOWED_ORIGINS через запятую.
func (c *Config) GetAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// LogFields возвращает поля для логирования без секретов.
func (c *Config) LogFields() []zap.Field {
	return []zap.Field{
		zap.String("port", c.Port),
		zap.String("env", c.Env),
		zap.String("ai_client_type", c.AIClientType),
		zap.String("ai_base_url", c.AIBaseURL),
		zap.String("ai_model", c.AIModel),
		zap.Float64("ai_temperature", c.AITemperature),
		zap.Int("ai_max_tokens", c.AIMaxTokens),
		zap.Duration("ai_timeout", c.AITimeout),
		zap.Int("scenario_max_attempts", c.ScenarioMaxAttempts),
		zap.Int("feedback_max_attempts", c.FeedbackMaxAttempts),
		zap.Duration("generation_cooldown", c.GenerationCooldown),
		zap.Bool("prefetch_enabled", c.PrefetchEnabled),
		zap.Int("session_max_scenarios", c.SessionMaxScenarios),
		zap.String("session_store", c.SessionStore),
		zap.String("redis_addr", c.RedisAddr),
		zap.Bool("rabbitmq_enabled", c.RabbitMQURL != ""),
		zap.Bool("ai_api_key_loaded", c.AIAPIKey != ""),
	}
}
