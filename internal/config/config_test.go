package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useSecretsDir(t *testing.T, dir string) {
	t.Helper()
	prev := secretsDir
	secretsDir = dir
	t.Cleanup(func() { secretsDir = prev })
}

func TestLoadConfigDefaults(t *testing.T) {
	useSecretsDir(t, t.TempDir())
	t.Setenv("AI_API_KEY", "sk-test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, ClientTypeOpenAI, cfg.AIClientType)
	assert.InDelta(t, 0.3, cfg.AITemperature, 1e-9)
	assert.Equal(t, 1000, cfg.AIMaxTokens)
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Equal(t, 3, cfg.ScenarioMaxAttempts)
	assert.Equal(t, 2, cfg.FeedbackMaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.GenerationCooldown)
	assert.Equal(t, 10, cfg.SessionMaxScenarios)
	assert.Equal(t, StoreMemory, cfg.SessionStore)
	assert.Equal(t, "sk-test", cfg.AIAPIKey)
}

func TestLoadConfigFromEnvFile(t *testing.T) {
	useSecretsDir(t, t.TempDir())
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("AI_CLIENT_TYPE=ollama\nSESSION_STORE=file\nGENERATION_COOLDOWN=1s\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("AI_CLIENT_TYPE")
		os.Unsetenv("SESSION_STORE")
		os.Unsetenv("GENERATION_COOLDOWN")
	})

	cfg, err := LoadConfig(envFile)
	require.NoError(t, err)
	assert.Equal(t, ClientTypeOllama, cfg.AIClientType)
	assert.Equal(t, StoreFile, cfg.SessionStore)
	assert.Equal(t, time.Second, cfg.GenerationCooldown)
}

func TestSecretFileWinsOverEnv(t *testing.T) {
	dir := t.TempDir()
	useSecretsDir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ai_api_key"), []byte(" from-file \n"), 0o600))
	t.Setenv("AI_API_KEY", "from-env")

	assert.Equal(t, "from-file", ReadSecretOrEnv("ai_api_key", "AI_API_KEY"))
}

func TestValidate(t *testing.T) {
	valid := Config{
		AIClientType:        ClientTypeOpenAI,
		AIAPIKey:            "k",
		SessionStore:        StoreRedis,
		AITemperature:       0.3,
		AIMaxTokens:         100,
		AITimeout:           time.Second,
		ScenarioMaxAttempts: 3,
		FeedbackMaxAttempts: 1,
		SessionMaxScenarios: 10,
	}
	require.NoError(t, valid.Validate())

	mutations := map[string]func(c *Config){
		"missing key":       func(c *Config) { c.AIAPIKey = "" },
		"unknown client":    func(c *Config) { c.AIClientType = "bard" },
		"unknown store":     func(c *Config) { c.SessionStore = "s3" },
		"temperature":       func(c *Config) { c.AITemperature = 1.5 },
		"max tokens":        func(c *Config) { c.AIMaxTokens = 0 },
		"timeout":           func(c *Config) { c.AITimeout = 0 },
		"attempts":          func(c *Config) { c.ScenarioMaxAttempts = 0 },
		"scenario limit":    func(c *Config) { c.SessionMaxScenarios = 0 },
		"negative cooldown": func(c *Config) { c.GenerationCooldown = -time.Second },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := valid
			mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestGetAllowedOrigins(t *testing.T) {
	c := Config{CORSAllowedOrigins: " http://a.example , ,http://b.example"}
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, c.GetAllowedOrigins())
	assert.Nil(t, (&Config{}).GetAllowedOrigins())
}
