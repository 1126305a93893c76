package config

import (
	"fmt"
	"os"
	"strings"
)

// secretsDir - путь по умолчанию для Docker Secrets.
var secretsDir = "/run/secrets"

// ReadSecret читает секрет из файла <secretsDir>/<name>.
func ReadSecret(name string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", secretsDir, name)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// ReadSecretOrEnv берёт секрет из файла, а при его отсутствии - из переменной окружения.
func ReadSecretOrEnv(secretName, envName string) string {
	if v, err := ReadSecret(secretName); err == nil {
		return v
	}
	return strings.TrimSpace(os.Getenv(envName))
}
