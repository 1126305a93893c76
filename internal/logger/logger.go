package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config содержит настройки логгера.
type Config struct {
	Level      string // debug, info, warn, error
	Encoding   string // json или console
	OutputPath string // stdout, stderr или путь к файлу
	Service    string
	Env        string
}

// New собирает zap.Logger. Каждая запись несёт поля service и env.
// Неизвестный уровень заменяется на info с предупреждением в самом логе,
// неизвестная кодировка - на json.
func New(cfg Config) (*zap.Logger, error) {
	level, levelErr := parseLevel(cfg.Level)

	out, _, err := zap.Open(outputPath(cfg.OutputPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %q: %w", cfg.OutputPath, err)
	}
	errOut, _, err := zap.Open("stderr")
	if err != nil {
		return nil, fmt.Errorf("failed to open error output: %w", err)
	}

	core := zapcore.NewCore(newEncoder(cfg.Encoding), out, level)
	opts := []zap.Option{zap.ErrorOutput(errOut)}
	if cfg.Env == "development" {
		opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	}

	log := zap.New(core, opts...)
	if cfg.Service != "" {
		log = log.With(zap.String("service", cfg.Service))
	}
	if cfg.Env != "" {
		log = log.With(zap.String("env", cfg.Env))
	}
	if levelErr != nil {
		log.Warn("Invalid log level, using info", zap.String("requested_level", cfg.Level), zap.Error(levelErr))
	}
	return log, nil
}

func parseLevel(s string) (zapcore.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return zapcore.InfoLevel, nil
	}
	level, err := zapcore.ParseLevel(s)
	if err != nil {
		return zapcore.InfoLevel, err
	}
	return level, nil
}

func newEncoder(encoding string) zapcore.Encoder {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeDuration = zapcore.StringDurationEncoder

	if strings.EqualFold(strings.TrimSpace(encoding), "console") {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return zapcore.NewConsoleEncoder(encoderCfg)
	}
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	return zapcore.NewJSONEncoder(encoderCfg)
}

func outputPath(p string) string {
	if p = strings.TrimSpace(p); p == "" {
		return "stdout"
	}
	return p
}
