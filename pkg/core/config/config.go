// Package config loads application settings from the environment (.env via
// godotenv) and the model fallback list from config/models.yaml.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

const (
	DefaultEdinetBase = "https://api.edinet-fsa.go.jp/api/v2"
	DefaultModelsPath = "config/models.yaml"
)

// ModelConfig is the ranked model list used by the LLM fallback runner.
type ModelConfig struct {
	Models           []string `yaml:"models"`
	AttemptsPerModel int      `yaml:"attempts_per_model"`
	BackoffStep      string   `yaml:"backoff_step"`
}

// Step parses BackoffStep, defaulting to one second.
func (m ModelConfig) Step() time.Duration {
	if d, err := time.ParseDuration(m.BackoffStep); err == nil && d > 0 {
		return d
	}
	return time.Second
}

// DefaultModelConfig mirrors config/models.yaml for when the file is absent.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Models:           []string{"gemini-2.0-flash", "gemini-flash-latest"},
		AttemptsPerModel: 2,
		BackoffStep:      "1s",
	}
}

type AppConfig struct {
	Port     string
	LogLevel string

	GeminiAPIKey string
	EdinetAPIKey string // optional; sent as Subscription-Key when set
	EdinetBase   string

	MockEnabled     bool
	RegistryEnabled bool
	ModelEnabled    bool

	RegistryTimeout time.Duration
	ModelTimeout    time.Duration

	Models ModelConfig
}

// Load reads .env (if present) and the environment. Missing credentials are
// not fatal here; the components that need them report a configuration
// error per request.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		zap.L().Info("no .env file loaded, relying on environment", zap.Error(err))
	}

	cfg := &AppConfig{
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		EdinetAPIKey:    os.Getenv("EDINET_API_KEY"),
		EdinetBase:      getEnv("EDINET_API_BASE", DefaultEdinetBase),
		MockEnabled:     getEnvAsBool("MOCK_ENABLED", true),
		RegistryEnabled: getEnvAsBool("REGISTRY_ENABLED", true),
		ModelEnabled:    getEnvAsBool("MODEL_ENABLED", true),
		RegistryTimeout: getEnvAsDuration("REGISTRY_TIMEOUT", 10*time.Second),
		ModelTimeout:    getEnvAsDuration("MODEL_TIMEOUT", 60*time.Second),
	}

	models, err := LoadModelConfig(getEnv("MODELS_CONFIG", DefaultModelsPath))
	if err != nil {
		return nil, err
	}
	cfg.Models = models

	zap.L().Info("configuration loaded",
		zap.String("port", cfg.Port),
		zap.Bool("mock", cfg.MockEnabled),
		zap.Bool("registry", cfg.RegistryEnabled),
		zap.Bool("model", cfg.ModelEnabled),
		zap.Strings("models", cfg.Models.Models),
	)
	return cfg, nil
}

// LoadModelConfig reads the YAML model list. A missing file yields the
// defaults; a malformed one is an error.
func LoadModelConfig(path string) (ModelConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			zap.L().Warn("model config not found, using defaults", zap.String("path", path))
			return DefaultModelConfig(), nil
		}
		return ModelConfig{}, fmt.Errorf("failed to read model config: %w", err)
	}

	var mc ModelConfig
	if err := yaml.Unmarshal(data, &mc); err != nil {
		return ModelConfig{}, fmt.Errorf("failed to parse model config %s: %w", path, err)
	}
	if len(mc.Models) == 0 {
		return ModelConfig{}, fmt.Errorf("model config %s lists no models", path)
	}
	if mc.AttemptsPerModel <= 0 {
		mc.AttemptsPerModel = 2
	}
	return mc, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	zap.L().Warn("invalid boolean, using default", zap.String("key", key), zap.String("value", valueStr))
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	zap.L().Warn("invalid duration, using default",
		zap.String("key", key), zap.String("value", valueStr), zap.Duration("default", fallback))
	return fallback
}
