package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Ensemble EnsembleConfig
	Cache    CacheConfig
	Reward   RewardConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

// StorageConfig selects the object store backend. "r2" talks to an
// S3-compatible bucket; "memory" keeps objects in-process for local runs.
type StorageConfig struct {
	Backend         string
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

type EnsembleConfig struct {
	APIKey      string
	BaseURL     string
	Backends    []BackendConfig
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

// BackendConfig names one classifier model. JSONMode controls whether the
// provider is asked for a json_object response; some reasoning models reject
// that parameter.
type BackendConfig struct {
	Name     string
	Model    string
	JSONMode bool
}

type CacheConfig struct {
	Backend  string
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type RewardConfig struct {
	CurrentStage string
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/qaforge")

	viper.SetEnvPrefix("QAFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("storage.backend", "r2")
	viper.SetDefault("storage.bucket", "qa-submissions")

	viper.SetDefault("ensemble.baseURL", "https://api.together.xyz/v1")
	viper.SetDefault("ensemble.temperature", 0.2)
	viper.SetDefault("ensemble.maxTokens", 200)
	viper.SetDefault("ensemble.timeoutSec", 30)
	viper.SetDefault("ensemble.backends", []map[string]interface{}{
		{"name": "deepseek", "model": "deepseek-ai/DeepSeek-R1", "jsonmode": false},
		{"name": "mistral", "model": "mistralai/Mistral-7B-Instruct-v0.2", "jsonmode": true},
		{"name": "llama", "model": "meta-llama/Llama-3.3-70B-Instruct-Turbo", "jsonmode": true},
	})

	viper.SetDefault("cache.backend", "memory")
	viper.SetDefault("cache.host", "localhost")
	viper.SetDefault("cache.port", 6379)
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.ttlSec", 86400)

	viper.SetDefault("reward.currentStage", "beta-v1")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
