// Copyright (c) 2026 Beijing Volcano Engine Technology Co., Ltd.
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration management for OpenViking.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the single immutable configuration document for an OpenViking
// process, matching the sections exactly: embedding, vlm, rerank, storage,
// server. It is constructed once at startup by Load and passed by value (or
// pointer) into each component's constructor — no package-level singleton.
type Config struct {
	Embedding EmbeddingConfig `mapstructure:"embedding" json:"embedding"`
	VLM       VLMConfig       `mapstructure:"vlm" json:"vlm"`
	Rerank    RerankConfig    `mapstructure:"rerank" json:"rerank"`
	Storage   StorageConfig   `mapstructure:"storage" json:"storage"`
	Server    ServerConfig    `mapstructure:"server" json:"server"`
}

// EmbeddingConfig configures the dense + optional sparse embedding pipeline
//. Dense and Sparse are independent so hybrid mode can mix providers.
type EmbeddingConfig struct {
	Dense  EmbeddingModelConfig `mapstructure:"dense" json:"dense"`
	Sparse EmbeddingModelConfig `mapstructure:"sparse" json:"sparse"`
}

// EmbeddingModelConfig is the `embedding.dense.*` / `embedding.sparse.*`
// option set.
type EmbeddingModelConfig struct {
	Provider  string `mapstructure:"provider" json:"provider"`
	Model     string `mapstructure:"model" json:"model"`
	Dimension int    `mapstructure:"dimension" json:"dimension"`
	Input     string `mapstructure:"input" json:"input"`
	BatchSize int    `mapstructure:"batch_size" json:"batch_size"`
}

// VLMConfig is the `vlm.*` section: the model driving per-file summaries
// and L1/L0 composition.
type VLMConfig struct {
	Provider    string  `mapstructure:"provider" json:"provider"`
	Model       string  `mapstructure:"model" json:"model"`
	Temperature float64 `mapstructure:"temperature" json:"temperature"`
	MaxRetries  int     `mapstructure:"max_retries" json:"max_retries"`
}

// RerankConfig is the `rerank.*` section. A zero-value Provider means no
// reranker is configured, so reranking stays off everywhere.
type RerankConfig struct {
	Provider string `mapstructure:"provider" json:"provider"`
	Model    string `mapstructure:"model" json:"model"`
	APIKey   string `mapstructure:"api_key" json:"api_key"`
	BaseURL  string `mapstructure:"base_url" json:"base_url"`
}

// StorageConfig is the `storage.agfs.*` / `storage.vectordb.*`.
type StorageConfig struct {
	AGFS     AGFSConfig     `mapstructure:"agfs" json:"agfs"`
	VectorDB VectorDBConfig `mapstructure:"vectordb" json:"vectordb"`
	Queue    QueueConfig    `mapstructure:"queue" json:"queue"`
}

// AGFSConfig selects and configures the content store backend.
type AGFSConfig struct {
	Backend string `mapstructure:"backend" json:"backend"` // "local" or "memory"; Bootstrap rejects any other value (e.g. "s3")
	Path    string `mapstructure:"path" json:"path"`
	URL     string `mapstructure:"url" json:"url"`
}

// VectorDBConfig selects and configures the vector index backend.
type VectorDBConfig struct {
	Backend      string  `mapstructure:"backend" json:"backend"` // "memory", "qdrant"
	Path         string  `mapstructure:"path" json:"path"`
	URL          string  `mapstructure:"url" json:"url"`
	SparseWeight float64 `mapstructure:"sparse_weight" json:"sparse_weight"`
}

// QueueConfig selects the durable semantic queue backend.
type QueueConfig struct {
	Backend string `mapstructure:"backend" json:"backend"` // "memory", "sqlite", "redis"
	Path    string `mapstructure:"path" json:"path"`
	URL     string `mapstructure:"url" json:"url"`
}

// ServerConfig is the `server.*`, used only by the optional HTTP surface
//.
type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

// ConfigFileEnvVar and CLIConfigFileEnvVar locate the server and CLI
// configuration documents.
const (
	ConfigFileEnvVar    = "OPENVIKING_CONFIG_FILE"
	CLIConfigFileEnvVar = "OPENVIKING_CLI_CONFIG_FILE"
)

// Load loads configuration from file and environment variables. configPath
// takes precedence; if empty, OPENVIKING_CONFIG_FILE is consulted, then the
// default search path.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv(ConfigFileEnvVar)
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.openviking")
		v.AddConfigPath("/etc/openviking")
	}

	v.SetEnvPrefix("OPENVIKING")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadCLI loads the CLI-specific overlay config named by
// OPENVIKING_CLI_CONFIG_FILE, falling back to Load's defaults when unset.
func LoadCLI() (*Config, error) {
	if path := os.Getenv(CLIConfigFileEnvVar); path != "" {
		return Load(path)
	}
	return LoadDefault()
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("embedding.dense.provider", "openai")
	v.SetDefault("embedding.dense.model", "text-embedding-3-small")
	v.SetDefault("embedding.dense.dimension", 1536)
	v.SetDefault("embedding.dense.input", "text")
	v.SetDefault("embedding.dense.batch_size", 16)
	v.SetDefault("embedding.sparse.provider", "")
	v.SetDefault("embedding.sparse.batch_size", 16)

	v.SetDefault("vlm.provider", "anthropic")
	v.SetDefault("vlm.model", "claude-sonnet")
	v.SetDefault("vlm.temperature", 0.2)
	v.SetDefault("vlm.max_retries", 3)

	v.SetDefault("rerank.provider", "")

	v.SetDefault("storage.agfs.backend", "local")
	v.SetDefault("storage.agfs.path", "./data/agfs")
	v.SetDefault("storage.vectordb.backend", "memory")
	v.SetDefault("storage.vectordb.sparse_weight", 0.3)
	v.SetDefault("storage.queue.backend", "sqlite")
	v.SetDefault("storage.queue.path", "./data/queue.db")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
}

// LoadDefault loads configuration with defaults only (no file, no env
// override beyond what's already in the process environment).
func LoadDefault() (*Config, error) {
	return Load("")
}

// Save persists cfg as a canonical JSON document.
func Save(cfg *Config, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetConfigPath returns the default config path under the user's home
// directory.
func GetConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".openviking", "config.json")
}
