// Package config handles configuration loading and validation for ragout.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/viper"
)

// Config represents the complete ragout configuration.
type Config struct {
	Embeddings EmbeddingsConfig `mapstructure:"embeddings"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Store      StoreConfig      `mapstructure:"store"`
	Ingest     IngestConfig     `mapstructure:"ingest"`
	Retrieval  RetrievalConfig  `mapstructure:"retrieval"`
	Answer     AnswerConfig     `mapstructure:"answer"`
	Providers  ProvidersConfig  `mapstructure:"providers"`
}

// EmbeddingsConfig configures the embedding service.
type EmbeddingsConfig struct {
	Provider  string            `mapstructure:"provider"`
	BatchSize int               `mapstructure:"batch_size"`
	Ollama    OllamaEmbedConfig `mapstructure:"ollama"`
	OpenAI    OpenAIEmbedConfig `mapstructure:"openai"`
}

// OllamaEmbedConfig configures Ollama embeddings.
type OllamaEmbedConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAIEmbedConfig configures OpenAI embeddings.
type OpenAIEmbedConfig struct {
	Model      string `mapstructure:"model"`
	BaseURL    string `mapstructure:"base_url"`
	APIKey     string `mapstructure:"api_key"`
	Dimensions int    `mapstructure:"dimensions"`
}

// LLMConfig configures the generation service used for answers.
type LLMConfig struct {
	Provider  string          `mapstructure:"provider"`
	Ollama    OllamaLLMConfig `mapstructure:"ollama"`
	OpenAI    OpenAILLMConfig `mapstructure:"openai"`
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
}

// OllamaLLMConfig configures the Ollama generation model.
type OllamaLLMConfig struct {
	URL   string `mapstructure:"url"`
	Model string `mapstructure:"model"`
}

// OpenAILLMConfig configures the OpenAI generation model.
type OpenAILLMConfig struct {
	Model   string `mapstructure:"model"`
	BaseURL string `mapstructure:"base_url"`
	APIKey  string `mapstructure:"api_key"`
}

// AnthropicConfig configures the Anthropic generation model.
type AnthropicConfig struct {
	Model  string `mapstructure:"model"`
	APIKey string `mapstructure:"api_key"`
}

// StoreConfig configures the vector store backend.
type StoreConfig struct {
	// Backend selects "sqlite" (durable) or "memory" (ephemeral).
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
}

// IngestConfig configures document ingestion.
type IngestConfig struct {
	ChunkSize       int      `mapstructure:"chunk_size"`
	ChunkOverlap    int      `mapstructure:"chunk_overlap"`
	MaxDocumentSize int      `mapstructure:"max_document_size"`
	Ignore          []string `mapstructure:"ignore"`
}

// RetrievalConfig configures similarity search.
type RetrievalConfig struct {
	TopK     int     `mapstructure:"top_k"`
	MinScore float64 `mapstructure:"min_score"`
}

// AnswerConfig configures answer synthesis.
type AnswerConfig struct {
	// EmptyContext is the fixed policy when retrieval finds nothing:
	// "refuse" or "general".
	EmptyContext string `mapstructure:"empty_context"`

	// FallbackNamespace, when set, is searched whenever the user's own
	// namespace has no entries (a shared pre-loaded document library).
	FallbackNamespace string `mapstructure:"fallback_namespace"`

	MaxContextChars int     `mapstructure:"max_context_chars"`
	Temperature     float64 `mapstructure:"temperature"`
	MaxTokens       int     `mapstructure:"max_tokens"`
}

// ProvidersConfig bounds provider network calls.
type ProvidersConfig struct {
	Timeout       time.Duration `mapstructure:"timeout"`
	RetryAttempts int           `mapstructure:"retry_attempts"`
	RetryBase     time.Duration `mapstructure:"retry_base_delay"`
	RetryMax      time.Duration `mapstructure:"retry_max_delay"`
}

// Global configuration instance
var cfg *Config

// Get returns the current configuration.
func Get() *Config {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return cfg
}

// DefaultConfig returns a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Embeddings: EmbeddingsConfig{
			Provider:  DefaultEmbeddingProvider,
			BatchSize: DefaultEmbedBatchSize,
			Ollama: OllamaEmbedConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaEmbedModel,
			},
			OpenAI: OpenAIEmbedConfig{
				Model: DefaultOpenAIEmbedModel,
			},
		},
		LLM: LLMConfig{
			Provider: DefaultLLMProvider,
			Ollama: OllamaLLMConfig{
				URL:   DefaultOllamaURL,
				Model: DefaultOllamaLLMModel,
			},
			OpenAI: OpenAILLMConfig{
				Model: DefaultOpenAILLMModel,
			},
			Anthropic: AnthropicConfig{
				Model: DefaultAnthropicModel,
			},
		},
		Store: StoreConfig{
			Backend: DefaultStoreBackend,
			Path:    DefaultDatabasePath(),
		},
		Ingest: IngestConfig{
			ChunkSize:       DefaultChunkSize,
			ChunkOverlap:    DefaultChunkOverlap,
			MaxDocumentSize: DefaultMaxDocumentSize,
			Ignore:          DefaultIgnorePatterns(),
		},
		Retrieval: RetrievalConfig{
			TopK: DefaultTopK,
		},
		Answer: AnswerConfig{
			EmptyContext:    DefaultEmptyContextPolicy,
			MaxContextChars: DefaultMaxContextChars,
			Temperature:     DefaultAnswerTemperature,
			MaxTokens:       DefaultAnswerMaxTokens,
		},
		Providers: ProvidersConfig{
			Timeout:       DefaultProviderTimeout,
			RetryAttempts: DefaultRetryAttempts,
			RetryBase:     DefaultRetryBaseDelay,
			RetryMax:      DefaultRetryMaxDelay,
		},
	}
}

// Load reads configuration from file and environment variables.
func Load(configFile string) error {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(DefaultConfigDir())
		viper.AddConfigPath(".")
	}

	// Environment variables, e.g. RAGOUT_LLM_PROVIDER
	viper.SetEnvPrefix("RAGOUT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		log.Debug("No config file found, using defaults")
	} else {
		log.Debug("Loaded config from", "file", viper.ConfigFileUsed())
	}

	cfg = &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}

	loadAPIKeysFromEnv()

	return cfg.Validate()
}

// Validate checks values that would otherwise fail deep inside a pipeline.
func (c *Config) Validate() error {
	if c.Ingest.ChunkSize <= 0 {
		return fmt.Errorf("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		return fmt.Errorf("ingest.chunk_overlap must satisfy 0 <= overlap < chunk_size, got %d", c.Ingest.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	switch c.Answer.EmptyContext {
	case EmptyContextRefuse, EmptyContextGeneral:
	default:
		return fmt.Errorf("answer.empty_context must be %q or %q, got %q",
			EmptyContextRefuse, EmptyContextGeneral, c.Answer.EmptyContext)
	}
	switch c.Store.Backend {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("store.backend must be \"sqlite\" or \"memory\", got %q", c.Store.Backend)
	}
	return nil
}

// setDefaults sets default values in viper.
func setDefaults() {
	viper.SetDefault("embeddings.provider", DefaultEmbeddingProvider)
	viper.SetDefault("embeddings.batch_size", DefaultEmbedBatchSize)
	viper.SetDefault("embeddings.ollama.url", DefaultOllamaURL)
	viper.SetDefault("embeddings.ollama.model", DefaultOllamaEmbedModel)
	viper.SetDefault("embeddings.openai.model", DefaultOpenAIEmbedModel)

	viper.SetDefault("llm.provider", DefaultLLMProvider)
	viper.SetDefault("llm.ollama.url", DefaultOllamaURL)
	viper.SetDefault("llm.ollama.model", DefaultOllamaLLMModel)
	viper.SetDefault("llm.openai.model", DefaultOpenAILLMModel)
	viper.SetDefault("llm.anthropic.model", DefaultAnthropicModel)

	viper.SetDefault("store.backend", DefaultStoreBackend)
	viper.SetDefault("store.path", DefaultDatabasePath())

	viper.SetDefault("ingest.chunk_size", DefaultChunkSize)
	viper.SetDefault("ingest.chunk_overlap", DefaultChunkOverlap)
	viper.SetDefault("ingest.max_document_size", DefaultMaxDocumentSize)
	viper.SetDefault("ingest.ignore", DefaultIgnorePatterns())

	viper.SetDefault("retrieval.top_k", DefaultTopK)
	viper.SetDefault("retrieval.min_score", 0.0)

	viper.SetDefault("answer.empty_context", DefaultEmptyContextPolicy)
	viper.SetDefault("answer.fallback_namespace", "")
	viper.SetDefault("answer.max_context_chars", DefaultMaxContextChars)
	viper.SetDefault("answer.temperature", DefaultAnswerTemperature)
	viper.SetDefault("answer.max_tokens", DefaultAnswerMaxTokens)

	viper.SetDefault("providers.timeout", DefaultProviderTimeout)
	viper.SetDefault("providers.retry_attempts", DefaultRetryAttempts)
	viper.SetDefault("providers.retry_base_delay", DefaultRetryBaseDelay)
	viper.SetDefault("providers.retry_max_delay", DefaultRetryMaxDelay)
}

// loadAPIKeysFromEnv loads API keys from environment variables if not already set.
func loadAPIKeysFromEnv() {
	if cfg.Embeddings.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.Embeddings.OpenAI.APIKey = key
		}
	}
	if cfg.LLM.OpenAI.APIKey == "" {
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			cfg.LLM.OpenAI.APIKey = key
		}
	}
	if cfg.LLM.Anthropic.APIKey == "" {
		if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
			cfg.LLM.Anthropic.APIKey = key
		}
	}
}

// ConfigFilePath returns the path of the loaded config file, or empty string if none.
func ConfigFilePath() string {
	return viper.ConfigFileUsed()
}
