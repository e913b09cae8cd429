package config

import (
	"os"
	"path/filepath"
	"time"
)

// Default configuration values
const (
	// Embedding defaults
	DefaultEmbeddingProvider = "openai"
	DefaultOllamaURL         = "http://localhost:11434"
	DefaultOllamaEmbedModel  = "nomic-embed-text"
	DefaultOpenAIEmbedModel  = "text-embedding-3-small"
	DefaultEmbedBatchSize    = 64

	// LLM defaults
	DefaultLLMProvider    = "openai"
	DefaultOllamaLLMModel = "llama3"
	DefaultOpenAILLMModel = "gpt-4o-mini"
	DefaultAnthropicModel = "claude-3-haiku-20240307"

	// Ingestion defaults. Window parameters follow the original deployment:
	// 1000-rune chunks with 200 runes of overlap.
	DefaultChunkSize       = 1000
	DefaultChunkOverlap    = 200
	DefaultMaxDocumentSize = 20 << 20 // 20MB of extracted text

	// Retrieval defaults
	DefaultTopK = 4

	// Answer defaults
	DefaultEmptyContextPolicy = EmptyContextRefuse
	DefaultMaxContextChars    = 12000
	DefaultAnswerTemperature  = 0.3
	DefaultAnswerMaxTokens    = 2048

	// Provider call defaults
	DefaultProviderTimeout = 60 * time.Second
	DefaultRetryAttempts   = 4
	DefaultRetryBaseDelay  = 500 * time.Millisecond
	DefaultRetryMaxDelay   = 8 * time.Second

	// Store defaults
	DefaultStoreBackend = "sqlite"
	DefaultDBFileName   = "ragout.db"
)

// Empty-context answer policies (see AnswerConfig.EmptyContext).
const (
	// EmptyContextRefuse answers with a fixed "no relevant context" message.
	EmptyContextRefuse = "refuse"

	// EmptyContextGeneral answers from general knowledge, stating that no
	// document context was found.
	EmptyContextGeneral = "general"
)

// DefaultIgnorePatterns returns the gitignore-style patterns skipped during
// bulk directory ingestion.
func DefaultIgnorePatterns() []string {
	return []string{
		".git/",
		".svn/",
		".hg/",
		"node_modules/",
		"vendor/",
		".venv/",
		"venv/",
		"__pycache__/",
		".DS_Store",
		"*.tmp",
		"*.log",
	}
}

// DefaultConfigDir returns the default configuration directory path.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/ragout"
	}
	return filepath.Join(home, ".config", "ragout")
}

// DefaultDataDir returns the default data directory path.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".local/share/ragout"
	}
	return filepath.Join(home, ".local", "share", "ragout")
}

// DefaultDatabasePath returns the default database file path.
func DefaultDatabasePath() string {
	return filepath.Join(DefaultDataDir(), DefaultDBFileName)
}
