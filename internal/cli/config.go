package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/ui"
)

var configShowPath bool

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or manage configuration",
	Long: `Display current configuration settings and config file locations.

Examples:
  # Show current configuration
  ragout config

  # Show config file paths
  ragout config --path`,
	RunE: runConfig,
}

func init() {
	configCmd.Flags().BoolVar(&configShowPath, "path", false, "show config file paths")
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	if configShowPath {
		fmt.Println(ui.SectionTitle.Render("Configuration Paths"))
		fmt.Println()
		fmt.Printf("Config dir:    %s\n", config.DefaultConfigDir())
		fmt.Printf("Active config: %s\n", config.ConfigFilePath())
		fmt.Printf("Store:         %s\n", cfg.Store.Path)
		return nil
	}

	fmt.Println(ui.SectionTitle.Render("Current Configuration"))
	fmt.Println()

	fmt.Println(ui.Bold.Render("Embeddings:"))
	fmt.Printf("  Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Printf("  Batch Size: %d\n", cfg.Embeddings.BatchSize)
	fmt.Printf("  Ollama URL: %s\n", cfg.Embeddings.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.Embeddings.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.Embeddings.OpenAI.Model)
	if cfg.Embeddings.OpenAI.BaseURL != "" {
		fmt.Printf("  OpenAI Base URL: %s\n", cfg.Embeddings.OpenAI.BaseURL)
	}
	fmt.Println()

	fmt.Println(ui.Bold.Render("LLM:"))
	fmt.Printf("  Provider: %s\n", cfg.LLM.Provider)
	fmt.Printf("  Ollama URL: %s\n", cfg.LLM.Ollama.URL)
	fmt.Printf("  Ollama Model: %s\n", cfg.LLM.Ollama.Model)
	fmt.Printf("  OpenAI Model: %s\n", cfg.LLM.OpenAI.Model)
	fmt.Printf("  Anthropic Model: %s\n", cfg.LLM.Anthropic.Model)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Ingestion:"))
	fmt.Printf("  Chunk Size: %d\n", cfg.Ingest.ChunkSize)
	fmt.Printf("  Chunk Overlap: %d\n", cfg.Ingest.ChunkOverlap)
	fmt.Printf("  Max Document Size: %d bytes\n", cfg.Ingest.MaxDocumentSize)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Retrieval:"))
	fmt.Printf("  Top K: %d\n", cfg.Retrieval.TopK)
	fmt.Printf("  Min Score: %.2f\n", cfg.Retrieval.MinScore)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Answers:"))
	fmt.Printf("  Empty Context Policy: %s\n", cfg.Answer.EmptyContext)
	if cfg.Answer.FallbackNamespace != "" {
		fmt.Printf("  Fallback Namespace: %s\n", cfg.Answer.FallbackNamespace)
	}
	fmt.Printf("  Max Context Chars: %d\n", cfg.Answer.MaxContextChars)
	fmt.Printf("  Temperature: %.2f\n", cfg.Answer.Temperature)
	fmt.Println()

	fmt.Println(ui.Bold.Render("Store:"))
	fmt.Printf("  Backend: %s\n", cfg.Store.Backend)
	fmt.Printf("  Path: %s\n", cfg.Store.Path)

	return nil
}
