package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/ui"
)

var statusAll bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show namespaces and store statistics",
	Long: `Display information about stored namespaces including:
- Number of documents and chunks
- Embedding dimensions
- Last update time

Examples:
  # Show status for the selected namespace
  ragout status

  # Show all namespaces
  ragout status --all`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "show all namespaces")
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	records, err := st.ListNamespaces()
	if err != nil {
		return fmt.Errorf("failed to list namespaces: %w", err)
	}

	if len(records) == 0 {
		fmt.Println("No documents stored yet.")
		fmt.Println()
		fmt.Println("Run 'ragout ingest <path>' to add some.")
		return nil
	}

	if !statusAll {
		filtered := records[:0]
		for _, ns := range records {
			if ns.Name == namespace {
				filtered = append(filtered, ns)
			}
		}
		if len(filtered) == 0 {
			fmt.Printf("Namespace %q is empty. Use --all to see every namespace.\n", namespace)
			return nil
		}
		records = filtered
	}

	fmt.Println(ui.Header.Render("Store Status"))
	fmt.Println()

	for i, ns := range records {
		stats, err := st.Stats(ns.Name)
		if err != nil {
			log.Warn("Failed to get stats", "namespace", ns.Name, "error", err)
			continue
		}

		fmt.Printf("%s %s\n",
			ui.Citation.Render("Namespace:"),
			ui.Bold.Render(ns.Name),
		)
		fmt.Printf("  %s %d documents, %d chunks\n",
			ui.Dim.Render("Stored:"),
			stats.DocumentCount,
			stats.ChunkCount,
		)
		fmt.Printf("  %s %d\n",
			ui.Dim.Render("Dimensions:"),
			ns.Dimensions,
		)
		fmt.Printf("  %s %s\n",
			ui.Dim.Render("Updated:"),
			formatTime(ns.UpdatedAt),
		)

		if i < len(records)-1 {
			fmt.Println(ui.HorizontalRule(32))
		}
	}

	if len(records) > 1 {
		fmt.Println()
		fmt.Println(ui.Dim.Render(fmt.Sprintf("Total: %d namespaces", len(records))))
	}

	fmt.Println()
	fmt.Println(ui.Dim.Render("Configuration:"))
	fmt.Printf("  Store: %s (%s)\n", cfg.Store.Path, cfg.Store.Backend)
	fmt.Printf("  Embedding Provider: %s\n", cfg.Embeddings.Provider)
	fmt.Printf("  LLM Provider: %s\n", cfg.LLM.Provider)

	return nil
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "today at " + t.Format("15:04")
	}
	if t.Year() == now.Year() {
		return t.Format("Jan 2 at 15:04")
	}
	return t.Format("Jan 2, 2006 at 15:04")
}
