package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/ui"
)

var resetForce bool

// resetCmd represents the reset command
var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete all documents in a namespace",
	Long: `Remove a namespace and every document, chunk, and embedding in it.
Other namespaces are untouched.

Examples:
  # Reset the default namespace
  ragout reset

  # Reset a specific namespace without the confirmation prompt
  ragout reset -n alice --force`,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetForce, "force", "f", false, "skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(namespace)
	if err != nil {
		return userError(err, "reset")
	}
	if stats == nil {
		fmt.Printf("Namespace %q is already empty.\n", namespace)
		return nil
	}

	if !resetForce {
		fmt.Printf("This removes %d documents (%d chunks) from namespace %q. Continue? [y/N] ",
			stats.DocumentCount, stats.ChunkCount, namespace)

		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := st.DeleteNamespace(namespace); err != nil {
		return userError(err, "reset")
	}

	fmt.Printf("%s namespace %q (%d documents, %d chunks)\n",
		ui.Success.Render("Reset"), namespace, stats.DocumentCount, stats.ChunkCount)
	return nil
}
