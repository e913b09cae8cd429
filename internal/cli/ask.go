package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/ui"
)

var (
	askPlain     bool
	askNoSources bool
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about your documents",
	Long: `Retrieve the most relevant chunks from the namespace's documents and
generate a grounded answer with the configured LLM.

When nothing relevant is found, the configured empty-context policy
decides whether ragout refuses or answers from general knowledge.

Examples:
  # Ask about your documents
  ragout ask "what does chapter 3 say about braising?"

  # Ask in a specific namespace
  ragout ask -n alice "when is the deadline?"

  # Plain output, no markdown rendering
  ragout ask --plain "summarize the contract"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askPlain, "plain", false, "print the raw answer without markdown rendering")
	askCmd.Flags().BoolVar(&askNoSources, "no-sources", false, "do not list source documents")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	q, err := newQueryPipeline(cfg, st)
	if err != nil {
		return err
	}

	stopSpinner := make(chan struct{})
	spinnerDone := make(chan struct{})
	go showSpinner("Thinking", stopSpinner, spinnerDone)

	answer, err := q.Ask(ctx, namespace, question)

	close(stopSpinner)
	<-spinnerDone

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return userError(err, "ask")
	}

	if askPlain {
		fmt.Println(answer.Text)
	} else {
		rendered, err := renderMarkdown(answer.Text)
		if err != nil {
			fmt.Println(answer.Text)
		} else {
			fmt.Print(rendered)
		}
	}

	if !askNoSources && len(answer.Sources) > 0 {
		fmt.Println(ui.Dim.Render("Sources:"))
		for i, sc := range answer.Sources {
			fmt.Printf("  [%d] %s %s\n",
				i+1,
				ui.FormatSource(sc.Chunk.SourceID, sc.Chunk.Index),
				ui.FormatScore(sc.Score),
			)
		}
	}

	return nil
}

// showSpinner displays an animated spinner until stopCh is closed.
func showSpinner(message string, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(doneCh)

	i := 0
	for {
		select {
		case <-stopCh:
			// Clear spinner line
			fmt.Print("\r\033[2K")
			return
		case <-ticker.C:
			fmt.Printf("\r%s %s", ui.Citation.Render(frames[i]), message)
			i = (i + 1) % len(frames)
		}
	}
}

// renderMarkdown renders markdown content using glamour.
func renderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(content)
}
