package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ragout/ragout/internal/config"
	"github.com/ragout/ragout/internal/domain"
	"github.com/ragout/ragout/internal/extract"
	"github.com/ragout/ragout/internal/library"
	"github.com/ragout/ragout/internal/pipeline"
	"github.com/ragout/ragout/internal/ui"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Ingest a document or a directory of documents",
	Long: `Extract text from a document, split it into chunks, embed the chunks,
and store them in the namespace's collection.

PDF, plain text, and markdown files are supported. A directory is
scanned recursively; unsupported files are skipped. Re-ingesting an
unchanged document is a no-op.

Examples:
  # Ingest one document
  ragout ingest manual.pdf

  # Ingest a directory
  ragout ingest ./docs

  # Ingest into a specific namespace
  ragout ingest -n alice notes.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg := config.Get()

	ctx, cancel := signalContext()
	defer cancel()

	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	p, err := newIngestionPipeline(cfg, st)
	if err != nil {
		return err
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	if info.IsDir() {
		return ingestDirectory(ctx, cfg, p, path)
	}
	return ingestFile(ctx, cfg, p, path, filepath.Base(path))
}

// ingestFile ingests a single document.
func ingestFile(ctx context.Context, cfg *config.Config, p *pipeline.IngestionPipeline, path, sourceID string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", path, err)
	}

	text, err := extract.Text(path, data)
	if err != nil {
		return userError(err, "extract")
	}

	result, err := p.Ingest(ctx, domain.Document{
		Namespace: namespace,
		SourceID:  sourceID,
		Text:      text,
	})
	if err != nil {
		return userError(err, "ingest")
	}

	if result.Skipped {
		fmt.Printf("%s %s (unchanged, %d chunks)\n",
			ui.Dim.Render("skipped"), sourceID, result.Chunks)
	} else {
		fmt.Printf("%s %s (%d chunks)\n",
			ui.Success.Render("ingested"), sourceID, result.Chunks)
	}
	return nil
}

// ingestDirectory scans a directory and ingests every supported document.
func ingestDirectory(ctx context.Context, cfg *config.Config, p *pipeline.IngestionPipeline, root string) error {
	scanner, err := library.NewScanner(library.Options{
		Root:           root,
		MaxFileSize:    int64(cfg.Ingest.MaxDocumentSize),
		IgnorePatterns: cfg.Ingest.Ignore,
	})
	if err != nil {
		return err
	}

	var ingested, skipped int
	err = scanner.Scan(func(e library.Entry) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := ingestFile(ctx, cfg, p, e.Path, filepath.ToSlash(e.RelPath)); err != nil {
			// A bad document should not abort the rest of the scan.
			if errors.Is(err, domain.ErrUnsupportedFormat) || errors.Is(err, domain.ErrInvalidArgument) {
				log.Warn("Skipping document", "path", e.RelPath, "error", err)
				skipped++
				return nil
			}
			return err
		}
		ingested++
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	fmt.Println()
	fmt.Printf("%s %d documents into namespace %q",
		ui.Success.Render("Ingested"), ingested, namespace)
	if skipped > 0 {
		fmt.Printf(" (%s)", ui.Warning.Render(fmt.Sprintf("%d skipped", skipped)))
	}
	fmt.Println()
	return nil
}

// signalContext returns a context canceled by SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted")
		cancel()
	}()

	return ctx, cancel
}
