package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/ragout/ragout/internal/domain"
)

// userError translates pipeline errors into messages fit for the terminal.
// Unknown errors are logged with their operation context and passed through.
func userError(err error, operation string) error {
	if err == nil {
		return nil
	}

	var perr *domain.PartialIngestionError
	switch {
	case errors.As(err, &perr):
		return fmt.Errorf("%q was only partially ingested: %d chunks stored, %d failed; re-run the ingest to finish (%v)",
			perr.SourceID, len(perr.Stored), len(perr.Failed), perr.Cause)
	case errors.Is(err, domain.ErrProviderUnavailable):
		return fmt.Errorf("the model provider is unavailable right now; try again in a moment (%v)", err)
	case errors.Is(err, domain.ErrDimensionMismatch):
		return fmt.Errorf("the configured embedding model does not match this store; reset the store or switch the model back (%v)", err)
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return fmt.Errorf("unsupported document: %v (supported: .pdf, .txt, .md)", err)
	case errors.Is(err, domain.ErrInvalidArgument):
		return err
	default:
		log.Error("Unexpected error", "namespace", namespace, "operation", operation, "error", err)
		return err
	}
}
