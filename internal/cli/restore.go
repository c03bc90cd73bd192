package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

func (a *App) restore(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: restore <logical-id> [dest]")
	}
	logicalID := args[0]
	dest := filepath.Base(logicalID)
	if len(args) > 1 {
		dest = args[1]
	}

	eng, err := a.newEngine(true)
	if err != nil {
		return err
	}

	plaintext, info, err := eng.Retrieve(ctx, logicalID)
	if err != nil {
		return err
	}
	if info.IntegrityWarning {
		fmt.Fprintf(a.out, "warning: %s no longer matches the local record; the record was flagged\n", logicalID)
	}

	if err := os.WriteFile(dest, plaintext, 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}

	fmt.Fprintf(a.out, "%s restored to %s (%d bytes)\n", logicalID, dest, len(plaintext))
	return nil
}
