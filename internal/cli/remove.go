package cli

import (
	"context"
	"fmt"
)

func (a *App) remove(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: remove <logical-id>")
	}
	logicalID := args[0]

	eng, err := a.newEngine(false)
	if err != nil {
		return err
	}

	if err := eng.Remove(ctx, logicalID); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "%s removed\n", logicalID)
	return nil
}
