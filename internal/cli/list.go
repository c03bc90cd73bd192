package cli

import (
	"context"
	"fmt"

	"github.com/gpgcloud/gpgcloud/internal/repositories/objects"
)

func (a *App) list(ctx context.Context, args []string) error {
	filter := objects.Filter{}
	if len(args) > 0 && args[0] == "-a" {
		filter.IncludeTombstones = true
	}

	items, err := a.repo.List(ctx, filter)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No tracked objects.")
		return nil
	}

	for _, o := range items {
		fmt.Fprintf(a.out, "%-13s %-10s %8d  %s  %s\n",
			o.State, o.BackendID, o.EncryptedSize, o.UpdatedAt.Format("2006-01-02 15:04:05"), o.LogicalID)
	}
	return nil
}
