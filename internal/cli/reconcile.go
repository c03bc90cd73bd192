package cli

import (
	"context"
	"fmt"
)

func (a *App) reconcile(ctx context.Context, args []string) error {
	backendID := a.backendID("")
	if len(args) > 0 {
		backendID = args[0]
	}

	eng, err := a.newEngine(false)
	if err != nil {
		return err
	}

	report, err := eng.Reconcile(ctx, backendID)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "backend %s: %d tracked, %d matched\n",
		report.BackendID, report.Tracked, report.Matched)
	for _, id := range report.Demoted {
		fmt.Fprintf(a.out, "  demoted (remote lost): %s\n", id)
	}
	for _, p := range report.Orphaned {
		fmt.Fprintf(a.out, "  orphaned remote object: %s\n", p)
	}
	if len(report.Demoted) == 0 && len(report.Orphaned) == 0 {
		fmt.Fprintln(a.out, "  no discrepancies")
	}
	return nil
}
