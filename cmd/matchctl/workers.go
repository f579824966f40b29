// cmd/matchctl/workers.go
package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"exchange-matcher/pkg/registry"

	bfm "exchange-matcher/internal/workers/matching/batch-find-matches"
	fm "exchange-matcher/internal/workers/matching/find-matches"
	ow "exchange-matcher/internal/workers/matching/optimize-weights"
	rmf "exchange-matcher/internal/workers/matching/record-match-feedback"
	rm "exchange-matcher/internal/workers/matching/rebuild-matches"
)

// implementedTaskTypes are the task types the worker manager registers.
var implementedTaskTypes = []string{
	fm.TaskType,
	bfm.TaskType,
	rmf.TaskType,
	ow.TaskType,
	rm.TaskType,
}

func listWorkers(w io.Writer, reg *registry.ActivityRegistry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TASK TYPE\tSTATUS\tTIMEOUT\tRETRIES\tERROR CODES")
	for _, t := range implementedTaskTypes {
		a, ok := reg.Find(t)
		if !ok {
			fmt.Fprintf(tw, "%s\tunregistered\t-\t-\t-\n", t)
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n", t, a.ImplementationStatus, a.Timeout, a.Retries, len(a.ErrorCodes))
	}
	return tw.Flush()
}

// checkRegistry validates reg and compares it with the implemented task
// types. Any discrepancy is reported to w and returned as an error.
func checkRegistry(w io.Writer, reg *registry.ActivityRegistry) error {
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry invalid: %w", err)
	}
	missing, stale := reg.Diff(implementedTaskTypes)
	for _, t := range missing {
		fmt.Fprintf(w, "missing from registry: %s\n", t)
	}
	for _, t := range stale {
		fmt.Fprintf(w, "registered but not implemented: %s\n", t)
	}
	if len(missing)+len(stale) > 0 {
		return fmt.Errorf("registry out of sync: %d missing, %d stale", len(missing), len(stale))
	}
	fmt.Fprintf(w, "registry ok: %d activities\n", len(reg.Activities))
	return nil
}

func init() {
	var registryPath string
	workersCmd := &cobra.Command{Use: "workers", Short: "Inspect the Zeebe workers this service implements"}
	workersCmd.PersistentFlags().StringVar(&registryPath, "registry", "configs/activity-registry.json", "Path to the activity registry")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List implemented task types with their registry entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			return listWorkers(cmd.OutOrStdout(), reg)
		},
	}
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Verify the activity registry matches the implemented workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.LoadRegistry(registryPath)
			if err != nil {
				return err
			}
			return checkRegistry(cmd.OutOrStdout(), reg)
		},
	}
	workersCmd.AddCommand(listCmd, checkCmd)
	rootCmd.AddCommand(workersCmd)
}
