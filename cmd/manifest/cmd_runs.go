package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var (
	runsLimit  int
	runsOffset int
	runsJSON   bool
)

// runsCmd lists recorded builds
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded manifest builds, most recent first",
	RunE:  runRuns,
}

func init() {
	runsCmd.Flags().IntVarP(&runsLimit, "limit", "n", 20, "Maximum number of runs to list")
	runsCmd.Flags().IntVar(&runsOffset, "offset", 0, "Number of runs to skip")
	runsCmd.Flags().BoolVar(&runsJSON, "json", false, "Print runs as JSON")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), nil)
	if err != nil {
		return err
	}
	defer a.close()

	if a.store == nil {
		return fmt.Errorf("no run store configured (set store.driver to sqlite or postgres)")
	}

	runs, err := a.store.ListRuns(cmd.Context(), runsLimit, runsOffset)
	if err != nil {
		return err
	}

	if runsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN ID\tPROJECT\tSTATUS\tCOHORT\tSTARTED\tOUTPUT")
	for _, run := range runs {
		output := run.OutputPath
		if run.Error != "" {
			output = run.Error
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			run.ID, run.Project, run.Status, run.CohortSize, run.StartedAt.Local().Format(time.RFC3339), output)
	}
	return w.Flush()
}
