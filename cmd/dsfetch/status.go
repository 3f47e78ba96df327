package main

import (
	"fmt"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/franksops/dsfetch/config"
	"github.com/franksops/dsfetch/store"
	"github.com/franksops/dsfetch/ui"
)

var jobStates = []store.JobState{
	store.StatePending,
	store.StateInProgress,
	store.StateCompleted,
	store.StateFailed,
}

func newStatusCmd(root *rootOptions) *cobra.Command {
	var (
		state  string
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recorded transfers, the failed ones by default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(jobStates, store.JobState(state)) {
				return fmt.Errorf("unknown state %q (want one of %v)", state, jobStates)
			}

			cfg, err := config.Load(root.configFile)
			if err != nil {
				return err
			}
			st, err := openStore(cfg)
			if err != nil {
				return fmt.Errorf("transfer records unavailable: %w", err)
			}
			defer st.Close()

			jobs, err := st.ListJobs(store.JobState(state))
			if err != nil {
				return err
			}

			if asJSON {
				if jobs == nil {
					jobs = []*store.JobRecord{}
				}
				return printJSON(jobs)
			}
			if len(jobs) == 0 {
				ui.NewConsole(os.Stderr).Statusf("No %s transfers recorded.", state)
				return nil
			}
			fmt.Println(ui.RenderJobs(store.JobState(state), jobs))
			return nil
		},
	}

	cmd.Flags().StringVar(&state, "state", string(store.StateFailed), "transfer state to show (Pending, InProgress, Completed, Failed)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}
