package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/franksops/dsfetch/config"
	"github.com/franksops/dsfetch/ui"
)

var errIncomplete = errors.New("some downloads failed")

func newFetchCmd(root *rootOptions) *cobra.Command {
	var workers int

	cmd := &cobra.Command{
		Use:   "fetch <task> [dataset [file]]",
		Short: "Download a whole task, one dataset, or a single file",
		Example: `  # every dataset of a task (asks for confirmation)
  dsfetch fetch denoising

  # one dataset with 4 parallel downloads
  dsfetch fetch denoising cellxgene_census/dkd/log_cp10k --workers 4

  # a single file
  dsfetch fetch denoising cellxgene_census/dkd/log_cp10k state.yaml`,
		Args: cobra.RangeArgs(1, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			var overrides []func(*config.Config)
			if cmd.Flags().Changed("workers") {
				if workers < 1 {
					return fmt.Errorf("--workers must be at least 1")
				}
				overrides = append(overrides, func(c *config.Config) { c.Workers = workers })
			}

			a, err := newApp(cmd.Context(), root, overrides...)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			gate := ui.NewGate(a.console, os.Stdin)
			task := args[0]

			var ok bool
			switch len(args) {
			case 1:
				ok, err = a.fetcher.FetchTask(ctx, task, gate)
			case 2:
				ok, err = a.fetcher.FetchDataset(ctx, task, args[1], "", gate)
			default:
				a.console.SetProgressBars(isatty.IsTerminal(os.Stderr.Fd()))
				ok, err = a.fetcher.FetchDataset(ctx, task, args[1], args[2], gate)
			}
			if err != nil {
				return err
			}
			if !ok {
				return errIncomplete
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&workers, "workers", "w", 8, "number of parallel downloads")
	return cmd
}
