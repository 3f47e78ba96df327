package main

import (
	"encoding/json"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/franksops/dsfetch/fetch"
	"github.com/franksops/dsfetch/provider"
	"github.com/franksops/dsfetch/ui"
)

type datasetJSON struct {
	provider.DatasetSummary
	SizeHuman string `json:"size_human"`
}

func newListCmd(root *rootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list [task [dataset]]",
		Short: "List tasks, the datasets of a task, or the files of a dataset",
		Example: `  dsfetch list
  dsfetch list denoising
  dsfetch list denoising cellxgene_census/dkd/log_cp10k --json`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				if asJSON {
					return printJSON(fetch.Tasks)
				}
				fmt.Println(ui.RenderTasks(fetch.Tasks))
				return nil
			}

			a, err := newApp(cmd.Context(), root)
			if err != nil {
				return err
			}
			defer a.Close()

			task := args[0]
			if len(args) == 1 {
				datasets, err := a.fetcher.Datasets(cmd.Context(), task)
				if err != nil {
					return err
				}
				if asJSON {
					out := make([]datasetJSON, 0, len(datasets))
					for _, d := range datasets {
						out = append(out, datasetJSON{DatasetSummary: d, SizeHuman: humanize.Bytes(uint64(d.TotalBytes))})
					}
					return printJSON(out)
				}
				fmt.Println(ui.RenderDatasets(task, datasets))
				return nil
			}

			dataset := args[1]
			files, err := a.fetcher.Files(cmd.Context(), task, dataset)
			if err != nil {
				return err
			}
			if asJSON {
				if files == nil {
					files = []provider.FileRecord{}
				}
				return printJSON(files)
			}
			fmt.Println(ui.RenderFiles(task, dataset, files))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printJSON(data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
