package fetch

import (
	"fmt"
	"slices"
)

// Tasks lists the benchmark tasks whose datasets can be fetched.
var Tasks = []string{
	"batch_integration",
	"cell_cell_communication_source_target",
	"cell_cell_communication_ligand_target",
	"denoising",
	"dimensionality_reduction",
	"label_projection",
	"matching_modalities",
	"perturbation_prediction",
	"predict_modality",
	"spatial_decomposition",
	"spatially_variable_genes",
}

// taskPaths maps tasks whose bucket directory differs from their name.
var taskPaths = map[string]string{
	"cell_cell_communication_source_target": "cell_cell_communication",
	"cell_cell_communication_ligand_target": "cell_cell_communication",
}

// KnownTask reports whether task is in Tasks.
func KnownTask(task string) bool {
	return slices.Contains(Tasks, task)
}

// StoragePath returns the bucket directory holding the datasets of task.
func StoragePath(task string) string {
	if p, ok := taskPaths[task]; ok {
		return p
	}
	return task
}

func checkTask(task string) error {
	if !KnownTask(task) {
		return fmt.Errorf("%w: %q", ErrUnknownTask, task)
	}
	return nil
}
