package ui

import (
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"

	"github.com/franksops/dsfetch/provider"
	"github.com/franksops/dsfetch/store"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numberStyle = cellStyle.Align(lipgloss.Right)
)

func newTable(rightAligned map[int]bool, headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			if rightAligned[col] {
				return numberStyle
			}
			return cellStyle
		})
}

// RenderTasks renders the list of known tasks.
func RenderTasks(tasks []string) string {
	t := newTable(nil, "Task")
	for _, task := range tasks {
		t.Row(task)
	}
	return titleStyle.Render("Available Tasks") + "\n" + t.String()
}

// RenderDatasets renders the dataset summaries of a task with a total line.
func RenderDatasets(task string, datasets []provider.DatasetSummary) string {
	t := newTable(map[int]bool{1: true, 2: true}, "Dataset", "Size", "Files")
	var total int64
	for _, d := range datasets {
		t.Row(d.Name, humanize.Bytes(uint64(d.TotalBytes)), strconv.Itoa(d.FileCount))
		total += d.TotalBytes
	}
	return titleStyle.Render("Datasets for "+task) + "\n" + t.String() + "\n\n" +
		lipgloss.NewStyle().Bold(true).Render("Total: "+humanize.Bytes(uint64(total)))
}

// RenderFiles renders the file listing of a dataset with a total line.
func RenderFiles(task, dataset string, files []provider.FileRecord) string {
	t := newTable(map[int]bool{1: true}, "File", "Size", "MD5")
	var total int64
	for _, f := range files {
		t.Row(f.Name, humanize.Bytes(uint64(f.Size)), shortChecksum(f.Checksum))
		total += f.Size
	}
	return titleStyle.Render("Files in "+task+"/"+dataset) + "\n" + t.String() + "\n\n" +
		lipgloss.NewStyle().Bold(true).Render("Total: "+humanize.Bytes(uint64(total)))
}

// RenderJobs renders recorded transfers in one state.
func RenderJobs(state store.JobState, jobs []*store.JobRecord) string {
	t := newTable(map[int]bool{1: true}, "File", "Size", "Error")
	for _, j := range jobs {
		t.Row(j.DestinationPath, humanize.Bytes(uint64(j.TotalBytes)), j.Error)
	}
	return titleStyle.Render(string(state)+" transfers") + "\n" + t.String()
}

func shortChecksum(sum string) string {
	if len(sum) > 8 {
		return sum[:8] + "..."
	}
	return sum
}
