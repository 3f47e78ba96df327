package ui

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/franksops/dsfetch/fetch"
)

// NewGate returns a confirmation gate that shows the pending download on c
// and reads the answer from in. A whole task needs fetch.ConfirmPhrase typed
// verbatim; a dataset needs y or yes.
func NewGate(c *Console, in io.Reader) fetch.Gate {
	r := bufio.NewReader(in)
	return func(ctx context.Context, p fetch.Prompt) bool {
		if p.Scope == fetch.ScopeTask {
			return confirmTask(c, r, p)
		}
		return confirmDataset(c, r, p)
	}
}

func confirmTask(c *Console, r *bufio.Reader, p fetch.Prompt) bool {
	total := humanize.Bytes(uint64(p.TotalBytes))

	c.println("")
	c.println(errorStyle.Bold(true).Render("BENCHMARK-LEVEL DOWNLOAD"))
	c.println(titleStyle.Render("Task: ") + p.Task)
	c.Statusf("Datasets: %d", p.Datasets)
	c.Statusf("Total files: %d", p.Files)
	c.Statusf("Total size: %s", total)
	c.println("")
	c.println(warnStyle.Render("Please be mindful of bandwidth and storage:"))
	c.println(infoStyle.Render("• This will download " + total + " of research data"))
	c.println(infoStyle.Render("• Consider downloading individual datasets if you don't need everything"))
	c.println(infoStyle.Render("• Downloads will resume if interrupted"))
	c.println("")
	c.println(errorStyle.Bold(true).Render("Type '" + fetch.ConfirmPhrase + "' to proceed:"))

	if readLine(r) != fetch.ConfirmPhrase {
		c.Failuref("Download cancelled. You must type '%s' to proceed.", fetch.ConfirmPhrase)
		return false
	}
	return true
}

func confirmDataset(c *Console, r *bufio.Reader, p fetch.Prompt) bool {
	c.println("")
	c.println(titleStyle.Render("Dataset: ") + p.Dataset)
	c.Statusf("Files: %d", p.Files)
	c.Statusf("Total size: %s", humanize.Bytes(uint64(p.TotalBytes)))
	if p.Existing > 0 {
		c.println(infoStyle.Render("Already downloaded: " + humanize.Comma(int64(p.Existing)) + " files"))
	}
	c.println(warnStyle.Render("To download: " + humanize.Bytes(uint64(p.MissingBytes))))
	c.println("Proceed with download? [y/n]")

	switch strings.ToLower(readLine(r)) {
	case "y", "yes":
		return true
	default:
		c.Failuref("Download cancelled.")
		return false
	}
}

func readLine(r *bufio.Reader) string {
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
