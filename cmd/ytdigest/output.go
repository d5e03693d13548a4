package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"ytdigest/internal/pipeline"
)

const (
	ansiReset  = "\033[0m"
	ansiGreen  = "\033[32m"
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
)

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func outcomeLine(o pipeline.Outcome, colorize bool) string {
	line := o.Line()
	if !colorize {
		return line
	}
	switch o.Status() {
	case "success":
		return ansiGreen + line + ansiReset
	case "failed":
		return ansiRed + line + ansiReset
	default:
		return ansiYellow + line + ansiReset
	}
}

func statsTable(stats pipeline.Stats) string {
	return renderPairs("Processing stats", [][2]string{
		{"Total time", stats.Elapsed.Round(time.Millisecond).String()},
		{"Videos", fmt.Sprintf("%d", stats.Total)},
		{"Succeeded", fmt.Sprintf("%d", stats.Succeeded)},
		{"Failed", fmt.Sprintf("%d", stats.Failed)},
		{"Skipped", fmt.Sprintf("%d", stats.Skipped)},
		{"Success rate", fmt.Sprintf("%.1f%%", stats.SuccessRate())},
		{"Avg caption chars", fmt.Sprintf("%d", stats.AverageCaptionChars())},
		{"Avg summary chars", fmt.Sprintf("%d", stats.AverageSummaryChars())},
	})
}
