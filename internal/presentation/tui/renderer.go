package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/wetbench/labsim/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
// It detects light/dark terminal backgrounds automatically.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// RunLogMarkdown builds a markdown report for a finished run: one nested
// bullet per command, with captured diagnostics quoted underneath.
func RunLogMarkdown(fileName string, runlog domain.RunLog, text string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Run log: %s\n\n", fileName)
	fmt.Fprintf(&b, "%d top-level commands\n\n", countTopLevel(runlog))

	for _, line := range strings.Split(text, "\n") {
		depth := 0
		for depth < len(line) && line[depth] == '\t' {
			depth++
		}
		body := line[depth:]
		if body == "" {
			continue
		}
		fmt.Fprintf(&b, "%s- %s\n", strings.Repeat("  ", depth), body)
	}
	return b.String()
}

func countTopLevel(runlog domain.RunLog) int {
	n := 0
	for _, span := range runlog {
		if span.Level == 0 {
			n++
		}
	}
	return n
}

// Colorize highlights a rendered run log for terminal output: captured
// warnings in amber, errors in red, the log separator faint. The command
// lines themselves stay uncolored.
func Colorize(text string) string {
	p := termenv.ColorProfile()

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, "\t")
		switch {
		case strings.HasPrefix(trimmed, "ERROR ") || strings.HasPrefix(trimmed, "ERROR+"):
			lines[i] = termenv.String(line).Foreground(p.Color("#f87171")).String()
		case strings.HasPrefix(trimmed, "WARN"):
			lines[i] = termenv.String(line).Foreground(p.Color("#fbbf24")).String()
		case trimmed == "Logs from this command:":
			lines[i] = termenv.String(line).Faint().String()
		}
	}
	return strings.Join(lines, "\n")
}
