package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wetbench/labsim/pkg/domain"
)

func TestRunLogMarkdown(t *testing.T) {
	runlog := domain.RunLog{
		{Level: 0, Payload: map[string]any{"text": "Transferring 1 from A1 to A4"}},
		{Level: 1, Payload: map[string]any{"text": "Picking up tip A1"}},
	}
	text := "Transferring 1 from A1 to A4\n\tPicking up tip A1"

	md := RunLogMarkdown("proto.py", runlog, text)

	assert.True(t, strings.HasPrefix(md, "# Run log: proto.py"))
	assert.Contains(t, md, "1 top-level commands")
	assert.Contains(t, md, "- Transferring 1 from A1 to A4")
	assert.Contains(t, md, "  - Picking up tip A1")
}

func TestColorizeKeepsContent(t *testing.T) {
	text := "Aspirating 10 uL\nLogs from this command:\nWARN (proto): low volume"

	out := Colorize(text)

	// Styling may be a no-op without a TTY, but the content survives.
	for _, want := range []string{"Aspirating 10 uL", "Logs from this command:", "low volume"} {
		assert.Contains(t, out, want)
	}
	assert.Len(t, strings.Split(out, "\n"), 3)
}
