package labsim

import (
	"fmt"
	"strings"

	"github.com/wetbench/labsim/pkg/domain"
)

// FormatRunLog renders a run log into human-readable text. Each span is
// indented one tab per nesting level; its payload's "text" template is
// rendered by substituting {name} placeholders from fields of that same
// payload, and any captured log records follow on their own lines.
//
// The function is pure: identical input yields identical text and no other
// component's state is touched. A placeholder referencing a key absent from
// its payload is a FormatError, never a silent default; the error leaves
// the run log itself untouched.
func FormatRunLog(runlog domain.RunLog) (string, error) {
	lines := make([]string, 0, len(runlog))
	for _, span := range runlog {
		indent := strings.Repeat("\t", span.Level)

		text, err := renderPayload(span.Payload)
		if err != nil {
			return "", err
		}
		lines = append(lines, indent+text)

		if len(span.Logs) == 0 {
			continue
		}
		lines = append(lines, indent+"Logs from this command:")
		for _, rec := range span.Logs {
			lines = append(lines, indent+formatLogRecord(rec))
		}
	}
	return strings.Join(lines, "\n"), nil
}

// renderPayload substitutes {name} placeholders in the payload's "text"
// template from that payload's own flat keys. A payload without a text
// field renders as the empty string.
func renderPayload(payload map[string]any) (string, error) {
	tmpl, _ := payload["text"].(string)

	var sb strings.Builder
	for i := 0; i < len(tmpl); i++ {
		if tmpl[i] != '{' {
			sb.WriteByte(tmpl[i])
			continue
		}
		end := strings.IndexByte(tmpl[i:], '}')
		if end < 0 {
			sb.WriteString(tmpl[i:])
			break
		}
		key := tmpl[i+1 : i+end]
		value, ok := payload[key]
		if !ok {
			return "", &domain.FormatError{Key: key, Template: tmpl}
		}
		fmt.Fprintf(&sb, "%v", value)
		i += end
	}
	return sb.String(), nil
}

func formatLogRecord(rec domain.LogRecord) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s): %s", rec.Level.String(), rec.Module, rec.Message)
	for i := 0; i+1 < len(rec.Args); i += 2 {
		fmt.Fprintf(&sb, " %v=%v", rec.Args[i], rec.Args[i+1])
	}
	return sb.String()
}
