package graph

import (
	"fmt"
	"strings"

	"github.com/wetbench/labsim/pkg/domain"
)

// GenerateMermaid produces a Mermaid flowchart syntax string from a run
// log. It applies semantic styling:
// - First command: ((Circle))
// - Compound command (has nested children): [[Subroutine]]
// - Default: [Rectangle]
// Siblings are joined by solid arrows, parents to their first child by a
// dotted arrow, and spans that captured diagnostics are highlighted.
func GenerateMermaid(runlog domain.RunLog) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	// lastAt[d] is the index of the most recent span seen at depth d.
	lastAt := make(map[int]int)
	logged := make([]int, 0)

	for i, span := range runlog {
		id := fmt.Sprintf("c%d", i)

		opener, closer := "[", "]"
		switch {
		case i == 0:
			opener, closer = "((", "))" // Circle
		case isCompound(runlog, i):
			opener, closer = "[[", "]]" // Subroutine
		}

		label := spanLabel(span)
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", id, opener, label, closer))

		if prev, ok := lastAt[span.Level]; ok && sameParent(runlog, prev, i) {
			sb.WriteString(fmt.Sprintf("    c%d --> %s\n", prev, id))
		} else if span.Level > 0 {
			if parent, ok := parentOf(runlog, i); ok {
				sb.WriteString(fmt.Sprintf("    c%d -.-> %s\n", parent, id))
			}
		}
		lastAt[span.Level] = i

		if len(span.Logs) > 0 {
			logged = append(logged, i)
		}
	}

	if len(logged) > 0 {
		sb.WriteString("\n    %% Diagnostic Styles\n")
		// Force black text for high-contrast regardless of theme
		sb.WriteString("    classDef logged fill:#fff3e0,stroke:#e65100,stroke-width:2px,color:#000;\n")
		for _, i := range logged {
			sb.WriteString(fmt.Sprintf("    class c%d logged;\n", i))
		}
	}

	return sb.String()
}

// spanLabel renders the payload text with placeholders stripped to their
// key names, then escapes it for Mermaid.
func spanLabel(span domain.Span) string {
	text, _ := span.Payload["text"].(string)
	if text == "" {
		text = "(empty)"
	}
	text = strings.ReplaceAll(text, "\"", "'")
	text = strings.ReplaceAll(text, "{", "")
	text = strings.ReplaceAll(text, "}", "")
	return text
}

// isCompound reports whether the span at i has nested children.
func isCompound(runlog domain.RunLog, i int) bool {
	return i+1 < len(runlog) && runlog[i+1].Level > runlog[i].Level
}

// parentOf finds the nearest preceding span one level up.
func parentOf(runlog domain.RunLog, i int) (int, bool) {
	for j := i - 1; j >= 0; j-- {
		if runlog[j].Level == runlog[i].Level-1 {
			return j, true
		}
		if runlog[j].Level < runlog[i].Level-1 {
			break
		}
	}
	return 0, false
}

// sameParent reports whether the spans at a and b sit under the same
// enclosing span, so a sibling arrow between them is meaningful.
func sameParent(runlog domain.RunLog, a, b int) bool {
	if runlog[a].Level != runlog[b].Level {
		return false
	}
	pa, oka := parentOf(runlog, a)
	pb, okb := parentOf(runlog, b)
	if runlog[a].Level == 0 {
		return true
	}
	return oka && okb && pa == pb
}
