package graph_test

import (
	"strings"
	"testing"

	"github.com/wetbench/labsim/internal/presentation/graph"
	"github.com/wetbench/labsim/pkg/domain"
)

func span(level int, text string) domain.Span {
	return domain.Span{Level: level, Payload: map[string]any{"text": text}}
}

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		runlog   domain.RunLog
		contains []string
	}{
		{
			name: "First Command Shape",
			runlog: domain.RunLog{
				span(0, "Homing"),
				span(0, "Delaying"),
			},
			contains: []string{
				"c0((\"Homing\"))",
				"c1[\"Delaying\"]",
				"c0 --> c1",
			},
		},
		{
			name: "Compound Command Shape",
			runlog: domain.RunLog{
				span(0, "Transferring"),
				span(1, "Picking up tip"),
			},
			contains: []string{
				"c0((\"Transferring\"))",
				"c0 -.-> c1",
			},
		},
		{
			name: "Sibling Arrows Within Parent",
			runlog: domain.RunLog{
				span(0, "Transferring"),
				span(1, "Picking up tip"),
				span(1, "Aspirating"),
			},
			contains: []string{
				"c1 --> c2",
			},
		},
		{
			name: "Placeholders Stripped",
			runlog: domain.RunLog{
				span(0, "Aspirating {volume} uL from {location}"),
			},
			contains: []string{
				"c0((\"Aspirating volume uL from location\"))",
			},
		},
		{
			name: "Logged Spans Highlighted",
			runlog: domain.RunLog{
				{Level: 0, Payload: map[string]any{"text": "Homing"}, Logs: []domain.LogRecord{{Message: "hi"}}},
			},
			contains: []string{
				"classDef logged",
				"class c0 logged;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := graph.GenerateMermaid(tt.runlog)
			if !strings.HasPrefix(out, "graph TD\n") {
				t.Fatalf("expected mermaid header, got %q", out)
			}
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}

func TestGenerateMermaidNoSiblingArrowAcrossParents(t *testing.T) {
	runlog := domain.RunLog{
		span(0, "Transferring"),
		span(1, "Picking up tip"),
		span(0, "Mixing"),
		span(1, "Aspirating"),
	}

	out := graph.GenerateMermaid(runlog)
	if strings.Contains(out, "c1 --> c3") {
		t.Errorf("children of different parents should not be siblings:\n%s", out)
	}
	if !strings.Contains(out, "c2 -.-> c3") {
		t.Errorf("expected parent arrow c2 -.-> c3:\n%s", out)
	}
}
