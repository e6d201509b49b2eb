package ports

import (
	"context"

	"github.com/wetbench/labsim/pkg/domain"
	"github.com/wetbench/labsim/pkg/simulation"
)

// Engine interprets a protocol against an execution context, publishing
// command lifecycle events on the context's broker as it goes. Two
// mutually exclusive variants exist (legacy and current-generation); the
// dispatcher selects one per run and never re-branches mid-run.
type Engine interface {
	Execute(ctx context.Context, proto *domain.Protocol, sim *simulation.Context) error
}
