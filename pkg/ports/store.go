package ports

import (
	"context"
	"errors"

	"github.com/wetbench/labsim/pkg/domain"
)

// ErrRunNotFound is returned when a run ID cannot be found in a store.
var ErrRunNotFound = errors.New("run not found")

// RunStore persists completed simulation runs for later retrieval.
type RunStore interface {
	Save(ctx context.Context, rec *domain.RunRecord) error
	Load(ctx context.Context, id string) (*domain.RunRecord, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]string, error)
}
