package memory_test

import (
	"testing"

	"github.com/wetbench/labsim/pkg/adapters/memory"
	"github.com/wetbench/labsim/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunStoreContract(t, store)
}
