package memory_test

import (
	"testing"

	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/aretw0/weave/pkg/ports"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunRecordStoreContract(t, store)
}

func TestMemorySource_Contract(t *testing.T) {
	ports.RunGraphSourceContract(t, memory.NewSource(nil))
}
