package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/weave/pkg/adapters/memory"
	"github.com/stretchr/testify/assert"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	for i := 0; i < 1000; i++ {
		id := fmt.Sprintf("graph-%d", i)
		_, _ = mgr.Create(ctx, id, "")
		_ = mgr.Delete(ctx, id)
	}

	assert.Empty(t, mgr.locks, "lock entries leaked after Delete")
	assert.Empty(t, mgr.graphs)
}
