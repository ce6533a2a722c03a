package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/storeflow/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		uid := fmt.Sprintf("user-%d", i)
		_ = mgr.Do(ctx, uid, func(ctx context.Context, s *Session) error {
			return s.Set(ctx, "k", "v")
		})
	}

	if n := mgr.activeLocks(); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after turns finished", n)
	}
}
