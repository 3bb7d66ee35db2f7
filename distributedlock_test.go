package nodectl_test

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/distsql/nodectl"
	"github.com/distsql/nodectl/backends/memstore"
)

// fakeDistributedLock is a hand-rolled nodectl.DistributedLock for tests,
// matching the package's Mock_*-style fault injection convention: a plain
// struct with exported-intent toggles instead of a mocking framework.
type fakeDistributedLock struct {
	mu       sync.Mutex
	acquire  bool
	attempts int
}

func (f *fakeDistributedLock) setAcquire(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acquire = v
}

func (f *fakeDistributedLock) lockAttempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts
}

func (f *fakeDistributedLock) Lock(ctx context.Context, duration time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attempts++
	return f.acquire, nil
}

func (f *fakeDistributedLock) Unlock(ctx context.Context) error {
	return nil
}

// TestDistributedLockBlocksReconciliationUntilAcquired drives the Activator's
// reconciliation pass against a DistributedLock held by another process: the
// default tablespace must not boot until the lock becomes acquirable.
func TestDistributedLockBlocksReconciliationUntilAcquired(t *testing.T) {
	nodectl.SetJitterRNG(rand.New(rand.NewSource(1)))

	cfg := nodectl.DefaultConfiguration("n1")
	cfg.WaitForPollInterval = 5 * time.Millisecond

	metadata := memstore.NewMetadataStore()
	pages := memstore.NewPageStore()
	factory := memstore.NewTableSpaceManagerFactory()
	newLog := func(name nodectl.TableSpaceName) (nodectl.DurableLog, error) {
		return memstore.NewLog(), nil
	}

	m := nodectl.NewManager(cfg, metadata, pages, factory, newLog)

	lock := &fakeDistributedLock{acquire: false}
	m.SetDistributedLock(lock)

	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(ctx); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	if m.WaitForTableSpace(ctx, "default", 100*time.Millisecond, true) {
		t.Fatal("expected reconciliation to be blocked while another process holds the distributed lock")
	}
	if lock.lockAttempts() == 0 {
		t.Fatal("expected the activator to have attempted the distributed lock at least once")
	}

	lock.setAcquire(true)
	m.TriggerActivator()

	if !m.WaitForTableSpace(ctx, "default", time.Second, true) {
		t.Fatal("expected the default tablespace to boot once the distributed lock became acquirable")
	}
}
