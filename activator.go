package nodectl

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DistributedLock serializes Activator reconciliation passes across node
// processes that share one Metadata Store/Page Store. It is an optional
// collaborator: a nil DistributedLock (the default, and what cmd/nodectl
// wires for its in-memory backend) means each process reconciles independently under
// only its own in-process lock, which is correct for a single-node
// deployment. backends/rediscache supplies one implementation.
type DistributedLock interface {
	// Lock attempts to acquire the reconciliation lock, held for at most
	// duration. It reports false, without error, if another process
	// already holds it.
	Lock(ctx context.Context, duration time.Duration) (bool, error)
	// Unlock releases a lock this process holds. A no-op if not held.
	Unlock(ctx context.Context) error
}

// reconciliationLockDuration bounds how long a single pass may hold the
// distributed lock before it expires on its own, so a process that dies
// mid-pass doesn't wedge reconciliation for the rest of the cluster.
const reconciliationLockDuration = 10 * time.Second

// activator is the single long-running task (C6) that reconciles the
// registry with the Metadata Store and evicts failed tablespaces. It is
// driven by a one-slot wakeup signal: any number of triggers before the
// loop gets to a pass collapse into a single pending reconciliation,
// matching the "reconcile at least once after each poke" requirement
// without translating an unbounded queue literally.
type activator struct {
	nodeId     NodeId
	lock       *sync.RWMutex
	reg        *registry
	metadata   MetadataStore
	pages      PageStore
	factory    TableSpaceManagerFactory
	newLog     func(name TableSpaceName) (DurableLog, error)
	capability *Capability
	distLock   DistributedLock

	maxConcurrentBoots int64

	wakeup  chan struct{}
	stopped atomic.Bool
	done    chan struct{}
}

func newActivator(
	nodeId NodeId,
	lock *sync.RWMutex,
	reg *registry,
	metadata MetadataStore,
	pages PageStore,
	factory TableSpaceManagerFactory,
	newLog func(name TableSpaceName) (DurableLog, error),
	capability *Capability,
	distLock DistributedLock,
	maxConcurrentBoots int64,
) *activator {
	return &activator{
		nodeId:             nodeId,
		lock:               lock,
		reg:                reg,
		metadata:           metadata,
		pages:              pages,
		factory:            factory,
		newLog:             newLog,
		capability:         capability,
		distLock:           distLock,
		maxConcurrentBoots: maxConcurrentBoots,
		wakeup:             make(chan struct{}, 1),
		done:               make(chan struct{}),
	}
}

// trigger offers a wakeup. It never blocks and never fails: a full channel
// means a reconciliation is already pending, which already satisfies the
// caller's requirement.
func (a *activator) trigger() {
	select {
	case a.wakeup <- struct{}{}:
	default:
	}
}

// requestStop sets the stopped flag and wakes the loop so it can notice it
// on its next check.
func (a *activator) requestStop() {
	a.stopped.Store(true)
	a.trigger()
}

// join blocks until the activator goroutine has returned.
func (a *activator) join() {
	<-a.done
}

// run is the activator's main loop; call it in its own goroutine.
func (a *activator) run(ctx context.Context) {
	defer close(a.done)

	for {
		if a.stopped.Load() {
			a.shutdown(ctx)
			return
		}

		select {
		case <-a.wakeup:
		case <-ctx.Done():
			a.shutdown(ctx)
			return
		}

		if a.stopped.Load() {
			a.shutdown(ctx)
			return
		}

		a.pass(ctx)
	}
}

// pass performs one reconciliation pass: boot assigned-but-missing
// tablespaces under the exclusive lock, then (without the lock) scan for
// failed managers, then evict them under the exclusive lock again. When a
// DistributedLock is configured, the whole pass is additionally serialized
// across every node process sharing this Metadata Store/Page Store, so two
// processes never race to boot the same tablespace.
func (a *activator) pass(ctx context.Context) {
	if a.distLock != nil {
		acquired, err := a.distLock.Lock(ctx, reconciliationLockDuration)
		if err != nil {
			slog.Warn("activator: distributed lock acquisition errored, reconciling under local lock only", "error", err)
		} else if !acquired {
			slog.Debug("activator: reconciliation lock held by another process, deferring this pass")
			RandomSleep(ctx)
			return
		} else {
			defer func() {
				if err := a.distLock.Unlock(ctx); err != nil {
					slog.Warn("activator: distributed lock release errored", "error", err)
				}
			}()
		}
	}

	a.lock.Lock()
	assigned, err := a.metadata.ListTableSpaces(ctx)
	if err != nil {
		slog.Warn("activator: listTableSpaces failed, retrying next wakeup", "error", err)
		a.lock.Unlock()
		return
	}

	existing := a.reg.names()
	var missing []TableSpaceName
	for _, ts := range assigned {
		if _, ok := existing[ts]; !ok {
			missing = append(missing, ts)
		}
	}
	a.bootAll(ctx, missing)
	a.lock.Unlock()

	failed := a.scanFailed()
	if len(failed) == 0 {
		return
	}

	a.lock.Lock()
	defer a.lock.Unlock()
	for _, name := range failed {
		m, ok := a.reg.lookup(name)
		if !ok {
			continue
		}
		if err := m.Close(ctx); err != nil {
			slog.Warn("activator: close of failed tablespace errored", "tableSpace", name, "error", err)
		}
		a.reg.remove(name)
	}
}

// bootAll boots each of names concurrently, bounded by maxConcurrentBoots.
// Must be called with the exclusive lock held.
func (a *activator) bootAll(ctx context.Context, names []TableSpaceName) {
	if len(names) == 0 {
		return
	}

	var sem *semaphore.Weighted
	if a.maxConcurrentBoots > 0 {
		sem = semaphore.NewWeighted(a.maxConcurrentBoots)
	}

	var eg errgroup.Group
	for _, name := range names {
		name := name
		eg.Go(func() error {
			if sem != nil {
				if err := sem.Acquire(ctx, 1); err != nil {
					return nil
				}
				defer sem.Release(1)
			}
			a.bootTableSpace(ctx, name)
			return nil
		})
	}
	_ = eg.Wait()
}

// bootTableSpace attempts to boot a single tablespace. Any failure is
// logged and swallowed; the tablespace is retried on the next wakeup. A
// partially-constructed manager is never inserted and its Log is closed.
func (a *activator) bootTableSpace(ctx context.Context, name TableSpaceName) {
	descriptor, err := a.metadata.Describe(ctx, name)
	if err != nil {
		slog.Warn("activator: describe failed during boot", "tableSpace", name, "error", err)
		return
	}
	if !descriptor.HasReplica(a.nodeId) {
		return
	}

	log, err := a.newLog(name)
	if err != nil {
		slog.Warn("activator: log creation failed during boot", "tableSpace", name, "error", err)
		return
	}

	mgr := a.factory(descriptor, a.capability, log)
	if err := mgr.Start(ctx); err != nil {
		slog.Warn("activator: boot failed", "tableSpace", name, "error", err)
		if closeErr := log.Close(ctx); closeErr != nil {
			slog.Warn("activator: log close after failed boot errored", "tableSpace", name, "error", closeErr)
		}
		return
	}

	a.reg.insert(name, mgr)
}

// scanFailed returns the names of registered managers reporting IsFailed,
// without holding the exclusive lock.
func (a *activator) scanFailed() []TableSpaceName {
	var failed []TableSpaceName
	for name, m := range a.snapshotNamed() {
		if m.IsFailed() {
			failed = append(failed, name)
		}
	}
	return failed
}

// snapshotNamed returns a name-keyed copy of the registry for the
// lock-free failure scan.
func (a *activator) snapshotNamed() map[TableSpaceName]TableSpaceManager {
	a.lock.RLock()
	defer a.lock.RUnlock()
	out := make(map[TableSpaceName]TableSpaceManager, len(a.reg.managers))
	for name, m := range a.reg.managers {
		out[name] = m
	}
	return out
}

// shutdown performs orderly teardown: close every manager (best-effort),
// then the Page Store, then the Metadata Store, all under the exclusive
// lock, and only after the loop has decided to exit.
func (a *activator) shutdown(ctx context.Context) {
	a.lock.Lock()
	defer a.lock.Unlock()

	for name, m := range a.reg.managers {
		if err := m.Close(ctx); err != nil {
			slog.Warn("activator: shutdown close of tablespace errored", "tableSpace", name, "error", err)
		}
		a.reg.remove(name)
	}

	if err := a.pages.Close(ctx); err != nil {
		slog.Warn("activator: page store close errored", "error", err)
	}
	if err := a.metadata.Close(ctx); err != nil {
		slog.Warn("activator: metadata store close errored", "error", err)
	}
}
