package nodectl

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Manager is the Node Manager (C7): the public façade over the registry,
// activator, and worker pool. It exclusively owns those three; it shares by
// reference the Metadata Store and Page Store, whose lifecycle is tied to
// its own start/close.
type Manager struct {
	config Configuration

	generalLock sync.RWMutex
	reg         *registry
	activator   *activator
	pool        *workerPool

	metadata MetadataStore
	pages    PageStore
	factory  TableSpaceManagerFactory
	newLog   func(name TableSpaceName) (DurableLog, error)
	distLock DistributedLock

	started bool
}

// NewManager wires a Manager from its collaborators. factory constructs a
// TableSpaceManager for a booted descriptor; newLog opens the Durable Log a
// newly booted tablespace will exclusively own.
func NewManager(
	config Configuration,
	metadata MetadataStore,
	pages PageStore,
	factory TableSpaceManagerFactory,
	newLog func(name TableSpaceName) (DurableLog, error),
) *Manager {
	return &Manager{
		config:   config,
		reg:      newRegistry(),
		metadata: metadata,
		pages:    pages,
		factory:  factory,
		newLog:   newLog,
	}
}

// SetDistributedLock installs a cross-process reconciliation lock, serializing
// Activator passes against other node processes sharing this Metadata
// Store/Page Store. Must be called before Start; the default (nil) means
// reconciliation is only serialized in-process, which is correct for a
// single-node deployment.
func (m *Manager) SetDistributedLock(lock DistributedLock) {
	m.distLock = lock
}

// Start starts the Metadata Store, ensures the configured default
// tablespace exists assigned to this node, starts the Page Store, launches
// the Activator, and fires one wakeup. It fails fatally if any collaborator
// fails to start.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.metadata.Start(ctx); err != nil {
		return NewError(MetadataUnavailable, err, nil)
	}
	if err := m.metadata.EnsureDefaultTableSpace(ctx, m.config.NodeId, m.config.DefaultTableSpaceName); err != nil {
		return NewError(MetadataUnavailable, err, m.config.DefaultTableSpaceName)
	}

	m.generalLock.Lock()
	err := m.pages.Start(ctx)
	m.generalLock.Unlock()
	if err != nil {
		return NewError(StorageUnavailable, err, nil)
	}

	m.pool = newWorkerPool(ctx, m.config.WorkerPoolLimit)
	capability := &Capability{
		nodeId:   m.config.NodeId,
		metadata: m.metadata,
		pages:    m.pages,
		registry: m.reg,
		pool:     m.pool,
		lockForReads: func(fn func()) {
			m.generalLock.RLock()
			defer m.generalLock.RUnlock()
			fn()
		},
	}

	m.activator = newActivator(
		m.config.NodeId,
		&m.generalLock,
		m.reg,
		m.metadata,
		m.pages,
		m.factory,
		m.newLog,
		capability,
		m.distLock,
		m.config.MaxConcurrentBoots,
	)

	go m.activator.run(ctx)
	m.activator.trigger()
	m.started = true
	return nil
}

// ExecuteStatement rejects statements missing a tablespace. CreateTableSpace
// is executed directly and must not occur inside a transaction; any other
// statement is dispatched, under the shared lock, to its tablespace's
// manager.
func (m *Manager) ExecuteStatement(ctx context.Context, stmt Statement) (StatementResult, error) {
	if stmt.TableSpace() == "" {
		return nil, NewError(InvalidStatement, errMissingTableSpace, nil)
	}

	if create, ok := stmt.(CreateTableSpaceStatement); ok {
		if !stmt.TransactionId().IsNil() {
			return nil, NewError(InvalidStatement, errTransactionalDDL, create.Name)
		}
		return m.createTableSpace(ctx, create)
	}

	m.generalLock.RLock()
	mgr, ok := m.reg.lookup(stmt.TableSpace())
	m.generalLock.RUnlock()
	if !ok {
		return nil, NewError(NoSuchTableSpace, errors.New("tablespace not hosted on this node"), stmt.TableSpace())
	}

	return mgr.ExecuteStatement(ctx, stmt)
}

// createTableSpace builds a descriptor from stmt, registers it with the
// Metadata Store, and fires an activator wakeup. The actual local boot (if
// this node is a replica) happens asynchronously on the next reconciliation.
func (m *Manager) createTableSpace(ctx context.Context, stmt CreateTableSpaceStatement) (StatementResult, error) {
	builder := NewTableSpaceDescriptorBuilder(stmt.Name).Leader(stmt.Leader)
	for _, r := range stmt.Replicas {
		builder.AddReplica(r)
	}
	descriptor, err := builder.Build()
	if err != nil {
		return nil, err
	}

	if err := m.metadata.Register(ctx, descriptor); err != nil {
		return nil, NewError(DDLError, err, stmt.Name)
	}

	m.activator.trigger()
	return DDLResult{}, nil
}

// Get is a narrow wrapper over ExecuteStatement that asserts a GetResult shape.
func (m *Manager) Get(ctx context.Context, stmt GetStatement) (GetResult, error) {
	res, err := m.ExecuteStatement(ctx, stmt)
	if err != nil {
		return GetResult{}, err
	}
	gr, ok := res.(GetResult)
	if !ok {
		return GetResult{}, NewError(StatementExecutionError, errUnexpectedResult, res)
	}
	return gr, nil
}

// ExecuteUpdate is a narrow wrapper over ExecuteStatement that asserts a DMLResult shape.
func (m *Manager) ExecuteUpdate(ctx context.Context, stmt DMLStatement) (DMLResult, error) {
	res, err := m.ExecuteStatement(ctx, stmt)
	if err != nil {
		return DMLResult{}, err
	}
	dr, ok := res.(DMLResult)
	if !ok {
		return DMLResult{}, NewError(StatementExecutionError, errUnexpectedResult, res)
	}
	return dr, nil
}

// WaitForTableSpace polls the registry with a coarse sleep until a manager
// for name exists and, if requireLeader, reports IsLeader. Returns false on
// timeout; an expired or cancelled ctx also returns false.
func (m *Manager) WaitForTableSpace(ctx context.Context, name TableSpaceName, timeout time.Duration, requireLeader bool) bool {
	start := time.Now()
	for {
		m.generalLock.RLock()
		mgr, ok := m.reg.lookup(name)
		m.generalLock.RUnlock()
		if ok && (!requireLeader || mgr.IsLeader()) {
			return true
		}
		if timeout <= 0 || TimedOut(ctx, "waitForTableSpace", start, timeout) != nil {
			return false
		}
		Sleep(ctx, m.pollInterval())
	}
}

// WaitForTable is as WaitForTableSpace but additionally requires the
// tablespace's table catalog to contain table.
func (m *Manager) WaitForTable(ctx context.Context, space TableSpaceName, table string, timeout time.Duration, requireLeader bool) bool {
	start := time.Now()
	for {
		m.generalLock.RLock()
		mgr, ok := m.reg.lookup(space)
		m.generalLock.RUnlock()
		if ok && (!requireLeader || mgr.IsLeader()) {
			if _, ok := mgr.GetTableManager(table); ok {
				return true
			}
		}
		if timeout <= 0 || TimedOut(ctx, "waitForTable", start, timeout) != nil {
			return false
		}
		Sleep(ctx, m.pollInterval())
	}
}

func (m *Manager) pollInterval() time.Duration {
	if m.config.WaitForPollInterval <= 0 {
		return 100 * time.Millisecond
	}
	return m.config.WaitForPollInterval
}

// Flush snapshots the registry under the shared lock, then calls Flush on
// each manager without holding the lock. The first failure encountered is
// returned; remaining managers are still flushed best-effort.
func (m *Manager) Flush(ctx context.Context) error {
	m.generalLock.RLock()
	managers := m.reg.snapshot()
	m.generalLock.RUnlock()

	var first error
	for _, mgr := range managers {
		if err := mgr.Flush(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Close sets the stopped flag, fires a wakeup, joins the activator (which
// performs collaborator teardown), then shuts down the worker pool. Close
// does not return until the activator thread has joined and every manager
// has had Close invoked (or attempted) exactly once.
func (m *Manager) Close(ctx context.Context) error {
	if !m.started {
		return nil
	}
	m.activator.requestStop()
	m.activator.join()
	m.pool.close()
	return nil
}

// Submit offers task to the Worker Pool; if rejected, it is logged and
// dropped. Used for non-critical background work.
func (m *Manager) Submit(ctx context.Context, task func(ctx context.Context) error) {
	m.pool.submit(ctx, task)
}

// TriggerActivator fires a reconciliation wakeup. Exposed so external
// pokes (e.g. a cluster membership change notification) can request a
// pass without waiting for the default polling cadence.
func (m *Manager) TriggerActivator() {
	m.activator.trigger()
}
