package memstore

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/distsql/nodectl"
)

// TableSpaceManager is a reference nodectl.TableSpaceManager backed by an
// in-memory table map. It is meant for tests exercising the Node Manager's
// boot/dispatch/eviction paths, not as a production execution engine.
//
// InducedStartError and InduceFailure mirror the teacher's Mock_* fault
// injection convention: a test sets InducedStartError before Start to force
// a boot failure, or calls InduceFailure on a running manager to force the
// eviction path.
type TableSpaceManager struct {
	descriptor nodectl.TableSpaceDescriptor
	capability *nodectl.Capability
	log        nodectl.DurableLog

	InducedStartError error

	mu     sync.RWMutex
	tables map[string]map[string][]byte
	failed atomic.Bool
}

// NewTableSpaceManagerFactory returns a nodectl.TableSpaceManagerFactory
// that constructs TableSpaceManager instances.
func NewTableSpaceManagerFactory() nodectl.TableSpaceManagerFactory {
	return func(descriptor nodectl.TableSpaceDescriptor, capability *nodectl.Capability, log nodectl.DurableLog) nodectl.TableSpaceManager {
		return &TableSpaceManager{
			descriptor: descriptor,
			capability: capability,
			log:        log,
			tables:     make(map[string]map[string][]byte),
		}
	}
}

func (m *TableSpaceManager) Start(ctx context.Context) error {
	if m.InducedStartError != nil {
		return m.InducedStartError
	}
	return m.log.StartWriting(ctx)
}

func (m *TableSpaceManager) Close(ctx context.Context) error {
	return m.log.Close(ctx)
}

func (m *TableSpaceManager) ExecuteStatement(ctx context.Context, stmt nodectl.Statement) (nodectl.StatementResult, error) {
	switch s := stmt.(type) {
	case nodectl.DMLStatement:
		return m.executeDML(ctx, s)
	case nodectl.GetStatement:
		return m.executeGet(s)
	default:
		return nil, nodectl.NewError(nodectl.StatementExecutionError, errUnsupportedStatement, stmt.Kind())
	}
}

func (m *TableSpaceManager) executeDML(ctx context.Context, stmt nodectl.DMLStatement) (nodectl.StatementResult, error) {
	if _, err := m.log.Log(ctx, stmt.Value); err != nil {
		m.failed.Store(true)
		return nil, nodectl.NewError(nodectl.LogUnavailable, err, stmt.Table)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	table, ok := m.tables[stmt.Table]
	if !ok {
		table = make(map[string][]byte)
		m.tables[stmt.Table] = table
	}
	table[string(stmt.Key)] = stmt.Value
	return nodectl.DMLResult{UpdateCount: 1, Key: stmt.Key}, nil
}

func (m *TableSpaceManager) executeGet(stmt nodectl.GetStatement) (nodectl.StatementResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	table, ok := m.tables[stmt.Table]
	if !ok {
		return nodectl.GetResult{}, nil
	}
	return nodectl.GetResult{Record: table[string(stmt.Key)]}, nil
}

func (m *TableSpaceManager) Flush(ctx context.Context) error {
	return m.log.Checkpoint(ctx)
}

func (m *TableSpaceManager) IsLeader() bool {
	return m.descriptor.Leader == m.capability.NodeId()
}

func (m *TableSpaceManager) IsFailed() bool {
	return m.failed.Load()
}

// InduceFailure marks this manager as failed, for tests exercising the
// Activator's eviction path.
func (m *TableSpaceManager) InduceFailure() {
	m.failed.Store(true)
}

func (m *TableSpaceManager) GetTableManager(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tables[name]
	return t, ok
}

var errUnsupportedStatement = unsupportedStatementError{}

type unsupportedStatementError struct{}

func (unsupportedStatementError) Error() string { return "unsupported statement kind" }
