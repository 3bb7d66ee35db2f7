package nodectl

import "context"

// MetadataStore (C1) is the cluster-wide catalog of tablespaces and their
// replica assignments. Implementations are shared mutable singletons;
// Start/Close are called once by the Node Manager and mutating calls must
// be atomic against concurrent callers.
type MetadataStore interface {
	Start(ctx context.Context) error
	Close(ctx context.Context) error
	// EnsureDefaultTableSpace idempotently creates a default tablespace
	// assigned to nodeId if none exists yet.
	EnsureDefaultTableSpace(ctx context.Context, nodeId NodeId, defaultName TableSpaceName) error
	// ListTableSpaces returns the set of tablespace names known to the catalog.
	ListTableSpaces(ctx context.Context) ([]TableSpaceName, error)
	// Describe returns the descriptor for name, failing if absent.
	Describe(ctx context.Context, name TableSpaceName) (TableSpaceDescriptor, error)
	// Register atomically inserts descriptor, failing on duplicate name.
	Register(ctx context.Context, descriptor TableSpaceDescriptor) error
}

// LogEntry is a single write-ahead log record appended to a Durable Log.
type LogEntry struct {
	LSN     LogSequenceNumber
	Payload []byte
}

// LogConsumer is invoked once per recovered or followed LogEntry.
type LogConsumer func(entry LogEntry) error

// DurableLog (C2) is a per-tablespace write-ahead log with monotonic
// sequence numbers. Each Log instance is owned by exactly one Tablespace
// Manager.
type DurableLog interface {
	// Log appends a single entry and returns its assigned LSN.
	Log(ctx context.Context, payload []byte) (LogSequenceNumber, error)
	// LogBatch appends entries as one unit; see the batch-failure policy
	// documented on the implementation (all-or-nothing for filelog).
	LogBatch(ctx context.Context, payloads [][]byte) ([]LogSequenceNumber, error)
	// Recover replays persisted entries from (and including) from to consumer.
	// fencing, when non-nil, is checked before each delivery so a log that
	// has been superseded by a newer leader stops replay early.
	Recover(ctx context.Context, from LogSequenceNumber, consumer LogConsumer, fencing func() bool) error
	// Follow delivers entries appended after from as they are written,
	// blocking until ctx is done.
	Follow(ctx context.Context, from LogSequenceNumber, consumer LogConsumer) error
	CurrentLSN() LogSequenceNumber
	StartWriting(ctx context.Context) error
	Clear(ctx context.Context) error
	Close(ctx context.Context) error
	IsClosed() bool
	Checkpoint(ctx context.Context) error
}

// TableMetadata describes one table's catalog entry within a tablespace.
type TableMetadata struct {
	Name string
}

// PageStore (C3) holds physical pages keyed by (table, page-id) plus table
// metadata. It is a shared mutable singleton; only the Activator and the
// Node Manager's start/close paths mutate its lifecycle.
type PageStore interface {
	Start(ctx context.Context) error
	Close(ctx context.Context) error
	LoadPage(ctx context.Context, table string, pageId UUID) ([][]byte, error)
	LoadExistingKeys(ctx context.Context, table string, consumer func(key []byte) error) error
	WritePage(ctx context.Context, table string, lsn LogSequenceNumber, page [][]byte) (UUID, error)
	ActualNumberOfPages(ctx context.Context, table string) (int, error)
	LoadTables(ctx context.Context, lsn LogSequenceNumber, space TableSpaceName) ([]TableMetadata, error)
	WriteTables(ctx context.Context, space TableSpaceName, lsn LogSequenceNumber, tables []TableMetadata) error
	LastCheckpointLSN(ctx context.Context) LogSequenceNumber
}

// TableSpaceManager (C4) is the opaque per-tablespace executor. The node
// owns its lifecycle: created when the node boots the tablespace, destroyed
// when the node evicts or shuts it down.
type TableSpaceManager interface {
	Start(ctx context.Context) error
	Close(ctx context.Context) error
	ExecuteStatement(ctx context.Context, stmt Statement) (StatementResult, error)
	Flush(ctx context.Context) error
	IsLeader() bool
	// IsFailed reports whether this manager has been poisoned by a fatal
	// collaborator error. Once true it never reports false again; the
	// manager must be closed and removed instead.
	IsFailed() bool
	GetTableManager(name string) (any, bool)
}

// TableSpaceManagerFactory constructs a TableSpaceManager for descriptor,
// given the capability object it may use for background work and
// cross-tablespace lookups, and the Log instance it exclusively owns.
type TableSpaceManagerFactory func(descriptor TableSpaceDescriptor, capability *Capability, log DurableLog) TableSpaceManager
