package memstore

import (
	"context"
	"sync"

	"github.com/distsql/nodectl"
)

// Log is a process-local, in-memory nodectl.DurableLog. Entries are kept in
// a slice ordered by LSN; Recover/Follow replay by index.
type Log struct {
	mu      sync.Mutex
	entries []nodectl.LogEntry
	closed  bool
	nextLSN nodectl.LogSequenceNumber
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{}
}

func (l *Log) Log(ctx context.Context, payload []byte) (nodectl.LogSequenceNumber, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return 0, nodectl.NewError(nodectl.LogUnavailable, errClosed, nil)
	}
	l.nextLSN++
	l.entries = append(l.entries, nodectl.LogEntry{LSN: l.nextLSN, Payload: payload})
	return l.nextLSN, nil
}

// LogBatch appends payloads as one all-or-nothing unit: either every entry
// is appended, or (on the in-memory store there is no partial-write mode to
// fail mid-way) none are.
func (l *Log) LogBatch(ctx context.Context, payloads [][]byte) ([]nodectl.LogSequenceNumber, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, nodectl.NewError(nodectl.LogUnavailable, errClosed, nil)
	}
	lsns := make([]nodectl.LogSequenceNumber, len(payloads))
	for i, p := range payloads {
		l.nextLSN++
		lsns[i] = l.nextLSN
		l.entries = append(l.entries, nodectl.LogEntry{LSN: l.nextLSN, Payload: p})
	}
	return lsns, nil
}

func (l *Log) Recover(ctx context.Context, from nodectl.LogSequenceNumber, consumer nodectl.LogConsumer, fencing func() bool) error {
	l.mu.Lock()
	entries := append([]nodectl.LogEntry(nil), l.entries...)
	l.mu.Unlock()

	for _, e := range entries {
		if e.LSN < from {
			continue
		}
		if fencing != nil && !fencing() {
			return nil
		}
		if err := consumer(e); err != nil {
			return nodectl.NewError(nodectl.LogUnavailable, err, e.LSN)
		}
	}
	return nil
}

// Follow delivers entries appended after from. The in-memory implementation
// delivers what is already present and returns; it does not block waiting
// for future appends, since tests drive it synchronously.
func (l *Log) Follow(ctx context.Context, from nodectl.LogSequenceNumber, consumer nodectl.LogConsumer) error {
	return l.Recover(ctx, from+1, consumer, nil)
}

func (l *Log) CurrentLSN() nodectl.LogSequenceNumber {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.nextLSN
}

func (l *Log) StartWriting(ctx context.Context) error { return nil }

func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.nextLSN = 0
	return nil
}

func (l *Log) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}

func (l *Log) IsClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

func (l *Log) Checkpoint(ctx context.Context) error { return nil }

var errClosed = logClosedError{}

type logClosedError struct{}

func (logClosedError) Error() string { return "log is closed" }
