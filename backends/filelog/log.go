package filelog

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/distsql/nodectl"
)

// recordHeaderSize is the fixed prefix written before every entry's payload:
// an 8-byte LSN followed by a 4-byte payload length.
const recordHeaderSize = 8 + 4

// Log is a per-tablespace nodectl.DurableLog backed by one append-only
// file. Each record is framed as [LSN uint64][length uint32][payload],
// padded with zero bytes to the next blockAlignment boundary so every
// write lands on an offset direct I/O can use; the read path (recovery and
// follow) always goes through buffered reads, since replay is not on the
// latency-sensitive write path.
//
// Batch writes are all-or-nothing: every entry in a LogBatch call is
// assembled into one aligned buffer and written with a single WriteAt plus
// one fsync, so a write failure leaves none of the batch's entries
// persisted — resolving the open question in spec.md §7/§9 the way
// file_io_with_replication.go's write-then-fsync sequencing does.
type Log struct {
	path string
	io   fileIO

	mu       sync.Mutex
	file     *os.File
	offset   int64
	lsn      uint64
	closed   atomic.Bool
	writable bool
}

// New returns a Log that will append to <baseDir>/<name>.log.
func New(baseDir string, name nodectl.TableSpaceName) *Log {
	return &Log{path: filepath.Join(baseDir, string(name)+".log")}
}

// StartWriting opens (or creates) the log file, preferring direct I/O, and
// recovers the current offset/LSN by scanning existing records.
func (l *Log) StartWriting(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), os.ModePerm); err != nil {
		return nodectl.NewError(nodectl.LogUnavailable, err, l.path)
	}

	f, io, err := newFileIO(ctx, l.path)
	if err != nil {
		return nodectl.NewError(nodectl.LogUnavailable, err, l.path)
	}
	l.file = f
	l.io = io

	offset, lastLSN, err := scanForRecovery(l.path)
	if err != nil {
		_ = io.close(f)
		l.file = nil
		return nodectl.NewError(nodectl.LogUnavailable, err, l.path)
	}
	l.offset = offset
	l.lsn = uint64(lastLSN)
	l.writable = true
	return nil
}

// CurrentLSN returns the last LSN assigned so far (0 if none).
func (l *Log) CurrentLSN() nodectl.LogSequenceNumber {
	l.mu.Lock()
	defer l.mu.Unlock()
	return nodectl.LogSequenceNumber(l.lsn)
}

// Log appends one entry and returns its assigned LSN.
func (l *Log) Log(ctx context.Context, payload []byte) (nodectl.LogSequenceNumber, error) {
	lsns, err := l.LogBatch(ctx, [][]byte{payload})
	if err != nil {
		return 0, err
	}
	return lsns[0], nil
}

// LogBatch appends payloads as a single aligned write. See the type doc for
// the all-or-nothing persistence guarantee.
func (l *Log) LogBatch(ctx context.Context, payloads [][]byte) ([]nodectl.LogSequenceNumber, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.writable || l.closed.Load() {
		return nil, nodectl.NewError(nodectl.LogUnavailable, fmt.Errorf("log not open for writing"), l.path)
	}

	lsns := make([]nodectl.LogSequenceNumber, len(payloads))
	var raw []byte
	for i, payload := range payloads {
		l.lsn++
		lsns[i] = nodectl.LogSequenceNumber(l.lsn)

		var header [recordHeaderSize]byte
		binary.BigEndian.PutUint64(header[0:8], l.lsn)
		binary.BigEndian.PutUint32(header[8:12], uint32(len(payload)))
		raw = append(raw, header[:]...)
		raw = append(raw, payload...)
	}

	padded := padToAlignment(raw, blockAlignment)
	block := l.io.alignedBlock(len(padded))
	copy(block, padded)

	n, err := l.io.writeAt(ctx, l.file, block, l.offset)
	if err != nil || n != len(block) {
		// Nothing in this batch is considered persisted; the in-memory LSN
		// counter is rolled back so a retry reassigns the same numbers.
		l.lsn -= uint64(len(payloads))
		if err == nil {
			err = fmt.Errorf("short write: wrote %d of %d bytes", n, len(block))
		}
		return nil, nodectl.NewError(nodectl.LogUnavailable, err, l.path)
	}
	if err := l.file.Sync(); err != nil {
		l.lsn -= uint64(len(payloads))
		return nil, nodectl.NewError(nodectl.LogUnavailable, err, l.path)
	}

	l.offset += int64(len(block))
	return lsns, nil
}

// padToAlignment returns data padded with zero bytes to the next multiple
// of alignment (data itself if already aligned).
func padToAlignment(data []byte, alignment int) []byte {
	rem := len(data) % alignment
	if rem == 0 {
		return data
	}
	return append(data, make([]byte, alignment-rem)...)
}

// Recover replays persisted entries from (and including) from to consumer.
// fencing, when non-nil, is checked before each delivery so a log
// superseded by a newer leader stops replay early.
func (l *Log) Recover(ctx context.Context, from nodectl.LogSequenceNumber, consumer nodectl.LogConsumer, fencing func() bool) error {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return nodectl.NewError(nodectl.LogUnavailable, err, l.path)
	}
	defer f.Close()

	return readRecords(f, func(entry nodectl.LogEntry) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if fencing != nil && !fencing() {
			return false, nil
		}
		if entry.LSN < from {
			return true, nil
		}
		if err := consumer(entry); err != nil {
			return false, err
		}
		return true, nil
	})
}

// Follow delivers entries appended after from as they are written, polling
// the file until ctx is done. It is intended for a secondary replica
// tailing its leader's log, so it never terminates on its own.
func (l *Log) Follow(ctx context.Context, from nodectl.LogSequenceNumber, consumer nodectl.LogConsumer) error {
	next := from + 1
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delivered := next
		err := l.Recover(ctx, next, func(entry nodectl.LogEntry) error {
			if err := consumer(entry); err != nil {
				return err
			}
			delivered = entry.LSN + 1
			return nil
		}, nil)
		if err != nil {
			return err
		}
		next = delivered

		nodectl.Sleep(ctx, pollInterval)
	}
}

const pollInterval = 50 * time.Millisecond

// Clear truncates the log file to empty and resets in-memory offset/LSN
// bookkeeping. Used when a tablespace is dropped or fully rebuilt from a
// snapshot.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		if err := l.file.Truncate(0); err != nil {
			return nodectl.NewError(nodectl.LogUnavailable, err, l.path)
		}
	}
	l.offset = 0
	l.lsn = 0
	return nil
}

// Close closes the underlying file handle. Idempotent.
func (l *Log) Close(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed.Load() || l.file == nil {
		l.closed.Store(true)
		return nil
	}
	err := l.io.close(l.file)
	l.file = nil
	l.closed.Store(true)
	if err != nil {
		return nodectl.NewError(nodectl.LogUnavailable, err, l.path)
	}
	return nil
}

// IsClosed reports whether Close has been called.
func (l *Log) IsClosed() bool {
	return l.closed.Load()
}

// Checkpoint is a no-op for the file log: there is no separate checkpoint
// record format, since recovery always scans the log file from its start.
// The Page Store's own checkpoint LSN (C3's LastCheckpointLSN) is what
// bounds how much of the log a real recovery needs to replay.
func (l *Log) Checkpoint(ctx context.Context) error {
	return nil
}

// scanForRecovery walks an existing log file to find the highest LSN seen,
// and returns it with the file's size rounded down to blockAlignment as the
// next write offset, so a reopened Log resumes numbering and appending
// correctly. A missing file recovers to (0, 0).
func scanForRecovery(path string) (int64, nodectl.LogSequenceNumber, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	defer f.Close()

	var lastGoodOffset int64
	var lastLSN nodectl.LogSequenceNumber
	err = readRecords(f, func(entry nodectl.LogEntry) (bool, error) {
		lastLSN = entry.LSN
		return true, nil
	})
	if err != nil {
		return 0, 0, err
	}

	lastGoodOffset = alignedEndOffset(f)
	return lastGoodOffset, lastLSN, nil
}

// alignedEndOffset returns the file's size rounded down to the nearest
// blockAlignment boundary, which is always where the next aligned write
// must start given every write pads up to that boundary.
func alignedEndOffset(f *os.File) int64 {
	info, err := f.Stat()
	if err != nil {
		return 0
	}
	size := info.Size()
	return size - (size % blockAlignment)
}

// readRecords scans f from the start, decoding [LSN][length][payload]
// records and invoking visit for each. visit returns false to stop early
// without error (e.g. fencing rejected), or an error to abort the scan.
//
// Each LogBatch call pads its write up to the next blockAlignment boundary,
// so an invalid header found mid-block is the zero padding following that
// block's last real record, not end of file: the next block (if any)
// always starts at the next aligned offset. Scanning only stops for good
// once an aligned boundary itself has no valid header.
func readRecords(f io.ReaderAt, visit func(nodectl.LogEntry) (bool, error)) error {
	var offset int64
	header := make([]byte, recordHeaderSize)
	for {
		n, err := f.ReadAt(header, offset)
		if n < recordHeaderSize || err != nil {
			return nil
		}

		lsn := binary.BigEndian.Uint64(header[0:8])
		length := binary.BigEndian.Uint32(header[8:12])
		if lsn == 0 || length == 0 || length > 64<<20 {
			if offset%int64(blockAlignment) == 0 {
				return nil
			}
			next := ((offset / int64(blockAlignment)) + 1) * int64(blockAlignment)
			n, err := f.ReadAt(header, next)
			if n < recordHeaderSize || err != nil {
				return nil
			}
			lsn = binary.BigEndian.Uint64(header[0:8])
			length = binary.BigEndian.Uint32(header[8:12])
			if lsn == 0 || length == 0 || length > 64<<20 {
				return nil
			}
			offset = next
		}

		payload := make([]byte, length)
		n, err = f.ReadAt(payload, offset+recordHeaderSize)
		if n != int(length) || err != nil {
			return nil
		}

		cont, err := visit(nodectl.LogEntry{LSN: nodectl.LogSequenceNumber(lsn), Payload: payload})
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}

		offset += int64(recordHeaderSize) + int64(length)
	}
}
