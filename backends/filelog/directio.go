// Package filelog implements the Durable Log (C2) as a per-tablespace
// append-only file. Writes go through O_DIRECT where the underlying
// filesystem supports it, grounded on the teacher's fs/direct_io.go and
// fs/file_direct_io.go; when opening with O_DIRECT fails (common on tmpfs
// and some container overlay filesystems) the log falls back to a buffered
// os.File, mirroring the teacher's fileio_sim simulation fallback.
package filelog

import (
	"context"
	"log/slog"
	"os"

	"github.com/ncw/directio"
	"github.com/sethvargo/go-retry"

	"github.com/distsql/nodectl"
)

// blockAlignment is the write alignment required by direct I/O. Buffered
// fallback writers pad to the same boundary so a log file's on-disk layout
// never depends on which writer produced it.
const blockAlignment = directio.BlockSize

// fileIO abstracts the write path so the log can fall back from direct I/O
// to buffered I/O without changing any call site.
type fileIO interface {
	open(ctx context.Context, filename string, flag int, perm os.FileMode) (*os.File, error)
	writeAt(ctx context.Context, file *os.File, block []byte, offset int64) (int, error)
	alignedBlock(size int) []byte
	close(file *os.File) error
}

type directFileIO struct{}

// classifyIOError adapts a raw I/O error for nodectl.Retry: a
// failover-qualified error (drive gone, read-only remount) is left as-is so
// Retry gives up on its first attempt instead of burning its backoff budget
// against a drive that will not recover; anything else ShouldRetry accepts
// is wrapped as retryable so Retry's Fibonacci backoff actually applies.
func classifyIOError(err error) error {
	if err == nil {
		return nil
	}
	if nodectl.IsFailoverQualifiedIOError(err) {
		slog.Warn("filelog: failover-qualified I/O error, surfacing immediately", "error", err)
		return err
	}
	if !nodectl.ShouldRetry(err) {
		return err
	}
	return retry.RetryableError(err)
}

func (directFileIO) open(ctx context.Context, filename string, flag int, perm os.FileMode) (*os.File, error) {
	var f *os.File
	err := nodectl.Retry(ctx, func(context.Context) error {
		var e error
		f, e = directio.OpenFile(filename, flag, perm)
		return classifyIOError(e)
	}, nil)
	return f, err
}

func (directFileIO) writeAt(ctx context.Context, file *os.File, block []byte, offset int64) (int, error) {
	var n int
	err := nodectl.Retry(ctx, func(context.Context) error {
		var e error
		n, e = file.WriteAt(block, offset)
		return classifyIOError(e)
	}, nil)
	return n, err
}

func (directFileIO) alignedBlock(size int) []byte {
	return directio.AlignedBlock(size)
}

func (directFileIO) close(file *os.File) error {
	return file.Close()
}

// bufferedFileIO is the fallback used when O_DIRECT cannot be opened. It
// satisfies the same fileIO contract with no alignment requirement on the
// underlying write, but still hands back blockAlignment-sized buffers so
// the record framing logic stays identical between the two backends.
type bufferedFileIO struct{}

func (bufferedFileIO) open(ctx context.Context, filename string, flag int, perm os.FileMode) (*os.File, error) {
	return os.OpenFile(filename, flag, perm)
}

func (bufferedFileIO) writeAt(ctx context.Context, file *os.File, block []byte, offset int64) (int, error) {
	return file.WriteAt(block, offset)
}

func (bufferedFileIO) alignedBlock(size int) []byte {
	return make([]byte, size)
}

func (bufferedFileIO) close(file *os.File) error {
	return file.Close()
}

// newFileIO opens filename for append, preferring direct I/O, and returns
// the file handle plus the fileIO implementation that produced it so later
// writes use matching WriteAt/alignedBlock semantics.
func newFileIO(ctx context.Context, filename string) (*os.File, fileIO, error) {
	var dio directFileIO
	f, err := dio.open(ctx, filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err == nil {
		return f, dio, nil
	}

	var bio bufferedFileIO
	f, err = bio.open(ctx, filename, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return f, bio, nil
}
