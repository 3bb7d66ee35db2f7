package nodectl

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retry executes task with Fibonacci backoff up to 5 retries. If retries are
// exhausted, gaveUpTask is invoked (when not nil) and the final error is
// returned.
func Retry(ctx context.Context, task func(ctx context.Context) error, gaveUpTask func(ctx context.Context)) error {
	b := retry.NewFibonacci(1 * time.Second)
	if err := retry.Do(ctx, retry.WithMaxRetries(5, b), task); err != nil {
		slog.Warn(err.Error() + ", gave up")
		if gaveUpTask != nil {
			gaveUpTask(ctx)
		}
		return err
	}
	return nil
}

// ShouldRetry reports whether the error is retryable (non-nil and not a
// known permanent failure). Used by the filelog and pagestore backends to
// decide whether a failed I/O should be retried or surfaced as
// StorageUnavailable/LogUnavailable immediately.
func ShouldRetry(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, os.ErrClosed) ||
		errors.Is(err, os.ErrExist) {
		return false
	}

	// Treat resource/quota/readonly/path errors as permanent to avoid tight
	// retry loops against a drive that will not recover on its own.
	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EDQUOT),
		errors.Is(err, syscall.EMFILE),
		errors.Is(err, syscall.ENFILE),
		errors.Is(err, syscall.EACCES),
		errors.Is(err, syscall.EPERM),
		errors.Is(err, syscall.ENAMETOOLONG),
		errors.Is(err, syscall.ENOTDIR),
		errors.Is(err, syscall.EISDIR),
		errors.Is(err, syscall.ENOTEMPTY),
		errors.Is(err, syscall.EMLINK),
		errors.Is(err, syscall.ELOOP),
		errors.Is(err, syscall.EXDEV),
		errors.Is(err, syscall.EEXIST),
		errors.Is(err, syscall.EINVAL):
		return false
	}

	// Last-resort heuristic for EROFS text across platforms/drivers.
	if strings.Contains(err.Error(), "read-only file system") {
		return false
	}

	return true
}

// IsFailoverQualifiedIOError reports whether err represents a drive/host
// level failure severe enough to mark a replica folder unusable (as opposed
// to a transient, retryable condition). A filelog or pagestore backend uses
// this to decide whether to surface StorageUnavailable/LogUnavailable
// immediately rather than retrying.
func IsFailoverQualifiedIOError(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, syscall.EROFS),
		errors.Is(err, syscall.ENOSPC),
		errors.Is(err, syscall.EDQUOT),
		errors.Is(err, syscall.EIO),
		errors.Is(err, syscall.ENXIO),
		errors.Is(err, syscall.ENODEV):
		return true
	}
	return strings.Contains(err.Error(), "read-only file system") ||
		strings.Contains(err.Error(), "input/output error")
}
