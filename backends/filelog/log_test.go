package filelog

import (
	"context"
	"testing"

	"github.com/distsql/nodectl"
)

var ctx = context.Background()

func TestLogAppendAndRecover(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "orders")
	if err := l.StartWriting(ctx); err != nil {
		t.Fatalf("StartWriting failed: %v", err)
	}
	t.Cleanup(func() { l.Close(ctx) })

	lsn1, err := l.Log(ctx, []byte("first"))
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	lsn2, err := l.Log(ctx, []byte("second"))
	if err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if lsn2 <= lsn1 {
		t.Fatalf("expected strictly increasing LSNs, got %d then %d", lsn1, lsn2)
	}

	var recovered []nodectl.LogEntry
	err = l.Recover(ctx, 0, func(e nodectl.LogEntry) error {
		recovered = append(recovered, e)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Recover failed: %v", err)
	}
	if len(recovered) != 2 {
		t.Fatalf("expected 2 recovered entries, got %d", len(recovered))
	}
	if string(recovered[0].Payload) != "first" || string(recovered[1].Payload) != "second" {
		t.Errorf("unexpected recovered payloads: %+v", recovered)
	}
}

func TestLogBatchAssignsSequentialLSNs(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "orders")
	if err := l.StartWriting(ctx); err != nil {
		t.Fatalf("StartWriting failed: %v", err)
	}
	t.Cleanup(func() { l.Close(ctx) })

	lsns, err := l.LogBatch(ctx, [][]byte{[]byte("a"), []byte("b"), []byte("c")})
	if err != nil {
		t.Fatalf("LogBatch failed: %v", err)
	}
	if len(lsns) != 3 {
		t.Fatalf("expected 3 LSNs, got %d", len(lsns))
	}
	for i := 1; i < len(lsns); i++ {
		if lsns[i] <= lsns[i-1] {
			t.Fatalf("expected strictly increasing batch LSNs, got %v", lsns)
		}
	}
}

func TestLogRecoverAfterReopen(t *testing.T) {
	dir := t.TempDir()

	l1 := New(dir, "orders")
	if err := l1.StartWriting(ctx); err != nil {
		t.Fatalf("StartWriting failed: %v", err)
	}
	if _, err := l1.Log(ctx, []byte("persisted")); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := l1.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	l2 := New(dir, "orders")
	if err := l2.StartWriting(ctx); err != nil {
		t.Fatalf("StartWriting on reopen failed: %v", err)
	}
	t.Cleanup(func() { l2.Close(ctx) })

	if got := l2.CurrentLSN(); got != 1 {
		t.Fatalf("expected recovery to resume numbering at LSN 1, got %d", got)
	}

	lsn, err := l2.Log(ctx, []byte("after reopen"))
	if err != nil {
		t.Fatalf("Log after reopen failed: %v", err)
	}
	if lsn != 2 {
		t.Fatalf("expected the next LSN after reopen to be 2, got %d", lsn)
	}
}

func TestLogClearResetsOffsetAndLSN(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "orders")
	if err := l.StartWriting(ctx); err != nil {
		t.Fatalf("StartWriting failed: %v", err)
	}
	t.Cleanup(func() { l.Close(ctx) })

	if _, err := l.Log(ctx, []byte("x")); err != nil {
		t.Fatalf("Log failed: %v", err)
	}
	if err := l.Clear(ctx); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if got := l.CurrentLSN(); got != 0 {
		t.Fatalf("expected LSN reset to 0 after Clear, got %d", got)
	}

	lsn, err := l.Log(ctx, []byte("y"))
	if err != nil {
		t.Fatalf("Log after Clear failed: %v", err)
	}
	if lsn != 1 {
		t.Fatalf("expected numbering to restart at 1 after Clear, got %d", lsn)
	}
}

func TestIsClosedReflectsCloseCall(t *testing.T) {
	dir := t.TempDir()
	l := New(dir, "orders")
	if err := l.StartWriting(ctx); err != nil {
		t.Fatalf("StartWriting failed: %v", err)
	}
	if l.IsClosed() {
		t.Fatal("expected a freshly started log to report not closed")
	}
	if err := l.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !l.IsClosed() {
		t.Fatal("expected IsClosed to report true after Close")
	}
}
