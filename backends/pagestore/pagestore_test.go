package pagestore_test

import (
	"context"
	"testing"

	"github.com/distsql/nodectl"
	"github.com/distsql/nodectl/backends/pagestore"
)

func TestWritePageAndLoadPageRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := pagestore.New(t.TempDir(), nil)
	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	id, err := store.WritePage(ctx, "customers", 1, [][]byte{[]byte("hello")})
	if err != nil {
		t.Fatalf("WritePage failed: %v", err)
	}

	got, err := store.LoadPage(ctx, "customers", id)
	if err != nil {
		t.Fatalf("LoadPage failed: %v", err)
	}
	if len(got) != 1 || string(got[0]) != "hello" {
		t.Fatalf("expected [hello], got %v", got)
	}
}

func TestLoadPageMissingReturnsNilNotError(t *testing.T) {
	ctx := context.Background()
	store := pagestore.New(t.TempDir(), nil)
	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	got, err := store.LoadPage(ctx, "customers", nodectl.NewUUID())
	if err != nil {
		t.Fatalf("expected no error for a missing page, got %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a missing page, got %v", got)
	}
}

// TestLoadExistingKeysReturnsAscendingUUIDOrder writes several pages (whose
// filesystem directory order has no relation to UUID order) and checks that
// LoadExistingKeys delivers them in ascending UUID order.
func TestLoadExistingKeysReturnsAscendingUUIDOrder(t *testing.T) {
	ctx := context.Background()
	store := pagestore.New(t.TempDir(), nil)
	if err := store.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	const table = "items"
	var ids []nodectl.UUID
	for i := 0; i < 10; i++ {
		id, err := store.WritePage(ctx, table, nodectl.LogSequenceNumber(i+1), [][]byte{[]byte("v")})
		if err != nil {
			t.Fatalf("WritePage failed: %v", err)
		}
		ids = append(ids, id)
	}

	var delivered []nodectl.UUID
	err := store.LoadExistingKeys(ctx, table, func(key []byte) error {
		var id nodectl.UUID
		copy(id[:], key)
		delivered = append(delivered, id)
		return nil
	})
	if err != nil {
		t.Fatalf("LoadExistingKeys failed: %v", err)
	}
	if len(delivered) != len(ids) {
		t.Fatalf("expected %d keys, got %d", len(ids), len(delivered))
	}
	for i := 1; i < len(delivered); i++ {
		if delivered[i-1].Compare(delivered[i]) >= 0 {
			t.Fatalf("expected strictly ascending UUID order, got %s then %s", delivered[i-1], delivered[i])
		}
	}
}
