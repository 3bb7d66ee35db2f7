package nodectl_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/distsql/nodectl"
	"github.com/distsql/nodectl/backends/memstore"
)

var ctx = context.Background()

// trackingFactory wraps memstore's factory so tests can reach into a booted
// tablespace's concrete *memstore.TableSpaceManager (e.g. to call
// InduceFailure), which the Manager's own API deliberately never exposes.
type trackingFactory struct {
	mu       sync.Mutex
	byName   map[nodectl.TableSpaceName]*memstore.TableSpaceManager
	delegate nodectl.TableSpaceManagerFactory
}

func newTrackingFactory() *trackingFactory {
	return &trackingFactory{
		byName:   make(map[nodectl.TableSpaceName]*memstore.TableSpaceManager),
		delegate: memstore.NewTableSpaceManagerFactory(),
	}
}

func (f *trackingFactory) factory() nodectl.TableSpaceManagerFactory {
	return func(descriptor nodectl.TableSpaceDescriptor, capability *nodectl.Capability, log nodectl.DurableLog) nodectl.TableSpaceManager {
		mgr := f.delegate(descriptor, capability, log)
		f.mu.Lock()
		f.byName[descriptor.Name] = mgr.(*memstore.TableSpaceManager)
		f.mu.Unlock()
		return mgr
	}
}

func (f *trackingFactory) get(name nodectl.TableSpaceName) (*memstore.TableSpaceManager, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.byName[name]
	return m, ok
}

func newTestManager(t *testing.T, nodeId nodectl.NodeId) (*nodectl.Manager, *trackingFactory) {
	t.Helper()
	cfg := nodectl.DefaultConfiguration(nodeId)
	cfg.WaitForPollInterval = 5 * time.Millisecond

	metadata := memstore.NewMetadataStore()
	pages := memstore.NewPageStore()
	tracking := newTrackingFactory()
	newLog := func(name nodectl.TableSpaceName) (nodectl.DurableLog, error) {
		return memstore.NewLog(), nil
	}

	m := nodectl.NewManager(cfg, metadata, pages, tracking.factory(), newLog)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	t.Cleanup(func() {
		if err := m.Close(ctx); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})
	return m, tracking
}

func TestDefaultTableSpaceBootsAndServesDML(t *testing.T) {
	m, _ := newTestManager(t, "n1")

	if !m.WaitForTableSpace(ctx, "default", time.Second, true) {
		t.Fatal("expected the default tablespace to boot and report this node as leader")
	}

	_, err := m.ExecuteUpdate(ctx, nodectl.NewDMLStatement("default", nodectl.NilUUID, "customers", []byte("k1"), []byte("v1")))
	if err != nil {
		t.Fatalf("ExecuteUpdate failed: %v", err)
	}

	got, err := m.Get(ctx, nodectl.NewGetStatement("default", nodectl.NilUUID, "customers", []byte("k1")))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Record) != "v1" {
		t.Errorf("expected v1, got %q", got.Record)
	}
}

func TestCreateTableSpaceThenUseIt(t *testing.T) {
	m, _ := newTestManager(t, "n1")

	_, err := m.ExecuteStatement(ctx, nodectl.NewCreateTableSpaceStatement("orders", "n1", []nodectl.NodeId{"n1"}))
	if err != nil {
		t.Fatalf("CreateTableSpace failed: %v", err)
	}

	if !m.WaitForTableSpace(ctx, "orders", time.Second, true) {
		t.Fatal("expected \"orders\" to boot after creation")
	}

	_, err = m.ExecuteUpdate(ctx, nodectl.NewDMLStatement("orders", nodectl.NilUUID, "items", []byte("k1"), []byte("v1")))
	if err != nil {
		t.Fatalf("ExecuteUpdate against the new tablespace failed: %v", err)
	}
}

func TestTableSpaceNotAssignedToThisNodeNeverBootsLocally(t *testing.T) {
	m, _ := newTestManager(t, "n1")

	_, err := m.ExecuteStatement(ctx, nodectl.NewCreateTableSpaceStatement("remote-only", "n2", []nodectl.NodeId{"n2"}))
	if err != nil {
		t.Fatalf("CreateTableSpace failed: %v", err)
	}

	if m.WaitForTableSpace(ctx, "remote-only", 50*time.Millisecond, false) {
		t.Fatal("expected \"remote-only\" to never boot on a node that is not one of its replicas")
	}

	_, err = m.Get(ctx, nodectl.NewGetStatement("remote-only", nodectl.NilUUID, "items", []byte("k1")))
	var nodeErr *nodectl.Error
	if !errors.As(err, &nodeErr) || nodeErr.Code != nodectl.NoSuchTableSpace {
		t.Fatalf("expected NoSuchTableSpace, got %v", err)
	}
}

func TestFailedTableSpaceIsEvicted(t *testing.T) {
	m, tracking := newTestManager(t, "n1")

	_, err := m.ExecuteStatement(ctx, nodectl.NewCreateTableSpaceStatement("orders", "n1", []nodectl.NodeId{"n1"}))
	if err != nil {
		t.Fatalf("CreateTableSpace failed: %v", err)
	}
	if !m.WaitForTableSpace(ctx, "orders", time.Second, true) {
		t.Fatal("expected \"orders\" to boot")
	}

	mgr, ok := tracking.get("orders")
	if !ok {
		t.Fatal("expected the tracking factory to have observed the booted manager")
	}
	mgr.InduceFailure()
	m.TriggerActivator()

	deadline := time.Now().Add(time.Second)
	for {
		_, err := m.Get(ctx, nodectl.NewGetStatement("orders", nodectl.NilUUID, "items", []byte("k1")))
		var nodeErr *nodectl.Error
		if errors.As(err, &nodeErr) && nodeErr.Code == nodectl.NoSuchTableSpace {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("expected the failed tablespace to be evicted from the registry")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCloseIsIdempotentAndOrderly(t *testing.T) {
	cfg := nodectl.DefaultConfiguration("n1")
	metadata := memstore.NewMetadataStore()
	pages := memstore.NewPageStore()
	factory := memstore.NewTableSpaceManagerFactory()
	newLog := func(name nodectl.TableSpaceName) (nodectl.DurableLog, error) {
		return memstore.NewLog(), nil
	}

	m := nodectl.NewManager(cfg, metadata, pages, factory, newLog)
	if err := m.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if !m.WaitForTableSpace(ctx, "default", time.Second, true) {
		t.Fatal("expected the default tablespace to boot")
	}

	if err := m.Close(ctx); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m.Close(ctx); err != nil {
		t.Fatalf("second Close should be a no-op, got: %v", err)
	}
}
