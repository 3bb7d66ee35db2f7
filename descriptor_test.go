package nodectl

import (
	"errors"
	"testing"
)

func TestTableSpaceDescriptorBuilderRejectsEmptyName(t *testing.T) {
	_, err := NewTableSpaceDescriptorBuilder("").Leader("n1").AddReplica("n1").Build()
	if err == nil {
		t.Fatal("expected an error for an empty tablespace name")
	}
	var nodeErr *Error
	if !errors.As(err, &nodeErr) || nodeErr.Code != InvalidStatement {
		t.Errorf("expected InvalidStatement, got %v", err)
	}
}

func TestTableSpaceDescriptorBuilderRejectsEmptyReplicaSet(t *testing.T) {
	_, err := NewTableSpaceDescriptorBuilder("orders").Leader("n1").Build()
	if err == nil {
		t.Fatal("expected an error for an empty replica set")
	}
}

func TestTableSpaceDescriptorBuilderRejectsLeaderNotInReplicaSet(t *testing.T) {
	_, err := NewTableSpaceDescriptorBuilder("orders").Leader("n1").AddReplica("n2").Build()
	if err == nil {
		t.Fatal("expected an error when leader is not a replica")
	}
}

func TestTableSpaceDescriptorBuilderBuildsValidDescriptor(t *testing.T) {
	d, err := NewTableSpaceDescriptorBuilder("orders").
		Leader("n1").
		AddReplica("n1").
		AddReplica("n2").
		Build()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Name != "orders" || d.Leader != "n1" {
		t.Errorf("unexpected descriptor: %+v", d)
	}
	if !d.HasReplica("n1") || !d.HasReplica("n2") {
		t.Error("expected both n1 and n2 to be replicas")
	}
	if d.HasReplica("n3") {
		t.Error("n3 was never added as a replica")
	}
}
