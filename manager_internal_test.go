package nodectl

import (
	"context"
	"errors"
	"testing"
)

// TestCreateTableSpaceInsideTransactionIsRejected constructs a
// CreateTableSpaceStatement carrying a non-nil transaction id directly
// (something the public constructor never allows), to exercise
// ExecuteStatement's rejection of transactional DDL. Since the check
// happens before any collaborator is touched, the Manager's metadata/pages/
// factory/log can all be nil here.
func TestCreateTableSpaceInsideTransactionIsRejected(t *testing.T) {
	m := NewManager(DefaultConfiguration("n1"), nil, nil, nil, nil)

	stmt := CreateTableSpaceStatement{
		baseStatement: baseStatement{tableSpace: "orders", transactionId: NewUUID()},
		Name:          "orders",
		Leader:        "n1",
		Replicas:      []NodeId{"n1"},
	}

	_, err := m.ExecuteStatement(context.Background(), stmt)
	var nodeErr *Error
	if !errors.As(err, &nodeErr) || nodeErr.Code != InvalidStatement {
		t.Fatalf("expected InvalidStatement for a transactional CreateTableSpace, got %v", err)
	}
}

func TestExecuteStatementRejectsMissingTableSpace(t *testing.T) {
	m := NewManager(DefaultConfiguration("n1"), nil, nil, nil, nil)

	_, err := m.ExecuteStatement(context.Background(), NewGetStatement("", NilUUID, "items", []byte("k1")))
	var nodeErr *Error
	if !errors.As(err, &nodeErr) || nodeErr.Code != InvalidStatement {
		t.Fatalf("expected InvalidStatement for a statement with no tablespace, got %v", err)
	}
}
