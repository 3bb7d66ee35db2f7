package nodectl

import "testing"

func TestNewCreateTableSpaceStatement(t *testing.T) {
	s := NewCreateTableSpaceStatement("orders", "n1", []NodeId{"n1", "n2"})
	if s.Kind() != KindCreateTableSpace {
		t.Errorf("expected KindCreateTableSpace, got %v", s.Kind())
	}
	if s.TableSpace() != "orders" {
		t.Errorf("expected tablespace \"orders\", got %q", s.TableSpace())
	}
	if !s.TransactionId().IsNil() {
		t.Error("expected a nil transaction id for a fresh CreateTableSpace statement")
	}
}

func TestNewDMLStatement(t *testing.T) {
	txId := NewUUID()
	s := NewDMLStatement("orders", txId, "customers", []byte("k1"), []byte("v1"))
	if s.Kind() != KindDML {
		t.Errorf("expected KindDML, got %v", s.Kind())
	}
	if s.TableSpace() != "orders" || s.Table != "customers" {
		t.Errorf("unexpected statement: %+v", s)
	}
	if s.TransactionId() != txId {
		t.Error("expected the transaction id to round-trip")
	}
}

func TestNewGetStatement(t *testing.T) {
	s := NewGetStatement("orders", NilUUID, "customers", []byte("k1"))
	if s.Kind() != KindGet {
		t.Errorf("expected KindGet, got %v", s.Kind())
	}
	if s.TableSpace() != "orders" || s.Table != "customers" {
		t.Errorf("unexpected statement: %+v", s)
	}
}

func TestStatementResultKinds(t *testing.T) {
	if (DDLResult{}).Kind() != KindCreateTableSpace {
		t.Error("expected DDLResult to carry KindCreateTableSpace")
	}
	if (DMLResult{}).Kind() != KindDML {
		t.Error("expected DMLResult to carry KindDML")
	}
	if (GetResult{}).Kind() != KindGet {
		t.Error("expected GetResult to carry KindGet")
	}
}
