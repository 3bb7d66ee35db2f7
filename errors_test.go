package nodectl

import (
	"errors"
	"testing"
)

func TestErrorUnwrapsToCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewError(MetadataUnavailable, cause, "orders")

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to see through to the wrapped cause")
	}
	var nodeErr *Error
	if !errors.As(err, &nodeErr) || nodeErr.Code != MetadataUnavailable {
		t.Errorf("expected errors.As to find an *Error with MetadataUnavailable, got %v", err)
	}
}

func TestErrorMessageIncludesUserData(t *testing.T) {
	err := NewError(NoSuchTableSpace, errors.New("not hosted here"), "orders")
	msg := err.Error()
	if msg == "" {
		t.Fatal("expected a non-empty error message")
	}
	if want := "orders"; !contains(msg, want) {
		t.Errorf("expected message %q to mention user data %q", msg, want)
	}
}

func TestErrorCodeStringer(t *testing.T) {
	cases := map[ErrorCode]string{
		MetadataUnavailable:     "MetadataUnavailable",
		LogUnavailable:          "LogUnavailable",
		StorageUnavailable:      "StorageUnavailable",
		DDLError:                "DDLError",
		InvalidStatement:        "InvalidStatement",
		NoSuchTableSpace:        "NoSuchTableSpace",
		StatementExecutionError: "StatementExecutionError",
		Unknown:                 "Unknown",
	}
	for code, want := range cases {
		if got := code.String(); got != want {
			t.Errorf("ErrorCode(%d).String() = %q, want %q", code, got, want)
		}
	}
}

func contains(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
