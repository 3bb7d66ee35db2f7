package encoding

import "testing"

func TestEncodeDecodeInt32RoundTrip(t *testing.T) {
	cases := []int32{0, 1, -1, 42, -42, 2147483647, -2147483648}
	for _, v := range cases {
		got := DecodeInt32(EncodeInt32(v))
		if got != v {
			t.Errorf("EncodeInt32/DecodeInt32(%d) round-tripped to %d", v, got)
		}
	}
}

func TestEncodeDecodeInt64RoundTrip(t *testing.T) {
	cases := []int64{0, 1, -1, 123456789, -123456789}
	for _, v := range cases {
		got := DecodeInt64(EncodeInt64(v))
		if got != v {
			t.Errorf("EncodeInt64/DecodeInt64(%d) round-tripped to %d", v, got)
		}
	}
}

func TestEncodeTimestampNullConvention(t *testing.T) {
	if got := DecodeTimestamp(EncodeTimestamp(-5)); got != NullTimestamp {
		t.Errorf("negative timestamp should decode to NullTimestamp, got %d", got)
	}
	if got := DecodeTimestamp(EncodeTimestamp(1000)); got != 1000 {
		t.Errorf("expected 1000, got %d", got)
	}
}

func TestEncodeStringRoundTrip(t *testing.T) {
	s := "tablespace-name"
	if got := DecodeString(EncodeString(s)); got != s {
		t.Errorf("expected %q, got %q", s, got)
	}
}

func TestInt32OrderingMatchesUnsignedLexicographic(t *testing.T) {
	if CompareKeys(EncodeInt32(-1), EncodeInt32(1)) >= 0 {
		t.Error("expected encode(-1) to order before encode(1)")
	}
	if CompareKeys(EncodeInt32(5), EncodeInt32(5)) != 0 {
		t.Error("expected equal encodings to compare equal")
	}
}

func TestKeyBuilderConcatenatesComponents(t *testing.T) {
	k := NewKeyBuilder().PutString("orders").PutInt64(42).Bytes()
	if len(k) != len("orders")+8 {
		t.Errorf("expected length %d, got %d", len("orders")+8, len(k))
	}
}

func TestMarshalerRoundTripsJSON(t *testing.T) {
	type payload struct {
		Name string
		N    int
	}
	m := NewMarshaler()
	data, err := m.Marshal(payload{Name: "ts2", N: 7})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var out payload
	if err := m.Unmarshal(data, &out); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if out.Name != "ts2" || out.N != 7 {
		t.Errorf("round trip mismatch: got %+v", out)
	}
}
