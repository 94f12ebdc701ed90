package codec

import "testing"

// sample1 has one field, matching the arity of VersionShardSet/VersionPostingList.
type sample1 struct {
	Name string
}

// sample6 has six fields, matching VersionDocument's arity.
type sample6 struct {
	A, B, C, D, E, F string
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := sample1{Name: "mailbox1"}
	buf, err := Encode(VersionShardSet, in)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if buf[0] != VersionShardSet {
		t.Fatalf("Encode() version byte = %d, want %d", buf[0], VersionShardSet)
	}
	var out sample1
	if err := Decode(buf, VersionShardSet, &out); err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if out != in {
		t.Fatalf("round trip = %+v, want %+v", out, in)
	}
}

func TestDecodeVersionMismatch(t *testing.T) {
	buf, err := Encode(VersionShardSet, sample1{Name: "x"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	var out sample6
	if err := Decode(buf, VersionDocument, &out); err == nil {
		t.Fatal("expected error for version tag mismatch")
	}
}

func TestEncodeRejectsArityMismatch(t *testing.T) {
	// VersionDocument's arity is 6; sample1 has 1 field.
	if _, err := Encode(VersionDocument, sample1{Name: "x"}); err == nil {
		t.Fatal("expected error for version/arity mismatch on Encode")
	}
}

func TestDecodeRejectsArityMismatch(t *testing.T) {
	buf, err := Encode(VersionDocument, sample6{A: "1", B: "2", C: "3", D: "4", E: "5", F: "6"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	// The tag matches, but the destination type's arity doesn't.
	var out sample1
	if err := Decode(buf, VersionDocument, &out); err == nil {
		t.Fatal("expected error for version/arity mismatch on Decode")
	}
}

func TestDecodeEmptyEnvelope(t *testing.T) {
	var out sample1
	if err := Decode(nil, VersionShardSet, &out); err == nil {
		t.Fatal("expected error for empty envelope")
	}
}

func TestPeekVersion(t *testing.T) {
	buf, err := Encode(VersionShardSet, sample1{Name: "y"})
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := PeekVersion(buf)
	if err != nil {
		t.Fatalf("PeekVersion() error: %v", err)
	}
	if got != VersionShardSet {
		t.Fatalf("PeekVersion() = %d, want %d", got, VersionShardSet)
	}
	if _, err := PeekVersion(nil); err == nil {
		t.Fatal("expected error for empty data")
	}
}
