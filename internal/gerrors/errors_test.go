package gerrors

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsMatchesKind(t *testing.T) {
	err := New(NotFound, "missing key")
	if !Is(err, NotFound) {
		t.Fatal("Is() = false, want true for matching kind")
	}
	if Is(err, IoError) {
		t.Fatal("Is() = true, want false for mismatched kind")
	}
}

func TestWrapPreservesChainForErrorsAs(t *testing.T) {
	cause := errors.New("disk full")
	wrapped := Wrap(IoError, "index.mailbox1.body.hello.0", cause)

	outer := fmt.Errorf("index failed: %w", wrapped)
	var ge *Error
	if !errors.As(outer, &ge) {
		t.Fatal("errors.As() did not find *Error in chain")
	}
	if ge.Kind != IoError || ge.Key != "index.mailbox1.body.hello.0" {
		t.Fatalf("unwrapped = %+v", ge)
	}
	if !errors.Is(outer, cause) {
		t.Fatal("errors.Is() did not find the wrapped cause")
	}
}

func TestWrapNilIsNil(t *testing.T) {
	if Wrap(IoError, "k", nil) != nil {
		t.Fatal("Wrap(nil) should return nil")
	}
}
