package httpapi

import (
	"errors"
	"testing"

	"github.com/Ozhiganov/greylock/internal/gerrors"
	"github.com/valyala/fasthttp"
)

func TestStatusForMapsKnownKinds(t *testing.T) {
	cases := []struct {
		kind gerrors.Kind
		want int
	}{
		{gerrors.InvalidRequest, fasthttp.StatusBadRequest},
		{gerrors.NotFound, fasthttp.StatusNotFound},
		{gerrors.CorruptFormat, fasthttp.StatusInternalServerError},
		{gerrors.CorruptIndex, fasthttp.StatusInternalServerError},
		{gerrors.MergeFailure, fasthttp.StatusInternalServerError},
		{gerrors.IoError, fasthttp.StatusServiceUnavailable},
	}
	for _, c := range cases {
		err := gerrors.New(c.kind, "boom")
		if got := statusFor(err); got != c.want {
			t.Errorf("statusFor(%v) = %d, want %d", c.kind, got, c.want)
		}
	}
}

func TestStatusForUnwrapsChain(t *testing.T) {
	wrapped := gerrors.Wrap(gerrors.NotFound, "key", errors.New("missing"))
	outer := errors.New("outer") // does not wrap wrapped
	_ = outer
	chained := errors.Join(wrapped)
	if got := statusFor(chained); got != fasthttp.StatusNotFound {
		t.Fatalf("statusFor() = %d, want %d", got, fasthttp.StatusNotFound)
	}
}

func TestStatusForDefaultsOnPlainError(t *testing.T) {
	if got := statusFor(errors.New("plain")); got != fasthttp.StatusInternalServerError {
		t.Fatalf("statusFor() = %d, want %d", got, fasthttp.StatusInternalServerError)
	}
}
