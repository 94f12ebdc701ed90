package httpapi

import (
	"errors"

	"github.com/Ozhiganov/greylock/internal/gerrors"
	"github.com/valyala/fasthttp"
)

// statusFor maps a gerrors.Kind to the HTTP status the wire layer
// reports it as. §6.3's "the HTTP shell's concern" note leaves this
// mapping to the transport, so it lives here rather than in gerrors.
func statusFor(err error) int {
	var ge *gerrors.Error
	if !errors.As(err, &ge) {
		return fasthttp.StatusInternalServerError
	}
	switch ge.Kind {
	case gerrors.InvalidRequest:
		return fasthttp.StatusBadRequest
	case gerrors.NotFound:
		return fasthttp.StatusNotFound
	case gerrors.CorruptFormat, gerrors.CorruptIndex, gerrors.MergeFailure:
		return fasthttp.StatusInternalServerError
	case gerrors.IoError:
		return fasthttp.StatusServiceUnavailable
	default:
		return fasthttp.StatusInternalServerError
	}
}
