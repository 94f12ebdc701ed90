// Package codec implements the self-describing binary framing used for
// every persisted value: a one-byte version tag followed by a JSON
// payload. The tag lets a reader reject a value written by an
// incompatible future format instead of silently misparsing it.
package codec

import (
	"encoding/json"
	"reflect"

	"github.com/Ozhiganov/greylock/internal/gerrors"
)

// Version tags. Per §6.2, "version is equal to the array arity": each tag
// equals the number of canonical fields on the struct it describes, the
// same invariant original_source/include/greylock/database.hpp's
// metadata::msgpack_unpack enforces via `version != o.via.array.size`.
// Metadata carries a reserved second field solely to hold that arity
// (its historical wire size is 2, not 1: `[seq, reserved]`).
// model.DocumentForIndex flattens DocumentId's three components as its
// own fields rather than nesting it, so its arity (3) differs from
// PostingList's (1) even though both describe "documents in an
// index." key — the two must stay distinguishable, since the pebble
// merge operator decodes whichever shape it encounters in the same
// merge chain by inspecting this tag (§4.2).
const (
	// VersionMetadata tags a persisted Metadata{Seq, Reserved}.
	VersionMetadata byte = 2
	// VersionDocument tags a persisted Document's 6 canonical fields.
	VersionDocument byte = 6
	// VersionPostingList tags a persisted, at-rest PostingList{Ids}.
	VersionPostingList byte = 1
	// VersionPostingOperand tags a single-document PostingList insert
	// operand passed to the merge operator (§4.2's DocumentForIndex),
	// flattened to Tsec/Tnsec/Seq.
	VersionPostingOperand byte = 3
	// VersionShardSet tags both a persisted, at-rest ShardSet{Shards}
	// and a single-shard delta operand — the merge operator treats
	// them identically (append-then-dedupe), so unlike postings they
	// share one shape and one tag.
	VersionShardSet byte = 1
)

// Encode wraps v in the version envelope: [version][json bytes]. version
// must equal v's canonical field count (§6.2); a mismatch means the
// caller passed the wrong tag for v's type, so Encode refuses to write a
// value no reader could validate.
func Encode(version byte, v any) ([]byte, error) {
	if err := checkArity(version, v); err != nil {
		return nil, err
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, gerrors.Wrap(gerrors.CorruptFormat, "", err)
	}
	out := make([]byte, 0, len(payload)+1)
	out = append(out, version)
	out = append(out, payload...)
	return out, nil
}

// Decode validates the leading version byte against wantVersion, checks
// that wantVersion matches v's actual field arity (§6.2), and unmarshals
// the remaining bytes into v.
func Decode(data []byte, wantVersion byte, v any) error {
	if len(data) < 1 {
		return gerrors.New(gerrors.CorruptFormat, "empty envelope")
	}
	if data[0] != wantVersion {
		return gerrors.Newf(gerrors.CorruptFormat, "unknown version tag %d, want %d", data[0], wantVersion)
	}
	if err := checkArity(wantVersion, v); err != nil {
		return err
	}
	if err := json.Unmarshal(data[1:], v); err != nil {
		return gerrors.Wrap(gerrors.CorruptFormat, "", err)
	}
	return nil
}

// checkArity validates version against v's canonical field count, the
// arity check §6.2 requires of every reader.
func checkArity(version byte, v any) error {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}
	if got := rv.NumField(); got != int(version) {
		return gerrors.Newf(gerrors.CorruptFormat, "version %d does not match %s's field arity %d", version, rv.Type().Name(), got)
	}
	return nil
}

// PeekVersion returns the leading version byte without decoding the
// payload, or an error if data is empty.
func PeekVersion(data []byte) (byte, error) {
	if len(data) < 1 {
		return 0, gerrors.New(gerrors.CorruptFormat, "empty envelope")
	}
	return data[0], nil
}
