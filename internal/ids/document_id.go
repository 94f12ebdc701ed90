// Package ids implements the sequenced DocumentId scheme: a 128-bit value
// composed of a timestamp and a per-process sequence number, ordered
// lexicographically by timestamp then sequence so that the fixed-width
// binary encoding used as a store key doubles as a temporal sort order.
package ids

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Ozhiganov/greylock/internal/gerrors"
)

// EncodedLen is the fixed width of an indexed_id.str: int64 + int32 + int32.
const EncodedLen = 8 + 4 + 4

// DocumentId is the internal, ordered document identifier (tsec, tnsec, seq).
type DocumentId struct {
	Tsec  int64
	Tnsec int32
	Seq   int32
}

// Zero is the identity element used as "start of stream" for pagination.
var Zero = DocumentId{}

// Max sorts after every DocumentId that can occur in practice; used to mark
// a completed, unpaginated result set.
var Max = DocumentId{Tsec: 1<<63 - 1, Tnsec: 1<<31 - 1, Seq: 1<<31 - 1}

// Less reports whether id sorts strictly before other: timestamp first,
// then sequence, matching the fixed-width big-endian encoding's byte order.
func (id DocumentId) Less(other DocumentId) bool {
	if id.Tsec != other.Tsec {
		return id.Tsec < other.Tsec
	}
	if id.Tnsec != other.Tnsec {
		return id.Tnsec < other.Tnsec
	}
	return id.Seq < other.Seq
}

// Equal reports component-wise equality.
func (id DocumentId) Equal(other DocumentId) bool {
	return id.Tsec == other.Tsec && id.Tnsec == other.Tnsec && id.Seq == other.Seq
}

// Next returns the smallest DocumentId strictly greater than id, used to
// build an exclusive pagination cursor (§4.4 step 3.c).
func (id DocumentId) Next() DocumentId {
	if id.Seq < 1<<31-1 {
		return DocumentId{Tsec: id.Tsec, Tnsec: id.Tnsec, Seq: id.Seq + 1}
	}
	if id.Tnsec < 1<<31-1 {
		return DocumentId{Tsec: id.Tsec, Tnsec: id.Tnsec + 1, Seq: 0}
	}
	return DocumentId{Tsec: id.Tsec + 1, Tnsec: 0, Seq: 0}
}

// ShardID computes the shard id for a token contributed by a document with
// this id, per the sharding policy in §3: seq / tokensShardSize.
func (id DocumentId) ShardID(tokensShardSize int64) uint32 {
	if tokensShardSize <= 0 {
		tokensShardSize = 1
	}
	return uint32(int64(id.Seq) / tokensShardSize)
}

// Encode returns the fixed-width big-endian encoding used as indexed_id.str
// (§6.1): lexicographic order over these bytes equals temporal order.
func (id DocumentId) Encode() []byte {
	buf := make([]byte, EncodedLen)
	binary.BigEndian.PutUint64(buf[0:8], uint64(id.Tsec))
	binary.BigEndian.PutUint32(buf[8:12], uint32(id.Tnsec))
	binary.BigEndian.PutUint32(buf[12:16], uint32(id.Seq))
	return buf
}

// Decode parses the fixed-width encoding produced by Encode.
func Decode(buf []byte) (DocumentId, error) {
	if len(buf) != EncodedLen {
		return DocumentId{}, gerrors.Newf(gerrors.CorruptFormat, "indexed_id: want %d bytes, got %d", EncodedLen, len(buf))
	}
	return DocumentId{
		Tsec:  int64(binary.BigEndian.Uint64(buf[0:8])),
		Tnsec: int32(binary.BigEndian.Uint32(buf[8:12])),
		Seq:   int32(binary.BigEndian.Uint32(buf[12:16])),
	}, nil
}

// String renders a stable cursor form: "<tsec>.<tnsec>.<seq>".
func (id DocumentId) String() string {
	return fmt.Sprintf("%d.%d.%d", id.Tsec, id.Tnsec, id.Seq)
}

// MarshalJSON renders a DocumentId as its cursor string, so it appears in
// wire responses the same way callers pass it back as next_document_id.
func (id DocumentId) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.String())
}

// UnmarshalJSON accepts the cursor string form produced by MarshalJSON.
func (id *DocumentId) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		*id = DocumentId{}
		return nil
	}
	parsed, err := ParseCursor(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// ParseCursor parses the String() form back into a DocumentId, for
// resuming pagination from a caller-echoed next_document_id.
func ParseCursor(s string) (DocumentId, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return DocumentId{}, gerrors.Newf(gerrors.InvalidRequest, "malformed cursor %q", s)
	}
	tsec, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return DocumentId{}, gerrors.Wrap(gerrors.InvalidRequest, s, err)
	}
	tnsec, err := strconv.ParseInt(parts[1], 10, 32)
	if err != nil {
		return DocumentId{}, gerrors.Wrap(gerrors.InvalidRequest, s, err)
	}
	seq, err := strconv.ParseInt(parts[2], 10, 32)
	if err != nil {
		return DocumentId{}, gerrors.Wrap(gerrors.InvalidRequest, s, err)
	}
	return DocumentId{Tsec: tsec, Tnsec: int32(tnsec), Seq: int32(seq)}, nil
}
