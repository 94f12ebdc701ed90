// Package keys builds and parses the bit-exact key layouts of §6.1: the
// index. and token_shards. keys in the indexes store, and the documents /
// document_ids / metadata keys in the docs store.
package keys

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ozhiganov/greylock/internal/gerrors"
)

const (
	// IndexPrefix namespaces per-shard posting-list keys.
	IndexPrefix = "index."
	// TokenShardsPrefix namespaces shard-membership keys.
	TokenShardsPrefix = "token_shards."
	// MetadataKey is the single well-known key holding serialized Metadata.
	MetadataKey = "greylock.meta.key"

	indexKeyFormat       = IndexPrefix + "%s.%s.%s.%d"
	tokenShardsKeyFormat = TokenShardsPrefix + "%s.%s.%s"
)

// IndexKey builds the per-shard posting-list key for (mailbox, attr, token, shard).
func IndexKey(mailbox, attr, token string, shard uint32) string {
	return fmt.Sprintf(indexKeyFormat, mailbox, attr, token, shard)
}

// TokenShardsKey builds the shard-membership key for (mailbox, attr, token).
func TokenShardsKey(mailbox, attr, token string) string {
	return fmt.Sprintf(tokenShardsKeyFormat, mailbox, attr, token)
}

// IndexKeyParts is the parsed form of an IndexKey.
type IndexKeyParts struct {
	Mailbox string
	Attr    string
	Token   string
	Shard   uint32
}

// ParseIndexKey reverses IndexKey. The token text itself may not contain
// '.', matching the tokenizer's normalization (word characters only).
func ParseIndexKey(key string) (IndexKeyParts, error) {
	if !strings.HasPrefix(key, IndexPrefix) {
		return IndexKeyParts{}, gerrors.Newf(gerrors.InvalidRequest, "not an index key: %q", key)
	}
	rest := strings.TrimPrefix(key, IndexPrefix)
	parts := strings.Split(rest, ".")
	if len(parts) != 4 {
		return IndexKeyParts{}, gerrors.Newf(gerrors.CorruptFormat, "malformed index key: %q", key)
	}
	shard, err := strconv.ParseUint(parts[3], 10, 32)
	if err != nil {
		return IndexKeyParts{}, gerrors.Wrap(gerrors.CorruptFormat, key, err)
	}
	return IndexKeyParts{Mailbox: parts[0], Attr: parts[1], Token: parts[2], Shard: uint32(shard)}, nil
}

// TokenShardsKeyParts is the parsed form of a TokenShardsKey.
type TokenShardsKeyParts struct {
	Mailbox string
	Attr    string
	Token   string
}

// ParseTokenShardsKey reverses TokenShardsKey.
func ParseTokenShardsKey(key string) (TokenShardsKeyParts, error) {
	if !strings.HasPrefix(key, TokenShardsPrefix) {
		return TokenShardsKeyParts{}, gerrors.Newf(gerrors.InvalidRequest, "not a token_shards key: %q", key)
	}
	rest := strings.TrimPrefix(key, TokenShardsPrefix)
	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return TokenShardsKeyParts{}, gerrors.Newf(gerrors.CorruptFormat, "malformed token_shards key: %q", key)
	}
	return TokenShardsKeyParts{Mailbox: parts[0], Attr: parts[1], Token: parts[2]}, nil
}

// DocumentsCF and DocumentIDsCF name the docs-store column families. The
// pebble backend does not have first-class column families, so these are
// used as key-prefix discriminators within the single docs store (§9's
// open-question resolution: prefix discrimination stands in for CFs).
const (
	DocumentsCF   = "documents."
	DocumentIDsCF = "document_ids."
)

// DocumentKey builds the documents_cf key for an indexed_id's binary form.
func DocumentKey(indexedIDBytes []byte) []byte {
	return append([]byte(DocumentsCF), indexedIDBytes...)
}

// DocumentIDKey builds the document_ids_cf key for a caller-chosen external id.
func DocumentIDKey(externalID string) []byte {
	return append([]byte(DocumentIDsCF), externalID...)
}
