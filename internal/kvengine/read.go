package kvengine

import (
	"github.com/cockroachdb/pebble"

	"github.com/Ozhiganov/greylock/internal/codec"
	"github.com/Ozhiganov/greylock/internal/gerrors"
	"github.com/Ozhiganov/greylock/internal/ids"
	"github.com/Ozhiganov/greylock/internal/keys"
	"github.com/Ozhiganov/greylock/internal/model"
)

// GetDocument fetches a Document by its indexed_id. Found is false, err is
// nil when the key is simply absent.
func (e *Engine) GetDocument(id ids.DocumentId) (doc model.Document, found bool, err error) {
	key := keys.DocumentKey(id.Encode())
	val, closer, err := e.docs.Get(key)
	if err == pebble.ErrNotFound {
		return model.Document{}, false, nil
	}
	if err != nil {
		return model.Document{}, false, gerrors.Wrap(gerrors.IoError, string(key), err)
	}
	defer closer.Close()
	if decErr := codec.Decode(val, codec.VersionDocument, &doc); decErr != nil {
		return model.Document{}, false, gerrors.Wrap(gerrors.CorruptFormat, string(key), decErr)
	}
	return doc, true, nil
}

// GetDocumentID resolves an external caller-chosen id to its indexed_id,
// used for the invariant-4 dedup lookup.
func (e *Engine) GetDocumentID(externalID string) (id ids.DocumentId, found bool, err error) {
	key := keys.DocumentIDKey(externalID)
	val, closer, err := e.docs.Get(key)
	if err == pebble.ErrNotFound {
		return ids.DocumentId{}, false, nil
	}
	if err != nil {
		return ids.DocumentId{}, false, gerrors.Wrap(gerrors.IoError, string(key), err)
	}
	defer closer.Close()
	decoded, decErr := ids.Decode(val)
	if decErr != nil {
		return ids.DocumentId{}, false, gerrors.Wrap(gerrors.CorruptFormat, string(key), decErr)
	}
	return decoded, true, nil
}

// GetPostingList reads the posting list at key. Per §7, a missing key is
// not an error for posting-list reads — it is treated as empty.
func (e *Engine) GetPostingList(key string) (model.PostingList, error) {
	val, closer, err := e.indexes.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return model.PostingList{}, nil
	}
	if err != nil {
		if gerrors.Is(err, gerrors.MergeFailure) {
			return model.PostingList{}, gerrors.Wrap(gerrors.CorruptIndex, key, err)
		}
		return model.PostingList{}, gerrors.Wrap(gerrors.IoError, key, err)
	}
	defer closer.Close()
	var pl model.PostingList
	if decErr := codec.Decode(val, codec.VersionPostingList, &pl); decErr != nil {
		return model.PostingList{}, gerrors.Wrap(gerrors.CorruptIndex, key, decErr)
	}
	return pl, nil
}

// GetShardSet reads the shard-membership set at key. A missing key is
// treated as an empty set, not an error (§7).
func (e *Engine) GetShardSet(key string) (model.ShardSet, error) {
	val, closer, err := e.indexes.Get([]byte(key))
	if err == pebble.ErrNotFound {
		return model.ShardSet{}, nil
	}
	if err != nil {
		return model.ShardSet{}, gerrors.Wrap(gerrors.IoError, key, err)
	}
	defer closer.Close()
	var ss model.ShardSet
	if decErr := codec.Decode(val, codec.VersionShardSet, &ss); decErr != nil {
		return model.ShardSet{}, gerrors.Wrap(gerrors.CorruptIndex, key, decErr)
	}
	return ss, nil
}

// GetMetadata reads the singleton Metadata record. Missing is not treated
// as empty here — callers use found to distinguish "never written" from
// "corrupt", per §4.1's open-time recovery ("if missing, start at zero").
func (e *Engine) GetMetadata() (meta model.Metadata, found bool, err error) {
	val, closer, err := e.docs.Get([]byte(keys.MetadataKey))
	if err == pebble.ErrNotFound {
		return model.Metadata{}, false, nil
	}
	if err != nil {
		return model.Metadata{}, false, gerrors.Wrap(gerrors.IoError, keys.MetadataKey, err)
	}
	defer closer.Close()
	if decErr := codec.Decode(val, codec.VersionMetadata, &meta); decErr != nil {
		return model.Metadata{}, false, gerrors.Wrap(gerrors.CorruptFormat, keys.MetadataKey, decErr)
	}
	return meta, true, nil
}

// PutMetadata writes the singleton Metadata record directly (a plain put,
// not a merge — the metadata key is written only by the flush timer,
// never concurrently, so read-modify-write is safe here per §5).
func (e *Engine) PutMetadata(meta model.Metadata) error {
	val, err := codec.Encode(codec.VersionMetadata, meta)
	if err != nil {
		return err
	}
	if err := e.docs.Set([]byte(keys.MetadataKey), val, pebble.Sync); err != nil {
		return gerrors.Wrap(gerrors.IoError, keys.MetadataKey, err)
	}
	return nil
}

// IndexesIterator opens a prefix-seekable iterator over the indexes store,
// satisfying §4.2's "ordered iteration with prefix seek" requirement.
// Used by the compaction CLI to walk keys when chunking a compaction; the
// core retrieval algorithm itself only needs point Gets (§4.4 reads exact
// per-shard keys, it does not scan).
func (e *Engine) IndexesIterator() (*pebble.Iterator, error) {
	return e.indexes.NewIter(&pebble.IterOptions{})
}
