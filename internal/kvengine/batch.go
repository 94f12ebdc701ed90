package kvengine

import (
	"github.com/cockroachdb/pebble"

	"github.com/Ozhiganov/greylock/internal/codec"
	"github.com/Ozhiganov/greylock/internal/gerrors"
	"github.com/Ozhiganov/greylock/internal/ids"
	"github.com/Ozhiganov/greylock/internal/keys"
	"github.com/Ozhiganov/greylock/internal/model"
)

// DocsBatch accumulates the puts that make up one document's docs_batch
// (§4.3 step 4): the document record and its external-id -> indexed_id
// dedup entry. Committed strictly before the corresponding IndexesBatch.
type DocsBatch struct {
	e     *Engine
	batch *pebble.Batch
}

// NewDocsBatch starts a new atomic batch against the docs store.
func (e *Engine) NewDocsBatch() *DocsBatch {
	return &DocsBatch{e: e, batch: e.docs.NewBatch()}
}

// PutDocument stages the serialized Document under documents_cf.
func (b *DocsBatch) PutDocument(doc model.Document) error {
	val, err := codec.Encode(codec.VersionDocument, doc)
	if err != nil {
		return err
	}
	key := keys.DocumentKey(doc.IndexedID.Encode())
	if err := b.batch.Set(key, val, nil); err != nil {
		return gerrors.Wrap(gerrors.IoError, string(key), err)
	}
	return nil
}

// PutDocumentID stages the external-id -> indexed_id dedup entry under
// document_ids_cf.
func (b *DocsBatch) PutDocumentID(externalID string, id ids.DocumentId) error {
	key := keys.DocumentIDKey(externalID)
	if err := b.batch.Set(key, id.Encode(), nil); err != nil {
		return gerrors.Wrap(gerrors.IoError, string(key), err)
	}
	return nil
}

// Commit applies the batch synchronously so the document is durable before
// the caller proceeds to build the corresponding IndexesBatch (§4.3, §5).
func (b *DocsBatch) Commit() error {
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return gerrors.Wrap(gerrors.IoError, "docs_batch", err)
	}
	return nil
}

// IndexesBatch accumulates the merges that make up one document's
// indexes_batch (§4.3 step 4): a posting-list insert and a shard-set
// delta per token.
type IndexesBatch struct {
	e     *Engine
	batch *pebble.Batch
}

// NewIndexesBatch starts a new atomic batch against the indexes store.
func (e *Engine) NewIndexesBatch() *IndexesBatch {
	return &IndexesBatch{e: e, batch: e.indexes.NewBatch()}
}

// MergePosting stages a DocumentForIndex insert operand for the posting
// list at key (§4.2's "index." dispatch branch).
func (b *IndexesBatch) MergePosting(key string, id ids.DocumentId) error {
	val, err := codec.Encode(codec.VersionPostingOperand, model.DocumentForIndexOf(id))
	if err != nil {
		return err
	}
	if err := b.batch.Merge([]byte(key), val, nil); err != nil {
		return gerrors.Wrap(gerrors.IoError, key, err)
	}
	return nil
}

// MergeShardSet stages a single-shard delta operand for the shard-set
// membership record at key (§4.2's "token_shards." dispatch branch). The
// delta is wire-identical to an at-rest ShardSet — the merge operator
// appends-then-dedupes either way, so both share VersionShardSet.
func (b *IndexesBatch) MergeShardSet(key string, shard uint32) error {
	val, err := codec.Encode(codec.VersionShardSet, model.ShardSet{Shards: []uint32{shard}})
	if err != nil {
		return err
	}
	if err := b.batch.Merge([]byte(key), val, nil); err != nil {
		return gerrors.Wrap(gerrors.IoError, key, err)
	}
	return nil
}

// Commit applies the batch synchronously.
func (b *IndexesBatch) Commit() error {
	if err := b.batch.Commit(pebble.Sync); err != nil {
		return gerrors.Wrap(gerrors.IoError, "indexes_batch", err)
	}
	return nil
}
