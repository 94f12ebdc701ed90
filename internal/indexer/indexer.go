// Package indexer implements §4.3: tokenizing a document's attributes,
// assigning tokens to shards, and writing the two atomic batches that make
// a document durable and then searchable. Grounded on
// original_source/src/server.cpp's process_one_document (docs_batch
// committed before indexes_batch) and
// service/pkg/ingest/apply/{batch.go,apply.go}'s two-phase
// batch-then-commit structure.
package indexer

import (
	"time"

	"github.com/Ozhiganov/greylock/internal/gerrors"
	"github.com/Ozhiganov/greylock/internal/ids"
	"github.com/Ozhiganov/greylock/internal/keys"
	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/metadata"
	"github.com/Ozhiganov/greylock/internal/model"
	"github.com/Ozhiganov/greylock/internal/tokenizer"
)

// Options configures an Indexer; New binds them once and every Index call
// uses them. TokensShardSize and NgramIndexSize come from config (§3's sharding policy, §4.3's ngram option).
type Options struct {
	TokensShardSize int64
	NgramIndexSize  int
	// SkipIfDocumentIDExists implements §4.3's dedup policy knob: when
	// true, a document whose external id already resolves to an
	// indexed_id is skipped rather than indexed again.
	SkipIfDocumentIDExists bool
}

// DocumentInput is the caller-supplied, not-yet-assigned-an-id form of a
// Document. Timestamp is optional; zero means "use wall-clock time".
type DocumentInput struct {
	ID              string
	Author          string
	Content         model.Content
	IndexAttributes []AttributeInput
	Timestamp       time.Time
}

// AttributeInput is a caller-supplied attribute: raw text to tokenize plus
// any phrase patterns to store for later re-verification. Positions in
// Exact patterns are assigned here, 0, 1, 2, ... in phrase order, so
// callers cannot forge them (SPEC_FULL §13).
type AttributeInput struct {
	Name string
	Text string
	// ExactPhrases are token-text sequences whose adjacency in Text must
	// be re-verifiable at query time; positions are derived automatically
	// from each token's index in its phrase. The token texts are stored
	// as given, without passing through the tokenizer.
	ExactPhrases [][]string
}

// DocumentResult reports the outcome of indexing one document.
type DocumentResult struct {
	ID        string
	IndexedID ids.DocumentId
	Skipped   bool
	Err       error
}

// Result is the outcome of one Index call: one DocumentResult per input,
// in the same order, per §7's "other documents in the same batch request
// MAY be reported individually" propagation policy.
type Result struct {
	Documents []DocumentResult
}

// Indexer owns the KV engine, id allocator, and tokenizer options needed
// to run the per-document algorithm of §4.3.
type Indexer struct {
	engine *kvengine.Engine
	meta   *metadata.Metadata
	opts   Options
}

// New builds an Indexer bound to engine and meta with the given Options.
func New(engine *kvengine.Engine, meta *metadata.Metadata, opts Options) *Indexer {
	if opts.TokensShardSize <= 0 {
		opts.TokensShardSize = 4_000_000
	}
	return &Indexer{engine: engine, meta: meta, opts: opts}
}

// Index runs the per-document algorithm of §4.3 for every input in docs,
// scoped to mailbox. A failure indexing one document aborts that document
// and is reported in its DocumentResult; other documents still proceed.
func (ix *Indexer) Index(mailbox string, docs []DocumentInput) (Result, error) {
	if mailbox == "" {
		return Result{}, gerrors.New(gerrors.InvalidRequest, "empty mailbox")
	}
	res := Result{Documents: make([]DocumentResult, 0, len(docs))}
	for _, in := range docs {
		dr := ix.indexOne(mailbox, in)
		res.Documents = append(res.Documents, dr)
	}
	return res, nil
}

func (ix *Indexer) indexOne(mailbox string, in DocumentInput) DocumentResult {
	if ix.opts.SkipIfDocumentIDExists && in.ID != "" {
		existing, found, err := ix.engine.GetDocumentID(in.ID)
		if err != nil {
			return DocumentResult{ID: in.ID, Err: err}
		}
		if found {
			return DocumentResult{ID: in.ID, IndexedID: existing, Skipped: true}
		}
	}

	// Step 1: compute indexed_id = (now.tsec, now.tnsec, IdAlloc.next_seq()).
	ts := in.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	seq := ix.meta.NextSeq()
	indexedID := ids.DocumentId{
		Tsec:  ts.Unix(),
		Tnsec: int32(ts.Nanosecond()),
		Seq:   int32(seq),
	}
	shardID := indexedID.ShardID(ix.opts.TokensShardSize)

	// Step 2 & 3: tokenize each attribute and derive keys.
	attrs := make([]model.Attribute, 0, len(in.IndexAttributes))
	for _, a := range in.IndexAttributes {
		tokens := tokenizer.Tokenize(a.Text, tokenizer.Options{NgramIndexSize: ix.opts.NgramIndexSize})
		var exact []model.PhrasePattern
		for _, phrase := range a.ExactPhrases {
			pt := make([]model.PatternToken, len(phrase))
			for i, name := range phrase {
				pt[i] = model.PatternToken{Name: name, Positions: []uint32{uint32(i)}}
			}
			exact = append(exact, model.PhrasePattern{Tokens: pt})
		}
		attrs = append(attrs, model.Attribute{Name: a.Name, Tokens: tokens, Exact: exact})
	}

	doc := model.Document{
		ID:              in.ID,
		IndexedID:       indexedID,
		Mailbox:         mailbox,
		Author:          in.Author,
		Content:         in.Content,
		IndexAttributes: attrs,
	}

	// Step 4: build docs_batch and indexes_batch.
	docsBatch := ix.engine.NewDocsBatch()
	if err := docsBatch.PutDocument(doc); err != nil {
		return DocumentResult{ID: in.ID, IndexedID: indexedID, Err: err}
	}
	if in.ID != "" {
		if err := docsBatch.PutDocumentID(in.ID, indexedID); err != nil {
			return DocumentResult{ID: in.ID, IndexedID: indexedID, Err: err}
		}
	}

	indexesBatch := ix.engine.NewIndexesBatch()
	for _, attr := range attrs {
		for _, tok := range attr.Tokens {
			indexKey := keys.IndexKey(mailbox, attr.Name, tok.Name, shardID)
			shardKey := keys.TokenShardsKey(mailbox, attr.Name, tok.Name)
			if err := indexesBatch.MergePosting(indexKey, indexedID); err != nil {
				return DocumentResult{ID: in.ID, IndexedID: indexedID, Err: err}
			}
			if err := indexesBatch.MergeShardSet(shardKey, shardID); err != nil {
				return DocumentResult{ID: in.ID, IndexedID: indexedID, Err: err}
			}
		}
	}

	// Step 5: commit docs_batch first, then indexes_batch (§4.3's
	// ordering rationale — a crash between the two leaves an
	// unsearchable but discoverable document, never a dangling index).
	if err := docsBatch.Commit(); err != nil {
		return DocumentResult{ID: in.ID, IndexedID: indexedID, Err: err}
	}
	if err := indexesBatch.Commit(); err != nil {
		return DocumentResult{ID: in.ID, IndexedID: indexedID, Err: err}
	}

	return DocumentResult{ID: in.ID, IndexedID: indexedID}
}
