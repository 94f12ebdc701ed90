package indexer

import (
	"path/filepath"
	"testing"

	"github.com/Ozhiganov/greylock/internal/keys"
	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/metadata"
	"github.com/Ozhiganov/greylock/internal/model"
)

func newTestIndexer(t *testing.T, opts Options) (*Indexer, *kvengine.Engine) {
	t.Helper()
	dir := t.TempDir()
	e, err := kvengine.Open(kvengine.Options{
		DocsPath:    filepath.Join(dir, "docs"),
		IndexesPath: filepath.Join(dir, "indexes"),
		Mode:        kvengine.ReadWrite,
	})
	if err != nil {
		t.Fatalf("kvengine.Open() error: %v", err)
	}
	t.Cleanup(func() { e.Close() })
	meta, err := metadata.Open(e)
	if err != nil {
		t.Fatalf("metadata.Open() error: %v", err)
	}
	return New(e, meta, opts), e
}

func TestIndexOneDocumentRoundTrip(t *testing.T) {
	ix, e := newTestIndexer(t, Options{})
	res, err := ix.Index("mailbox1", []DocumentInput{
		{
			ID:     "ext-1",
			Author: "alice",
			Content: model.Content{
				Title: "Hello World",
				Body:  "the quick brown fox",
			},
			IndexAttributes: []AttributeInput{
				{Name: "title", Text: "Hello World"},
				{Name: "body", Text: "the quick brown fox"},
			},
		},
	})
	if err != nil {
		t.Fatalf("Index() error: %v", err)
	}
	if len(res.Documents) != 1 {
		t.Fatalf("Index() returned %d results, want 1", len(res.Documents))
	}
	dr := res.Documents[0]
	if dr.Err != nil {
		t.Fatalf("indexing failed: %v", dr.Err)
	}
	if dr.Skipped {
		t.Fatal("did not expect skip on first index")
	}

	doc, found, err := e.GetDocument(dr.IndexedID)
	if err != nil {
		t.Fatalf("GetDocument() error: %v", err)
	}
	if !found {
		t.Fatal("expected indexed document to be retrievable")
	}
	if doc.Mailbox != "mailbox1" || doc.Author != "alice" {
		t.Fatalf("GetDocument() = %+v", doc)
	}

	shardKey := keys.TokenShardsKey("mailbox1", "title", "hello")
	ss, err := e.GetShardSet(shardKey)
	if err != nil {
		t.Fatalf("GetShardSet() error: %v", err)
	}
	if len(ss.Shards) != 1 || ss.Shards[0] != 0 {
		t.Fatalf("GetShardSet() = %+v, want [0]", ss.Shards)
	}

	indexKey := keys.IndexKey("mailbox1", "title", "hello", 0)
	pl, err := e.GetPostingList(indexKey)
	if err != nil {
		t.Fatalf("GetPostingList() error: %v", err)
	}
	if len(pl.Ids) != 1 || !pl.Ids[0].Equal(dr.IndexedID) {
		t.Fatalf("GetPostingList() = %+v, want [%+v]", pl.Ids, dr.IndexedID)
	}
}

func TestIndexSkipsDuplicateIDWhenDedupEnabled(t *testing.T) {
	ix, _ := newTestIndexer(t, Options{SkipIfDocumentIDExists: true})
	in := DocumentInput{
		ID:              "ext-1",
		Content:         model.Content{Title: "Once"},
		IndexAttributes: []AttributeInput{{Name: "title", Text: "Once"}},
	}
	res1, err := ix.Index("mailbox1", []DocumentInput{in})
	if err != nil {
		t.Fatalf("Index() error: %v", err)
	}
	firstID := res1.Documents[0].IndexedID

	res2, err := ix.Index("mailbox1", []DocumentInput{in})
	if err != nil {
		t.Fatalf("Index() error: %v", err)
	}
	dr := res2.Documents[0]
	if !dr.Skipped {
		t.Fatal("expected second index of the same external id to be skipped")
	}
	if !dr.IndexedID.Equal(firstID) {
		t.Fatalf("skip should report original indexed id %+v, got %+v", firstID, dr.IndexedID)
	}
}

func TestIndexWithoutDedupIndexesEveryCall(t *testing.T) {
	ix, _ := newTestIndexer(t, Options{SkipIfDocumentIDExists: false})
	in := DocumentInput{
		ID:              "ext-1",
		Content:         model.Content{Title: "Again"},
		IndexAttributes: []AttributeInput{{Name: "title", Text: "Again"}},
	}
	res1, _ := ix.Index("mailbox1", []DocumentInput{in})
	res2, _ := ix.Index("mailbox1", []DocumentInput{in})
	if res2.Documents[0].Skipped {
		t.Fatal("did not expect skip when dedup disabled")
	}
	if res1.Documents[0].IndexedID.Equal(res2.Documents[0].IndexedID) {
		t.Fatal("expected distinct indexed ids across separate index calls")
	}
}

func TestIndexShardAssignmentUsesTokensShardSize(t *testing.T) {
	ix, _ := newTestIndexer(t, Options{TokensShardSize: 1})
	res, err := ix.Index("mailbox1", []DocumentInput{
		{Content: model.Content{Title: "a"}, IndexAttributes: []AttributeInput{{Name: "title", Text: "a"}}},
		{Content: model.Content{Title: "b"}, IndexAttributes: []AttributeInput{{Name: "title", Text: "b"}}},
	})
	if err != nil {
		t.Fatalf("Index() error: %v", err)
	}
	if res.Documents[0].IndexedID.ShardID(1) == res.Documents[1].IndexedID.ShardID(1) {
		t.Fatalf("expected distinct shards with TokensShardSize=1 across successive sequence numbers")
	}
}

func TestIndexShardDistributionMatchesSequenceAllocation(t *testing.T) {
	ix, e := newTestIndexer(t, Options{TokensShardSize: 2})
	var docs []DocumentInput
	for i := 0; i < 5; i++ {
		docs = append(docs, DocumentInput{
			Content:         model.Content{Title: "shared"},
			IndexAttributes: []AttributeInput{{Name: "title", Text: "shared"}},
		})
	}
	res, err := ix.Index("mailbox1", docs)
	if err != nil {
		t.Fatalf("Index() error: %v", err)
	}
	if len(res.Documents) != 5 {
		t.Fatalf("Index() returned %d results, want 5", len(res.Documents))
	}

	// Seq allocation starts at 0, so with TokensShardSize=2 the five docs
	// land in shards 0,0,1,1,2 — counts {2,2,1}, matching the shard
	// distribution spec.md's worked example requires.
	wantCounts := []int{2, 2, 1}
	for shard, want := range wantCounts {
		indexKey := keys.IndexKey("mailbox1", "title", "shared", uint32(shard))
		pl, err := e.GetPostingList(indexKey)
		if err != nil {
			t.Fatalf("GetPostingList(shard=%d) error: %v", shard, err)
		}
		if len(pl.Ids) != want {
			t.Fatalf("shard %d has %d ids, want %d", shard, len(pl.Ids), want)
		}
	}
}

func TestIndexRejectsEmptyMailbox(t *testing.T) {
	ix, _ := newTestIndexer(t, Options{})
	if _, err := ix.Index("", []DocumentInput{{Content: model.Content{Title: "x"}}}); err == nil {
		t.Fatal("expected error for empty mailbox")
	}
}
