package worker

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/Ozhiganov/greylock/internal/indexer"
	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/metadata"
	"github.com/Ozhiganov/greylock/internal/model"
)

func newTestPool(t *testing.T, opts Options) (*Pool, *kvengine.Engine) {
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
	ix := indexer.New(e, meta, indexer.Options{})
	p := New(ix, opts)
	p.Start()
	return p, e
}

func awaitResponse(t *testing.T, ch chan Response) Response {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for worker response")
		return Response{}
	}
}

func TestSubmitFlushesOnTimeout(t *testing.T) {
	p, e := newTestPool(t, Options{Count: 1, BatchSize: 100, FlushInterval: 20 * time.Millisecond})
	defer p.Stop()
	resultCh := make(chan Response, 1)
	p.Submit(Request{
		Mailbox: "mailbox1",
		Docs: []indexer.DocumentInput{{
			Content:         model.Content{Title: "hello"},
			IndexAttributes: []indexer.AttributeInput{{Name: "title", Text: "hello"}},
		}},
		Result: resultCh,
	})

	resp := awaitResponse(t, resultCh)
	if resp.Err != nil {
		t.Fatalf("unexpected error: %v", resp.Err)
	}
	if len(resp.Result.Documents) != 1 || resp.Result.Documents[0].Err != nil {
		t.Fatalf("unexpected result: %+v", resp.Result)
	}

	doc, found, err := e.GetDocument(resp.Result.Documents[0].IndexedID)
	if err != nil || !found {
		t.Fatalf("document not persisted: found=%v err=%v", found, err)
	}
	if doc.Mailbox != "mailbox1" {
		t.Fatalf("doc.Mailbox = %q, want mailbox1", doc.Mailbox)
	}
}

func TestSubmitFlushesOnBatchSize(t *testing.T) {
	p, _ := newTestPool(t, Options{Count: 1, BatchSize: 2, FlushInterval: time.Hour})
	defer p.Stop()
	var chans []chan Response
	for i := 0; i < 2; i++ {
		ch := make(chan Response, 1)
		chans = append(chans, ch)
		p.Submit(Request{
			Mailbox: "mailbox1",
			Docs: []indexer.DocumentInput{{
				Content:         model.Content{Title: "batch"},
				IndexAttributes: []indexer.AttributeInput{{Name: "title", Text: "batch"}},
			}},
			Result: ch,
		})
	}
	for _, ch := range chans {
		resp := awaitResponse(t, ch)
		if resp.Err != nil {
			t.Fatalf("unexpected error: %v", resp.Err)
		}
	}
}

func TestSubmitGroupsDifferentMailboxesSeparately(t *testing.T) {
	p, _ := newTestPool(t, Options{Count: 1, BatchSize: 10, FlushInterval: 20 * time.Millisecond})
	defer p.Stop()
	chA := make(chan Response, 1)
	chB := make(chan Response, 1)
	p.Submit(Request{
		Mailbox: "mailboxA",
		Docs:    []indexer.DocumentInput{{Content: model.Content{Title: "a"}, IndexAttributes: []indexer.AttributeInput{{Name: "title", Text: "a"}}}},
		Result:  chA,
	})
	p.Submit(Request{
		Mailbox: "mailboxB",
		Docs:    []indexer.DocumentInput{{Content: model.Content{Title: "b"}, IndexAttributes: []indexer.AttributeInput{{Name: "title", Text: "b"}}}},
		Result:  chB,
	})

	respA := awaitResponse(t, chA)
	respB := awaitResponse(t, chB)
	if len(respA.Result.Documents) != 1 || len(respB.Result.Documents) != 1 {
		t.Fatalf("expected one document each: A=%+v B=%+v", respA.Result, respB.Result)
	}
}

func TestStopFlushesRemainingBuffer(t *testing.T) {
	p, e := newTestPool(t, Options{Count: 1, BatchSize: 100, FlushInterval: time.Hour})
	resultCh := make(chan Response, 1)
	p.Submit(Request{
		Mailbox: "mailbox1",
		Docs:    []indexer.DocumentInput{{Content: model.Content{Title: "final"}, IndexAttributes: []indexer.AttributeInput{{Name: "title", Text: "final"}}}},
		Result:  resultCh,
	})
	p.Stop()

	resp := awaitResponse(t, resultCh)
	if resp.Err != nil || len(resp.Result.Documents) != 1 {
		t.Fatalf("unexpected response after Stop(): %+v", resp)
	}
	if _, found, err := e.GetDocument(resp.Result.Documents[0].IndexedID); err != nil || !found {
		t.Fatalf("final flush did not persist document: found=%v err=%v", found, err)
	}
}
