package httpapi

import (
	"encoding/json"

	"github.com/valyala/fasthttp"

	"github.com/Ozhiganov/greylock/internal/indexer"
	"github.com/Ozhiganov/greylock/internal/worker"
)

// handleIndex implements POST /v1/mailboxes/{mailbox}/documents (SPEC_FULL
// §13). Requests are handed to the worker pool and this handler blocks
// until that mailbox's batch is flushed, mirroring the synchronous
// request/response shape of original_source/src/server.cpp's on_index.
func (s *Server) handleIndex(ctx *fasthttp.RequestCtx) {
	mailbox := pathParam(ctx, "mailbox")
	if mailbox == "" {
		writeJSONError(ctx, fasthttp.StatusBadRequest, "missing mailbox")
		return
	}
	if !s.limiters.allow(mailbox) {
		writeJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded for mailbox")
		return
	}
	if s.pool == nil {
		writeJSONError(ctx, fasthttp.StatusServiceUnavailable, "server is read-only")
		return
	}

	var body indexRequestBody
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil {
		writeJSONError(ctx, fasthttp.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}
	if len(body.Documents) == 0 {
		writeJSON(ctx, map[string]any{"documents": []indexResponseDocument{}})
		return
	}

	docs := make([]indexer.DocumentInput, 0, len(body.Documents))
	for _, d := range body.Documents {
		attrs := make([]indexer.AttributeInput, 0, len(d.IndexAttributes))
		for _, a := range d.IndexAttributes {
			attrs = append(attrs, indexer.AttributeInput{
				Name:         a.Name,
				Text:         attrText(d.Content, a.Name),
				ExactPhrases: a.Exact,
			})
		}
		docs = append(docs, indexer.DocumentInput{
			ID:              d.ID,
			Author:          d.Author,
			Content:         buildContent(d.Content),
			IndexAttributes: attrs,
		})
	}

	respCh := make(chan worker.Response, 1)
	s.pool.Submit(worker.Request{Mailbox: mailbox, Docs: docs, Result: respCh})

	select {
	case r := <-respCh:
		if r.Err != nil {
			writeJSONError(ctx, statusFor(r.Err), r.Err.Error())
			return
		}
		out := make([]indexResponseDocument, len(r.Result.Documents))
		for i, dr := range r.Result.Documents {
			rd := indexResponseDocument{ID: dr.ID, Skipped: dr.Skipped}
			if dr.Err != nil {
				rd.Error = dr.Err.Error()
			} else {
				rd.IndexedID = dr.IndexedID.String()
			}
			out[i] = rd
		}
		writeJSON(ctx, map[string]any{"documents": out})
	case <-ctx.Done():
		writeJSONError(ctx, fasthttp.StatusGatewayTimeout, "request cancelled")
	}
}
