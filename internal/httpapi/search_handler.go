package httpapi

import (
	"encoding/json"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/Ozhiganov/greylock/internal/gerrors"
	"github.com/Ozhiganov/greylock/internal/ids"
	"github.com/Ozhiganov/greylock/internal/model"
	"github.com/Ozhiganov/greylock/internal/retriever"
	"github.com/Ozhiganov/greylock/internal/telemetry"
)

type searchRequestBody struct {
	PerMailbox     []searchMailboxBody `json:"per_mailbox"`
	RangeStart     string              `json:"range_start"`
	RangeEnd       string              `json:"range_end"`
	NextDocumentID string              `json:"next_document_id"`
	MaxNumber      int64               `json:"max_number"`
}

type searchMailboxBody struct {
	Mailbox    string               `json:"mailbox"`
	Attributes []searchAttrBody     `json:"attributes"`
}

type searchAttrBody struct {
	Name   string     `json:"name"`
	Tokens []string   `json:"tokens"`
	Exact  [][]string `json:"exact"`
}

type searchResponseDoc struct {
	Doc       model.Document `json:"doc"`
	Relevance int            `json:"relevance"`
}

type searchResponseBody struct {
	Docs           []searchResponseDoc `json:"docs"`
	Completed      bool                `json:"completed"`
	NextDocumentID string              `json:"next_document_id"`
}

// handleSearch implements POST /v1/search (SPEC_FULL §13), parsing the
// wire IntersectionQuery, running it through the Retriever, and applying
// exact/phrase re-verification as a Filter.
func (s *Server) handleSearch(ctx *fasthttp.RequestCtx) {
	var body searchRequestBody
	if err := json.Unmarshal(ctx.PostBody(), &body); err != nil {
		writeJSONError(ctx, fasthttp.StatusBadRequest, "malformed request body: "+err.Error())
		return
	}

	q, queryAttrsByMailbox, err := parseSearchRequest(body, s.defMax, s.maxNumber)
	if err != nil {
		writeJSONError(ctx, statusFor(err), err.Error())
		return
	}

	for _, mb := range q.PerMailbox {
		if !s.limiters.allow(mb.Mailbox) {
			writeJSONError(ctx, fasthttp.StatusTooManyRequests, "rate limit exceeded for mailbox "+mb.Mailbox)
			return
		}
	}

	filter := buildFilter(q.PerMailbox, queryAttrsByMailbox)

	start := time.Now()
	result, err := s.retriever.Intersect(q, filter)
	telemetry.SearchLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		writeJSONError(ctx, statusFor(err), err.Error())
		return
	}

	docs := make([]searchResponseDoc, len(result.Docs))
	for i, sd := range result.Docs {
		docs[i] = searchResponseDoc{Doc: sd.Doc, Relevance: sd.Relevance}
	}
	writeJSON(ctx, searchResponseBody{
		Docs:           docs,
		Completed:      result.Completed,
		NextDocumentID: result.NextDocumentID.String(),
	})
}

func parseSearchRequest(body searchRequestBody, defMax, maxMax int64) (retriever.IntersectionQuery, map[string][]retriever.QueryAttribute, error) {
	var q retriever.IntersectionQuery

	maxNumber := body.MaxNumber
	if maxNumber == 0 {
		maxNumber = defMax
	}
	if maxNumber > maxMax {
		maxNumber = maxMax
	}
	q.MaxNumber = maxNumber

	if body.RangeStart != "" {
		id, err := ids.ParseCursor(body.RangeStart)
		if err != nil {
			return q, nil, err
		}
		q.RangeStart = id
	}
	if body.RangeEnd != "" {
		id, err := ids.ParseCursor(body.RangeEnd)
		if err != nil {
			return q, nil, err
		}
		q.RangeEnd = id
	}
	if body.NextDocumentID != "" {
		id, err := ids.ParseCursor(body.NextDocumentID)
		if err != nil {
			return q, nil, err
		}
		q.NextDocumentID = id
	}

	byMailbox := make(map[string][]retriever.QueryAttribute, len(body.PerMailbox))
	for _, mb := range body.PerMailbox {
		if mb.Mailbox == "" {
			return q, nil, gerrors.New(gerrors.InvalidRequest, "mailbox name required")
		}
		var attrs []retriever.Attribute
		var queryAttrs []retriever.QueryAttribute
		for _, a := range mb.Attributes {
			attrs = append(attrs, retriever.Attribute{Name: a.Name, Tokens: a.Tokens})
			if len(a.Exact) > 0 {
				qa := retriever.QueryAttribute{Name: a.Name, Exact: buildPhrasePatterns(a.Exact)}
				queryAttrs = append(queryAttrs, qa)
			}
		}
		q.PerMailbox = append(q.PerMailbox, retriever.MailboxQuery{Mailbox: mb.Mailbox, Attributes: attrs})
		if len(queryAttrs) > 0 {
			byMailbox[mb.Mailbox] = queryAttrs
		}
	}

	return q, byMailbox, nil
}

func buildPhrasePatterns(phrases [][]string) []model.PhrasePattern {
	patterns := make([]model.PhrasePattern, 0, len(phrases))
	for _, phrase := range phrases {
		tokens := make([]model.PatternToken, len(phrase))
		for i, name := range phrase {
			tokens[i] = model.PatternToken{Name: name, Positions: []uint32{uint32(i)}}
		}
		patterns = append(patterns, model.PhrasePattern{Tokens: tokens})
	}
	return patterns
}

// buildFilter combines each queried mailbox's phrase filter with a
// mailbox-membership check, since Retriever.Intersect's Filter callback
// has no mailbox context of its own.
func buildFilter(mailboxes []retriever.MailboxQuery, queryAttrsByMailbox map[string][]retriever.QueryAttribute) retriever.Filter {
	if len(queryAttrsByMailbox) == 0 {
		return nil
	}
	perMailboxFilter := make(map[string]retriever.Filter, len(queryAttrsByMailbox))
	for mailbox, attrs := range queryAttrsByMailbox {
		perMailboxFilter[mailbox] = retriever.PhraseFilter(attrs)
	}
	return func(doc model.Document) bool {
		f, ok := perMailboxFilter[doc.Mailbox]
		if !ok || f == nil {
			return true
		}
		return f(doc)
	}
}
