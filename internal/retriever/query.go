// Package retriever implements §4.4's ordered-intersection retrieval
// algorithm and §4.5's phrase/exact re-verification. Grounded on
// original_source/src/server.cpp's on_search handler and its
// check_negation/check_exact/check_result helpers.
package retriever

import (
	"github.com/Ozhiganov/greylock/internal/ids"
	"github.com/Ozhiganov/greylock/internal/model"
)

// Attribute reuses the tokens+exact shape of model.Attribute for a query
// (§4.4: "Attribute reused: tokens + exact"), but here Tokens carry only
// Name — a query does not supply positions, only the terms to intersect.
type Attribute struct {
	Name   string
	Tokens []string
	Exact  []model.PhrasePattern
}

// MailboxQuery scopes an intersection to one mailbox with a set of
// required attributes.
type MailboxQuery struct {
	Mailbox    string
	Attributes []Attribute
}

// IntersectionQuery is the parsed query object of §4.4.
type IntersectionQuery struct {
	PerMailbox      []MailboxQuery
	RangeStart      ids.DocumentId
	RangeEnd        ids.DocumentId
	NextDocumentID  ids.DocumentId
	MaxNumber       int64
}

// ScoredDocument pairs a Document with its match count.
type ScoredDocument struct {
	Doc       model.Document
	Relevance int
}

// SearchResult is the response contract of §4.4/§6.3.
type SearchResult struct {
	Docs           []ScoredDocument
	Completed      bool
	NextDocumentID ids.DocumentId
}

// Filter is the caller-supplied predicate used for phrase/exact
// re-verification (§4.5); it receives the fully fetched Document.
type Filter func(doc model.Document) bool
