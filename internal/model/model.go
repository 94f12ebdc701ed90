// Package model defines the persisted and in-flight domain types shared by
// the Indexer and Retriever: documents, attributes, tokens, posting lists,
// shard sets, and the metadata record.
package model

import "github.com/Ozhiganov/greylock/internal/ids"

// Content holds a document's textual fields, mirroring the shape re-tokenized
// during phrase/exact re-verification (§4.5).
type Content struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Links  []string `json:"links,omitempty"`
	Images []string `json:"images,omitempty"`
}

// FieldByName returns the named content field's text, or ("", false) if
// name does not identify a re-verifiable text field.
func (c Content) FieldByName(name string) (string, bool) {
	switch name {
	case "title":
		return c.Title, true
	case "body":
		return c.Body, true
	default:
		return "", false
	}
}

// PhrasePattern is a sequence of token texts with intra-pattern positions,
// re-verified against retokenized content at query time (§4.5).
type PhrasePattern struct {
	Tokens []PatternToken `json:"tokens"`
}

// PatternToken is one token of a PhrasePattern: its text and the position
// offsets, relative to the pattern's anchor, it must occupy in content.
type PatternToken struct {
	Name      string   `json:"name"`
	Positions []uint32 `json:"positions"`
}

// Token is a normalized term extracted from an attribute value.
type Token struct {
	Name      string   `json:"name"`
	Positions []uint32 `json:"positions"`
}

// Attribute is a named field on a document that contributes to the index.
type Attribute struct {
	Name   string          `json:"name"`
	Tokens []Token         `json:"tokens"`
	Exact  []PhrasePattern `json:"exact,omitempty"`
}

// Document is the immutable, caller-submitted record persisted verbatim
// under documents_cf, keyed by its indexed_id.
type Document struct {
	ID              string         `json:"id"`
	IndexedID       ids.DocumentId `json:"indexed_id"`
	Mailbox         string         `json:"mailbox"`
	Author          string         `json:"author"`
	Content         Content        `json:"content"`
	IndexAttributes []Attribute    `json:"index_attributes"`
}

// DocumentForIndex is the insert operand merged into a PostingList: just
// enough to identify the document within a shard. Its three fields are
// ids.DocumentId's own components, flattened rather than nested, so its
// wire arity (3) differs from PostingList's (1) — the merge operator
// must tell the two apart by tag alone when replaying a merge chain
// (§4.2, §6.2).
type DocumentForIndex struct {
	Tsec  int64 `json:"tsec"`
	Tnsec int32 `json:"tnsec"`
	Seq   int32 `json:"seq"`
}

// ID reassembles the flattened fields into an ids.DocumentId.
func (d DocumentForIndex) ID() ids.DocumentId {
	return ids.DocumentId{Tsec: d.Tsec, Tnsec: d.Tnsec, Seq: d.Seq}
}

// DocumentForIndexOf flattens id into an insert operand.
func DocumentForIndexOf(id ids.DocumentId) DocumentForIndex {
	return DocumentForIndex{Tsec: id.Tsec, Tnsec: id.Tnsec, Seq: id.Seq}
}

// PostingList is the ordered, deduplicated set of document ids that
// contain a token within one shard. Invariant: Ids is strictly ascending.
type PostingList struct {
	Ids []ids.DocumentId `json:"ids"`
}

// ShardSet is the ordered, deduplicated set of shard ids in which a token
// has at least one posting. Invariant: Shards is strictly ascending.
type ShardSet struct {
	Shards []uint32 `json:"shards"`
}

// Metadata is the process-singleton durable sequence counter. Reserved is
// always zero; it exists only so Metadata's wire arity is 2, matching its
// historical tag (§6.2, VersionMetadata).
type Metadata struct {
	Seq      int64 `json:"seq"`
	Reserved int64 `json:"reserved"`
}
