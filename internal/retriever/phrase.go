package retriever

import (
	"github.com/Ozhiganov/greylock/internal/model"
	"github.com/Ozhiganov/greylock/internal/tokenizer"
)

// QueryAttribute names one attribute's exact-phrase requirements for
// PhraseFilter, keyed by attribute name so a query need only list the
// attributes it cares about.
type QueryAttribute struct {
	Name  string
	Exact []model.PhrasePattern
}

// phraseCache memoizes retokenization of a document's attribute text for
// the lifetime of a single Intersect call, keyed by (indexed_id,
// attribute name). Candidates that share a driver shard but differ in
// attribute never collide; documents are only ever retokenized once even
// when several exact patterns target the same attribute.
type phraseCache struct {
	words map[cacheKey][]string
}

type cacheKey struct {
	tsec, tnsec int64
	seq         int32
	attr        string
}

func newPhraseCache() *phraseCache {
	return &phraseCache{words: make(map[cacheKey][]string)}
}

func (c *phraseCache) wordsFor(doc model.Document, attrName, text string) []string {
	key := cacheKey{tsec: doc.IndexedID.Tsec, tnsec: int64(doc.IndexedID.Tnsec), seq: doc.IndexedID.Seq, attr: attrName}
	if w, ok := c.words[key]; ok {
		return w
	}
	w := tokenizer.Words(text)
	c.words[key] = w
	return w
}

// PhraseFilter builds a Filter implementing §4.5's exact/phrase
// re-verification: a candidate document must contain every pattern's
// token sequence in adjacent word positions within the named attribute's
// source text. Grounded on original_source/src/server.cpp's check_exact,
// which retokenizes the stored content rather than trusting index
// membership alone, since posting-list membership only proves each token
// appears somewhere in the attribute, not that they appear together.
func PhraseFilter(attrs []QueryAttribute) Filter {
	if len(attrs) == 0 {
		return nil
	}
	cache := newPhraseCache()
	return func(doc model.Document) bool {
		for _, qa := range attrs {
			if len(qa.Exact) == 0 {
				continue
			}
			text, ok := doc.Content.FieldByName(qa.Name)
			if !ok {
				return false
			}
			words := cache.wordsFor(doc, qa.Name, text)
			for _, pattern := range qa.Exact {
				if !matchesAdjacent(words, pattern) {
					return false
				}
			}
		}
		return true
	}
}

// matchesAdjacent reports whether pattern's tokens occur in words at
// consecutive positions matching the pattern's own relative offsets,
// starting at any base position.
func matchesAdjacent(words []string, pattern model.PhrasePattern) bool {
	if len(pattern.Tokens) == 0 {
		return true
	}
	first := pattern.Tokens[0]
	firstOffset := uint32(0)
	if len(first.Positions) > 0 {
		firstOffset = first.Positions[0]
	}
	for base := 0; base+len(pattern.Tokens) <= len(words); base++ {
		if uint32(base) < firstOffset {
			continue
		}
		ok := true
		for i, pt := range pattern.Tokens {
			offset := uint32(i)
			if len(pt.Positions) > 0 {
				offset = pt.Positions[0]
			}
			idx := base + int(offset-firstOffset)
			if idx < 0 || idx >= len(words) || words[idx] != pt.Name {
				ok = false
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}
