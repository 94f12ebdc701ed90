package retriever

import (
	"sort"

	"github.com/Ozhiganov/greylock/internal/ids"
	"github.com/Ozhiganov/greylock/internal/keys"
	"github.com/Ozhiganov/greylock/internal/kvengine"
	"github.com/Ozhiganov/greylock/internal/model"
)

// Retriever resolves IntersectionQuery objects into SearchResults per the
// four-step algorithm of §4.4.
type Retriever struct {
	engine *kvengine.Engine
}

// New binds a Retriever to engine.
func New(engine *kvengine.Engine) *Retriever {
	return &Retriever{engine: engine}
}

// Intersect implements §4.4's public contract. Mailboxes are walked in
// lexicographic order (deterministic per §4.4's tie-break rule) sharing
// one max_number budget; the combined result is sorted by indexed_id
// before returning, satisfying the "cross-mailbox union is sorted by the
// same key" ordering guarantee.
func (r *Retriever) Intersect(q IntersectionQuery, filter Filter) (SearchResult, error) {
	if len(q.PerMailbox) == 0 {
		return SearchResult{Completed: true, NextDocumentID: ids.Max}, nil
	}
	if q.MaxNumber <= 0 {
		// §8 boundary: max_number=0 -> empty result, completed=false, cursor unchanged.
		return SearchResult{Completed: false, NextDocumentID: q.NextDocumentID}, nil
	}

	mailboxes := append([]MailboxQuery(nil), q.PerMailbox...)
	sort.Slice(mailboxes, func(i, j int) bool { return mailboxes[i].Mailbox < mailboxes[j].Mailbox })

	rangeStart := q.RangeStart
	rangeEnd := q.RangeEnd
	if rangeEnd.Equal(ids.Zero) {
		rangeEnd = ids.Max
	}

	var out []ScoredDocument
	remaining := q.MaxNumber
	completed := true
	next := ids.Max

	for _, mq := range mailboxes {
		if remaining <= 0 {
			completed = false
			break
		}
		docs, mCompleted, mNext, err := r.intersectMailbox(mq, rangeStart, rangeEnd, q.NextDocumentID, remaining, filter)
		if err != nil {
			return SearchResult{}, err
		}
		out = append(out, docs...)
		remaining -= int64(len(docs))
		if !mCompleted {
			completed = false
			next = mNext
			break
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Doc.IndexedID.Less(out[j].Doc.IndexedID) })
	return SearchResult{Docs: out, Completed: completed, NextDocumentID: next}, nil
}

type queryToken struct {
	attr string
	name string
}

// intersectMailbox runs steps 1-4 of §4.4 for one mailbox.
func (r *Retriever) intersectMailbox(mq MailboxQuery, rangeStart, rangeEnd, cursor ids.DocumentId, budget int64, filter Filter) ([]ScoredDocument, bool, ids.DocumentId, error) {
	var required []queryToken
	for _, a := range mq.Attributes {
		for _, tok := range a.Tokens {
			required = append(required, queryToken{attr: a.Name, name: tok})
		}
	}
	if len(required) == 0 {
		// §4.4 edge case: empty token list contributes no filter for that
		// attribute; with no required tokens anywhere there is nothing to
		// drive the walk, so the boundary rule of §8 applies.
		return nil, true, ids.Max, nil
	}

	// Step 1: resolve shard sets for every required token.
	shardSets := make(map[queryToken]model.ShardSet, len(required))
	for _, qt := range required {
		ss, err := r.engine.GetShardSet(keys.TokenShardsKey(mq.Mailbox, qt.attr, qt.name))
		if err != nil {
			return nil, false, ids.DocumentId{}, err
		}
		if len(ss.Shards) == 0 {
			return nil, true, ids.Max, nil
		}
		shardSets[qt] = ss
	}

	// Step 2: pick the driver — the attribute whose per-attribute shard-set
	// intersection is smallest and non-empty, then the fewest-shards token
	// within it as the primary stream.
	driver := pickDriver(mq.Attributes, shardSets)
	primaryShards := shardSets[driver].Shards

	others := make([]queryToken, 0, len(required)-1)
	for _, qt := range required {
		if qt != driver {
			others = append(others, qt)
		}
	}

	// The caller-echoed cursor does not itself carry a shard id, so shards
	// are always walked from the beginning of the driver's shard list;
	// step 3.b's binary search on each shard's posting list is what skips
	// ids already seen on a prior page.
	var out []ScoredDocument
	completed := true
	next := ids.Max

	for _, shard := range primaryShards {
		pl, err := r.engine.GetPostingList(keys.IndexKey(mq.Mailbox, driver.attr, driver.name, shard))
		if err != nil {
			return nil, false, ids.DocumentId{}, err
		}
		offset := sort.Search(len(pl.Ids), func(i int) bool { return !pl.Ids[i].Less(cursor) })
		for _, candidate := range pl.Ids[offset:] {
			if candidate.Less(rangeStart) || !candidate.Less(rangeEnd) {
				continue
			}
			matched := 1
			ok := true
			for _, qt := range others {
				otherPL, err := r.engine.GetPostingList(keys.IndexKey(mq.Mailbox, qt.attr, qt.name, shard))
				if err != nil {
					return nil, false, ids.DocumentId{}, err
				}
				if !memberOf(otherPL.Ids, candidate) {
					ok = false
					break
				}
				matched++
			}
			if !ok {
				continue
			}
			doc, found, err := r.engine.GetDocument(candidate)
			if err != nil {
				return nil, false, ids.DocumentId{}, err
			}
			if !found {
				continue
			}
			if filter != nil && !filter(doc) {
				continue
			}
			out = append(out, ScoredDocument{Doc: doc, Relevance: matched})
			if int64(len(out)) >= budget {
				completed = false
				next = candidate.Next()
				return out, completed, next, nil
			}
		}
	}
	return out, completed, next, nil
}

// pickDriver implements §4.4 step 2's deterministic selection: the
// attribute whose intersection of shard sets across its own tokens is
// smallest and non-empty, tie-broken by attribute name then token name.
func pickDriver(attrs []Attribute, shardSets map[queryToken]model.ShardSet) queryToken {
	type candidate struct {
		attr    string
		token   queryToken
		size    int
	}
	var best *candidate
	for _, a := range attrs {
		if len(a.Tokens) == 0 {
			continue
		}
		var inter []uint32
		for i, tokName := range a.Tokens {
			qt := queryToken{attr: a.Name, name: tokName}
			shards := shardSets[qt].Shards
			if i == 0 {
				inter = append([]uint32(nil), shards...)
			} else {
				inter = intersectSorted(inter, shards)
			}
		}
		if len(inter) == 0 {
			continue
		}
		// Fewest-shards token within this attribute becomes the primary
		// stream candidate for this attribute.
		var primary queryToken
		best2 := -1
		for _, tokName := range a.Tokens {
			qt := queryToken{attr: a.Name, name: tokName}
			n := len(shardSets[qt].Shards)
			if best2 == -1 || n < best2 || (n == best2 && qt.name < primary.name) {
				best2 = n
				primary = qt
			}
		}
		c := candidate{attr: a.Name, token: primary, size: len(inter)}
		if best == nil || c.size < best.size ||
			(c.size == best.size && c.attr < best.attr) ||
			(c.size == best.size && c.attr == best.attr && c.token.name < best.token.name) {
			best = &c
		}
	}
	if best == nil {
		// Every attribute was a wildcard (no tokens); intersectMailbox
		// already returns early in that case, so this is unreachable in
		// practice but kept total for safety.
		return queryToken{}
	}
	return best.token
}

func intersectSorted(a, b []uint32) []uint32 {
	var out []uint32
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

func memberOf(sorted []ids.DocumentId, target ids.DocumentId) bool {
	i := sort.Search(len(sorted), func(i int) bool { return !sorted[i].Less(target) })
	return i < len(sorted) && sorted[i].Equal(target)
}
