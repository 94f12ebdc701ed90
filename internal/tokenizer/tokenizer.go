// Package tokenizer implements the lowercase, Unicode-aware word splitter
// used identically at index time and query time (§4.3, §4.5) — the
// engine's correctness depends on both passes producing the same tokens
// for the same text, since phrase re-verification retokenizes on read.
package tokenizer

import (
	"strings"
	"unicode"

	"github.com/Ozhiganov/greylock/internal/model"
)

// Options controls ngram/bigram emission (§4.3's "Ngram option").
type Options struct {
	// NgramIndexSize is the length threshold below which a token is also
	// emitted as bigrams with its neighbors. Zero disables the option.
	NgramIndexSize int
}

// Tokenize splits text into normalized Tokens with positions. Position is
// the ordinal index of the token within text, not a byte offset — that is
// what phrase re-verification compares against pattern positions.
func Tokenize(text string, opts Options) []model.Token {
	words := splitWords(text)
	byName := make(map[string]*model.Token, len(words))
	order := make([]string, 0, len(words))

	add := func(name string, pos uint32) {
		t, ok := byName[name]
		if !ok {
			nt := model.Token{Name: name}
			byName[name] = &nt
			order = append(order, name)
			t = &nt
		}
		t.Positions = append(t.Positions, pos)
	}

	for i, w := range words {
		add(w, uint32(i))
	}

	if opts.NgramIndexSize > 0 {
		for i, w := range words {
			if len(w) >= opts.NgramIndexSize {
				continue
			}
			if i > 0 {
				add(words[i-1]+w, uint32(i))
			}
			if i+1 < len(words) {
				add(w+words[i+1], uint32(i))
			}
		}
	}

	out := make([]model.Token, 0, len(order))
	for _, name := range order {
		out = append(out, *byName[name])
	}
	return out
}

// Words splits text into its ordered, lowercased word sequence without
// aggregating positions — the form phrase re-verification retokenizes
// stored content into (§4.5).
func Words(text string) []string {
	return splitWords(text)
}

func splitWords(text string) []string {
	var words []string
	var b strings.Builder
	flush := func() {
		if b.Len() > 0 {
			words = append(words, b.String())
			b.Reset()
		}
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()
	return words
}
