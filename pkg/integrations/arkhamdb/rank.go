package arkhamdb

import "strings"

// Match tiers, best first.
const (
	tierExact = iota
	tierPrefix
	tierSubname
	tierContains
	tierTraits
	tierText
	tierCount
	tierNone = -1
)

// textMinLength is the shortest query that is also matched against rules text.
const textMinLength = 3

// tier classifies how card matches the lowercased query q.
func tier(card Card, q string) int {
	name := strings.ToLower(card.Name)
	code := strings.ToLower(card.Code)
	subname := strings.ToLower(card.Subname)

	switch {
	case q == name || q == code:
		return tierExact
	case strings.HasPrefix(name, q) || strings.HasPrefix(code, q):
		return tierPrefix
	case subname != "" && strings.HasPrefix(subname, q):
		return tierSubname
	case strings.Contains(name, q) || strings.Contains(code, q) || (subname != "" && strings.Contains(subname, q)):
		return tierContains
	case card.Traits != "" && strings.Contains(strings.ToLower(card.Traits), q):
		return tierTraits
	case len(q) >= textMinLength && card.Text != "" && strings.Contains(strings.ToLower(card.Text), q):
		return tierText
	}
	return tierNone
}

// ranker buckets cards by tier while preserving page order within a tier.
// It stops accepting once limit cards matched.
type ranker struct {
	q       string
	limit   int
	total   int
	buckets [tierCount][]Card
}

func newRanker(query string, limit int) *ranker {
	return &ranker{q: strings.ToLower(strings.TrimSpace(query)), limit: limit}
}

// add files card and reports whether more cards are wanted.
func (r *ranker) add(card Card) bool {
	if r.full() {
		return false
	}
	t := tier(card, r.q)
	if t == tierNone {
		return true
	}
	r.buckets[t] = append(r.buckets[t], card)
	r.total++
	return !r.full()
}

func (r *ranker) full() bool { return r.limit > 0 && r.total >= r.limit }

// ranked returns the matched cards, best tier first.
func (r *ranker) ranked() []Card {
	out := make([]Card, 0, r.total)
	for _, b := range r.buckets {
		out = append(out, b...)
	}
	return out
}
