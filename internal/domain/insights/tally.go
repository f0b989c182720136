package insights

import (
	"math"
	"sort"
)

// tally counts keys and remembers the order they were first seen in, which
// decides ties.
type tally struct {
	order  []string
	counts map[string]int
	total  int
}

type entry struct {
	key   string
	count int
}

func newTally() *tally {
	return &tally{counts: make(map[string]int)}
}

func (t *tally) add(key string) {
	if _, ok := t.counts[key]; !ok {
		t.order = append(t.order, key)
	}
	t.counts[key]++
	t.total++
}

// top returns at most n entries by descending count. n <= 0 returns all.
func (t *tally) top(n int) []entry {
	out := make([]entry, 0, len(t.order))
	for _, k := range t.order {
		out = append(out, entry{key: k, count: t.counts[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// mode returns the most frequent key, or false when nothing was counted.
func (t *tally) mode() (entry, bool) {
	top := t.top(1)
	if len(top) == 0 {
		return entry{}, false
	}
	return top[0], true
}

// LabelCount is a label with its number of occurrences.
type LabelCount struct {
	Label string `json:"emotion"`
	Count int    `json:"count"`
}

// ArtistCount is an artist with its number of occurrences.
type ArtistCount struct {
	Artist string `json:"artist"`
	Count  int    `json:"count"`
}

func labelCounts(es []entry) []LabelCount {
	out := make([]LabelCount, 0, len(es))
	for _, e := range es {
		out = append(out, LabelCount{Label: e.key, Count: e.count})
	}
	return out
}

func artistCounts(es []entry) []ArtistCount {
	out := make([]ArtistCount, 0, len(es))
	for _, e := range es {
		out = append(out, ArtistCount{Artist: e.key, Count: e.count})
	}
	return out
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
