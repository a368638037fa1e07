package species

import (
	"maps"
	"slices"
)

// Bucket is one species' slice of a ranked generation. Start and End bound a
// range of [0, population) sized by Count; buckets laid end to end in
// ascending species order cover the population exactly once.
type Bucket struct {
	Species int
	Count   int
	Start   int
	End     int
	Best    int // id of the best ranked creature of the species
}

// Tally counts species while a ranking is walked best first.
type Tally struct {
	counts map[int]int
	best   map[int]int
}

// NewTally creates an empty tally.
func NewTally() *Tally {
	return &Tally{counts: make(map[int]int), best: make(map[int]int)}
}

// Add counts one creature. The first creature added for a species is
// recorded as its best, so callers add in rank order.
func (t *Tally) Add(species, creatureID int) {
	if _, ok := t.best[species]; !ok {
		t.best[species] = creatureID
	}
	t.counts[species]++
}

// Buckets returns the tally as contiguous ranges ordered by species id.
func (t *Tally) Buckets() []Bucket {
	ids := slices.Sorted(maps.Keys(t.counts))

	out := make([]Bucket, 0, len(ids))
	running := 0
	for _, id := range ids {
		n := t.counts[id]
		out = append(out, Bucket{
			Species: id,
			Count:   n,
			Start:   running,
			End:     running + n,
			Best:    t.best[id],
		})
		running += n
	}
	return out
}

// Visible returns the buckets whose share of the population exceeds fraction,
// the species worth labelling on a stacked-area chart.
func Visible(buckets []Bucket, populationSize int, fraction float64) []Bucket {
	var out []Bucket
	for _, b := range buckets {
		if float64(b.Count) > fraction*float64(populationSize) {
			out = append(out, b)
		}
	}
	return out
}

// Find returns the bucket for a species, if present.
func Find(buckets []Bucket, species int) (Bucket, bool) {
	i, ok := slices.BinarySearchFunc(buckets, species, func(b Bucket, id int) int {
		return b.Species - id
	})
	if !ok {
		return Bucket{}, false
	}
	return buckets[i], true
}
