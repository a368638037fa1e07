// Package species tracks the lineage forest of creature species: who
// descended from whom, how large each species has grown, which creatures best
// represent it, and which species are prominent enough to show in a tree.
package species

import (
	"errors"
	"fmt"
	"slices"
)

// NoAncestor marks a root species.
const NoAncestor = -1

// Representative slots in Info.Reps.
const (
	RepAncestor = iota // parent creature that mutated into the species
	RepFirst           // creature that introduced the species
	RepApex            // best creature in the generation of peak population
	RepLast            // best creature in the most recent generation observed
)

var (
	// ErrUnknownSpecies is returned when an id has no registry entry.
	ErrUnknownSpecies = errors.New("unknown species")
	// ErrNonDenseID is returned when an id is not the next one in sequence.
	ErrNonDenseID = errors.New("species id out of sequence")
)

// Coord is a display position assigned by a layout collaborator.
type Coord struct {
	X, Y   float32
	Placed bool
}

// Info is one species record.
type Info struct {
	ID        int
	Ancestor  int // NoAncestor for roots
	Level     int // 0 for roots, else ancestor level + 1
	ApexPop   int
	Reps      [4]int // creature ids, indexed by Rep* constants
	Prominent bool
	Coord     Coord
}

// Registry is an arena of species records indexed by id. Ids are dense: the
// caller allocates them in increasing order starting at 0.
type Registry struct {
	infos  []Info
	levels [][]int // prominent species ids per level, in display order

	notableFraction float64
}

// NewRegistry creates an empty registry. A species becomes prominent the
// first time its share of the population reaches notableFraction.
func NewRegistry(notableFraction float64) *Registry {
	return &Registry{notableFraction: notableFraction}
}

// Len returns the number of species ever created.
func (r *Registry) Len() int {
	return len(r.infos)
}

// Get returns a copy of a species record.
func (r *Registry) Get(id int) (Info, bool) {
	if id < 0 || id >= len(r.infos) {
		return Info{}, false
	}
	return r.infos[id], true
}

// AddRoot registers a species with no ancestor.
func (r *Registry) AddRoot(id, firstRep int) error {
	if id != len(r.infos) {
		return fmt.Errorf("add root %d (next is %d): %w", id, len(r.infos), ErrNonDenseID)
	}
	r.infos = append(r.infos, Info{
		ID:       id,
		Ancestor: NoAncestor,
		Reps:     [4]int{NoAncestor, firstRep, firstRep, firstRep},
	})
	return nil
}

// AddChild registers a species that split off ancestor when the creature
// ancestorRep produced the mutant firstRep.
func (r *Registry) AddChild(id, ancestor, firstRep, ancestorRep int) error {
	if id != len(r.infos) {
		return fmt.Errorf("add child %d (next is %d): %w", id, len(r.infos), ErrNonDenseID)
	}
	if ancestor < 0 || ancestor >= len(r.infos) {
		return fmt.Errorf("add child %d of %d: %w", id, ancestor, ErrUnknownSpecies)
	}
	r.infos = append(r.infos, Info{
		ID:       id,
		Ancestor: ancestor,
		Level:    r.infos[ancestor].Level + 1,
		Reps:     [4]int{ancestorRep, firstRep, firstRep, firstRep},
	})
	return nil
}

// SetCoord stores a display position for a species.
func (r *Registry) SetCoord(id int, c Coord) error {
	if id < 0 || id >= len(r.infos) {
		return fmt.Errorf("set coord %d: %w", id, ErrUnknownSpecies)
	}
	r.infos[id].Coord = c
	return nil
}

// Lineage returns id followed by each of its ancestors up to the root.
func (r *Registry) Lineage(id int) []int {
	var out []int
	for id >= 0 && id < len(r.infos) {
		out = append(out, id)
		id = r.infos[id].Ancestor
	}
	return out
}

// Levels returns a copy of the prominent species lists, one per tree level.
func (r *Registry) Levels() [][]int {
	out := make([][]int, len(r.levels))
	for i, level := range r.levels {
		out[i] = slices.Clone(level)
	}
	return out
}

// Observe records one generation's buckets. It updates the last and apex
// representatives and promotes species that crossed the notability
// threshold. It returns the ids that became prominent, in promotion order.
func (r *Registry) Observe(buckets []Bucket, populationSize int) ([]int, error) {
	threshold := r.notableFraction * float64(populationSize)

	var promoted []int
	for _, b := range buckets {
		if b.Species < 0 || b.Species >= len(r.infos) {
			return promoted, fmt.Errorf("observe %d: %w", b.Species, ErrUnknownSpecies)
		}
		info := &r.infos[b.Species]
		info.Reps[RepLast] = b.Best
		if b.Count > info.ApexPop {
			info.ApexPop = b.Count
			info.Reps[RepApex] = b.Best
		}
		if float64(b.Count) >= threshold && !info.Prominent {
			promoted = append(promoted, r.promote(b.Species)...)
		}
	}
	return promoted, nil
}

// promote marks id and every non-prominent ancestor prominent, oldest first,
// so each species is placed after its ancestor already has a position.
func (r *Registry) promote(id int) []int {
	var chain []int
	for cur := id; cur != NoAncestor && !r.infos[cur].Prominent; cur = r.infos[cur].Ancestor {
		chain = append(chain, cur)
	}
	slices.Reverse(chain)

	for _, s := range chain {
		r.infos[s].Prominent = true
		r.insert(s)
	}
	return chain
}

// insert places a prominent species in its level. Siblings stay contiguous in
// ascending id order, and sibling groups follow their ancestors' order in
// the level above, so lineage lines never cross.
func (r *Registry) insert(id int) {
	info := r.infos[id]
	for len(r.levels) <= info.Level {
		r.levels = append(r.levels, nil)
	}
	row := r.levels[info.Level]

	mine := r.parentPosition(info)
	at := 0
	for i, other := range row {
		theirs := r.parentPosition(r.infos[other])
		if theirs < mine || (theirs == mine && other < id) {
			at = i + 1
		}
	}
	r.levels[info.Level] = slices.Insert(row, at, id)
}

// parentPosition returns the index of info's ancestor in the level above,
// or 0 for roots.
func (r *Registry) parentPosition(info Info) int {
	if info.Ancestor == NoAncestor {
		return 0
	}
	return slices.Index(r.levels[info.Level-1], info.Ancestor)
}
