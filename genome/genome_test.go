package genome

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/jelly/config"
)

func testLayout() Layout {
	return Layout{CellsX: 4, CellsY: 3, Beats: 3, Traits: 3, Extra: 1}
}

func TestLayoutLen(t *testing.T) {
	tests := []struct {
		l    Layout
		want int
	}{
		{Layout{CellsX: 4, CellsY: 4, Beats: 3, Traits: 3, Extra: 1}, 145},
		{Layout{CellsX: 1, CellsY: 1, Beats: 1, Traits: 3, Extra: 0}, 3},
		{Layout{CellsX: 2, CellsY: 5, Beats: 4, Traits: 4, Extra: 7}, 167},
	}
	for _, tt := range tests {
		if got := tt.l.Len(); got != tt.want {
			t.Errorf("%+v.Len() = %d, want %d", tt.l, got, tt.want)
		}
		if got := len(Random(tt.l, rand.New(rand.NewPCG(1, 2)))); got != tt.want {
			t.Errorf("len(Random(%+v)) = %d, want %d", tt.l, got, tt.want)
		}
	}
}

func TestLayoutFromConfigMatchesDerived(t *testing.T) {
	cfg := config.Default()
	l := LayoutFromConfig(cfg)
	if l.Len() != cfg.Derived.GenomeLength {
		t.Errorf("Len() = %d, want %d", l.Len(), cfg.Derived.GenomeLength)
	}
}

func TestLayoutIndexCoversCellGenes(t *testing.T) {
	l := testLayout()
	seen := make(map[int]bool)
	for x := 0; x < l.CellsX; x++ {
		for y := 0; y < l.CellsY; y++ {
			for b := 0; b < l.Beats; b++ {
				idx := l.Index(x, y, b)
				if idx%l.Traits != 0 || idx < 0 || idx+l.Traits > l.CellGenes() {
					t.Fatalf("Index(%d,%d,%d) = %d out of range", x, y, b, idx)
				}
				if seen[idx] {
					t.Fatalf("Index(%d,%d,%d) = %d collides", x, y, b, idx)
				}
				seen[idx] = true
			}
		}
	}
	if len(seen)*l.Traits != l.CellGenes() {
		t.Errorf("indexes cover %d genes, want %d", len(seen)*l.Traits, l.CellGenes())
	}
}

func TestRandomClipped(t *testing.T) {
	l := Layout{CellsX: 8, CellsY: 8, Beats: 4, Traits: 3, Extra: 5}
	rng := rand.New(rand.NewPCG(7, 7))
	for n := 0; n < 20; n++ {
		for i, v := range Random(l, rng) {
			if v < -3 || v > 3 {
				t.Fatalf("gene %d = %v outside [-3, 3]", i, v)
			}
		}
	}
}

func TestTraitValue(t *testing.T) {
	if got := TraitValue(0); got != 1 {
		t.Errorf("TraitValue(0) = %v, want 1", got)
	}
	if got := TraitValue(3); got != 2 {
		t.Errorf("TraitValue(3) = %v, want 2", got)
	}
	if got := TraitValue(-3); got != 0 {
		t.Errorf("TraitValue(-3) = %v, want 0", got)
	}
}

func TestMutateKeepsSpeciesWithoutBigMutation(t *testing.T) {
	l := testLayout()
	rng := rand.New(rand.NewPCG(3, 4))
	parent := Random(l, rng)

	for i := 0; i < 100; i++ {
		m := Mutate(parent, l, Params{Rate: 0.1, BigRate: 0}, rng, 5, 99)
		if m.Speciated {
			t.Fatal("speciated with BigRate = 0")
		}
		if m.Species != 5 {
			t.Fatalf("Species = %d, want parent species 5", m.Species)
		}
		if m.Locus != -1 {
			t.Fatalf("Locus = %d, want -1", m.Locus)
		}
		if len(m.Genome) != len(parent) {
			t.Fatalf("len = %d, want %d", len(m.Genome), len(parent))
		}
	}
}

func TestMutateDoesNotTouchParent(t *testing.T) {
	l := testLayout()
	rng := rand.New(rand.NewPCG(3, 4))
	parent := Random(l, rng)
	snapshot := parent.Clone()

	Mutate(parent, l, Params{Rate: 0.5, BigRate: 1}, rng, 0, 1)
	for i := range parent {
		if parent[i] != snapshot[i] {
			t.Fatalf("parent gene %d changed", i)
		}
	}
}

func TestMutateZeroRateIsClone(t *testing.T) {
	l := testLayout()
	rng := rand.New(rand.NewPCG(9, 9))
	parent := Random(l, rng)

	m := Mutate(parent, l, Params{Rate: 0, BigRate: 0}, rng, 2, 3)
	for i := range parent {
		if m.Genome[i] != parent[i] {
			t.Fatalf("gene %d = %v, want %v", i, m.Genome[i], parent[i])
		}
	}
}

func TestMutateBigMutation(t *testing.T) {
	l := testLayout()
	rng := rand.New(rand.NewPCG(11, 12))

	for n := 0; n < 200; n++ {
		parent := Random(l, rng)
		m := Mutate(parent, l, Params{Rate: 0, BigRate: 1}, rng, 4, 42)

		if !m.Speciated || m.Species != 42 {
			t.Fatalf("Speciated=%v Species=%d, want true/42", m.Speciated, m.Species)
		}
		if m.Locus < 0 || m.Locus%l.Traits != 0 || m.Locus >= l.CellGenes() {
			t.Fatalf("Locus = %d not a cell-beat boundary", m.Locus)
		}

		// With Rate = 0 only the locus differs from the parent.
		for i := range parent {
			inLocus := i >= m.Locus && i < m.Locus+l.Traits
			if !inLocus && m.Genome[i] != parent[i] {
				t.Fatalf("gene %d outside locus changed", i)
			}
		}
		for i := 0; i < l.Traits; i++ {
			got := m.Genome[m.Locus+i]
			if i == TraitRigidity {
				if got < 0.5 {
					t.Fatalf("rigidity = %v, want >= 0.5", got)
				}
				continue
			}
			if d := math.Abs(got - parent[m.Locus+i]); d < 0.5 {
				t.Fatalf("trait %d moved by %v, want >= 0.5", i, d)
			}
		}
	}
}

func TestMutateDeterministic(t *testing.T) {
	l := testLayout()
	parent := Random(l, rand.New(rand.NewPCG(1, 1)))

	a := Mutate(parent, l, Params{Rate: 0.2, BigRate: 0.5}, rand.New(rand.NewPCG(5, 6)), 0, 10)
	b := Mutate(parent, l, Params{Rate: 0.2, BigRate: 0.5}, rand.New(rand.NewPCG(5, 6)), 0, 10)
	if a.Speciated != b.Speciated || a.Locus != b.Locus {
		t.Fatal("same seed produced different speciation")
	}
	for i := range a.Genome {
		if a.Genome[i] != b.Genome[i] {
			t.Fatalf("gene %d differs between identical seeds", i)
		}
	}
}

func BenchmarkMutate(b *testing.B) {
	l := Layout{CellsX: 4, CellsY: 4, Beats: 3, Traits: 3, Extra: 1}
	rng := rand.New(rand.NewPCG(1, 2))
	parent := Random(l, rng)
	p := Params{Rate: 0.07, BigRate: 0.025}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Mutate(parent, l, p, rng, 0, 1)
	}
}
