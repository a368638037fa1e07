package sim

import (
	"context"
	"slices"
	"testing"
)

func TestHistorySyncAppendsOnce(t *testing.T) {
	m := newTestManager(t, testConfig(6), 13)
	var h History

	if err := h.Sync(m); err != nil {
		t.Fatal(err)
	}
	if h.Len() != 0 {
		t.Fatalf("Len = %d before any generation", h.Len())
	}

	for i := 0; i < 2; i++ {
		if _, err := m.DoGeneration(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Sync(m); err != nil {
		t.Fatal(err)
	}
	first := h.Percentiles[0]
	if err := h.Sync(m); err != nil {
		t.Fatal(err)
	}

	if h.Len() != 2 || len(h.Species) != 2 {
		t.Fatalf("Len = %d, species %d, want 2", h.Len(), len(h.Species))
	}
	if &h.Percentiles[0][0] != &first[0] {
		t.Error("Sync copied generation 0 again")
	}
	for g := 0; g < 2; g++ {
		want, err := m.Percentiles(g)
		if err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(h.Percentiles[g], want) {
			t.Errorf("generation %d percentiles differ", g)
		}
	}
}
