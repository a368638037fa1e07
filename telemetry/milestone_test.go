package telemetry

import (
	"testing"

	"github.com/pthm-cable/jelly/sim"
)

func countType(ms []Milestone, typ MilestoneType) int {
	n := 0
	for _, m := range ms {
		if m.Type == typ {
			n++
		}
	}
	return n
}

func TestMilestoneRecord(t *testing.T) {
	md := NewMilestoneDetector(5, "salt")

	if ms := md.Check(GenerationStats{Generation: 0, BestCM: 10}, sim.Summary{}); countType(ms, MilestoneRecord) != 0 {
		t.Error("first generation should not be a record")
	}
	ms := md.Check(GenerationStats{Generation: 1, BestCM: 20}, sim.Summary{Generation: 1})
	if countType(ms, MilestoneRecord) != 1 {
		t.Fatalf("expected record, got %v", ms)
	}
	if ms := md.Check(GenerationStats{Generation: 2, BestCM: 15}, sim.Summary{Generation: 2}); countType(ms, MilestoneRecord) != 0 {
		t.Error("regression should not be a record")
	}
}

func TestMilestoneStagnation(t *testing.T) {
	md := NewMilestoneDetector(5, "salt")

	fired := 0
	for g := 0; g < 30; g++ {
		ms := md.Check(GenerationStats{Generation: g, BestCM: 10}, sim.Summary{Generation: g})
		if n := countType(ms, MilestoneStagnation); n > 0 {
			fired += n
			if g != 10 {
				t.Errorf("stagnation at generation %d, want 10", g)
			}
		}
	}
	if fired != 1 {
		t.Errorf("stagnation fired %d times, want 1", fired)
	}
}

func TestMilestoneBreakthrough(t *testing.T) {
	md := NewMilestoneDetector(5, "salt")

	for g, median := range []float64{1, 2, 1, 2, 1} {
		ms := md.Check(GenerationStats{Generation: g, MedianCM: median}, sim.Summary{Generation: g})
		if countType(ms, MilestoneBreakthrough) != 0 {
			t.Fatalf("unexpected breakthrough at generation %d", g)
		}
	}
	ms := md.Check(GenerationStats{Generation: 5, MedianCM: 10}, sim.Summary{Generation: 5})
	if countType(ms, MilestoneBreakthrough) != 1 {
		t.Errorf("expected breakthrough, got %v", ms)
	}
}

func TestMilestoneTakeover(t *testing.T) {
	md := NewMilestoneDetector(5, "salt")

	ms := md.Check(GenerationStats{Generation: 0, DominantSpecies: 3, DominantFraction: 0.6}, sim.Summary{})
	if countType(ms, MilestoneTakeover) != 1 {
		t.Fatalf("expected takeover, got %v", ms)
	}
	if ms[0].Species != 3 {
		t.Errorf("takeover species = %d, want 3", ms[0].Species)
	}
	ms = md.Check(GenerationStats{Generation: 1, DominantSpecies: 3, DominantFraction: 0.7}, sim.Summary{Generation: 1})
	if countType(ms, MilestoneTakeover) != 0 {
		t.Error("continued dominance should not fire again")
	}
	ms = md.Check(GenerationStats{Generation: 2, DominantSpecies: 5, DominantFraction: 0.55}, sim.Summary{Generation: 2})
	if countType(ms, MilestoneTakeover) != 1 {
		t.Error("a new dominant species should fire")
	}
}

func TestMilestoneSpeciesEvents(t *testing.T) {
	md := NewMilestoneDetector(5, "salt")

	s := sim.Summary{Generation: 4, Promoted: []int{2, 9}, Extinct: []int{1}}
	ms := md.Check(GenerationStats{RunID: "run", Generation: 4}, s)

	if countType(ms, MilestoneProminent) != 2 || countType(ms, MilestoneExtinct) != 1 {
		t.Fatalf("milestones = %v", ms)
	}
	for _, m := range ms {
		if m.RunID != "run" {
			t.Errorf("RunID = %q, want run", m.RunID)
		}
		if m.Description == "" {
			t.Error("empty description")
		}
	}
}
