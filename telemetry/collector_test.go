package telemetry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
)

func TestCollectorObservesGenerations(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	defer om.Close()

	c := NewCollector(CollectorOptions{
		Salt:          "salt",
		UnitsPerMeter: 0.05,
		PerfWindow:    4,
		Output:        om,
		Quiet:         true,
	})
	if _, err := uuid.Parse(c.RunID()); err != nil {
		t.Errorf("RunID %q is not a uuid: %v", c.RunID(), err)
	}

	c.OnGeneration(testSummary(0, 3, 2, 1, 0))
	c.OnGeneration(testSummary(1, 5, 2, 1, 0))

	if n := len(c.History()); n != 2 {
		t.Fatalf("history = %d, want 2", n)
	}
	if c.History()[1].RunID != c.RunID() {
		t.Error("stats missing run id")
	}
	if countType(c.Milestones(), MilestoneRecord) != 1 {
		t.Errorf("milestones = %v, want one record", c.Milestones())
	}
	if c.Err() != nil {
		t.Fatal(c.Err())
	}

	plotPath := filepath.Join(dir, "fitness.png")
	if err := c.WritePlot(plotPath); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(plotPath); err != nil || info.Size() == 0 {
		t.Errorf("plot not written: %v", err)
	}
}

func TestWritePercentilePlotEmpty(t *testing.T) {
	if err := WritePercentilePlot(filepath.Join(t.TempDir(), "x.png"), nil, 1); err == nil {
		t.Error("expected error for empty history")
	}
}
