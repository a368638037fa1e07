package sim

import (
	"context"
	"math"
	"testing"

	"github.com/pthm-cable/jelly/genome"
)

func TestCellColorZeroGenome(t *testing.T) {
	m := newTestManager(t, testConfig(2), 1)
	c := m.generations[0][0]
	c.genome = make(genome.Genome, m.Layout().Len())

	got := c.CellColor(0, 0, 0)
	if got.R != 128 || got.G != 128 || got.B != 255 || got.A != 155 {
		t.Errorf("CellColor = %+v, want {128 128 255 155}", got)
	}
}

func TestCellColorBlendsBeats(t *testing.T) {
	cfg := testConfig(2)
	cfg.Timing.BeatTime = 20
	cfg.Timing.BeatFadeTime = 10
	m := newTestManager(t, cfg, 1)
	l := m.Layout()

	c := m.generations[0][0]
	c.genome = make(genome.Genome, l.Len())
	c.genome[l.Index(1, 1, 1)+genome.TraitHorizontal] = 0.5 // beat 1 red = 192

	tests := []struct {
		frame int
		red   uint8
	}{
		{0, 128},  // beat 0, fading from beat 2
		{20, 128}, // start of beat 1: fade 0
		{25, 160}, // halfway through the fade
		{30, 192}, // fade complete
		{39, 192},
		{45, 160}, // beat 2 fading out of beat 1
	}
	for _, tt := range tests {
		if got := c.CellColor(1, 1, tt.frame).R; got != tt.red {
			t.Errorf("frame %d: red = %d, want %d", tt.frame, got, tt.red)
		}
	}
}

func TestCellColorClampsAlpha(t *testing.T) {
	m := newTestManager(t, testConfig(2), 1)
	l := m.Layout()
	c := m.generations[0][0]
	c.genome = make(genome.Genome, l.Len())
	for beat := 0; beat < l.Beats; beat++ {
		c.genome[l.Index(0, 0, beat)+genome.TraitRigidity] = -5
	}
	if got := c.CellColor(0, 0, 0).A; got != 64 {
		t.Errorf("alpha = %d, want 64", got)
	}
}

func TestCellColorTintsLocus(t *testing.T) {
	m := newTestManager(t, testConfig(2), 1)
	l := m.Layout()
	c := m.generations[0][0]
	c.genome = make(genome.Genome, l.Len())
	c.locus = l.Index(1, 0, 0)

	// Deep into beat 0 the locus cell is fully green.
	frame := m.cfg.Timing.BeatFadeTime
	got := c.CellColor(1, 0, frame)
	if got.R != 0 || got.G != 255 || got.B != 0 || got.A != 255 {
		t.Errorf("locus cell = %+v, want pure green", got)
	}
	if other := c.CellColor(0, 0, frame); other.G == 255 {
		t.Errorf("non-locus cell tinted: %+v", other)
	}
}

func TestPoseAtMatchesTrial(t *testing.T) {
	m := newTestManager(t, testConfig(4), 2)
	s, err := m.DoGeneration(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	gen, _ := m.Generation(0)
	for slot, c := range gen {
		pose := c.PoseAt(m.cfg.Timing.TrialSteps)
		if d := math.Abs(pose.MeanX() - s.Fitness[slot]); d > 1e-9 {
			t.Errorf("slot %d: replay distance %v, trial fitness %v", slot, pose.MeanX(), s.Fitness[slot])
		}
		fitness, ok := c.Fitness()
		if !ok || fitness != s.Fitness[slot] {
			t.Errorf("slot %d: Fitness() = %v, %v", slot, fitness, ok)
		}
	}
}

func TestReplaySeekBackwards(t *testing.T) {
	m := newTestManager(t, testConfig(2), 3)
	c := m.generations[0][1]

	r := NewReplay(c)
	defer r.Close()
	r.Seek(40)
	at40 := r.Distance()
	r.Seek(10)
	if r.Frame() != 10 {
		t.Fatalf("Frame = %d after seeking back, want 10", r.Frame())
	}
	r.Seek(40)
	if r.Distance() != at40 {
		t.Errorf("replay not repeatable: %v vs %v", r.Distance(), at40)
	}
	for !r.Done() {
		r.Step()
	}
	if r.Frame() != m.cfg.Timing.TrialSteps {
		t.Errorf("Done at frame %d", r.Frame())
	}
}

func TestIconPoseIsFinite(t *testing.T) {
	m := newTestManager(t, testConfig(2), 4)
	c := m.generations[0][0]
	pose := c.IconPose()
	for i := range pose.X {
		if math.IsNaN(pose.X[i]) || math.IsNaN(pose.Y[i]) {
			t.Fatalf("icon pose node %d is NaN", i)
		}
	}
	if c.Icon(0) != nil {
		t.Error("icon cache should start empty")
	}
	c.SetIcon(0, "thumb")
	if c.Icon(0) != "thumb" {
		t.Error("SetIcon did not store")
	}
}

func TestSetResultWriteOnce(t *testing.T) {
	m := newTestManager(t, testConfig(2), 5)
	c := m.generations[0][0]
	c.setResult(1, 0)
	defer func() {
		if recover() == nil {
			t.Error("second setResult did not panic")
		}
	}()
	c.setResult(2, 1)
}
