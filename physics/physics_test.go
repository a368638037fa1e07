package physics

import (
	"context"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/pthm-cable/jelly/genome"
)

func testParams() Params {
	return Params{
		CellsX:          4,
		CellsY:          4,
		Beats:           3,
		BeatTime:        20,
		MuscleCoef:      0.08,
		Gravity:         0.002,
		CalmingFriction: 0.7,
		TrialFriction:   0.8,
		GroundFriction:  25,
		FloorY:          0,
		CeilingY:        -1e7,
	}
}

func testLayout(p Params) genome.Layout {
	return genome.Layout{CellsX: p.CellsX, CellsY: p.CellsY, Beats: p.Beats, Traits: 3, Extra: 1}
}

func randomSpecs(t testing.TB, p Params, n int, seed uint64) []BodySpec {
	t.Helper()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	l := testLayout(p)
	specs := make([]BodySpec, n)
	for i := range specs {
		specs[i] = BodySpec{
			Pose:    GridPose(p.CellsX, p.CellsY),
			Muscles: Muscles(l, genome.Random(l, rng)),
		}
	}
	return specs
}

func TestBeatAt(t *testing.T) {
	p := testParams()
	tests := []struct {
		frame, want int
	}{
		{0, 0},
		{19, 0},
		{20, 1},
		{59, 2},
		{60, 0},
		{299, 2},
	}
	for _, tt := range tests {
		if got := p.BeatAt(tt.frame); got != tt.want {
			t.Errorf("BeatAt(%d) = %d, want %d", tt.frame, got, tt.want)
		}
	}
}

func TestGridPoseLayout(t *testing.T) {
	pose := GridPose(4, 3)
	if pose.Len() != 20 {
		t.Fatalf("Len = %d, want 20", pose.Len())
	}
	i := pose.Node(2, 1)
	if pose.X[i] != 2 || pose.Y[i] != 1 {
		t.Errorf("node (2,1) at (%v,%v)", pose.X[i], pose.Y[i])
	}
	if got := pose.MeanX(); got != 2 {
		t.Errorf("MeanX = %v, want 2", got)
	}
}

func TestLifted(t *testing.T) {
	pose := GridPose(2, 2)
	lifted := pose.Lifted(0)
	for i := range lifted.Y {
		if lifted.Y[i] != pose.Y[i]-2 {
			t.Fatalf("node %d: y = %v, want %v", i, lifted.Y[i], pose.Y[i]-2)
		}
	}
	if pose.Y[pose.Node(0, 2)] != 2 {
		t.Error("Lifted modified its receiver")
	}
}

func TestMusclesDiagonal(t *testing.T) {
	p := testParams()
	l := testLayout(p)
	g := make(genome.Genome, l.Len())
	muscles := Muscles(l, g)
	if len(muscles) != p.MusclesPerBody() {
		t.Fatalf("len = %d, want %d", len(muscles), p.MusclesPerBody())
	}
	for i, m := range muscles {
		if m.Horizontal != 1 || m.Vertical != 1 {
			t.Fatalf("muscle %d = %+v, want unit targets", i, m)
		}
		if math.Abs(m.Diagonal-math.Sqrt2) > 1e-12 {
			t.Fatalf("muscle %d diagonal = %v", i, m.Diagonal)
		}
	}
}

func TestNewBatchRejectsWrongShape(t *testing.T) {
	p := testParams()
	specs := randomSpecs(t, p, 2, 1)
	specs[1].Muscles = specs[1].Muscles[:3]
	if _, err := NewBatch(p, Trial, specs); err == nil {
		t.Fatal("expected error for short muscle array")
	}

	specs = randomSpecs(t, p, 1, 1)
	specs[0].Pose = GridPose(2, 2)
	if _, err := NewBatch(p, Trial, specs); err == nil {
		t.Fatal("expected error for wrong pose size")
	}
}

func TestCalmRecentres(t *testing.T) {
	p := testParams()
	specs := randomSpecs(t, p, 8, 7)

	poses, err := Calm(context.Background(), p, 200, specs)
	if err != nil {
		t.Fatalf("Calm: %v", err)
	}
	if len(poses) != len(specs) {
		t.Fatalf("got %d poses, want %d", len(poses), len(specs))
	}
	for i, pose := range poses {
		if mean := pose.MeanX(); math.Abs(mean) > 1e-9 {
			t.Errorf("pose %d mean x = %v, want 0", i, mean)
		}
		for j := range pose.X {
			if math.IsNaN(pose.X[j]) || math.IsNaN(pose.Y[j]) {
				t.Fatalf("pose %d node %d is NaN", i, j)
			}
		}
	}
}

func TestCalmingIgnoresGravity(t *testing.T) {
	p := testParams()
	p.Gravity = 1
	l := testLayout(p)
	// Zero genes give unit targets, so a grid pose is already at rest.
	specs := []BodySpec{{Pose: GridPose(p.CellsX, p.CellsY), Muscles: Muscles(l, make(genome.Genome, l.Len()))}}

	b, err := NewBatch(p, Calming, specs)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer b.Close()
	b.Advance(50)

	want := GridPose(p.CellsX, p.CellsY)
	got := b.Pose(0)
	for i := range got.Y {
		if math.Abs(got.Y[i]-want.Y[i]) > 1e-9 {
			t.Fatalf("node %d moved to y=%v under calming", i, got.Y[i])
		}
	}
}

func TestTrialStaysAboveFloor(t *testing.T) {
	p := testParams()
	specs := randomSpecs(t, p, 4, 3)
	for i := range specs {
		specs[i].Pose = specs[i].Pose.Lifted(p.FloorY)
	}

	b, err := NewBatch(p, Trial, specs)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer b.Close()

	for f := 0; f < 300; f++ {
		b.Step()
		for i, y := range b.Y {
			if y > p.FloorY {
				t.Fatalf("frame %d: node %d below floor at y=%v", f, i, y)
			}
		}
	}
	if b.Frame() != 300 {
		t.Errorf("Frame = %d, want 300", b.Frame())
	}
}

func TestGroundDampsVelocity(t *testing.T) {
	p := testParams()
	p.Gravity = 0
	p.TrialFriction = 1
	l := testLayout(p)
	specs := []BodySpec{{Pose: GridPose(p.CellsX, p.CellsY).Lifted(p.FloorY), Muscles: Muscles(l, make(genome.Genome, l.Len()))}}

	b, err := NewBatch(p, Trial, specs)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer b.Close()

	bottom := specs[0].Pose.Node(0, p.CellsY)
	b.VX[bottom] = 0.5
	b.VY[bottom] = 0.1 // sinks 0.1 units this step
	b.Step()

	if b.Y[bottom] != p.FloorY {
		t.Errorf("y = %v, want clamped to floor", b.Y[bottom])
	}
	damp := math.Pow(0.5, 0.1*p.GroundFriction)
	if want := 0.5 * damp; math.Abs(b.VX[bottom]-want) > 1e-9 {
		t.Errorf("vx = %v, want %v", b.VX[bottom], want)
	}
	if want := 0.1 * damp; math.Abs(b.VY[bottom]-want) > 1e-9 {
		t.Errorf("vy = %v, want %v", b.VY[bottom], want)
	}
}

func TestCeilingClamp(t *testing.T) {
	p := testParams()
	p.CeilingY = -5
	p.Gravity = 0
	l := testLayout(p)
	specs := []BodySpec{{Pose: GridPose(p.CellsX, p.CellsY).Lifted(p.FloorY), Muscles: Muscles(l, make(genome.Genome, l.Len()))}}

	b, err := NewBatch(p, Trial, specs)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer b.Close()

	top := specs[0].Pose.Node(0, 0)
	b.VY[top] = -100
	b.Step()
	if b.Y[top] != p.CeilingY {
		t.Errorf("y = %v, want clamped to ceiling %v", b.Y[top], p.CeilingY)
	}
}

func TestCoincidentNodesStayFinite(t *testing.T) {
	p := testParams()
	l := testLayout(p)
	pose := NewPose(p.CellsX, p.CellsY) // every node at the origin
	specs := []BodySpec{{Pose: pose, Muscles: Muscles(l, make(genome.Genome, l.Len()))}}

	b, err := NewBatch(p, Trial, specs)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer b.Close()
	b.Advance(10)

	for i := range b.X {
		if math.IsNaN(b.X[i]) || math.IsNaN(b.Y[i]) || math.IsNaN(b.VX[i]) || math.IsNaN(b.VY[i]) {
			t.Fatalf("node %d became NaN", i)
		}
	}
}

func TestParallelMatchesSequential(t *testing.T) {
	p := testParams()
	specs := randomSpecs(t, p, 40, 11)

	seq := p
	seq.ParallelThreshold = 0
	par := p
	par.ParallelThreshold = 1
	par.Workers = 4

	a, err := NewBatch(seq, Trial, specs)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer a.Close()
	b, err := NewBatch(par, Trial, specs)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer b.Close()

	if a.pool != nil || b.pool == nil {
		t.Fatal("pool selection did not follow the threshold")
	}

	a.Advance(120)
	b.Advance(120)

	for i := range a.X {
		if a.X[i] != b.X[i] || a.Y[i] != b.Y[i] {
			t.Fatalf("node %d diverged: (%v,%v) vs (%v,%v)", i, a.X[i], a.Y[i], b.X[i], b.Y[i])
		}
	}
}

func TestFitnessAndShift(t *testing.T) {
	p := testParams()
	l := testLayout(p)
	specs := []BodySpec{
		{Pose: GridPose(p.CellsX, p.CellsY), Muscles: Muscles(l, make(genome.Genome, l.Len()))},
		{Pose: GridPose(p.CellsX, p.CellsY), Muscles: Muscles(l, make(genome.Genome, l.Len()))},
	}

	b, err := NewBatch(p, Calming, specs)
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer b.Close()

	means := b.Fitness()
	if means[0] != 2 || means[1] != 2 {
		t.Fatalf("Fitness = %v, want [2 2]", means)
	}
	b.Recenter()
	if got := b.Shift(1); got != 2 {
		t.Errorf("Shift(1) = %v, want 2", got)
	}
	if got := b.Pose(1).MeanX(); math.Abs(got) > 1e-12 {
		t.Errorf("mean after Recenter = %v", got)
	}
}

func TestBodiesMatchEntities(t *testing.T) {
	p := testParams()
	b, err := NewBatch(p, Trial, randomSpecs(t, p, 5, 11))
	if err != nil {
		t.Fatalf("NewBatch: %v", err)
	}
	defer b.Close()

	if len(b.bodies) != 5 {
		t.Fatalf("len(bodies) = %d, want 5", len(b.bodies))
	}
	for i, e := range b.entities {
		body, _ := b.bodyMap.Get(e)
		if *body != b.bodies[i] {
			t.Errorf("body %d: force pass has %+v, entity has %+v", i, b.bodies[i], *body)
		}
		if body.Index != i || body.Node != i*p.NodesPerBody() || body.Muscle != i*p.MusclesPerBody() {
			t.Errorf("body %d offsets = %+v", i, *body)
		}
	}
}

func TestRunCancelled(t *testing.T) {
	p := testParams()
	specs := randomSpecs(t, p, 2, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := Calm(ctx, p, 200, specs); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func BenchmarkTrialStep(b *testing.B) {
	p := testParams()
	p.ParallelThreshold = 32
	specs := randomSpecs(b, p, 250, 1)
	batch, err := NewBatch(p, Trial, specs)
	if err != nil {
		b.Fatalf("NewBatch: %v", err)
	}
	defer batch.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		batch.Step()
	}
}
