package physics

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Pose is a snapshot of one body's node grid. Node (x, y) for x in
// [0, CellsX] and y in [0, CellsY] lives at index x*(CellsY+1)+y.
type Pose struct {
	CellsX int
	CellsY int
	X      []float64
	Y      []float64
	VX     []float64
	VY     []float64
}

// NewPose allocates a zeroed pose.
func NewPose(cellsX, cellsY int) Pose {
	n := (cellsX + 1) * (cellsY + 1)
	return Pose{
		CellsX: cellsX,
		CellsY: cellsY,
		X:      make([]float64, n),
		Y:      make([]float64, n),
		VX:     make([]float64, n),
		VY:     make([]float64, n),
	}
}

// GridPose places every node on perfect unit gridlines, at rest.
func GridPose(cellsX, cellsY int) Pose {
	p := NewPose(cellsX, cellsY)
	for x := 0; x <= cellsX; x++ {
		for y := 0; y <= cellsY; y++ {
			i := p.Node(x, y)
			p.X[i] = float64(x)
			p.Y[i] = float64(y)
		}
	}
	return p
}

// Node returns the buffer index of node (x, y).
func (p Pose) Node(x, y int) int {
	return x*(p.CellsY+1) + y
}

// Len returns the node count.
func (p Pose) Len() int {
	return len(p.X)
}

// Clone returns a deep copy.
func (p Pose) Clone() Pose {
	out := NewPose(p.CellsX, p.CellsY)
	copy(out.X, p.X)
	copy(out.Y, p.Y)
	copy(out.VX, p.VX)
	copy(out.VY, p.VY)
	return out
}

// MeanX returns the mean x position of all nodes.
func (p Pose) MeanX() float64 {
	return stat.Mean(p.X, nil)
}

// Lifted returns a copy translated vertically so the body starts resting on
// or above a floor at floorY (a calm pose spans roughly [0, CellsY] in y).
func (p Pose) Lifted(floorY float64) Pose {
	out := p.Clone()
	floats.AddConst(floorY-float64(p.CellsY), out.Y)
	return out
}
