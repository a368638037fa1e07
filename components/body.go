package components

// Body locates one soft body inside a physics batch. The node and muscle
// data themselves live in the batch's contiguous buffers; a Body only holds
// the offsets into them so that per-node passes can run over whole buffers.
type Body struct {
	Index  int // position of the body in the batch (matches the order it was added)
	Node   int // offset of the first node in the X/Y/VX/VY buffers
	Muscle int // offset of the first muscle in the muscle buffer
}

// Settling tracks how much a calming run had to shift a body to centre it.
type Settling struct {
	ShiftX float64
}
