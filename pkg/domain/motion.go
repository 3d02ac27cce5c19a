package domain

// MotionOp is the kind of a motion instruction.
type MotionOp string

const (
	// OpRapid travels to a coordinate without drawing.
	OpRapid MotionOp = "rapid"
	// OpLinear draws a straight line to a coordinate.
	OpLinear MotionOp = "linear"
	// OpToolUp and OpToolDown carry a raw device command (pen lift). They are only
	// emitted when a converter is explicitly configured for them.
	OpToolUp   MotionOp = "tool_up"
	OpToolDown MotionOp = "tool_down"
)

// MotionInstruction is one step of a motion program.
// X and Y are absolute for rapid/linear ops; Raw holds the command for tool ops.
type MotionInstruction struct {
	Op  MotionOp `json:"op"`
	X   float64  `json:"x,omitempty"`
	Y   float64  `json:"y,omitempty"`
	Raw string   `json:"raw,omitempty"`
}

// MotionProgram is the ordered instruction list produced by the converter.
// The preamble (units, positioning) and termination are fixed by the encoder; Header is
// the free-text comment written on the first line.
type MotionProgram struct {
	Header       string              `json:"header"`
	Instructions []MotionInstruction `json:"instructions"`
}

// Count returns how many instructions of the given op the program holds.
func (p MotionProgram) Count(op MotionOp) int {
	n := 0
	for _, in := range p.Instructions {
		if in.Op == op {
			n++
		}
	}
	return n
}
