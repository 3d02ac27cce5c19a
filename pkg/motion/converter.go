package motion

import (
	"fmt"

	"github.com/aretw0/plotline/pkg/domain"
)

// DefaultHeader is the comment written on the first line of every program.
const DefaultHeader = "G-code generated from SVG"

// Converter maps a VectorPathSet to a MotionProgram.
type Converter struct {
	header  string
	penUp   string
	penDown string
}

// Option configures a Converter.
type Option func(*Converter)

// WithHeader overrides the header comment.
func WithHeader(header string) Option {
	return func(c *Converter) {
		c.header = header
	}
}

// WithPenLift brackets every rapid move with raw tool commands: up before travelling,
// down once the subpath start is reached. Both must be non-empty to take effect.
func WithPenLift(up, down string) Option {
	return func(c *Converter) {
		c.penUp = up
		c.penDown = down
	}
}

// NewConverter creates a converter. With no options it emits no tool commands.
func NewConverter(opts ...Option) *Converter {
	c := &Converter{header: DefaultHeader}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// PenLift reports whether the converter emits tool up/down commands.
func (c *Converter) PenLift() bool {
	return c.penUp != "" && c.penDown != ""
}

// Convert produces the motion program for set. A set without segments fails with
// domain.ErrEmptyInput; empty subpaths inside a non-empty set are skipped.
func (c *Converter) Convert(set domain.VectorPathSet) (domain.MotionProgram, error) {
	if set.Empty() {
		return domain.MotionProgram{}, fmt.Errorf("%w: no drawable segments", domain.ErrEmptyInput)
	}

	program := domain.MotionProgram{
		Header:       c.header,
		Instructions: make([]domain.MotionInstruction, 0, c.capacity(set)),
	}

	for _, sp := range set.Subpaths {
		start, ok := sp.Start()
		if !ok {
			continue
		}
		if c.PenLift() {
			program.Instructions = append(program.Instructions, domain.MotionInstruction{Op: domain.OpToolUp, Raw: c.penUp})
		}
		program.Instructions = append(program.Instructions, domain.MotionInstruction{Op: domain.OpRapid, X: start.X, Y: start.Y})
		if c.PenLift() {
			program.Instructions = append(program.Instructions, domain.MotionInstruction{Op: domain.OpToolDown, Raw: c.penDown})
		}
		for _, seg := range sp.Segments {
			program.Instructions = append(program.Instructions, domain.MotionInstruction{Op: domain.OpLinear, X: seg.End.X, Y: seg.End.Y})
		}
	}

	if c.PenLift() {
		program.Instructions = append(program.Instructions, domain.MotionInstruction{Op: domain.OpToolUp, Raw: c.penUp})
	}
	return program, nil
}

func (c *Converter) capacity(set domain.VectorPathSet) int {
	n := set.SegmentCount() + len(set.Subpaths)
	if c.PenLift() {
		n += 2*len(set.Subpaths) + 1
	}
	return n
}
