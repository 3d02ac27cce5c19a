package motion

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/aretw0/plotline/pkg/domain"
)

// Fixed preamble and termination lines.
const (
	lineUnits    = "G21 ; Set units to mm"
	linePosition = "G90 ; Absolute positioning"
	lineEnd      = "M2 ; End of program"
)

// Encode writes program as G-code text, one instruction per line, coordinates with two
// decimals.
func Encode(w io.Writer, program domain.MotionProgram) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "; %s\n", program.Header)
	fmt.Fprintln(bw, lineUnits)
	fmt.Fprintln(bw, linePosition)

	for i, in := range program.Instructions {
		switch in.Op {
		case domain.OpRapid:
			fmt.Fprintf(bw, "G0 X%.2f Y%.2f\n", in.X, in.Y)
		case domain.OpLinear:
			fmt.Fprintf(bw, "G1 X%.2f Y%.2f\n", in.X, in.Y)
		case domain.OpToolUp, domain.OpToolDown:
			fmt.Fprintln(bw, in.Raw)
		default:
			return fmt.Errorf("instruction %d: unknown op %q", i, in.Op)
		}
	}

	fmt.Fprintln(bw, lineEnd)
	return bw.Flush()
}

// Marshal returns the encoded program.
func Marshal(program domain.MotionProgram) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, program); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
