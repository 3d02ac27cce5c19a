package cli

import (
	"fmt"
	"io"

	"github.com/aretw0/plotline/internal/config"
	"github.com/aretw0/plotline/pkg/motion"
	"github.com/aretw0/plotline/pkg/svgpath"
)

// RunConvert turns an SVG document into G-code without touching any remote service.
func RunConvert(cfg *config.Config, in io.Reader, out io.Writer) error {
	set, err := svgpath.Parse(in)
	if err != nil {
		return err
	}
	program, err := buildConverter(cfg).Convert(set)
	if err != nil {
		return fmt.Errorf("conversion failed: %w", err)
	}
	return motion.Encode(out, program)
}
