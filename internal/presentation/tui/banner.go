package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the plotline banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Pen-plotter blues fading to teal.
	lines := []struct {
		text  string
		color string
	}{
		{"        _       _   _ _            ", "#60a5fa"},
		{"  _ __ | | ___ | |_| (_)_ __   ___ ", "#38bdf8"},
		{" | '_ \\| |/ _ \\| __| | | '_ \\ / _ \\", "#22d3ee"},
		{" | |_) | | (_) | |_| | | | | |  __/", "#2dd4bf"},
		{" | .__/|_|\\___/ \\__|_|_|_| |_|\\___|", "#34d399"},
		{" |_|", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(out.Color(l.color)))
	}
	fmt.Fprintln(w, out.String(" concept → raster → vector → motion  "+version).Faint())
	fmt.Fprintln(w)
}
