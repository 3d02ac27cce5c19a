package svgpath

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/aretw0/plotline/pkg/domain"
)

// ErrMalformed is returned for documents or attributes that cannot be parsed.
var ErrMalformed = errors.New("malformed svg")

var skipped = map[string]bool{
	"defs":     true,
	"clipPath": true,
	"mask":     true,
	"marker":   true,
	"pattern":  true,
	"symbol":   true,
}

// Parse reads an SVG document and returns its outlines in document order.
// A document without drawable elements yields an empty set and no error.
func Parse(r io.Reader) (domain.VectorPathSet, error) {
	dec := xml.NewDecoder(r)

	var set domain.VectorPathSet
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return set, nil
		}
		if err != nil {
			return domain.VectorPathSet{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}

		el, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if skipped[el.Name.Local] {
			if err := dec.Skip(); err != nil {
				return domain.VectorPathSet{}, fmt.Errorf("%w: %w", ErrMalformed, err)
			}
			continue
		}

		subpaths, err := element(el)
		if err != nil {
			return domain.VectorPathSet{}, fmt.Errorf("%w: <%s>: %w", ErrMalformed, el.Name.Local, err)
		}
		set.Subpaths = append(set.Subpaths, subpaths...)
	}
}

// ParseFile parses the SVG document at path.
func ParseFile(path string) (domain.VectorPathSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.VectorPathSet{}, err
	}
	defer f.Close()
	return Parse(f)
}

// ParseString parses an SVG document held in memory.
func ParseString(doc string) (domain.VectorPathSet, error) {
	return Parse(strings.NewReader(doc))
}

func element(el xml.StartElement) ([]domain.Subpath, error) {
	attrs := attributes(el)

	switch el.Name.Local {
	case "path":
		return PathData(attrs["d"])
	case "line":
		x1, y1, x2, y2, err := floats4(attrs, "x1", "y1", "x2", "y2")
		if err != nil {
			return nil, err
		}
		return []domain.Subpath{{Segments: []domain.Segment{
			lineSeg(domain.Point{X: x1, Y: y1}, domain.Point{X: x2, Y: y2}),
		}}}, nil
	case "polyline", "polygon":
		return polyline(attrs["points"], el.Name.Local == "polygon")
	case "rect":
		return rect(attrs)
	case "circle":
		cx, cy, r, _, err := floats4(attrs, "cx", "cy", "r", "")
		if err != nil {
			return nil, err
		}
		return ellipse(cx, cy, r, r), nil
	case "ellipse":
		cx, cy, rx, ry, err := floats4(attrs, "cx", "cy", "rx", "ry")
		if err != nil {
			return nil, err
		}
		return ellipse(cx, cy, rx, ry), nil
	}
	return nil, nil
}

func attributes(el xml.StartElement) map[string]string {
	m := make(map[string]string, len(el.Attr))
	for _, a := range el.Attr {
		m[a.Name.Local] = a.Value
	}
	return m
}

// floats4 reads up to four numeric attributes. Missing attributes default to zero; an
// empty name is skipped.
func floats4(attrs map[string]string, a, b, c, d string) (float64, float64, float64, float64, error) {
	var out [4]float64
	for i, name := range []string{a, b, c, d} {
		if name == "" {
			continue
		}
		raw := strings.TrimSpace(attrs[name])
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(raw, "px"), 64)
		if err != nil {
			return 0, 0, 0, 0, fmt.Errorf("attribute %s=%q: %w", name, raw, err)
		}
		out[i] = v
	}
	return out[0], out[1], out[2], out[3], nil
}

func polyline(points string, closed bool) ([]domain.Subpath, error) {
	lx := &lexer{s: points}
	var pts []domain.Point
	for lx.more() {
		x, err := lx.number()
		if err != nil {
			return nil, err
		}
		y, err := lx.number()
		if err != nil {
			return nil, err
		}
		pts = append(pts, domain.Point{X: x, Y: y})
	}
	if len(pts) < 2 {
		return nil, nil
	}

	sp := domain.Subpath{}
	for i := 1; i < len(pts); i++ {
		sp.Segments = append(sp.Segments, lineSeg(pts[i-1], pts[i]))
	}
	if closed && pts[len(pts)-1] != pts[0] {
		sp.Segments = append(sp.Segments, lineSeg(pts[len(pts)-1], pts[0]))
	}
	return []domain.Subpath{sp}, nil
}

func rect(attrs map[string]string) ([]domain.Subpath, error) {
	x, y, w, h, err := floats4(attrs, "x", "y", "width", "height")
	if err != nil {
		return nil, err
	}
	if w <= 0 || h <= 0 {
		return nil, nil
	}
	p0 := domain.Point{X: x, Y: y}
	p1 := domain.Point{X: x + w, Y: y}
	p2 := domain.Point{X: x + w, Y: y + h}
	p3 := domain.Point{X: x, Y: y + h}
	return []domain.Subpath{{Segments: []domain.Segment{
		lineSeg(p0, p1), lineSeg(p1, p2), lineSeg(p2, p3), lineSeg(p3, p0),
	}}}, nil
}

// ellipse is two half arcs, starting and ending at the rightmost point.
func ellipse(cx, cy, rx, ry float64) []domain.Subpath {
	if rx <= 0 || ry <= 0 {
		return nil
	}
	right := domain.Point{X: cx + rx, Y: cy}
	left := domain.Point{X: cx - rx, Y: cy}
	return []domain.Subpath{{Segments: []domain.Segment{
		{Kind: domain.SegmentArc, Start: right, End: left},
		{Kind: domain.SegmentArc, Start: left, End: right},
	}}}
}

func lineSeg(a, b domain.Point) domain.Segment {
	return domain.Segment{Kind: domain.SegmentLine, Start: a, End: b}
}
