package domain

// Point is a 2-D coordinate in vector (SVG user) units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SegmentKind records which vector primitive produced a segment.
// The converter only uses endpoints, so the kind is informational.
type SegmentKind string

const (
	SegmentLine      SegmentKind = "line"
	SegmentQuadratic SegmentKind = "quadratic"
	SegmentCubic     SegmentKind = "cubic"
	SegmentArc       SegmentKind = "arc"
)

// Segment is one drawable piece of a subpath.
type Segment struct {
	Kind  SegmentKind `json:"kind"`
	Start Point       `json:"start"`
	End   Point       `json:"end"`
}

// Subpath is a contiguous run of connected segments: each segment starts where the
// previous one ended.
type Subpath struct {
	Segments []Segment `json:"segments"`
}

// Start returns the start point of the first segment.
func (s Subpath) Start() (Point, bool) {
	if len(s.Segments) == 0 {
		return Point{}, false
	}
	return s.Segments[0].Start, true
}

// VectorPathSet is the ordered sequence of subpaths parsed from a vector document.
type VectorPathSet struct {
	Subpaths []Subpath `json:"subpaths"`
}

// SegmentCount returns the total number of segments across all subpaths.
func (v VectorPathSet) SegmentCount() int {
	n := 0
	for _, sp := range v.Subpaths {
		n += len(sp.Segments)
	}
	return n
}

// Empty reports whether the set contains no drawable segment.
func (v VectorPathSet) Empty() bool {
	return v.SegmentCount() == 0
}
