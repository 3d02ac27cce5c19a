// Package motion turns parsed vector outlines into a plotter motion program and encodes
// that program as G-code text.
//
// Conversion is pure: the same path set always yields byte-identical output. Every
// subpath starts with one rapid move to its first point, followed by one linear move per
// segment end point. Curves are emitted as chords; no interpolation or travel ordering is
// performed.
package motion
