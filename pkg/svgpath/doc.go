// Package svgpath extracts drawable outlines from an SVG document.
//
// Supported elements are path, line, polyline, polygon, rect, circle and ellipse.
// Transforms, styles and units are ignored: coordinates are taken as written, in user
// units. Content of non-rendered containers (defs, clipPath, mask, marker, pattern,
// symbol) is skipped.
package svgpath
