// Package pipeline runs one concept through the artifact stages:
//
//	expand prompt -> generate image -> allocate bundle -> download raster ->
//	[prepare raster] -> vectorize -> convert motion -> [thumbnail, archive, publish]
//
// Stages execute sequentially and fail fast. The only non-fatal mandatory stage is
// prompt expansion, which degrades to a fixed fallback prompt. Bracketed stages are
// optional; post-processing failures become warnings on the result. Files written by
// completed stages are never removed when a later stage fails.
package pipeline
