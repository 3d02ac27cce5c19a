// Package raster holds the image operations run on a downloaded raster: format detection,
// black/white thresholding before vectorization and thumbnail generation.
package raster
