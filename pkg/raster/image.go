package raster

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// DefaultThreshold is the luminance below which a pixel becomes black.
const DefaultThreshold = 100

// DefaultThumbnailSize bounds both thumbnail dimensions.
const DefaultThumbnailSize = 200

// Load decodes the image file at path. PNG, JPEG, GIF and WebP are supported.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// Threshold converts img to pure black and white: luminance below level becomes black.
func Threshold(img image.Image, level uint8) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			v := uint8(255)
			if g.Y < level {
				v = 0
			}
			out.SetGray(x-b.Min.X, y-b.Min.Y, color.Gray{Y: v})
		}
	}
	return out
}

// Fit scales img to fit within maxW x maxH keeping its aspect ratio. Images already
// within bounds are returned unscaled.
func Fit(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return img
	}

	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	tw := max(1, int(math.Round(float64(w)*scale)))
	th := max(1, int(math.Round(float64(h)*scale)))

	dst := image.NewRGBA(image.Rect(0, 0, tw, th))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// SavePNG encodes img as PNG at path.
func SavePNG(path string, img image.Image) error {
	return save(path, img, png.Encode)
}

// SaveBMP encodes img as BMP at path, a format bitmap tracers such as potrace read.
func SaveBMP(path string, img image.Image) error {
	return save(path, img, bmp.Encode)
}

// ConvertFile re-encodes the raster at src into dst using format ("png" or "bmp").
func ConvertFile(src, dst, format string) error {
	img, err := Load(src)
	if err != nil {
		return err
	}
	switch strings.ToLower(format) {
	case "bmp":
		return SaveBMP(dst, img)
	case "png":
		return SavePNG(dst, img)
	}
	return fmt.Errorf("unsupported raster format %q", format)
}

func save(path string, img image.Image, encode func(io.Writer, image.Image) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return encode(f, img)
}

// PrepareFile writes a thresholded copy of the raster at src to dst.
func PrepareFile(src, dst string, level uint8) error {
	img, err := Load(src)
	if err != nil {
		return err
	}
	return SavePNG(dst, Threshold(img, level))
}

// ThumbnailFile writes a PNG thumbnail of the raster at src, fitting size x size, to dst.
func ThumbnailFile(src, dst string, size int) error {
	if size <= 0 {
		size = DefaultThumbnailSize
	}
	img, err := Load(src)
	if err != nil {
		return err
	}
	return SavePNG(dst, Fit(img, size, size))
}
