package raster

import (
	"mime"
	"net/http"
	"strings"
)

// DefaultExtension is used when neither the declared type nor the content identify a format.
const DefaultExtension = "png"

var extensions = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/jpg":  "jpg",
	"image/webp": "webp",
	"image/gif":  "gif",
}

// Extension picks the file extension (without dot) for a raster payload.
// A recognised declared MIME type wins; otherwise the content is sniffed.
func Extension(declared string, data []byte) string {
	if ext, ok := lookup(declared); ok {
		return ext
	}
	if ext, ok := lookup(http.DetectContentType(data)); ok {
		return ext
	}
	return DefaultExtension
}

// IsImage reports whether the declared type or the sniffed content is a supported image.
func IsImage(declared string, data []byte) bool {
	if _, ok := lookup(declared); ok {
		return true
	}
	_, ok := lookup(http.DetectContentType(data))
	return ok
}

func lookup(contentType string) (string, bool) {
	if contentType == "" {
		return "", false
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mt = contentType
	}
	ext, ok := extensions[strings.ToLower(mt)]
	return ext, ok
}
