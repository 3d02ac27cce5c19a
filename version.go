package plotline

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var rawVersion string

// Version is the release version of plotline.
var Version = strings.TrimSpace(rawVersion)
