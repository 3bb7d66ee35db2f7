package nodectl

import (
	_ "embed"
	"strings"
)

//go:embed VERSION
var versionFile string

// Version is the current version of the node control plane.
var Version = strings.TrimSpace(versionFile)
