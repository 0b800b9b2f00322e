package web

import (
	"embed"
	"io/fs"
)

//go:embed assets
var assetsFS embed.FS

// AssetsFS returns the embedded static assets (placeholder artwork).
func AssetsFS() (fs.FS, error) {
	return fs.Sub(assetsFS, "assets")
}
