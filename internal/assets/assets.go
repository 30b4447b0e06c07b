// Package assets validates and probes the image files a script refers to.
// Missing assets are detected before any synthesis work starts, so a bad
// path never wastes external engine calls.
package assets

import (
	"fmt"
	"image"
	"os"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// MissingAssetError reports a referenced background or actor file that
// does not exist.
type MissingAssetError struct {
	Path string
}

func (e *MissingAssetError) Error() string {
	return fmt.Sprintf("missing asset: %s", e.Path)
}

// Check verifies that path exists and is a regular file.
func Check(path string) error {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return &MissingAssetError{Path: path}
	}
	return nil
}

// ProbeSize returns the pixel dimensions of an image asset without
// decoding the full pixel data. Supported formats: png, jpeg, gif, webp,
// bmp.
func ProbeSize(path string) (w, h int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, &MissingAssetError{Path: path}
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, fmt.Errorf("probe %s: %w", path, err)
	}
	return cfg.Width, cfg.Height, nil
}
