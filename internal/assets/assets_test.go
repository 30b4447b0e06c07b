package assets

import (
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bg.png")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := Check(path); err != nil {
		t.Errorf("Check(existing) = %v", err)
	}

	var missing *MissingAssetError
	if err := Check(filepath.Join(dir, "nope.png")); !errors.As(err, &missing) {
		t.Errorf("Check(absent) = %v, want MissingAssetError", err)
	}
	if err := Check(dir); !errors.As(err, &missing) {
		t.Errorf("Check(directory) = %v, want MissingAssetError", err)
	}
}

func TestProbeSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "char.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatal(err)
	}
	f.Close()

	w, h, err := ProbeSize(path)
	if err != nil {
		t.Fatalf("ProbeSize: %v", err)
	}
	if w != 64 || h != 48 {
		t.Errorf("size = %dx%d, want 64x48", w, h)
	}

	var missing *MissingAssetError
	if _, _, err := ProbeSize(filepath.Join(t.TempDir(), "gone.png")); !errors.As(err, &missing) {
		t.Errorf("ProbeSize(absent) = %v, want MissingAssetError", err)
	}
}
