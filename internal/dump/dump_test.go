package dump

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/dacsang97/mdbind/internal/models"
)

type mapSource map[string][]byte

func (m mapSource) GetBytes(_ context.Context, url string) ([]byte, error) {
	data, ok := m[url]
	if !ok {
		return nil, fmt.Errorf("404 for %s", url)
	}
	return data, nil
}

func testImage() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.RGBA{uint8(x * 30), uint8(y * 40), 90, 255})
		}
	}
	return img
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, testImage()); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, testImage(), nil); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func TestDump_WritesNumberedFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "tmp")
	pngData := pngBytes(t)
	src := mapSource{
		"https://cdn/data/h/1-a.png":     pngData,
		"https://cdn/data/h/2-b.jpg?x=1": jpegBytes(t),
		"https://cdn/data/h/3-c.jpg":     pngData,
	}
	urls := []string{"https://cdn/data/h/1-a.png", "https://cdn/data/h/2-b.jpg?x=1", "https://cdn/data/h/3-c.jpg"}

	paths, err := Dump(context.Background(), src, urls, dir, "ch1")
	if err != nil {
		t.Fatalf("Dump failed: %v", err)
	}

	want := []string{"ch1_0.png", "ch1_1.jpg", "ch1_2.jpg"}
	if len(paths) != len(want) {
		t.Fatalf("Expected %d files, got %v", len(want), paths)
	}
	for i, name := range want {
		if filepath.Base(paths[i]) != name {
			t.Errorf("File %d: expected %s, got %s", i, name, paths[i])
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != len(want) {
		t.Errorf("Expected no temporary files left, found %d entries", len(entries))
	}

	// same format is stored untouched
	got, err := os.ReadFile(paths[0])
	if err != nil {
		t.Fatalf("read dump: %v", err)
	}
	if !bytes.Equal(got, pngData) {
		t.Error("PNG page should be stored as fetched")
	}

	// png data behind a .jpg name is re-encoded
	f, err := os.Open(paths[2])
	if err != nil {
		t.Fatalf("open dump: %v", err)
	}
	defer f.Close()
	_, format, err := image.DecodeConfig(f)
	if err != nil || format != "jpeg" {
		t.Errorf("Expected re-encoded jpeg, got %q (%v)", format, err)
	}
}

func TestDump_AbortsOnFirstFailure(t *testing.T) {
	dir := t.TempDir()
	src := mapSource{
		"https://cdn/1.png": pngBytes(t),
		"https://cdn/2.png": []byte("garbage"),
		"https://cdn/3.png": pngBytes(t),
	}

	paths, err := Dump(context.Background(), src, []string{"https://cdn/1.png", "https://cdn/2.png", "https://cdn/3.png"}, dir, "tmp")
	var decodeErr *models.DecodeError
	if !errors.As(err, &decodeErr) || decodeErr.Index != 1 {
		t.Fatalf("Expected DecodeError for page 2, got %v", err)
	}
	if len(paths) != 1 {
		t.Errorf("Expected only the first page written, got %v", paths)
	}
	if _, err := os.Stat(filepath.Join(dir, "tmp_2.png")); !os.IsNotExist(err) {
		t.Error("Pages after the failure must not be written")
	}

	_, err = Dump(context.Background(), src, []string{"https://cdn/missing.png"}, dir, "tmp")
	var fetchErr *models.ImageFetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("Expected ImageFetchError, got %v", err)
	}
}

func TestExtension(t *testing.T) {
	cases := []struct {
		url, format, want string
	}{
		{"https://cdn/a/b.PNG", "png", "png"},
		{"https://cdn/a/b.jpeg", "jpeg", "jpeg"},
		{"https://cdn/a/b.webp?token=1", "webp", "webp"},
		{"https://cdn/a/b", "jpeg", "jpg"},
		{"https://cdn/a/b", "gif", "gif"},
	}
	for _, tc := range cases {
		if got := extension(tc.url, tc.format); got != tc.want {
			t.Errorf("extension(%q, %q) = %q, want %q", tc.url, tc.format, got, tc.want)
		}
	}
}
