package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dacsang97/mdbind/internal/models"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

func TestMain(m *testing.M) {
	api.DisableConfigDir()
	os.Exit(m.Run())
}

type stubImages struct {
	mu    sync.Mutex
	files map[string][]byte
	delay func(url string) time.Duration
	calls int
}

func (s *stubImages) GetBytes(ctx context.Context, url string) ([]byte, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()

	if s.delay != nil {
		time.Sleep(s.delay(url))
	}
	data, ok := s.files[url]
	if !ok {
		return nil, fmt.Errorf("404 for %s", url)
	}
	return data, nil
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 80}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func grayPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 251)
	}
	return encodePNG(t, img)
}

func rgbJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{uint8(x), uint8(y), 128, 255})
		}
	}
	return encodeJPEG(t, img)
}

func pdfPageDims(t *testing.T, doc *Document) [][2]float64 {
	t.Helper()
	rs := bytes.NewReader(doc.Bytes)

	count, err := api.PageCount(rs, nil)
	if err != nil {
		t.Fatalf("pdfcpu page count: %v", err)
	}

	dims, err := api.PageDims(bytes.NewReader(doc.Bytes), nil)
	if err != nil {
		t.Fatalf("pdfcpu page dims: %v", err)
	}
	if len(dims) != count {
		t.Fatalf("page count %d disagrees with %d dims", count, len(dims))
	}

	out := make([][2]float64, len(dims))
	for i, d := range dims {
		out[i] = [2]float64{d.Width, d.Height}
	}
	return out
}

func closeTo(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestAssemble_SinglePageGeometry(t *testing.T) {
	src := &stubImages{files: map[string][]byte{"https://img/1.png": grayPNG(t, 200, 100)}}

	doc, err := NewBinder(src, WithTitle("ch1")).Assemble(context.Background(), []string{"https://img/1.png"})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	if !bytes.HasPrefix(doc.Bytes, []byte("%PDF-")) {
		t.Fatalf("Output is not a PDF: %q", doc.Bytes[:8])
	}
	if len(doc.Pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(doc.Pages))
	}

	page := doc.Pages[0]
	if !closeTo(page.WidthMM, 200*PixelToMM, 1e-9) || !closeTo(page.HeightMM, 100*PixelToMM, 1e-9) {
		t.Errorf("Unexpected page size %.4f x %.4f mm", page.WidthMM, page.HeightMM)
	}
	if page.Color.Space != DeviceGray || page.Color.BitsPerComponent != 8 {
		t.Errorf("Unexpected color descriptor %s", page.Color)
	}

	// 200 px at 96 dpi is 150 pt.
	dims := pdfPageDims(t, doc)
	if len(dims) != 1 || !closeTo(dims[0][0], 150, 0.01) || !closeTo(dims[0][1], 75, 0.01) {
		t.Errorf("Unexpected media box %v", dims)
	}
}

func TestAssemble_PagesInInputOrderWithOwnSizes(t *testing.T) {
	urls := []string{"https://img/a.png", "https://img/b.jpg", "https://img/c.png"}
	src := &stubImages{files: map[string][]byte{
		urls[0]: grayPNG(t, 80, 120),
		urls[1]: rgbJPEG(t, 160, 40),
		urls[2]: grayPNG(t, 40, 40),
	}}

	doc, err := NewBinder(src).Assemble(context.Background(), urls)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	wantPx := [][2]int{{80, 120}, {160, 40}, {40, 40}}
	dims := pdfPageDims(t, doc)
	if len(dims) != len(urls) || len(doc.Pages) != len(urls) {
		t.Fatalf("Expected %d pages, got %d (pdf) / %d (info)", len(urls), len(dims), len(doc.Pages))
	}
	for i, want := range wantPx {
		if doc.Pages[i].URL != urls[i] || doc.Pages[i].WidthPx != want[0] || doc.Pages[i].HeightPx != want[1] {
			t.Errorf("Page %d: unexpected info %+v", i, doc.Pages[i])
		}
		if !closeTo(dims[i][0], float64(want[0])*0.75, 0.01) || !closeTo(dims[i][1], float64(want[1])*0.75, 0.01) {
			t.Errorf("Page %d: unexpected media box %v", i, dims[i])
		}
	}

	if doc.Pages[1].Embedded != "JPG" || doc.Pages[1].Color.Space != DeviceRGB {
		t.Errorf("Expected JPEG pass-through as DeviceRGB, got %+v", doc.Pages[1])
	}
}

func TestAssemble_FailureDiscardsDocument(t *testing.T) {
	urls := []string{"https://img/1.png", "https://img/2.png", "https://img/3.png"}

	t.Run("fetch", func(t *testing.T) {
		src := &stubImages{files: map[string][]byte{
			urls[0]: grayPNG(t, 10, 10),
			urls[2]: grayPNG(t, 10, 10),
		}}
		doc, err := NewBinder(src).Assemble(context.Background(), urls)
		if doc != nil {
			t.Fatal("Expected no document")
		}
		var fetchErr *models.ImageFetchError
		if !errors.As(err, &fetchErr) || fetchErr.Index != 1 {
			t.Fatalf("Expected ImageFetchError for page 2, got %v", err)
		}
		if src.calls != 2 {
			t.Errorf("Expected assembly to stop after page 2, got %d fetches", src.calls)
		}
	})

	t.Run("decode", func(t *testing.T) {
		src := &stubImages{files: map[string][]byte{
			urls[0]: grayPNG(t, 10, 10),
			urls[1]: []byte("definitely not an image"),
			urls[2]: grayPNG(t, 10, 10),
		}}
		doc, err := NewBinder(src).Assemble(context.Background(), urls)
		if doc != nil {
			t.Fatal("Expected no document")
		}
		var decodeErr *models.DecodeError
		if !errors.As(err, &decodeErr) || decodeErr.Index != 1 {
			t.Fatalf("Expected DecodeError for page 2, got %v", err)
		}
	})

	t.Run("color model", func(t *testing.T) {
		deep := image.NewGray16(image.Rect(0, 0, 4, 4))
		src := &stubImages{files: map[string][]byte{
			urls[0]: grayPNG(t, 10, 10),
			urls[1]: grayPNG(t, 10, 10),
			urls[2]: encodePNG(t, deep),
		}}
		doc, err := NewBinder(src).Assemble(context.Background(), urls)
		if doc != nil {
			t.Fatal("Expected no document")
		}
		var colorErr *models.UnsupportedColorModelError
		if !errors.As(err, &colorErr) || colorErr.Model != "Gray16" {
			t.Fatalf("Expected UnsupportedColorModelError, got %v", err)
		}
	})
}

func TestAssemble_PaletteWithPartialAlpha(t *testing.T) {
	img := image.NewPaletted(image.Rect(0, 0, 6, 4), color.Palette{
		color.Transparent,
		color.NRGBA{255, 0, 0, 128},
		color.White,
	})
	for i := range img.Pix {
		img.Pix[i] = uint8(i % 3)
	}
	src := &stubImages{files: map[string][]byte{"https://img/pal.png": encodePNG(t, img)}}

	doc, err := NewBinder(src).Assemble(context.Background(), []string{"https://img/pal.png"})
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	page := doc.Pages[0]
	want := ColorDescriptor{Space: DeviceRGB, BitsPerComponent: 8, Alpha: true}
	if page.Color != want || page.Embedded != "PNG" {
		t.Errorf("Expected %s embedded as PNG, got %s as %s", want, page.Color, page.Embedded)
	}
	if !bytes.Contains(doc.Bytes, []byte("/SMask")) {
		t.Error("Expected a soft mask for the translucent palette entries")
	}
	if dims := pdfPageDims(t, doc); len(dims) != 1 {
		t.Errorf("Expected one page, got %v", dims)
	}
}

func TestAssemble_EmptyInput(t *testing.T) {
	_, err := NewBinder(&stubImages{}).Assemble(context.Background(), nil)
	var emptyErr *models.EmptyResolutionError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("Expected EmptyResolutionError, got %v", err)
	}
}

func TestAssemble_PrefetchKeepsOrder(t *testing.T) {
	var urls []string
	files := map[string][]byte{}
	for i := 0; i < 6; i++ {
		url := fmt.Sprintf("https://img/%d.png", i)
		urls = append(urls, url)
		files[url] = grayPNG(t, 10+i, 20)
	}
	src := &stubImages{
		files: files,
		// later pages finish first
		delay: func(url string) time.Duration {
			for i, u := range urls {
				if u == url {
					return time.Duration(len(urls)-i) * 5 * time.Millisecond
				}
			}
			return 0
		},
	}

	var progress []int
	doc, err := NewBinder(src,
		WithPrefetch(4),
		WithProgress(func(done, total int) { progress = append(progress, done) }),
	).Assemble(context.Background(), urls)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}

	for i, page := range doc.Pages {
		if page.Index != i || page.WidthPx != 10+i {
			t.Errorf("Page %d out of order: %+v", i, page)
		}
	}
	if len(progress) != len(urls) || progress[len(progress)-1] != len(urls) {
		t.Errorf("Unexpected progress calls %v", progress)
	}
}

func TestAssemble_PrefetchFailure(t *testing.T) {
	urls := []string{"https://img/0.png", "https://img/1.png", "https://img/2.png"}
	src := &stubImages{files: map[string][]byte{
		urls[0]: grayPNG(t, 10, 10),
		urls[2]: grayPNG(t, 10, 10),
	}}

	doc, err := NewBinder(src, WithPrefetch(3)).Assemble(context.Background(), urls)
	if doc != nil {
		t.Fatal("Expected no document")
	}
	var fetchErr *models.ImageFetchError
	if !errors.As(err, &fetchErr) || fetchErr.Index != 1 {
		t.Fatalf("Expected ImageFetchError for page 2, got %v", err)
	}
}

func TestAssemble_InvalidGeometry(t *testing.T) {
	src := &stubImages{files: map[string][]byte{"https://img/1.png": grayPNG(t, 10, 10)}}
	_, err := NewBinder(src, WithGeometry(Geometry{PixelToMM: 0, PlacementDPI: 300, ImageScale: 1})).
		Assemble(context.Background(), []string{"https://img/1.png"})
	if err == nil {
		t.Fatal("Expected geometry error")
	}
}
