package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/dacsang97/mdbind/internal/models"
	"github.com/go-pdf/fpdf"
)

// ImageSource returns the raw bytes behind a page URL
type ImageSource interface {
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// PageInfo describes one written page
type PageInfo struct {
	Index    int
	URL      string
	WidthPx  int
	HeightPx int
	WidthMM  float64
	HeightMM float64
	Color    ColorDescriptor
	Embedded string // "JPG" or "PNG"
}

// Document is a finished PDF
type Document struct {
	Title string
	Pages []PageInfo
	Bytes []byte
}

// Binder assembles page images into a Document
type Binder struct {
	src      ImageSource
	geometry Geometry
	title    string
	prefetch int
	progress func(done, total int)
	logf     func(format string, args ...any)
}

// Option configures a Binder
type Option func(*Binder)

// WithGeometry overrides the calibrated page geometry
func WithGeometry(g Geometry) Option {
	return func(b *Binder) { b.geometry = g }
}

// WithTitle sets the document title, the only metadata written
func WithTitle(title string) Option {
	return func(b *Binder) { b.title = title }
}

// WithPrefetch downloads up to n pages ahead of the page being assembled.
// Pages are still added in input order. n <= 1 keeps assembly sequential.
func WithPrefetch(n int) Option {
	return func(b *Binder) { b.prefetch = n }
}

// WithProgress registers a callback invoked after every assembled page
func WithProgress(fn func(done, total int)) Option {
	return func(b *Binder) { b.progress = fn }
}

// WithLogf routes per-page log lines
func WithLogf(logf func(format string, args ...any)) Option {
	return func(b *Binder) { b.logf = logf }
}

// NewBinder creates a Binder reading images from src
func NewBinder(src ImageSource, opts ...Option) *Binder {
	b := &Binder{
		src:      src,
		geometry: DefaultGeometry(),
		prefetch: 1,
		progress: func(int, int) {},
		logf:     func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Assemble fetches, decodes and appends every URL in order, then serialises
// the document. Any failure discards the whole document.
func (b *Binder) Assemble(ctx context.Context, urls []string) (*Document, error) {
	if len(urls) == 0 {
		return nil, &models.EmptyResolutionError{Stage: "pages"}
	}
	if err := b.geometry.Validate(); err != nil {
		return nil, err
	}

	asm := &assembly{geometry: b.geometry, title: b.title}

	err := b.fetchInOrder(ctx, urls, func(i int, data []byte) error {
		img, err := decodeImage(data, b.geometry)
		if err != nil {
			if model, ok := isUnsupportedModel(err); ok {
				return &models.UnsupportedColorModelError{Index: i, URL: urls[i], Model: model}
			}
			return &models.DecodeError{Index: i, URL: urls[i], Err: err}
		}

		b.logf("[*] Page %d/%d: %dx%d px, %s\n", i+1, len(urls), img.widthPx, img.heightPx, img.color)
		if err := asm.addPage(i, urls[i], img); err != nil {
			return err
		}
		b.progress(i+1, len(urls))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return asm.finalize()
}

type assemblyState int

const (
	stateEmpty assemblyState = iota
	stateBuilding
	stateFinalized
)

// assembly owns the in-progress PDF for one Assemble call
type assembly struct {
	state    assemblyState
	geometry Geometry
	title    string
	doc      *fpdf.Fpdf
	pages    []PageInfo
}

func (a *assembly) addPage(index int, url string, img *mangaImage) error {
	size := fpdf.SizeType{Wd: img.widthMM, Ht: img.heightMM}

	switch a.state {
	case stateEmpty:
		a.doc = fpdf.NewCustom(&fpdf.InitType{
			OrientationStr: "P",
			UnitStr:        "mm",
			Size:           size,
		})
		a.doc.SetTitle(a.title, true)
		a.doc.SetMargins(0, 0, 0)
		a.doc.SetAutoPageBreak(false, 0)
		a.doc.AddPage()
		a.state = stateBuilding
	case stateBuilding:
		a.doc.AddPageFormat("P", size)
	default:
		return errors.New("document already finalized")
	}

	stream, imageType, err := img.encoded()
	if err != nil {
		return &models.DecodeError{Index: index, URL: url, Err: err}
	}

	name := fmt.Sprintf("page-%d", index)
	opts := fpdf.ImageOptions{ImageType: imageType}
	a.doc.RegisterImageOptionsReader(name, opts, bytes.NewReader(stream))

	drawW, drawH := a.geometry.DrawSize(img.widthPx, img.heightPx)
	a.doc.ImageOptions(name, 0, 0, drawW, drawH, false, opts, 0, "")

	if a.doc.Err() {
		return fmt.Errorf("page %d (%s): embed: %w", index+1, url, a.doc.Error())
	}

	a.pages = append(a.pages, PageInfo{
		Index:    index,
		URL:      url,
		WidthPx:  img.widthPx,
		HeightPx: img.heightPx,
		WidthMM:  img.widthMM,
		HeightMM: img.heightMM,
		Color:    img.color,
		Embedded: imageType,
	})
	return nil
}

func (a *assembly) finalize() (*Document, error) {
	if a.state != stateBuilding {
		return nil, errors.New("no pages to finalize")
	}

	var buf bytes.Buffer
	if err := a.doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}
	a.state = stateFinalized

	return &Document{
		Title: a.title,
		Pages: a.pages,
		Bytes: buf.Bytes(),
	}, nil
}
