package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"

	// Decoders for the formats the image servers are known to send
	_ "image/gif"
	_ "image/jpeg"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// mangaImage is one decoded page, ready to be embedded
type mangaImage struct {
	data     []byte
	format   string
	img      image.Image
	color    ColorDescriptor
	widthPx  int
	heightPx int
	widthMM  float64
	heightMM float64
}

// decodeImage auto-detects the format of data, decodes it and computes the
// page geometry. Colour model errors are returned as unsupportedModel.
func decodeImage(data []byte, geom Geometry) (*mangaImage, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("empty %s image", format)
	}

	desc, err := describeColor(img, format)
	if err != nil {
		return nil, err
	}

	w, h := geom.PageSize(b.Dx(), b.Dy())
	return &mangaImage{
		data:     data,
		format:   format,
		img:      img,
		color:    desc,
		widthPx:  b.Dx(),
		heightPx: b.Dy(),
		widthMM:  w,
		heightMM: h,
	}, nil
}

// passthrough reports whether the original bytes can be embedded unchanged
func (m *mangaImage) passthrough() bool {
	if m.format != "jpeg" {
		return false
	}
	switch m.color.Space {
	case DeviceGray, DeviceRGB, DeviceCMYK:
		return true
	}
	return false
}

// encoded returns the stream to embed and the image type name the PDF
// writer expects for it.
func (m *mangaImage) encoded() ([]byte, string, error) {
	if m.passthrough() {
		return m.data, "JPG", nil
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, normalize(m.img, m.color)); err != nil {
		return nil, "", fmt.Errorf("re-encode as png: %w", err)
	}
	return buf.Bytes(), "PNG", nil
}

func isUnsupportedModel(err error) (string, bool) {
	var u unsupportedModel
	if errors.As(err, &u) {
		return string(u), true
	}
	return "", false
}
