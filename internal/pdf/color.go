package pdf

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// ColorSpace is a PDF colour space name
type ColorSpace string

const (
	DeviceGray ColorSpace = "DeviceGray"
	DeviceRGB  ColorSpace = "DeviceRGB"
	DeviceCMYK ColorSpace = "DeviceCMYK"
	Indexed    ColorSpace = "Indexed"
)

// ColorDescriptor is the PDF side of a decoded image's colour model
type ColorDescriptor struct {
	Space            ColorSpace
	BitsPerComponent int
	// Alpha is set when the image has non-opaque pixels; they are embedded
	// as a soft mask.
	Alpha bool
	// PaletteSize is the number of entries of an Indexed image
	PaletteSize int
}

func (d ColorDescriptor) String() string {
	s := fmt.Sprintf("%s/%d", d.Space, d.BitsPerComponent)
	if d.Space == Indexed {
		s += fmt.Sprintf("[%d]", d.PaletteSize)
	}
	if d.Alpha {
		s += "+alpha"
	}
	return s
}

type unsupportedModel string

func (u unsupportedModel) Error() string { return "unsupported color model " + string(u) }

// describeColor maps the decoded image onto a PDF colour space. CMYK is only
// accepted for JPEG input, which is embedded as-is.
func describeColor(img image.Image, format string) (ColorDescriptor, error) {
	switch m := img.(type) {
	case *image.Gray:
		return ColorDescriptor{Space: DeviceGray, BitsPerComponent: 8}, nil
	case *image.YCbCr:
		return ColorDescriptor{Space: DeviceRGB, BitsPerComponent: 8}, nil
	case *image.RGBA:
		return ColorDescriptor{Space: DeviceRGB, BitsPerComponent: 8, Alpha: !m.Opaque()}, nil
	case *image.NRGBA:
		return ColorDescriptor{Space: DeviceRGB, BitsPerComponent: 8, Alpha: !m.Opaque()}, nil
	case *image.NYCbCrA:
		return ColorDescriptor{Space: DeviceRGB, BitsPerComponent: 8, Alpha: !m.Opaque()}, nil
	case *image.Paletted:
		n := len(m.Palette)
		if n == 0 || n > 256 {
			return ColorDescriptor{}, unsupportedModel(fmt.Sprintf("Paletted[%d]", n))
		}
		if !indexedTransparency(m.Palette) {
			// expanded to RGB with a soft mask by normalize
			return ColorDescriptor{Space: DeviceRGB, BitsPerComponent: 8, Alpha: true}, nil
		}
		return ColorDescriptor{Space: Indexed, BitsPerComponent: paletteDepth(n), PaletteSize: n}, nil
	case *image.CMYK:
		if format != "jpeg" {
			return ColorDescriptor{}, unsupportedModel("CMYK (" + format + ")")
		}
		return ColorDescriptor{Space: DeviceCMYK, BitsPerComponent: 8}, nil
	case *image.Gray16:
		return ColorDescriptor{}, unsupportedModel("Gray16")
	case *image.RGBA64:
		return ColorDescriptor{}, unsupportedModel("RGBA64")
	case *image.NRGBA64:
		return ColorDescriptor{}, unsupportedModel("NRGBA64")
	case *image.Alpha:
		return ColorDescriptor{}, unsupportedModel("Alpha")
	case *image.Alpha16:
		return ColorDescriptor{}, unsupportedModel("Alpha16")
	default:
		return ColorDescriptor{}, unsupportedModel(fmt.Sprintf("%T", img))
	}
}

// indexedTransparency reports whether the palette's alpha fits an Indexed
// image: every entry opaque except at most one fully transparent one.
func indexedTransparency(p color.Palette) bool {
	transparent := 0
	for _, c := range p {
		_, _, _, a := c.RGBA()
		switch a {
		case 0xffff:
		case 0:
			transparent++
		default:
			return false
		}
	}
	return transparent <= 1
}

// paletteDepth mirrors the bit depth image/png chooses for a palette size
func paletteDepth(n int) int {
	switch {
	case n <= 2:
		return 1
	case n <= 4:
		return 2
	case n <= 16:
		return 4
	default:
		return 8
	}
}

// normalize converts img into the concrete type whose PNG encoding matches
// desc exactly: Gray stays gray, RGB models become RGBA or NRGBA, Indexed
// palettes keep their indices.
func normalize(img image.Image, desc ColorDescriptor) image.Image {
	switch m := img.(type) {
	case *image.Gray, *image.RGBA, *image.NRGBA:
		return m
	case *image.Paletted:
		if desc.Space == Indexed {
			return m
		}
	}

	b := img.Bounds()
	if desc.Alpha {
		dst := image.NewNRGBA(b)
		draw.Draw(dst, b, img, b.Min, draw.Src)
		return dst
	}
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, img, b.Min, draw.Src)
	return dst
}
