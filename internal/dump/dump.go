package dump

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/dacsang97/mdbind/internal/models"
	"github.com/dacsang97/mdbind/pkg/utils"
	"github.com/disintegration/imaging"
	"github.com/google/renameio/v2"

	// imaging registers bmp and tiff itself
	_ "golang.org/x/image/webp"
)

// ImageSource returns the raw bytes behind a page URL
type ImageSource interface {
	GetBytes(ctx context.Context, url string) ([]byte, error)
}

// Dump downloads every URL in order and writes it to dir as
// <label>_<index>.<ext>, keeping the extension of the URL. The image is
// decoded first so broken data is never written. It returns the written
// paths; the first failure aborts.
func Dump(ctx context.Context, src ImageSource, urls []string, dir, label string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, utils.WrapError(err, "create dump directory")
	}

	written := make([]string, 0, len(urls))
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		data, err := src.GetBytes(ctx, url)
		if err != nil {
			return written, &models.ImageFetchError{Index: i, URL: url, Err: err}
		}

		_, format, err := image.DecodeConfig(bytes.NewReader(data))
		if err != nil {
			return written, &models.DecodeError{Index: i, URL: url, Err: err}
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return written, &models.DecodeError{Index: i, URL: url, Err: err}
		}

		ext := extension(url, format)
		path := filepath.Join(dir, fmt.Sprintf("%s_%d.%s", label, i, ext))

		out, err := encode(data, format, img, ext)
		if err != nil {
			return written, &models.DecodeError{Index: i, URL: url, Err: err}
		}
		if err := renameio.WriteFile(path, out, 0644); err != nil {
			return written, utils.WrapError(err, "save "+filepath.Base(path))
		}
		written = append(written, path)
	}

	return written, nil
}

// encode returns the bytes to store under ext. Data whose decoded format
// already matches ext, or whose extension imaging cannot encode, is stored
// as fetched.
func encode(data []byte, format string, img image.Image, ext string) ([]byte, error) {
	target, err := imaging.FormatFromExtension(ext)
	if err != nil || sameFormat(format, target) {
		return data, nil
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, target, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("re-encode as %s: %w", target, err)
	}
	return buf.Bytes(), nil
}

func sameFormat(decoded string, target imaging.Format) bool {
	return strings.EqualFold(decoded, target.String())
}

// extension picks the file extension from the URL, falling back to the
// decoded format name.
func extension(url, format string) string {
	ext := strings.TrimPrefix(filepath.Ext(utils.FilenameFromURL(url)), ".")
	if ext != "" {
		return strings.ToLower(ext)
	}
	if format == "jpeg" {
		return "jpg"
	}
	return format
}
