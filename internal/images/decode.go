package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// MaxImageSize is the largest upload accepted per image (10MB)
const MaxImageSize = 10 * 1024 * 1024

// ErrUnsupportedFormat is returned for encodings the decoder does not accept
var ErrUnsupportedFormat = errors.New("unsupported image format")

var supportedFormats = map[string]bool{
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"webp": true,
	"bmp":  true,
	"tiff": true,
}

// Decoded is an opaque RGB pixel buffer handed to captioning models
type Decoded struct {
	Pixels *image.NRGBA
	Format string
}

// Width returns the pixel width
func (d *Decoded) Width() int {
	return d.Pixels.Bounds().Dx()
}

// Height returns the pixel height
func (d *Decoded) Height() int {
	return d.Pixels.Bounds().Dy()
}

// Decode turns uploaded bytes into an RGB buffer. EXIF orientation is applied
// and any alpha channel is flattened onto white. GIFs yield their first frame.
func Decode(data []byte) (*Decoded, error) {
	if len(data) == 0 {
		return nil, errors.New("image data is empty")
	}
	if len(data) > MaxImageSize {
		return nil, fmt.Errorf("image too large: %d bytes (max %d)", len(data), MaxImageSize)
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	if !supportedFormats[format] {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s image: %w", format, err)
	}

	return &Decoded{
		Pixels: flatten(img),
		Format: format,
	}, nil
}

// DetectFormat reports the encoding of data without decoding pixels
func DetectFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to read image header: %w", err)
	}
	return format, nil
}

// ExtensionFor maps a decoder format name to a file extension
func ExtensionFor(format string) string {
	switch format {
	case "jpeg":
		return ".jpg"
	case "":
		return ""
	default:
		return "." + strings.ToLower(format)
	}
}

// IsImageFile reports whether a file name carries an accepted image extension
func IsImageFile(name string) bool {
	_, err := imaging.FormatFromFilename(name)
	if err == nil {
		return true
	}
	return strings.EqualFold(extOf(name), ".webp")
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i:]
	}
	return ""
}

func flatten(img image.Image) *image.NRGBA {
	b := img.Bounds()
	bg := imaging.New(b.Dx(), b.Dy(), color.White)
	return imaging.Overlay(bg, img, image.Pt(0, 0), 1.0)
}
