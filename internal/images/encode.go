package images

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// TransportMIMEType is the encoding used when pixels are sent to a model
const TransportMIMEType = "image/jpeg"

// Encode re-encodes the pixels as JPEG for a model request. When maxEdge is
// positive the image is downscaled so neither side exceeds it.
func (d *Decoded) Encode(maxEdge int) ([]byte, error) {
	img := d.Pixels
	if maxEdge > 0 && (d.Width() > maxEdge || d.Height() > maxEdge) {
		img = imaging.Fit(img, maxEdge, maxEdge, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
