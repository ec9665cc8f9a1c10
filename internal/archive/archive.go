// Package archive packages captioned images into a zip laid out as
// images/<stem><ext> and captions/<stem>.txt.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
)

const (
	ImagePrefix   = "images/"
	CaptionPrefix = "captions/"
	CaptionExt    = ".txt"

	DefaultFilename = "captions.zip"
	ContentType     = "application/zip"
)

// ErrBuild wraps any I/O or compression failure while writing an archive
var ErrBuild = errors.New("archive build failed")

// Every entry carries the same timestamp so identical input yields identical bytes
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// compressionLevel is fixed; changing it changes archive bytes
const compressionLevel = flate.BestCompression

// Artifact is a built archive ready to hand to a client
type Artifact struct {
	Data        []byte
	Filename    string
	ContentType string
}

// Package builds the archive and attaches the download metadata
func Package(results []captioning.CaptionResult) (*Artifact, error) {
	data, err := Build(results)
	if err != nil {
		return nil, err
	}
	return &Artifact{
		Data:        data,
		Filename:    DefaultFilename,
		ContentType: ContentType,
	}, nil
}

// Build returns the archive bytes for results. Failed results are skipped;
// with no successful results the archive is valid and empty.
func Build(results []captioning.CaptionResult) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, results); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the archive for results to w in result order
func Write(w io.Writer, results []captioning.CaptionResult) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, compressionLevel)
	})

	for _, r := range captioning.Successful(results) {
		if r.Item == nil {
			continue
		}
		imageName, captionName := EntryNames(r.Item)

		if err := writeEntry(zw, imageName, r.Item.Data); err != nil {
			return err
		}
		if err := writeEntry(zw, captionName, []byte(r.Caption)); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("%w: failed to finalize zip: %w", ErrBuild, err)
	}
	return nil
}

// EntryNames returns the image and caption entry names for an item. Both
// share the item's stem.
func EntryNames(item *captioning.ImageItem) (string, string) {
	stem := item.Stem()
	ext := path.Ext(item.Name)
	if ext == "" {
		ext = images.ExtensionFor(item.Format)
	}
	return ImagePrefix + stem + ext, CaptionPrefix + stem + CaptionExt
}

func writeEntry(zw *zip.Writer, name string, data []byte) error {
	header := &zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	}
	header.SetMode(0o644)

	fw, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("%w: failed to create entry %s: %w", ErrBuild, name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("%w: failed to write entry %s: %w", ErrBuild, name, err)
	}
	return nil
}
