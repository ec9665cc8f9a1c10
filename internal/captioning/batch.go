package captioning

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
)

// MaxBatchSize is the largest number of images accepted in one run
const MaxBatchSize = 60

// DecodeStatus tracks whether an item's bytes have been turned into pixels
type DecodeStatus int

const (
	StatusPending DecodeStatus = iota
	StatusDecoded
	StatusFailed
)

func (s DecodeStatus) String() string {
	switch s {
	case StatusDecoded:
		return "decoded"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// ImageItem is one uploaded image inside a batch
type ImageItem struct {
	Name   string
	Data   []byte
	Format string
	Status DecodeStatus

	// Dimensions of the decoded image, zero until decoded. Pixels are
	// released once the item has been captioned.
	Width  int
	Height int
}

// Stem is the item name without its extension
func (i *ImageItem) Stem() string {
	return strings.TrimSuffix(i.Name, filepath.Ext(i.Name))
}

// Upload is a named byte stream submitted for captioning
type Upload struct {
	Name string
	Data []byte
}

// Batch is an ordered collection of images. Order determines both result
// order and archive layout.
type Batch struct {
	Items []*ImageItem
}

// NewBatch wraps uploads into items. Names are reduced to their base name.
func NewBatch(uploads []Upload) *Batch {
	items := make([]*ImageItem, 0, len(uploads))
	for _, u := range uploads {
		items = append(items, &ImageItem{
			Name: cleanName(u.Name),
			Data: u.Data,
		})
	}
	return &Batch{Items: items}
}

// Len returns the number of items
func (b *Batch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Items)
}

// Validate enforces 0 < size <= MaxBatchSize and unique stems. Stems must be
// unique because archive entries are keyed by them.
func (b *Batch) Validate() error {
	n := b.Len()
	if n == 0 {
		return ErrEmptyBatch
	}
	if n > MaxBatchSize {
		return fmt.Errorf("%w: %d images (max %d)", ErrBatchTooLarge, n, MaxBatchSize)
	}

	seen := make(map[string]string, n)
	for _, item := range b.Items {
		key := strings.ToLower(item.Stem())
		if prev, ok := seen[key]; ok {
			return fmt.Errorf("%w: %q and %q", ErrDuplicateItem, prev, item.Name)
		}
		seen[key] = item.Name
	}
	return nil
}

// cleanName reduces name to a base name whose stem is usable as an archive
// entry. Names made only of dots, or with an empty or all-dot stem, fall
// back to "image".
func cleanName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := path.Base(name)
	if base == "/" || strings.Trim(base, ".") == "" {
		return "image"
	}
	ext := path.Ext(base)
	if strings.Trim(strings.TrimSuffix(base, ext), ".") == "" {
		return "image" + ext
	}
	return base
}
