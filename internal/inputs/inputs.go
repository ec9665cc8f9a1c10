// Package inputs turns command-line arguments into an ordered list of
// uploads. Arguments may be image files, directories, or http(s) URLs.
package inputs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/captioner/internal/captioning"
	"github.com/lehigh-university-libraries/captioner/internal/images"
)

// Collect reads every argument in order. Directories are walked in lexical
// order and only files with an image extension are taken from them; files
// named explicitly are always taken so that undecodable input is reported
// per item rather than silently skipped.
func Collect(ctx context.Context, fetcher *images.Fetcher, args []string) ([]captioning.Upload, error) {
	var uploads []captioning.Upload

	for _, arg := range args {
		if images.IsRemote(arg) {
			name, data, err := fetcher.Fetch(ctx, arg)
			if err != nil {
				return nil, fmt.Errorf("failed to fetch %s: %w", arg, err)
			}
			uploads = append(uploads, captioning.Upload{Name: name, Data: data})
			continue
		}

		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", arg, err)
		}

		if !info.IsDir() {
			upload, err := readFile(arg)
			if err != nil {
				return nil, err
			}
			uploads = append(uploads, upload)
			continue
		}

		found, err := walkDir(arg)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, found...)
	}

	return uploads, nil
}

func walkDir(root string) ([]captioning.Upload, error) {
	var uploads []captioning.Upload

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !images.IsImageFile(path) {
			slog.Debug("Skipping non-image file", "path", path)
			return nil
		}
		upload, err := readFile(path)
		if err != nil {
			return err
		}
		uploads = append(uploads, upload)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	slog.Debug("Collected images from directory", "dir", root, "count", len(uploads))
	return uploads, nil
}

func readFile(path string) (captioning.Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return captioning.Upload{}, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Size() > images.MaxImageSize {
		return captioning.Upload{}, fmt.Errorf("%s is too large: %d bytes (max %d)", path, info.Size(), images.MaxImageSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return captioning.Upload{}, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return captioning.Upload{Name: filepath.Base(path), Data: data}, nil
}
