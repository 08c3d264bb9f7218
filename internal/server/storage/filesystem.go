package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
)

// Filesystem stores images under root/cards/<callsign>/..., matching the
// layout the original deployment used.
type Filesystem struct {
	root string
}

func NewFilesystem(root string) *Filesystem {
	return &Filesystem{root: root}
}

func (f *Filesystem) path(callsign, name string) (string, error) {
	callsign = strings.ToLower(callsign)
	if !validName(callsign) || strings.Contains(callsign, "/") || !validName(name) {
		return "", ErrBadName
	}
	return filepath.Join(f.root, "cards", callsign, filepath.FromSlash(name)), nil
}

func (f *Filesystem) Put(ctx context.Context, callsign, name string, r io.Reader) error {
	p, err := f.path(callsign, name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o770); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	out, err := os.Create(p)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("failed to write image file: %w", err)
	}
	return out.Close()
}

func (f *Filesystem) Get(ctx context.Context, callsign, name string) (io.ReadCloser, error) {
	p, err := f.path(callsign, name)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to open image file: %w", err)
	}
	return file, nil
}

func (f *Filesystem) Delete(ctx context.Context, callsign, name string) error {
	p, err := f.path(callsign, name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return common.ErrNotFound
		}
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}

func (f *Filesystem) List(ctx context.Context, callsign, prefix string) ([]string, error) {
	dir, err := f.path(callsign, prefix)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}
