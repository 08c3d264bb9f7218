// Package storage abstracts where uploaded card images live: the local
// filesystem by default, or an S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"io"
	"strings"
)

// ErrBadName rejects object names that could escape the per-callsign
// namespace.
var ErrBadName = errors.New("invalid object name")

// ImageStore stores card templates and background images, namespaced by
// callsign id. Names are flat relative paths such as "card.png" or
// "backgrounds/bg-1700000000000.png". Writes to the same name are
// last-write-wins.
type ImageStore interface {
	Put(ctx context.Context, callsign, name string, r io.Reader) error
	Get(ctx context.Context, callsign, name string) (io.ReadCloser, error)
	Delete(ctx context.Context, callsign, name string) error
	List(ctx context.Context, callsign, prefix string) ([]string, error)
}

// validName accepts only simple relative names: no absolute paths, no
// parent-directory traversal, no empty segments.
func validName(name string) bool {
	if name == "" || strings.HasPrefix(name, "/") {
		return false
	}
	for _, seg := range strings.Split(name, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}
