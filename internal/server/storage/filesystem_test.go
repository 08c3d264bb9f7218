package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
)

func TestFilesystem_PutGetDelete(t *testing.T) {
	fs := NewFilesystem(t.TempDir())
	ctx := context.Background()

	require.NoError(t, fs.Put(ctx, "OE1ABC", "card.png", strings.NewReader("png-bytes")))

	// callsign lookup is lowercased
	rc, err := fs.Get(ctx, "oe1abc", "card.png")
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	rc.Close()
	assert.Equal(t, "png-bytes", string(b))

	// last write wins
	require.NoError(t, fs.Put(ctx, "oe1abc", "card.png", strings.NewReader("v2")))
	rc, err = fs.Get(ctx, "oe1abc", "card.png")
	require.NoError(t, err)
	b, _ = io.ReadAll(rc)
	rc.Close()
	assert.Equal(t, "v2", string(b))

	require.NoError(t, fs.Delete(ctx, "oe1abc", "card.png"))
	_, err = fs.Get(ctx, "oe1abc", "card.png")
	assert.True(t, errors.Is(err, common.ErrNotFound))
	assert.True(t, errors.Is(fs.Delete(ctx, "oe1abc", "card.png"), common.ErrNotFound))
}

func TestFilesystem_List(t *testing.T) {
	fs := NewFilesystem(t.TempDir())
	ctx := context.Background()

	require.NoError(t, fs.Put(ctx, "oe1abc", "backgrounds/bg-2.png", strings.NewReader("b")))
	require.NoError(t, fs.Put(ctx, "oe1abc", "backgrounds/bg-1.png", strings.NewReader("a")))

	names, err := fs.List(ctx, "oe1abc", "backgrounds")
	require.NoError(t, err)
	assert.Equal(t, []string{"bg-1.png", "bg-2.png"}, names)

	// missing directory lists empty, not an error
	names, err = fs.List(ctx, "oe9zzz", "backgrounds")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestFilesystem_RejectsTraversal(t *testing.T) {
	fs := NewFilesystem(t.TempDir())
	ctx := context.Background()

	cases := []struct{ callsign, name string }{
		{"oe1abc", "../escape.png"},
		{"oe1abc", "/abs.png"},
		{"oe1abc", "backgrounds/../../x"},
		{"..", "card.png"},
		{"oe1/abc", "card.png"},
		{"oe1abc", ""},
	}
	for _, c := range cases {
		err := fs.Put(ctx, c.callsign, c.name, strings.NewReader("x"))
		assert.True(t, errors.Is(err, ErrBadName), "callsign=%q name=%q", c.callsign, c.name)
	}
}
