package callsigns

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/achildrenmile/qslcardgenerator/internal/common"
	"github.com/achildrenmile/qslcardgenerator/internal/server/models"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "callsigns.json"))
}

func TestCreate_Defaults(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	cfg, err := s.Create(ctx, &models.CallsignConfig{ID: " OE8KKS "})
	require.NoError(t, err)

	assert.Equal(t, "oe8kks", cfg.ID)
	assert.Equal(t, "OE8KKS", cfg.Name)
	assert.Equal(t, "https://www.qrz.com/db/OE8KKS", cfg.QRZLink)
	assert.Len(t, cfg.TextPositions, 6)
	assert.Equal(t, models.TextPosition{X: 3368, Y: 2026}, cfg.TextPositions["callsign"])
	assert.False(t, cfg.CreatedAt.IsZero())
}

func TestCreate_DuplicateRejected(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)

	_, err = s.Create(ctx, &models.CallsignConfig{ID: "OE1ABC"})
	assert.True(t, errors.Is(err, common.ErrAlreadyExists))
}

func TestCreate_EmptyID(t *testing.T) {
	s := newStore(t)
	_, err := s.Create(context.Background(), &models.CallsignConfig{})
	assert.True(t, errors.Is(err, common.ErrValidation))
}

func TestGet_CaseInsensitive(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, &models.CallsignConfig{ID: "oe1abc", Name: "OE1ABC"})
	require.NoError(t, err)

	cfg, err := s.Get(ctx, "OE1abc")
	require.NoError(t, err)
	assert.Equal(t, "oe1abc", cfg.ID)

	_, err = s.Get(ctx, "oe9zzz")
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestUpdate(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	created, err := s.Create(ctx, &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)

	pos := map[string]models.TextPosition{"callsign": {X: 1, Y: 2}}
	updated, err := s.Update(ctx, "oe1abc", "Vienna Club", "", pos)
	require.NoError(t, err)

	assert.Equal(t, "Vienna Club", updated.Name)
	assert.Equal(t, created.QRZLink, updated.QRZLink)
	assert.Equal(t, pos, updated.TextPositions)
	assert.False(t, updated.UpdatedAt.Before(created.CreatedAt))

	_, err = s.Update(ctx, "oe9zzz", "x", "", nil)
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestDelete(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)
	_, err = s.Create(ctx, &models.CallsignConfig{ID: "oe2def"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "OE1ABC"))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "oe2def", list[0].ID)

	assert.True(t, errors.Is(s.Delete(ctx, "oe1abc"), common.ErrNotFound))
}

func TestPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "callsigns.json")
	ctx := context.Background()

	s1 := NewStore(path)
	_, err := s1.Create(ctx, &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)

	s2 := NewStore(path)
	cfg, err := s2.Get(ctx, "oe1abc")
	require.NoError(t, err)
	assert.Equal(t, "OE1ABC", cfg.Name)

	// no stray temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestConcurrentUpdatesDoNotDropWrites(t *testing.T) {
	s := newStore(t)
	ctx := context.Background()

	_, err := s.Create(ctx, &models.CallsignConfig{ID: "oe1abc"})
	require.NoError(t, err)
	_, err = s.Create(ctx, &models.CallsignConfig{ID: "oe2def"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.Update(ctx, "oe1abc", "First", "", nil)
	}()
	go func() {
		defer wg.Done()
		_, _ = s.Update(ctx, "oe2def", "Second", "", nil)
	}()
	wg.Wait()

	c1, err := s.Get(ctx, "oe1abc")
	require.NoError(t, err)
	c2, err := s.Get(ctx, "oe2def")
	require.NoError(t, err)
	assert.Equal(t, "First", c1.Name)
	assert.Equal(t, "Second", c2.Name)
}
