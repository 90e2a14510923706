package blob

import (
	"context"
	"errors"
	"testing"

	"github.com/joseph-ayodele/drive-renamer/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSStoreRoundTrip(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "root-1/cursor.json", []byte(`{"pageToken":"42"}`), "application/json"))
	got, err := s.Get(ctx, "root-1/cursor.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"pageToken":"42"}`, string(got))

	require.NoError(t, s.Put(ctx, "root-1/cursor.json", []byte(`{"pageToken":"43"}`), "application/json"))
	got, err = s.Get(ctx, "root-1/cursor.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"pageToken":"43"}`, string(got))
}

func TestFSStoreMissingKey(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	_, err = s.Get(context.Background(), "nope.json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.True(t, errors.Is(err, common.ErrNotFound))
}

func TestFSStoreRejectsEscapingKeys(t *testing.T) {
	s, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../outside", "/abs/path", "", "."} {
		err := s.Put(context.Background(), key, []byte("x"), "")
		assert.Error(t, err, key)
	}
}

func TestNewSelectsBackend(t *testing.T) {
	s, err := New(common.BlobConfig{Backend: "fs", Dir: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FSStore{}, s)

	_, err = New(common.BlobConfig{Backend: "gcs"})
	require.Error(t, err)
	assert.True(t, common.IsConfigError(err))

	_, err = NewMinioStore(MinioConfig{})
	assert.Error(t, err)
}
