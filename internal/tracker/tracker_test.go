package tracker

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/joseph-ayodele/drive-renamer/internal/blob"
	"github.com/joseph-ayodele/drive-renamer/internal/drive"
	"github.com/joseph-ayodele/drive-renamer/internal/drive/drivetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func newTracker(t *testing.T) (*Tracker, *drivetest.Fake, blob.Store) {
	t.Helper()
	store, err := blob.NewFSStore(t.TempDir())
	require.NoError(t, err)
	fake := drivetest.New()
	return New(fake, store, Config{}, nil), fake, store
}

func change(id string) drive.Change {
	return drive.Change{FileID: id, File: &drive.File{ID: id, Name: id + ".pdf"}}
}

func TestBeginWithoutCursorStartsInitialSync(t *testing.T) {
	tr, fake, _ := newTracker(t)
	ctx := context.Background()
	fake.StartToken = "100"

	_, ok := tr.GetCursor(ctx, "root")
	assert.False(t, ok)

	token, initial, err := tr.Begin(ctx, "root")
	require.NoError(t, err)
	assert.True(t, initial)
	assert.Equal(t, "100", token)

	saved, ok := tr.GetCursor(ctx, "root")
	require.True(t, ok)
	assert.Equal(t, "100", saved)

	token, initial, err = tr.Begin(ctx, "root")
	require.NoError(t, err)
	assert.False(t, initial)
	assert.Equal(t, "100", token)
	assert.Equal(t, 1, fake.StartCalls)
}

type unreachableStore struct {
	blob.Store
	puts int
}

func (s *unreachableStore) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("dial tcp: connection refused")
}

func (s *unreachableStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	s.puts++
	return s.Store.Put(ctx, key, data, contentType)
}

func TestBeginKeepsCursorWhenStoreIsUnreachable(t *testing.T) {
	_, fake, store := newTracker(t)
	ctx := context.Background()
	require.NoError(t, New(fake, store, Config{}, nil).SaveCursor(ctx, "root", "42"))

	down := &unreachableStore{Store: store}
	tr := New(fake, down, Config{}, nil)
	_, initial, err := tr.Begin(ctx, "root")

	require.Error(t, err)
	assert.False(t, initial)
	assert.Zero(t, down.puts)
	assert.Zero(t, fake.StartCalls)

	raw, err := store.Get(ctx, "root/drive_changes_token.json")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "42")
}

func TestCursorIsScopedPerRoot(t *testing.T) {
	tr, _, store := newTracker(t)
	ctx := context.Background()

	require.NoError(t, tr.SaveCursor(ctx, "a", "1"))
	require.NoError(t, tr.SaveCursor(ctx, "b", "2"))

	raw, err := store.Get(ctx, "a/drive_changes_token.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"pageToken":"1"}`, string(raw))

	got, ok := tr.GetCursor(ctx, "b")
	require.True(t, ok)
	assert.Equal(t, "2", got)
}

func TestUnparsableCursorMeansNoPriorSync(t *testing.T) {
	tr, _, store := newTracker(t)
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "root/drive_changes_token.json", []byte("{not json"), ""))

	_, ok := tr.GetCursor(ctx, "root")
	assert.False(t, ok)
}

func TestDrainWalksPagesAndPersistsTerminalToken(t *testing.T) {
	tr, fake, _ := newTracker(t)
	ctx := context.Background()
	fake.SetChanges("t1", drive.ChangePage{Changes: []drive.Change{change("a"), change("b")}, NextPageToken: "t2"})
	fake.SetChanges("t2", drive.ChangePage{Changes: []drive.Change{change("c")}, NewStartPageToken: "t3"})

	var seen []string
	stats, err := tr.Drain(ctx, "root", "t1", func(_ context.Context, ch drive.Change) error {
		seen = append(seen, ch.FileID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, seen)
	assert.Equal(t, DrainStats{Pages: 2, Changes: 3}, stats)

	cursor, ok := tr.GetCursor(ctx, "root")
	require.True(t, ok)
	assert.Equal(t, "t3", cursor)
}

func TestDrainCheckpointsCompletedPages(t *testing.T) {
	tr, fake, _ := newTracker(t)
	ctx := context.Background()
	require.NoError(t, tr.SaveCursor(ctx, "root", "t1"))
	fake.SetChanges("t1", drive.ChangePage{Changes: []drive.Change{change("a")}, NextPageToken: "t2"})
	fake.SetChanges("t2", drive.ChangePage{Changes: []drive.Change{change("b")}, NewStartPageToken: "t3"})

	boom := errors.New("handler failed")
	_, err := tr.Drain(ctx, "root", "t1", func(_ context.Context, ch drive.Change) error {
		if ch.FileID == "b" {
			return boom
		}
		return nil
	})
	require.ErrorIs(t, err, boom)

	cursor, ok := tr.GetCursor(ctx, "root")
	require.True(t, ok)
	assert.Equal(t, "t2", cursor)
}

func TestDrainResetsCursorOnAuthError(t *testing.T) {
	tr, fake, _ := newTracker(t)
	ctx := context.Background()
	require.NoError(t, tr.SaveCursor(ctx, "root", "stale"))
	fake.StartToken = "fresh"
	fake.ChangesErr = func(string) error {
		return &googleapi.Error{Code: http.StatusForbidden, Message: "forbidden"}
	}

	stats, err := tr.Drain(ctx, "root", "stale", func(context.Context, drive.Change) error {
		t.Fatal("handler must not run")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, stats.Reset)

	cursor, ok := tr.GetCursor(ctx, "root")
	require.True(t, ok)
	assert.Equal(t, "fresh", cursor)
}

func TestDrainPropagatesOtherErrors(t *testing.T) {
	tr, fake, _ := newTracker(t)
	ctx := context.Background()
	require.NoError(t, tr.SaveCursor(ctx, "root", "t1"))
	fake.ChangesErr = func(string) error { return &googleapi.Error{Code: http.StatusInternalServerError} }

	_, err := tr.Drain(ctx, "root", "t1", func(context.Context, drive.Change) error { return nil })
	require.Error(t, err)

	cursor, _ := tr.GetCursor(ctx, "root")
	assert.Equal(t, "t1", cursor)
}

func buildTree(fake *drivetest.Fake) (root string, want []string) {
	root = fake.AddFolder("", "root")
	a := fake.AddFolder(root, "Facturas")
	fake.AddFolder(a, "Facturas")
	b := fake.AddFolder(root, "Otros")
	c := fake.AddFolder(b, "Facturas")
	d := fake.AddFolder(b, "2024")
	e := fake.AddFolder(d, "Recibos")
	fake.AddFile(root, "Facturas", nil)
	return root, []string{a, c, e}
}

func TestResolveTargetFolders(t *testing.T) {
	for _, pageSize := range []int{0, 1, 2} {
		tr, fake, _ := newTracker(t)
		fake.PageSize = pageSize
		root, want := buildTree(fake)

		got, err := tr.ResolveTargetFolders(context.Background(), root, []string{"Facturas", "Recibos"})
		require.NoError(t, err)
		assert.Equal(t, want, got, "page size %d", pageSize)
	}
}

func TestResolveTargetFoldersListErrors(t *testing.T) {
	tr, fake, _ := newTracker(t)
	root, _ := buildTree(fake)
	fake.ListErr = func(q drive.Query) error {
		if q.ParentID != root {
			return errors.New("subfolder unavailable")
		}
		return nil
	}

	got, err := tr.ResolveTargetFolders(context.Background(), root, []string{"Facturas"})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	fake.ListErr = func(drive.Query) error { return errors.New("root unavailable") }
	_, err = tr.ResolveTargetFolders(context.Background(), root, []string{"Facturas"})
	assert.Error(t, err)
}
