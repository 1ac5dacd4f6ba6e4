package pathcache

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLocator serves a folder tree keyed by "parentID/name" and counts
// lookups.
type fakeLocator struct {
	folders map[string]string
	failOn  map[string]error
	calls   int
}

func newFakeLocator() *fakeLocator {
	return &fakeLocator{
		folders: map[string]string{
			"root/Calibre":         "lib-id",
			"lib-id/Books":         "books-id",
			"books-id/Author1":     "author1-id",
			"author1-id/Title (1)": "title-id",
		},
		failOn: map[string]error{},
	}
}

func (f *fakeLocator) FolderID(_ context.Context, parentID, name string) (string, bool, error) {
	f.calls++

	key := parentID + "/" + name
	if err, ok := f.failOn[key]; ok {
		return "", false, err
	}

	id, ok := f.folders[key]

	return id, ok, nil
}

func newTestResolver(t *testing.T) (*Resolver, *fakeLocator, *Store) {
	t.Helper()

	s := newTestStore(t)
	loc := newFakeLocator()

	return NewResolver(s, loc, "Calibre", testLogger(t)), loc, s
}

func paths(t *testing.T, s *Store) []string {
	t.Helper()

	entries, err := s.Entries(context.Background())
	require.NoError(t, err)

	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Path)
	}

	return out
}

func TestResolveFolderID_EndToEnd(t *testing.T) {
	ctx := context.Background()
	r, loc, s := newTestResolver(t)

	id, err := r.ResolveFolderID(ctx, "Books/Author1/")
	require.NoError(t, err)
	assert.Equal(t, "author1-id", id)
	assert.Equal(t, 3, loc.calls)
	assert.Equal(t, []string{"/", "Books/", "Books/Author1/"}, paths(t, s))

	id, err = r.ResolveFolderID(ctx, "Books/Author1")
	require.NoError(t, err)
	assert.Equal(t, "author1-id", id)
	assert.Equal(t, 3, loc.calls, "second resolution is served from the cache")
}

func TestResolveFolderID_UsesCachedPrefixes(t *testing.T) {
	ctx := context.Background()
	r, loc, _ := newTestResolver(t)

	_, err := r.ResolveFolderID(ctx, "Books/")
	require.NoError(t, err)
	assert.Equal(t, 2, loc.calls)

	id, err := r.ResolveFolderID(ctx, "Books/Author1/Title (1)/")
	require.NoError(t, err)
	assert.Equal(t, "title-id", id)
	assert.Equal(t, 4, loc.calls, "only the two new segments are looked up")
}

func TestResolveFolderID_DeleteForcesRewalk(t *testing.T) {
	ctx := context.Background()
	r, loc, s := newTestResolver(t)

	_, err := r.ResolveFolderID(ctx, "Books/Author1/")
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, "author1-id")
	require.NoError(t, err)
	require.True(t, deleted)

	before := loc.calls

	id, err := r.ResolveFolderID(ctx, "Books/Author1/")
	require.NoError(t, err)
	assert.Equal(t, "author1-id", id)
	assert.Equal(t, before+1, loc.calls)
}

func TestResolveFolderID_InvalidateAllForcesFullWalk(t *testing.T) {
	ctx := context.Background()
	r, loc, s := newTestResolver(t)

	_, err := r.ResolveFolderID(ctx, "Books/Author1/")
	require.NoError(t, err)

	_, err = s.InvalidateAll(ctx)
	require.NoError(t, err)

	_, err = r.ResolveFolderID(ctx, "Books/Author1/")
	require.NoError(t, err)
	assert.Equal(t, 6, loc.calls)
}

func TestResolveFolderID_MissingSegmentKeepsPartialProgress(t *testing.T) {
	ctx := context.Background()
	r, _, s := newTestResolver(t)

	_, err := r.ResolveFolderID(ctx, "Books/Nobody/Title/")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFolderNotFound)
	assert.Equal(t, []string{"/", "Books/"}, paths(t, s))
}

func TestResolveFolderID_RemoteFailureOnSegment(t *testing.T) {
	ctx := context.Background()
	r, loc, s := newTestResolver(t)

	boom := errors.New("boom")
	loc.failOn["books-id/Author1"] = boom

	_, err := r.ResolveFolderID(ctx, "Books/Author1/")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"/", "Books/"}, paths(t, s))
}

func TestResolveRootID(t *testing.T) {
	ctx := context.Background()
	r, loc, s := newTestResolver(t)

	id, err := r.ResolveRootID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "lib-id", id)

	id, err = r.ResolveFolderID(ctx, "/")
	require.NoError(t, err)
	assert.Equal(t, "lib-id", id)
	assert.Equal(t, 1, loc.calls)
	assert.Equal(t, []string{"/"}, paths(t, s))
}

func TestResolveRootID_RemoteFailureIsNotFound(t *testing.T) {
	ctx := context.Background()
	r, loc, s := newTestResolver(t)

	loc.failOn["root/Calibre"] = errors.New("unauthorized")

	_, err := r.ResolveRootID(ctx)
	assert.ErrorIs(t, err, ErrFolderNotFound)

	_, err = r.ResolveFolderID(ctx, "Books/")
	assert.ErrorIs(t, err, ErrFolderNotFound)
	assert.Empty(t, paths(t, s))
}

func TestResolveRootID_MissingRoot(t *testing.T) {
	s := newTestStore(t)
	r := NewResolver(s, newFakeLocator(), "Nope", testLogger(t))

	_, err := r.ResolveRootID(context.Background())
	assert.ErrorIs(t, err, ErrFolderNotFound)
}
