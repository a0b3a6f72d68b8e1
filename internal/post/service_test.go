package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jajan/service/internal/storage"
)

const testBucket = "food-posts"

// fakeStore records uploads and deletions and produces store-shaped public
// URLs so the path codec can decode them.
type fakeStore struct {
	uploaded  []string
	deleted   []string
	uploadErr error
	deleteErr error
}

func (f *fakeStore) Upload(_ context.Context, key string, _ io.Reader, _ int64, _ string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	f.uploaded = append(f.uploaded, key)
	return nil
}

func (f *fakeStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return f.deleteErr
}

func (f *fakeStore) PublicURL(key string) string {
	return "http://store.local/storage/v1/object/public/" + testBucket + "/" + key
}

// fakeRepo is an in-memory owner-scoped row store.
type fakeRepo struct {
	rows      map[string]Post
	nextID    int
	listCalls int
	createErr error
	updateErr error
	deleteErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: map[string]Post{}}
}

func (f *fakeRepo) List(_ context.Context, ownerID string) ([]Post, error) {
	f.listCalls++
	out := []Post{}
	for _, p := range f.rows {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetByID(_ context.Context, id, ownerID string) (*Post, error) {
	p, ok := f.rows[id]
	if !ok || p.OwnerID != ownerID {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (f *fakeRepo) Create(_ context.Context, ownerID, placeName string, notes, photoURL *string) (*Post, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	p := Post{
		ID:        fmt.Sprintf("post-%d", f.nextID),
		OwnerID:   ownerID,
		PlaceName: placeName,
		Notes:     notes,
		PhotoURL:  photoURL,
	}
	f.rows[p.ID] = p
	return &p, nil
}

func (f *fakeRepo) Update(_ context.Context, id, ownerID, placeName string, notes, photoURL *string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	p, ok := f.rows[id]
	if !ok || p.OwnerID != ownerID {
		return ErrNotFound
	}
	p.PlaceName = placeName
	p.Notes = notes
	p.PhotoURL = photoURL
	f.rows[id] = p
	return nil
}

func (f *fakeRepo) Delete(_ context.Context, id, ownerID string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	p, ok := f.rows[id]
	if !ok || p.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(f.rows, id)
	return nil
}

// fakeCache records invalidations; reads always miss unless primed.
type fakeCache struct {
	list              []Post
	listPrimed        bool
	invalidatedLists  []string
	invalidatedPosts  []string
	storedListOwners  []string
	storedDetailPosts []string
}

func (f *fakeCache) GetList(_ context.Context, ownerID string) ([]Post, bool) {
	if f.listPrimed {
		return f.list, true
	}
	return nil, false
}

func (f *fakeCache) SetList(_ context.Context, ownerID string, _ []Post) {
	f.storedListOwners = append(f.storedListOwners, ownerID)
}

func (f *fakeCache) GetDetail(_ context.Context, _, _ string) (*Post, bool) { return nil, false }

func (f *fakeCache) SetDetail(_ context.Context, _ string, p *Post) {
	f.storedDetailPosts = append(f.storedDetailPosts, p.ID)
}

func (f *fakeCache) InvalidateList(_ context.Context, ownerID string) {
	f.invalidatedLists = append(f.invalidatedLists, ownerID)
}

func (f *fakeCache) InvalidateDetail(_ context.Context, _, id string) {
	f.invalidatedPosts = append(f.invalidatedPosts, id)
}

func newTestService() (*Service, *fakeRepo, *fakeStore, *fakeCache) {
	repo := newFakeRepo()
	store := &fakeStore{}
	c := &fakeCache{}
	svc := NewService(repo, store, storage.NewPathCodec(testBucket), c)
	return svc, repo, store, c
}

func photoFile(name string) *PhotoUpload {
	return &PhotoUpload{
		Reader:      strings.NewReader("jpeg bytes"),
		Size:        10,
		FileName:    name,
		ContentType: "image/jpeg",
	}
}

type recordingCloser struct {
	io.Reader
	closed bool
}

func (r *recordingCloser) Close() error {
	r.closed = true
	return nil
}

func TestPhotoUploadCloseReleasesFile(t *testing.T) {
	rc := &recordingCloser{Reader: strings.NewReader("jpeg bytes")}
	p := &PhotoUpload{Reader: rc, Size: 10, FileName: "a.jpg"}

	p.Close()
	assert.True(t, rc.closed)

	// A plain reader has nothing to release; Close is a no-op.
	(&PhotoUpload{Reader: strings.NewReader("jpeg bytes")}).Close()
}

func TestCreateWithoutPhoto(t *testing.T) {
	svc, repo, store, c := newTestService()

	p, err := svc.Create(context.Background(), "user_a", "Blue Bottle", "", nil)
	require.NoError(t, err)

	assert.Nil(t, p.PhotoURL)
	assert.Nil(t, p.Notes)
	assert.Equal(t, "Blue Bottle", p.PlaceName)
	assert.Len(t, repo.rows, 1)
	assert.Empty(t, store.uploaded)
	assert.Equal(t, []string{"user_a"}, c.invalidatedLists)
}

func TestCreateWithPhoto(t *testing.T) {
	svc, repo, store, _ := newTestService()

	p, err := svc.Create(context.Background(), "user_a", "Ichiran", "great broth", photoFile("ramen.jpg"))
	require.NoError(t, err)

	require.Len(t, store.uploaded, 1)
	require.NotNil(t, p.PhotoURL)
	assert.Contains(t, *p.PhotoURL, store.uploaded[0])
	assert.True(t, strings.HasPrefix(store.uploaded[0], "user_a/"))
	assert.True(t, strings.HasSuffix(store.uploaded[0], ".jpg"))
	assert.Len(t, repo.rows, 1)
}

func TestCreateTrimsAndValidatesPlaceName(t *testing.T) {
	svc, repo, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "user_a", "   ", "", nil)
	assert.ErrorIs(t, err, ErrPlaceNameRequired)
	assert.Empty(t, repo.rows)

	p, err := svc.Create(context.Background(), "user_a", "  Warung Sabar  ", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "Warung Sabar", p.PlaceName)
}

func TestCreateRequiresOwner(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Create(context.Background(), "", "Blue Bottle", "", nil)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestCreateUploadFailureWritesNoRow(t *testing.T) {
	svc, repo, store, _ := newTestService()
	store.uploadErr = errors.New("boom")

	_, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("ramen.jpg"))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Empty(t, repo.rows, "an upload failure must not leave a row")
}

func TestCreateInsertFailureCleansUpUpload(t *testing.T) {
	repo := newFakeRepo()
	repo.createErr = errors.New("insert exploded")
	store := &fakeStore{}
	svc := NewService(repo, store, storage.NewPathCodec(testBucket), &fakeCache{})

	_, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("ramen.jpg"))

	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	require.Len(t, store.uploaded, 1)
	assert.Equal(t, store.uploaded, store.deleted, "the fresh blob must be compensated away")
}

func TestUpdateReplacePhotoDeletesOldAfterCommit(t *testing.T) {
	svc, repo, store, c := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("old.jpg"))
	require.NoError(t, err)
	oldPath := store.uploaded[0]
	oldURL := *created.PhotoURL

	err = svc.Update(context.Background(), created.ID, "user_a", "Ichiran Shibuya", "even better", oldURL, photoFile("new.png"))
	require.NoError(t, err)

	row := repo.rows[created.ID]
	require.NotNil(t, row.PhotoURL)
	assert.Contains(t, *row.PhotoURL, store.uploaded[1])
	assert.Equal(t, []string{oldPath}, store.deleted)
	assert.Contains(t, c.invalidatedLists, "user_a")
	assert.Contains(t, c.invalidatedPosts, created.ID)
}

func TestUpdateKeepsExistingPhotoWithoutNewFile(t *testing.T) {
	svc, repo, store, _ := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("old.jpg"))
	require.NoError(t, err)
	oldURL := *created.PhotoURL

	err = svc.Update(context.Background(), created.ID, "user_a", "Ichiran", "updated notes", oldURL, nil)
	require.NoError(t, err)

	row := repo.rows[created.ID]
	require.NotNil(t, row.PhotoURL)
	assert.Equal(t, oldURL, *row.PhotoURL)
	assert.Empty(t, store.deleted)
}

func TestUpdateUploadFailureLeavesRowUntouched(t *testing.T) {
	svc, repo, store, _ := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "original", nil)
	require.NoError(t, err)

	store.uploadErr = errors.New("boom")
	err = svc.Update(context.Background(), created.ID, "user_a", "Changed", "changed", "", photoFile("new.jpg"))

	var uploadErr *UploadError
	require.ErrorAs(t, err, &uploadErr)
	assert.Equal(t, "Ichiran", repo.rows[created.ID].PlaceName)
}

func TestUpdateRowFailureDeletesNewUpload(t *testing.T) {
	svc, repo, store, _ := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("old.jpg"))
	require.NoError(t, err)
	oldURL := *created.PhotoURL
	oldPath := store.uploaded[0]

	repo.updateErr = errors.New("write exploded")
	err = svc.Update(context.Background(), created.ID, "user_a", "Ichiran", "", oldURL, photoFile("new.jpg"))

	require.Error(t, err)
	require.Len(t, store.uploaded, 2)
	assert.Equal(t, []string{store.uploaded[1]}, store.deleted, "only the orphaned new blob is removed")
	assert.NotContains(t, store.deleted, oldPath, "the committed photo must survive a failed update")
}

func TestUpdateNotOwnedIndistinguishableFromNotFound(t *testing.T) {
	svc, repo, store, _ := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", nil)
	require.NoError(t, err)

	err = svc.Update(context.Background(), created.ID, "user_b", "Hijacked", "", "", photoFile("new.jpg"))
	assert.ErrorIs(t, err, ErrNotFound)

	missing := svc.Update(context.Background(), "no-such-id", "user_b", "Hijacked", "", "", nil)
	assert.ErrorIs(t, missing, ErrNotFound)

	assert.Equal(t, "Ichiran", repo.rows[created.ID].PlaceName)
	require.Len(t, store.uploaded, 1)
	assert.Equal(t, []string{store.uploaded[0]}, store.deleted, "the speculative upload is compensated away")
}

func TestUpdateSkipsCleanupForForeignURL(t *testing.T) {
	svc, repo, store, _ := newTestService()

	created, err := repo.Create(context.Background(), "user_a", "Ichiran", nil, nil)
	require.NoError(t, err)

	foreign := "https://example.com/images/legacy.jpg"
	err = svc.Update(context.Background(), created.ID, "user_a", "Ichiran", "", foreign, photoFile("new.jpg"))
	require.NoError(t, err)

	assert.Empty(t, store.deleted, "a URL outside our bucket has no deletable path")
}

func TestDeleteRemovesRowThenBlob(t *testing.T) {
	svc, repo, store, c := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("ramen.jpg"))
	require.NoError(t, err)
	path := store.uploaded[0]

	err = svc.Delete(context.Background(), created.ID, "user_a", *created.PhotoURL)
	require.NoError(t, err)

	assert.Empty(t, repo.rows)
	assert.Equal(t, []string{path}, store.deleted)
	assert.Contains(t, c.invalidatedLists, "user_a")
	assert.Contains(t, c.invalidatedPosts, created.ID)
}

func TestDeleteSucceedsWhenBlobRemovalFails(t *testing.T) {
	svc, repo, store, _ := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("ramen.jpg"))
	require.NoError(t, err)

	store.deleteErr = errors.New("store down")
	err = svc.Delete(context.Background(), created.ID, "user_a", *created.PhotoURL)

	assert.NoError(t, err, "cleanup failure never changes the reported outcome")
	assert.Empty(t, repo.rows)
	assert.Len(t, store.deleted, 1, "the removal is still issued exactly once")
}

func TestDeleteRowFailureLeavesBlobUntouched(t *testing.T) {
	svc, repo, store, _ := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("ramen.jpg"))
	require.NoError(t, err)

	repo.deleteErr = errors.New("delete exploded")
	err = svc.Delete(context.Background(), created.ID, "user_a", *created.PhotoURL)

	require.Error(t, err)
	assert.Empty(t, store.deleted, "never delete storage before the row change commits")
}

func TestDeleteNotOwned(t *testing.T) {
	svc, repo, store, _ := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", photoFile("ramen.jpg"))
	require.NoError(t, err)

	err = svc.Delete(context.Background(), created.ID, "user_b", *created.PhotoURL)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, repo.rows, 1)
	assert.Empty(t, store.deleted)
}

func TestListCacheAside(t *testing.T) {
	svc, repo, _, c := newTestService()

	_, err := svc.Create(context.Background(), "user_a", "Ichiran", "", nil)
	require.NoError(t, err)

	posts, err := svc.List(context.Background(), "user_a")
	require.NoError(t, err)
	assert.Len(t, posts, 1)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, []string{"user_a"}, c.storedListOwners)

	// Primed cache short-circuits the repository.
	c.listPrimed = true
	c.list = posts
	_, err = svc.List(context.Background(), "user_a")
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
}

func TestGetScopedByOwner(t *testing.T) {
	svc, _, _, _ := newTestService()

	created, err := svc.Create(context.Background(), "user_a", "Ichiran", "", nil)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), created.ID, "user_b")
	assert.ErrorIs(t, err, ErrNotFound)

	p, err := svc.Get(context.Background(), created.ID, "user_a")
	require.NoError(t, err)
	assert.Equal(t, created.ID, p.ID)
}
