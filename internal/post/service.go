package post

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/jajan/service/internal/storage"
)

// ErrUnauthenticated is returned when an operation is attempted without an
// owner identity.
var ErrUnauthenticated = errors.New("authentication required")

// UploadError wraps an object-store failure during a photo upload. The
// operation that triggered the upload is aborted; no row is written or
// mutated.
type UploadError struct {
	Err error
}

func (e *UploadError) Error() string { return "upload photo: " + e.Err.Error() }
func (e *UploadError) Unwrap() error { return e.Err }

// PhotoUpload carries an inbound photo file through the create/update pipeline.
type PhotoUpload struct {
	Reader      io.Reader
	Size        int64
	FileName    string
	ContentType string
}

// Close releases the underlying file handle when the reader holds one.
func (p *PhotoUpload) Close() {
	if c, ok := p.Reader.(io.Closer); ok {
		_ = c.Close()
	}
}

// Repo is the row-level persistence the service orchestrates against.
// *Repository satisfies it.
type Repo interface {
	List(ctx context.Context, ownerID string) ([]Post, error)
	GetByID(ctx context.Context, id, ownerID string) (*Post, error)
	Create(ctx context.Context, ownerID, placeName string, notes, photoURL *string) (*Post, error)
	Update(ctx context.Context, id, ownerID, placeName string, notes, photoURL *string) error
	Delete(ctx context.Context, id, ownerID string) error
}

// ViewCache caches rendered list/detail views per owner. All methods are
// best-effort: a read miss and a cache failure look the same to the service.
type ViewCache interface {
	GetList(ctx context.Context, ownerID string) ([]Post, bool)
	SetList(ctx context.Context, ownerID string, posts []Post)
	GetDetail(ctx context.Context, ownerID, id string) (*Post, bool)
	SetDetail(ctx context.Context, ownerID string, p *Post)
	InvalidateList(ctx context.Context, ownerID string)
	InvalidateDetail(ctx context.Context, ownerID, id string)
}

// Service coordinates the post photo lifecycle across the database and the
// object store. Each operation is a single synchronous pipeline with
// compensating actions on failure; the ordering rule throughout is that
// storage is never deleted before the row change referencing it has
// committed, and an upload failure never leaves a persisted dangling URL.
type Service struct {
	repo  Repo
	store storage.Storage
	codec *storage.PathCodec
	cache ViewCache
}

// NewService creates a new post Service.
func NewService(repo Repo, store storage.Storage, codec *storage.PathCodec, cache ViewCache) *Service {
	return &Service{repo: repo, store: store, codec: codec, cache: cache}
}

// List returns the owner's posts, newest first, through the view cache.
func (s *Service) List(ctx context.Context, ownerID string) ([]Post, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	if posts, ok := s.cache.GetList(ctx, ownerID); ok {
		return posts, nil
	}

	posts, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	s.cache.SetList(ctx, ownerID, posts)
	return posts, nil
}

// Get returns one post scoped by owner, through the view cache.
func (s *Service) Get(ctx context.Context, id, ownerID string) (*Post, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}

	if p, ok := s.cache.GetDetail(ctx, ownerID, id); ok {
		return p, nil
	}

	p, err := s.repo.GetByID(ctx, id, ownerID)
	if err != nil {
		return nil, err
	}
	s.cache.SetDetail(ctx, ownerID, p)
	return p, nil
}

// Create validates the input, uploads the photo if one was submitted, and
// inserts the row. An upload failure aborts the operation before any row is
// written. An insert failure after a successful upload triggers a
// compensating best-effort delete of the fresh blob so it does not orphan.
func (s *Service) Create(ctx context.Context, ownerID, placeName, notes string, photo *PhotoUpload) (*Post, error) {
	if ownerID == "" {
		return nil, ErrUnauthenticated
	}
	placeName = strings.TrimSpace(placeName)
	if placeName == "" {
		return nil, ErrPlaceNameRequired
	}

	var photoURL *string
	var uploadedPath string
	if hasFile(photo) {
		path, url, err := s.uploadPhoto(ctx, ownerID, photo)
		if err != nil {
			return nil, err
		}
		uploadedPath = path
		photoURL = &url
	}

	p, err := s.repo.Create(ctx, ownerID, placeName, optional(notes), photoURL)
	if err != nil {
		if uploadedPath != "" {
			s.logCleanup("create rollback", s.removeBlob(ctx, uploadedPath))
		}
		return nil, fmt.Errorf("persist post: %w", err)
	}

	s.cache.InvalidateList(ctx, ownerID)
	return p, nil
}

// Update replaces the mutable fields of a post. When a new photo is
// submitted it is uploaded first; the row write then swaps the URL; only
// after that commit is the superseded photo removed, best-effort. A row
// write failure after a fresh upload deletes the now-orphaned new blob
// before the error is returned.
func (s *Service) Update(ctx context.Context, id, ownerID, placeName, notes, existingPhotoURL string, photo *PhotoUpload) error {
	if ownerID == "" {
		return ErrUnauthenticated
	}
	placeName = strings.TrimSpace(placeName)
	if placeName == "" {
		return ErrPlaceNameRequired
	}

	var photoURL *string
	if existingPhotoURL != "" {
		photoURL = &existingPhotoURL
	}

	var uploadedPath string
	if hasFile(photo) {
		path, url, err := s.uploadPhoto(ctx, ownerID, photo)
		if err != nil {
			return err
		}
		uploadedPath = path
		photoURL = &url
	}

	if err := s.repo.Update(ctx, id, ownerID, placeName, optional(notes), photoURL); err != nil {
		if uploadedPath != "" {
			s.logCleanup("update rollback", s.removeBlob(ctx, uploadedPath))
		}
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("persist post update: %w", err)
	}

	// The row now references the new photo; the old object is unreachable
	// and safe to remove. A decode failure means the previous URL was not
	// ours (legacy or external) and there is nothing to delete.
	if uploadedPath != "" && existingPhotoURL != "" {
		if oldPath := s.codec.Decode(existingPhotoURL); oldPath != "" {
			s.logCleanup("replace photo", s.removeBlob(ctx, oldPath))
		}
	}

	s.cache.InvalidateList(ctx, ownerID)
	s.cache.InvalidateDetail(ctx, ownerID, id)
	return nil
}

// Delete removes the row first, then its photo. The photo is left untouched
// when the row delete fails — the row may still exist and reference it. Blob
// removal after a committed row delete is best-effort; its failure never
// changes the reported outcome.
func (s *Service) Delete(ctx context.Context, id, ownerID, photoURL string) error {
	if ownerID == "" {
		return ErrUnauthenticated
	}

	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("persist post delete: %w", err)
	}

	if photoURL != "" {
		if path := s.codec.Decode(photoURL); path != "" {
			s.logCleanup("delete post", s.removeBlob(ctx, path))
		}
	}

	s.cache.InvalidateList(ctx, ownerID)
	s.cache.InvalidateDetail(ctx, ownerID, id)
	return nil
}

// uploadPhoto encodes a fresh path for the owner and streams the file up,
// returning the path and its public URL.
func (s *Service) uploadPhoto(ctx context.Context, ownerID string, photo *PhotoUpload) (string, string, error) {
	path := s.codec.Encode(ownerID, photo.FileName)
	if err := s.store.Upload(ctx, path, photo.Reader, photo.Size, photo.ContentType); err != nil {
		return "", "", &UploadError{Err: err}
	}
	return path, s.store.PublicURL(path), nil
}

// cleanupOutcome records the result of one best-effort blob removal.
type cleanupOutcome struct {
	path string
	err  error
}

func (s *Service) removeBlob(ctx context.Context, path string) cleanupOutcome {
	return cleanupOutcome{path: path, err: s.store.Delete(ctx, path)}
}

// logCleanup reports a cleanup outcome. Cleanup failures are logged and
// swallowed: they occur only after the primary operation has already
// committed or failed, and must not mask its result.
func (s *Service) logCleanup(op string, out cleanupOutcome) {
	if out.err != nil {
		log.Printf("post: %s: removing blob %q failed: %v", op, out.path, out.err)
	}
}

func hasFile(photo *PhotoUpload) bool {
	return photo != nil && photo.Size > 0
}

// optional converts a trimmed form value to a nullable column value.
func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}
