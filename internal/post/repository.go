// Package post manages food journal entries: their persistence, the photo
// lifecycle across the database and the object store, and the HTTP surface.
package post

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Post represents a single food memory owned by exactly one user.
type Post struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	OwnerID   string    `json:"ownerId"`
	PlaceName string    `json:"placeName"`
	Notes     *string   `json:"notes,omitempty"`
	PhotoURL  *string   `json:"photoUrl,omitempty"`
}

// ErrNotFound is returned when a post does not exist for the given owner.
// A post owned by someone else is reported identically, so callers cannot
// distinguish "not found" from "not yours".
var ErrNotFound = errors.New("post not found")

// ErrPlaceNameRequired is returned when the place name is empty after trimming.
var ErrPlaceNameRequired = errors.New("place name is required")

// Repository handles all post database operations. Every mutating statement
// filters by both id and user_id in a single predicate; ownership is never
// checked as a separate query.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// List returns all posts for the owner, newest first. A missing table
// (fresh deployment before provisioning) degrades to an empty list so the
// client can render an empty state.
func (r *Repository) List(ctx context.Context, ownerID string) ([]Post, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, created_at, user_id, place_name, notes, image_url
		 FROM jajan_posts
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		ownerID,
	)
	if err != nil {
		if isMissingTable(err) {
			return []Post{}, nil
		}
		return nil, fmt.Errorf("list posts: %w", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		var p Post
		if err := rows.Scan(&p.ID, &p.CreatedAt, &p.OwnerID, &p.PlaceName, &p.Notes, &p.PhotoURL); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		if isMissingTable(err) {
			return []Post{}, nil
		}
		return nil, fmt.Errorf("list posts: %w", err)
	}
	return posts, nil
}

// GetByID fetches a single post scoped by owner.
func (r *Repository) GetByID(ctx context.Context, id, ownerID string) (*Post, error) {
	p := &Post{}
	err := r.db.QueryRow(ctx,
		`SELECT id, created_at, user_id, place_name, notes, image_url
		 FROM jajan_posts
		 WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	).Scan(&p.ID, &p.CreatedAt, &p.OwnerID, &p.PlaceName, &p.Notes, &p.PhotoURL)
	if errors.Is(err, pgx.ErrNoRows) || isMissingTable(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post by id: %w", err)
	}
	return p, nil
}

// Create inserts a new post and returns the created record.
func (r *Repository) Create(ctx context.Context, ownerID, placeName string, notes, photoURL *string) (*Post, error) {
	p := &Post{}
	err := r.db.QueryRow(ctx,
		`INSERT INTO jajan_posts (user_id, place_name, notes, image_url)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at, user_id, place_name, notes, image_url`,
		ownerID, placeName, notes, photoURL,
	).Scan(&p.ID, &p.CreatedAt, &p.OwnerID, &p.PlaceName, &p.Notes, &p.PhotoURL)
	if err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return p, nil
}

// Update rewrites the mutable columns of a post, filtered by id AND owner.
// Zero affected rows means the post does not exist for this owner.
func (r *Repository) Update(ctx context.Context, id, ownerID, placeName string, notes, photoURL *string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE jajan_posts
		 SET place_name = $3, notes = $4, image_url = $5
		 WHERE id = $1 AND user_id = $2`,
		id, ownerID, placeName, notes, photoURL,
	)
	if err != nil {
		return fmt.Errorf("update post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a post, filtered by id AND owner.
func (r *Repository) Delete(ctx context.Context, id, ownerID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM jajan_posts WHERE id = $1 AND user_id = $2`,
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// isMissingTable checks whether an error is PostgreSQL undefined_table (42P01).
func isMissingTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "42P01"
}
