package post

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jajan/service/internal/middleware"
	"github.com/jajan/service/internal/response"
	"github.com/jajan/service/internal/storage"
)

// maxPhotoMemory caps the in-memory portion of multipart parsing; larger
// files spill to temp files.
const maxPhotoMemory = 10 << 20

// Handler holds HTTP handlers for post endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new post Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type createPostData struct {
	ID string `json:"id" example:"e7eedc79-0707-4fe4-8734-526b7ef13a7b"`
}

// List godoc
//
//	@Summary		List posts
//	@Description	Returns all food journal entries of the authenticated user, newest first.
//	@Tags			posts
//	@Produce		json
//	@Security		BearerAuth
//	@Success		200	{object}	response.Envelope{data=[]Post}
//	@Failure		401	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts [get]
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	posts, err := h.svc.List(r.Context(), ownerID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, posts)
}

// Get godoc
//
//	@Summary		Get post
//	@Description	Returns a single entry owned by the authenticated user.
//	@Tags			posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id	path		string	true	"Post ID"
//	@Success		200	{object}	response.Envelope{data=Post}
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [get]
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), ownerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(w, "entry not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, p)
}

// Create godoc
//
//	@Summary		Create post
//	@Description	Creates a new entry from a multipart form: placeName (required), notes, photo (file).
//	@Tags			posts
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			placeName	formData	string	true	"Place name"
//	@Param			notes		formData	string	false	"Free-text notes"
//	@Param			photo		formData	file	false	"Photo"
//	@Success		201	{object}	response.Envelope{data=createPostData}
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts [post]
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxPhotoMemory); err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	photo, err := formPhoto(r)
	if err != nil {
		response.BadRequest(w, "invalid photo upload")
		return
	}
	if photo != nil {
		defer photo.Close()
	}

	p, err := h.svc.Create(r.Context(), ownerID, r.FormValue("placeName"), r.FormValue("notes"), photo)
	if err != nil {
		writeOperationError(w, err, "Could not save entry. Please try again.")
		return
	}
	response.Created(w, createPostData{ID: p.ID})
}

// Update godoc
//
//	@Summary		Update post
//	@Description	Updates an entry from a multipart form: placeName (required), notes, photo (file), existingImageUrl.
//	@Tags			posts
//	@Accept			mpfd
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id					path		string	true	"Post ID"
//	@Param			placeName			formData	string	true	"Place name"
//	@Param			notes				formData	string	false	"Free-text notes"
//	@Param			photo				formData	file	false	"Replacement photo"
//	@Param			existingImageUrl	formData	string	false	"Current photo URL, kept when no new photo is sent"
//	@Success		200	{object}	response.Envelope
//	@Failure		400	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [put]
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}
	if err := r.ParseMultipartForm(maxPhotoMemory); err != nil {
		response.BadRequest(w, "invalid form data")
		return
	}

	photo, err := formPhoto(r)
	if err != nil {
		response.BadRequest(w, "invalid photo upload")
		return
	}
	if photo != nil {
		defer photo.Close()
	}

	err = h.svc.Update(r.Context(),
		chi.URLParam(r, "id"), ownerID,
		r.FormValue("placeName"), r.FormValue("notes"),
		r.FormValue("existingImageUrl"), photo,
	)
	if err != nil {
		writeOperationError(w, err, "Could not update entry. Please try again.")
		return
	}
	response.OK(w, nil)
}

// Delete godoc
//
//	@Summary		Delete post
//	@Description	Deletes an entry and, when imageUrl is given, its stored photo.
//	@Tags			posts
//	@Produce		json
//	@Security		BearerAuth
//	@Param			id			path	string	true	"Post ID"
//	@Param			imageUrl	query	string	false	"Photo URL of the entry"
//	@Success		200	{object}	response.Envelope
//	@Failure		401	{object}	response.Envelope
//	@Failure		404	{object}	response.Envelope
//	@Failure		500	{object}	response.Envelope
//	@Router			/posts/{id} [delete]
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := middleware.OwnerID(r.Context())
	if !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), ownerID, r.URL.Query().Get("imageUrl"))
	if err != nil {
		writeOperationError(w, err, "Could not delete entry. Please try again.")
		return
	}
	response.OK(w, nil)
}

// formPhoto extracts the optional photo file from a parsed multipart form.
// A missing file field is not an error.
func formPhoto(r *http.Request) (*PhotoUpload, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &PhotoUpload{
		Reader:      file,
		Size:        header.Size,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
	}, nil
}

// writeOperationError maps service errors onto the response envelope.
// Validation messages pass through verbatim; upload failures carry a
// human-readable message that calls out a missing bucket; persistence
// failures and not-found collapse into generic messages that leak nothing.
func writeOperationError(w http.ResponseWriter, err error, persistenceMsg string) {
	var uploadErr *UploadError
	switch {
	case errors.Is(err, ErrUnauthenticated):
		response.Unauthorized(w, "unauthorized")
	case errors.Is(err, ErrPlaceNameRequired):
		response.BadRequest(w, "Place name is required.")
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "entry not found")
	case errors.As(err, &uploadErr):
		if errors.Is(err, storage.ErrBucketNotFound) {
			response.InternalErrorMessage(w, "Storage bucket was not found. Create it or set STORAGE_BUCKET.")
			return
		}
		response.InternalErrorMessage(w, "Unable to upload photo. Please try again.")
	default:
		response.InternalErrorMessage(w, persistenceMsg)
	}
}
