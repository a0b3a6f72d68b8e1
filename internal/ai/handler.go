package ai

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/jajan/service/internal/middleware"
	"github.com/jajan/service/internal/response"
)

// Handler holds HTTP handlers for AI endpoints.
type Handler struct {
	svc *Service
}

// NewHandler creates a new ai Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type magicRequest struct {
	Note      string `json:"note"      example:"The broth was rich and the noodles had the perfect chew."`
	PlaceName string `json:"placeName" example:"Ichiran Shibuya"`
	Mode      string `json:"mode"      example:"summary"`
}

type magicData struct {
	Text string `json:"text" example:"A rich, slurp-worthy bowl I still think about."`
	Mode string `json:"mode" example:"summary"`
}

// Magic godoc
//
//	@Summary		Rewrite a note
//	@Description	Generates a short summary or a playful headline for a food note. Mode is "summary" or "title".
//	@Tags			ai
//	@Accept			json
//	@Produce		json
//	@Security		BearerAuth
//	@Param			request	body		magicRequest	true	"Note to rewrite"
//	@Success		200		{object}	response.Envelope{data=magicData}
//	@Failure		400		{object}	response.Envelope
//	@Failure		401		{object}	response.Envelope
//	@Failure		500		{object}	response.Envelope
//	@Router			/ai/magic [post]
func (h *Handler) Magic(w http.ResponseWriter, r *http.Request) {
	if _, ok := middleware.OwnerID(r.Context()); !ok {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req magicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	text, err := h.svc.Rewrite(r.Context(), req.Note, req.PlaceName, req.Mode)
	if err != nil {
		switch {
		case errors.Is(err, ErrNoteRequired):
			response.BadRequest(w, "Write a note first so AI has context.")
		case errors.Is(err, ErrInvalidMode):
			response.BadRequest(w, "mode must be \"summary\" or \"title\"")
		case errors.Is(err, ErrNotConfigured):
			response.InternalErrorMessage(w, "No AI provider configured. Set AI_API_KEY.")
		default:
			log.Printf("ai: rewrite failed: %v", err)
			response.InternalErrorMessage(w, "AI magic fizzled out. Try again in a sec.")
		}
		return
	}

	response.OK(w, magicData{Text: text, Mode: req.Mode})
}
