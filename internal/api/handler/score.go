package handler

import (
	"errors"
	"net/http"

	"github.com/mcoot/memorygame/internal/api/middleware"
	"github.com/mcoot/memorygame/internal/api/request"
	"github.com/mcoot/memorygame/internal/api/response"
	"github.com/mcoot/memorygame/internal/services/leaderboard"
)

// maxSubmissionBytes bounds a score submission body
const maxSubmissionBytes = 16 << 10

// ScoreHandler handles score submission and the leaderboard
type ScoreHandler struct {
	leaderboard *leaderboard.Service
}

// NewScoreHandler creates a new score handler
func NewScoreHandler(leaderboard *leaderboard.Service) *ScoreHandler {
	return &ScoreHandler{
		leaderboard: leaderboard,
	}
}

// Submit handles POST /api/scores.
// Authentication is optional: without a bearer token the submission is a
// guest score and must carry a name.
func (h *ScoreHandler) Submit(w http.ResponseWriter, r *http.Request) {
	req, err := request.DecodeSubmitScore(http.MaxBytesReader(w, r.Body, maxSubmissionBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteError(w, NewInvalidRequestError("request body too large"))
			return
		}
		WriteError(w, NewInvalidRequestError("request body must be a JSON object"))
		return
	}

	record, err := h.leaderboard.Submit(r.Context(), req.ToSubmission(middleware.ExtractToken(r)))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusCreated, response.ScoreCreated{ID: record.ID})
}

// List handles GET /api/scores
func (h *ScoreHandler) List(w http.ResponseWriter, r *http.Request) {
	ranked, err := h.leaderboard.Leaderboard(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.ScoresFromRanked(ranked))
}
