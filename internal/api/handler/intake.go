package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mcoot/globaldex/internal/api/request"
	"github.com/mcoot/globaldex/internal/api/response"
	"github.com/mcoot/globaldex/internal/services/intake"
)

// IntakeHandler handles the write endpoints
type IntakeHandler struct {
	intake *intake.Service
}

// NewIntakeHandler creates a new intake handler
func NewIntakeHandler(intakeService *intake.Service) *IntakeHandler {
	return &IntakeHandler{
		intake: intakeService,
	}
}

// Register handles POST /api/v1/register
func (h *IntakeHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	outcome, err := h.intake.Register(r.Context(), intake.RegisterRequest{
		PlayerID:    req.ID,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	if outcome.Queued {
		response.JSON(w, http.StatusAccepted, response.QueuedResponse{OK: true, Queued: true})
		return
	}

	status := http.StatusOK
	if outcome.Result.Created {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.RegisterResponseFromResult(outcome.Result))
}

// Capture handles POST /api/v1/capture
func (h *IntakeHandler) Capture(w http.ResponseWriter, r *http.Request) {
	var req request.CaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	var capturedAt *time.Time
	if req.CapturedAt != nil && *req.CapturedAt != "" {
		t, err := time.Parse(time.RFC3339Nano, *req.CapturedAt)
		if err != nil {
			WriteError(w, NewInvalidRequestError("captured_at must be an RFC 3339 timestamp"))
			return
		}
		capturedAt = &t
	}

	outcome, err := h.intake.Capture(r.Context(), intake.CaptureRequest{
		PlayerID:   req.ID,
		Species:    req.Species,
		Shiny:      req.Shiny != nil && *req.Shiny,
		CapturedAt: capturedAt,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	if outcome.Queued {
		response.JSON(w, http.StatusAccepted, response.QueuedResponse{OK: true, Queued: true})
		return
	}

	status := http.StatusOK
	if outcome.Result.Changed() {
		status = http.StatusCreated
	}
	response.JSON(w, status, response.CaptureResponseFromResult(outcome.Result))
}

// Uncapture handles POST /api/v1/uncapture
func (h *IntakeHandler) Uncapture(w http.ResponseWriter, r *http.Request) {
	var req request.UncaptureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, NewInvalidRequestError("invalid request body"))
		return
	}

	result, err := h.intake.Uncapture(r.Context(), intake.UncaptureRequest{
		PlayerID: req.ID,
		Species:  req.Species,
	})
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.UncaptureResponse{OK: true, Deleted: result.Deleted})
}
