package handler

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/globaldex/internal/api/response"
	"github.com/mcoot/globaldex/internal/model"
	"github.com/mcoot/globaldex/internal/services/dex"
)

// DexHandler handles the read-only views
type DexHandler struct {
	dex *dex.Service
}

// NewDexHandler creates a new dex handler
func NewDexHandler(dexService *dex.Service) *DexHandler {
	return &DexHandler{
		dex: dexService,
	}
}

// Get handles GET /api/v1/dex/{id}
func (h *DexHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	d, err := h.dex.Dex(r.Context(), model.PlayerID(id))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.DexResponseFromDex(d))
}

// Leaderboard handles GET /api/v1/leaderboard
func (h *DexHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}

	summaries, err := h.dex.Leaderboard(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.LeaderboardFromSummaries(summaries))
}

// Completion handles GET /api/v1/leaderboard/completion
func (h *DexHandler) Completion(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}

	completion, err := h.dex.Completion(r.Context(), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.CompletionFromDex(completion))
}

// SearchPlayer handles GET /api/v1/player/search?query=
func (h *DexHandler) SearchPlayer(w http.ResponseWriter, r *http.Request) {
	match, err := h.dex.SearchPlayer(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.PlayerSearchFromMatch(match))
}

// SpeciesCaught handles GET /api/v1/species/{name}/caught
func (h *DexHandler) SpeciesCaught(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	caught, err := h.dex.SpeciesCaught(r.Context(), name)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SpeciesCaughtResponse{
		Species:      caught.Species,
		TotalPlayers: caught.TotalPlayers,
		ShinyPlayers: caught.ShinyPlayers,
	})
}

// SearchSpecies handles GET /api/v1/species/search?term=
func (h *DexHandler) SearchSpecies(w http.ResponseWriter, r *http.Request) {
	limit, ok := limitParam(w, r)
	if !ok {
		return
	}

	names, err := h.dex.SearchSpecies(r.Context(), r.URL.Query().Get("term"), limit)
	if err != nil {
		WriteError(w, err)
		return
	}

	response.JSON(w, http.StatusOK, response.SpeciesSearchResponse{Names: names})
}

// limitParam reads the optional limit query parameter. Zero means the default.
func limitParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 1 {
		WriteError(w, NewInvalidRequestError("limit must be a positive integer"))
		return 0, false
	}
	return limit, true
}
