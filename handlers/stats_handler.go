package handlers

import (
	"net/http"

	"github.com/evo-faceit/arena-server/services"
)

type StatsHandler struct {
	statsService services.StatsService
}

func NewStatsHandler(statsService services.StatsService) *StatsHandler {
	return &StatsHandler{
		statsService: statsService,
	}
}

// UserStatsHandler обрабатывает GET /api/statistics/user/{userID}
func (h *StatsHandler) UserStatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := getIDFromURL(r, "userID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	user, err := h.statsService.UserStats(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// TopPlayersHandler обрабатывает GET /api/statistics/top
func (h *StatsHandler) TopPlayersHandler(w http.ResponseWriter, r *http.Request) {
	players, err := h.statsService.TopPlayers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	if err := writeJSON(w, http.StatusOK, jsonResponse{"players": players}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// AllPlayersHandler обрабатывает GET /api/statistics/all
func (h *StatsHandler) AllPlayersHandler(w http.ResponseWriter, r *http.Request) {
	players, stats, err := h.statsService.AllPlayers(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"players": players,
		"stats":   stats,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
