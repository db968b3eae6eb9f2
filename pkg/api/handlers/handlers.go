package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cbodonnell/wordchain/pkg/game"
	"github.com/cbodonnell/wordchain/pkg/log"
	"github.com/cbodonnell/wordchain/pkg/repositories"
	"github.com/cbodonnell/wordchain/pkg/version"
	"github.com/gorilla/mux"
)

// Counters exposes the server's delivery counters.
type Counters interface {
	Failures() uint64
	Rejected() uint64
}

type errorResponse struct {
	Error string `json:"error"`
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

type statsResponse struct {
	ConnectedPlayers    int    `json:"connectedPlayers"`
	Capacity            int    `json:"capacity"`
	MatchActive         bool   `json:"matchActive"`
	BroadcastFailures   uint64 `json:"broadcastFailures"`
	RejectedConnections uint64 `json:"rejectedConnections"`
	Version             string `json:"version"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func HandleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: version.Get()})
	}
}

func HandleScores(registry *game.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, registry.Scores())
	}
}

func HandlePlayers(registry *game.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, registry.Players())
	}
}

func HandleMatch(registry *game.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, registry.Match())
	}
}

func HandleStats(registry *game.Registry, counters Counters) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats := statsResponse{
			ConnectedPlayers: registry.Count(),
			Capacity:         registry.Capacity(),
			MatchActive:      registry.Match().Active,
			Version:          version.Get(),
		}
		if counters != nil {
			stats.BroadcastFailures = counters.Failures()
			stats.RejectedConnections = counters.Rejected()
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func HandleListTurns(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repository == nil {
			writeError(w, http.StatusServiceUnavailable, "play log is not configured")
			return
		}

		limit := repositories.DefaultListLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		turns, err := repository.ListTurns(r.Context(), limit)
		if err != nil {
			log.Error("failed to list turns: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list turns")
			return
		}
		writeJSON(w, http.StatusOK, turns)
	}
}

func HandleListMatchTurns(repository repositories.Repository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repository == nil {
			writeError(w, http.StatusServiceUnavailable, "play log is not configured")
			return
		}

		matchID := mux.Vars(r)["matchID"]
		turns, err := repository.ListMatchTurns(r.Context(), matchID)
		if err != nil {
			if repositories.IsNotFound(err) {
				writeError(w, http.StatusNotFound, "match not found")
				return
			}
			log.Error("failed to list turns of match %s: %v", matchID, err)
			writeError(w, http.StatusInternalServerError, "failed to list turns")
			return
		}
		writeJSON(w, http.StatusOK, turns)
	}
}
