package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// maxIDsPerRequest caps the id list accepted in a single path segment.
const maxIDsPerRequest = 256

// StatusResponse maps sensor ids to their serialized status.
type StatusResponse struct {
	Statuses map[int]string `json:"statuses"`
}

// SensorStatusResponse is the status of one named sensor.
type SensorStatusResponse struct {
	Sensor string `json:"sensor"`
	Status string `json:"status"`
}

// handleStatuses returns the status of every id in the comma separated list.
// Unregistered ids report statuscache.UnknownStatus.
func (s *Server) handleStatuses(w http.ResponseWriter, r *http.Request) {
	ids, err := parseIDs(chi.URLParam(r, "ids"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, StatusResponse{Statuses: s.cache.QueryStatuses(ids)})
}

// handleSensorStatus returns the status of a sensor looked up by name.
func (s *Server) handleSensorStatus(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	status, err := s.cache.QueryStatusByName(name)
	if err != nil {
		if errors.Is(err, statuscache.ErrSensorNotFound) {
			writeNotFound(w, "sensor not found: "+name)
			return
		}
		writeInternalError(w, "querying sensor status")
		return
	}

	writeJSON(w, http.StatusOK, SensorStatusResponse{Sensor: name, Status: status})
}

// handleHistory returns the most recent recorded changes of one sensor.
// The optional limit query parameter is clamped by the repository.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "sensor history is not enabled")
		return
	}

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeBadRequest(w, "sensor id must be a positive integer")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
	}

	entries, err := s.history.Recent(r.Context(), id, limit)
	if err != nil {
		s.logger.Error("querying sensor history", "sensor_id", id, "error", err)
		writeInternalError(w, "querying sensor history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"sensor_id": id,
		"entries":   entries,
		"count":     len(entries),
	})
}

// parseIDs parses a comma separated list of sensor ids. Blank elements are
// skipped; the list must hold at least one id.
func parseIDs(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	ids := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid sensor id %q", p)
		}
		ids = append(ids, id)
	}

	switch {
	case len(ids) == 0:
		return nil, fmt.Errorf("at least one sensor id is required")
	case len(ids) > maxIDsPerRequest:
		return nil, fmt.Errorf("at most %d sensor ids per request", maxIDsPerRequest)
	}
	return ids, nil
}

// statusesOf returns the current status of ids.
func (s *Server) statusesOf(ids []int) map[int]string {
	out := s.cache.QueryStatuses(ids)
	if out == nil {
		out = map[int]string{}
	}
	return out
}
