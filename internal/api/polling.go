package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-controller/internal/statuscache"
)

// PollResponse carries the statuses that changed since the panel last polled.
// Changed is empty when the poll was woken without a change.
type PollResponse struct {
	Panel   string         `json:"panel"`
	Changed map[int]string `json:"changed"`
}

// handlePoll blocks until one of the polled ids changes, then returns their
// current statuses. Every poll by the same panel for the same id set shares
// one change record, so changes between polls are not lost.
//
// The timeout query parameter is in seconds and is clamped to the configured
// maximum. Nothing changing within it returns 504.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	panel := chi.URLParam(r, "panel")
	if panel == "" {
		writeBadRequest(w, "panel is required")
		return
	}

	ids, err := parseIDs(chi.URLParam(r, "ids"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	timeout, err := s.pollTimeout(r.URL.Query().Get("timeout"))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	record := s.cache.ChangedStatuses().GetOrInsert(panel, ids)
	changed, err := record.Wait(r.Context(), timeout)

	switch {
	case errors.Is(err, statuscache.ErrWaitTimeout):
		writePollTimeout(w)
	case errors.Is(err, statuscache.ErrRecordClosed):
		writeUnavailable(w, "change record closed, retry")
	case err != nil:
		// Client went away.
		s.logger.Debug("long poll abandoned", "panel", panel, "error", err)
	default:
		resp := PollResponse{Panel: panel, Changed: map[int]string{}}
		if len(changed) > 0 {
			resp.Changed = s.statusesOf(changed)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// pollTimeout parses the timeout query parameter. Empty selects the default;
// values above the maximum are clamped.
func (s *Server) pollTimeout(raw string) (time.Duration, error) {
	timeout := s.pollCfg.DefaultPollTimeout()
	if raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			return 0, fmt.Errorf("timeout must be a positive number of seconds")
		}
		timeout = time.Duration(secs) * time.Second
	}

	if limit := s.pollCfg.MaxPollTimeout(); limit > 0 && timeout > limit {
		timeout = limit
	}
	return timeout, nil
}
