package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/redirtxt/redirtxt/internal/redirect"
	"github.com/redirtxt/redirtxt/internal/rule"
	"github.com/redirtxt/redirtxt/internal/statistics"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *APIServer) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"version": s.version,
	})
}

func (s *APIServer) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg)
}

func (s *APIServer) handleRules(w http.ResponseWriter, r *http.Request) {
	engine := s.redirector.Engine()
	report := rule.ParseReport(s.rules.Text(), engine.ParseOptions(true, true))
	writeJSON(w, http.StatusOK, report)
}

func (s *APIServer) handleStatusCodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.redirector.Engine().Codes().List())
}

// handleMatch dry-runs a request: /match?url=/old&id=42.
func (s *APIServer) handleMatch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	uri := q.Get("url")
	if uri == "" {
		writeError(w, http.StatusBadRequest, "missing url")
		return
	}

	var d redirect.Decision
	if raw := q.Get("id"); raw != "" {
		id, err := strconv.Atoi(raw)
		if err != nil || id < 0 {
			writeError(w, http.StatusBadRequest, "invalid id")
			return
		}
		d = s.redirector.EvaluateID(uri, id)
	} else {
		d = s.redirector.Evaluate(uri)
	}
	writeJSON(w, http.StatusOK, d)
}

// handleEvents lists retained events, optionally filtered with
// ?type=redirect or ?type=404.
func (s *APIServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	events := s.recorder.Events()
	kind := r.URL.Query().Get("type")
	if kind == "" {
		writeJSON(w, http.StatusOK, events)
		return
	}
	if kind != "redirect" && kind != "404" {
		writeError(w, http.StatusBadRequest, "invalid type")
		return
	}
	filtered := make([]statistics.Event, 0, len(events))
	for _, e := range events {
		if e.IsNotFound() == (kind == "404") {
			filtered = append(filtered, e)
		}
	}
	writeJSON(w, http.StatusOK, filtered)
}

func (s *APIServer) handleHits(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.recorder.Hits())
}
