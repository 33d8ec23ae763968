package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"gosip/app"
	"gosip/domain/core"
	"gosip/domain/sip"
	"gosip/internal/errors"
)

type runResponse struct {
	Run    *sip.Run                  `json:"run"`
	Shifts []sip.WeightedShiftRecord `json:"shifts,omitempty"`
	Atoms  []sip.AtomExcessInterval  `json:"atoms,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleBDShift runs BD_shift on posted metadata and distances
func (s *Server) handleBDShift(w http.ResponseWriter, r *http.Request) {
	var req BDShiftRequestDTO
	if err := decodeJSON(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}
	opts, err := req.Options.apply(s.defaults)
	if err != nil {
		s.writeError(w, err)
		return
	}

	samples, err := toSampleTable(req.Samples)
	if err != nil {
		s.writeError(w, err)
		return
	}
	dist, err := toDistanceMatrix(req.Distances)
	if err != nil {
		s.writeError(w, err)
		return
	}

	resp, err := s.service.RunBDShift(r.Context(), app.BDShiftRequest{
		Samples:   samples,
		Distances: dist,
		Options:   opts,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleQSIP runs the qSIP estimator with optional bootstrap
func (s *Server) handleQSIP(w http.ResponseWriter, r *http.Request) {
	var req QSIPRequestDTO
	if err := decodeJSON(r, w, &req); err != nil {
		s.writeError(w, err)
		return
	}
	cols, boot, err := req.Options.apply(s.defaults)
	if err != nil {
		s.writeError(w, err)
		return
	}

	samples, err := toSampleTable(req.Samples)
	if err != nil {
		s.writeError(w, err)
		return
	}
	abundance, err := toAbundanceTable(req.Abundances, samples)
	if err != nil {
		s.writeError(w, err)
		return
	}

	iso := s.defaults.Isotope
	if req.Isotope != "" {
		iso = sip.Isotope(req.Isotope)
	}
	resp, err := s.service.RunQSIP(r.Context(), app.QSIPRequest{
		Abundance: abundance,
		Isotope:   iso,
		Columns:   cols,
		Bootstrap: boot,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 50)
	if err != nil {
		s.writeError(w, err)
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}

	runs, err := s.service.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if runs == nil {
		runs = []*sip.Run{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"runs": runs, "limit": limit, "offset": offset})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rep, err := s.service.Report(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runResponse{Run: rep.Run, Shifts: rep.Shifts, Atoms: rep.Atoms})
}

// handleRunReport renders a stored run as HTML, or markdown with ?format=md
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	id, err := runID(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	rep, err := s.service.Report(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if r.URL.Query().Get("format") == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write(rep.Markdown())
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(rep.HTML())
}

func runID(r *http.Request) (core.RunID, error) {
	id, err := core.ParseRunID(chi.URLParam(r, "id"))
	if err != nil {
		return "", errors.InvalidInput(err.Error())
	}
	return id, nil
}

func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, errors.InvalidInput(name + " must be a non-negative integer")
	}
	return v, nil
}
