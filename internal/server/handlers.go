package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/london-map/internal/area"
	"github.com/sells-group/london-map/internal/metric"
	"github.com/sells-group/london-map/internal/selection"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	switch {
	case s.current.Load() != nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case s.LoadError() != nil:
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "failed",
			"error":  s.LoadError().Error(),
		})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "loading"})
	}
}

func (s *Server) handleSession(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.current.Load().Summary())
}

func (s *Server) handleGetSelection(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.current.Load().Selection())
}

func (s *Server) handlePutSelection(w http.ResponseWriter, r *http.Request) {
	var u selection.Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sel, err := s.current.Load().UpdateSelection(u)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	level, err := area.ParseLevel(chi.URLParam(r, "level"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	sess := s.current.Load()
	sel := sess.Selection()
	key := styleKey{Session: sess.ID, Level: level, Fingerprint: sel.Fingerprint()}

	w.Header().Set("Content-Type", "application/json")
	if cached, ok := s.styles.Get(key); ok {
		w.Header().Set("X-Cache", "hit")
		_, _ = w.Write(cached)
		return
	}

	data, err := json.Marshal(sess.StylesFor(level, sel))
	if err != nil {
		s.log.Error("encode styles", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "encode styles")
		return
	}
	s.styles.Put(key, data)
	w.Header().Set("X-Cache", "miss")
	_, _ = w.Write(data)
}

func (s *Server) handleArea(w http.ResponseWriter, r *http.Request) {
	d, err := s.current.Load().Select(chi.URLParam(r, "name"))
	if err != nil {
		writeAreaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleFocus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Borough string `json:"borough"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Borough == "" {
		writeError(w, http.StatusBadRequest, "borough is required")
		return
	}
	sel, err := s.current.Load().Focus(req.Borough)
	if err != nil {
		writeAreaError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sel)
}

func (s *Server) handleClearFocus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.current.Load().ClearFocus())
}

func (s *Server) handleZoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Zoom *int `json:"zoom"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Zoom == nil {
		writeError(w, http.StatusBadRequest, "zoom is required")
		return
	}
	writeJSON(w, http.StatusOK, s.current.Load().SetZoom(*req.Zoom))
}

func (s *Server) handleLegend(w http.ResponseWriter, r *http.Request) {
	sess := s.current.Load()
	mode := sess.Selection().Mode
	if q := r.URL.Query().Get("mode"); q != "" {
		k, err := metric.ParseKind(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		mode = k
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"mode":    mode,
		"entries": sess.LegendFor(mode),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.current.Load().Search(r.URL.Query().Get("postcode")))
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"statistics": s.current.Load().CacheStats(),
		"styles":     s.styles.Stats(),
	})
}

func (s *Server) handlePopulationStats(w http.ResponseWriter, r *http.Request) {
	sess := s.current.Load()
	sel := sess.Selection()

	level := sel.ActiveLevel()
	if q := r.URL.Query().Get("level"); q != "" {
		l, err := area.ParseLevel(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		level = l
	}
	year := sel.Year
	if q := r.URL.Query().Get("year"); q != "" {
		y, err := strconv.Atoi(q)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}
	writeJSON(w, http.StatusOK, sess.PopulationStats(level, year))
}

func writeAreaError(w http.ResponseWriter, err error) {
	if eris.Is(err, area.ErrUnknownArea) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}
