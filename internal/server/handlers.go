package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/RC-CHN/CHARLS-FILTER/internal/filter"
)

type loadRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, fmt.Errorf("%w: path is required", errBadRequest))
		return
	}
	ds, err := s.read(r.Context(), req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.sess.Load(req.Path, ds); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Status())
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.Status())
}

type columnInfo struct {
	Name      string                `json:"name"`
	Kind      string                `json:"kind"`
	Label     string                `json:"label,omitempty"`
	Class     filter.Classification `json:"classification"`
	Operators []filter.Op           `json:"operators"`
}

func (s *Server) handleColumns(w http.ResponseWriter, _ *http.Request) {
	ds, err := s.sess.Working()
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]columnInfo, 0, ds.NumCols())
	for _, c := range ds.Columns() {
		cl, err := filter.Classify(ds, c.Name())
		if err != nil {
			writeError(w, err)
			return
		}
		out = append(out, columnInfo{
			Name:      c.Name(),
			Kind:      c.Kind().String(),
			Label:     c.Label(),
			Class:     cl,
			Operators: cl.Operators(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePreview previews a column of the working dataset, or of the original
// with ?source=original.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	get := s.sess.Working
	if r.URL.Query().Get("source") == "original" {
		get = s.sess.Original
	}
	ds, err := get()
	if err != nil {
		writeError(w, err)
		return
	}
	n := 0
	if raw := r.URL.Query().Get("n"); raw != "" {
		if n, err = strconv.Atoi(raw); err != nil {
			writeError(w, fmt.Errorf("%w: n must be an integer", errBadRequest))
			return
		}
	}
	p, err := filter.Preview(ds, chi.URLParam(r, "name"), n)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type filterResponse struct {
	Removed int `json:"removed"`
	Rows    int `json:"rows"`
}

func (s *Server) applyFilter(w http.ResponseWriter, p filter.Predicate) {
	removed, err := s.sess.Filter(p)
	if err != nil {
		writeError(w, err)
		return
	}
	st := s.sess.Status()
	writeJSON(w, http.StatusOK, filterResponse{Removed: removed, Rows: st.Rows})
}

type dropNARequest struct {
	Columns []string `json:"columns"`
}

func (s *Server) handleDropNA(w http.ResponseWriter, r *http.Request) {
	var req dropNARequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.applyFilter(w, filter.NotMissing{Columns: req.Columns})
}

type conditionRequest struct {
	Column string `json:"column"`
	Op     string `json:"op"`
	Value  string `json:"value"`
}

func (s *Server) handleCondition(w http.ResponseWriter, r *http.Request) {
	var req conditionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	op, err := filter.ParseOp(req.Op)
	if err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Value) == "" {
		writeError(w, fmt.Errorf("%w: filter value must not be empty", errInvalidInput))
		return
	}
	s.applyFilter(w, filter.Condition{Column: req.Column, Op: op, Value: req.Value})
}

func (s *Server) handleReset(w http.ResponseWriter, _ *http.Request) {
	if err := s.sess.Reset(); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sess.Status())
}

type exportRequest struct {
	Path   string            `json:"path"`
	Rename map[string]string `json:"rename"`
}

type exportResponse struct {
	Path string `json:"path"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	ds, err := s.sess.Working()
	if err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Path) == "" {
		writeError(w, fmt.Errorf("%w: path is required", errBadRequest))
		return
	}
	path, err := s.export(r.Context(), ds, req.Rename, req.Path)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exportResponse{Path: path, Rows: ds.NumRows(), Cols: ds.NumCols()})
}
