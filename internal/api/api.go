// Package api exposes the stackup and cutout engines over HTTP.
//
// The server is a thin JSON layer: request bodies map onto the option
// structs of pkg/stackup and pkg/cutout, and responses carry the same
// structured error codes the CLI reports.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/edalab/lamina/pkg/buildinfo"
	"github.com/edalab/lamina/pkg/cutout"
	"github.com/edalab/lamina/pkg/errors"
	"github.com/edalab/lamina/pkg/geometry"
	"github.com/edalab/lamina/pkg/layout"
	"github.com/edalab/lamina/pkg/stackio"
	"github.com/edalab/lamina/pkg/stackup"
)

// Server serves the lamina HTTP API. The zero value is not usable; use
// NewServer.
type Server struct {
	store   layout.Store
	stackup *stackup.Stackup
	engine  *cutout.Engine
	logger  *log.Logger
	router  chi.Router
}

// NewServer builds a server around the given store, stackup and cutout
// engine. A nil logger falls back to log.Default().
func NewServer(store layout.Store, stk *stackup.Stackup, engine *cutout.Engine, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	s := &Server{store: store, stackup: stk, engine: engine, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/stackup", func(r chi.Router) {
			r.Get("/", s.handleStackupGet)
			r.Put("/", s.handleStackupPut)
			r.Get("/export", s.handleStackupExport)
			r.Post("/flip", s.handleStackupFlip)
		})
		r.Route("/cells", func(r chi.Router) {
			r.Get("/", s.handleCellList)
			r.Get("/{name}", s.handleCellGet)
			r.Delete("/{name}", s.handleCellDelete)
			r.Post("/{name}/cutout", s.handleCutout)
		})
	})
	return r
}

// logRequests logs one line per request with status and duration.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildinfo.Version,
	})
}

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps a structured error code onto an HTTP status.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeCellNotFound, errors.ErrCodeLayerNotFound, errors.ErrCodeNetNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeDuplicateName, errors.ErrCodeInvalidLayer, errors.ErrCodeInvalidMode,
		errors.ErrCodeInvalidExtentType, errors.ErrCodeInvalidFormat, errors.ErrCodeExtentEmpty:
		status = http.StatusBadRequest
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: errors.UserMessage(err)})
}

// =============================================================================
// Stackup handlers
// =============================================================================

func (s *Server) handleStackupGet(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := stackio.WriteJSON(s.stackup, w, stackio.JSONOptions{}); err != nil {
		s.logger.Error("stackup encode failed", "err", err)
	}
}

func (s *Server) handleStackupPut(w http.ResponseWriter, r *http.Request) {
	if err := stackio.ReadJSON(s.stackup, r.Body); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"layers": len(s.stackup.StackupLayers())})
}

func (s *Server) handleStackupExport(w http.ResponseWriter, r *http.Request) {
	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		s.handleStackupGet(w, r)
	case "csv":
		w.Header().Set("Content-Type", "text/csv")
		if err := stackio.WriteCSV(s.stackup, w); err != nil {
			s.logger.Error("stackup csv export failed", "err", err)
		}
	case "xml", "control":
		w.Header().Set("Content-Type", "application/xml")
		if err := stackio.WriteControlFile(s.stackup, w); err != nil {
			s.logger.Error("stackup control export failed", "err", err)
		}
	default:
		s.writeError(w, errors.New(errors.ErrCodeInvalidFormat, "unknown export format "+format))
	}
}

// flipRequest optionally names a stored cell to transform along with the
// stackup.
type flipRequest struct {
	Cell string `json:"cell,omitempty"`
}

func (s *Server) handleStackupFlip(w http.ResponseWriter, r *http.Request) {
	var req flipRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidFormat, "decode flip request"))
			return
		}
	}

	var cell *layout.Cell
	if req.Cell != "" {
		var err error
		cell, err = s.store.Load(r.Context(), req.Cell)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}

	if err := s.stackup.FlipDesign(cell); err != nil {
		s.writeError(w, err)
		return
	}
	if cell != nil {
		if err := s.store.Save(r.Context(), cell); err != nil {
			s.writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "flipped"})
}

// =============================================================================
// Cell handlers
// =============================================================================

func (s *Server) handleCellList(w http.ResponseWriter, r *http.Request) {
	names, err := s.store.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"cells": names})
}

type cellSummary struct {
	Name       string   `json:"name"`
	Nets       []string `json:"nets"`
	Layers     []string `json:"layers"`
	Primitives int      `json:"primitives"`
	Padstacks  int      `json:"padstacks"`
	Components int      `json:"components"`
}

func (s *Server) handleCellGet(w http.ResponseWriter, r *http.Request) {
	cell, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cellSummary{
		Name:       cell.Name,
		Nets:       cell.NetNames(),
		Layers:     cell.LayerNames(),
		Primitives: len(cell.Primitives()),
		Padstacks:  len(cell.PadstackInstances()),
		Components: len(cell.Components()),
	})
}

func (s *Server) handleCellDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(r.Context(), chi.URLParam(r, "name")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Cutout handler
// =============================================================================

// cutoutRequest maps onto cutout.Options; omitted fields take the engine
// defaults.
type cutoutRequest struct {
	SignalNets         []string     `json:"signal_nets"`
	ReferenceNets      []string     `json:"reference_nets,omitempty"`
	ExtentType         string       `json:"extent_type,omitempty"`
	ExpansionSize      *float64     `json:"expansion_size,omitempty"`
	RoundCorners       bool         `json:"round_corners,omitempty"`
	DefeatureSize      float64      `json:"defeature_size,omitempty"`
	OutputCell         string       `json:"output_cell,omitempty"`
	Workers            int          `json:"workers,omitempty"`
	CustomExtent       [][2]float64 `json:"custom_extent,omitempty"`
	CustomExtentUnits  string       `json:"custom_extent_units,omitempty"`
	IncludePartial     bool         `json:"include_partial,omitempty"`
	KeepVoids          *bool        `json:"keep_voids,omitempty"`
	RemoveSinglePinRLC bool         `json:"remove_single_pin_rlc,omitempty"`
}

type cutoutResponse struct {
	Cell  string       `json:"cell"`
	Nets  []string     `json:"nets"`
	Stats cutout.Stats `json:"stats"`
}

func (s *Server) handleCutout(w http.ResponseWriter, r *http.Request) {
	var req cutoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(err, errors.ErrCodeInvalidFormat, "decode cutout request"))
		return
	}

	cell, err := s.store.Load(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	opts := cutout.Options{
		SignalNets:         req.SignalNets,
		ReferenceNets:      req.ReferenceNets,
		ExpansionSize:      req.ExpansionSize,
		RoundCorners:       req.RoundCorners,
		DefeatureSize:      req.DefeatureSize,
		OutputCell:         req.OutputCell,
		Workers:            req.Workers,
		CustomExtentUnits:  req.CustomExtentUnits,
		IncludePartial:     req.IncludePartial,
		KeepVoids:          req.KeepVoids,
		RemoveSinglePinRLC: req.RemoveSinglePinRLC,
	}
	if req.ExtentType != "" {
		et, err := cutout.ParseExtentType(req.ExtentType)
		if err != nil {
			s.writeError(w, err)
			return
		}
		opts.ExtentType = et
	}
	for _, pt := range req.CustomExtent {
		opts.CustomExtent = append(opts.CustomExtent, geometryPt(pt))
	}

	res, err := s.engine.Run(r.Context(), cell, opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// In-place runs mutate the stored cell; persist the result either way.
	if opts.OutputCell == "" {
		if err := s.store.Save(r.Context(), res.Cell); err != nil {
			s.writeError(w, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, cutoutResponse{
		Cell:  res.Cell.Name,
		Nets:  res.Cell.NetNames(),
		Stats: res.Stats,
	})
}

func geometryPt(p [2]float64) geometry.Point { return geometry.Pt(p[0], p[1]) }
