// Package httpapi exposes header association and workbook inspection over
// HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/osmaviation/spreadsheet/pkg/spreadsheet"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/headers"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/output"
	"github.com/osmaviation/spreadsheet/pkg/spreadsheet/storage"
	"github.com/xuri/excelize/v2"
)

// Factory returns a Service for a single request.
type Factory func() *spreadsheet.Service

// Server routes requests to a fresh Service each.
type Server struct {
	newService Factory
	maxUpload  int64
	log        *zap.Logger
	router     *chi.Mux
}

// New builds the router. Uploads larger than maxUpload bytes are rejected.
func New(newService Factory, maxUpload int64, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		newService: newService,
		maxUpload:  maxUpload,
		log:        log,
		router:     chi.NewRouter(),
	}
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	s.router.Route("/v1", func(r chi.Router) {
		r.Post("/associate", s.handleAssociateUpload)
		r.Get("/disks/{disk}/associate/*", s.handleAssociateStored)
		r.Get("/disks/{disk}/inspect/*", s.handleInspect)
	})
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

// handleAssociateUpload associates the rows of an uploaded workbook.
func (s *Server) handleAssociateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(s.maxUpload); err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("file too large or invalid form"))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, errors.New("no file provided"))
		return
	}
	defer file.Close()

	reader, err := spreadsheet.OpenReader(header.Filename, file)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer reader.Close()

	svc := s.newService()
	defer svc.Close()
	result, err := associate(r.Context(), svc, reader, r.URL.Query().Get("sheet"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, result)
}

// handleAssociateStored associates the rows of a workbook already on a disk.
func (s *Server) handleAssociateStored(w http.ResponseWriter, r *http.Request) {
	disk, filename := chi.URLParam(r, "disk"), chi.URLParam(r, "*")
	svc := s.newService()
	defer svc.Close()

	var result headers.Result[string]
	err := svc.ReadFrom(r.Context(), disk, filename, func(reader spreadsheet.Reader) error {
		var err error
		result, err = associate(r.Context(), svc, reader, r.URL.Query().Get("sheet"))
		return err
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, result)
}

// handleInspect returns the structured extraction of a stored workbook.
func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	disk, filename := chi.URLParam(r, "disk"), chi.URLParam(r, "*")
	opts := spreadsheet.DefaultExtractOptions()
	if raw := r.URL.Query().Get("mode"); raw != "" {
		mode, ok := spreadsheet.ParseMode(raw)
		if !ok {
			s.writeError(w, r, http.StatusBadRequest, errors.New("invalid mode: "+raw))
			return
		}
		opts.Mode = mode
	}

	svc := s.newService()
	defer svc.Close()
	wb, err := svc.Extract(r.Context(), disk, filename, opts)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, wb)
}

func associate(ctx context.Context, svc *spreadsheet.Service, reader spreadsheet.Reader, sheet string) (headers.Result[string], error) {
	if sheet == "" {
		sheet = spreadsheet.FirstSheet(reader)
	}
	rows, err := reader.Rows(sheet)
	if err != nil {
		return headers.Result[string]{}, err
	}
	return svc.Associate(ctx, rows), nil
}

// fail maps service errors onto status codes.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	var missingSheet excelize.ErrSheetNotExist
	switch {
	case errors.Is(err, storage.ErrUnknownDisk), errors.Is(err, storage.ErrNotExist), errors.As(err, &missingSheet):
		s.writeError(w, r, http.StatusNotFound, err)
	case errors.Is(err, spreadsheet.ErrUnsupportedFormat):
		s.writeError(w, r, http.StatusBadRequest, err)
	default:
		s.writeError(w, r, http.StatusInternalServerError, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.log.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = output.WriteJSON(w, map[string]string{"error": err.Error()}, false)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := output.ToJSON(v, false)
	if err != nil {
		s.writeError(w, r, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}
