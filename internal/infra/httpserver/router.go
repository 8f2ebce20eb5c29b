package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	appanalyses "github.com/pawankonwar/imagesight/internal/application/analyses"
	domain "github.com/pawankonwar/imagesight/internal/domain/analyses"
	"github.com/pawankonwar/imagesight/internal/middleware"
)

// Options configures the HTTP surface.
type Options struct {
	CORSOrigin string
	APIKey     string
	Health     http.HandlerFunc
}

type Router struct {
	svc *appanalyses.Service
}

func NewRouter(svc *appanalyses.Service, opts Options) http.Handler {
	r := &Router{svc: svc}
	mux := chi.NewRouter()

	origin := opts.CORSOrigin
	if origin == "" {
		origin = "*"
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{origin},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(60, 10))
	if opts.APIKey != "" {
		mux.Use(middleware.APIKeyAuth(opts.APIKey))
	}

	if opts.Health != nil {
		mux.Get("/health", opts.Health)
	} else {
		mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("ok"))
		})
	}
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Route("/api", func(rt chi.Router) {
		rt.Post("/upload", r.wrap(r.handleUpload))
		rt.Post("/analyze", r.wrap(r.handleAnalyzeInline))
		rt.Get("/history", r.wrap(r.handleHistory))
		rt.Get("/history/{id}", r.wrap(r.handleGet))
		rt.Delete("/history/{id}", r.wrap(r.handleDelete))
		rt.Get("/faults", r.wrap(r.handleFaults))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeError(w, err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// statusFor maps the pipeline error taxonomy onto HTTP statuses: client
// faults 4xx, upstream (model) faults 502, everything else 500.
func statusFor(err error) int {
	var malformed *domain.MalformedAnalysisError
	var unavailable *domain.ModelUnavailableError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrEmptyModelResponse),
		errors.As(err, &malformed),
		errors.As(err, &unavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// POST /api/upload
// multipart form with an image in the "file" field; responds with the
// complete stored record.
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	req.Body = http.MaxBytesReader(w, req.Body, middleware.MaxUploadBytes)
	if err := req.ParseMultipartForm(middleware.MaxUploadBytes); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	file, header, err := req.FormFile("file")
	if err != nil {
		return fmt.Errorf("%w: no file uploaded", domain.ErrInvalidInput)
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if err := middleware.ValidateImageContentType(contentType); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	if err := middleware.ValidateImageSize(header.Size); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	rec, err := r.svc.AnalyzeUpload(req.Context(), appanalyses.UploadCommand{
		Data:        data,
		ContentType: contentType,
		Ext:         middleware.ExtensionFor(contentType, header.Filename),
	})
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.IncrementAnalyses()
	return writeJSON(w, http.StatusOK, rec)
}

// POST /api/analyze
// Body: {"image_base64": "...", "mime_type": "image/jpeg"}; analyzes inline
// bytes without storing a blob.
func (r *Router) handleAnalyzeInline(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		Image       string `json:"image"`
		ImageBase64 string `json:"image_base64"`
		MimeType    string `json:"mime_type"`
	}
	req.Body = http.MaxBytesReader(w, req.Body, middleware.MaxUploadBytes)
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	encoded := body.Image
	if encoded == "" {
		encoded = body.ImageBase64
	}
	// tolerate full data: URLs in place of bare base64
	if i := strings.Index(encoded, ";base64,"); strings.HasPrefix(encoded, "data:") && i >= 0 {
		encoded = encoded[i+len(";base64,"):]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("%w: invalid base64 image", domain.ErrInvalidInput)
	}

	rec, err := r.svc.AnalyzeInline(req.Context(), data, body.MimeType)
	if err != nil {
		middleware.IncrementAnalysesFailed()
		return err
	}
	middleware.IncrementAnalyses()
	return writeJSON(w, http.StatusOK, rec)
}

// GET /api/history
func (r *Router) handleHistory(w http.ResponseWriter, req *http.Request) error {
	list, err := r.svc.History(req.Context())
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /api/history/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	id, err := parseID(req)
	if err != nil {
		return err
	}
	rec, err := r.svc.Get(req.Context(), id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, rec)
}

// DELETE /api/history/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	id, err := parseID(req)
	if err != nil {
		return err
	}
	if err := r.svc.Delete(req.Context(), id); err != nil {
		return err
	}
	middleware.IncrementDeletes()
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// GET /api/faults?limit=20
func (r *Router) handleFaults(w http.ResponseWriter, req *http.Request) error {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.svc.RecentFaults(req.Context(), limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func parseID(req *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: bad id", domain.ErrInvalidInput)
	}
	return id, nil
}
