// Package httpapi exposes bulk search over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jask/contribsearch/internal/export"
	"github.com/jask/contribsearch/internal/service"
)

const maxBodyBytes = 1 << 20

// Searcher runs one bulk search.
type Searcher interface {
	BulkSearch(ctx context.Context, req service.BulkRequest) (*service.BulkResponse, error)
}

// Handler serves the search API.
type Handler struct {
	search       Searcher
	defaultLimit int
	logger       *slog.Logger
	validator    *validator.Validate
	gatherer     prometheus.Gatherer
}

// New creates a Handler. A nil gatherer leaves /metrics unrouted.
func New(search Searcher, defaultLimit int, logger *slog.Logger, gatherer prometheus.Gatherer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &Handler{
		search:       search,
		defaultLimit: defaultLimit,
		logger:       logger,
		validator:    validator.New(),
		gatherer:     gatherer,
	}
}

// Routes builds the router.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/", h.handleStatus)
	r.Post("/bulk_search", h.handleBulkSearch)
	r.Post("/bulk_search/export", h.handleExport)
	if h.gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

type bulkSearchRequest struct {
	Names []string `json:"names" validate:"required,min=1,max=1000,dive,required,max=200"`
	City  string   `json:"city" validate:"max=100"`
	Limit *int     `json:"limit" validate:"omitempty,min=1"`
}

type bulkSearchResponse struct {
	Summary []summaryJSON `json:"summary"`
	Results []matchJSON   `json:"results"`
}

// summaryJSON carries the total in dollars alongside the exact cents.
type summaryJSON struct {
	SearchTerm       string  `json:"search_term"`
	MatchesFound     int     `json:"matches_found"`
	TotalAmount      float64 `json:"total_amount"`
	TotalAmountCents int64   `json:"total_amount_cents"`
	Error            string  `json:"error,omitempty"`
}

func toSummaryJSON(s service.SearchSummary) summaryJSON {
	return summaryJSON{
		SearchTerm:       s.SearchTerm,
		MatchesFound:     s.MatchesFound,
		TotalAmount:      float64(s.TotalAmountCents) / 100,
		TotalAmountCents: s.TotalAmountCents,
		Error:            s.Error,
	}
}

type matchJSON struct {
	SearchTerm         string  `json:"search_term"`
	Tier               string  `json:"tier"`
	Score              float64 `json:"score"`
	TransactionID      string  `json:"transaction_id"`
	FilerTransactionID string  `json:"filer_transaction_id,omitempty"`
	CommitteeID        string  `json:"committee_id"`
	Name               string  `json:"name"`
	FirstName          string  `json:"first_name"`
	LastName           string  `json:"last_name"`
	City               string  `json:"city"`
	State              string  `json:"state"`
	Zip                string  `json:"zip,omitempty"`
	Employer           string  `json:"employer,omitempty"`
	Occupation         string  `json:"occupation,omitempty"`
	AmountCents        int64   `json:"amount_cents"`
	Date               *string `json:"date"`
	PersonKey          string  `json:"person_key"`
}

func toMatchJSON(m service.MatchResult) matchJSON {
	out := matchJSON{
		SearchTerm:         m.SearchTerm,
		Tier:               string(m.Tier),
		Score:              m.Score,
		TransactionID:      m.TransactionID,
		FilerTransactionID: m.FilerTransactionID,
		CommitteeID:        m.CommitteeID,
		Name:               m.NameRaw,
		FirstName:          m.FirstName,
		LastName:           m.LastName,
		City:               m.City,
		State:              m.State,
		Zip:                m.Zip,
		Employer:           m.Employer,
		Occupation:         m.Occupation,
		AmountCents:        m.AmountCents,
		PersonKey:          string(m.PersonKey),
	}
	if !m.Date.IsZero() {
		d := m.Date.Format(time.DateOnly)
		out.Date = &d
	}
	return out
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "running"})
}

func (h *Handler) handleBulkSearch(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.runSearch(w, r)
	if !ok {
		return
	}
	out := bulkSearchResponse{
		Summary: make([]summaryJSON, 0, len(resp.Summary)),
		Results: make([]matchJSON, 0, len(resp.Results)),
	}
	for _, s := range resp.Summary {
		out.Summary = append(out.Summary, toSummaryJSON(s))
	}
	for _, m := range resp.Results {
		out.Results = append(out.Results, toMatchJSON(m))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	resp, ok := h.runSearch(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="contribution_results.csv"`)
	w.WriteHeader(http.StatusOK)
	if err := export.WriteCSV(w, resp.ExportRows()); err != nil {
		h.logger.WarnContext(r.Context(), "write csv failed",
			"request_id", middleware.GetReqID(r.Context()),
			"error", err,
		)
	}
}

// runSearch decodes, validates and runs the request, writing an error
// response itself when it returns false.
func (h *Handler) runSearch(w http.ResponseWriter, r *http.Request) (*service.BulkResponse, bool) {
	ctx := r.Context()
	requestID := middleware.GetReqID(ctx)

	var req bulkSearchRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid bulk search body", "request_id", requestID, "error", err)
		writeError(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if err := h.validator.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return nil, false
	}

	limit := h.defaultLimit
	if req.Limit != nil {
		limit = *req.Limit
	}
	resp, err := h.search.BulkSearch(ctx, service.BulkRequest{
		Names: req.Names,
		City:  req.City,
		Limit: limit,
	})
	if err != nil {
		status, msg := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "bulk search failed", "request_id", requestID, "error", err)
		}
		writeError(w, status, msg)
		return nil, false
	}
	return resp, true
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrStorageUnavailable):
		return http.StatusServiceUnavailable, "storage unavailable"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "search timed out"
	case errors.Is(err, context.Canceled):
		// Client went away; the status is never read.
		return http.StatusServiceUnavailable, "request canceled"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return "invalid request"
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.InfoContext(r.Context(), "http request",
			"request_id", middleware.GetReqID(r.Context()),
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
