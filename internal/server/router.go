package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"riskcalc/internal/cache"
	"riskcalc/internal/composer"
	"riskcalc/internal/risk"
)

// maxBodySize bounds an assessment request body.
const maxBodySize = 1 << 16

// Engine is the part of the composer the API needs.
type Engine interface {
	Assess(ctx context.Context, model risk.ModelID, in *risk.RiskInput, opts composer.Options) (risk.RiskResult, error)
	History() []risk.RiskResult
	ClearHistory()
	ClearCache()
	CacheStats() cache.Stats
	Models() []composer.ModelInfo
}

// ApiV1Router manages routes for API version 1.
type ApiV1Router struct {
	engine Engine
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields []risk.FieldError `json:"fields,omitempty"`
}

// Mux returns a configured *http.ServeMux with registered handlers.
// Registers the following routes:
// - POST /api/v1/assessments/{model}: runs an assessment
// - GET /api/v1/history: lists past results, most recent first
// - DELETE /api/v1/history: clears the history
// - GET /api/v1/cache: cache statistics
// - DELETE /api/v1/cache: drops every cached result
// - GET /api/v1/models: supported models
func (ar *ApiV1Router) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/assessments/{model}", ar.assessHandler)
	mux.HandleFunc("GET /api/v1/history", ar.historyHandler)
	mux.HandleFunc("DELETE /api/v1/history", ar.clearHistoryHandler)
	mux.HandleFunc("GET /api/v1/cache", ar.cacheStatsHandler)
	mux.HandleFunc("DELETE /api/v1/cache", ar.clearCacheHandler)
	mux.HandleFunc("GET /api/v1/models", ar.modelsHandler)

	return mux
}

// assessHandler decodes a RiskInput and runs it through the engine.
// Query parameters cache and history switch the side effects off.
func (ar *ApiV1Router) assessHandler(w http.ResponseWriter, r *http.Request) {
	model, err := risk.ParseModel(r.PathValue("model"))
	if err != nil {
		slog.Warn("Unknown model requested", "model", r.PathValue("model"))
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	opts := composer.DefaultOptions()
	if opts.UseCache, err = queryBool(r, "cache", opts.UseCache); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if opts.PersistHistory, err = queryBool(r, "history", opts.PersistHistory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		slog.Warn("Unable to read assessment request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "unreadable body"})
		return
	}

	var in risk.RiskInput
	if err := json.Unmarshal(body, &in); err != nil {
		slog.Warn("Unable to unmarshal assessment request body", "error", err)
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed risk input"})
		return
	}

	result, err := ar.engine.Assess(r.Context(), model, &in, opts)
	var verr *risk.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, result)
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "invalid risk input", Fields: verr.Errors})
	case errors.Is(err, risk.ErrUnknownModel):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: risk.ErrCalculationFailed.Error()})
	}
}

func (ar *ApiV1Router) historyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ar.engine.History())
}

func (ar *ApiV1Router) clearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	ar.engine.ClearHistory()
	w.WriteHeader(http.StatusNoContent)
}

func (ar *ApiV1Router) cacheStatsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ar.engine.CacheStats())
}

func (ar *ApiV1Router) clearCacheHandler(w http.ResponseWriter, r *http.Request) {
	ar.engine.ClearCache()
	w.WriteHeader(http.StatusNoContent)
}

func (ar *ApiV1Router) modelsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ar.engine.Models())
}

func queryBool(r *http.Request, name string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback, errors.New("query parameter " + name + " must be a boolean")
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		slog.Warn("Unable to marshal response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// NewApiV1Router creates a new API v1 router over engine.
func NewApiV1Router(engine Engine) *ApiV1Router {
	return &ApiV1Router{engine: engine}
}
