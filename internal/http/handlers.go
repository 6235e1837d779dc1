package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/daymate/daymate/internal/lifecycle"
	"github.com/daymate/daymate/internal/models"
	"github.com/daymate/daymate/internal/news"
	"github.com/daymate/daymate/internal/service"
	"github.com/daymate/daymate/internal/weather"
)

// maxBodyBytes caps request bodies on the POST endpoints.
const maxBodyBytes = 1 << 20

// aggregator is the subset of *service.Aggregator the handlers use.
type aggregator interface {
	Plan(ctx context.Context, req models.PlanRequest) (*models.PlanResponse, error)
	Chat(ctx context.Context, req models.ChatRequest) models.ChatResponse
}

// weatherLookup serves the standalone weather endpoint.
type weatherLookup interface {
	ByCity(ctx context.Context, city string) weather.Result
}

// newsLookup serves the standalone news endpoint.
type newsLookup interface {
	Lookup(ctx context.Context, city string) news.Result
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	aggregator aggregator
	weather    weatherLookup
	news       newsLookup
	logger     *zap.Logger
}

// NewHandler returns a new Handler.
func NewHandler(agg aggregator, w weatherLookup, n newsLookup, logger *zap.Logger) *Handler {
	return &Handler{
		aggregator: agg,
		weather:    w,
		news:       n,
		logger:     logger,
	}
}

// PostPlan handles POST /api/plan.
func (h *Handler) PostPlan(w http.ResponseWriter, r *http.Request) {
	var req models.PlanRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}

	resp, err := h.aggregator.Plan(r.Context(), req)
	if err != nil {
		if errors.Is(err, service.ErrInvalidRequest) {
			writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", strings.TrimPrefix(err.Error(), service.ErrInvalidRequest.Error()+": "))
			return
		}
		if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
			logger.Error("plan request failed", zap.Error(err))
		}
		writeError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to build plan")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PostChat handles POST /api/chat.
func (h *Handler) PostChat(w http.ResponseWriter, r *http.Request) {
	var req models.ChatRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be valid JSON")
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_REQUEST", "message is required")
		return
	}

	resp := h.aggregator.Chat(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}

// GetWeather handles GET /api/weather/{city}. Unlike the aggregate endpoint,
// a failed lookup here is a client-visible error rather than degraded content.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(mux.Vars(r)["city"])
	if city == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", "city is required")
		return
	}

	result := h.weather.ByCity(r.Context(), city)
	if !result.OK() {
		writeError(w, r, http.StatusBadRequest, "WEATHER_UNAVAILABLE", result.Err.Message)
		return
	}
	writeJSON(w, http.StatusOK, result.Reading)
}

// GetNews handles GET /api/news/{city}. Always 200: the lookup substitutes
// placeholder articles when the provider fails.
func (h *Handler) GetNews(w http.ResponseWriter, r *http.Request) {
	city := strings.TrimSpace(mux.Vars(r)["city"])
	if city == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_CITY", "city is required")
		return
	}

	result := h.news.Lookup(r.Context(), city)
	resp := map[string]interface{}{
		"articles": result.Articles,
		"city":     city,
	}
	if result.Err != nil {
		resp["error"] = result.Err
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetHealth handles GET /health and GET /.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if lifecycle.IsShuttingDown() {
		writeJSON(w, http.StatusServiceUnavailable, models.HealthResponse{
			Status:  "shutting-down",
			Message: "DayMate API is shutting down",
		})
		return
	}
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "healthy",
		Message: "DayMate API is running",
	})
}

// decodeBody decodes a JSON request body into v with a size cap.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

// writeJSON writes a JSON response with the specified HTTP status code.
// Sets Content-Type header to application/json and encodes the provided value.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes an error response in the standard error format with code, message,
// and requestId (correlation ID) if available in request context.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	corrID := ""
	if v := r.Context().Value("correlation_id"); v != nil {
		corrID = v.(string)
	}
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]string{
			"code":      code,
			"message":   message,
			"requestId": corrID,
		},
	})
}
