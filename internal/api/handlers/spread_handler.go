package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"bondspread/internal/models"
	"bondspread/internal/service"
)

// SpreadHandler обрабатывает HTTP запросы для истории спредов.
//
// Endpoints:
// - GET  /api/v1/spreads/{long}/{short}            - серия наблюдений
// - POST /api/v1/spreads/{long}/{short}            - записать наблюдение
// - GET  /api/v1/spreads/{long}/{short}/stats      - оконная статистика
// - GET  /api/v1/spreads/{long}/{short}/anomalies  - выбросы спреда
type SpreadHandler struct {
	analyticsService service.AnalyticsServiceInterface
}

// NewSpreadHandler создает новый SpreadHandler с внедрением зависимостей
func NewSpreadHandler(analyticsService service.AnalyticsServiceInterface) *SpreadHandler {
	return &SpreadHandler{
		analyticsService: analyticsService,
	}
}

// GetSeries возвращает наблюдения спреда пары за интервал.
//
// GET /api/v1/spreads/{long}/{short}?from=2025-01-01T00:00:00Z&to=...
//
// Без параметров берется окно lookback из конфигурации
func (h *SpreadHandler) GetSeries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.analyticsService == nil {
		writeError(w, http.StatusInternalServerError, "analytics service not initialized", "")
		return
	}

	pair, err := pairFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair", err.Error())
		return
	}

	from, err := parseTimeParam(r, "from")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from parameter", err.Error())
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to parameter", err.Error())
		return
	}

	series, err := h.analyticsService.GetSpreadSeries(pair.Key(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load spread series", err.Error())
		return
	}

	if series == nil {
		series = []models.SpreadObservation{}
	}

	writeJSON(w, http.StatusOK, series)
}

// RecordObservation записывает свежее наблюдение спреда по доходностям ног.
//
// POST /api/v1/spreads/{long}/{short}
//
// Request body:
//
//	{
//	  "ytm_long": 16.42,
//	  "ytm_short": 16.00,
//	  "timestamp": "2025-02-27T12:00:00Z"  // опционально, default now
//	}
//
// Response 201 Created: сохраненное наблюдение со спредом в б.п.
func (h *SpreadHandler) RecordObservation(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.analyticsService == nil {
		writeError(w, http.StatusInternalServerError, "analytics service not initialized", "")
		return
	}

	pair, err := pairFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair", err.Error())
		return
	}

	var req struct {
		YTMLong   float64   `json:"ytm_long"`
		YTMShort  float64   `json:"ytm_short"`
		Timestamp time.Time `json:"timestamp,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.YTMLong <= 0 || req.YTMShort <= 0 {
		writeError(w, http.StatusBadRequest, "yields must be positive", "")
		return
	}

	obs, err := h.analyticsService.RecordObservation(pair, req.YTMLong, req.YTMShort, req.Timestamp)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to record observation", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, obs)
}

// GetStats возвращает оконную статистику спреда пары.
//
// GET /api/v1/spreads/{long}/{short}/stats?lookback=252
//
// Response 200 OK:
//
//	{
//	  "pair_name": "SU26207RMFS9_SU26212RMFS9",
//	  "current_spread_bp": 42.0,
//	  "mean_bp": 38.5,
//	  "std_bp": 6.2,
//	  "z_score": 0.56,
//	  "percentile_rank": 68.0,
//	  ...
//	}
//
// Response 404 Not Found: у пары нет наблюдений
func (h *SpreadHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.analyticsService == nil {
		writeError(w, http.StatusInternalServerError, "analytics service not initialized", "")
		return
	}

	pair, err := pairFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair", err.Error())
		return
	}

	lookback := 0
	if lookbackStr := r.URL.Query().Get("lookback"); lookbackStr != "" {
		parsed, err := strconv.Atoi(lookbackStr)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid lookback parameter", lookbackStr)
			return
		}
		lookback = parsed
	}

	stats, err := h.analyticsService.GetSpreadStats(pair.Key(), lookback)
	if err != nil {
		if errors.Is(err, service.ErrNoObservations) {
			writeError(w, http.StatusNotFound, "no observations for pair", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to compute spread stats", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// GetAnomalies возвращает наблюдения, помеченные детектором выбросов.
//
// GET /api/v1/spreads/{long}/{short}/anomalies?threshold=2.0
func (h *SpreadHandler) GetAnomalies(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.analyticsService == nil {
		writeError(w, http.StatusInternalServerError, "analytics service not initialized", "")
		return
	}

	pair, err := pairFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair", err.Error())
		return
	}

	threshold := 0.0
	if thresholdStr := r.URL.Query().Get("threshold"); thresholdStr != "" {
		parsed, err := strconv.ParseFloat(thresholdStr, 64)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid threshold parameter", thresholdStr)
			return
		}
		threshold = parsed
	}

	anomalies, err := h.analyticsService.GetAnomalies(pair.Key(), threshold)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to detect anomalies", err.Error())
		return
	}

	if anomalies == nil {
		anomalies = []models.SpreadObservation{}
	}

	writeJSON(w, http.StatusOK, anomalies)
}

// parseTimeParam разбирает опциональный RFC3339 query-параметр.
// Отсутствующий параметр - нулевое время (сервис подставит окно по умолчанию)
func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}
