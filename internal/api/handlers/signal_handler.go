package handlers

import (
	"net/http"
	"strconv"

	"bondspread/internal/models"
	"bondspread/internal/service"
	"bondspread/pkg/utils"
)

// SignalHandler обрабатывает HTTP запросы для торговых сигналов.
//
// Endpoints:
// - POST /api/v1/signals/{long}/{short}  - пересчитать сигнал по паре
// - GET  /api/v1/signals/active          - активные (неистёкшие) сигналы
// - GET  /api/v1/signals/recent          - последние сигналы пары
type SignalHandler struct {
	analyticsService service.AnalyticsServiceInterface
}

// NewSignalHandler создает новый SignalHandler с внедрением зависимостей
func NewSignalHandler(analyticsService service.AnalyticsServiceInterface) *SignalHandler {
	return &SignalHandler{
		analyticsService: analyticsService,
	}
}

// EvaluateSignal пересчитывает сигнал по паре: загружает историю спредов,
// классифицирует, сохраняет и рассылает подписчикам.
//
// POST /api/v1/signals/{long}/{short}
//
// Response 201 Created: сгенерированный сигнал (NO_DATA при короткой
// истории - это тоже валидный результат, не ошибка)
func (h *SignalHandler) EvaluateSignal(w http.ResponseWriter, r *http.Request) {
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

	signal, err := h.analyticsService.EvaluatePair(pair)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to evaluate pair", err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, signal)
}

// GetActive возвращает сигналы, действующие на текущий момент.
//
// GET /api/v1/signals/active
func (h *SignalHandler) GetActive(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.analyticsService == nil {
		writeError(w, http.StatusInternalServerError, "analytics service not initialized", "")
		return
	}

	signals, err := h.analyticsService.ActiveSignals()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load active signals", err.Error())
		return
	}

	if signals == nil {
		signals = []models.TradingSignal{}
	}

	writeJSON(w, http.StatusOK, signals)
}

// GetRecent возвращает последние сигналы пары, свежие первыми.
//
// GET /api/v1/signals/recent?pair=SU26207RMFS9_SU26212RMFS9&limit=20
//
// Query Parameters:
// - pair (required): каноническое имя пары "<long>_<short>"
// - limit (optional): количество сигналов (по умолчанию 20, максимум 100)
func (h *SignalHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.analyticsService == nil {
		writeError(w, http.StatusInternalServerError, "analytics service not initialized", "")
		return
	}

	pairName := r.URL.Query().Get("pair")
	if err := utils.ValidatePairName(pairName); err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair parameter", err.Error())
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 100 {
				limit = 100
			}
		}
	}

	signals, err := h.analyticsService.RecentSignals(pairName, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load recent signals", err.Error())
		return
	}

	if signals == nil {
		signals = []models.TradingSignal{}
	}

	writeJSON(w, http.StatusOK, signals)
}
