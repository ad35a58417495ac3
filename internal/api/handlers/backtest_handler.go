package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"bondspread/internal/models"
	"bondspread/internal/quant"
	"bondspread/internal/repository"
	"bondspread/internal/service"
	"bondspread/pkg/utils"
)

// BacktestHandler обрабатывает HTTP запросы для бэктестов.
//
// Endpoints:
// - POST /api/v1/backtests/{long}/{short}  - прогон по одной паре
// - POST /api/v1/backtests                 - мультипарный прогон
// - GET  /api/v1/backtests/{id}            - сохраненный прогон с позициями
// - GET  /api/v1/backtests                 - последние прогоны
type BacktestHandler struct {
	backtestService service.BacktestServiceInterface

	// Базовая конфигурация симуляции из окружения;
	// body запроса переопределяет отдельные поля
	defaults quant.BacktestConfig
}

// NewBacktestHandler создает новый BacktestHandler с внедрением зависимостей
func NewBacktestHandler(backtestService service.BacktestServiceInterface, defaults quant.BacktestConfig) *BacktestHandler {
	return &BacktestHandler{
		backtestService: backtestService,
		defaults:        defaults,
	}
}

// backtestConfigRequest - переопределения конфигурации симуляции.
// Указатели отличают "не задано" от нуля; незаданные поля берут
// значения по умолчанию
type backtestConfigRequest struct {
	InitialCapital  *float64 `json:"initial_capital,omitempty"`
	PositionSizePct *float64 `json:"position_size_pct,omitempty"`
	CommissionRate  *float64 `json:"commission_rate,omitempty"`
	SpreadCostBP    *float64 `json:"spread_cost_bp,omitempty"`
	MaxHoldingDays  *int     `json:"max_holding_days,omitempty"`
	StopLossBP      *float64 `json:"stop_loss_bp,omitempty"`
	TakeProfitBP    *float64 `json:"take_profit_bp,omitempty"`
	MinHistoryDays  *int     `json:"min_history_days,omitempty"`
}

// apply накладывает переопределения на базовую конфигурацию
func (req backtestConfigRequest) apply(base quant.BacktestConfig) quant.BacktestConfig {
	config := base

	if req.InitialCapital != nil {
		config.InitialCapital = *req.InitialCapital
	}
	if req.PositionSizePct != nil {
		config.PositionSizePct = *req.PositionSizePct
	}
	if req.CommissionRate != nil {
		config.CommissionRate = *req.CommissionRate
	}
	if req.SpreadCostBP != nil {
		config.SpreadCostBP = *req.SpreadCostBP
	}
	if req.MaxHoldingDays != nil {
		config.MaxHoldingDays = *req.MaxHoldingDays
	}
	if req.StopLossBP != nil {
		config.StopLossBP = *req.StopLossBP
	}
	if req.TakeProfitBP != nil {
		config.TakeProfitBP = *req.TakeProfitBP
	}
	if req.MinHistoryDays != nil {
		config.MinHistoryDays = *req.MinHistoryDays
	}
	return config
}

// RunBacktest прогоняет бэктест по одной паре.
//
// POST /api/v1/backtests/{long}/{short}
//
// Request body (опционально, пустое тело - конфигурация по умолчанию):
//
//	{
//	  "initial_capital": 1000000,
//	  "stop_loss_bp": 20,
//	  "take_profit_bp": 30
//	}
//
// Response 201 Created: {"run_id": 7, "result": {...}}
// Response 400 Bad Request: невалидная конфигурация
// Response 404 Not Found: у пары нет наблюдений
func (h *BacktestHandler) RunBacktest(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.backtestService == nil {
		writeError(w, http.StatusInternalServerError, "backtest service not initialized", "")
		return
	}

	pair, err := pairFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid pair", err.Error())
		return
	}

	var req backtestConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	run, err := h.backtestService.RunPair(pair.Key(), req.apply(h.defaults))
	if err != nil {
		switch {
		case errors.Is(err, quant.ErrInvalidBacktestConfig):
			writeError(w, http.StatusBadRequest, "invalid backtest config", err.Error())
		case errors.Is(err, service.ErrNoObservations):
			writeError(w, http.StatusNotFound, "no observations for pair", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to run backtest", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// RunMultiPair прогоняет бэктест по нескольким парам параллельно.
//
// POST /api/v1/backtests
//
// Request body:
//
//	{
//	  "pairs": ["SU26207RMFS9_SU26212RMFS9", "SU26212RMFS9_SU26218RMFS6"],
//	  "config": {"stop_loss_bp": 25}
//	}
//
// Response 201 Created: результаты по парам плюс агрегированные метрики
func (h *BacktestHandler) RunMultiPair(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.backtestService == nil {
		writeError(w, http.StatusInternalServerError, "backtest service not initialized", "")
		return
	}

	var req struct {
		Pairs  []string              `json:"pairs"`
		Config backtestConfigRequest `json:"config"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if len(req.Pairs) == 0 {
		writeError(w, http.StatusBadRequest, "pairs list is empty", "")
		return
	}
	for _, pairName := range req.Pairs {
		if err := utils.ValidatePairName(pairName); err != nil {
			writeError(w, http.StatusBadRequest, "invalid pair name", pairName)
			return
		}
	}

	run, err := h.backtestService.RunMultiPair(req.Pairs, req.Config.apply(h.defaults))
	if err != nil {
		switch {
		case errors.Is(err, quant.ErrInvalidBacktestConfig):
			writeError(w, http.StatusBadRequest, "invalid backtest config", err.Error())
		case errors.Is(err, service.ErrNoObservations):
			writeError(w, http.StatusNotFound, "no observations for requested pairs", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to run multi-pair backtest", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, run)
}

// GetRun возвращает сохраненный прогон вместе с позициями.
//
// GET /api/v1/backtests/{id}
func (h *BacktestHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.backtestService == nil {
		writeError(w, http.StatusInternalServerError, "backtest service not initialized", "")
		return
	}

	idStr := mux.Vars(r)["id"]
	runID, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || runID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid run id", idStr)
		return
	}

	result, err := h.backtestService.GetRun(runID)
	if err != nil {
		if errors.Is(err, repository.ErrBacktestNotFound) {
			writeError(w, http.StatusNotFound, "backtest run not found", err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to load backtest run", err.Error())
		return
	}

	if result.Positions == nil {
		result.Positions = []models.Position{}
	}

	writeJSON(w, http.StatusOK, result)
}

// GetRecent возвращает последние прогоны.
//
// GET /api/v1/backtests?pair=SU26207RMFS9_SU26212RMFS9&limit=10
//
// Query Parameters:
// - pair (optional): фильтр по паре, пустой - по всем
// - limit (optional): количество прогонов (по умолчанию 10, максимум 50)
func (h *BacktestHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.backtestService == nil {
		writeError(w, http.StatusInternalServerError, "backtest service not initialized", "")
		return
	}

	pairName := r.URL.Query().Get("pair")
	if pairName != "" {
		if err := utils.ValidatePairName(pairName); err != nil {
			writeError(w, http.StatusBadRequest, "invalid pair parameter", err.Error())
			return
		}
	}

	limit := 10
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
			if limit > 50 {
				limit = 50
			}
		}
	}

	runs, err := h.backtestService.RecentRuns(pairName, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load recent runs", err.Error())
		return
	}

	if runs == nil {
		runs = []models.BacktestResult{}
	}

	writeJSON(w, http.StatusOK, runs)
}
