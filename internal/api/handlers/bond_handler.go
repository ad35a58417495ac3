package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"bondspread/internal/models"
	"bondspread/internal/service"
)

// BondHandler обрабатывает HTTP запросы для справочника облигаций.
//
// Endpoints:
// - GET    /api/v1/bonds                  - список облигаций (?favorites=true)
// - POST   /api/v1/bonds                  - добавить облигацию
// - GET    /api/v1/bonds/{isin}           - облигация по ISIN
// - DELETE /api/v1/bonds/{isin}           - удалить облигацию
// - PUT    /api/v1/bonds/{isin}/favorite  - пометить/снять избранное
// - POST   /api/v1/bonds/{isin}/ytm       - оценить котировку (YTM, дюрации)
type BondHandler struct {
	bondService service.BondServiceInterface
}

// NewBondHandler создает новый BondHandler с внедрением зависимостей
func NewBondHandler(bondService service.BondServiceInterface) *BondHandler {
	return &BondHandler{
		bondService: bondService,
	}
}

// GetBonds возвращает список облигаций.
//
// GET /api/v1/bonds?favorites=true
func (h *BondHandler) GetBonds(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.bondService == nil {
		writeError(w, http.StatusInternalServerError, "bond service not initialized", "")
		return
	}

	favoritesOnly := r.URL.Query().Get("favorites") == "true"

	bonds, err := h.bondService.ListBonds(favoritesOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list bonds", err.Error())
		return
	}

	// Пустой список возвращается как [], а не null
	if bonds == nil {
		bonds = []*models.Bond{}
	}

	writeJSON(w, http.StatusOK, bonds)
}

// CreateBond добавляет облигацию в справочник.
//
// POST /api/v1/bonds
//
// Request body:
//
//	{
//	  "isin": "SU26207RMFS9",
//	  "name": "ОФЗ-ПД 26207",
//	  "coupon_rate": 8.15,
//	  "maturity_date": "2027-02-03T00:00:00Z"
//	}
//
// Response 201 Created: созданная облигация
// Response 400 Bad Request: невалидные параметры
// Response 409 Conflict: облигация уже существует
func (h *BondHandler) CreateBond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.bondService == nil {
		writeError(w, http.StatusInternalServerError, "bond service not initialized", "")
		return
	}

	var req service.CreateBondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	bond, err := h.bondService.CreateBond(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBondExists):
			writeError(w, http.StatusConflict, "bond already exists", err.Error())
		case errors.Is(err, models.ErrInvalidBond):
			writeError(w, http.StatusBadRequest, "invalid bond parameters", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to create bond", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusCreated, bond)
}

// GetBond возвращает облигацию по ISIN.
//
// GET /api/v1/bonds/{isin}
func (h *BondHandler) GetBond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.bondService == nil {
		writeError(w, http.StatusInternalServerError, "bond service not initialized", "")
		return
	}

	isin := mux.Vars(r)["isin"]

	bond, err := h.bondService.GetBond(isin)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBondNotFound):
			writeError(w, http.StatusNotFound, "bond not found", err.Error())
		case errors.Is(err, models.ErrInvalidBond):
			writeError(w, http.StatusBadRequest, "invalid isin", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to load bond", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, bond)
}

// DeleteBond удаляет облигацию по ISIN.
//
// DELETE /api/v1/bonds/{isin}
func (h *BondHandler) DeleteBond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.bondService == nil {
		writeError(w, http.StatusInternalServerError, "bond service not initialized", "")
		return
	}

	isin := mux.Vars(r)["isin"]

	if err := h.bondService.DeleteBond(isin); err != nil {
		switch {
		case errors.Is(err, service.ErrBondNotFound):
			writeError(w, http.StatusNotFound, "bond not found", err.Error())
		case errors.Is(err, models.ErrInvalidBond):
			writeError(w, http.StatusBadRequest, "invalid isin", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to delete bond", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "bond deleted"})
}

// SetFavorite помечает или снимает пометку избранной облигации.
//
// PUT /api/v1/bonds/{isin}/favorite
//
// Request body: {"favorite": true}
func (h *BondHandler) SetFavorite(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.bondService == nil {
		writeError(w, http.StatusInternalServerError, "bond service not initialized", "")
		return
	}

	isin := mux.Vars(r)["isin"]

	var req struct {
		Favorite bool `json:"favorite"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	if err := h.bondService.SetFavorite(isin, req.Favorite); err != nil {
		switch {
		case errors.Is(err, service.ErrBondNotFound):
			writeError(w, http.StatusNotFound, "bond not found", err.Error())
		case errors.Is(err, models.ErrInvalidBond):
			writeError(w, http.StatusBadRequest, "invalid isin", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to update favorite", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, SuccessResponse{Message: "favorite updated"})
}

// EvaluateYTM оценивает котировку облигации: доходность к погашению,
// дюрации, выпуклость и НКД.
//
// POST /api/v1/bonds/{isin}/ytm
//
// Request body:
//
//	{
//	  "price": 86.579,
//	  "settlement": "2025-02-27T00:00:00Z",  // опционально, default now
//	  "dirty_price": false                    // опционально
//	}
//
// Response 200 OK:
//
//	{
//	  "isin": "SU26207RMFS9",
//	  "price": 86.579,
//	  "ytm": 17.23,
//	  "duration": 1.78,
//	  "modified_duration": 1.64,
//	  "convexity": 4.12,
//	  "accrued_interest": 12.4
//	}
//
// Response 422 Unprocessable Entity: решатель не нашел корня
func (h *BondHandler) EvaluateYTM(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if h.bondService == nil {
		writeError(w, http.StatusInternalServerError, "bond service not initialized", "")
		return
	}

	isin := mux.Vars(r)["isin"]

	var req struct {
		Price      float64   `json:"price"`
		Settlement time.Time `json:"settlement,omitempty"`
		DirtyPrice bool      `json:"dirty_price,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}
	if req.Price <= 0 {
		writeError(w, http.StatusBadRequest, "price must be positive", "")
		return
	}

	eval, err := h.bondService.EvaluatePrice(isin, req.Price, req.Settlement, req.DirtyPrice)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBondNotFound):
			writeError(w, http.StatusNotFound, "bond not found", err.Error())
		case errors.Is(err, service.ErrCannotPrice):
			writeError(w, http.StatusUnprocessableEntity, "cannot price bond", err.Error())
		case errors.Is(err, models.ErrInvalidBond):
			writeError(w, http.StatusBadRequest, "invalid isin", err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "failed to evaluate bond", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, eval)
}
