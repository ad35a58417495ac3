package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"bondspread/internal/models"
	"bondspread/pkg/utils"
)

// ErrorResponse стандартный формат ответа об ошибке для всех API endpoints
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// SuccessResponse стандартный формат успешного ответа
type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// writeJSON пишет payload с указанным статусом.
// Content-Type уже установлен в начале каждого handler
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeError пишет стандартный ответ об ошибке
func writeError(w http.ResponseWriter, status int, message, details string) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// pairFromRequest собирает пару облигаций из path-параметров {long}/{short}.
// Оба ISIN валидируются, пара нормализуется к верхнему регистру
func pairFromRequest(r *http.Request) (models.BondPair, error) {
	vars := mux.Vars(r)

	long := vars["long"]
	short := vars["short"]

	if err := utils.ValidateISIN(long); err != nil {
		return models.BondPair{}, err
	}
	if err := utils.ValidateISIN(short); err != nil {
		return models.BondPair{}, err
	}

	return models.BondPair{
		BondLong:  normalizeISIN(long),
		BondShort: normalizeISIN(short),
	}, nil
}

// normalizeISIN приводит ISIN из URL к канонической форме хранения
func normalizeISIN(isin string) string {
	return strings.ToUpper(strings.TrimSpace(isin))
}
