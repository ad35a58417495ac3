package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"bondspread/internal/models"
)

func TestEvaluateSignalEndpoint(t *testing.T) {
	t.Run("returns generated signal", func(t *testing.T) {
		svc := NewMockAnalyticsService()
		svc.SetSignal(&models.TradingSignal{
			PairName:   "SU26207RMFS9_SU26212RMFS9",
			SignalType: models.SignalStrongBuy,
			Direction:  models.DirectionLongShort,
			Confidence: 1.0,
			SpreadBP:   40,
			Timestamp:  time.Now().UTC(),
		})
		handler := NewSignalHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/signals/SU26207RMFS9/SU26212RMFS9", nil)
		req = mux.SetURLVars(req, testPairVars)
		rr := httptest.NewRecorder()
		handler.EvaluateSignal(rr, req)

		if rr.Code != http.StatusCreated {
			t.Errorf("expected status %d, got %d", http.StatusCreated, rr.Code)
		}

		var signal models.TradingSignal
		if err := json.NewDecoder(rr.Body).Decode(&signal); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if signal.SignalType != models.SignalStrongBuy {
			t.Errorf("expected STRONG_BUY, got %s", signal.SignalType)
		}
	})

	t.Run("invalid pair returns 400", func(t *testing.T) {
		handler := NewSignalHandler(NewMockAnalyticsService())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/signals/bad/SU26212RMFS9", nil)
		req = mux.SetURLVars(req, map[string]string{"long": "bad", "short": "SU26212RMFS9"})
		rr := httptest.NewRecorder()
		handler.EvaluateSignal(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
		}
	})

	t.Run("service error returns 500", func(t *testing.T) {
		svc := NewMockAnalyticsService()
		svc.SetError("evaluate", ErrMockDatabase)
		handler := NewSignalHandler(svc)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/signals/SU26207RMFS9/SU26212RMFS9", nil)
		req = mux.SetURLVars(req, testPairVars)
		rr := httptest.NewRecorder()
		handler.EvaluateSignal(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
		}
	})

	t.Run("nil service returns 500", func(t *testing.T) {
		handler := NewSignalHandler(nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/signals/SU26207RMFS9/SU26212RMFS9", nil)
		req = mux.SetURLVars(req, testPairVars)
		rr := httptest.NewRecorder()
		handler.EvaluateSignal(rr, req)

		if rr.Code != http.StatusInternalServerError {
			t.Errorf("expected status %d, got %d", http.StatusInternalServerError, rr.Code)
		}
	})
}

func TestGetActiveSignals(t *testing.T) {
	t.Run("returns active signals", func(t *testing.T) {
		svc := NewMockAnalyticsService()
		svc.SetActive([]models.TradingSignal{
			{PairName: "SU26207RMFS9_SU26212RMFS9", SignalType: models.SignalBuy},
		})
		handler := NewSignalHandler(svc)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/active", nil)
		rr := httptest.NewRecorder()
		handler.GetActive(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
		}

		var signals []models.TradingSignal
		if err := json.NewDecoder(rr.Body).Decode(&signals); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(signals) != 1 {
			t.Errorf("expected 1 signal, got %d", len(signals))
		}
	})

	t.Run("empty returns empty array not null", func(t *testing.T) {
		handler := NewSignalHandler(NewMockAnalyticsService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/active", nil)
		rr := httptest.NewRecorder()
		handler.GetActive(rr, req)

		if body := rr.Body.String(); body != "[]\n" {
			t.Errorf("expected empty array, got %q", body)
		}
	})
}

func TestGetRecentSignals(t *testing.T) {
	t.Run("respects limit", func(t *testing.T) {
		svc := NewMockAnalyticsService()
		svc.SetRecent([]models.TradingSignal{
			{ID: 3, SignalType: models.SignalNeutral},
			{ID: 2, SignalType: models.SignalBuy},
			{ID: 1, SignalType: models.SignalStrongBuy},
		})
		handler := NewSignalHandler(svc)

		req := httptest.NewRequest(http.MethodGet,
			"/api/v1/signals/recent?pair=SU26207RMFS9_SU26212RMFS9&limit=2", nil)
		rr := httptest.NewRecorder()
		handler.GetRecent(rr, req)

		if rr.Code != http.StatusOK {
			t.Errorf("expected status %d, got %d", http.StatusOK, rr.Code)
		}

		var signals []models.TradingSignal
		if err := json.NewDecoder(rr.Body).Decode(&signals); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(signals) != 2 {
			t.Errorf("expected 2 signals, got %d", len(signals))
		}
		if signals[0].ID != 3 {
			t.Errorf("expected newest signal first, got ID %d", signals[0].ID)
		}
	})

	t.Run("missing pair returns 400", func(t *testing.T) {
		handler := NewSignalHandler(NewMockAnalyticsService())

		req := httptest.NewRequest(http.MethodGet, "/api/v1/signals/recent", nil)
		rr := httptest.NewRecorder()
		handler.GetRecent(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
		}
	})
}
