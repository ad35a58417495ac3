package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bondspread/internal/api/handlers"
	"bondspread/internal/api/middleware"
	"bondspread/internal/quant"
	"bondspread/internal/service"
	"bondspread/internal/websocket"
)

// Dependencies содержит все зависимости для API handlers
type Dependencies struct {
	BondService      service.BondServiceInterface
	AnalyticsService service.AnalyticsServiceInterface
	BacktestService  service.BacktestServiceInterface

	// Базовая конфигурация симуляции; запросы переопределяют поля
	BacktestDefaults quant.BacktestConfig

	Hub    *websocket.Hub
	Logger *zap.Logger

	// bcrypt-хеш токена для изменяющих запросов; пустой - без auth
	APITokenHash string
}

// SetupRoutes настраивает все HTTP маршруты приложения.
//
// Структура маршрутов:
//
// /api/v1/
//
//	├── /bonds/
//	│   ├── GET    /                 - список облигаций (?favorites=true)
//	│   ├── POST   /                 - добавить облигацию
//	│   ├── GET    /{isin}           - облигация по ISIN
//	│   ├── DELETE /{isin}           - удалить облигацию
//	│   ├── PUT    /{isin}/favorite  - пометить избранное
//	│   └── POST   /{isin}/ytm       - оценить котировку
//	├── /spreads/
//	│   ├── GET  /{long}/{short}            - серия наблюдений
//	│   ├── POST /{long}/{short}            - записать наблюдение
//	│   ├── GET  /{long}/{short}/stats      - оконная статистика
//	│   └── GET  /{long}/{short}/anomalies  - выбросы
//	├── /signals/
//	│   ├── POST /{long}/{short}  - пересчитать сигнал
//	│   ├── GET  /active          - активные сигналы
//	│   └── GET  /recent          - последние сигналы пары
//	└── /backtests/
//	    ├── POST /{long}/{short}  - прогон по паре
//	    ├── POST /                - мультипарный прогон
//	    ├── GET  /{id}            - сохраненный прогон
//	    └── GET  /                - последние прогоны
//
// /ws/stream  - WebSocket для real-time обновлений
// /health     - проверка живости
// /metrics    - Prometheus метрики
//
// Middleware применяется в следующем порядке:
// 1. Recovery (для всех маршрутов)
// 2. Logging (для всех маршрутов)
// 3. CORS (для всех маршрутов)
// 4. RequireToken (только /api/v1, только изменяющие методы)
func SetupRoutes(deps *Dependencies) *mux.Router {
	router := mux.NewRouter()

	var logger *zap.Logger
	if deps != nil {
		logger = deps.Logger
	}

	// Глобальные middleware (применяются ко всем маршрутам)
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logging(logger))
	router.Use(middleware.CORS)

	// Создание handlers с внедрением зависимостей
	var bondHandler *handlers.BondHandler
	if deps != nil && deps.BondService != nil {
		bondHandler = handlers.NewBondHandler(deps.BondService)
	}

	var spreadHandler *handlers.SpreadHandler
	var signalHandler *handlers.SignalHandler
	if deps != nil && deps.AnalyticsService != nil {
		spreadHandler = handlers.NewSpreadHandler(deps.AnalyticsService)
		signalHandler = handlers.NewSignalHandler(deps.AnalyticsService)
	}

	var backtestHandler *handlers.BacktestHandler
	if deps != nil && deps.BacktestService != nil {
		backtestHandler = handlers.NewBacktestHandler(deps.BacktestService, deps.BacktestDefaults)
	}

	// API v1 routes
	api := router.PathPrefix("/api/v1").Subrouter()

	if deps != nil {
		api.Use(middleware.RequireToken(deps.APITokenHash))
	}

	// Bond routes
	if bondHandler != nil {
		api.HandleFunc("/bonds", bondHandler.GetBonds).Methods("GET")
		api.HandleFunc("/bonds", bondHandler.CreateBond).Methods("POST")
		api.HandleFunc("/bonds/{isin}", bondHandler.GetBond).Methods("GET")
		api.HandleFunc("/bonds/{isin}", bondHandler.DeleteBond).Methods("DELETE")
		api.HandleFunc("/bonds/{isin}/favorite", bondHandler.SetFavorite).Methods("PUT")
		api.HandleFunc("/bonds/{isin}/ytm", bondHandler.EvaluateYTM).Methods("POST")
	}

	// Spread routes
	if spreadHandler != nil {
		api.HandleFunc("/spreads/{long}/{short}", spreadHandler.GetSeries).Methods("GET")
		api.HandleFunc("/spreads/{long}/{short}", spreadHandler.RecordObservation).Methods("POST")
		api.HandleFunc("/spreads/{long}/{short}/stats", spreadHandler.GetStats).Methods("GET")
		api.HandleFunc("/spreads/{long}/{short}/anomalies", spreadHandler.GetAnomalies).Methods("GET")
	}

	// Signal routes: фиксированные пути регистрируются раньше шаблонных
	if signalHandler != nil {
		api.HandleFunc("/signals/active", signalHandler.GetActive).Methods("GET")
		api.HandleFunc("/signals/recent", signalHandler.GetRecent).Methods("GET")
		api.HandleFunc("/signals/{long}/{short}", signalHandler.EvaluateSignal).Methods("POST")
	}

	// Backtest routes
	if backtestHandler != nil {
		api.HandleFunc("/backtests", backtestHandler.GetRecent).Methods("GET")
		api.HandleFunc("/backtests", backtestHandler.RunMultiPair).Methods("POST")
		api.HandleFunc("/backtests/{id:[0-9]+}", backtestHandler.GetRun).Methods("GET")
		api.HandleFunc("/backtests/{long}/{short}", backtestHandler.RunBacktest).Methods("POST")
	}

	// WebSocket route
	if deps != nil && deps.Hub != nil {
		hub := deps.Hub
		router.HandleFunc("/ws/stream", func(w http.ResponseWriter, r *http.Request) {
			websocket.ServeWS(hub, w, r)
		})
	}

	// Health check endpoint
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	// Prometheus метрики
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return router
}
