package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ============================================================
// Prometheus метрики аналитического ядра
// ============================================================
//
// Использование:
// - Grafana дашборды для визуализации
// - Alertmanager для уведомлений о проблемах
// - Контроль сходимости солвера YTM в production

// ============ Метрики солвера ============

// YTMSolvesTotal - количество расчётов YTM по исходу.
// outcome: converged, failed
var YTMSolvesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bondspread",
		Subsystem: "quant",
		Name:      "ytm_solves_total",
		Help:      "Total number of YTM root-finding attempts by outcome",
	},
	[]string{"outcome"},
)

// YTMSolveDuration - длительность расчёта YTM.
// Brent сходится за микросекунды, buckets до 10ms ловят деградацию
var YTMSolveDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: "bondspread",
		Subsystem: "quant",
		Name:      "ytm_solve_duration_seconds",
		Help:      "Time to solve YTM for a single bond",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
	},
)

// ============ Счётчики сигналов ============

// SignalsGenerated - сгенерированные сигналы по типам.
// type: STRONG_BUY, BUY, NEUTRAL, SELL, STRONG_SELL, NO_DATA
var SignalsGenerated = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bondspread",
		Subsystem: "signals",
		Name:      "generated_total",
		Help:      "Total number of generated trading signals by type",
	},
	[]string{"type"},
)

// WebhookDeliveries - доставки сигналов на вебхук по исходу.
// outcome: success, error
var WebhookDeliveries = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bondspread",
		Subsystem: "signals",
		Name:      "webhook_deliveries_total",
		Help:      "Total number of webhook delivery attempts by outcome",
	},
	[]string{"outcome"},
)

// ============ Метрики спредов ============

// SpreadObservationsTotal - записанные наблюдения спреда
var SpreadObservationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "bondspread",
		Subsystem: "spreads",
		Name:      "observations_total",
		Help:      "Total number of recorded spread observations",
	},
)

// SpreadStatsComputed - расчёты оконной статистики спреда
var SpreadStatsComputed = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "bondspread",
		Subsystem: "spreads",
		Name:      "stats_computed_total",
		Help:      "Total number of spread window statistics computations",
	},
)

// ============ Метрики бэктестов ============

// BacktestRunsTotal - завершённые прогоны бэктеста по исходу.
// outcome: success, empty, error
var BacktestRunsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "bondspread",
		Subsystem: "backtest",
		Name:      "runs_total",
		Help:      "Total number of backtest runs by outcome",
	},
	[]string{"outcome"},
)

// BacktestTradesTotal - смоделированные сделки
var BacktestTradesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: "bondspread",
		Subsystem: "backtest",
		Name:      "trades_total",
		Help:      "Total number of simulated trades across all runs",
	},
)

// ============ Метрики состояния ============

// WebsocketClients - текущее число подключенных WebSocket клиентов
var WebsocketClients = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: "bondspread",
		Subsystem: "ws",
		Name:      "clients",
		Help:      "Current number of connected websocket clients",
	},
)
