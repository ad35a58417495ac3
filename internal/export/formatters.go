package export

import (
	"time"

	jsoniter "github.com/json-iterator/go"

	"bondspread/internal/models"
	"bondspread/pkg/utils"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SignalRecord - плоская форма торгового сигнала для внешних систем.
// Временные метки в ISO-8601, уверенность округлена до 3 знаков.
type SignalRecord struct {
	PairName         string  `json:"pair_name"`
	BondLong         string  `json:"bond_long"`
	BondShort        string  `json:"bond_short"`
	SignalType       string  `json:"signal_type"`
	Direction        string  `json:"direction"`
	Confidence       float64 `json:"confidence"`
	SpreadBP         float64 `json:"spread_bp"`
	SpreadMeanBP     float64 `json:"spread_mean_bp"`
	SpreadZScore     float64 `json:"spread_zscore"`
	PercentileRank   float64 `json:"percentile_rank"`
	ExpectedReturnBP float64 `json:"expected_return_bp"`
	GeneratedAt      string  `json:"generated_at"`
	ExpiresAt        string  `json:"expires_at,omitempty"`
}

// NewSignalRecord строит запись для экспорта из торгового сигнала
func NewSignalRecord(signal models.TradingSignal) SignalRecord {
	record := SignalRecord{
		PairName:         signal.PairName,
		BondLong:         signal.BondLong,
		BondShort:        signal.BondShort,
		SignalType:       signal.SignalType,
		Direction:        signal.Direction,
		Confidence:       utils.Round(signal.Confidence, 3),
		SpreadBP:         signal.SpreadBP,
		SpreadMeanBP:     signal.SpreadMean,
		SpreadZScore:     signal.SpreadZScore,
		PercentileRank:   signal.PercentileRank,
		ExpectedReturnBP: signal.ExpectedReturnBP,
		GeneratedAt:      signal.Timestamp.UTC().Format(time.RFC3339),
	}
	if signal.ExpiresAt != nil {
		record.ExpiresAt = signal.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return record
}

// Encode сериализует запись сигнала в JSON
func (r SignalRecord) Encode() ([]byte, error) {
	return json.Marshal(r)
}

// BacktestRecord - плоская форма итогов бэктеста для внешних систем
type BacktestRecord struct {
	RunID           int64   `json:"run_id"`
	PairName        string  `json:"pair_name"`
	TotalTrades     int     `json:"total_trades"`
	WinningTrades   int     `json:"winning_trades"`
	LosingTrades    int     `json:"losing_trades"`
	TotalPnlBP      float64 `json:"total_pnl_bp"`
	TotalPnlRub     float64 `json:"total_pnl_rub"`
	TotalPnlPercent float64 `json:"total_pnl_percent"`
	WinRate         float64 `json:"win_rate"`
	ProfitFactor    float64 `json:"profit_factor"`
	MaxDrawdownBP   float64 `json:"max_drawdown_bp"`
	AvgHoldingDays  float64 `json:"avg_holding_days"`
	CompletedAt     string  `json:"completed_at"`
}

// NewBacktestRecord строит запись для экспорта из итогов прогона
func NewBacktestRecord(runID int64, result models.BacktestResult, completedAt time.Time) BacktestRecord {
	return BacktestRecord{
		RunID:           runID,
		PairName:        result.PairName,
		TotalTrades:     result.TotalTrades,
		WinningTrades:   result.WinningTrades,
		LosingTrades:    result.LosingTrades,
		TotalPnlBP:      result.TotalPnlBP,
		TotalPnlRub:     result.TotalPnlRub,
		TotalPnlPercent: result.TotalPnlPercent,
		WinRate:         result.WinRate,
		ProfitFactor:    result.ProfitFactor,
		MaxDrawdownBP:   result.MaxDrawdownBP,
		AvgHoldingDays:  result.AvgHoldingDays,
		CompletedAt:     completedAt.UTC().Format(time.RFC3339),
	}
}

// Encode сериализует запись бэктеста в JSON
func (r BacktestRecord) Encode() ([]byte, error) {
	return json.Marshal(r)
}
