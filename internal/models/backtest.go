package models

import "time"

// EquityPoint - снимок капитала после закрытия очередной сделки
type EquityPoint struct {
	Date    time.Time `json:"date"`
	Capital float64   `json:"capital"`
}

// BacktestResult - итог прогона бэктеста по одной паре
type BacktestResult struct {
	PairName string `json:"pair_name" db:"pair_name"`

	TotalTrades   int `json:"total_trades" db:"total_trades"`
	WinningTrades int `json:"winning_trades" db:"winning_trades"`
	LosingTrades  int `json:"losing_trades" db:"losing_trades"`

	TotalPnlBP      float64 `json:"total_pnl_bp" db:"total_pnl_bp"`
	TotalPnlRub     float64 `json:"total_pnl_rub" db:"total_pnl_rub"`
	TotalPnlPercent float64 `json:"total_pnl_percent" db:"total_pnl_percent"`

	AvgPnlBP       float64 `json:"avg_pnl_bp" db:"avg_pnl_bp"`
	AvgWinningBP   float64 `json:"avg_winning_bp" db:"avg_winning_bp"`
	AvgLosingBP    float64 `json:"avg_losing_bp" db:"avg_losing_bp"`
	AvgHoldingDays float64 `json:"avg_holding_days" db:"avg_holding_days"`

	// Доля прибыльных сделок в процентах
	WinRate float64 `json:"win_rate" db:"win_rate"`
	// Валовая прибыль / валовый убыток; 0 если убытков не было
	ProfitFactor  float64 `json:"profit_factor" db:"profit_factor"`
	MaxDrawdownBP float64 `json:"max_drawdown_bp" db:"max_drawdown_bp"`

	EquityCurve []EquityPoint `json:"equity_curve,omitempty"`
	Positions   []Position    `json:"positions,omitempty"`
}

// IsEmpty сообщает, что прогон не дал ни одной сделки
// (короткая история или ни одного входа)
func (r BacktestResult) IsEmpty() bool {
	return r.TotalTrades == 0
}

// StrategyMetrics - агрегат по всем парам стратегии
type StrategyMetrics struct {
	TotalPairs      int     `json:"total_pairs"`
	ProfitablePairs int     `json:"profitable_pairs"`
	TotalTrades     int     `json:"total_trades"`
	TotalWinning    int     `json:"total_winning"`
	WinRate         float64 `json:"win_rate"`
	TotalPnlBP      float64 `json:"total_pnl_bp"`
	TotalPnlRub     float64 `json:"total_pnl_rub"`
	AvgPnlPerPair   float64 `json:"avg_pnl_per_pair"`
	BestPair        string  `json:"best_pair"`
	BestPairPnlBP   float64 `json:"best_pair_pnl_bp"`
	WorstPair       string  `json:"worst_pair"`
	WorstPairPnlBP  float64 `json:"worst_pair_pnl_bp"`
}
