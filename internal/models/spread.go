package models

import "time"

// YieldPoint - одно наблюдение доходности облигации
type YieldPoint struct {
	Timestamp time.Time `json:"timestamp" db:"observed_at"`
	YTM       float64   `json:"ytm" db:"ytm"`
}

// SpreadObservation - наблюдение спреда пары на момент времени.
// SpreadBP = (YTMLong - YTMShort) × 100, базисные пункты.
type SpreadObservation struct {
	ID        int64     `json:"id,omitempty" db:"id"`
	PairName  string    `json:"pair_name,omitempty" db:"pair_name"`
	Timestamp time.Time `json:"timestamp" db:"observed_at"`
	YTMLong   float64   `json:"ytm_long" db:"ytm_long"`
	YTMShort  float64   `json:"ytm_short" db:"ytm_short"`
	SpreadBP  float64   `json:"spread_bp" db:"spread_bp"`
}

// SpreadStats - статистика спреда по трейлинг-окну
type SpreadStats struct {
	Current      float64 `json:"current"`
	Mean         float64 `json:"mean"`
	Std          float64 `json:"std"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile10 float64 `json:"percentile_10"`
	Percentile25 float64 `json:"percentile_25"`
	Percentile50 float64 `json:"percentile_50"`
	Percentile75 float64 `json:"percentile_75"`
	Percentile90 float64 `json:"percentile_90"`
	ZScore       float64 `json:"zscore"`

	// Фактический размер окна после отбрасывания NaN
	LookbackDays int `json:"lookback_days"`
}
