package models

import "time"

// Типы торговых сигналов
const (
	SignalStrongBuy  = "STRONG_BUY"
	SignalBuy        = "BUY"
	SignalNeutral    = "NEUTRAL"
	SignalSell       = "SELL"
	SignalStrongSell = "STRONG_SELL"
	SignalNoData     = "NO_DATA"
)

// Направления позиции по спреду
const (
	// Лонг дальней ноги, шорт ближней: ставка на расширение спреда
	DirectionLongShort = "LONG_SHORT"
	// Шорт дальней ноги, лонг ближней: ставка на сужение
	DirectionShortLong = "SHORT_LONG"
	// Вне позиции
	DirectionFlat = "FLAT"
)

// TradingSignal - торговый сигнал по паре облигаций
type TradingSignal struct {
	ID               int64      `json:"id,omitempty" db:"id"`
	PairName         string     `json:"pair_name" db:"pair_name"`
	BondLong         string     `json:"bond_long" db:"bond_long"`
	BondShort        string     `json:"bond_short" db:"bond_short"`
	SignalType       string     `json:"signal_type" db:"signal_type"`
	Direction        string     `json:"direction" db:"direction"`
	Confidence       float64    `json:"confidence" db:"confidence"`
	SpreadBP         float64    `json:"spread_bp" db:"spread_bp"`
	SpreadMean       float64    `json:"spread_mean" db:"spread_mean"`
	SpreadZScore     float64    `json:"spread_zscore" db:"spread_zscore"`
	PercentileRank   float64    `json:"percentile_rank" db:"percentile_rank"`
	ExpectedReturnBP float64    `json:"expected_return_bp" db:"expected_return_bp"`
	Timestamp        time.Time  `json:"timestamp" db:"created_at"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}

// IsActive сообщает, действует ли сигнал на момент now.
// Сигнал без срока истечения активен всегда.
func (s TradingSignal) IsActive(now time.Time) bool {
	if s.ExpiresAt == nil {
		return true
	}
	return now.Before(*s.ExpiresAt)
}

// IsActionable сообщает, требует ли сигнал действия
// (все типы кроме NEUTRAL и NO_DATA)
func (s TradingSignal) IsActionable() bool {
	switch s.SignalType {
	case SignalStrongBuy, SignalBuy, SignalSell, SignalStrongSell:
		return true
	}
	return false
}
