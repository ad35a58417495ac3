package models

import "time"

// Состояния позиции в бэктесте
const (
	PositionOpen    = "OPEN"
	PositionClosed  = "CLOSED"
	PositionStopped = "STOPPED"
	PositionTaken   = "TAKEN"
)

// Причины закрытия позиции
const (
	ExitStopLoss      = "STOP_LOSS"
	ExitTakeProfit    = "TAKE_PROFIT"
	ExitMeanReversion = "MEAN_REVERSION"
	ExitMaxHolding    = "MAX_HOLDING"
)

// Position - позиция по спреду в симуляции.
//
// Exit-поля - указатели: у открытой позиции их нет,
// поэтому omitempty убирает их из JSON.
type Position struct {
	ID        int64  `json:"id,omitempty" db:"id"`
	RunID     int64  `json:"run_id,omitempty" db:"run_id"`
	PairName  string `json:"pair_name" db:"pair_name"`
	Direction string `json:"direction" db:"direction"`
	State     string `json:"state" db:"state"`

	EntryDate     time.Time `json:"entry_date" db:"entry_date"`
	EntrySpread   float64   `json:"entry_spread" db:"entry_spread"`
	EntryYTMLong  float64   `json:"entry_ytm_long" db:"entry_ytm_long"`
	EntryYTMShort float64   `json:"entry_ytm_short" db:"entry_ytm_short"`

	// Размер позиции в рублях на момент входа
	Size float64 `json:"size" db:"size"`

	ExitDate     *time.Time `json:"exit_date,omitempty" db:"exit_date"`
	ExitSpread   *float64   `json:"exit_spread,omitempty" db:"exit_spread"`
	ExitYTMLong  *float64   `json:"exit_ytm_long,omitempty" db:"exit_ytm_long"`
	ExitYTMShort *float64   `json:"exit_ytm_short,omitempty" db:"exit_ytm_short"`
	ExitReason   string     `json:"exit_reason,omitempty" db:"exit_reason"`

	PnlBP       float64 `json:"pnl_bp" db:"pnl_bp"`
	PnlRub      float64 `json:"pnl_rub" db:"pnl_rub"`
	HoldingDays int     `json:"holding_days" db:"holding_days"`
}

// IsOpen сообщает, открыта ли позиция
func (p Position) IsOpen() bool {
	return p.State == PositionOpen
}

// IsWinning сообщает, прибыльна ли позиция по pnl_bp
func (p Position) IsWinning() bool {
	return p.PnlBP > 0
}
