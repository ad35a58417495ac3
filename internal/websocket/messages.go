package websocket

import (
	"time"

	"bondspread/internal/models"
)

// MessageType определяет тип WebSocket сообщения
type MessageType string

// Типы WebSocket сообщений
const (
	// MessageTypeSignalUpdate - новый торговый сигнал по паре облигаций.
	// Отправляется после каждого пересчёта сигнала (ручного или фонового).
	MessageTypeSignalUpdate MessageType = "signal_update"

	// MessageTypeSpreadUpdate - свежее наблюдение спреда по паре.
	MessageTypeSpreadUpdate MessageType = "spread_update"

	// MessageTypeBacktestComplete - завершён прогон бэктеста.
	MessageTypeBacktestComplete MessageType = "backtest_complete"
)

// BaseMessage - базовая структура для всех WebSocket сообщений
type BaseMessage struct {
	Type      MessageType `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
}

// SignalUpdateMessage - сообщение о новом торговом сигнале
type SignalUpdateMessage struct {
	BaseMessage
	PairName string                `json:"pair_name"`
	Data     *models.TradingSignal `json:"data"`
}

// SpreadUpdateMessage - сообщение о новом наблюдении спреда
type SpreadUpdateMessage struct {
	BaseMessage
	PairName string  `json:"pair_name"`
	SpreadBP float64 `json:"spread_bp"`
}

// BacktestCompleteMessage - сообщение о завершении бэктеста
type BacktestCompleteMessage struct {
	BaseMessage
	RunID    int64                  `json:"run_id"`
	PairName string                 `json:"pair_name"`
	Data     *models.BacktestResult `json:"data"`
}

// NewSignalUpdateMessage создает сообщение о новом сигнале
func NewSignalUpdateMessage(signal *models.TradingSignal) *SignalUpdateMessage {
	return &SignalUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeSignalUpdate,
			Timestamp: time.Now().UTC(),
		},
		PairName: signal.PairName,
		Data:     signal,
	}
}

// NewSpreadUpdateMessage создает сообщение о новом наблюдении спреда
func NewSpreadUpdateMessage(pairName string, spreadBP float64) *SpreadUpdateMessage {
	return &SpreadUpdateMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeSpreadUpdate,
			Timestamp: time.Now().UTC(),
		},
		PairName: pairName,
		SpreadBP: spreadBP,
	}
}

// NewBacktestCompleteMessage создает сообщение о завершённом прогоне
func NewBacktestCompleteMessage(runID int64, result *models.BacktestResult) *BacktestCompleteMessage {
	return &BacktestCompleteMessage{
		BaseMessage: BaseMessage{
			Type:      MessageTypeBacktestComplete,
			Timestamp: time.Now().UTC(),
		},
		RunID:    runID,
		PairName: result.PairName,
		Data:     result,
	}
}
