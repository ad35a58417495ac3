package export

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"bondspread/internal/models"
)

// WebhookSender доставляет торговые сигналы во внешнюю систему
// POST-запросом на настроенный URL.
//
// Доставка fire-and-forget: вызывающая сторона логирует ошибку,
// но никогда не пробрасывает её в аналитическое ядро.
type WebhookSender struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookSender создает отправителя вебхуков.
// Пустой URL означает, что доставка выключена.
func NewWebhookSender(url string, timeout time.Duration, logger *zap.Logger) *WebhookSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebhookSender{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Enabled сообщает, настроена ли доставка
func (s *WebhookSender) Enabled() bool {
	return s.url != ""
}

// DeliverSignal отправляет сигнал на настроенный вебхук.
// При выключенной доставке возвращает nil без побочных эффектов.
func (s *WebhookSender) DeliverSignal(ctx context.Context, signal models.TradingSignal) error {
	if !s.Enabled() {
		return nil
	}

	payload, err := NewSignalRecord(signal).Encode()
	if err != nil {
		return fmt.Errorf("failed to encode signal record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	s.logger.Debug("signal delivered to webhook",
		zap.String("pair", signal.PairName),
		zap.String("signal_type", signal.SignalType))

	return nil
}
