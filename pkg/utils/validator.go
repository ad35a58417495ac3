package utils

import (
	"fmt"
	"regexp"
	"strings"
)

// validator.go - валидация входных данных API
//
// Возвращает error с описанием проблемы или nil.

// ISIN: 2 буквы страны, 9 алфавитно-цифровых, контрольная цифра.
// Регистр не важен, вход нормализуется к верхнему.
var isinPattern = regexp.MustCompile(`^[A-Z]{2}[A-Z0-9]{9}[0-9]$`)

// ValidateISIN проверяет формат идентификатора облигации
func ValidateISIN(isin string) error {
	normalized := strings.ToUpper(strings.TrimSpace(isin))
	if normalized == "" {
		return fmt.Errorf("isin is required")
	}
	if !isinPattern.MatchString(normalized) {
		return fmt.Errorf("invalid isin format: %q", isin)
	}
	return nil
}

// ValidatePairName проверяет каноническое имя пары "<LONG>_<SHORT>"
func ValidatePairName(pairName string) error {
	parts := strings.Split(pairName, "_")
	if len(parts) != 2 {
		return fmt.Errorf("pair name must be '<long>_<short>', got %q", pairName)
	}
	if err := ValidateISIN(parts[0]); err != nil {
		return fmt.Errorf("long leg: %w", err)
	}
	if err := ValidateISIN(parts[1]); err != nil {
		return fmt.Errorf("short leg: %w", err)
	}
	if strings.EqualFold(parts[0], parts[1]) {
		return fmt.Errorf("pair legs must differ")
	}
	return nil
}

// ValidateLookback проверяет окно статистики (торговых дней)
func ValidateLookback(days int) error {
	if days < 2 {
		return fmt.Errorf("lookback must be at least 2 days, got %d", days)
	}
	if days > 2520 {
		return fmt.Errorf("lookback must not exceed 2520 days (10 years), got %d", days)
	}
	return nil
}

// ValidatePrice проверяет цену облигации (проценты от номинала
// или абсолютные рубли, обе строго положительные)
func ValidatePrice(price float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive, got %v", price)
	}
	return nil
}
