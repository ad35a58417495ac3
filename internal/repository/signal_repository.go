package repository

import (
	"database/sql"
	"errors"
	"time"

	"bondspread/internal/models"
)

// ErrSignalNotFound возвращается, когда сигналов по запросу нет
var ErrSignalNotFound = errors.New("signal not found")

// SignalRepository - работа с таблицей signals
type SignalRepository struct {
	db *sql.DB
}

// NewSignalRepository создает новый экземпляр репозитория
func NewSignalRepository(db *sql.DB) *SignalRepository {
	return &SignalRepository{db: db}
}

// Insert сохраняет сигнал
func (r *SignalRepository) Insert(signal *models.TradingSignal) error {
	query := `
		INSERT INTO signals (pair_name, bond_long, bond_short, signal_type, direction, confidence, spread_bp, spread_mean, spread_zscore, percentile_rank, expected_return_bp, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	return r.db.QueryRow(
		query,
		signal.PairName,
		signal.BondLong,
		signal.BondShort,
		signal.SignalType,
		signal.Direction,
		signal.Confidence,
		signal.SpreadBP,
		signal.SpreadMean,
		signal.SpreadZScore,
		signal.PercentileRank,
		signal.ExpectedReturnBP,
		signal.Timestamp,
		signal.ExpiresAt,
	).Scan(&signal.ID)
}

// GetLatestByPair возвращает последний сигнал по паре
func (r *SignalRepository) GetLatestByPair(pairName string) (*models.TradingSignal, error) {
	query := `
		SELECT id, pair_name, bond_long, bond_short, signal_type, direction, confidence, spread_bp, spread_mean, spread_zscore, percentile_rank, expected_return_bp, created_at, expires_at
		FROM signals
		WHERE pair_name = $1
		ORDER BY created_at DESC
		LIMIT 1`

	signal := &models.TradingSignal{}
	err := r.db.QueryRow(query, pairName).Scan(
		&signal.ID,
		&signal.PairName,
		&signal.BondLong,
		&signal.BondShort,
		&signal.SignalType,
		&signal.Direction,
		&signal.Confidence,
		&signal.SpreadBP,
		&signal.SpreadMean,
		&signal.SpreadZScore,
		&signal.PercentileRank,
		&signal.ExpectedReturnBP,
		&signal.Timestamp,
		&signal.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSignalNotFound
		}
		return nil, err
	}

	return signal, nil
}

// GetActive возвращает не истёкшие на момент now сигналы,
// самые свежие первыми
func (r *SignalRepository) GetActive(now time.Time) ([]models.TradingSignal, error) {
	query := `
		SELECT id, pair_name, bond_long, bond_short, signal_type, direction, confidence, spread_bp, spread_mean, spread_zscore, percentile_rank, expected_return_bp, created_at, expires_at
		FROM signals
		WHERE expires_at IS NULL OR expires_at > $1
		ORDER BY created_at DESC`

	return r.querySignals(query, now)
}

// GetByPair возвращает историю сигналов пары, не больше limit штук
func (r *SignalRepository) GetByPair(pairName string, limit int) ([]models.TradingSignal, error) {
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, pair_name, bond_long, bond_short, signal_type, direction, confidence, spread_bp, spread_mean, spread_zscore, percentile_rank, expected_return_bp, created_at, expires_at
		FROM signals
		WHERE pair_name = $1
		ORDER BY created_at DESC
		LIMIT $2`

	return r.querySignals(query, pairName, limit)
}

// DeleteExpired удаляет сигналы, истёкшие раньше отметки
func (r *SignalRepository) DeleteExpired(before time.Time) (int64, error) {
	query := `DELETE FROM signals WHERE expires_at IS NOT NULL AND expires_at < $1`

	result, err := r.db.Exec(query, before)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *SignalRepository) querySignals(query string, args ...interface{}) ([]models.TradingSignal, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []models.TradingSignal
	for rows.Next() {
		var signal models.TradingSignal
		err := rows.Scan(
			&signal.ID,
			&signal.PairName,
			&signal.BondLong,
			&signal.BondShort,
			&signal.SignalType,
			&signal.Direction,
			&signal.Confidence,
			&signal.SpreadBP,
			&signal.SpreadMean,
			&signal.SpreadZScore,
			&signal.PercentileRank,
			&signal.ExpectedReturnBP,
			&signal.Timestamp,
			&signal.ExpiresAt,
		)
		if err != nil {
			return nil, err
		}
		signals = append(signals, signal)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return signals, nil
}
