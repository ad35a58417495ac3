package repository

import (
	"database/sql"
	"errors"
	"time"

	"bondspread/internal/models"
)

// ErrObservationNotFound возвращается, когда наблюдений по паре нет
var ErrObservationNotFound = errors.New("spread observation not found")

// SpreadRepository - работа с таблицей spread_observations
type SpreadRepository struct {
	db *sql.DB
}

// NewSpreadRepository создает новый экземпляр репозитория
func NewSpreadRepository(db *sql.DB) *SpreadRepository {
	return &SpreadRepository{db: db}
}

// Insert сохраняет одно наблюдение спреда
func (r *SpreadRepository) Insert(obs *models.SpreadObservation) error {
	query := `
		INSERT INTO spread_observations (pair_name, observed_at, ytm_long, ytm_short, spread_bp)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return r.db.QueryRow(
		query,
		obs.PairName,
		obs.Timestamp,
		obs.YTMLong,
		obs.YTMShort,
		obs.SpreadBP,
	).Scan(&obs.ID)
}

// InsertBatch сохраняет пачку наблюдений в одной транзакции
func (r *SpreadRepository) InsertBatch(observations []models.SpreadObservation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO spread_observations (pair_name, observed_at, ytm_long, ytm_short, spread_bp)
		VALUES ($1, $2, $3, $4, $5)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, obs := range observations {
		if _, err := stmt.Exec(obs.PairName, obs.Timestamp, obs.YTMLong, obs.YTMShort, obs.SpreadBP); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetSeries возвращает историю спредов пары за период,
// упорядоченную по времени
func (r *SpreadRepository) GetSeries(pairName string, from, to time.Time) ([]models.SpreadObservation, error) {
	query := `
		SELECT id, pair_name, observed_at, ytm_long, ytm_short, spread_bp
		FROM spread_observations
		WHERE pair_name = $1 AND observed_at >= $2 AND observed_at <= $3
		ORDER BY observed_at`

	rows, err := r.db.Query(query, pairName, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []models.SpreadObservation
	for rows.Next() {
		var obs models.SpreadObservation
		err := rows.Scan(
			&obs.ID,
			&obs.PairName,
			&obs.Timestamp,
			&obs.YTMLong,
			&obs.YTMShort,
			&obs.SpreadBP,
		)
		if err != nil {
			return nil, err
		}
		series = append(series, obs)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return series, nil
}

// GetLatest возвращает последнее наблюдение по паре
func (r *SpreadRepository) GetLatest(pairName string) (*models.SpreadObservation, error) {
	query := `
		SELECT id, pair_name, observed_at, ytm_long, ytm_short, spread_bp
		FROM spread_observations
		WHERE pair_name = $1
		ORDER BY observed_at DESC
		LIMIT 1`

	obs := &models.SpreadObservation{}
	err := r.db.QueryRow(query, pairName).Scan(
		&obs.ID,
		&obs.PairName,
		&obs.Timestamp,
		&obs.YTMLong,
		&obs.YTMShort,
		&obs.SpreadBP,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrObservationNotFound
		}
		return nil, err
	}

	return obs, nil
}

// GetSpreadValues возвращает только значения спреда пары за период -
// вход для статистики и генерации сигналов
func (r *SpreadRepository) GetSpreadValues(pairName string, from, to time.Time) ([]float64, error) {
	query := `
		SELECT spread_bp
		FROM spread_observations
		WHERE pair_name = $1 AND observed_at >= $2 AND observed_at <= $3
		ORDER BY observed_at`

	rows, err := r.db.Query(query, pairName, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var values []float64
	for rows.Next() {
		var v float64
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return values, nil
}

// CountByPair возвращает число наблюдений по паре
func (r *SpreadRepository) CountByPair(pairName string) (int, error) {
	query := `SELECT COUNT(*) FROM spread_observations WHERE pair_name = $1`

	var count int
	err := r.db.QueryRow(query, pairName).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// DeleteOlderThan удаляет наблюдения старше отметки, возвращает
// число удалённых строк
func (r *SpreadRepository) DeleteOlderThan(cutoff time.Time) (int64, error) {
	query := `DELETE FROM spread_observations WHERE observed_at < $1`

	result, err := r.db.Exec(query, cutoff)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
