package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"bondspread/internal/models"
)

// Ошибки репозитория облигаций
var (
	ErrBondNotFound = errors.New("bond not found")
	ErrBondExists   = errors.New("bond already exists")
)

const bondColumns = `isin, name, short_name, face_value, coupon_rate, coupon_frequency, maturity_date, issue_date, day_count_basis, accrued_override, is_favorite, last_price, last_ytm, duration_years, created_at, updated_at`

// BondRepository - работа с таблицей bonds
type BondRepository struct {
	db *sql.DB
}

// NewBondRepository создает новый экземпляр репозитория
func NewBondRepository(db *sql.DB) *BondRepository {
	return &BondRepository{db: db}
}

// Create добавляет облигацию в справочник
func (r *BondRepository) Create(bond *models.Bond) error {
	query := `
		INSERT INTO bonds (` + bondColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	now := time.Now()
	bond.CreatedAt = now
	bond.UpdatedAt = now

	_, err := r.db.Exec(
		query,
		bond.ISIN,
		bond.Name,
		bond.ShortName,
		bond.FaceValue,
		bond.CouponRate,
		bond.CouponFrequency,
		bond.MaturityDate,
		bond.IssueDate,
		bond.DayCountBasis,
		bond.AccruedOverride,
		bond.IsFavorite,
		bond.LastPrice,
		bond.LastYTM,
		bond.DurationYears,
		bond.CreatedAt,
		bond.UpdatedAt,
	)

	if err != nil {
		if isUniqueViolation(err) {
			return ErrBondExists
		}
		return err
	}

	return nil
}

// GetByISIN возвращает облигацию по ISIN
func (r *BondRepository) GetByISIN(isin string) (*models.Bond, error) {
	query := `
		SELECT ` + bondColumns + `
		FROM bonds
		WHERE isin = $1`

	bond := &models.Bond{}
	err := r.db.QueryRow(query, isin).Scan(
		&bond.ISIN,
		&bond.Name,
		&bond.ShortName,
		&bond.FaceValue,
		&bond.CouponRate,
		&bond.CouponFrequency,
		&bond.MaturityDate,
		&bond.IssueDate,
		&bond.DayCountBasis,
		&bond.AccruedOverride,
		&bond.IsFavorite,
		&bond.LastPrice,
		&bond.LastYTM,
		&bond.DurationYears,
		&bond.CreatedAt,
		&bond.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBondNotFound
		}
		return nil, err
	}

	return bond, nil
}

// GetAll возвращает весь справочник облигаций
func (r *BondRepository) GetAll() ([]*models.Bond, error) {
	query := `
		SELECT ` + bondColumns + `
		FROM bonds
		ORDER BY maturity_date`

	return r.queryBonds(query)
}

// GetFavorites возвращает облигации, помеченные избранными
func (r *BondRepository) GetFavorites() ([]*models.Bond, error) {
	query := `
		SELECT ` + bondColumns + `
		FROM bonds
		WHERE is_favorite = TRUE
		ORDER BY maturity_date`

	return r.queryBonds(query)
}

// GetActive возвращает непогашенные на момент asOf облигации
func (r *BondRepository) GetActive(asOf time.Time) ([]*models.Bond, error) {
	query := `
		SELECT ` + bondColumns + `
		FROM bonds
		WHERE maturity_date > $1
		ORDER BY maturity_date`

	return r.queryBonds(query, asOf)
}

// UpdateMarketData обновляет расчётные рыночные поля облигации
func (r *BondRepository) UpdateMarketData(isin string, price, ytm, duration float64) error {
	query := `
		UPDATE bonds
		SET last_price = $1, last_ytm = $2, duration_years = $3, updated_at = $4
		WHERE isin = $5`

	result, err := r.db.Exec(query, price, ytm, duration, time.Now(), isin)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBondNotFound
	}

	return nil
}

// SetFavorite помечает или снимает отметку избранного
func (r *BondRepository) SetFavorite(isin string, favorite bool) error {
	query := `
		UPDATE bonds
		SET is_favorite = $1, updated_at = $2
		WHERE isin = $3`

	result, err := r.db.Exec(query, favorite, time.Now(), isin)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBondNotFound
	}

	return nil
}

// Delete удаляет облигацию из справочника
func (r *BondRepository) Delete(isin string) error {
	query := `DELETE FROM bonds WHERE isin = $1`

	result, err := r.db.Exec(query, isin)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrBondNotFound
	}

	return nil
}

// Count возвращает размер справочника
func (r *BondRepository) Count() (int, error) {
	query := `SELECT COUNT(*) FROM bonds`

	var count int
	err := r.db.QueryRow(query).Scan(&count)
	if err != nil {
		return 0, err
	}

	return count, nil
}

// ExistsByISIN проверяет наличие облигации
func (r *BondRepository) ExistsByISIN(isin string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM bonds WHERE isin = $1)`

	var exists bool
	err := r.db.QueryRow(query, isin).Scan(&exists)
	if err != nil {
		return false, err
	}

	return exists, nil
}

func (r *BondRepository) queryBonds(query string, args ...interface{}) ([]*models.Bond, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bonds []*models.Bond
	for rows.Next() {
		bond := &models.Bond{}
		err := rows.Scan(
			&bond.ISIN,
			&bond.Name,
			&bond.ShortName,
			&bond.FaceValue,
			&bond.CouponRate,
			&bond.CouponFrequency,
			&bond.MaturityDate,
			&bond.IssueDate,
			&bond.DayCountBasis,
			&bond.AccruedOverride,
			&bond.IsFavorite,
			&bond.LastPrice,
			&bond.LastYTM,
			&bond.DurationYears,
			&bond.CreatedAt,
			&bond.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		bonds = append(bonds, bond)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return bonds, nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением UNIQUE constraint
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "duplicate key") || strings.Contains(errStr, "23505")
}
