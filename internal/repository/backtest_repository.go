package repository

import (
	"database/sql"
	"errors"
	"time"

	"bondspread/internal/models"
)

// ErrBacktestNotFound возвращается, когда прогон не найден
var ErrBacktestNotFound = errors.New("backtest run not found")

// BacktestRepository - работа с таблицами backtest_runs и backtest_positions
type BacktestRepository struct {
	db *sql.DB
}

// NewBacktestRepository создает новый экземпляр репозитория
func NewBacktestRepository(db *sql.DB) *BacktestRepository {
	return &BacktestRepository{db: db}
}

// SaveRun сохраняет итог прогона вместе с закрытыми позициями
// в одной транзакции. Возвращает id прогона.
func (r *BacktestRepository) SaveRun(result *models.BacktestResult, startedAt time.Time) (int64, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var runID int64
	err = tx.QueryRow(`
		INSERT INTO backtest_runs (pair_name, total_trades, winning_trades, losing_trades, total_pnl_bp, total_pnl_rub, total_pnl_percent, avg_pnl_bp, win_rate, profit_factor, max_drawdown_bp, avg_holding_days, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		result.PairName,
		result.TotalTrades,
		result.WinningTrades,
		result.LosingTrades,
		result.TotalPnlBP,
		result.TotalPnlRub,
		result.TotalPnlPercent,
		result.AvgPnlBP,
		result.WinRate,
		result.ProfitFactor,
		result.MaxDrawdownBP,
		result.AvgHoldingDays,
		startedAt,
		time.Now(),
	).Scan(&runID)
	if err != nil {
		return 0, err
	}

	if len(result.Positions) > 0 {
		stmt, err := tx.Prepare(`
			INSERT INTO backtest_positions (run_id, pair_name, direction, state, entry_date, entry_spread, entry_ytm_long, entry_ytm_short, size, exit_date, exit_spread, exit_ytm_long, exit_ytm_short, exit_reason, pnl_bp, pnl_rub, holding_days)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`)
		if err != nil {
			return 0, err
		}
		defer stmt.Close()

		for _, pos := range result.Positions {
			_, err := stmt.Exec(
				runID,
				pos.PairName,
				pos.Direction,
				pos.State,
				pos.EntryDate,
				pos.EntrySpread,
				pos.EntryYTMLong,
				pos.EntryYTMShort,
				pos.Size,
				pos.ExitDate,
				pos.ExitSpread,
				pos.ExitYTMLong,
				pos.ExitYTMShort,
				pos.ExitReason,
				pos.PnlBP,
				pos.PnlRub,
				pos.HoldingDays,
			)
			if err != nil {
				return 0, err
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}

	return runID, nil
}

// GetRun возвращает сохранённый прогон без позиций
func (r *BacktestRepository) GetRun(runID int64) (*models.BacktestResult, error) {
	query := `
		SELECT pair_name, total_trades, winning_trades, losing_trades, total_pnl_bp, total_pnl_rub, total_pnl_percent, avg_pnl_bp, win_rate, profit_factor, max_drawdown_bp, avg_holding_days
		FROM backtest_runs
		WHERE id = $1`

	result := &models.BacktestResult{}
	err := r.db.QueryRow(query, runID).Scan(
		&result.PairName,
		&result.TotalTrades,
		&result.WinningTrades,
		&result.LosingTrades,
		&result.TotalPnlBP,
		&result.TotalPnlRub,
		&result.TotalPnlPercent,
		&result.AvgPnlBP,
		&result.WinRate,
		&result.ProfitFactor,
		&result.MaxDrawdownBP,
		&result.AvgHoldingDays,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBacktestNotFound
		}
		return nil, err
	}

	return result, nil
}

// GetPositions возвращает позиции прогона в порядке входа
func (r *BacktestRepository) GetPositions(runID int64) ([]models.Position, error) {
	query := `
		SELECT id, run_id, pair_name, direction, state, entry_date, entry_spread, entry_ytm_long, entry_ytm_short, size, exit_date, exit_spread, exit_ytm_long, exit_ytm_short, exit_reason, pnl_bp, pnl_rub, holding_days
		FROM backtest_positions
		WHERE run_id = $1
		ORDER BY entry_date`

	rows, err := r.db.Query(query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []models.Position
	for rows.Next() {
		var pos models.Position
		err := rows.Scan(
			&pos.ID,
			&pos.RunID,
			&pos.PairName,
			&pos.Direction,
			&pos.State,
			&pos.EntryDate,
			&pos.EntrySpread,
			&pos.EntryYTMLong,
			&pos.EntryYTMShort,
			&pos.Size,
			&pos.ExitDate,
			&pos.ExitSpread,
			&pos.ExitYTMLong,
			&pos.ExitYTMShort,
			&pos.ExitReason,
			&pos.PnlBP,
			&pos.PnlRub,
			&pos.HoldingDays,
		)
		if err != nil {
			return nil, err
		}
		positions = append(positions, pos)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return positions, nil
}

// GetRecentRuns возвращает последние прогоны по паре
func (r *BacktestRepository) GetRecentRuns(pairName string, limit int) ([]models.BacktestResult, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT pair_name, total_trades, winning_trades, losing_trades, total_pnl_bp, total_pnl_rub, total_pnl_percent, avg_pnl_bp, win_rate, profit_factor, max_drawdown_bp, avg_holding_days
		FROM backtest_runs
		WHERE pair_name = $1
		ORDER BY finished_at DESC
		LIMIT $2`

	rows, err := r.db.Query(query, pairName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []models.BacktestResult
	for rows.Next() {
		var result models.BacktestResult
		err := rows.Scan(
			&result.PairName,
			&result.TotalTrades,
			&result.WinningTrades,
			&result.LosingTrades,
			&result.TotalPnlBP,
			&result.TotalPnlRub,
			&result.TotalPnlPercent,
			&result.AvgPnlBP,
			&result.WinRate,
			&result.ProfitFactor,
			&result.MaxDrawdownBP,
			&result.AvgHoldingDays,
		)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// DeleteRun удаляет прогон вместе с позициями
func (r *BacktestRepository) DeleteRun(runID int64) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM backtest_positions WHERE run_id = $1`, runID); err != nil {
		return err
	}

	result, err := tx.Exec(`DELETE FROM backtest_runs WHERE id = $1`, runID)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrBacktestNotFound
	}

	return tx.Commit()
}
