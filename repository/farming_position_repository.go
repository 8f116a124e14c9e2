package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"farmledger/database"
	"farmledger/domain/entities"
	"farmledger/infrastructure/observability"
)

// FarmingPositionRepository implements the FarmingPositionRepository interface
type FarmingPositionRepository struct {
	q Queryable
}

// NewFarmingPositionRepository creates a new farming position repository
func NewFarmingPositionRepository(db *database.DB) *FarmingPositionRepository {
	return &FarmingPositionRepository{q: db.Pool}
}

func newFarmingPositionRepository(tx Queryable) *FarmingPositionRepository {
	return &FarmingPositionRepository{q: tx}
}

const positionColumns = `id, user_id, product, currency, deposit_amount, rate_per_period, last_accrual_at, is_active, created_at, updated_at`

func scanPosition(row pgx.Row) (*entities.FarmingPosition, error) {
	var pos entities.FarmingPosition
	err := row.Scan(
		&pos.ID,
		&pos.UserID,
		&pos.Product,
		&pos.Currency,
		&pos.DepositAmount,
		&pos.RatePerPeriod,
		&pos.LastAccrualAt,
		&pos.IsActive,
		&pos.CreatedAt,
		&pos.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &pos, nil
}

// Create creates a new farming position
func (r *FarmingPositionRepository) Create(ctx context.Context, pos *entities.FarmingPosition) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("farming_position", "Create")()

	query := `
		INSERT INTO farming_positions (user_id, product, currency, deposit_amount, rate_per_period, last_accrual_at, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query,
		pos.UserID,
		pos.Product,
		pos.Currency,
		pos.DepositAmount,
		pos.RatePerPeriod,
		pos.LastAccrualAt,
		pos.IsActive,
	).Scan(&pos.ID, &pos.CreatedAt, &pos.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create farming position for user %d product %s: %w", pos.UserID, pos.Product, err)
	}
	return nil
}

// GetByUserAndProduct retrieves a user's position in a product regardless of state
func (r *FarmingPositionRepository) GetByUserAndProduct(ctx context.Context, userID int64, product string) (*entities.FarmingPosition, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("farming_position", "GetByUserAndProduct")()

	query := `SELECT ` + positionColumns + ` FROM farming_positions WHERE user_id = $1 AND product = $2`

	pos, err := scanPosition(r.q.QueryRow(ctx, query, userID, product))
	if err != nil {
		return nil, fmt.Errorf("failed to get farming position for user %d product %s: %w", userID, product, err)
	}
	return pos, nil
}

// GetActive returns all active positions ordered by ID
func (r *FarmingPositionRepository) GetActive(ctx context.Context) ([]*entities.FarmingPosition, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("farming_position", "GetActive")()

	query := `SELECT ` + positionColumns + ` FROM farming_positions WHERE is_active ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list active farming positions: %w", err)
	}
	defer rows.Close()

	var positions []*entities.FarmingPosition
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan farming position: %w", err)
		}
		positions = append(positions, pos)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate farming positions: %w", err)
	}
	return positions, nil
}

// UpdateDeposit sets the deposit amount and active flag
func (r *FarmingPositionRepository) UpdateDeposit(ctx context.Context, id int64, deposit decimal.Decimal, active bool) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("farming_position", "UpdateDeposit")()

	query := `
		UPDATE farming_positions
		SET deposit_amount = $1, is_active = $2, updated_at = NOW()
		WHERE id = $3
	`

	tag, err := r.q.Exec(ctx, query, deposit, active, id)
	if err != nil {
		return fmt.Errorf("failed to update deposit of farming position %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrPositionNotFound
	}
	return nil
}

// AdvanceAccrual moves last_accrual_at forward to the given timestamp
func (r *FarmingPositionRepository) AdvanceAccrual(ctx context.Context, id int64, accruedThru time.Time) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("farming_position", "AdvanceAccrual")()

	query := `
		UPDATE farming_positions
		SET last_accrual_at = $1, updated_at = NOW()
		WHERE id = $2
	`

	tag, err := r.q.Exec(ctx, query, accruedThru, id)
	if err != nil {
		return fmt.Errorf("failed to advance accrual of farming position %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrPositionNotFound
	}
	return nil
}
