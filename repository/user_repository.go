package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"farmledger/database"
	"farmledger/domain/entities"
	"farmledger/infrastructure/observability"
)

// UserRepository implements the UserRepository interface
type UserRepository struct {
	q Queryable
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{q: db.Pool}
}

func newUserRepository(tx Queryable) *UserRepository {
	return &UserRepository{q: tx}
}

const userColumns = `id, telegram_id, invite_code, referred_by, balance_points, balance_ton, created_at, updated_at`

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(
		&user.ID,
		&user.TelegramID,
		&user.InviteCode,
		&user.ReferredBy,
		&user.BalancePoints,
		&user.BalanceTON,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID retrieves a user by internal ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*entities.User, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("user", "GetByID")()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID %d: %w", id, err)
	}
	return user, nil
}

// GetByTelegramID retrieves a user by their Telegram ID
func (r *UserRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*entities.User, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("user", "GetByTelegramID")()

	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_id = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, telegramID))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by telegram ID %d: %w", telegramID, err)
	}
	return user, nil
}

// GetByInviteCode retrieves a user by their invite code
func (r *UserRepository) GetByInviteCode(ctx context.Context, code string) (*entities.User, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("user", "GetByInviteCode")()

	query := `SELECT ` + userColumns + ` FROM users WHERE invite_code = $1`

	user, err := scanUser(r.q.QueryRow(ctx, query, code))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by invite code %s: %w", code, err)
	}
	return user, nil
}

// Create inserts a new user with zero balances
func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("user", "Create")()

	query := `
		INSERT INTO users (telegram_id, invite_code, referred_by)
		VALUES ($1, $2, $3)
		RETURNING id, balance_points, balance_ton, created_at, updated_at
	`

	err := r.q.QueryRow(ctx, query, user.TelegramID, user.InviteCode, user.ReferredBy).Scan(
		&user.ID,
		&user.BalancePoints,
		&user.BalanceTON,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user with telegram ID %d: %w", user.TelegramID, err)
	}
	return nil
}

// AdjustBalance applies a signed delta to the cached balance in a single
// atomic row update and returns the resulting balance. The row lock taken by
// the UPDATE serializes concurrent deltas for the same user.
func (r *UserRepository) AdjustBalance(ctx context.Context, userID int64, currency entities.Currency, delta decimal.Decimal) (decimal.Decimal, error) {
	column, err := balanceColumn(currency)
	if err != nil {
		return decimal.Zero, err
	}
	defer observability.GetMetrics().MeasureDatabaseQuery("user", "AdjustBalance")()

	query := fmt.Sprintf(`
		UPDATE users
		SET %s = %s + $1, updated_at = NOW()
		WHERE id = $2
		RETURNING %s
	`, column, column, column)

	var newBalance decimal.Decimal
	err = r.q.QueryRow(ctx, query, delta, userID).Scan(&newBalance)
	if err == pgx.ErrNoRows {
		return decimal.Zero, entities.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to adjust %s balance for user %d: %w", currency, userID, err)
	}
	return newBalance, nil
}

// SetBalance overwrites the cached balance, used only by reconciliation
func (r *UserRepository) SetBalance(ctx context.Context, userID int64, currency entities.Currency, balance decimal.Decimal) error {
	column, err := balanceColumn(currency)
	if err != nil {
		return err
	}
	defer observability.GetMetrics().MeasureDatabaseQuery("user", "SetBalance")()

	query := fmt.Sprintf(`
		UPDATE users
		SET %s = $1, updated_at = NOW()
		WHERE id = $2
	`, column)

	tag, err := r.q.Exec(ctx, query, balance, userID)
	if err != nil {
		return fmt.Errorf("failed to set %s balance for user %d: %w", currency, userID, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrUserNotFound
	}
	return nil
}

// ListIDs returns all user IDs ordered ascending
func (r *UserRepository) ListIDs(ctx context.Context) ([]int64, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("user", "ListIDs")()

	query := `SELECT id FROM users ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list user IDs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan user ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user IDs: %w", err)
	}
	return ids, nil
}

// balanceColumn maps a currency to its cached balance column. The column
// name is fixed per currency, never user input.
func balanceColumn(currency entities.Currency) (string, error) {
	switch currency {
	case entities.CurrencyPoints:
		return "balance_points", nil
	case entities.CurrencyTON:
		return "balance_ton", nil
	default:
		return "", entities.ErrUnsupportedCurrency
	}
}
