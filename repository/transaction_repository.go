package repository

import (
	"context"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"farmledger/database"
	"farmledger/domain/entities"
	"farmledger/infrastructure/observability"
)

// TransactionRepository implements the TransactionRepository interface over
// the append-only transactions table.
type TransactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

func newTransactionRepository(tx Queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

const transactionColumns = `id, user_id, kind, currency, amount, status, external_ref, causing_transaction_id, referral_level, note, created_at`

func scanTransaction(row pgx.Row) (*entities.Transaction, error) {
	var tx entities.Transaction
	err := row.Scan(
		&tx.ID,
		&tx.UserID,
		&tx.Kind,
		&tx.Currency,
		&tx.Amount,
		&tx.Status,
		&tx.ExternalRef,
		&tx.CausingTransactionID,
		&tx.ReferralLevel,
		&tx.Note,
		&tx.CreatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create appends a transaction to the ledger. Conflicts with the deposit
// reference and referral payout indexes surface as domain sentinels. The
// insert uses ON CONFLICT DO NOTHING rather than letting the unique
// violation raise: a raised 23505 would abort the surrounding pgx
// transaction, and callers of both duplicate paths keep issuing statements
// on it after branching on the sentinel.
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	defer observability.GetMetrics().MeasureDatabaseQuery("transaction", "Create")()

	query := `
		INSERT INTO transactions (user_id, kind, currency, amount, status, external_ref, causing_transaction_id, referral_level, note)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT DO NOTHING
		RETURNING id, created_at
	`

	err := r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Kind,
		tx.Currency,
		tx.Amount,
		tx.Status,
		tx.ExternalRef,
		tx.CausingTransactionID,
		tx.ReferralLevel,
		tx.Note,
	).Scan(&tx.ID, &tx.CreatedAt)

	if err == pgx.ErrNoRows {
		// The only unique indexes on the table are the two idempotency
		// guards, and their predicates are disjoint by kind.
		if tx.Kind == entities.TransactionKindReferralReward {
			return entities.ErrDuplicateReferralPayout
		}
		if tx.ExternalRef != nil {
			return entities.ErrDuplicateExternalReference
		}
		return fmt.Errorf("transaction insert for user %d conflicted unexpectedly", tx.UserID)
	}
	if err != nil {
		return fmt.Errorf("failed to create transaction for user %d: %w", tx.UserID, err)
	}
	return nil
}

// UpdateStatus moves a transaction to the given status
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus) error {
	defer observability.GetMetrics().MeasureDatabaseQuery("transaction", "UpdateStatus")()

	query := `UPDATE transactions SET status = $1 WHERE id = $2`

	tag, err := r.q.Exec(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("failed to update status of transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrTransactionNotFound
	}
	return nil
}

// GetByID retrieves a transaction by its ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("transaction", "GetByID")()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return tx, nil
}

// GetByExternalRef retrieves the live transaction carrying the external
// reference. At most one non-failed row can hold a reference.
func (r *TransactionRepository) GetByExternalRef(ctx context.Context, externalRef string) (*entities.Transaction, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("transaction", "GetByExternalRef")()

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE external_ref = $1 AND status <> 'failed'
	`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, externalRef))
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction by external ref %s: %w", externalRef, err)
	}
	return tx, nil
}

// ListByUser returns a user's transactions, newest first, with optional filters
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, filter entities.TransactionFilter) ([]*entities.Transaction, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("transaction", "ListByUser")()

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE user_id = $1`
	args := []any{userID}

	if filter.Kind != nil {
		args = append(args, *filter.Kind)
		query += fmt.Sprintf(" AND kind = $%d", len(args))
	}
	if filter.Currency != nil {
		args = append(args, *filter.Currency)
		query += fmt.Sprintf(" AND currency = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	query += " ORDER BY created_at DESC, id DESC"

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for user %d: %w", userID, err)
	}
	defer rows.Close()

	var txs []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// SumCompletedByUser replays the ledger for one user and currency. Only
// completed rows count toward the balance.
func (r *TransactionRepository) SumCompletedByUser(ctx context.Context, userID int64, currency entities.Currency) (decimal.Decimal, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("transaction", "SumCompletedByUser")()

	query := `
		SELECT COALESCE(SUM(amount), 0)
		FROM transactions
		WHERE user_id = $1 AND currency = $2 AND status = 'completed'
	`

	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, userID, currency).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum transactions for user %d %s: %w", userID, currency, err)
	}
	return sum, nil
}

// FindRecentMatching returns the most recent non-failed transaction matching
// (user, kind, currency, amount) created after the cutoff, or nil when none
// exists
func (r *TransactionRepository) FindRecentMatching(ctx context.Context, userID int64, kind entities.TransactionKind, currency entities.Currency, amount decimal.Decimal, cutoff time.Time) (*entities.Transaction, error) {
	defer observability.GetMetrics().MeasureDatabaseQuery("transaction", "FindRecentMatching")()

	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND kind = $2 AND currency = $3 AND amount = $4
		  AND status <> 'failed' AND created_at > $5
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, userID, kind, currency, amount, cutoff))
	if err != nil {
		return nil, fmt.Errorf("failed to find recent matching transaction for user %d: %w", userID, err)
	}
	return tx, nil
}

// AcquireDedupLock takes a transaction-scoped advisory lock for the given
// dedup key. The lock releases automatically when the surrounding
// transaction commits or rolls back, so concurrent admits for the same key
// serialize for exactly the span of the unit of work.
func (r *TransactionRepository) AcquireDedupLock(ctx context.Context, key string) error {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))

	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(h.Sum64())); err != nil {
		return fmt.Errorf("failed to acquire advisory lock for key %s: %w", key, err)
	}
	return nil
}
