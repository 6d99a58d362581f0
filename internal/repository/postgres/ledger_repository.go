package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository implements ledger.Repository using PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create appends a ledger transaction. The unique index on
// (order_number, entry_type) turns a replayed settlement into
// ErrDuplicateTransaction instead of a double credit.
func (r *LedgerRepository) Create(ctx context.Context, tx *ledger.Transaction) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO transactions
		 (id, transaction_number, order_number, reseller_id, entry_type,
		  amount, currency, status, provider, provider_ref, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		tx.ID, tx.TransactionNumber, tx.OrderNumber, tx.ResellerID, string(tx.EntryType),
		koboToNumeric(tx.Amount), tx.Currency, string(tx.Status),
		tx.Provider, tx.ProviderRef, tx.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByOrderNumber retrieves all entries recorded for an order.
func (r *LedgerRepository) GetByOrderNumber(ctx context.Context, orderNumber string) ([]*ledger.Transaction, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, transaction_number, order_number, reseller_id, entry_type,
		        amount, currency, status, provider, provider_ref, created_at
		 FROM transactions WHERE order_number = $1 ORDER BY created_at ASC`, orderNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions by order: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

// ListByReseller retrieves a reseller's entries, newest first.
func (r *LedgerRepository) ListByReseller(ctx context.Context, resellerID uuid.UUID, limit, offset int) ([]*ledger.Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, transaction_number, order_number, reseller_id, entry_type,
		        amount, currency, status, provider, provider_ref, created_at
		 FROM transactions WHERE reseller_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		resellerID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list transactions by reseller: %w", err)
	}
	defer rows.Close()
	return r.collect(rows)
}

func (r *LedgerRepository) collect(rows pgx.Rows) ([]*ledger.Transaction, error) {
	var txns []*ledger.Transaction
	for rows.Next() {
		tx := &ledger.Transaction{}
		var (
			entryType string
			amountStr string
			status    string
		)
		if err := rows.Scan(&tx.ID, &tx.TransactionNumber, &tx.OrderNumber, &tx.ResellerID, &entryType,
			&amountStr, &tx.Currency, &status, &tx.Provider, &tx.ProviderRef, &tx.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		kobo, err := numericToKobo(amountStr)
		if err != nil {
			return nil, fmt.Errorf("parse transaction amount: %w", err)
		}
		tx.Amount = kobo
		tx.EntryType = ledger.EntryType(entryType)
		tx.Status = ledger.EntryStatus(status)
		txns = append(txns, tx)
	}
	return txns, rows.Err()
}
