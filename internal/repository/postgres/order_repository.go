package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/order"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const orderColumns = `id, order_number, reseller_id, bundle_id, customer_phone, quantity,
	        amount, commission, currency, status, payment_status,
	        payment_channel, gateway_tx_id, paid_at, created_at, updated_at`

// OrderRepository implements order.Repository using PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new order.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO orders
		 (id, order_number, reseller_id, bundle_id, customer_phone, quantity,
		  amount, commission, currency, status, payment_status,
		  payment_channel, gateway_tx_id, paid_at, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		o.ID, o.OrderNumber, o.ResellerID, o.BundleID, o.CustomerPhone, o.Quantity,
		koboToNumeric(o.Amount), koboToNumeric(o.Commission), o.Currency,
		string(o.Status), string(o.PaymentStatus),
		o.PaymentChannel, o.GatewayTxID, o.PaidAt, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// GetByID retrieves an order by its ID.
func (r *OrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

// GetByOrderNumber retrieves an order by its gateway reference.
func (r *OrderRepository) GetByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.scanOrder(r.db(ctx).QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber))
}

// MarkPaid persists a settled order, guarded on the row still being pending.
// The WHERE clause is the authoritative duplicate-settlement guard: a replayed
// event or a racing worker hits zero rows and reports false.
func (r *OrderRepository) MarkPaid(ctx context.Context, o *order.Order) (bool, error) {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET
		  status=$1, payment_status=$2, payment_channel=$3,
		  gateway_tx_id=$4, paid_at=$5, updated_at=$6
		 WHERE id=$7 AND payment_status='pending'`,
		string(o.Status), string(o.PaymentStatus), o.PaymentChannel,
		o.GatewayTxID, o.PaidAt, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return false, fmt.Errorf("mark order paid: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Update updates an existing order.
func (r *OrderRepository) Update(ctx context.Context, o *order.Order) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET
		  status=$1, payment_status=$2, payment_channel=$3,
		  gateway_tx_id=$4, paid_at=$5, updated_at=$6
		 WHERE id=$7`,
		string(o.Status), string(o.PaymentStatus), o.PaymentChannel,
		o.GatewayTxID, o.PaidAt, o.UpdatedAt, o.ID,
	)
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrOrderNotFound
	}
	return nil
}

// List lists orders with optional filters.
func (r *OrderRepository) List(ctx context.Context, f order.ListFilter) ([]*order.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []any{}
	argIdx := 1

	if f.ResellerID != nil {
		query += fmt.Sprintf(" AND reseller_id = $%d", argIdx)
		args = append(args, *f.ResellerID)
		argIdx++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, string(*f.Status))
		argIdx++
	}
	if f.PaymentStatus != nil {
		query += fmt.Sprintf(" AND payment_status = $%d", argIdx)
		args = append(args, string(*f.PaymentStatus))
		argIdx++
	}

	query += " ORDER BY created_at DESC"

	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, limit, f.Offset)

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// scanOrder scans an order from any source implementing the scanner interface.
func (r *OrderRepository) scanOrder(s scanner) (*order.Order, error) {
	o := &order.Order{}
	var (
		amountStr     string
		commissionStr string
		status        string
		paymentStatus string
	)
	err := s.Scan(
		&o.ID, &o.OrderNumber, &o.ResellerID, &o.BundleID, &o.CustomerPhone, &o.Quantity,
		&amountStr, &commissionStr, &o.Currency, &status, &paymentStatus,
		&o.PaymentChannel, &o.GatewayTxID, &o.PaidAt, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrOrderNotFound
		}
		return nil, fmt.Errorf("scan order: %w", err)
	}

	if o.Amount, err = numericToKobo(amountStr); err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	if o.Commission, err = numericToKobo(commissionStr); err != nil {
		return nil, fmt.Errorf("parse commission: %w", err)
	}
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, nil
}
