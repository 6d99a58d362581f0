package postgres

import (
	"context"
	"errors"
	"fmt"

	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/datavend/backend/internal/domain/reseller"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResellerRepository implements reseller.Repository using PostgreSQL.
type ResellerRepository struct {
	pool *pgxpool.Pool
}

// NewResellerRepository creates a new ResellerRepository.
func NewResellerRepository(pool *pgxpool.Pool) *ResellerRepository {
	return &ResellerRepository{pool: pool}
}

func (r *ResellerRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanReseller scans a reseller from any source implementing the scanner interface.
func (r *ResellerRepository) scanReseller(s scanner) (*reseller.Reseller, error) {
	rs := &reseller.Reseller{}
	var (
		status      string
		earningsStr string
		salesStr    string
	)
	err := s.Scan(&rs.ID, &rs.BusinessName, &rs.Email, &rs.Phone, &rs.ReferralCode,
		&status, &earningsStr, &salesStr, &rs.TotalOrders, &rs.CreatedAt, &rs.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrResellerNotFound
		}
		return nil, fmt.Errorf("scan reseller: %w", err)
	}

	if rs.TotalEarnings, err = numericToKobo(earningsStr); err != nil {
		return nil, fmt.Errorf("parse total_earnings: %w", err)
	}
	if rs.TotalSales, err = numericToKobo(salesStr); err != nil {
		return nil, fmt.Errorf("parse total_sales: %w", err)
	}
	rs.Status = reseller.ResellerStatus(status)
	return rs, nil
}

// Create inserts a new reseller.
func (r *ResellerRepository) Create(ctx context.Context, rs *reseller.Reseller) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO resellers (id, business_name, email, phone, referral_code, status,
		  total_earnings, total_sales, total_orders, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rs.ID, rs.BusinessName, rs.Email, rs.Phone, rs.ReferralCode, string(rs.Status),
		koboToNumeric(rs.TotalEarnings), koboToNumeric(rs.TotalSales),
		rs.TotalOrders, rs.CreatedAt, rs.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert reseller: %w", err)
	}
	return nil
}

// GetByID retrieves a reseller by its ID.
func (r *ResellerRepository) GetByID(ctx context.Context, id uuid.UUID) (*reseller.Reseller, error) {
	return r.scanReseller(r.db(ctx).QueryRow(ctx,
		`SELECT id, business_name, email, phone, referral_code, status,
		        total_earnings, total_sales, total_orders, created_at, updated_at
		 FROM resellers WHERE id = $1`, id))
}

// GetByReferralCode retrieves a reseller by storefront code.
func (r *ResellerRepository) GetByReferralCode(ctx context.Context, code string) (*reseller.Reseller, error) {
	return r.scanReseller(r.db(ctx).QueryRow(ctx,
		`SELECT id, business_name, email, phone, referral_code, status,
		        total_earnings, total_sales, total_orders, created_at, updated_at
		 FROM resellers WHERE referral_code = $1`, code))
}

// IncrementTotals credits a settled order with a single atomic increment.
// Reading the row and writing back a computed balance would lose updates under
// concurrent settlements; the addition has to happen in the database.
func (r *ResellerRepository) IncrementTotals(ctx context.Context, id uuid.UUID, earnings, sales int64) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE resellers SET
		  total_earnings = total_earnings + $1,
		  total_sales = total_sales + $2,
		  total_orders = total_orders + 1,
		  updated_at = NOW()
		 WHERE id = $3`,
		koboToNumeric(earnings), koboToNumeric(sales), id,
	)
	if err != nil {
		return fmt.Errorf("increment reseller totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrResellerNotFound
	}
	return nil
}

// Update updates an existing reseller's profile and status. Accumulator
// columns are deliberately excluded; they only move via IncrementTotals.
func (r *ResellerRepository) Update(ctx context.Context, rs *reseller.Reseller) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE resellers SET business_name = $1, email = $2, phone = $3, status = $4, updated_at = $5
		 WHERE id = $6`,
		rs.BusinessName, rs.Email, rs.Phone, string(rs.Status), rs.UpdatedAt, rs.ID,
	)
	if err != nil {
		return fmt.Errorf("update reseller: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrResellerNotFound
	}
	return nil
}
