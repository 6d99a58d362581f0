package postgres

import (
	"context"
	"fmt"

	"github.com/datavend/backend/internal/domain/bundle"
	domainErrors "github.com/datavend/backend/internal/domain/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BundleRepository implements bundle.Repository using PostgreSQL.
type BundleRepository struct {
	pool *pgxpool.Pool
}

// NewBundleRepository creates a new BundleRepository.
func NewBundleRepository(pool *pgxpool.Pool) *BundleRepository {
	return &BundleRepository{pool: pool}
}

func (r *BundleRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanBundle scans a bundle from any source implementing the scanner interface.
func (r *BundleRepository) scanBundle(s scanner) (*bundle.Bundle, error) {
	b := &bundle.Bundle{}
	var (
		network       string
		basePriceStr  string
		commissionStr string
	)
	err := s.Scan(&b.ID, &b.Name, &network, &b.DataMB, &b.ValidityDays,
		&basePriceStr, &commissionStr, &b.Currency, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrBundleNotFound
		}
		return nil, fmt.Errorf("scan bundle: %w", err)
	}

	if b.BasePrice, err = numericToKobo(basePriceStr); err != nil {
		return nil, fmt.Errorf("parse base_price: %w", err)
	}
	if b.Commission, err = numericToKobo(commissionStr); err != nil {
		return nil, fmt.Errorf("parse commission: %w", err)
	}
	b.Network = bundle.Network(network)
	return b, nil
}

// GetByID retrieves a bundle by its ID.
func (r *BundleRepository) GetByID(ctx context.Context, id uuid.UUID) (*bundle.Bundle, error) {
	return r.scanBundle(r.db(ctx).QueryRow(ctx,
		`SELECT id, name, network, data_mb, validity_days,
		        base_price, commission, currency, active, created_at, updated_at
		 FROM bundles WHERE id = $1`, id))
}

// ListActive lists bundles currently on sale.
func (r *BundleRepository) ListActive(ctx context.Context) ([]*bundle.Bundle, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, name, network, data_mb, validity_days,
		        base_price, commission, currency, active, created_at, updated_at
		 FROM bundles WHERE active ORDER BY network, data_mb`)
	if err != nil {
		return nil, fmt.Errorf("list bundles: %w", err)
	}
	defer rows.Close()

	var bundles []*bundle.Bundle
	for rows.Next() {
		b, err := r.scanBundle(rows)
		if err != nil {
			return nil, err
		}
		bundles = append(bundles, b)
	}
	return bundles, rows.Err()
}
