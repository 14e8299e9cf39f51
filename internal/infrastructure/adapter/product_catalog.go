package adapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/port"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
	pgpkg "github.com/jehnsen/coop-lending/pkg/postgres"
)

var (
	_ port.ProductCatalog = (*PostgresProductCatalog)(nil)
	_ port.ProductCatalog = (*CachedProductCatalog)(nil)
)

// productRecord is the flat form of a product, shared by the SQL scan and
// the cache entry.
type productRecord struct {
	ID                      string          `json:"id"`
	TenantID                string          `json:"tenant_id"`
	Name                    string          `json:"name"`
	Currency                string          `json:"currency"`
	InterestRate            decimal.Decimal `json:"interest_rate"`
	InterestMethod          string          `json:"interest_method"`
	ProcessingFeeRate       decimal.Decimal `json:"processing_fee_rate"`
	ServiceFeeRate          decimal.Decimal `json:"service_fee_rate"`
	MinPrincipal            int64           `json:"min_principal"`
	MaxPrincipal            int64           `json:"max_principal"`
	MinTermMonths           int             `json:"min_term_months"`
	MaxTermMonths           int             `json:"max_term_months"`
	AllowedIntervals        []string        `json:"allowed_intervals"`
	LatePenaltyRate         decimal.Decimal `json:"late_penalty_rate"`
	NonPaymentPenaltyRate   decimal.Decimal `json:"non_payment_penalty_rate"`
	NonPaymentThresholdDays int             `json:"non_payment_threshold_days"`
	Active                  bool            `json:"active"`
}

func recordFromProduct(p model.LoanProduct) productRecord {
	intervals := make([]string, len(p.AllowedIntervals))
	for i, iv := range p.AllowedIntervals {
		intervals[i] = iv.String()
	}
	return productRecord{
		ID:                      p.ID,
		TenantID:                p.TenantID,
		Name:                    p.Name,
		Currency:                p.Currency.Code(),
		InterestRate:            p.InterestRate,
		InterestMethod:          p.InterestMethod.String(),
		ProcessingFeeRate:       p.ProcessingFeeRate,
		ServiceFeeRate:          p.ServiceFeeRate,
		MinPrincipal:            int64(p.MinPrincipal),
		MaxPrincipal:            int64(p.MaxPrincipal),
		MinTermMonths:           p.MinTermMonths,
		MaxTermMonths:           p.MaxTermMonths,
		AllowedIntervals:        intervals,
		LatePenaltyRate:         p.LatePenaltyRate,
		NonPaymentPenaltyRate:   p.NonPaymentPenaltyRate,
		NonPaymentThresholdDays: p.NonPaymentThresholdDays,
		Active:                  p.Active,
	}
}

func (r productRecord) toProduct() (model.LoanProduct, error) {
	currency, err := money.NewCurrency(r.Currency)
	if err != nil {
		return model.LoanProduct{}, fmt.Errorf("product %s: %w", r.ID, err)
	}
	method, err := valueobject.NewInterestMethod(r.InterestMethod)
	if err != nil {
		return model.LoanProduct{}, fmt.Errorf("product %s: %w", r.ID, err)
	}
	intervals := make([]valueobject.PaymentInterval, 0, len(r.AllowedIntervals))
	for _, s := range r.AllowedIntervals {
		iv, err := valueobject.NewPaymentInterval(s)
		if err != nil {
			return model.LoanProduct{}, fmt.Errorf("product %s: %w", r.ID, err)
		}
		intervals = append(intervals, iv)
	}

	return model.LoanProduct{
		ID:                      r.ID,
		TenantID:                r.TenantID,
		Name:                    r.Name,
		Currency:                currency,
		InterestRate:            r.InterestRate,
		InterestMethod:          method,
		ProcessingFeeRate:       r.ProcessingFeeRate,
		ServiceFeeRate:          r.ServiceFeeRate,
		MinPrincipal:            money.Amount(r.MinPrincipal),
		MaxPrincipal:            money.Amount(r.MaxPrincipal),
		MinTermMonths:           r.MinTermMonths,
		MaxTermMonths:           r.MaxTermMonths,
		AllowedIntervals:        intervals,
		LatePenaltyRate:         r.LatePenaltyRate,
		NonPaymentPenaltyRate:   r.NonPaymentPenaltyRate,
		NonPaymentThresholdDays: r.NonPaymentThresholdDays,
		Active:                  r.Active,
	}, nil
}

// ---------------------------------------------------------------------------
// Postgres catalog
// ---------------------------------------------------------------------------

// PostgresProductCatalog reads the loan_products table.
type PostgresProductCatalog struct {
	db pgpkg.Querier
}

// NewPostgresProductCatalog creates a catalog over a pool or transaction.
func NewPostgresProductCatalog(db pgpkg.Querier) *PostgresProductCatalog {
	return &PostgresProductCatalog{db: db}
}

// FindProduct implements port.ProductCatalog.
func (c *PostgresProductCatalog) FindProduct(ctx context.Context, tenantID, productID string) (model.LoanProduct, error) {
	var r productRecord
	err := c.db.QueryRow(ctx, `
		SELECT id, tenant_id, name, currency, interest_rate, interest_method,
		       processing_fee_rate, service_fee_rate, min_principal, max_principal,
		       min_term_months, max_term_months, allowed_intervals,
		       late_penalty_rate, non_payment_penalty_rate, non_payment_threshold_days, active
		FROM loan_products
		WHERE tenant_id = $1 AND id = $2
	`, tenantID, productID).Scan(
		&r.ID, &r.TenantID, &r.Name, &r.Currency, &r.InterestRate, &r.InterestMethod,
		&r.ProcessingFeeRate, &r.ServiceFeeRate, &r.MinPrincipal, &r.MaxPrincipal,
		&r.MinTermMonths, &r.MaxTermMonths, &r.AllowedIntervals,
		&r.LatePenaltyRate, &r.NonPaymentPenaltyRate, &r.NonPaymentThresholdDays, &r.Active,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.LoanProduct{}, valueobject.NotFound("loan product", productID)
	}
	if err != nil {
		return model.LoanProduct{}, fmt.Errorf("query loan product: %w", err)
	}
	return r.toProduct()
}

// ---------------------------------------------------------------------------
// Redis read-through cache
// ---------------------------------------------------------------------------

// CachedProductCatalog serves products from Redis and falls back to the
// wrapped catalog on a miss. Redis failures degrade to the fallback.
type CachedProductCatalog struct {
	next   port.ProductCatalog
	client redis.UniversalClient
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachedProductCatalog wraps next with a cache whose entries live for ttl.
func NewCachedProductCatalog(next port.ProductCatalog, client redis.UniversalClient, ttl time.Duration, logger *slog.Logger) *CachedProductCatalog {
	return &CachedProductCatalog{next: next, client: client, ttl: ttl, logger: logger}
}

func productCacheKey(tenantID, productID string) string {
	return "lending:product:" + tenantID + ":" + productID
}

// FindProduct implements port.ProductCatalog.
func (c *CachedProductCatalog) FindProduct(ctx context.Context, tenantID, productID string) (model.LoanProduct, error) {
	key := productCacheKey(tenantID, productID)

	val, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var r productRecord
		if jsonErr := json.Unmarshal(val, &r); jsonErr == nil {
			if p, convErr := r.toProduct(); convErr == nil {
				return p, nil
			}
		}
		c.logger.Warn("discarding unreadable product cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("product cache read failed", "key", key, "error", err)
	}

	product, err := c.next.FindProduct(ctx, tenantID, productID)
	if err != nil {
		return model.LoanProduct{}, err
	}

	data, err := json.Marshal(recordFromProduct(product))
	if err != nil {
		return product, nil
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("product cache write failed", "key", key, "error", err)
	}
	return product, nil
}

// Invalidate drops a cached product after it changes.
func (c *CachedProductCatalog) Invalidate(ctx context.Context, tenantID, productID string) error {
	return c.client.Del(ctx, productCacheKey(tenantID, productID)).Err()
}
