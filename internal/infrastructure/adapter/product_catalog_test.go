package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

type mockProductCatalog struct {
	findProductFunc func(ctx context.Context, tenantID, productID string) (model.LoanProduct, error)
	calls           int
}

func (m *mockProductCatalog) FindProduct(ctx context.Context, tenantID, productID string) (model.LoanProduct, error) {
	m.calls++
	return m.findProductFunc(ctx, tenantID, productID)
}

func regularLoanProduct() model.LoanProduct {
	return model.LoanProduct{
		ID:                    "prod-regular",
		TenantID:              "tenant-1",
		Name:                  "Regular Loan",
		Currency:              money.PHP,
		InterestRate:          decimal.RequireFromString("0.015"),
		InterestMethod:        valueobject.InterestMethodDiminishingBalance,
		ProcessingFeeRate:     decimal.RequireFromString("0.02"),
		ServiceFeeRate:        decimal.RequireFromString("0.01"),
		MinPrincipal:          100_000,
		MaxPrincipal:          100_000_000,
		MinTermMonths:         1,
		MaxTermMonths:         36,
		AllowedIntervals:      []valueobject.PaymentInterval{valueobject.IntervalMonthly, valueobject.IntervalWeekly},
		LatePenaltyRate:       decimal.RequireFromString("0.02"),
		NonPaymentPenaltyRate: decimal.RequireFromString("0.05"),
		Active:                true,
	}
}

func newCachedCatalog(t *testing.T, ttl time.Duration) (*CachedProductCatalog, *mockProductCatalog, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := &mockProductCatalog{
		findProductFunc: func(_ context.Context, _, productID string) (model.LoanProduct, error) {
			if productID != "prod-regular" {
				return model.LoanProduct{}, valueobject.NotFound("loan product", productID)
			}
			return regularLoanProduct(), nil
		},
	}
	return NewCachedProductCatalog(inner, client, ttl, discardLogger()), inner, mr
}

func TestCachedProductCatalog_MissThenHit(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t, 10*time.Minute)
	ctx := context.Background()

	first, err := catalog.FindProduct(ctx, "tenant-1", "prod-regular")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.True(t, mr.Exists(productCacheKey("tenant-1", "prod-regular")))
	assert.Equal(t, 10*time.Minute, mr.TTL(productCacheKey("tenant-1", "prod-regular")))

	second, err := catalog.FindProduct(ctx, "tenant-1", "prod-regular")
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls, "second lookup is served from cache")

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.Currency, second.Currency)
	assert.True(t, first.InterestRate.Equal(second.InterestRate))
	assert.True(t, first.NonPaymentPenaltyRate.Equal(second.NonPaymentPenaltyRate))
	assert.Equal(t, first.MaxPrincipal, second.MaxPrincipal)
	assert.Equal(t, first.AllowedIntervals, second.AllowedIntervals)
	assert.True(t, second.Active)
}

func TestCachedProductCatalog_ExpiredEntryReloads(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t, time.Minute)
	ctx := context.Background()

	_, err := catalog.FindProduct(ctx, "tenant-1", "prod-regular")
	require.NoError(t, err)
	mr.FastForward(2 * time.Minute)

	_, err = catalog.FindProduct(ctx, "tenant-1", "prod-regular")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProductCatalog_NotFoundIsNotCached(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t, time.Minute)
	ctx := context.Background()

	_, err := catalog.FindProduct(ctx, "tenant-1", "prod-missing")
	assert.ErrorIs(t, err, valueobject.ErrNotFound)
	assert.False(t, mr.Exists(productCacheKey("tenant-1", "prod-missing")))

	_, err = catalog.FindProduct(ctx, "tenant-1", "prod-missing")
	assert.ErrorIs(t, err, valueobject.ErrNotFound)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProductCatalog_TenantScopedKeys(t *testing.T) {
	catalog, inner, _ := newCachedCatalog(t, time.Minute)
	ctx := context.Background()

	_, err := catalog.FindProduct(ctx, "tenant-1", "prod-regular")
	require.NoError(t, err)
	_, err = catalog.FindProduct(ctx, "tenant-2", "prod-regular")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProductCatalog_CorruptEntryFallsThrough(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t, time.Minute)
	require.NoError(t, mr.Set(productCacheKey("tenant-1", "prod-regular"), "{not json"))

	p, err := catalog.FindProduct(context.Background(), "tenant-1", "prod-regular")
	require.NoError(t, err)
	assert.Equal(t, "prod-regular", p.ID)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProductCatalog_RedisDownDegrades(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t, time.Minute)
	mr.Close()

	p, err := catalog.FindProduct(context.Background(), "tenant-1", "prod-regular")
	require.NoError(t, err)
	assert.Equal(t, "prod-regular", p.ID)
	assert.Equal(t, 1, inner.calls)
}

func TestCachedProductCatalog_Invalidate(t *testing.T) {
	catalog, inner, mr := newCachedCatalog(t, time.Minute)
	ctx := context.Background()

	_, err := catalog.FindProduct(ctx, "tenant-1", "prod-regular")
	require.NoError(t, err)
	require.NoError(t, catalog.Invalidate(ctx, "tenant-1", "prod-regular"))
	assert.False(t, mr.Exists(productCacheKey("tenant-1", "prod-regular")))

	_, err = catalog.FindProduct(ctx, "tenant-1", "prod-regular")
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}
