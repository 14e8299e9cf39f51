package usecase_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/jehnsen/coop-lending/internal/application/dto"
	"github.com/jehnsen/coop-lending/internal/application/usecase"
	"github.com/jehnsen/coop-lending/internal/domain/service"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

func TestQuoteLoan_Execute(t *testing.T) {
	f := newFixture()

	resp, err := f.quote.Execute(context.Background(), dto.QuoteRequest{
		TenantID:         tenantID,
		ProductID:        "prod-regular",
		Principal:        1_000_000,
		TermMonths:       12,
		FirstPaymentDate: date(2026, 2, 1),
	})

	require.NoError(t, err)
	assert.Equal(t, money.Amount(91_680), resp.Installment)
	assert.Equal(t, money.Amount(100_161), resp.TotalInterest)
	assert.Equal(t, money.Amount(970_000), resp.NetProceeds)
	assert.Len(t, resp.Schedule, 12)
	assert.Empty(t, f.store.Outbox(), "quotes write nothing")

	_, err = f.quote.Execute(context.Background(), dto.QuoteRequest{
		TenantID: tenantID, ProductID: "prod-regular", Principal: 1_000_000, TermMonths: 0,
	})
	assert.ErrorIs(t, err, valueobject.ErrValidation)
}

func TestQuoteLoan_TracesAndLogs(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))

	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	quote := usecase.NewQuoteLoanUseCase(&mockProductCatalog{}, service.NewLoanPolicy(), logger)

	_, err := quote.Execute(context.Background(), dto.QuoteRequest{
		TenantID: tenantID, ProductID: "prod-regular", Principal: 1_000_000, TermMonths: 12,
		FirstPaymentDate: date(2026, 2, 1),
	})
	require.NoError(t, err)
	assert.Contains(t, logs.String(), `"msg":"loan quoted"`)
	assert.Contains(t, logs.String(), `"product_id":"prod-regular"`)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Contains(t, names, "QuoteLoan")
}
