package model

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// DefaultNonPaymentThresholdDays is the day count at which an overdue row
// moves from the late-payment tier to the non-payment tier.
const DefaultNonPaymentThresholdDays = 30

// LoanProduct is the read-only product configuration a loan is priced from.
type LoanProduct struct {
	ID                      string
	TenantID                string
	Name                    string
	Currency                money.Currency
	InterestRate            decimal.Decimal // periodic rate, e.g. 0.015
	InterestMethod          valueobject.InterestMethod
	ProcessingFeeRate       decimal.Decimal
	ServiceFeeRate          decimal.Decimal
	MinPrincipal            money.Amount
	MaxPrincipal            money.Amount
	MinTermMonths           int
	MaxTermMonths           int
	AllowedIntervals        []valueobject.PaymentInterval
	LatePenaltyRate         decimal.Decimal
	NonPaymentPenaltyRate   decimal.Decimal
	NonPaymentThresholdDays int
	Active                  bool
}

// AllowsInterval reports whether the product accepts the given interval. A
// product with no configured intervals accepts monthly only.
func (p LoanProduct) AllowsInterval(iv valueobject.PaymentInterval) bool {
	if len(p.AllowedIntervals) == 0 {
		return iv.Equal(valueobject.IntervalMonthly)
	}
	return slices.ContainsFunc(p.AllowedIntervals, iv.Equal)
}

// Threshold returns the non-payment threshold, falling back to the default.
func (p LoanProduct) Threshold() int {
	if p.NonPaymentThresholdDays <= 0 {
		return DefaultNonPaymentThresholdDays
	}
	return p.NonPaymentThresholdDays
}
