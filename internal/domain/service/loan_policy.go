package service

import (
	"github.com/jehnsen/coop-lending/internal/domain/model"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// ---------------------------------------------------------------------------
// LoanPolicy – domain service for product eligibility and fees
// ---------------------------------------------------------------------------

// LoanTerms is the priced outcome of checking a request against a product.
type LoanTerms struct {
	ProcessingFee money.Amount
	ServiceFee    money.Amount
	NetProceeds   money.Amount
}

// LoanRequest is what a member asks for.
type LoanRequest struct {
	Principal  money.Amount
	TermMonths int
	Interval   valueobject.PaymentInterval
}

// LoanPolicy checks a request against a product's limits and prices it.
type LoanPolicy struct{}

// NewLoanPolicy returns a new policy instance.
func NewLoanPolicy() *LoanPolicy {
	return &LoanPolicy{}
}

// Evaluate validates the request and computes fees.
//
// Rules:
//
//	product must be active and use the diminishing-balance method
//	min ≤ principal ≤ max   (a zero bound is unbounded)
//	min ≤ term ≤ max        (a zero bound is unbounded)
//	interval must be allowed by the product
//	fee = round_half_up(principal × fee rate), net = principal − fees > 0
func (p *LoanPolicy) Evaluate(product model.LoanProduct, req LoanRequest) (LoanTerms, error) {
	if !product.Active {
		return LoanTerms{}, valueobject.NewValidationError("product_id", "product %s is not offered", product.ID)
	}
	if !product.InterestMethod.Equal(valueobject.InterestMethodDiminishingBalance) {
		return LoanTerms{}, valueobject.NewValidationError("product_id",
			"interest method %q is not supported", product.InterestMethod.String())
	}
	if !product.InterestRate.IsPositive() {
		return LoanTerms{}, valueobject.NewValidationError("interest_rate", "product rate must be positive")
	}
	if !req.Principal.IsPositive() {
		return LoanTerms{}, valueobject.NewValidationError("principal", "principal must be positive")
	}
	if product.MinPrincipal.IsPositive() && req.Principal < product.MinPrincipal {
		return LoanTerms{}, valueobject.NewValidationError("principal",
			"principal %s below product minimum %s", req.Principal, product.MinPrincipal)
	}
	if product.MaxPrincipal.IsPositive() && req.Principal > product.MaxPrincipal {
		return LoanTerms{}, valueobject.NewValidationError("principal",
			"principal %s above product maximum %s", req.Principal, product.MaxPrincipal)
	}
	if req.TermMonths <= 0 {
		return LoanTerms{}, valueobject.NewValidationError("term_months", "term must be positive")
	}
	if product.MinTermMonths > 0 && req.TermMonths < product.MinTermMonths {
		return LoanTerms{}, valueobject.NewValidationError("term_months",
			"term %d below product minimum %d", req.TermMonths, product.MinTermMonths)
	}
	if product.MaxTermMonths > 0 && req.TermMonths > product.MaxTermMonths {
		return LoanTerms{}, valueobject.NewValidationError("term_months",
			"term %d above product maximum %d", req.TermMonths, product.MaxTermMonths)
	}
	if !product.AllowsInterval(req.Interval) {
		return LoanTerms{}, valueobject.NewValidationError("interval",
			"interval %q not allowed by product", req.Interval.String())
	}

	terms := LoanTerms{
		ProcessingFee: req.Principal.MulRate(product.ProcessingFeeRate),
		ServiceFee:    req.Principal.MulRate(product.ServiceFeeRate),
	}
	terms.NetProceeds = req.Principal - terms.ProcessingFee - terms.ServiceFee
	if !terms.NetProceeds.IsPositive() {
		return LoanTerms{}, valueobject.NewValidationError("principal", "fees consume the whole principal")
	}
	return terms, nil
}
