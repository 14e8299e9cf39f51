package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jehnsen/coop-lending/internal/domain/event"
	"github.com/jehnsen/coop-lending/internal/domain/valueobject"
	"github.com/jehnsen/coop-lending/pkg/money"
)

// ---------------------------------------------------------------------------
// Loan aggregate root
// ---------------------------------------------------------------------------

// Loan is an immutable aggregate owning its repayment schedule. Mutations
// return a new copy.
type Loan struct {
	id                   string
	tenantID             string
	loanNumber           string
	memberID             string
	productID            string
	currency             money.Currency
	principal            money.Amount
	interestRate         decimal.Decimal
	interestMethod       valueobject.InterestMethod
	termMonths           int
	interval             valueobject.PaymentInterval
	status               valueobject.LoanStatus
	processingFee        money.Amount
	serviceFee           money.Amount
	netProceeds          money.Amount
	totalInterest        money.Amount
	totalPayable         money.Amount
	installment          money.Amount
	outstandingBalance   money.Amount
	principalPaid        money.Amount
	interestPaid         money.Amount
	penaltyPaid          money.Amount
	penaltiesOutstanding money.Amount
	applicationDate      time.Time
	approvalDate         *time.Time
	rejectionDate        *time.Time
	disbursementDate     *time.Time
	firstPaymentDate     *time.Time
	maturityDate         *time.Time
	closedDate           *time.Time
	rejectionReason      string
	approvalNotes        string
	purpose              string
	appliedBy            Actor
	approvedBy           Actor
	rejectedBy           Actor
	disbursedBy          Actor
	schedule             []ScheduleRow
	version              int
	createdAt            time.Time
	updatedAt            time.Time
	domainEvents         []event.DomainEvent
}

// ---------------------------------------------------------------------------
// Constructors
// ---------------------------------------------------------------------------

// NewLoanParams carries everything apply needs to create a loan.
type NewLoanParams struct {
	TenantID        string
	LoanNumber      string
	MemberID        string
	ProductID       string
	Currency        money.Currency
	Principal       money.Amount
	InterestRate    decimal.Decimal
	InterestMethod  valueobject.InterestMethod
	TermMonths      int
	Interval        valueobject.PaymentInterval
	ProcessingFee   money.Amount
	ServiceFee      money.Amount
	Purpose         string
	Schedule        Schedule
	AppliedBy       Actor
	ApplicationDate time.Time
}

// NewLoan creates a pending loan together with its schedule rows, all pending.
func NewLoan(p NewLoanParams) (Loan, error) {
	switch {
	case p.TenantID == "":
		return Loan{}, valueobject.NewValidationError("tenant_id", "tenant ID is required")
	case p.MemberID == "":
		return Loan{}, valueobject.NewValidationError("member_id", "member ID is required")
	case p.ProductID == "":
		return Loan{}, valueobject.NewValidationError("product_id", "product ID is required")
	case p.LoanNumber == "":
		return Loan{}, valueobject.NewValidationError("loan_number", "loan number is required")
	case !p.Principal.IsPositive():
		return Loan{}, valueobject.NewValidationError("principal", "principal must be positive")
	case p.TermMonths <= 0:
		return Loan{}, valueobject.NewValidationError("term_months", "term must be positive")
	case len(p.Schedule.Rows) == 0:
		return Loan{}, valueobject.NewValidationError("schedule", "schedule has no rows")
	case p.AppliedBy.IsZero():
		return Loan{}, valueobject.NewValidationError("actor", "actor is required")
	}

	net := p.Principal - p.ProcessingFee - p.ServiceFee
	if !net.IsPositive() {
		return Loan{}, valueobject.NewValidationError("principal", "fees %s consume the whole principal", p.ProcessingFee+p.ServiceFee)
	}

	id := uuid.New().String()
	now := p.ApplicationDate.UTC()

	rows := copyRows(p.Schedule.Rows)
	for i := range rows {
		rows[i].ID = uuid.New().String()
		rows[i].LoanID = id
		rows[i].TenantID = p.TenantID
		rows[i].Status = valueobject.ScheduleStatusPending
	}

	loan := Loan{
		id:                 id,
		tenantID:           p.TenantID,
		loanNumber:         p.LoanNumber,
		memberID:           p.MemberID,
		productID:          p.ProductID,
		currency:           p.Currency,
		principal:          p.Principal,
		interestRate:       p.InterestRate,
		interestMethod:     p.InterestMethod,
		termMonths:         p.TermMonths,
		interval:           p.Interval,
		status:             valueobject.LoanStatusPending,
		processingFee:      p.ProcessingFee,
		serviceFee:         p.ServiceFee,
		netProceeds:        net,
		totalInterest:      p.Schedule.TotalInterest,
		totalPayable:       p.Schedule.TotalPayable,
		installment:        p.Schedule.Installment,
		outstandingBalance: p.Schedule.TotalPayable,
		applicationDate:    now,
		purpose:            p.Purpose,
		appliedBy:          p.AppliedBy,
		schedule:           rows,
		version:            1,
		createdAt:          now,
		updatedAt:          now,
	}

	loan.domainEvents = append(loan.domainEvents, event.NewLoanApplied(
		id, p.TenantID, p.LoanNumber, p.MemberID, p.ProductID,
		p.Principal, p.Currency.Code(), p.TermMonths, p.Interval.String(),
		loan.totalPayable, p.AppliedBy.ID, now,
	))

	return loan, nil
}

// LoanSnapshot is the flat persisted form of a Loan.
type LoanSnapshot struct {
	ID                   string
	TenantID             string
	LoanNumber           string
	MemberID             string
	ProductID            string
	Currency             money.Currency
	Principal            money.Amount
	InterestRate         decimal.Decimal
	InterestMethod       valueobject.InterestMethod
	TermMonths           int
	Interval             valueobject.PaymentInterval
	Status               valueobject.LoanStatus
	ProcessingFee        money.Amount
	ServiceFee           money.Amount
	NetProceeds          money.Amount
	TotalInterest        money.Amount
	TotalPayable         money.Amount
	Installment          money.Amount
	OutstandingBalance   money.Amount
	PrincipalPaid        money.Amount
	InterestPaid         money.Amount
	PenaltyPaid          money.Amount
	PenaltiesOutstanding money.Amount
	ApplicationDate      time.Time
	ApprovalDate         *time.Time
	RejectionDate        *time.Time
	DisbursementDate     *time.Time
	FirstPaymentDate     *time.Time
	MaturityDate         *time.Time
	ClosedDate           *time.Time
	RejectionReason      string
	ApprovalNotes        string
	Purpose              string
	AppliedBy            Actor
	ApprovedBy           Actor
	RejectedBy           Actor
	DisbursedBy          Actor
	Schedule             []ScheduleRow
	Version              int
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// ReconstructLoan rebuilds a Loan aggregate from persistence (no validation,
// no events).
func ReconstructLoan(s LoanSnapshot) Loan {
	return Loan{
		id:                   s.ID,
		tenantID:             s.TenantID,
		loanNumber:           s.LoanNumber,
		memberID:             s.MemberID,
		productID:            s.ProductID,
		currency:             s.Currency,
		principal:            s.Principal,
		interestRate:         s.InterestRate,
		interestMethod:       s.InterestMethod,
		termMonths:           s.TermMonths,
		interval:             s.Interval,
		status:               s.Status,
		processingFee:        s.ProcessingFee,
		serviceFee:           s.ServiceFee,
		netProceeds:          s.NetProceeds,
		totalInterest:        s.TotalInterest,
		totalPayable:         s.TotalPayable,
		installment:          s.Installment,
		outstandingBalance:   s.OutstandingBalance,
		principalPaid:        s.PrincipalPaid,
		interestPaid:         s.InterestPaid,
		penaltyPaid:          s.PenaltyPaid,
		penaltiesOutstanding: s.PenaltiesOutstanding,
		applicationDate:      s.ApplicationDate,
		approvalDate:         s.ApprovalDate,
		rejectionDate:        s.RejectionDate,
		disbursementDate:     s.DisbursementDate,
		firstPaymentDate:     s.FirstPaymentDate,
		maturityDate:         s.MaturityDate,
		closedDate:           s.ClosedDate,
		rejectionReason:      s.RejectionReason,
		approvalNotes:        s.ApprovalNotes,
		purpose:              s.Purpose,
		appliedBy:            s.AppliedBy,
		approvedBy:           s.ApprovedBy,
		rejectedBy:           s.RejectedBy,
		disbursedBy:          s.DisbursedBy,
		schedule:             copyRows(s.Schedule),
		version:              s.Version,
		createdAt:            s.CreatedAt,
		updatedAt:            s.UpdatedAt,
	}
}

// Snapshot flattens the aggregate for persistence.
func (l Loan) Snapshot() LoanSnapshot {
	return LoanSnapshot{
		ID:                   l.id,
		TenantID:             l.tenantID,
		LoanNumber:           l.loanNumber,
		MemberID:             l.memberID,
		ProductID:            l.productID,
		Currency:             l.currency,
		Principal:            l.principal,
		InterestRate:         l.interestRate,
		InterestMethod:       l.interestMethod,
		TermMonths:           l.termMonths,
		Interval:             l.interval,
		Status:               l.status,
		ProcessingFee:        l.processingFee,
		ServiceFee:           l.serviceFee,
		NetProceeds:          l.netProceeds,
		TotalInterest:        l.totalInterest,
		TotalPayable:         l.totalPayable,
		Installment:          l.installment,
		OutstandingBalance:   l.outstandingBalance,
		PrincipalPaid:        l.principalPaid,
		InterestPaid:         l.interestPaid,
		PenaltyPaid:          l.penaltyPaid,
		PenaltiesOutstanding: l.penaltiesOutstanding,
		ApplicationDate:      l.applicationDate,
		ApprovalDate:         l.approvalDate,
		RejectionDate:        l.rejectionDate,
		DisbursementDate:     l.disbursementDate,
		FirstPaymentDate:     l.firstPaymentDate,
		MaturityDate:         l.maturityDate,
		ClosedDate:           l.closedDate,
		RejectionReason:      l.rejectionReason,
		ApprovalNotes:        l.approvalNotes,
		Purpose:              l.purpose,
		AppliedBy:            l.appliedBy,
		ApprovedBy:           l.approvedBy,
		RejectedBy:           l.rejectedBy,
		DisbursedBy:          l.disbursedBy,
		Schedule:             copyRows(l.schedule),
		Version:              l.version,
		CreatedAt:            l.createdAt,
		UpdatedAt:            l.updatedAt,
	}
}

// ---------------------------------------------------------------------------
// State transitions
// ---------------------------------------------------------------------------

func (l Loan) requireStatus(action string, allowed ...valueobject.LoanStatus) error {
	for _, s := range allowed {
		if l.status.Equal(s) {
			return nil
		}
	}
	return valueobject.NewTransitionError("loan", action, l.status.String())
}

func (l Loan) mutate(at time.Time) Loan {
	next := l
	next.schedule = copyRows(l.schedule)
	next.domainEvents = copyEvents(l.domainEvents)
	next.updatedAt = at.UTC()
	return next
}

// Approve transitions PENDING -> APPROVED.
func (l Loan) Approve(actor Actor, at time.Time, notes string) (Loan, error) {
	if err := l.requireStatus("approve", valueobject.LoanStatusPending); err != nil {
		return l, err
	}
	if actor.IsZero() {
		return l, valueobject.NewValidationError("actor", "actor is required")
	}

	next := l.mutate(at)
	next.status = valueobject.LoanStatusApproved
	next.approvedBy = actor
	next.approvalDate = timePtr(at)
	next.approvalNotes = notes
	next.domainEvents = append(next.domainEvents, event.NewLoanStatusChanged(
		event.TypeLoanApproved, l.id, l.tenantID, l.loanNumber,
		l.status.String(), next.status.String(), actor.ID, notes, next.updatedAt,
	))
	return next, nil
}

// Reject transitions PENDING -> REJECTED. The reason is mandatory.
func (l Loan) Reject(actor Actor, at time.Time, reason string) (Loan, error) {
	if err := l.requireStatus("reject", valueobject.LoanStatusPending); err != nil {
		return l, err
	}
	if reason == "" {
		return l, valueobject.NewValidationError("reason", "rejection reason is required")
	}
	if actor.IsZero() {
		return l, valueobject.NewValidationError("actor", "actor is required")
	}

	next := l.mutate(at)
	next.status = valueobject.LoanStatusRejected
	next.rejectedBy = actor
	next.rejectionDate = timePtr(at)
	next.rejectionReason = reason
	next.domainEvents = append(next.domainEvents, event.NewLoanStatusChanged(
		event.TypeLoanRejected, l.id, l.tenantID, l.loanNumber,
		l.status.String(), next.status.String(), actor.ID, reason, next.updatedAt,
	))
	return next, nil
}

// Disburse transitions APPROVED -> ACTIVE. When dueDates is non-nil the rows
// are re-anchored to those dates; amounts never change.
func (l Loan) Disburse(actor Actor, at time.Time, dueDates []time.Time) (Loan, error) {
	if err := l.requireStatus("disburse", valueobject.LoanStatusApproved); err != nil {
		return l, err
	}
	if actor.IsZero() {
		return l, valueobject.NewValidationError("actor", "actor is required")
	}
	if dueDates != nil && len(dueDates) != len(l.schedule) {
		return l, valueobject.NewValidationError("first_payment_date",
			"re-anchored schedule has %d dates for %d rows", len(dueDates), len(l.schedule))
	}

	next := l.mutate(at)
	for i := range dueDates {
		next.schedule[i].DueDate = dueDates[i]
	}
	next.status = valueobject.LoanStatusActive
	next.disbursedBy = actor
	next.disbursementDate = timePtr(at)
	next.firstPaymentDate = timePtr(next.schedule[0].DueDate)
	next.maturityDate = timePtr(next.schedule[len(next.schedule)-1].DueDate)
	next.domainEvents = append(next.domainEvents, event.NewLoanStatusChanged(
		event.TypeLoanDisbursed, l.id, l.tenantID, l.loanNumber,
		l.status.String(), next.status.String(), actor.ID, "", next.updatedAt,
	))
	return next, nil
}

// ApplyPayment applies an allocation plan computed against this loan's
// schedule and the given unpaid penalties. It returns the updated loan, the
// payment ledger record and the penalties the payment touched.
func (l Loan) ApplyPayment(plan AllocationPlan, penalties []Penalty, draft PaymentDraft) (Loan, Payment, []Penalty, error) {
	if err := l.requireStatus("record payment on", valueobject.LoanStatusActive); err != nil {
		return l, Payment{}, nil, err
	}
	if !draft.Amount.IsPositive() {
		return l, Payment{}, nil, valueobject.NewValidationError("amount", "payment amount must be positive")
	}
	if plan.Unallocated != 0 || plan.Allocated() != draft.Amount {
		return l, Payment{}, nil, valueobject.NewValidationError("amount",
			"payment %s exceeds total obligations %s", draft.Amount, plan.Allocated())
	}

	at := draft.PaidAt.UTC()
	next := l.mutate(at)
	byID := indexPenalties(penalties)
	touched := make([]Penalty, 0, len(penalties))

	for _, line := range plan.Lines {
		switch line.Target {
		case TargetPenalty:
			p, ok := byID[line.TargetID]
			if !ok {
				return l, Payment{}, nil, valueobject.NewIntegrityError("penalty "+line.TargetID, "not loaded for allocation")
			}
			if line.Penalty > p.Outstanding() {
				return l, Payment{}, nil, valueobject.NewIntegrityError("penalty "+p.ID,
					"allocation %s exceeds outstanding %s", line.Penalty, p.Outstanding())
			}
			p.PaidAmount += line.Penalty
			if p.Outstanding() == 0 {
				p.Paid = true
				p.PaidDate = timePtr(at)
			}
			byID[p.ID] = p
			touched = append(touched, p)

			if i := next.rowIndex(p.ScheduleRowID); i >= 0 {
				next.schedule[i].PenaltyPaid += line.Penalty
			}

		case TargetScheduleRow:
			i := next.rowIndex(line.TargetID)
			if i < 0 {
				return l, Payment{}, nil, valueobject.NewIntegrityError("schedule row "+line.TargetID, "not part of loan")
			}
			row := next.schedule[i]
			if line.Interest > row.InterestOutstanding() || line.Principal > row.PrincipalOutstanding() {
				return l, Payment{}, nil, valueobject.NewIntegrityError(fmt.Sprintf("schedule row %d", row.Sequence),
					"allocation exceeds outstanding")
			}
			row.InterestPaid += line.Interest
			row.PrincipalPaid += line.Principal
			row.TotalPaid = row.InterestPaid + row.PrincipalPaid
			switch {
			case row.Outstanding() == 0:
				row.Status = valueobject.ScheduleStatusPaid
				row.PaidDate = timePtr(at)
			case row.Status.Equal(valueobject.ScheduleStatusOverdue):
			default:
				row.Status = valueobject.ScheduleStatusPartial
			}
			next.schedule[i] = row
		}
	}

	balanceBefore := l.outstandingBalance
	next.principalPaid += plan.Principal
	next.interestPaid += plan.Interest
	next.penaltyPaid += plan.Penalty
	next.penaltiesOutstanding -= plan.Penalty
	next.outstandingBalance -= plan.Principal + plan.Interest
	if next.outstandingBalance.IsNegative() || next.penaltiesOutstanding.IsNegative() {
		return l, Payment{}, nil, valueobject.NewIntegrityError("loan "+l.loanNumber, "payment drives a balance negative")
	}

	payment := Payment{
		ID:            uuid.New().String(),
		TenantID:      l.tenantID,
		LoanID:        l.id,
		PaymentNumber: draft.PaymentNumber,
		Amount:        draft.Amount,
		Principal:     plan.Principal,
		Interest:      plan.Interest,
		Penalty:       plan.Penalty,
		BalanceBefore: balanceBefore,
		BalanceAfter:  next.outstandingBalance,
		Method:        draft.Method,
		Reference:     draft.Reference,
		PaymentDate:   at,
		ReceivedBy:    draft.ReceivedBy,
		Allocations:   append([]AllocationLine(nil), plan.Lines...),
		CreatedAt:     at,
	}

	next.domainEvents = append(next.domainEvents, event.NewPaymentRecorded(
		l.id, l.tenantID, payment.ID, payment.PaymentNumber,
		payment.Amount, payment.Principal, payment.Interest, payment.Penalty,
		payment.BalanceAfter, draft.ReceivedBy.ID, at,
	))

	if next.outstandingBalance == 0 {
		next.status = valueobject.LoanStatusClosed
		next.closedDate = timePtr(at)
		payment.ClosedLoan = true
		next.domainEvents = append(next.domainEvents, event.NewLoanClosed(l.id, l.tenantID, l.loanNumber, payment.ID, at))
	}

	return next, payment, touched, nil
}

// ReversePayment undoes a payment from its allocation lines. penalties must
// contain every penalty the payment paid into.
func (l Loan) ReversePayment(p Payment, penalties []Penalty, actor Actor, reason string, at time.Time) (Loan, Payment, []Penalty, error) {
	if p.Reversed {
		return l, p, nil, valueobject.NewTransitionError("payment", "reverse", "reversed")
	}
	if p.LoanID != l.id {
		return l, p, nil, valueobject.NewValidationError("payment_id", "payment %s does not belong to loan %s", p.PaymentNumber, l.loanNumber)
	}
	if err := l.requireStatus("reverse payment on", valueobject.LoanStatusActive, valueobject.LoanStatusClosed); err != nil {
		return l, p, nil, err
	}
	if actor.IsZero() {
		return l, p, nil, valueobject.NewValidationError("actor", "actor is required")
	}

	at = at.UTC()
	next := l.mutate(at)
	byID := indexPenalties(penalties)
	touched := make([]Penalty, 0, len(penalties))

	for i := len(p.Allocations) - 1; i >= 0; i-- {
		line := p.Allocations[i]
		switch line.Target {
		case TargetPenalty:
			pen, ok := byID[line.TargetID]
			if !ok {
				return l, p, nil, valueobject.NewIntegrityError("penalty "+line.TargetID, "not loaded for reversal")
			}
			pen.PaidAmount -= line.Penalty
			if pen.PaidAmount.IsNegative() {
				return l, p, nil, valueobject.NewIntegrityError("penalty "+pen.ID, "paid amount would become %s", pen.PaidAmount)
			}
			pen.Paid = false
			pen.PaidDate = nil
			byID[pen.ID] = pen
			touched = append(touched, pen)

			if ri := next.rowIndex(pen.ScheduleRowID); ri >= 0 {
				next.schedule[ri].PenaltyPaid -= line.Penalty
				if next.schedule[ri].PenaltyPaid.IsNegative() {
					return l, p, nil, valueobject.NewIntegrityError(fmt.Sprintf("schedule row %d", next.schedule[ri].Sequence), "penalty paid would become negative")
				}
			}

		case TargetScheduleRow:
			ri := next.rowIndex(line.TargetID)
			if ri < 0 {
				return l, p, nil, valueobject.NewIntegrityError("schedule row "+line.TargetID, "not part of loan")
			}
			row := next.schedule[ri]
			row.InterestPaid -= line.Interest
			row.PrincipalPaid -= line.Principal
			if row.InterestPaid.IsNegative() || row.PrincipalPaid.IsNegative() {
				return l, p, nil, valueobject.NewIntegrityError(fmt.Sprintf("schedule row %d", row.Sequence), "paid amounts would become negative")
			}
			row.TotalPaid = row.InterestPaid + row.PrincipalPaid
			row.Status = restoredRowStatus(row, line.PriorStatus)
			if !row.IsPaid() {
				row.PaidDate = nil
			}
			next.schedule[ri] = row
		}
	}

	next.principalPaid -= p.Principal
	next.interestPaid -= p.Interest
	next.penaltyPaid -= p.Penalty
	next.penaltiesOutstanding += p.Penalty
	next.outstandingBalance += p.Principal + p.Interest
	if next.principalPaid.IsNegative() || next.interestPaid.IsNegative() || next.penaltyPaid.IsNegative() {
		return l, p, nil, valueobject.NewIntegrityError("loan "+l.loanNumber, "reversal drives a paid total negative")
	}
	if next.outstandingBalance > next.totalPayable {
		return l, p, nil, valueobject.NewIntegrityError("loan "+l.loanNumber,
			"outstanding %s would exceed total payable %s", next.outstandingBalance, next.totalPayable)
	}

	reversed := p
	reversed.Reversed = true
	reversed.ReversedAt = timePtr(at)
	reversed.ReversedBy = actor
	reversed.ReversalReason = reason

	next.domainEvents = append(next.domainEvents, event.NewPaymentReversed(
		l.id, l.tenantID, p.ID, p.PaymentNumber, p.Amount, next.outstandingBalance, actor.ID, reason, at,
	))

	if l.status.Equal(valueobject.LoanStatusClosed) && next.outstandingBalance.IsPositive() {
		next.status = valueobject.LoanStatusActive
		next.closedDate = nil
		next.domainEvents = append(next.domainEvents, event.NewLoanReopened(
			l.id, l.tenantID, l.loanNumber, p.ID, next.outstandingBalance, at,
		))
	}

	return next, reversed, touched, nil
}

// restoredRowStatus decides a row's status after money is taken back out of
// it: paid only if still fully covered, otherwise overdue if it was overdue
// before the payment or is overdue now, otherwise partial or pending by
// coverage.
func restoredRowStatus(row ScheduleRow, prior string) valueobject.ScheduleStatus {
	switch {
	case row.Outstanding() == 0:
		return valueobject.ScheduleStatusPaid
	case prior == valueobject.ScheduleStatusOverdue.String(),
		row.Status.Equal(valueobject.ScheduleStatusOverdue):
		return valueobject.ScheduleStatusOverdue
	case row.TotalPaid.IsPositive():
		return valueobject.ScheduleStatusPartial
	default:
		return valueobject.ScheduleStatusPending
	}
}

// AssessPenalties records newly computed penalties: their rows become overdue
// and the gross amounts are added to the outstanding penalty total.
func (l Loan) AssessPenalties(penalties []Penalty, at time.Time) (Loan, error) {
	if err := l.requireStatus("compute penalties on", valueobject.LoanStatusActive); err != nil {
		return l, err
	}
	if len(penalties) == 0 {
		return l, nil
	}

	next := l.mutate(at)
	for _, p := range penalties {
		if p.LoanID != l.id {
			return l, valueobject.NewIntegrityError("penalty "+p.ID, "belongs to another loan")
		}
		i := next.rowIndex(p.ScheduleRowID)
		if i < 0 {
			return l, valueobject.NewIntegrityError("penalty "+p.ID, "schedule row %s not part of loan", p.ScheduleRowID)
		}
		if !next.schedule[i].IsPaid() {
			next.schedule[i].Status = valueobject.ScheduleStatusOverdue
		}
		next.penaltiesOutstanding += p.GrossAmount
		next.domainEvents = append(next.domainEvents, event.NewPenaltyAssessed(
			l.id, l.tenantID, p.ID, p.ScheduleRowID, p.Type.String(),
			p.DaysOverdue, p.GrossAmount, DateKey(p.AppliedDate), next.updatedAt,
		))
	}
	return next, nil
}

// WaivePenalty forgives amount of penalty p and lowers the loan's outstanding
// penalty total by the same amount.
func (l Loan) WaivePenalty(p Penalty, amount money.Amount, reason string, actor Actor, at time.Time) (Loan, Penalty, error) {
	if p.LoanID != l.id {
		return l, p, valueobject.NewValidationError("penalty_id", "penalty does not belong to loan %s", l.loanNumber)
	}
	if actor.IsZero() {
		return l, p, valueobject.NewValidationError("actor", "actor is required")
	}

	waived, err := p.Waive(amount, reason, actor, at.UTC())
	if err != nil {
		return l, p, err
	}

	next := l.mutate(at)
	next.penaltiesOutstanding -= amount
	if next.penaltiesOutstanding.IsNegative() {
		return l, p, valueobject.NewIntegrityError("loan "+l.loanNumber, "penalties outstanding would become negative")
	}
	next.domainEvents = append(next.domainEvents, event.NewPenaltyWaived(
		l.id, l.tenantID, p.ID, amount, waived.NetAmount, actor.ID, reason, next.updatedAt,
	))
	return next, waived, nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (l Loan) ID() string                                  { return l.id }
func (l Loan) TenantID() string                            { return l.tenantID }
func (l Loan) LoanNumber() string                          { return l.loanNumber }
func (l Loan) MemberID() string                            { return l.memberID }
func (l Loan) ProductID() string                           { return l.productID }
func (l Loan) Currency() money.Currency                    { return l.currency }
func (l Loan) Principal() money.Amount                     { return l.principal }
func (l Loan) InterestRate() decimal.Decimal               { return l.interestRate }
func (l Loan) InterestMethod() valueobject.InterestMethod  { return l.interestMethod }
func (l Loan) TermMonths() int                             { return l.termMonths }
func (l Loan) Interval() valueobject.PaymentInterval       { return l.interval }
func (l Loan) Status() valueobject.LoanStatus              { return l.status }
func (l Loan) NetProceeds() money.Amount                   { return l.netProceeds }
func (l Loan) TotalPayable() money.Amount                  { return l.totalPayable }
func (l Loan) Installment() money.Amount                   { return l.installment }
func (l Loan) OutstandingBalance() money.Amount            { return l.outstandingBalance }
func (l Loan) PrincipalPaid() money.Amount                 { return l.principalPaid }
func (l Loan) InterestPaid() money.Amount                  { return l.interestPaid }
func (l Loan) PenaltyPaid() money.Amount                   { return l.penaltyPaid }
func (l Loan) PenaltiesOutstanding() money.Amount          { return l.penaltiesOutstanding }
func (l Loan) MaturityDate() *time.Time                    { return l.maturityDate }
func (l Loan) ClosedDate() *time.Time                      { return l.closedDate }
func (l Loan) Version() int                                { return l.version }
func (l Loan) UpdatedAt() time.Time                        { return l.updatedAt }
func (l Loan) DomainEvents() []event.DomainEvent           { return l.domainEvents }

// TotalObligations is everything the member owes right now: scheduled
// principal and interest not yet paid plus outstanding penalties.
func (l Loan) TotalObligations() money.Amount {
	return l.outstandingBalance + l.penaltiesOutstanding
}

// Schedule returns a copy of the repayment schedule.
func (l Loan) Schedule() []ScheduleRow { return copyRows(l.schedule) }

// ClearEvents returns a copy with an empty event list.
func (l Loan) ClearEvents() Loan {
	next := l
	next.domainEvents = nil
	return next
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (l Loan) rowIndex(id string) int {
	for i := range l.schedule {
		if l.schedule[i].ID == id {
			return i
		}
	}
	return -1
}

func indexPenalties(ps []Penalty) map[string]Penalty {
	m := make(map[string]Penalty, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return m
}

func copyEvents(src []event.DomainEvent) []event.DomainEvent {
	if src == nil {
		return nil
	}
	dst := make([]event.DomainEvent, len(src))
	copy(dst, src)
	return dst
}

func timePtr(t time.Time) *time.Time {
	u := t.UTC()
	return &u
}
