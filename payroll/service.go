/*
service.go - Payroll service: lookups, persistence hand-off and bulk runs

PURPOSE:
  Wraps the pure pipeline (Compute) with the collaborators a real run
  needs: an employee source, a client configuration source and an
  optional result sink.

ERROR POLICY:
  Calculate:     any failure is returned to the caller.
  CalculateBulk: each entry is independent. A failing entry (unknown
                 employee, inactive employee, bad formula, sink failure)
                 is logged, recorded in Skipped and the batch continues.
                 Running totals only change after an entry fully succeeds.

ELIGIBILITY:
  Only employees whose status is "active" are paid. Status becomes active
  when boarding reaches control_approved with an accepted offer.

SEE ALSO:
  - aggregate.go: Compute
  - boarding/: Produces the active status
  - store/sqlite/sqlite.go: Implements all three collaborators
*/
package payroll

import (
	"context"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// COLLABORATORS
// =============================================================================

// EmployeeSource resolves employees. A missing employee is reported with
// an error matching generic.ErrEmployeeNotFound.
type EmployeeSource interface {
	GetEmployee(ctx context.Context, id generic.EmployeeID) (*Employee, error)
}

// ClientSource resolves client configuration. A missing client is reported
// with an error matching generic.ErrNotFound.
type ClientSource interface {
	GetClientConfig(ctx context.Context, id generic.ClientID) (*ClientConfig, error)
}

// ResultSink receives each successful calculation for storage or export.
type ResultSink interface {
	SaveCalculation(ctx context.Context, result *CalculationResult) error
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	employees EmployeeSource
	clients   ClientSource
	sink      ResultSink // optional
	logger    *slog.Logger
	newID     func() string
}

// Option configures a Service.
type Option func(*Service)

// WithSink sets the result sink.
func WithSink(sink ResultSink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithLogger sets the logger used for bulk-run diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a payroll service.
func NewService(employees EmployeeSource, clients ClientSource, opts ...Option) *Service {
	s := &Service{
		employees: employees,
		clients:   clients,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Calculate runs one employee's payroll for one month.
func (s *Service) Calculate(ctx context.Context, in AttendanceInput) (*CalculationResult, error) {
	const op = "payroll.Calculate"

	emp, err := s.employees.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, generic.Errorf(generic.KindEmployeeNotFound, op, "employee %s not found", in.EmployeeID)
	}
	if emp.Status != StatusActive {
		return nil, generic.Errorf(generic.KindNotEligible, op,
			"employee %s is %s, only active employees are paid", emp.ID, emp.Status)
	}

	cfg, err := s.clients.GetClientConfig(ctx, emp.ClientID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, generic.Errorf(generic.KindNotFound, op, "client %s has no configuration", emp.ClientID)
	}

	result, err := Compute(*emp, *cfg, in)
	if err != nil {
		return nil, err
	}
	result.ID = s.newID()

	if s.sink != nil {
		if err := s.sink.SaveCalculation(ctx, result); err != nil {
			return nil, generic.Wrap(generic.KindInternal, op, err, "saving calculation")
		}
	}
	return result, nil
}

// =============================================================================
// BULK
// =============================================================================

// SkippedEntry is a bulk entry that did not produce a calculation.
type SkippedEntry struct {
	EmployeeID generic.EmployeeID `json:"employee_id"`
	Kind       generic.Kind       `json:"kind"`
	Message    string             `json:"message"`
}

// BulkSummary totals every successful calculation of a bulk run.
type BulkSummary struct {
	TotalEmployees    int             `json:"total_employees"`
	TotalGross        decimal.Decimal `json:"total_gross"`
	TotalDeductions   decimal.Decimal `json:"total_deductions"`
	TotalNet          decimal.Decimal `json:"total_net"`
	TotalCreditToBank decimal.Decimal `json:"total_credit_to_bank"`
	SkippedCount      int             `json:"skipped_count"`
}

// BulkResult is the outcome of CalculateBulk.
type BulkResult struct {
	Calculations []*CalculationResult `json:"calculations"`
	Summary      BulkSummary          `json:"summary"`
	Skipped      []SkippedEntry       `json:"skipped"`
}

// CalculateBulk runs Calculate for every entry in order. Per-entry failures
// are skipped; only context cancellation stops the run early, in which case
// the partial result is returned with the context's error.
func (s *Service) CalculateBulk(ctx context.Context, inputs []AttendanceInput) (*BulkResult, error) {
	out := &BulkResult{
		Calculations: make([]*CalculationResult, 0, len(inputs)),
		Skipped:      []SkippedEntry{},
		Summary: BulkSummary{
			TotalGross:        decimal.Zero,
			TotalDeductions:   decimal.Zero,
			TotalNet:          decimal.Zero,
			TotalCreditToBank: decimal.Zero,
		},
	}

	for i, in := range inputs {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		result, err := s.Calculate(ctx, in)
		if err != nil {
			kind := generic.KindOf(err)
			s.logger.WarnContext(ctx, "payroll entry skipped",
				slog.Int("index", i),
				slog.String("employee_id", string(in.EmployeeID)),
				slog.Int("month", int(in.Month)),
				slog.Int("year", in.Year),
				slog.String("kind", string(kind)),
				slog.String("error", err.Error()),
			)
			out.Skipped = append(out.Skipped, SkippedEntry{EmployeeID: in.EmployeeID, Kind: kind, Message: err.Error()})
			out.Summary.SkippedCount++
			continue
		}

		out.Calculations = append(out.Calculations, result)
		out.Summary.TotalEmployees++
		out.Summary.TotalGross = out.Summary.TotalGross.Add(result.GrossSalary)
		out.Summary.TotalDeductions = out.Summary.TotalDeductions.Add(result.Deductions.Total())
		out.Summary.TotalNet = out.Summary.TotalNet.Add(result.NetSalary)
		out.Summary.TotalCreditToBank = out.Summary.TotalCreditToBank.Add(result.CreditToBank)
	}

	s.logger.InfoContext(ctx, "payroll bulk run finished",
		slog.Int("entries", len(inputs)),
		slog.Int("calculated", out.Summary.TotalEmployees),
		slog.Int("skipped", out.Summary.SkippedCount),
		slog.String("total_credit_to_bank", out.Summary.TotalCreditToBank.StringFixed(2)),
	)
	return out, nil
}
