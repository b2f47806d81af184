/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes payroll calculation, formula tooling, client configuration and
  the boarding workflow via REST API. Handles HTTP request/response and
  JSON serialization; all rules live in the domain packages.

ENDPOINTS:
  Payroll:
    POST   /api/payroll/calculate          One employee-month
    POST   /api/payroll/bulk               Many employee-months, skip-and-continue
    GET    /api/payroll/results/{id}       Stored calculation

  Formulas:
    POST   /api/formulas/evaluate          Evaluate with variables
    POST   /api/formulas/validate          List every issue
    POST   /api/formulas/variables         Extract referenced variables

  Clients:
    GET    /api/clients/{id}/config        Client payroll configuration
    PUT    /api/clients/{id}/config        Replace configuration (JSON schema in factory/)
    PUT    /api/pay-grades/{grade}         Replace pay grade components

  Boarding:
    POST   /api/boarding/tickets           Open hiring ticket
    GET    /api/boarding/tickets/{id}
    POST   /api/boarding/staff             Board a new hire
    GET    /api/boarding/staff/{id}
    GET    /api/boarding/staff/{id}/history
    POST   /api/boarding/staff/{id}/approve|reject|control-approve|control-reject|accept-offer

  Scenarios:
    GET    /api/scenarios                  List demo scenarios
    POST   /api/scenarios/load             Load a demo scenario
    POST   /api/scenarios/reset            Clear all data

ACTOR IDENTITY:
  The upstream gateway authenticates callers and forwards the identity in
  X-Actor-ID and X-Actor-Capabilities (comma-separated). Boarding
  transitions trust these headers.

ERROR HANDLING:
  Errors are returned as JSON with a status derived from the error kind:
  - 400: invalid_input, request validation failures
  - 403: unauthorized
  - 404: not_found, employee_not_found
  - 409: invalid_state
  - 422: unsafe_formula, invalid_variable, non_numeric_result, not_eligible
  - 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/payroll-engine/boarding"
	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/formula"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

const (
	HeaderActorID           = "X-Actor-ID"
	HeaderActorCapabilities = "X-Actor-Capabilities"

	maxBodyBytes = 4 << 20
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    *sqlite.Store
	Configs  *factory.ConfigFactory
	Payroll  *payroll.Service
	Boarding *boarding.Service
	Logger   *slog.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		Store:   store,
		Configs: factory.NewConfigFactory(),
		Payroll: payroll.NewService(store, store,
			payroll.WithSink(auditedSink{store: store}),
			payroll.WithLogger(logger.With(slog.String("component", "payroll"))),
		),
		Boarding: boarding.NewService(store,
			boarding.WithProvisioner(boarding.NewAccounts(store)),
			boarding.WithLogger(logger.With(slog.String("component", "boarding"))),
		),
		Logger: logger,
	}
}

// auditedSink persists calculations together with their audit entry.
type auditedSink struct {
	store *sqlite.Store
}

func (s auditedSink) SaveCalculation(ctx context.Context, r *payroll.CalculationResult) error {
	return s.store.SaveCalculationAudited(ctx, r, generic.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		ActorID:   "system",
		Action:    generic.AuditPayrollCalculated,
		SubjectID: string(r.EmployeeID),
		Payload: map[string]any{
			"calculation_id": r.ID,
			"month":          int(r.Month),
			"year":           r.Year,
			"net_salary":     r.NetSalary.StringFixed(2),
		},
	})
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// CalculatePayroll runs one employee-month.
// POST /api/payroll/calculate
func (h *Handler) CalculatePayroll(w http.ResponseWriter, r *http.Request) {
	var req CalculateRequest
	if !bind(w, r, &req) {
		return
	}

	result, err := h.Payroll.Calculate(r.Context(), req.toInput())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// CalculateBulk runs a batch of employee-months. Failed entries are
// reported in "skipped"; the response is 200 as long as the batch ran.
// POST /api/payroll/bulk
func (h *Handler) CalculateBulk(w http.ResponseWriter, r *http.Request) {
	var req BulkCalculateRequest
	if !bind(w, r, &req) {
		return
	}

	inputs := make([]payroll.AttendanceInput, len(req.Entries))
	for i, e := range req.Entries {
		inputs[i] = e.toInput()
	}

	result, err := h.Payroll.CalculateBulk(r.Context(), inputs)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Bulk run interrupted", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetCalculation returns a stored calculation.
// GET /api/payroll/results/{id}
func (h *Handler) GetCalculation(w http.ResponseWriter, r *http.Request) {
	result, err := h.Store.GetCalculation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (c CalculateRequest) toInput() payroll.AttendanceInput {
	return payroll.AttendanceInput{
		EmployeeID: generic.EmployeeID(c.EmployeeID),
		DaysWorked: *c.DaysWorked,
		Month:      time.Month(c.Month),
		Year:       c.Year,
	}
}

// =============================================================================
// FORMULA HANDLERS
// =============================================================================

// EvaluateFormula evaluates a formula against the supplied variables.
// POST /api/formulas/evaluate
func (h *Handler) EvaluateFormula(w http.ResponseWriter, r *http.Request) {
	var req FormulaRequest
	if !bind(w, r, &req) {
		return
	}

	result, err := formula.Evaluate(req.Formula, req.variables())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, EvaluateResponse{Formula: req.Formula, Result: result})
}

// ValidateFormula reports every issue without evaluating.
// POST /api/formulas/validate
func (h *Handler) ValidateFormula(w http.ResponseWriter, r *http.Request) {
	var req FormulaRequest
	if !bind(w, r, &req) {
		return
	}

	issues := formula.ValidateFormula(req.Formula)
	writeJSON(w, http.StatusOK, ValidateResponse{Formula: req.Formula, Valid: len(issues) == 0, Issues: issues})
}

// ExtractVariables lists the variables a formula references.
// POST /api/formulas/variables
func (h *Handler) ExtractVariables(w http.ResponseWriter, r *http.Request) {
	var req FormulaRequest
	if !bind(w, r, &req) {
		return
	}
	writeJSON(w, http.StatusOK, VariablesResponse{Formula: req.Formula, Variables: formula.ExtractVariables(req.Formula)})
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// GetClientConfig returns a client's payroll configuration.
// GET /api/clients/{id}/config
func (h *Handler) GetClientConfig(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.Store.GetClientConfig(r.Context(), generic.ClientID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// PutClientConfig replaces a client's payroll configuration.
// PUT /api/clients/{id}/config
func (h *Handler) PutClientConfig(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := generic.ClientID(chi.URLParam(r, "id"))

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := h.Configs.ParseClientConfig(body)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if cfg.ClientID != id {
		writeError(w, http.StatusBadRequest, "client_id does not match URL", nil)
		return
	}

	if err := h.Store.SaveClientConfig(ctx, *cfg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save client config", err)
		return
	}
	version, _ := h.Store.ClientConfigVersion(ctx, id)
	err = h.Store.AppendAudit(ctx, generic.AuditEntry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		ActorID:   actorFrom(r).ID,
		Action:    generic.AuditClientConfigChange,
		SubjectID: string(id),
		Payload:   map[string]any{"version": version},
	})
	if err != nil {
		h.Logger.WarnContext(ctx, "client config audit failed", slog.String("client_id", string(id)), slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusOK, cfg)
}

// PutPayGrade replaces the salary components of a pay grade.
// PUT /api/pay-grades/{grade}
func (h *Handler) PutPayGrade(w http.ResponseWriter, r *http.Request) {
	var req PayGradeRequest
	if !bind(w, r, &req) {
		return
	}

	components := make([]payroll.SalaryComponent, len(req.Components))
	for i, c := range req.Components {
		if !generic.InBounds(c.Amount) {
			writeError(w, http.StatusBadRequest, "Component amount is out of range", nil)
			return
		}
		if c.Amount.IsNegative() {
			writeError(w, http.StatusBadRequest, "Component amounts cannot be negative", nil)
			return
		}
		components[i] = payroll.SalaryComponent{Name: c.Name, Amount: c.Amount, Category: payroll.Category(c.Category)}
	}

	grade := chi.URLParam(r, "grade")
	if err := h.Store.SavePayGrade(r.Context(), grade, components); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save pay grade", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"grade": grade, "components": components})
}

// =============================================================================
// BOARDING HANDLERS
// =============================================================================

// OpenTicket opens a hiring ticket requested by the calling actor.
// POST /api/boarding/tickets
func (h *Handler) OpenTicket(w http.ResponseWriter, r *http.Request) {
	var req OpenTicketRequest
	if !bind(w, r, &req) {
		return
	}

	requires := true
	if req.RequiresApproval != nil {
		requires = *req.RequiresApproval
	}
	ticket, err := h.Boarding.OpenTicket(r.Context(), actorFrom(r), boarding.Ticket{
		ClientID:         generic.ClientID(req.ClientID),
		Title:            req.Title,
		Positions:        req.Positions,
		RequiresApproval: requires,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

// GetTicket returns a hiring ticket.
// GET /api/boarding/tickets/{id}
func (h *Handler) GetTicket(w http.ResponseWriter, r *http.Request) {
	ticket, err := h.Boarding.GetTicket(r.Context(), generic.TicketID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}

// BoardStaff creates a staff record against a ticket.
// POST /api/boarding/staff
func (h *Handler) BoardStaff(w http.ResponseWriter, r *http.Request) {
	var req BoardStaffRequest
	if !bind(w, r, &req) {
		return
	}

	out, err := h.Boarding.Board(r.Context(), actorFrom(r), generic.TicketID(req.TicketID), boarding.Staff{
		Name:     req.Name,
		Email:    req.Email,
		PayGrade: req.PayGrade,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOutcomeDTO(out))
}

// GetStaff returns a staff record.
// GET /api/boarding/staff/{id}
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.Boarding.GetStaff(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

// StaffHistory returns the audit trail of a staff record.
// GET /api/boarding/staff/{id}/history
func (h *Handler) StaffHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Boarding.History(r.Context(), generic.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]HistoryEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = HistoryEntryDTO{
			ID:        e.ID,
			Timestamp: e.Timestamp.Format(time.RFC3339),
			ActorID:   e.ActorID,
			Action:    string(e.Action),
			FromState: e.FromState,
			ToState:   e.ToState,
			Reason:    e.Reason,
			Payload:   e.Payload,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ApproveStaff POST /api/boarding/staff/{id}/approve
func (h *Handler) ApproveStaff(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, a boarding.Actor, id generic.EmployeeID, _ string) (*boarding.Outcome, error) {
		return h.Boarding.Approve(ctx, a, id)
	})
}

// RejectStaff POST /api/boarding/staff/{id}/reject
func (h *Handler) RejectStaff(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Boarding.Reject)
}

// ControlApproveStaff POST /api/boarding/staff/{id}/control-approve
func (h *Handler) ControlApproveStaff(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, a boarding.Actor, id generic.EmployeeID, _ string) (*boarding.Outcome, error) {
		return h.Boarding.ControlApprove(ctx, a, id)
	})
}

// ControlRejectStaff POST /api/boarding/staff/{id}/control-reject
func (h *Handler) ControlRejectStaff(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Boarding.ControlReject)
}

// AcceptOffer POST /api/boarding/staff/{id}/accept-offer
func (h *Handler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(ctx context.Context, a boarding.Actor, id generic.EmployeeID, _ string) (*boarding.Outcome, error) {
		return h.Boarding.AcceptOffer(ctx, a, id)
	})
}

type transitionFunc func(ctx context.Context, actor boarding.Actor, id generic.EmployeeID, reason string) (*boarding.Outcome, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	var req ReasonRequest
	if r.ContentLength != 0 {
		if !bind(w, r, &req) {
			return
		}
	}

	out, err := fn(r.Context(), actorFrom(r), generic.EmployeeID(chi.URLParam(r, "id")), req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOutcomeDTO(out))
}

// actorFrom reads the gateway-provided identity headers.
func actorFrom(r *http.Request) boarding.Actor {
	actor := boarding.Actor{ID: strings.TrimSpace(r.Header.Get(HeaderActorID))}
	for _, c := range strings.Split(r.Header.Get(HeaderActorCapabilities), ",") {
		if c = strings.TrimSpace(c); c != "" {
			actor.Capabilities = append(actor.Capabilities, boarding.Capability(c))
		}
	}
	return actor
}

// =============================================================================
// HELPERS
// =============================================================================

// bind decodes and validates a JSON body, writing a 400 on failure.
func bind(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if errs := validateStruct(dst); errs != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Code:    string(generic.KindInvalidInput),
			Details: errs,
		})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps an error kind to its HTTP status.
func writeDomainError(w http.ResponseWriter, err error) {
	var verr *factory.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Invalid client config",
			Code:    string(generic.KindInvalidInput),
			Details: verr.Issues,
		})
		return
	}

	kind := generic.KindOf(err)
	writeJSON(w, statusFor(kind), ErrorResponse{
		Error:   http.StatusText(statusFor(kind)),
		Code:    string(kind),
		Details: err.Error(),
	})
}

func statusFor(kind generic.Kind) int {
	switch kind {
	case generic.KindInvalidInput:
		return http.StatusBadRequest
	case generic.KindUnauthorized:
		return http.StatusForbidden
	case generic.KindNotFound, generic.KindEmployeeNotFound:
		return http.StatusNotFound
	case generic.KindInvalidState:
		return http.StatusConflict
	case generic.KindUnsafeFormula, generic.KindInvalidVariable, generic.KindNonNumericResult, generic.KindNotEligible:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}
