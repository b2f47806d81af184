/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

VALIDATION:
  Request types carry go-playground/validator tags. Handlers call
  validateStruct right after decoding; domain invariants (rejection
  reasons, formula safety, config ranges) stay in the domain packages.

MONEY:
  Amounts are serialized as decimal strings ("1234.50"), never floats.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/client.go: Client config JSON schema
*/
package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/boarding"
	"github.com/warp/payroll-engine/formula"
)

// =============================================================================
// PAYROLL
// =============================================================================

// CalculateRequest is one employee-month of attendance.
type CalculateRequest struct {
	EmployeeID string `json:"employee_id" validate:"required,max=64"`
	DaysWorked *int   `json:"days_worked" validate:"required,min=0,max=31"`
	Month      int    `json:"month" validate:"required,min=1,max=12"`
	Year       int    `json:"year" validate:"required,min=1900,max=9999"`
}

// BulkCalculateRequest is a batch of attendance records.
type BulkCalculateRequest struct {
	Entries []CalculateRequest `json:"entries" validate:"required,min=1,max=5000,dive"`
}

// PayGradeRequest replaces the components of a pay grade.
type PayGradeRequest struct {
	Components []ComponentDTO `json:"components" validate:"required,min=1,dive"`
}

// ComponentDTO is a salary component in a pay grade.
type ComponentDTO struct {
	Name     string          `json:"name" validate:"required,max=64"`
	Amount   decimal.Decimal `json:"amount"`
	Category string          `json:"category" validate:"required,oneof=base allowance"`
}

// =============================================================================
// FORMULAS
// =============================================================================

// FormulaRequest carries a formula and its ordered variables.
type FormulaRequest struct {
	Formula   string        `json:"formula" validate:"required"`
	Variables []VariableDTO `json:"variables" validate:"dive"`
}

// VariableDTO is one formula variable. Value may be a JSON number or a
// numeric string.
type VariableDTO struct {
	Name  string `json:"name" validate:"required"`
	Value any    `json:"value"`
}

func (r FormulaRequest) variables() formula.Variables {
	vars := make(formula.Variables, len(r.Variables))
	for i, v := range r.Variables {
		vars[i] = formula.Variable{Name: v.Name, Value: v.Value}
	}
	return vars
}

// EvaluateResponse is the result of evaluating a formula.
type EvaluateResponse struct {
	Formula string          `json:"formula"`
	Result  decimal.Decimal `json:"result"`
}

// ValidateResponse lists every problem found in a formula.
type ValidateResponse struct {
	Formula string          `json:"formula"`
	Valid   bool            `json:"valid"`
	Issues  []formula.Issue `json:"issues"`
}

// VariablesResponse lists the variables a formula references.
type VariablesResponse struct {
	Formula   string   `json:"formula"`
	Variables []string `json:"variables"`
}

// =============================================================================
// BOARDING
// =============================================================================

// OpenTicketRequest opens a hiring ticket.
type OpenTicketRequest struct {
	ClientID         string `json:"client_id" validate:"required,max=64"`
	Title            string `json:"title" validate:"required,max=200"`
	Positions        int    `json:"positions" validate:"min=0,max=10000"`
	RequiresApproval *bool  `json:"requires_approval"`
}

// BoardStaffRequest boards a new hire against a ticket.
type BoardStaffRequest struct {
	TicketID string `json:"ticket_id" validate:"required"`
	Name     string `json:"name" validate:"required,max=200"`
	Email    string `json:"email" validate:"required,email"`
	PayGrade string `json:"pay_grade" validate:"required,max=64"`
}

// ReasonRequest carries the optional reason of a transition. Whether a
// reason is mandatory is decided by the transition itself.
type ReasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// OutcomeDTO is the response to every staff transition.
type OutcomeDTO struct {
	Staff             boarding.Staff    `json:"staff"`
	Ticket            boarding.Ticket   `json:"ticket"`
	Activated         bool              `json:"activated"`
	Account           *boarding.Account `json:"account,omitempty"`
	ProvisioningError string            `json:"provisioning_error,omitempty"`
}

func toOutcomeDTO(o *boarding.Outcome) OutcomeDTO {
	dto := OutcomeDTO{Staff: o.Staff, Ticket: o.Ticket, Activated: o.Activated, Account: o.Account}
	if o.ProvisioningErr != nil {
		dto.ProvisioningError = o.ProvisioningErr.Error()
	}
	return dto
}

// HistoryEntryDTO is one audit entry.
type HistoryEntryDTO struct {
	ID        string         `json:"id"`
	Timestamp string         `json:"timestamp"`
	ActorID   string         `json:"actor_id"`
	Action    string         `json:"action"`
	FromState string         `json:"from_state,omitempty"`
	ToState   string         `json:"to_state,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest is the request to load a scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id" validate:"required"`
}

// LoadScenarioResponse is returned after a scenario is seeded.
type LoadScenarioResponse struct {
	Scenario ScenarioDTO `json:"scenario"`
	Message  string      `json:"message"`
}

// =============================================================================
// ERRORS AND VALIDATION
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// FieldError is one failed request-body validation.
type FieldError struct {
	Field string `json:"field"`
	Tag   string `json:"tag"`
	Msg   string `json:"message"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct returns one FieldError per failed rule, or nil.
func validateStruct(s any) []FieldError {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Field: "body", Tag: "invalid", Msg: err.Error()}}
	}

	out := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		e := FieldError{Field: fe.Field(), Tag: fe.Tag()}
		switch fe.Tag() {
		case "required":
			e.Msg = fmt.Sprintf("'%s' is required.", e.Field)
		case "min":
			e.Msg = fmt.Sprintf("'%s' must be at least %s.", e.Field, fe.Param())
		case "max":
			e.Msg = fmt.Sprintf("'%s' must be at most %s.", e.Field, fe.Param())
		case "email":
			e.Msg = "Invalid email format."
		case "oneof":
			e.Msg = fmt.Sprintf("'%s' must be one of: %s.", e.Field, fe.Param())
		default:
			e.Msg = fmt.Sprintf("'%s' failed '%s' validation.", e.Field, e.Tag)
		}
		out = append(out, e)
	}
	return out
}
