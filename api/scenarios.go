/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the database with realistic
	data for testing and demos. Each scenario creates a client config from
	a factory preset, pay grades, a hiring ticket and staff walked through
	the boarding workflow.

AVAILABLE SCENARIOS:

	standard-client:   Calendar-day client, two active employees
	working-days:      Working-day client with a formula allowance rule
	pending-approvals: Staff parked at every boarding stage

HOW SCENARIOS WORK:
 1. Reset database (clear all data)
 2. Create client config via factory preset
 3. Create pay grades
 4. Open a ticket and board staff through the real workflow
 5. Optionally run payroll for the current month

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "standard-client"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add entry to 'loaders'

NOTE:

	Scenarios reset the database. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and helpers
  - factory/presets.go: Client config presets
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/boarding"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "standard-client",
		Name:        "Standard Client",
		Description: "Calendar-day billing, all statutory levies, two active employees with June payroll",
		Category:    "payroll",
	},
	{
		ID:          "working-days",
		Name:        "Working-Days Client",
		Description: "Working-day billing with an attendance bonus formula rule",
		Category:    "payroll",
	},
	{
		ID:          "pending-approvals",
		Name:        "Pending Approvals",
		Description: "Staff at pending, control, rejected and active stages of boarding",
		Category:    "boarding",
	},
}

// Demo actors. Identity normally arrives from the gateway headers.
var (
	demoRequester  = boarding.Actor{ID: "demo-requester"}
	demoHR         = boarding.Actor{ID: "demo-hr", Capabilities: []boarding.Capability{boarding.CapApproveBoarding}}
	demoController = boarding.Actor{ID: "demo-controller", Capabilities: []boarding.Capability{boarding.CapFinalApproval}}
)

func (h *Handler) loaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"standard-client":   h.loadStandardClientScenario,
		"working-days":      h.loadWorkingDaysScenario,
		"pending-approvals": h.loadPendingApprovalsScenario,
	}
}

// ListScenarios returns available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
// GET /api/scenarios/current
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentScenario
	h.mu.Unlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the database and loads a predefined scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !bind(w, r, &req) {
		return
	}

	load, ok := h.loaders()[req.ScenarioID]
	if !ok {
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	}

	ctx := r.Context()
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load scenario: %v", err), err)
		return
	}
	h.currentScenario = req.ScenarioID

	for _, s := range scenarios {
		if s.ID == req.ScenarioID {
			writeJSON(w, http.StatusOK, LoadScenarioResponse{Scenario: s, Message: "Scenario loaded"})
			return
		}
	}
}

// ResetDatabase clears all data.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

func (h *Handler) loadStandardClientScenario(ctx context.Context) error {
	if err := h.setupClient(ctx, "standard", "acme", "Acme Logistics"); err != nil {
		return err
	}
	if err := h.seedPayGrades(ctx); err != nil {
		return err
	}

	ticket, err := h.openTicket(ctx, "ticket-001", "acme", "Warehouse team", true)
	if err != nil {
		return err
	}
	hires := []boarding.Staff{
		{ID: "emp-001", Name: "Alice Johnson", Email: "alice@acme.example", PayGrade: "G1"},
		{ID: "emp-002", Name: "Bola Adeyemi", Email: "bola@acme.example", PayGrade: "G2"},
	}
	for _, staff := range hires {
		if err := h.boardToActive(ctx, ticket.ID, staff); err != nil {
			return err
		}
	}

	// June payroll with one partial month
	_, err = h.Payroll.CalculateBulk(ctx, []payroll.AttendanceInput{
		{EmployeeID: "emp-001", DaysWorked: 30, Month: time.June, Year: 2025},
		{EmployeeID: "emp-002", DaysWorked: 21, Month: time.June, Year: 2025},
	})
	return err
}

func (h *Handler) loadWorkingDaysScenario(ctx context.Context) error {
	if err := h.setupClient(ctx, "working_days", "globex", "Globex Services"); err != nil {
		return err
	}
	if err := h.seedPayGrades(ctx); err != nil {
		return err
	}

	ticket, err := h.openTicket(ctx, "ticket-101", "globex", "Support desk", false)
	if err != nil {
		return err
	}
	return h.boardToActive(ctx, ticket.ID, boarding.Staff{
		ID: "emp-101", Name: "Chen Wei", Email: "chen@globex.example", PayGrade: "G2",
	})
}

func (h *Handler) loadPendingApprovalsScenario(ctx context.Context) error {
	if err := h.setupClient(ctx, "minimal", "initech", "Initech"); err != nil {
		return err
	}
	if err := h.seedPayGrades(ctx); err != nil {
		return err
	}

	ticket, err := h.openTicket(ctx, "ticket-201", "initech", "Analysts", true)
	if err != nil {
		return err
	}

	// Awaiting first-tier approval
	if _, err := h.Boarding.Board(ctx, demoHR, ticket.ID, boarding.Staff{
		ID: "emp-201", Name: "Dana Scully", Email: "dana@initech.example", PayGrade: "G1",
	}); err != nil {
		return err
	}

	// Awaiting control approval, offer already accepted
	if _, err := h.Boarding.Board(ctx, demoHR, ticket.ID, boarding.Staff{
		ID: "emp-202", Name: "Eli Brooks", Email: "eli@initech.example", PayGrade: "G1",
	}); err != nil {
		return err
	}
	if _, err := h.Boarding.Approve(ctx, demoHR, "emp-202"); err != nil {
		return err
	}
	if _, err := h.Boarding.AcceptOffer(ctx, demoRequester, "emp-202"); err != nil {
		return err
	}

	// Rejected at first tier
	if _, err := h.Boarding.Board(ctx, demoHR, ticket.ID, boarding.Staff{
		ID: "emp-203", Name: "Fay Okafor", Email: "fay@initech.example", PayGrade: "G2",
	}); err != nil {
		return err
	}
	if _, err := h.Boarding.Reject(ctx, demoHR, "emp-203", "Position filled internally"); err != nil {
		return err
	}

	// Control approved but offer not yet accepted
	if _, err := h.Boarding.Board(ctx, demoHR, ticket.ID, boarding.Staff{
		ID: "emp-204", Name: "Gus Lind", Email: "gus@initech.example", PayGrade: "G2",
	}); err != nil {
		return err
	}
	if _, err := h.Boarding.Approve(ctx, demoHR, "emp-204"); err != nil {
		return err
	}
	_, err = h.Boarding.ControlApprove(ctx, demoController, "emp-204")
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) setupClient(ctx context.Context, preset string, id generic.ClientID, name string) error {
	cfg, err := h.Configs.FromPreset(preset, id, name)
	if err != nil {
		return err
	}
	return h.Store.SaveClientConfig(ctx, *cfg)
}

func (h *Handler) seedPayGrades(ctx context.Context) error {
	grades := map[string][]payroll.SalaryComponent{
		"G1": {
			{Name: payroll.ComponentBasicSalary, Amount: decimal.NewFromInt(250000), Category: payroll.CategoryBase},
			{Name: payroll.ComponentHousingAllowance, Amount: decimal.NewFromInt(100000), Category: payroll.CategoryAllowance},
			{Name: payroll.ComponentTransportAllowance, Amount: decimal.NewFromInt(50000), Category: payroll.CategoryAllowance},
		},
		"G2": {
			{Name: payroll.ComponentBasicSalary, Amount: decimal.NewFromInt(420000), Category: payroll.CategoryBase},
			{Name: payroll.ComponentHousingAllowance, Amount: decimal.NewFromInt(150000), Category: payroll.CategoryAllowance},
			{Name: payroll.ComponentTransportAllowance, Amount: decimal.NewFromInt(60000), Category: payroll.CategoryAllowance},
		},
	}
	for grade, components := range grades {
		if err := h.Store.SavePayGrade(ctx, grade, components); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) openTicket(ctx context.Context, id generic.TicketID, client generic.ClientID, title string, gated bool) (*boarding.Ticket, error) {
	return h.Boarding.OpenTicket(ctx, demoRequester, boarding.Ticket{
		ID:               id,
		ClientID:         client,
		Title:            title,
		Positions:        5,
		RequiresApproval: gated,
	})
}

// boardToActive walks a hire through every approval tier.
func (h *Handler) boardToActive(ctx context.Context, ticketID generic.TicketID, staff boarding.Staff) error {
	out, err := h.Boarding.Board(ctx, demoHR, ticketID, staff)
	if err != nil {
		return err
	}
	if out.Staff.State == boarding.StatePending {
		if _, err := h.Boarding.Approve(ctx, demoHR, staff.ID); err != nil {
			return err
		}
	}
	if _, err := h.Boarding.AcceptOffer(ctx, demoRequester, staff.ID); err != nil {
		return err
	}
	out, err = h.Boarding.ControlApprove(ctx, demoController, staff.ID)
	if err != nil {
		return err
	}
	if !out.Activated {
		return fmt.Errorf("staff %s not activated", staff.ID)
	}
	return nil
}
