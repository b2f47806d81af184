// Package memory provides an in-memory implementation of every storage port
// (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/payroll-engine/boarding"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store implements payroll.EmployeeSource, payroll.ClientSource,
// payroll.ResultSink, boarding.TxStore and boarding.AccountStore.
type Store struct {
	mu    sync.RWMutex
	state state
}

type state struct {
	staff        map[generic.EmployeeID]boarding.Staff
	tickets      map[generic.TicketID]boarding.Ticket
	clients      map[generic.ClientID]payroll.ClientConfig
	payGrades    map[string][]payroll.SalaryComponent
	calculations map[string]payroll.CalculationResult
	accounts     map[string]boarding.Account // by username
	audit        []generic.AuditEntry
}

func New() *Store {
	return &Store{state: state{
		staff:        make(map[generic.EmployeeID]boarding.Staff),
		tickets:      make(map[generic.TicketID]boarding.Ticket),
		clients:      make(map[generic.ClientID]payroll.ClientConfig),
		payGrades:    make(map[string][]payroll.SalaryComponent),
		calculations: make(map[string]payroll.CalculationResult),
		accounts:     make(map[string]boarding.Account),
	}}
}

// clone deep-copies the maps. Values are treated as immutable once stored.
func (s state) clone() state {
	c := state{
		staff:        make(map[generic.EmployeeID]boarding.Staff, len(s.staff)),
		tickets:      make(map[generic.TicketID]boarding.Ticket, len(s.tickets)),
		clients:      make(map[generic.ClientID]payroll.ClientConfig, len(s.clients)),
		payGrades:    make(map[string][]payroll.SalaryComponent, len(s.payGrades)),
		calculations: make(map[string]payroll.CalculationResult, len(s.calculations)),
		accounts:     make(map[string]boarding.Account, len(s.accounts)),
		audit:        append([]generic.AuditEntry{}, s.audit...),
	}
	for k, v := range s.staff {
		c.staff[k] = v
	}
	for k, v := range s.tickets {
		c.tickets[k] = v
	}
	for k, v := range s.clients {
		c.clients[k] = v
	}
	for k, v := range s.payGrades {
		c.payGrades[k] = v
	}
	for k, v := range s.calculations {
		c.calculations[k] = v
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	return c
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (s *Store) WithTx(_ context.Context, fn func(boarding.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(&txView{st: &s.state}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// txView operates on the locked state without re-acquiring the mutex.
type txView struct {
	st *state
}

func (v *txView) GetStaff(_ context.Context, id generic.EmployeeID) (*boarding.Staff, error) {
	return v.st.getStaff(id)
}

func (v *txView) SaveStaff(_ context.Context, staff boarding.Staff) error {
	v.st.staff[staff.ID] = staff
	return nil
}

func (v *txView) GetTicket(_ context.Context, id generic.TicketID) (*boarding.Ticket, error) {
	return v.st.getTicket(id)
}

func (v *txView) SaveTicket(_ context.Context, t boarding.Ticket) error {
	v.st.tickets[t.ID] = t
	return nil
}

func (v *txView) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	v.st.audit = append(v.st.audit, e)
	return nil
}

func (v *txView) QueryAudit(_ context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	return v.st.queryAudit(f), nil
}

// =============================================================================
// BOARDING
// =============================================================================

func (st *state) getStaff(id generic.EmployeeID) (*boarding.Staff, error) {
	staff, ok := st.staff[id]
	if !ok {
		return nil, generic.Errorf(generic.KindNotFound, "memory.GetStaff", "staff %s not found", id)
	}
	return &staff, nil
}

func (st *state) getTicket(id generic.TicketID) (*boarding.Ticket, error) {
	t, ok := st.tickets[id]
	if !ok {
		return nil, generic.Errorf(generic.KindNotFound, "memory.GetTicket", "ticket %s not found", id)
	}
	return &t, nil
}

func (st *state) queryAudit(f generic.AuditFilter) []generic.AuditEntry {
	out := []generic.AuditEntry{}
	for _, e := range st.audit {
		if f.Matches(e) {
			out = append(out, e)
		}
	}
	return out
}

func (s *Store) GetStaff(_ context.Context, id generic.EmployeeID) (*boarding.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getStaff(id)
}

func (s *Store) SaveStaff(_ context.Context, staff boarding.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.staff[staff.ID] = staff
	return nil
}

// ListStaff returns every staff record ordered by ID.
func (s *Store) ListStaff(_ context.Context) ([]boarding.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]boarding.Staff, 0, len(s.state.staff))
	for _, st := range s.state.staff {
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetTicket(_ context.Context, id generic.TicketID) (*boarding.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.getTicket(id)
}

func (s *Store) SaveTicket(_ context.Context, t boarding.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.tickets[t.ID] = t
	return nil
}

func (s *Store) AppendAudit(_ context.Context, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.audit = append(s.state.audit, e)
	return nil
}

func (s *Store) QueryAudit(_ context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.queryAudit(f), nil
}

func (s *Store) SaveAccount(_ context.Context, acct boarding.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.state.accounts[acct.Username]; taken {
		return generic.Errorf(generic.KindInvalidState, "memory.SaveAccount", "username %q is taken", acct.Username)
	}
	s.state.accounts[acct.Username] = acct
	return nil
}

func (s *Store) FindAccountByUsername(_ context.Context, username string) (*boarding.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.state.accounts[username]
	if !ok {
		return nil, nil
	}
	return &acct, nil
}

// =============================================================================
// PAYROLL
// =============================================================================

// SavePayGrade sets the salary components of a pay grade.
func (s *Store) SavePayGrade(_ context.Context, grade string, components []payroll.SalaryComponent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.payGrades[grade] = append([]payroll.SalaryComponent{}, components...)
	return nil
}

// GetEmployee resolves a staff record and its pay grade into a payroll
// employee.
func (s *Store) GetEmployee(_ context.Context, id generic.EmployeeID) (*payroll.Employee, error) {
	const op = "memory.GetEmployee"
	s.mu.RLock()
	defer s.mu.RUnlock()

	staff, ok := s.state.staff[id]
	if !ok {
		return nil, generic.Errorf(generic.KindEmployeeNotFound, op, "employee %s not found", id)
	}
	components, ok := s.state.payGrades[staff.PayGrade]
	if !ok {
		return nil, generic.Errorf(generic.KindInvalidInput, op, "pay grade %q of employee %s is not defined", staff.PayGrade, id)
	}
	return &payroll.Employee{
		ID:         staff.ID,
		ClientID:   staff.ClientID,
		Name:       staff.Name,
		PayGrade:   staff.PayGrade,
		Status:     staff.EmploymentStatus,
		Components: append([]payroll.SalaryComponent{}, components...),
	}, nil
}

func (s *Store) GetClientConfig(_ context.Context, id generic.ClientID) (*payroll.ClientConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.state.clients[id]
	if !ok {
		return nil, generic.Errorf(generic.KindNotFound, "memory.GetClientConfig", "client %s not found", id)
	}
	return &cfg, nil
}

func (s *Store) SaveClientConfig(_ context.Context, cfg payroll.ClientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.clients[cfg.ClientID] = cfg
	return nil
}

func (s *Store) SaveCalculation(_ context.Context, r *payroll.CalculationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.calculations[r.ID] = *r
	return nil
}

func (s *Store) GetCalculation(_ context.Context, id string) (*payroll.CalculationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.state.calculations[id]
	if !ok {
		return nil, generic.Errorf(generic.KindNotFound, "memory.GetCalculation", "calculation %s not found", id)
	}
	return &r, nil
}
