/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements every persistence port of the engine using SQLite. In
  production the same patterns apply to PostgreSQL with minor dialect
  differences.

INTERFACES IMPLEMENTED:
  payroll.EmployeeSource:  staff joined with pay_grades
  payroll.ClientSource:    clients.config_json
  payroll.ResultSink:      calculations
  boarding.TxStore:        staff, tickets, boarding_events
  boarding.AccountStore:   accounts

STAFF AS EMPLOYEES:
  There is no separate employee table. A payroll employee is a staff row;
  its employment_status is written only by boarding transitions, so the
  payroll side can never see an unapproved hire as active.

APPEND-ONLY ENFORCEMENT:
  boarding_events has no UPDATE or DELETE path. Calculations are
  insert-only; a recalculation produces a new row with a new ID.

KEY TABLES:
  clients:         Client payroll configuration (versioned JSON)
  pay_grades:      Salary components per grade
  tickets:         Hiring tickets with boarded counter
  staff:           Boarding records and employment status
  boarding_events: Audit trail of every transition
  calculations:    Persisted payroll results
  accounts:        System accounts provisioned on activation

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. WithTx holds the write lock for the
  whole transaction; the transactional view never re-locks.

USAGE:
  store, err := sqlite.New("./data/payroll.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool with versioned migrations.

SEE ALSO:
  - boarding/service.go: Transaction boundaries
  - payroll/service.go: Read/write ports
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/payroll-engine/boarding"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection: ":memory:" databases are per-connection.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS clients (
		id TEXT PRIMARY KEY,
		name TEXT,
		config_json TEXT NOT NULL,
		version INTEGER DEFAULT 1,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pay_grades (
		name TEXT PRIMARY KEY,
		components_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id TEXT PRIMARY KEY,
		client_id TEXT NOT NULL,
		title TEXT NOT NULL,
		requester_id TEXT NOT NULL,
		requires_approval INTEGER NOT NULL DEFAULT 1,
		positions INTEGER NOT NULL DEFAULT 0,
		boarded_count INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS staff (
		id TEXT PRIMARY KEY,
		ticket_id TEXT NOT NULL REFERENCES tickets(id),
		client_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT,
		pay_grade TEXT,
		state TEXT NOT NULL,
		employment_status TEXT NOT NULL,
		offer_accepted INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL,
		approved_by TEXT,
		controlled_by TEXT,
		reason TEXT,
		account_id TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_staff_ticket ON staff(ticket_id);
	CREATE INDEX IF NOT EXISTS idx_staff_client_status ON staff(client_id, employment_status);

	-- Audit trail (append-only)
	CREATE TABLE IF NOT EXISTS boarding_events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		subject_id TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		action TEXT NOT NULL,
		from_state TEXT,
		to_state TEXT,
		reason TEXT,
		payload_json TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_boarding_events_subject ON boarding_events(subject_id);
	CREATE INDEX IF NOT EXISTS idx_boarding_events_actor ON boarding_events(actor_id);

	CREATE TABLE IF NOT EXISTS calculations (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		client_id TEXT NOT NULL,
		year INTEGER NOT NULL,
		month INTEGER NOT NULL,
		net_salary TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_calculations_employee_period
		ON calculations(employee_id, year, month);

	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		staff_id TEXT NOT NULL UNIQUE,
		username TEXT NOT NULL UNIQUE,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTION SUPPORT
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store boarding.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txStore := &txStore{tx: sqlTx}
	if err := fn(txStore); err != nil {
		return err
	}

	return sqlTx.Commit()
}

type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetStaff(ctx context.Context, id generic.EmployeeID) (*boarding.Staff, error) {
	return getStaff(ctx, ts.tx, id)
}

func (ts *txStore) SaveStaff(ctx context.Context, staff boarding.Staff) error {
	return saveStaff(ctx, ts.tx, staff)
}

func (ts *txStore) GetTicket(ctx context.Context, id generic.TicketID) (*boarding.Ticket, error) {
	return getTicket(ctx, ts.tx, id)
}

func (ts *txStore) SaveTicket(ctx context.Context, t boarding.Ticket) error {
	return saveTicket(ctx, ts.tx, t)
}

func (ts *txStore) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	return appendAudit(ctx, ts.tx, e)
}

func (ts *txStore) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	return queryAudit(ctx, ts.tx, f)
}

// =============================================================================
// STAFF
// =============================================================================

func (s *Store) GetStaff(ctx context.Context, id generic.EmployeeID) (*boarding.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getStaff(ctx, s.db, id)
}

func (s *Store) SaveStaff(ctx context.Context, staff boarding.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveStaff(ctx, s.db, staff)
}

// ListStaff returns all staff of a client ordered by name. An empty
// clientID lists everyone.
func (s *Store) ListStaff(ctx context.Context, clientID generic.ClientID) ([]boarding.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := staffColumns + " FROM staff"
	var args []any
	if clientID != "" {
		query += " WHERE client_id = ?"
		args = append(args, string(clientID))
	}
	query += " ORDER BY name"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []boarding.Staff
	for rows.Next() {
		st, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

const staffColumns = `SELECT id, ticket_id, client_id, name, email, pay_grade, state, employment_status,
	offer_accepted, created_by, approved_by, controlled_by, reason, account_id, created_at, updated_at`

func saveStaff(ctx context.Context, q querier, st boarding.Staff) error {
	query := `
		INSERT INTO staff (id, ticket_id, client_id, name, email, pay_grade, state, employment_status,
			offer_accepted, created_by, approved_by, controlled_by, reason, account_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			pay_grade = excluded.pay_grade,
			state = excluded.state,
			employment_status = excluded.employment_status,
			offer_accepted = excluded.offer_accepted,
			approved_by = excluded.approved_by,
			controlled_by = excluded.controlled_by,
			reason = excluded.reason,
			account_id = excluded.account_id,
			updated_at = excluded.updated_at
	`
	created := st.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	updated := st.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err := q.ExecContext(ctx, query,
		string(st.ID), string(st.TicketID), string(st.ClientID), st.Name,
		nullString(st.Email), nullString(st.PayGrade),
		string(st.State), string(st.EmploymentStatus), boolInt(st.OfferAccepted),
		st.CreatedBy, nullString(st.ApprovedBy), nullString(st.ControlledBy),
		nullString(st.Reason), nullString(st.AccountID),
		created.Format(time.RFC3339), updated.Format(time.RFC3339),
	)
	return err
}

func getStaff(ctx context.Context, q querier, id generic.EmployeeID) (*boarding.Staff, error) {
	rows, err := q.QueryContext(ctx, staffColumns+" FROM staff WHERE id = ?", string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, generic.Errorf(generic.KindNotFound, "sqlite.GetStaff", "staff %s not found", id)
	}
	st, err := scanStaff(rows)
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func scanStaff(rows *sql.Rows) (boarding.Staff, error) {
	var st boarding.Staff
	var email, grade, approvedBy, controlledBy, reason, accountID sql.NullString
	var offer int
	var createdAt, updatedAt string

	err := rows.Scan(&st.ID, &st.TicketID, &st.ClientID, &st.Name, &email, &grade,
		&st.State, &st.EmploymentStatus, &offer, &st.CreatedBy,
		&approvedBy, &controlledBy, &reason, &accountID, &createdAt, &updatedAt)
	if err != nil {
		return boarding.Staff{}, err
	}

	st.Email = email.String
	st.PayGrade = grade.String
	st.ApprovedBy = approvedBy.String
	st.ControlledBy = controlledBy.String
	st.Reason = reason.String
	st.AccountID = accountID.String
	st.OfferAccepted = offer != 0
	st.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	st.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return st, nil
}

// =============================================================================
// TICKETS
// =============================================================================

func (s *Store) GetTicket(ctx context.Context, id generic.TicketID) (*boarding.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTicket(ctx, s.db, id)
}

func (s *Store) SaveTicket(ctx context.Context, t boarding.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveTicket(ctx, s.db, t)
}

func saveTicket(ctx context.Context, q querier, t boarding.Ticket) error {
	query := `
		INSERT INTO tickets (id, client_id, title, requester_id, requires_approval, positions, boarded_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			requires_approval = excluded.requires_approval,
			positions = excluded.positions,
			boarded_count = excluded.boarded_count
	`
	created := t.CreatedAt
	if created.IsZero() {
		created = time.Now().UTC()
	}
	_, err := q.ExecContext(ctx, query,
		string(t.ID), string(t.ClientID), t.Title, t.RequesterID,
		boolInt(t.RequiresApproval), t.Positions, t.BoardedCount,
		created.Format(time.RFC3339),
	)
	return err
}

func getTicket(ctx context.Context, q querier, id generic.TicketID) (*boarding.Ticket, error) {
	var t boarding.Ticket
	var requires int
	var createdAt string

	err := q.QueryRowContext(ctx, `
		SELECT id, client_id, title, requester_id, requires_approval, positions, boarded_count, created_at
		FROM tickets WHERE id = ?`, string(id),
	).Scan(&t.ID, &t.ClientID, &t.Title, &t.RequesterID, &requires, &t.Positions, &t.BoardedCount, &createdAt)

	if err == sql.ErrNoRows {
		return nil, generic.Errorf(generic.KindNotFound, "sqlite.GetTicket", "ticket %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	t.RequiresApproval = requires != 0
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

func (s *Store) AppendAudit(ctx context.Context, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendAudit(ctx, s.db, e)
}

func (s *Store) QueryAudit(ctx context.Context, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryAudit(ctx, s.db, f)
}

func appendAudit(ctx context.Context, q querier, e generic.AuditEntry) error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal audit payload: %w", err)
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO boarding_events (id, subject_id, actor_id, action, from_state, to_state, reason, payload_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SubjectID, e.ActorID, string(e.Action),
		nullString(e.FromState), nullString(e.ToState), nullString(e.Reason),
		string(payload), ts.Format(time.RFC3339Nano),
	)
	return err
}

func queryAudit(ctx context.Context, q querier, f generic.AuditFilter) ([]generic.AuditEntry, error) {
	query := `SELECT id, subject_id, actor_id, action, from_state, to_state, reason, payload_json, created_at
		FROM boarding_events`
	var where []string
	var args []any
	if f.SubjectID != nil {
		where = append(where, "subject_id = ?")
		args = append(args, *f.SubjectID)
	}
	if f.ActorID != nil {
		where = append(where, "actor_id = ?")
		args = append(args, *f.ActorID)
	}
	if len(f.Actions) > 0 {
		marks := make([]string, len(f.Actions))
		for i, a := range f.Actions {
			marks[i] = "?"
			args = append(args, string(a))
		}
		where = append(where, "action IN ("+strings.Join(marks, ", ")+")")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []generic.AuditEntry{}
	for rows.Next() {
		var e generic.AuditEntry
		var action, createdAt string
		var from, to, reason, payload sql.NullString
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.ActorID, &action, &from, &to, &reason, &payload, &createdAt); err != nil {
			return nil, err
		}
		e.Action = generic.AuditAction(action)
		e.FromState = from.String
		e.ToState = to.String
		e.Reason = reason.String
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, createdAt)
		if payload.Valid && payload.String != "null" {
			json.Unmarshal([]byte(payload.String), &e.Payload)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func (s *Store) SaveAccount(ctx context.Context, acct boarding.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO accounts (id, staff_id, username, created_at) VALUES (?, ?, ?, ?)",
		acct.ID, string(acct.StaffID), acct.Username, acct.CreatedAt.UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return generic.Wrap(generic.KindInvalidState, "sqlite.SaveAccount", err, "account already exists")
	}
	return err
}

func (s *Store) FindAccountByUsername(ctx context.Context, username string) (*boarding.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var acct boarding.Account
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		"SELECT id, staff_id, username, created_at FROM accounts WHERE username = ?", username,
	).Scan(&acct.ID, &acct.StaffID, &acct.Username, &createdAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acct.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &acct, nil
}

// =============================================================================
// CLIENTS AND PAY GRADES
// =============================================================================

// SaveClientConfig upserts a client's configuration, bumping its version.
func (s *Store) SaveClientConfig(ctx context.Context, cfg payroll.ClientConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal client config: %w", err)
	}

	query := `
		INSERT INTO clients (id, name, config_json, version, created_at, updated_at)
		VALUES (?, ?, ?, 1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			config_json = excluded.config_json,
			version = clients.version + 1,
			updated_at = excluded.updated_at
	`
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = s.db.ExecContext(ctx, query, string(cfg.ClientID), cfg.Name, string(configJSON), now, now)
	return err
}

func (s *Store) GetClientConfig(ctx context.Context, id generic.ClientID) (*payroll.ClientConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var configJSON string
	err := s.db.QueryRowContext(ctx, "SELECT config_json FROM clients WHERE id = ?", string(id)).Scan(&configJSON)
	if err == sql.ErrNoRows {
		return nil, generic.Errorf(generic.KindNotFound, "sqlite.GetClientConfig", "client %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	var cfg payroll.ClientConfig
	if err := json.Unmarshal([]byte(configJSON), &cfg); err != nil {
		return nil, generic.Wrap(generic.KindInternal, "sqlite.GetClientConfig", err, "corrupt client config")
	}
	return &cfg, nil
}

// ClientConfigVersion returns how many times a client config was saved.
func (s *Store) ClientConfigVersion(ctx context.Context, id generic.ClientID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM clients WHERE id = ?", string(id)).Scan(&version)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	return version, err
}

// SavePayGrade sets the salary components of a pay grade.
func (s *Store) SavePayGrade(ctx context.Context, grade string, components []payroll.SalaryComponent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(components)
	if err != nil {
		return fmt.Errorf("failed to marshal pay grade: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO pay_grades (name, components_json, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			components_json = excluded.components_json,
			updated_at = excluded.updated_at`,
		grade, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// =============================================================================
// PAYROLL PORTS
// =============================================================================

// GetEmployee resolves a staff row and its pay grade into a payroll employee.
func (s *Store) GetEmployee(ctx context.Context, id generic.EmployeeID) (*payroll.Employee, error) {
	const op = "sqlite.GetEmployee"
	s.mu.RLock()
	defer s.mu.RUnlock()

	var emp payroll.Employee
	var grade, componentsJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT s.id, s.client_id, s.name, s.pay_grade, s.employment_status, g.components_json
		FROM staff s LEFT JOIN pay_grades g ON g.name = s.pay_grade
		WHERE s.id = ?`, string(id),
	).Scan(&emp.ID, &emp.ClientID, &emp.Name, &grade, &emp.Status, &componentsJSON)

	if err == sql.ErrNoRows {
		return nil, generic.Errorf(generic.KindEmployeeNotFound, op, "employee %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	emp.PayGrade = grade.String
	if !componentsJSON.Valid {
		return nil, generic.Errorf(generic.KindInvalidInput, op, "pay grade %q of employee %s is not defined", emp.PayGrade, id)
	}
	if err := json.Unmarshal([]byte(componentsJSON.String), &emp.Components); err != nil {
		return nil, generic.Wrap(generic.KindInternal, op, err, "corrupt pay grade")
	}
	return &emp, nil
}

// SaveCalculation stores a calculation result. Insert-only.
func (s *Store) SaveCalculation(ctx context.Context, r *payroll.CalculationResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveCalculation(ctx, s.db, r)
}

// SaveCalculationAudited stores a calculation and its audit entry in one
// transaction. Neither row is written if either insert fails.
func (s *Store) SaveCalculationAudited(ctx context.Context, r *payroll.CalculationResult, e generic.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := saveCalculation(ctx, tx, r); err != nil {
		return err
	}
	if err := appendAudit(ctx, tx, e); err != nil {
		return err
	}
	return tx.Commit()
}

func saveCalculation(ctx context.Context, q querier, r *payroll.CalculationResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal calculation: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO calculations (id, employee_id, client_id, year, month, net_salary, result_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.EmployeeID), string(r.ClientID), r.Year, int(r.Month),
		r.NetSalary.StringFixed(2), string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if isUniqueConstraintError(err) {
		return generic.Wrap(generic.KindInvalidState, "sqlite.SaveCalculation", err, "calculation already stored")
	}
	return err
}

func (s *Store) GetCalculation(ctx context.Context, id string) (*payroll.CalculationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var data string
	err := s.db.QueryRowContext(ctx, "SELECT result_json FROM calculations WHERE id = ?", id).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, generic.Errorf(generic.KindNotFound, "sqlite.GetCalculation", "calculation %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	var r payroll.CalculationResult
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, generic.Wrap(generic.KindInternal, "sqlite.GetCalculation", err, "corrupt calculation")
	}
	return &r, nil
}

// ListCalculations returns an employee's calculations, newest period first.
func (s *Store) ListCalculations(ctx context.Context, employeeID generic.EmployeeID) ([]payroll.CalculationResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT result_json FROM calculations WHERE employee_id = ?
		ORDER BY year DESC, month DESC, created_at DESC`, string(employeeID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []payroll.CalculationResult{}
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r payroll.CalculationResult
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"accounts", "calculations", "boarding_events", "staff", "tickets", "pay_grades", "clients"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
