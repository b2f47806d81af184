package boarding

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// STORAGE
// =============================================================================

// Store persists boarding records. Lookups of missing records return an
// error matching generic.ErrNotFound.
type Store interface {
	GetStaff(ctx context.Context, id generic.EmployeeID) (*Staff, error)
	SaveStaff(ctx context.Context, staff Staff) error
	GetTicket(ctx context.Context, id generic.TicketID) (*Ticket, error)
	SaveTicket(ctx context.Context, ticket Ticket) error
	generic.AuditLog
}

// TxStore runs fn atomically. Any error returned by fn rolls back every
// write made through the Store it was given.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// SERVICE
// =============================================================================

// Outcome is the committed result of a transition.
type Outcome struct {
	Staff     Staff    `json:"staff"`
	Ticket    Ticket   `json:"ticket"`
	Activated bool     `json:"activated"`
	Account   *Account `json:"account,omitempty"`

	// ProvisioningErr is set when the post-commit account hook failed.
	// The transition itself is committed regardless.
	ProvisioningErr error `json:"-"`
}

type Service struct {
	store       TxStore
	provisioner AccountProvisioner // optional
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
}

type Option func(*Service)

// WithProvisioner sets the hook run when a staff member becomes active.
func WithProvisioner(p AccountProvisioner) Option {
	return func(s *Service) { s.provisioner = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store TxStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// =============================================================================
// TICKETS
// =============================================================================

// OpenTicket creates a hiring ticket requested by actor.
func (s *Service) OpenTicket(ctx context.Context, actor Actor, t Ticket) (*Ticket, error) {
	const op = "boarding.OpenTicket"
	if actor.ID == "" {
		return nil, generic.Errorf(generic.KindUnauthorized, op, "an identified actor is required")
	}
	if t.ClientID == "" || strings.TrimSpace(t.Title) == "" {
		return nil, generic.Errorf(generic.KindInvalidInput, op, "client_id and title are required")
	}
	if t.Positions < 0 {
		return nil, generic.Errorf(generic.KindInvalidInput, op, "positions cannot be negative")
	}
	if t.ID == "" {
		t.ID = generic.TicketID(s.newID())
	}
	t.RequesterID = actor.ID
	t.BoardedCount = 0
	t.CreatedAt = s.now()

	err := s.store.WithTx(ctx, func(tx Store) error {
		if err := tx.SaveTicket(ctx, t); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, generic.AuditEntry{
			ID:        s.newID(),
			Timestamp: t.CreatedAt,
			ActorID:   actor.ID,
			Action:    generic.AuditTicketOpened,
			SubjectID: string(t.ID),
			Payload:   map[string]any{"client_id": string(t.ClientID), "requires_approval": t.RequiresApproval},
		})
	})
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *Service) GetTicket(ctx context.Context, id generic.TicketID) (*Ticket, error) {
	return s.store.GetTicket(ctx, id)
}

// =============================================================================
// STAFF TRANSITIONS
// =============================================================================

// Board creates a staff record against a ticket.
func (s *Service) Board(ctx context.Context, actor Actor, ticketID generic.TicketID, staff Staff) (*Outcome, error) {
	var out Outcome
	err := s.store.WithTx(ctx, func(tx Store) error {
		ticket, err := tx.GetTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		next, err := Create(actor, *ticket, staff)
		if err != nil {
			return err
		}
		if next.ID == "" {
			next.ID = generic.EmployeeID(s.newID())
		}
		next.CreatedAt = s.now()
		next.UpdatedAt = next.CreatedAt
		if err := tx.SaveStaff(ctx, next); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, s.entry(actor, generic.AuditStaffCreated, "", next, "")); err != nil {
			return err
		}
		out = Outcome{Staff: next, Ticket: *ticket}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "staff boarded",
		slog.String("staff_id", string(out.Staff.ID)),
		slog.String("ticket_id", string(ticketID)),
		slog.String("state", string(out.Staff.State)),
	)
	return &out, nil
}

// Approve performs the first-tier approval.
func (s *Service) Approve(ctx context.Context, actor Actor, id generic.EmployeeID) (*Outcome, error) {
	return s.transition(ctx, actor, id, generic.AuditStaffApproved, "",
		func(staff Staff, ticket Ticket) (Staff, Ticket, error) {
			next, err := Approve(actor, ticket, staff)
			return next, ticket, err
		})
}

// Reject performs the first-tier rejection.
func (s *Service) Reject(ctx context.Context, actor Actor, id generic.EmployeeID, reason string) (*Outcome, error) {
	return s.transition(ctx, actor, id, generic.AuditStaffRejected, reason,
		func(staff Staff, ticket Ticket) (Staff, Ticket, error) {
			next, err := Reject(actor, ticket, staff, reason)
			return next, ticket, err
		})
}

// ControlApprove performs the final approval.
func (s *Service) ControlApprove(ctx context.Context, actor Actor, id generic.EmployeeID) (*Outcome, error) {
	return s.transition(ctx, actor, id, generic.AuditControlApproved, "",
		func(staff Staff, ticket Ticket) (Staff, Ticket, error) {
			return ControlApprove(actor, ticket, staff)
		})
}

// ControlReject performs the final rejection.
func (s *Service) ControlReject(ctx context.Context, actor Actor, id generic.EmployeeID, reason string) (*Outcome, error) {
	return s.transition(ctx, actor, id, generic.AuditControlRejected, reason,
		func(staff Staff, ticket Ticket) (Staff, Ticket, error) {
			next, err := ControlReject(actor, staff, reason)
			return next, ticket, err
		})
}

// AcceptOffer records the hire's acceptance of the offer.
func (s *Service) AcceptOffer(ctx context.Context, actor Actor, id generic.EmployeeID) (*Outcome, error) {
	const op = "boarding.AcceptOffer"
	if actor.ID == "" {
		return nil, generic.Errorf(generic.KindUnauthorized, op, "an identified actor is required")
	}
	return s.transition(ctx, actor, id, generic.AuditOfferAccepted, "",
		func(staff Staff, ticket Ticket) (Staff, Ticket, error) {
			next, err := AcceptOffer(staff)
			return next, ticket, err
		})
}

func (s *Service) GetStaff(ctx context.Context, id generic.EmployeeID) (*Staff, error) {
	return s.store.GetStaff(ctx, id)
}

// History returns the audit trail of one staff record, oldest first.
func (s *Service) History(ctx context.Context, id generic.EmployeeID) ([]generic.AuditEntry, error) {
	subject := string(id)
	return s.store.QueryAudit(ctx, generic.AuditFilter{SubjectID: &subject})
}

type step func(staff Staff, ticket Ticket) (Staff, Ticket, error)

// transition loads, applies and persists one step in a single transaction,
// then runs the activation hook if the step made the staff member active.
func (s *Service) transition(ctx context.Context, actor Actor, id generic.EmployeeID, action generic.AuditAction, reason string, apply step) (*Outcome, error) {
	var out Outcome
	err := s.store.WithTx(ctx, func(tx Store) error {
		staff, err := tx.GetStaff(ctx, id)
		if err != nil {
			return err
		}
		ticket, err := tx.GetTicket(ctx, staff.TicketID)
		if err != nil {
			return err
		}

		next, nextTicket, err := apply(*staff, *ticket)
		if err != nil {
			return err
		}
		next.UpdatedAt = s.now()

		if err := tx.SaveStaff(ctx, next); err != nil {
			return err
		}
		if nextTicket != *ticket {
			if err := tx.SaveTicket(ctx, nextTicket); err != nil {
				return err
			}
		}
		if err := tx.AppendAudit(ctx, s.entry(actor, action, staff.State, next, reason)); err != nil {
			return err
		}

		out = Outcome{Staff: next, Ticket: nextTicket, Activated: !staff.Active() && next.Active()}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "staff transition committed",
		slog.String("staff_id", string(id)),
		slog.String("action", string(action)),
		slog.String("state", string(out.Staff.State)),
		slog.Bool("activated", out.Activated),
	)
	if out.Activated {
		s.activate(ctx, actor, &out)
	}
	return &out, nil
}

// activate runs the account hook. Failures are logged and reported on the
// outcome; the committed transition is never undone.
func (s *Service) activate(ctx context.Context, actor Actor, out *Outcome) {
	if s.provisioner == nil {
		return
	}
	acct, err := s.provisioner.ProvisionAccount(ctx, out.Staff)
	if err != nil {
		out.ProvisioningErr = err
		s.logger.ErrorContext(ctx, "account provisioning failed",
			slog.String("staff_id", string(out.Staff.ID)),
			slog.String("error", err.Error()),
		)
		return
	}
	out.Account = acct

	// The record may have moved since the transition committed; link onto
	// the current version.
	var linked Staff
	err = s.store.WithTx(ctx, func(tx Store) error {
		current, err := tx.GetStaff(ctx, out.Staff.ID)
		if err != nil {
			return err
		}
		current.AccountID = acct.ID
		if err := tx.SaveStaff(ctx, *current); err != nil {
			return err
		}
		linked = *current
		return tx.AppendAudit(ctx, generic.AuditEntry{
			ID:        s.newID(),
			Timestamp: s.now(),
			ActorID:   actor.ID,
			Action:    generic.AuditAccountProvisioned,
			SubjectID: string(current.ID),
			Payload:   map[string]any{"account_id": acct.ID, "username": acct.Username},
		})
	})
	if err == nil {
		out.Staff = linked
	}
	if err != nil {
		out.ProvisioningErr = err
		s.logger.ErrorContext(ctx, "linking provisioned account failed",
			slog.String("staff_id", string(out.Staff.ID)),
			slog.String("account_id", acct.ID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *Service) entry(actor Actor, action generic.AuditAction, from State, staff Staff, reason string) generic.AuditEntry {
	return generic.AuditEntry{
		ID:        s.newID(),
		Timestamp: s.now(),
		ActorID:   actor.ID,
		Action:    action,
		SubjectID: string(staff.ID),
		FromState: string(from),
		ToState:   string(staff.State),
		Reason:    reason,
		Payload: map[string]any{
			"ticket_id":         string(staff.TicketID),
			"employment_status": string(staff.EmploymentStatus),
			"offer_accepted":    staff.OfferAccepted,
		},
	}
}
