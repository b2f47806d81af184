/*
store.go - Audit trail types shared by the persistence layer

PURPOSE:
  Defines the append-only audit entry written alongside every boarding
  transition and every persisted payroll calculation. Stores implement
  AuditLog; domain packages only produce entries.

APPEND-ONLY CONTRACT:
  Audit entries are never updated or deleted. A rejected transition that
  is later re-submitted produces a new entry, not an edit.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: boarding_events table
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - boarding/service.go: Writes one entry per transition inside WithTx
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Separate from domain records, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID        string
	Timestamp time.Time
	ActorID   string // who performed the action
	Action    AuditAction
	SubjectID string // staff ID or calculation ID
	FromState string
	ToState   string
	Reason    string
	Payload   map[string]any // action-specific data
}

type AuditAction string

const (
	AuditTicketOpened       AuditAction = "ticket_opened"
	AuditStaffCreated       AuditAction = "staff_created"
	AuditStaffApproved      AuditAction = "staff_approved"
	AuditStaffRejected      AuditAction = "staff_rejected"
	AuditControlApproved    AuditAction = "control_approved"
	AuditControlRejected    AuditAction = "control_rejected"
	AuditOfferAccepted      AuditAction = "offer_accepted"
	AuditAccountProvisioned AuditAction = "account_provisioned"
	AuditPayrollCalculated  AuditAction = "payroll_calculated"
	AuditClientConfigChange AuditAction = "client_config_changed"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	SubjectID *string
	ActorID   *string
	Actions   []AuditAction
}

// Matches reports whether e passes the filter.
func (f AuditFilter) Matches(e AuditEntry) bool {
	if f.SubjectID != nil && e.SubjectID != *f.SubjectID {
		return false
	}
	if f.ActorID != nil && e.ActorID != *f.ActorID {
		return false
	}
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if e.Action == a {
			return true
		}
	}
	return false
}
