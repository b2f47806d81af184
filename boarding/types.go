/*
Package boarding implements the staff boarding approval workflow.

PURPOSE:
  A new hire is boarded against a hiring ticket and must pass up to two
  approval tiers before becoming payroll-eligible:

    create ──► pending ──approve──► pending_control_approval ──control_approve──► control_approved
                 │                        │
                 └─reject─► rejected      └─control_reject─► control_rejected

  Creation skips the first tier (enters pending_control_approval) when the
  creator holds board_without_approval, is the ticket's requester, or the
  ticket does not require approval.

ELIGIBILITY:
  Employment status is inactive in every state. control_approve flips it
  to active only if the offer was already accepted; accepting the offer
  later completes the activation.

ATOMICITY:
  Each transition writes the staff record, the ticket counter and an audit
  entry in one transaction. Account provisioning runs after commit and
  fails open: its error is reported in the Outcome, the approval stands.

SEE ALSO:
  - machine.go: Pure transition rules
  - service.go: Transactional service
  - accounts.go: System account provisioning hook
*/
package boarding

import (
	"time"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// STATES AND CAPABILITIES
// =============================================================================

type State string

const (
	StatePending                State = "pending"
	StatePendingControlApproval State = "pending_control_approval"
	StateControlApproved        State = "control_approved"
	StateControlRejected        State = "control_rejected"
	StateRejected               State = "rejected"
)

// Terminal reports whether no further approval transition is possible.
func (s State) Terminal() bool {
	return s == StateControlApproved || s == StateControlRejected || s == StateRejected
}

type Capability string

const (
	CapBoardWithoutApproval Capability = "board_without_approval"
	CapApproveBoarding      Capability = "approve_boarding"
	CapFinalApproval        Capability = "final_approval"
)

// Actor is whoever performs a transition.
type Actor struct {
	ID           string
	Capabilities []Capability
}

// Has reports whether the actor holds c.
func (a Actor) Has(c Capability) bool {
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// =============================================================================
// RECORDS
// =============================================================================

// Ticket is a hiring request that staff are boarded against.
type Ticket struct {
	ID               generic.TicketID `json:"id"`
	ClientID         generic.ClientID `json:"client_id"`
	Title            string           `json:"title"`
	RequesterID      string           `json:"requester_id"`
	RequiresApproval bool             `json:"requires_approval"`
	Positions        int              `json:"positions"`
	BoardedCount     int              `json:"boarded_count"`
	CreatedAt        time.Time        `json:"created_at"`
}

// Staff is a boarded (or boarding) person.
type Staff struct {
	ID               generic.EmployeeID       `json:"id"`
	TicketID         generic.TicketID         `json:"ticket_id"`
	ClientID         generic.ClientID         `json:"client_id"`
	Name             string                   `json:"name"`
	Email            string                   `json:"email"`
	PayGrade         string                   `json:"pay_grade"`
	State            State                    `json:"state"`
	EmploymentStatus payroll.EmploymentStatus `json:"employment_status"`
	OfferAccepted    bool                     `json:"offer_accepted"`
	CreatedBy        string                   `json:"created_by"`
	ApprovedBy       string                   `json:"approved_by,omitempty"`
	ControlledBy     string                   `json:"controlled_by,omitempty"`
	Reason           string                   `json:"reason,omitempty"`
	AccountID        string                   `json:"account_id,omitempty"`
	CreatedAt        time.Time                `json:"created_at"`
	UpdatedAt        time.Time                `json:"updated_at"`
}

// Active reports whether the staff member is payroll-eligible.
func (s Staff) Active() bool {
	return s.EmploymentStatus == payroll.StatusActive
}

// Account is the system account linked to an activated staff member.
type Account struct {
	ID        string             `json:"id"`
	StaffID   generic.EmployeeID `json:"staff_id"`
	Username  string             `json:"username"`
	CreatedAt time.Time          `json:"created_at"`
}
