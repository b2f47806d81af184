package boarding

import (
	"strings"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// The functions in this file are the transition rules. They never mutate
// their inputs and check authorization before state.

// InitialState returns the state a new staff record enters.
func InitialState(actor Actor, ticket Ticket) State {
	if actor.Has(CapBoardWithoutApproval) || actor.ID == ticket.RequesterID || !ticket.RequiresApproval {
		return StatePendingControlApproval
	}
	return StatePending
}

// Create initializes a staff record for the ticket.
func Create(actor Actor, ticket Ticket, staff Staff) (Staff, error) {
	const op = "boarding.Create"
	if strings.TrimSpace(staff.Name) == "" {
		return Staff{}, generic.Errorf(generic.KindInvalidInput, op, "staff name is required")
	}
	if actor.ID == "" {
		return Staff{}, generic.Errorf(generic.KindUnauthorized, op, "an identified actor is required")
	}
	staff.TicketID = ticket.ID
	staff.ClientID = ticket.ClientID
	staff.State = InitialState(actor, ticket)
	staff.EmploymentStatus = payroll.StatusInactive
	staff.CreatedBy = actor.ID
	return staff, nil
}

// canSupervise reports whether actor may act on the first tier.
func canSupervise(actor Actor, ticket Ticket) bool {
	return actor.ID != "" && (actor.ID == ticket.RequesterID || actor.Has(CapApproveBoarding))
}

// Approve moves pending to pending_control_approval.
func Approve(actor Actor, ticket Ticket, staff Staff) (Staff, error) {
	const op = "boarding.Approve"
	if !canSupervise(actor, ticket) {
		return Staff{}, generic.Errorf(generic.KindUnauthorized, op,
			"actor %q is neither the ticket requester nor holds %s", actor.ID, CapApproveBoarding)
	}
	if staff.State != StatePending {
		return Staff{}, stateError(op, staff, StatePending)
	}
	staff.State = StatePendingControlApproval
	staff.ApprovedBy = actor.ID
	return staff, nil
}

// Reject moves pending to rejected. A reason is required.
func Reject(actor Actor, ticket Ticket, staff Staff, reason string) (Staff, error) {
	const op = "boarding.Reject"
	if !canSupervise(actor, ticket) {
		return Staff{}, generic.Errorf(generic.KindUnauthorized, op,
			"actor %q is neither the ticket requester nor holds %s", actor.ID, CapApproveBoarding)
	}
	if staff.State != StatePending {
		return Staff{}, stateError(op, staff, StatePending)
	}
	if strings.TrimSpace(reason) == "" {
		return Staff{}, generic.Errorf(generic.KindInvalidInput, op, "a rejection reason is required")
	}
	staff.State = StateRejected
	staff.ApprovedBy = actor.ID
	staff.Reason = reason
	staff.EmploymentStatus = payroll.StatusInactive
	return staff, nil
}

// ControlApprove moves pending_control_approval to control_approved and
// counts the hire against the ticket. Employment becomes active only when
// the offer was already accepted.
func ControlApprove(actor Actor, ticket Ticket, staff Staff) (Staff, Ticket, error) {
	const op = "boarding.ControlApprove"
	if !actor.Has(CapFinalApproval) {
		return Staff{}, Ticket{}, generic.Errorf(generic.KindUnauthorized, op,
			"actor %q lacks %s", actor.ID, CapFinalApproval)
	}
	if staff.State != StatePendingControlApproval {
		return Staff{}, Ticket{}, stateError(op, staff, StatePendingControlApproval)
	}
	staff.State = StateControlApproved
	staff.ControlledBy = actor.ID
	if staff.OfferAccepted {
		staff.EmploymentStatus = payroll.StatusActive
	}
	ticket.BoardedCount++
	return staff, ticket, nil
}

// ControlReject moves pending_control_approval to control_rejected.
// A reason is required.
func ControlReject(actor Actor, staff Staff, reason string) (Staff, error) {
	const op = "boarding.ControlReject"
	if !actor.Has(CapFinalApproval) {
		return Staff{}, generic.Errorf(generic.KindUnauthorized, op,
			"actor %q lacks %s", actor.ID, CapFinalApproval)
	}
	if staff.State != StatePendingControlApproval {
		return Staff{}, stateError(op, staff, StatePendingControlApproval)
	}
	if strings.TrimSpace(reason) == "" {
		return Staff{}, generic.Errorf(generic.KindInvalidInput, op, "a rejection reason is required")
	}
	staff.State = StateControlRejected
	staff.ControlledBy = actor.ID
	staff.Reason = reason
	staff.EmploymentStatus = payroll.StatusInactive
	return staff, nil
}

// AcceptOffer records offer acceptance. The offer must be accepted before
// final approval; activation happens only in ControlApprove.
func AcceptOffer(staff Staff) (Staff, error) {
	const op = "boarding.AcceptOffer"
	if staff.State != StatePending && staff.State != StatePendingControlApproval {
		return Staff{}, stateError(op, staff, StatePending, StatePendingControlApproval)
	}
	if staff.OfferAccepted {
		return Staff{}, generic.Errorf(generic.KindInvalidState, op, "offer already accepted")
	}
	staff.OfferAccepted = true
	return staff, nil
}

func stateError(op string, staff Staff, allowed ...State) error {
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = string(s)
	}
	return generic.Errorf(generic.KindInvalidState, op,
		"staff %s is %s, expected %s", staff.ID, staff.State, strings.Join(names, " or "))
}
