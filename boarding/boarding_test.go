package boarding_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/boarding"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/mocks"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/memory"
)

var (
	requester  = boarding.Actor{ID: "req-1"}
	recruiter  = boarding.Actor{ID: "rec-1"}
	hr         = boarding.Actor{ID: "hr-1", Capabilities: []boarding.Capability{boarding.CapApproveBoarding}}
	controller = boarding.Actor{ID: "ctl-1", Capabilities: []boarding.Capability{boarding.CapFinalApproval}}
	fastTrack  = boarding.Actor{ID: "ops-1", Capabilities: []boarding.Capability{boarding.CapBoardWithoutApproval}}
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
}

func newHire(name string) boarding.Staff {
	return boarding.Staff{Name: name, Email: name + "@example.com", PayGrade: "G1"}
}

// setup opens a ticket that requires approval and returns the pieces.
func setup(t *testing.T, opts ...boarding.Option) (*memory.Store, *boarding.Service, *boarding.Ticket) {
	t.Helper()
	store := memory.New()
	opts = append([]boarding.Option{boarding.WithClock(fixedClock)}, opts...)
	svc := boarding.NewService(store, opts...)
	ticket, err := svc.OpenTicket(context.Background(), requester, boarding.Ticket{
		ClientID:         "client-1",
		Title:            "Warehouse associates",
		Positions:        3,
		RequiresApproval: true,
	})
	require.NoError(t, err)
	return store, svc, ticket
}

// =============================================================================
// PURE TRANSITIONS
// =============================================================================

func TestInitialState(t *testing.T) {
	gated := boarding.Ticket{RequesterID: "req-1", RequiresApproval: true}
	open := boarding.Ticket{RequesterID: "req-1", RequiresApproval: false}

	tests := []struct {
		name   string
		actor  boarding.Actor
		ticket boarding.Ticket
		want   boarding.State
	}{
		{"plain actor on gated ticket", recruiter, gated, boarding.StatePending},
		{"approver capability alone does not skip", hr, gated, boarding.StatePending},
		{"board_without_approval skips", fastTrack, gated, boarding.StatePendingControlApproval},
		{"ticket requester skips", requester, gated, boarding.StatePendingControlApproval},
		{"ungated ticket skips", recruiter, open, boarding.StatePendingControlApproval},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, boarding.InitialState(tt.actor, tt.ticket))
		})
	}
}

func TestTransitions_AuthorizationCheckedBeforeState(t *testing.T) {
	ticket := boarding.Ticket{RequesterID: "req-1", RequiresApproval: true}
	done := boarding.Staff{ID: "s-1", State: boarding.StateControlApproved}

	_, err := boarding.Approve(recruiter, ticket, done)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	_, err = boarding.Reject(recruiter, ticket, done, "")
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	_, _, err = boarding.ControlApprove(hr, ticket, done)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	_, err = boarding.ControlReject(requester, done, "")
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	// Authorized actors now see the state error
	_, err = boarding.Approve(hr, ticket, done)
	assert.ErrorIs(t, err, generic.ErrInvalidState)
	_, _, err = boarding.ControlApprove(controller, ticket, done)
	assert.ErrorIs(t, err, generic.ErrInvalidState)
}

func TestTransitions_RequesterMayApproveFirstTier(t *testing.T) {
	ticket := boarding.Ticket{RequesterID: "req-1", RequiresApproval: true}
	pending := boarding.Staff{ID: "s-1", State: boarding.StatePending}

	next, err := boarding.Approve(requester, ticket, pending)
	require.NoError(t, err)
	assert.Equal(t, boarding.StatePendingControlApproval, next.State)
	assert.Equal(t, "req-1", next.ApprovedBy)
	assert.Equal(t, boarding.StatePending, pending.State, "input must not be mutated")
}

func TestTransitions_RejectionsRequireReason(t *testing.T) {
	ticket := boarding.Ticket{RequesterID: "req-1"}

	_, err := boarding.Reject(hr, ticket, boarding.Staff{State: boarding.StatePending}, "   ")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = boarding.ControlReject(controller, boarding.Staff{State: boarding.StatePendingControlApproval}, "")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	next, err := boarding.ControlReject(controller, boarding.Staff{State: boarding.StatePendingControlApproval}, "failed background check")
	require.NoError(t, err)
	assert.Equal(t, boarding.StateControlRejected, next.State)
	assert.Equal(t, payroll.StatusInactive, next.EmploymentStatus)
}

func TestControlApprove_ActivatesOnlyWithAcceptedOffer(t *testing.T) {
	ticket := boarding.Ticket{BoardedCount: 2}
	staff := boarding.Staff{State: boarding.StatePendingControlApproval, EmploymentStatus: payroll.StatusInactive}

	next, nextTicket, err := boarding.ControlApprove(controller, ticket, staff)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusInactive, next.EmploymentStatus)
	assert.Equal(t, 3, nextTicket.BoardedCount)
	assert.Equal(t, 2, ticket.BoardedCount)

	staff.OfferAccepted = true
	next, _, err = boarding.ControlApprove(controller, ticket, staff)
	require.NoError(t, err)
	assert.Equal(t, payroll.StatusActive, next.EmploymentStatus)
}

func TestAcceptOffer_States(t *testing.T) {
	tests := []struct {
		name    string
		staff   boarding.Staff
		wantErr error
	}{
		{"pending", boarding.Staff{State: boarding.StatePending}, nil},
		{"awaiting control", boarding.Staff{State: boarding.StatePendingControlApproval}, nil},
		{"already control approved", boarding.Staff{State: boarding.StateControlApproved}, generic.ErrInvalidState},
		{"rejected", boarding.Staff{State: boarding.StateRejected}, generic.ErrInvalidState},
		{"control rejected", boarding.Staff{State: boarding.StateControlRejected}, generic.ErrInvalidState},
		{"accepted twice", boarding.Staff{State: boarding.StatePending, OfferAccepted: true}, generic.ErrInvalidState},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.staff.EmploymentStatus = payroll.StatusInactive
			next, err := boarding.AcceptOffer(tt.staff)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.True(t, next.OfferAccepted)
			assert.Equal(t, payroll.StatusInactive, next.EmploymentStatus, "acceptance alone never activates")
		})
	}
}

// =============================================================================
// SERVICE
// =============================================================================

func TestService_FullApprovalFlow(t *testing.T) {
	// GIVEN: A gated ticket and a recruiter without any capabilities
	store, _, ticket := setup(t)
	svc := boarding.NewService(store, boarding.WithClock(fixedClock), boarding.WithProvisioner(boarding.NewAccounts(store)))
	ctx := context.Background()

	// WHEN: Boarding
	created, err := svc.Board(ctx, recruiter, ticket.ID, newHire("ada"))
	require.NoError(t, err)
	id := created.Staff.ID

	// THEN: Pending, inactive
	assert.Equal(t, boarding.StatePending, created.Staff.State)
	assert.Equal(t, payroll.StatusInactive, created.Staff.EmploymentStatus)
	assert.Equal(t, generic.ClientID("client-1"), created.Staff.ClientID)

	// Unauthorized first-tier approval leaves the record untouched
	_, err = svc.Approve(ctx, recruiter, id)
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	out, err := svc.Approve(ctx, hr, id)
	require.NoError(t, err)
	assert.Equal(t, boarding.StatePendingControlApproval, out.Staff.State)

	// Accepting the offer alone does not activate
	out, err = svc.AcceptOffer(ctx, boarding.Actor{ID: string(id)}, id)
	require.NoError(t, err)
	assert.False(t, out.Activated)
	assert.True(t, out.Staff.OfferAccepted)

	// Final approval activates and provisions the account
	out, err = svc.ControlApprove(ctx, controller, id)
	require.NoError(t, err)
	assert.Equal(t, boarding.StateControlApproved, out.Staff.State)
	assert.True(t, out.Activated)
	assert.Equal(t, 1, out.Ticket.BoardedCount)
	require.NoError(t, out.ProvisioningErr)
	require.NotNil(t, out.Account)
	assert.Equal(t, "ada@example.com", out.Account.Username)

	stored, err := svc.GetStaff(ctx, id)
	require.NoError(t, err)
	assert.True(t, stored.Active())
	assert.Equal(t, out.Account.ID, stored.AccountID)

	storedTicket, err := svc.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, storedTicket.BoardedCount)

	history, err := svc.History(ctx, id)
	require.NoError(t, err)
	actions := make([]generic.AuditAction, len(history))
	for i, e := range history {
		actions[i] = e.Action
	}
	assert.Equal(t, []generic.AuditAction{
		generic.AuditStaffCreated,
		generic.AuditStaffApproved,
		generic.AuditOfferAccepted,
		generic.AuditControlApproved,
		generic.AuditAccountProvisioned,
	}, actions)
	assert.Equal(t, string(boarding.StatePendingControlApproval), history[3].FromState)
	assert.Equal(t, string(boarding.StateControlApproved), history[3].ToState)
}

func TestService_RequesterBoardsDirectlyToControl(t *testing.T) {
	_, svc, ticket := setup(t)
	out, err := svc.Board(context.Background(), requester, ticket.ID, newHire("grace"))
	require.NoError(t, err)
	assert.Equal(t, boarding.StatePendingControlApproval, out.Staff.State)
}

func TestService_Board_Validation(t *testing.T) {
	_, svc, ticket := setup(t)
	ctx := context.Background()

	_, err := svc.Board(ctx, requester, ticket.ID, boarding.Staff{Name: " "})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	_, err = svc.Board(ctx, requester, "missing-ticket", newHire("x"))
	assert.ErrorIs(t, err, generic.ErrNotFound)

	_, err = svc.Approve(ctx, hr, "missing-staff")
	assert.ErrorIs(t, err, generic.ErrNotFound)
}

func TestService_RejectWithoutReasonChangesNothing(t *testing.T) {
	_, svc, ticket := setup(t)
	ctx := context.Background()
	created, err := svc.Board(ctx, recruiter, ticket.ID, newHire("linus"))
	require.NoError(t, err)

	_, err = svc.Reject(ctx, hr, created.Staff.ID, "")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	stored, err := svc.GetStaff(ctx, created.Staff.ID)
	require.NoError(t, err)
	assert.Equal(t, boarding.StatePending, stored.State)

	out, err := svc.Reject(ctx, hr, created.Staff.ID, "position filled")
	require.NoError(t, err)
	assert.Equal(t, boarding.StateRejected, out.Staff.State)
	assert.Equal(t, "position filled", out.Staff.Reason)
}

func TestService_ProvisioningFailureFailsOpen(t *testing.T) {
	// GIVEN: A provisioner that always fails
	provisioner := new(mocks.MockAccountProvisioner)
	provisioner.On("ProvisionAccount", mock.Anything, mock.Anything).Return(nil, errors.New("directory unavailable"))

	_, svc, ticket := setup(t, boarding.WithProvisioner(provisioner))
	ctx := context.Background()

	created, err := svc.Board(ctx, requester, ticket.ID, newHire("margaret"))
	require.NoError(t, err)
	_, err = svc.AcceptOffer(ctx, requester, created.Staff.ID)
	require.NoError(t, err)

	// WHEN: Final approval activates the accepted hire
	out, err := svc.ControlApprove(ctx, controller, created.Staff.ID)

	// THEN: The approval stands, the hook error is surfaced
	require.NoError(t, err)
	assert.True(t, out.Activated)
	require.Error(t, out.ProvisioningErr)
	assert.Contains(t, out.ProvisioningErr.Error(), "directory unavailable")

	stored, err := svc.GetStaff(ctx, created.Staff.ID)
	require.NoError(t, err)
	assert.Equal(t, boarding.StateControlApproved, stored.State)
	assert.True(t, stored.Active())
	assert.Empty(t, stored.AccountID)
	provisioner.AssertNumberOfCalls(t, "ProvisionAccount", 1)
}

func TestService_AccountLinkKeepsConcurrentEdits(t *testing.T) {
	// GIVEN: A provisioner during which another writer updates the record
	store, _, ticket := setup(t)
	ctx := context.Background()

	provisioner := new(mocks.MockAccountProvisioner)
	provisioner.On("ProvisionAccount", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			staff := args.Get(1).(boarding.Staff)
			staff.Name = "Katherine Johnson"
			require.NoError(t, store.SaveStaff(ctx, staff))
		}).
		Return(&boarding.Account{ID: "acct-1", Username: "katherine@example.com"}, nil)
	svc := boarding.NewService(store, boarding.WithClock(fixedClock), boarding.WithProvisioner(provisioner))

	created, err := svc.Board(ctx, requester, ticket.ID, newHire("katherine"))
	require.NoError(t, err)
	_, err = svc.AcceptOffer(ctx, requester, created.Staff.ID)
	require.NoError(t, err)

	// WHEN: Final approval activates and links the account
	out, err := svc.ControlApprove(ctx, controller, created.Staff.ID)
	require.NoError(t, err)
	require.NoError(t, out.ProvisioningErr)

	// THEN: The link is written onto the latest record
	stored, err := store.GetStaff(ctx, created.Staff.ID)
	require.NoError(t, err)
	assert.Equal(t, "Katherine Johnson", stored.Name)
	assert.Equal(t, "acct-1", stored.AccountID)
	assert.True(t, stored.Active())
	assert.Equal(t, "Katherine Johnson", out.Staff.Name)
	assert.Equal(t, "acct-1", out.Staff.AccountID)
}

// failingAudit makes every audit append inside a transaction fail.
type failingAudit struct {
	*memory.Store
}

func (f failingAudit) WithTx(ctx context.Context, fn func(boarding.Store) error) error {
	return f.Store.WithTx(ctx, func(tx boarding.Store) error {
		return fn(auditFails{tx})
	})
}

type auditFails struct {
	boarding.Store
}

func (auditFails) AppendAudit(context.Context, generic.AuditEntry) error {
	return errors.New("audit log unavailable")
}

func TestService_TransitionRollsBackOnAuditFailure(t *testing.T) {
	// GIVEN: A staff member awaiting final approval
	store, svc, ticket := setup(t)
	ctx := context.Background()
	created, err := svc.Board(ctx, requester, ticket.ID, newHire("barbara"))
	require.NoError(t, err)

	// WHEN: The audit write fails during final approval
	broken := boarding.NewService(failingAudit{store}, boarding.WithClock(fixedClock))
	_, err = broken.ControlApprove(ctx, controller, created.Staff.ID)
	require.Error(t, err)

	// THEN: Neither the staff record nor the ticket counter moved
	stored, err := store.GetStaff(ctx, created.Staff.ID)
	require.NoError(t, err)
	assert.Equal(t, boarding.StatePendingControlApproval, stored.State)

	storedTicket, err := store.GetTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, storedTicket.BoardedCount)
}

func TestService_OpenTicket_Validation(t *testing.T) {
	svc := boarding.NewService(memory.New())
	ctx := context.Background()

	_, err := svc.OpenTicket(ctx, boarding.Actor{}, boarding.Ticket{ClientID: "c", Title: "t"})
	assert.ErrorIs(t, err, generic.ErrUnauthorized)

	_, err = svc.OpenTicket(ctx, requester, boarding.Ticket{Title: "t"})
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	ticket, err := svc.OpenTicket(ctx, requester, boarding.Ticket{ClientID: "c", Title: "t", BoardedCount: 9})
	require.NoError(t, err)
	assert.NotEmpty(t, ticket.ID)
	assert.Equal(t, "req-1", ticket.RequesterID)
	assert.Equal(t, 0, ticket.BoardedCount)
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestAccounts_ProvisionAccount(t *testing.T) {
	ctx := context.Background()
	staff := boarding.Staff{ID: "s-1", Email: " Ada@Example.com "}

	t.Run("creates account keyed by email", func(t *testing.T) {
		store := new(mocks.MockAccountStore)
		store.On("FindAccountByUsername", mock.Anything, "ada@example.com").Return(nil, nil)
		store.On("SaveAccount", mock.Anything, mock.MatchedBy(func(a boarding.Account) bool {
			return a.Username == "ada@example.com" && a.StaffID == "s-1" && a.ID != ""
		})).Return(nil)

		acct, err := boarding.NewAccounts(store).ProvisionAccount(ctx, staff)
		require.NoError(t, err)
		assert.Equal(t, "ada@example.com", acct.Username)
		store.AssertExpectations(t)
	})

	t.Run("existing account for same staff is reused", func(t *testing.T) {
		store := new(mocks.MockAccountStore)
		existing := &boarding.Account{ID: "acct-1", StaffID: "s-1", Username: "ada@example.com"}
		store.On("FindAccountByUsername", mock.Anything, "ada@example.com").Return(existing, nil)

		acct, err := boarding.NewAccounts(store).ProvisionAccount(ctx, staff)
		require.NoError(t, err)
		assert.Equal(t, "acct-1", acct.ID)
		store.AssertNotCalled(t, "SaveAccount", mock.Anything, mock.Anything)
	})

	t.Run("username owned by someone else", func(t *testing.T) {
		store := new(mocks.MockAccountStore)
		store.On("FindAccountByUsername", mock.Anything, "ada@example.com").
			Return(&boarding.Account{ID: "acct-9", StaffID: "s-9", Username: "ada@example.com"}, nil)

		_, err := boarding.NewAccounts(store).ProvisionAccount(ctx, staff)
		assert.ErrorIs(t, err, generic.ErrInvalidState)
	})

	t.Run("missing email", func(t *testing.T) {
		_, err := boarding.NewAccounts(new(mocks.MockAccountStore)).ProvisionAccount(ctx, boarding.Staff{ID: "s-2"})
		assert.ErrorIs(t, err, generic.ErrInvalidInput)
	})
}
