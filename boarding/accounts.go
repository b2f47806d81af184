package boarding

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/warp/payroll-engine/generic"
)

// AccountProvisioner is called after a staff member becomes active.
type AccountProvisioner interface {
	ProvisionAccount(ctx context.Context, staff Staff) (*Account, error)
}

// AccountStore persists system accounts. FindAccountByUsername returns
// (nil, nil) when no account has that username.
type AccountStore interface {
	SaveAccount(ctx context.Context, acct Account) error
	FindAccountByUsername(ctx context.Context, username string) (*Account, error)
}

// Accounts provisions one system account per activated staff member,
// keyed by the lower-cased email.
type Accounts struct {
	store AccountStore
	now   func() time.Time
}

func NewAccounts(store AccountStore) *Accounts {
	return &Accounts{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Username derives the login name for a staff member.
func Username(staff Staff) string {
	return strings.ToLower(strings.TrimSpace(staff.Email))
}

// ProvisionAccount creates the account, or returns the existing one when
// this staff member already owns the username.
func (a *Accounts) ProvisionAccount(ctx context.Context, staff Staff) (*Account, error) {
	const op = "boarding.ProvisionAccount"
	username := Username(staff)
	if username == "" || !strings.Contains(username, "@") {
		return nil, generic.Errorf(generic.KindInvalidInput, op, "staff %s has no usable email", staff.ID)
	}

	existing, err := a.store.FindAccountByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.StaffID == staff.ID {
			return existing, nil
		}
		return nil, generic.Errorf(generic.KindInvalidState, op, "username %q is taken", username)
	}

	acct := Account{
		ID:        uuid.NewString(),
		StaffID:   staff.ID,
		Username:  username,
		CreatedAt: a.now(),
	}
	if err := a.store.SaveAccount(ctx, acct); err != nil {
		return nil, err
	}
	return &acct, nil
}
