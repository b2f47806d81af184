package memory_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/boarding"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/memory"
)

func TestMemory_GetEmployeeJoinsPayGrade(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	require.NoError(t, s.SavePayGrade(ctx, "G1", []payroll.SalaryComponent{
		{Name: payroll.ComponentBasicSalary, Amount: decimal.NewFromInt(90000), Category: payroll.CategoryBase},
	}))
	require.NoError(t, s.SaveStaff(ctx, boarding.Staff{
		ID: "s-1", ClientID: "c-1", Name: "Ada", PayGrade: "G1", EmploymentStatus: payroll.StatusActive,
	}))

	emp, err := s.GetEmployee(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, generic.ClientID("c-1"), emp.ClientID)
	assert.Equal(t, payroll.StatusActive, emp.Status)
	require.Len(t, emp.Components, 1)
	assert.True(t, emp.Components[0].Amount.Equal(decimal.NewFromInt(90000)))

	_, err = s.GetEmployee(ctx, "nobody")
	assert.ErrorIs(t, err, generic.ErrEmployeeNotFound)

	require.NoError(t, s.SaveStaff(ctx, boarding.Staff{ID: "s-2", PayGrade: "unknown"}))
	_, err = s.GetEmployee(ctx, "s-2")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)
}

func TestMemory_WithTxRollsBackEveryWrite(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	require.NoError(t, s.SaveTicket(ctx, boarding.Ticket{ID: "t-1", BoardedCount: 1}))

	err := s.WithTx(ctx, func(tx boarding.Store) error {
		require.NoError(t, tx.SaveTicket(ctx, boarding.Ticket{ID: "t-1", BoardedCount: 2}))
		require.NoError(t, tx.SaveStaff(ctx, boarding.Staff{ID: "s-1"}))
		require.NoError(t, tx.AppendAudit(ctx, generic.AuditEntry{ID: "a-1", SubjectID: "s-1"}))
		return errors.New("abort")
	})
	require.EqualError(t, err, "abort")

	ticket, err := s.GetTicket(ctx, "t-1")
	require.NoError(t, err)
	assert.Equal(t, 1, ticket.BoardedCount)

	_, err = s.GetStaff(ctx, "s-1")
	assert.ErrorIs(t, err, generic.ErrNotFound)

	entries, err := s.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestMemory_ClientConfigAndCalculations(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	_, err := s.GetClientConfig(ctx, "c-1")
	assert.ErrorIs(t, err, generic.ErrNotFound)

	require.NoError(t, s.SaveClientConfig(ctx, payroll.ClientConfig{ClientID: "c-1", BillingBasis: generic.BasisWorkingDays}))
	cfg, err := s.GetClientConfig(ctx, "c-1")
	require.NoError(t, err)
	assert.Equal(t, generic.BasisWorkingDays, cfg.BillingBasis)

	require.NoError(t, s.SaveCalculation(ctx, &payroll.CalculationResult{ID: "calc-1", EmployeeID: "s-1"}))
	calc, err := s.GetCalculation(ctx, "calc-1")
	require.NoError(t, err)
	assert.Equal(t, generic.EmployeeID("s-1"), calc.EmployeeID)
}

func TestMemory_AccountsUniqueByUsername(t *testing.T) {
	ctx := context.Background()
	s := memory.New()

	acct, err := s.FindAccountByUsername(ctx, "ada@example.com")
	require.NoError(t, err)
	assert.Nil(t, acct)

	require.NoError(t, s.SaveAccount(ctx, boarding.Account{ID: "a-1", StaffID: "s-1", Username: "ada@example.com"}))
	err = s.SaveAccount(ctx, boarding.Account{ID: "a-2", StaffID: "s-2", Username: "ada@example.com"})
	assert.ErrorIs(t, err, generic.ErrInvalidState)
}
