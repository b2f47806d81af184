package payroll_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...any) {
	t.Helper()
	if !got.Equal(d(want)) {
		assert.Fail(t, "decimal mismatch", append([]any{"want " + want + ", got " + got.String()}, msgAndArgs...)...)
	}
}

func component(name, amount string, cat payroll.Category) payroll.SalaryComponent {
	return payroll.SalaryComponent{Name: name, Amount: d(amount), Category: cat}
}

func standardComponents() []payroll.SalaryComponent {
	return []payroll.SalaryComponent{
		component(payroll.ComponentBasicSalary, "100000", payroll.CategoryBase),
		component(payroll.ComponentHousingAllowance, "30000", payroll.CategoryAllowance),
		component(payroll.ComponentTransportAllowance, "20000", payroll.CategoryAllowance),
		component("meal_allowance", "10000", payroll.CategoryAllowance),
	}
}

func allLevies() payroll.StatutoryConfig {
	on := payroll.LevyConfig{Enabled: true}
	return payroll.StatutoryConfig{
		Pension:         payroll.PensionConfig{LevyConfig: on},
		HousingFund:     payroll.HousingFundConfig{LevyConfig: on},
		SocialInsurance: on,
		TrainingFund:    on,
	}
}

// =============================================================================
// ATTENDANCE FACTOR
// =============================================================================

func TestComputeFactor(t *testing.T) {
	tests := []struct {
		name       string
		days       int
		basis      generic.BillingBasis
		month      time.Month
		year       int
		wantFactor string
		wantDays   int
		wantTotal  int
	}{
		{"half of June", 15, generic.BasisCalendarDays, time.June, 2025, "0.5", 15, 30},
		{"rounded to four places", 10, generic.BasisCalendarDays, time.January, 2025, "0.3226", 10, 31},
		{"leap February", 29, generic.BasisCalendarDays, time.February, 2024, "1", 29, 29},
		{"common February", 14, generic.BasisCalendarDays, time.February, 2025, "0.5", 14, 28},
		{"working days, month starting Monday", 11, generic.BasisWorkingDays, time.September, 2025, "0.5", 11, 22},
		{"over-attendance clamps to full month", 40, generic.BasisCalendarDays, time.June, 2025, "1", 30, 30},
		{"zero days", 0, generic.BasisWorkingDays, time.March, 2025, "0", 0, 21},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := payroll.ComputeFactor(tt.days, tt.basis, tt.month, tt.year)
			require.NoError(t, err)
			assertDecimal(t, tt.wantFactor, f.Value)
			assert.Equal(t, tt.wantDays, f.DaysWorked)
			assert.Equal(t, tt.wantTotal, f.TotalDays)
			assert.Equal(t, tt.basis, f.Basis)
		})
	}
}

func TestComputeFactor_NeverExceedsOne(t *testing.T) {
	for days := 0; days <= 40; days++ {
		f, err := payroll.ComputeFactor(days, generic.BasisWorkingDays, time.February, 2026)
		require.NoError(t, err)
		assert.True(t, f.Value.LessThanOrEqual(decimal.NewFromInt(1)), "days=%d factor=%s", days, f.Value)
		assert.False(t, f.Value.IsNegative())
	}
}

func TestComputeFactor_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		days  int
		basis generic.BillingBasis
		month time.Month
	}{
		{"negative days", -1, generic.BasisCalendarDays, time.June},
		{"unknown basis", 10, generic.BillingBasis("fortnightly"), time.June},
		{"empty basis", 10, "", time.June},
		{"month zero", 10, generic.BasisCalendarDays, 0},
		{"month thirteen", 10, generic.BasisCalendarDays, 13},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := payroll.ComputeFactor(tt.days, tt.basis, tt.month, 2025)
			require.Error(t, err)
			assert.True(t, errors.Is(err, generic.ErrInvalidInput))
		})
	}
}

// =============================================================================
// ADJUSTER
// =============================================================================

func TestAdjust_ProratesAndOmitsZeroComponents(t *testing.T) {
	// GIVEN: A pay grade with a zero-valued allowance
	components := []payroll.SalaryComponent{
		component(payroll.ComponentBasicSalary, "100000", payroll.CategoryBase),
		component(payroll.ComponentHousingAllowance, "0", payroll.CategoryAllowance),
		component(payroll.ComponentTransportAllowance, "20000", payroll.CategoryAllowance),
	}

	// WHEN: Prorated at half a month
	adjusted := payroll.Adjust(components, d("0.5"))

	// THEN: Zero component is dropped, order is preserved
	require.Len(t, adjusted, 2)
	assert.Equal(t, payroll.ComponentBasicSalary, adjusted[0].Name)
	assertDecimal(t, "50000", adjusted[0].AdjustedAmount)
	assertDecimal(t, "-50000", adjusted[0].Delta)
	assert.Equal(t, payroll.ComponentTransportAllowance, adjusted[1].Name)
	assertDecimal(t, "10000", adjusted[1].AdjustedAmount)
	assertDecimal(t, "60000", payroll.ComputedGross(adjusted))
}

func TestAdjust_RoundsToTwoPlaces(t *testing.T) {
	adjusted := payroll.Adjust([]payroll.SalaryComponent{
		component(payroll.ComponentBasicSalary, "33333.33", payroll.CategoryBase),
	}, d("0.3226"))

	require.Len(t, adjusted, 1)
	// 33333.33 * 0.3226 = 10753.332258
	assertDecimal(t, "10753.33", adjusted[0].AdjustedAmount)
}

func TestAdjust_FullFactorIsIdentity(t *testing.T) {
	adjusted := payroll.Adjust(standardComponents(), decimal.NewFromInt(1))
	require.Len(t, adjusted, 4)
	for _, a := range adjusted {
		assert.True(t, a.AdjustedAmount.Equal(a.BaseAmount), "%s", a.Name)
		assert.True(t, a.Delta.IsZero())
	}
}

// =============================================================================
// STATUTORY DEDUCTIONS
// =============================================================================

func TestAnnualIncomeTax_DefaultSchedule(t *testing.T) {
	tests := []struct {
		name   string
		annual string
		want   string
	}{
		// relief 212,000; taxable 988,000 = 300k@7 + 300k@11 + 388k@15
		{"mid income", "1200000", "112200"},
		// relief 260,000; taxable 5,740,000 reaches the top band
		{"top band", "6000000", "1169600"},
		// relief capped at 400,000; taxable 23,600,000
		{"relief capped", "24000000", "5456000"},
		{"below relief", "192000", "0"},
		{"exactly threshold", "200000", "0"},
		{"zero", "0", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertDecimal(t, tt.want, payroll.AnnualIncomeTax(d(tt.annual), payroll.IncomeTaxConfig{}))
		})
	}
}

func TestAnnualIncomeTax_CustomSchedule(t *testing.T) {
	// GIVEN: A flat 10% above a 100,000 threshold with no relief rate
	cfg := payroll.IncomeTaxConfig{
		ReliefThreshold: generic.DecimalPtr(d("100000")),
		ReliefRate:      generic.DecimalPtr(decimal.Zero),
		Bands: []payroll.TaxBand{
			{Width: generic.DecimalPtr(d("50000")), Rate: d("5")},
			{Rate: d("10")},
		},
	}

	// WHEN: 300,000 annual
	tax := payroll.AnnualIncomeTax(d("300000"), cfg)

	// THEN: 50,000 @ 5% + 150,000 @ 10%
	assertDecimal(t, "17500", tax)
}

func TestComputeDeductions_AllLevies(t *testing.T) {
	// GIVEN: A full month on the standard pay grade
	adjusted := payroll.Adjust(standardComponents(), decimal.NewFromInt(1))
	gross := payroll.ComputedGross(adjusted)
	assertDecimal(t, "160000", gross)

	// WHEN: Every levy is enabled at default rates
	set, err := payroll.ComputeDeductions(gross, adjusted, allLevies())
	require.NoError(t, err)

	// THEN:
	// income tax: annual 1,920,000, relief 219,200, tax 245,168 / 12
	assertDecimal(t, "20430.67", set.IncomeTax)
	// pension: 8% of basic + housing + transport (meal is not pensionable)
	assertDecimal(t, "12000", set.Pension)
	assertDecimal(t, "4000", set.HousingFund)
	assertDecimal(t, "1600", set.SocialInsurance)
	// training: 1% of 1,920,000 / 12
	assertDecimal(t, "1600", set.TrainingFund)
	assertDecimal(t, "39630.67", set.Total())
}

func TestComputeDeductions_DisabledByDefaultExceptIncomeTax(t *testing.T) {
	adjusted := payroll.Adjust(standardComponents(), decimal.NewFromInt(1))
	gross := payroll.ComputedGross(adjusted)

	set, err := payroll.ComputeDeductions(gross, adjusted, payroll.StatutoryConfig{})
	require.NoError(t, err)

	assertDecimal(t, "20430.67", set.IncomeTax)
	assert.True(t, set.Pension.IsZero())
	assert.True(t, set.HousingFund.IsZero())
	assert.True(t, set.SocialInsurance.IsZero())
	assert.True(t, set.TrainingFund.IsZero())
}

func TestComputeDeductions_LowIncomePaysNoIncomeTax(t *testing.T) {
	adjusted := payroll.Adjust([]payroll.SalaryComponent{
		component(payroll.ComponentBasicSalary, "16000", payroll.CategoryBase),
	}, decimal.NewFromInt(1))

	set, err := payroll.ComputeDeductions(payroll.ComputedGross(adjusted), adjusted, payroll.StatutoryConfig{})
	require.NoError(t, err)
	assert.True(t, set.IncomeTax.IsZero())
}

func TestComputeDeductions_HousingFundThreshold(t *testing.T) {
	cfg := payroll.StatutoryConfig{HousingFund: payroll.HousingFundConfig{LevyConfig: payroll.LevyConfig{Enabled: true}}}

	below := payroll.Adjust([]payroll.SalaryComponent{component(payroll.ComponentBasicSalary, "2999.99", payroll.CategoryBase)}, decimal.NewFromInt(1))
	set, err := payroll.ComputeDeductions(payroll.ComputedGross(below), below, cfg)
	require.NoError(t, err)
	assert.True(t, set.HousingFund.IsZero())

	at := payroll.Adjust([]payroll.SalaryComponent{component(payroll.ComponentBasicSalary, "3000", payroll.CategoryBase)}, decimal.NewFromInt(1))
	set, err = payroll.ComputeDeductions(payroll.ComputedGross(at), at, cfg)
	require.NoError(t, err)
	assertDecimal(t, "75", set.HousingFund)
}

func TestComputeDeductions_RateOverrides(t *testing.T) {
	adjusted := payroll.Adjust(standardComponents(), decimal.NewFromInt(1))
	gross := payroll.ComputedGross(adjusted)

	cfg := allLevies()
	cfg.Pension.Rate = generic.DecimalPtr(d("10"))
	cfg.Pension.Components = []string{payroll.ComponentBasicSalary}
	cfg.SocialInsurance.Rate = generic.DecimalPtr(d("0.5"))

	set, err := payroll.ComputeDeductions(gross, adjusted, cfg)
	require.NoError(t, err)
	assertDecimal(t, "10000", set.Pension)
	assertDecimal(t, "800", set.SocialInsurance)
}

func TestComputeDeductions_FormulaOverrides(t *testing.T) {
	adjusted := payroll.Adjust(standardComponents(), decimal.NewFromInt(1))
	gross := payroll.ComputedGross(adjusted)

	cfg := allLevies()
	cfg.IncomeTax.Formula = "GROSS * 10%"
	cfg.Pension.Formula = "BASIC_SALARY * 5% - 100000"             // negative clamps to 0
	cfg.SocialInsurance.Formula = "ROUND(PENSIONABLE_BASE / 3, 2)" // 150,000 / 3

	set, err := payroll.ComputeDeductions(gross, adjusted, cfg)
	require.NoError(t, err)
	assertDecimal(t, "16000", set.IncomeTax)
	assert.True(t, set.Pension.IsZero())
	assertDecimal(t, "50000", set.SocialInsurance)
}

func TestComputeDeductions_UnsafeFormulaFails(t *testing.T) {
	adjusted := payroll.Adjust(standardComponents(), decimal.NewFromInt(1))
	cfg := allLevies()
	cfg.HousingFund.Formula = "exec(1)"

	_, err := payroll.ComputeDeductions(payroll.ComputedGross(adjusted), adjusted, cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, generic.ErrUnsafeFormula))
}

// =============================================================================
// AGGREGATE / COMPUTE
// =============================================================================

func TestAggregate_EmployerOfRecordInvariant(t *testing.T) {
	adjusted := payroll.Adjust(standardComponents(), decimal.NewFromInt(1))
	set, err := payroll.ComputeDeductions(payroll.ComputedGross(adjusted), adjusted, allLevies())
	require.NoError(t, err)

	totals := payroll.Aggregate(adjusted, set)

	assertDecimal(t, "160000", totals.Gross)
	assertDecimal(t, "120369.33", totals.Net)
	assertDecimal(t, "199630.67", totals.CreditToBank)
	assert.True(t, totals.Net.Add(set.Total()).Equal(totals.Gross))
	assert.True(t, totals.CreditToBank.Equal(totals.Gross.Add(set.Total())))
}

func TestCompute_WithClientRules(t *testing.T) {
	// GIVEN: Half a month, a bonus allowance rule and a union dues deduction rule
	emp := payroll.Employee{
		ID:       "emp-1",
		ClientID: "client-1",
		Status:   payroll.StatusActive,
		Components: []payroll.SalaryComponent{
			component(payroll.ComponentBasicSalary, "100000", payroll.CategoryBase),
			component(payroll.ComponentTransportAllowance, "20000", payroll.CategoryAllowance),
		},
	}
	cfg := payroll.ClientConfig{
		ClientID:     "client-1",
		BillingBasis: generic.BasisCalendarDays,
		Rules: []payroll.FormulaRule{
			{Name: "performance_bonus", Kind: payroll.RuleAllowance, Formula: "BASIC_SALARY * 10%"},
			{Name: "union_dues", Kind: payroll.RuleDeduction, Formula: "GROSS * 1% + DAYS_WORKED"},
		},
	}

	// WHEN
	res, err := payroll.Compute(emp, cfg, payroll.AttendanceInput{EmployeeID: "emp-1", DaysWorked: 15, Month: time.June, Year: 2025})
	require.NoError(t, err)

	// THEN: bonus is 10,000 on base and prorated like any allowance
	require.Len(t, res.Components, 3)
	assert.Equal(t, "performance_bonus", res.Components[2].Name)
	assertDecimal(t, "5000", res.Components[2].AdjustedAmount)
	assertDecimal(t, "65000", res.GrossSalary)

	// annual 780,000, relief 207,800: 300k@7% + 272,200@11% = 50,942 / 12
	assertDecimal(t, "4245.17", res.Deductions.IncomeTax)
	require.Len(t, res.Deductions.Custom, 1)
	assert.Equal(t, "union_dues", res.Deductions.Custom[0].Name)
	assertDecimal(t, "665", res.Deductions.Custom[0].Amount)

	assertDecimal(t, "60089.83", res.NetSalary)
	assertDecimal(t, "69910.17", res.CreditToBank)
	assert.Equal(t, 15, res.DaysWorked)
	assert.Equal(t, 30, res.TotalDays)
}

func TestCompute_InvalidBasisFails(t *testing.T) {
	emp := payroll.Employee{ID: "emp-1", Status: payroll.StatusActive, Components: standardComponents()}
	_, err := payroll.Compute(emp, payroll.ClientConfig{ClientID: "c"}, payroll.AttendanceInput{DaysWorked: 10, Month: time.June, Year: 2025})
	assert.True(t, errors.Is(err, generic.ErrInvalidInput))
}

func TestVariableName(t *testing.T) {
	assert.Equal(t, "BASIC_SALARY", payroll.VariableName("basic_salary"))
	assert.Equal(t, "MEAL_ALLOWANCE", payroll.VariableName("meal allowance"))
	assert.Equal(t, "HAZARD_PAY", payroll.VariableName("hazard--pay"))
	assert.Equal(t, "C_13TH_MONTH", payroll.VariableName("13th month"))
}

// =============================================================================
// CLIENT CONFIG VALIDATION
// =============================================================================

func TestClientConfig_Validate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		cfg := payroll.ClientConfig{ClientID: "c1", BillingBasis: generic.BasisWorkingDays, Statutory: allLevies()}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("collects every issue", func(t *testing.T) {
		cfg := payroll.ClientConfig{
			BillingBasis: "weekly",
			Statutory: payroll.StatutoryConfig{
				Pension: payroll.PensionConfig{LevyConfig: payroll.LevyConfig{Enabled: true, Rate: generic.DecimalPtr(d("120"))}},
				IncomeTax: payroll.IncomeTaxConfig{Bands: []payroll.TaxBand{
					{Rate: d("10")},
					{Width: generic.DecimalPtr(d("1000")), Rate: d("20")},
				}},
			},
			Rules: []payroll.FormulaRule{
				{Name: "bonus", Kind: payroll.RuleAllowance, Formula: "system('rm')"},
				{Name: "bonus", Kind: "other", Formula: "1"},
				{Name: "gross", Kind: payroll.RuleDeduction, Formula: "1"},
			},
		}

		issues := cfg.Issues()
		fields := map[string]bool{}
		for _, is := range issues {
			fields[is.Field] = true
		}
		assert.True(t, fields["ClientConfig.ClientID"])
		assert.True(t, fields["ClientConfig.BillingBasis"])
		assert.True(t, fields["ClientConfig.Rules[1].Kind"])
		assert.True(t, fields["Statutory.Pension.Rate"])
		assert.True(t, fields["Statutory.IncomeTax.Bands[0].Width"])
		assert.True(t, fields["Rules[0].Formula"])
		assert.True(t, fields["Rules[1].Name"])
		assert.True(t, fields["Rules[2].Name"])

		err := cfg.Validate()
		require.Error(t, err)
		assert.True(t, errors.Is(err, generic.ErrInvalidInput))
	})
}
