/*
statutory.go - Statutory deduction engine

PURPOSE:
  Computes the five statutory deductions from a month's gross salary and
  adjusted components, under a per-client StatutoryConfig.

LEVIES:
  Income tax        Always computed. Annualized gross less a relief
                    allowance, walked through progressive bands, / 12.
  Pension           rate% (8) of basic + housing + transport allowances
  Housing fund      rate% (2.5) of gross, only when gross >= minimum (3000)
  Social insurance  rate% (1) of gross
  Training fund     rate% (1) of annualized gross, / 12

  A levy whose Enabled flag is false is 0. Unset rates fall back to the
  defaults above. Every levy may instead carry a Formula, evaluated over
  the payroll variables; negative formula results clamp to 0.

RELIEF ALLOWANCE:
  relief = min(threshold + reliefRate% * annualGross, 2 * threshold)
  With the defaults (200,000 and 1%), nobody earning under 200,000 a year
  pays income tax.

DEFAULT BANDS (annual taxable income):
  first 300,000      7%
  next  300,000     11%
  next  500,000     15%
  next  500,000     19%
  next  1,600,000   21%
  above 3,200,000   24%

SEE ALSO:
  - config.go: ClientConfig validation of these settings
  - formula/: Formula overrides
*/
package payroll

import (
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/formula"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// TaxBand is one progressive income band. A nil Width is unbounded and
// must be last.
type TaxBand struct {
	Width *decimal.Decimal `json:"width,omitempty"`
	Rate  decimal.Decimal  `json:"rate"` // percent
}

// IncomeTaxConfig overrides the built-in schedule. Zero value = defaults.
type IncomeTaxConfig struct {
	ReliefThreshold *decimal.Decimal `json:"relief_threshold,omitempty"`
	ReliefRate      *decimal.Decimal `json:"relief_rate,omitempty"`
	Bands           []TaxBand        `json:"bands,omitempty"`
	Formula         string           `json:"formula,omitempty"`
}

// LevyConfig is the common shape of a flat-rate levy.
type LevyConfig struct {
	Enabled bool             `json:"enabled"`
	Rate    *decimal.Decimal `json:"rate,omitempty"` // percent
	Formula string           `json:"formula,omitempty"`
}

type PensionConfig struct {
	LevyConfig
	// Components forms the pensionable base. Empty = basic, housing, transport.
	Components []string `json:"components,omitempty"`
}

type HousingFundConfig struct {
	LevyConfig
	MinimumGross *decimal.Decimal `json:"minimum_gross,omitempty"`
}

// StatutoryConfig holds every statutory setting of a client. The zero
// value computes income tax on the default schedule and nothing else.
type StatutoryConfig struct {
	IncomeTax       IncomeTaxConfig   `json:"income_tax"`
	Pension         PensionConfig     `json:"pension"`
	HousingFund     HousingFundConfig `json:"housing_fund"`
	SocialInsurance LevyConfig        `json:"social_insurance"`
	TrainingFund    LevyConfig        `json:"training_fund"`
}

// Defaults.
var (
	DefaultReliefThreshold   = decimal.NewFromInt(200000)
	DefaultReliefRate        = decimal.NewFromInt(1)
	DefaultPensionRate       = decimal.NewFromInt(8)
	DefaultHousingFundRate   = generic.MustParseDecimal("2.5")
	DefaultHousingFundMin    = decimal.NewFromInt(3000)
	DefaultSocialInsRate     = decimal.NewFromInt(1)
	DefaultTrainingFundRate  = decimal.NewFromInt(1)
	DefaultPensionComponents = []string{ComponentBasicSalary, ComponentHousingAllowance, ComponentTransportAllowance}
)

// DefaultTaxBands returns the built-in progressive schedule.
func DefaultTaxBands() []TaxBand {
	band := func(width int64, rate int64) TaxBand {
		return TaxBand{Width: generic.DecimalPtr(decimal.NewFromInt(width)), Rate: decimal.NewFromInt(rate)}
	}
	return []TaxBand{
		band(300000, 7),
		band(300000, 11),
		band(500000, 15),
		band(500000, 19),
		band(1600000, 21),
		{Rate: decimal.NewFromInt(24)},
	}
}

var twelve = decimal.NewFromInt(12)

func orDefault(p *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
	if p == nil {
		return def
	}
	return *p
}

// =============================================================================
// ENGINE
// =============================================================================

// ComputeDeductions computes the statutory deduction set for one month.
// It only fails when a configured formula override fails.
func ComputeDeductions(gross decimal.Decimal, adjusted []AdjustedComponent, cfg StatutoryConfig) (StatutoryDeductionSet, error) {
	annual := gross.Mul(twelve)
	pensionable := PensionableBase(adjusted, cfg.Pension.Components)

	vars := componentVariables(adjusted).
		With("GROSS", gross).
		With("ANNUAL_GROSS", annual).
		With("PENSIONABLE_BASE", pensionable)

	var set StatutoryDeductionSet
	var err error

	// Income tax: always on
	if cfg.IncomeTax.Formula != "" {
		if set.IncomeTax, err = levyFormula("income_tax", cfg.IncomeTax.Formula, vars); err != nil {
			return StatutoryDeductionSet{}, err
		}
	} else {
		set.IncomeTax = generic.RoundMoney(AnnualIncomeTax(annual, cfg.IncomeTax).Div(twelve))
	}

	if set.Pension, err = flatLevy("pension", cfg.Pension.LevyConfig, DefaultPensionRate, pensionable, vars); err != nil {
		return StatutoryDeductionSet{}, err
	}

	minGross := orDefault(cfg.HousingFund.MinimumGross, DefaultHousingFundMin)
	if gross.GreaterThanOrEqual(minGross) {
		if set.HousingFund, err = flatLevy("housing_fund", cfg.HousingFund.LevyConfig, DefaultHousingFundRate, gross, vars); err != nil {
			return StatutoryDeductionSet{}, err
		}
	}

	if set.SocialInsurance, err = flatLevy("social_insurance", cfg.SocialInsurance, DefaultSocialInsRate, gross, vars); err != nil {
		return StatutoryDeductionSet{}, err
	}

	// Training fund is levied on the annual figure
	switch {
	case !cfg.TrainingFund.Enabled:
	case cfg.TrainingFund.Formula != "":
		if set.TrainingFund, err = levyFormula("training_fund", cfg.TrainingFund.Formula, vars); err != nil {
			return StatutoryDeductionSet{}, err
		}
	default:
		rate := orDefault(cfg.TrainingFund.Rate, DefaultTrainingFundRate)
		set.TrainingFund = generic.RoundMoney(generic.ApplyRate(annual, rate).Div(twelve))
	}

	return set, nil
}

// AnnualIncomeTax returns the unrounded annual tax on annualGross.
func AnnualIncomeTax(annualGross decimal.Decimal, cfg IncomeTaxConfig) decimal.Decimal {
	threshold := orDefault(cfg.ReliefThreshold, DefaultReliefThreshold)
	rate := orDefault(cfg.ReliefRate, DefaultReliefRate)

	relief := decimal.Min(threshold.Add(generic.ApplyRate(annualGross, rate)), threshold.Mul(decimal.NewFromInt(2)))
	relief = decimal.Max(relief, threshold)

	taxable := annualGross.Sub(relief)
	if !taxable.IsPositive() {
		return decimal.Zero
	}

	bands := cfg.Bands
	if len(bands) == 0 {
		bands = DefaultTaxBands()
	}
	return walkBands(taxable, bands)
}

// walkBands consumes taxable income band by band at each band's rate.
func walkBands(taxable decimal.Decimal, bands []TaxBand) decimal.Decimal {
	tax := decimal.Zero
	remaining := taxable
	for _, b := range bands {
		if !remaining.IsPositive() {
			break
		}
		portion := remaining
		if b.Width != nil && b.Width.LessThan(remaining) {
			portion = *b.Width
		}
		tax = tax.Add(generic.ApplyRate(portion, b.Rate))
		remaining = remaining.Sub(portion)
	}
	return tax
}

// PensionableBase sums the named adjusted components that are present.
func PensionableBase(adjusted []AdjustedComponent, names []string) decimal.Decimal {
	if len(names) == 0 {
		names = DefaultPensionComponents
	}
	base := decimal.Zero
	for _, n := range names {
		if v, ok := amountOf(adjusted, n); ok {
			base = base.Add(v)
		}
	}
	return base
}

func flatLevy(name string, cfg LevyConfig, defaultRate, base decimal.Decimal, vars formula.Variables) (decimal.Decimal, error) {
	if !cfg.Enabled {
		return decimal.Zero, nil
	}
	if cfg.Formula != "" {
		return levyFormula(name, cfg.Formula, vars)
	}
	return generic.RoundMoney(generic.ApplyRate(base, orDefault(cfg.Rate, defaultRate))), nil
}

func levyFormula(name, src string, vars formula.Variables) (decimal.Decimal, error) {
	v, err := formula.Evaluate(src, vars)
	if err != nil {
		return decimal.Zero, &generic.Error{
			Kind:    generic.KindOf(err),
			Op:      "payroll.ComputeDeductions",
			Message: name + " formula",
			Err:     err,
		}
	}
	return generic.RoundMoney(generic.NonNegative(v)), nil
}
