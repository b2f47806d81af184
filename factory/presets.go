package factory

import (
	"sort"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// Preset builds a ready-made configuration for a client.
type Preset func(clientID generic.ClientID, name string) payroll.ClientConfig

var presets = map[string]Preset{
	"standard":     StandardClientConfig,
	"minimal":      MinimalClientConfig,
	"working_days": WorkingDaysClientConfig,
}

// PresetNames lists the available presets in sorted order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for n := range presets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// FromPreset builds and validates the named preset.
func (f *ConfigFactory) FromPreset(preset string, clientID generic.ClientID, name string) (*payroll.ClientConfig, error) {
	build, ok := presets[preset]
	if !ok {
		return nil, generic.Errorf(generic.KindNotFound, "factory.FromPreset", "unknown preset %q", preset)
	}
	return f.FromConfig(build(clientID, name))
}

// StandardClientConfig enables every statutory levy at its default rate.
func StandardClientConfig(clientID generic.ClientID, name string) payroll.ClientConfig {
	return payroll.ClientConfig{
		ClientID:     clientID,
		Name:         name,
		BillingBasis: generic.BasisCalendarDays,
		Statutory: payroll.StatutoryConfig{
			Pension:         payroll.PensionConfig{LevyConfig: payroll.LevyConfig{Enabled: true}},
			HousingFund:     payroll.HousingFundConfig{LevyConfig: payroll.LevyConfig{Enabled: true}},
			SocialInsurance: payroll.LevyConfig{Enabled: true},
			TrainingFund:    payroll.LevyConfig{Enabled: true},
		},
	}
}

// MinimalClientConfig withholds income tax only.
func MinimalClientConfig(clientID generic.ClientID, name string) payroll.ClientConfig {
	return payroll.ClientConfig{
		ClientID:     clientID,
		Name:         name,
		BillingBasis: generic.BasisCalendarDays,
	}
}

// WorkingDaysClientConfig bills on working days and pays an attendance
// bonus through a formula rule.
func WorkingDaysClientConfig(clientID generic.ClientID, name string) payroll.ClientConfig {
	cfg := StandardClientConfig(clientID, name)
	cfg.BillingBasis = generic.BasisWorkingDays
	cfg.Statutory.TrainingFund.Enabled = false
	cfg.Rules = []payroll.FormulaRule{
		{Name: "attendance_bonus", Kind: payroll.RuleAllowance, Formula: "BASIC_SALARY * 5%"},
	}
	return cfg
}
