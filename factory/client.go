/*
Package factory provides JSON to Go client configuration conversion.

PURPOSE:
  Converts JSON client payroll definitions into payroll.ClientConfig
  values. Payroll administrators edit statutory settings and formula rules
  as JSON; the factory decodes, defaults and validates them before they
  reach the store.

JSON SCHEMA:
  {
    "client_id": "acme",
    "name": "Acme Logistics",
    "billing_basis": "working_days",
    "statutory": {
      "income_tax": {"relief_threshold": 200000, "bands": [{"width": 300000, "rate": 7}, {"rate": 24}]},
      "pension": {"enabled": true, "rate": 8},
      "housing_fund": {"enabled": true, "minimum_gross": 3000},
      "social_insurance": {"enabled": true},
      "training_fund": {"enabled": false}
    },
    "rules": [
      {"name": "attendance_bonus", "kind": "allowance", "formula": "BASIC_SALARY * 5%"},
      {"name": "union_dues", "kind": "deduction", "formula": "GROSS * 1%"}
    ]
  }

  Numbers may be JSON numbers or strings; both decode exactly.

KEY FEATURES:
  - Rejects unknown fields (typos never silently disable a levy)
  - Defaults billing_basis to calendar_days
  - Collects every validation issue, not just the first

USAGE:
  f := factory.NewConfigFactory()
  cfg, err := f.ParseClientConfig(body)
  var verr *factory.ValidationError
  if errors.As(err, &verr) {
      // verr.Issues lists field/tag/message
  }

SEE ALSO:
  - payroll/config.go: ClientConfig and its validation
  - factory/presets.go: Ready-made configurations
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/payroll"
)

// ValidationError carries every issue found in a configuration.
type ValidationError struct {
	Issues []payroll.ConfigIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Issues))
	for i, is := range e.Issues {
		parts[i] = is.Field + ": " + is.Message
	}
	return "invalid client config: " + strings.Join(parts, "; ")
}

// Is makes a ValidationError match generic.ErrInvalidInput.
func (e *ValidationError) Is(target error) bool {
	return target == generic.ErrInvalidInput
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

// ConfigFactory converts JSON client configurations to Go structs.
type ConfigFactory struct{}

func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// ParseClientConfig decodes, defaults and validates a JSON configuration.
func (f *ConfigFactory) ParseClientConfig(data []byte) (*payroll.ClientConfig, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var cfg payroll.ClientConfig
	if err := dec.Decode(&cfg); err != nil {
		return nil, generic.Wrap(generic.KindInvalidInput, "factory.ParseClientConfig", err, "malformed client config JSON")
	}
	if dec.More() {
		return nil, generic.Errorf(generic.KindInvalidInput, "factory.ParseClientConfig", "trailing data after client config")
	}
	return f.FromConfig(cfg)
}

// FromConfig applies defaults and validates an already-decoded config.
func (f *ConfigFactory) FromConfig(cfg payroll.ClientConfig) (*payroll.ClientConfig, error) {
	cfg.ClientID = generic.ClientID(strings.TrimSpace(string(cfg.ClientID)))
	if cfg.BillingBasis == "" {
		cfg.BillingBasis = generic.BasisCalendarDays
	}
	for i := range cfg.Rules {
		cfg.Rules[i].Name = strings.TrimSpace(cfg.Rules[i].Name)
	}

	if issues := cfg.Issues(); len(issues) > 0 {
		return nil, &ValidationError{Issues: issues}
	}
	return &cfg, nil
}

// ToJSON renders a configuration in its canonical indented form.
func (f *ConfigFactory) ToJSON(cfg payroll.ClientConfig) ([]byte, error) {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal client config: %w", err)
	}
	return data, nil
}
