package payroll

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/warp/payroll-engine/formula"
	"github.com/warp/payroll-engine/generic"
)

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig is everything a calculation needs to know about a client.
type ClientConfig struct {
	ClientID     generic.ClientID     `json:"client_id" validate:"required"`
	Name         string               `json:"name" validate:"max=200"`
	BillingBasis generic.BillingBasis `json:"billing_basis" validate:"required,oneof=calendar_days working_days"`
	Statutory    StatutoryConfig      `json:"statutory"`
	Rules        []FormulaRule        `json:"rules,omitempty" validate:"dive"`
}

// ConfigIssue is one validation failure, addressed by field path.
type ConfigIssue struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

var validate = validator.New()

var hundred = decimal.NewFromInt(100)

// Issues validates the config exhaustively and returns every problem.
func (c ClientConfig) Issues() []ConfigIssue {
	var issues []ConfigIssue

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				issues = append(issues, ConfigIssue{
					Field:   fe.Namespace(),
					Tag:     fe.Tag(),
					Message: fieldMessage(fe),
				})
			}
		} else {
			issues = append(issues, ConfigIssue{Field: "ClientConfig", Tag: "invalid", Message: err.Error()})
		}
	}

	s := c.Statutory
	// Range checks compare against rescaled values, so oversized inputs
	// are reported first and skipped.
	bounded := func(field string, d *decimal.Decimal) bool {
		if d == nil || generic.InBounds(*d) {
			return true
		}
		issues = append(issues, ConfigIssue{Field: field, Tag: "magnitude", Message: fmt.Sprintf("%s is out of range", field)})
		return false
	}
	checkRate := func(field string, r *decimal.Decimal) {
		if !bounded(field, r) {
			return
		}
		if r != nil && (r.IsNegative() || r.GreaterThan(hundred)) {
			issues = append(issues, ConfigIssue{Field: field, Tag: "range", Message: fmt.Sprintf("%s must be between 0 and 100, got %s", field, r)})
		}
	}
	checkRate("Statutory.IncomeTax.ReliefRate", s.IncomeTax.ReliefRate)
	checkRate("Statutory.Pension.Rate", s.Pension.Rate)
	checkRate("Statutory.HousingFund.Rate", s.HousingFund.Rate)
	checkRate("Statutory.SocialInsurance.Rate", s.SocialInsurance.Rate)
	checkRate("Statutory.TrainingFund.Rate", s.TrainingFund.Rate)

	if t := s.IncomeTax.ReliefThreshold; bounded("Statutory.IncomeTax.ReliefThreshold", t) && t != nil && t.IsNegative() {
		issues = append(issues, ConfigIssue{Field: "Statutory.IncomeTax.ReliefThreshold", Tag: "min", Message: "relief threshold cannot be negative"})
	}
	if m := s.HousingFund.MinimumGross; bounded("Statutory.HousingFund.MinimumGross", m) && m != nil && m.IsNegative() {
		issues = append(issues, ConfigIssue{Field: "Statutory.HousingFund.MinimumGross", Tag: "min", Message: "minimum gross cannot be negative"})
	}

	for i, b := range s.IncomeTax.Bands {
		field := fmt.Sprintf("Statutory.IncomeTax.Bands[%d]", i)
		checkRate(field+".Rate", &b.Rate)
		switch {
		case b.Width == nil && i != len(s.IncomeTax.Bands)-1:
			issues = append(issues, ConfigIssue{Field: field + ".Width", Tag: "required", Message: "only the last band may be unbounded"})
		case !bounded(field+".Width", b.Width):
		case b.Width != nil && !b.Width.IsPositive():
			issues = append(issues, ConfigIssue{Field: field + ".Width", Tag: "gt", Message: "band width must be positive"})
		}
	}

	checkFormula := func(field, src string) {
		if src == "" {
			return
		}
		for _, is := range formula.ValidateFormula(src) {
			issues = append(issues, ConfigIssue{Field: field, Tag: is.Code, Message: is.String()})
		}
	}
	checkFormula("Statutory.IncomeTax.Formula", s.IncomeTax.Formula)
	checkFormula("Statutory.Pension.Formula", s.Pension.Formula)
	checkFormula("Statutory.HousingFund.Formula", s.HousingFund.Formula)
	checkFormula("Statutory.SocialInsurance.Formula", s.SocialInsurance.Formula)
	checkFormula("Statutory.TrainingFund.Formula", s.TrainingFund.Formula)

	names := make(map[string]bool, len(c.Rules))
	for i, r := range c.Rules {
		field := fmt.Sprintf("Rules[%d]", i)
		n := VariableName(r.Name)
		switch {
		case r.Name == "":
			// reported by the struct validator
		case n == "" || reservedVariables[n]:
			issues = append(issues, ConfigIssue{Field: field + ".Name", Tag: "reserved", Message: fmt.Sprintf("rule name %q is not usable", r.Name)})
		case names[n]:
			issues = append(issues, ConfigIssue{Field: field + ".Name", Tag: "unique", Message: fmt.Sprintf("rule name %q is used twice", r.Name)})
		}
		names[n] = true
		checkFormula(field+".Formula", r.Formula)
	}

	return issues
}

// Validate returns an invalid_input error listing every issue, or nil.
func (c ClientConfig) Validate() error {
	issues := c.Issues()
	if len(issues) == 0 {
		return nil
	}
	msgs := make([]string, len(issues))
	for i, is := range issues {
		msgs[i] = is.Field + ": " + is.Message
	}
	return generic.Errorf(generic.KindInvalidInput, "payroll.ClientConfig.Validate", "%s", strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	}
	return fmt.Sprintf("%s failed %q validation", fe.Field(), fe.Tag())
}
