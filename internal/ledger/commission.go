package ledger

import (
	"fmt"

	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
)

const (
	DefaultScale int32 = 2
	// MaxScale is the precision of the decimal(20,2) money columns.
	MaxScale int32 = 2
)

var hundred = decimal.NewFromInt(100)

// CommissionRates are percentages, e.g. 2 means 2%.
type CommissionRates struct {
	AdminPercent decimal.Decimal
	AgentPercent decimal.Decimal
	// Scale is the number of minor-unit digits amounts are rounded to. Zero
	// selects DefaultScale.
	Scale int32
}

// WithDefaults returns r with an unset Scale replaced by DefaultScale.
func (r CommissionRates) WithDefaults() CommissionRates {
	if r.Scale == 0 {
		r.Scale = DefaultScale
	}
	return r
}

func (r CommissionRates) Validate() error {
	if r.AdminPercent.IsNegative() || r.AgentPercent.IsNegative() {
		return fmt.Errorf("commission rates must not be negative")
	}
	if r.AdminPercent.Add(r.AgentPercent).GreaterThanOrEqual(hundred) {
		return fmt.Errorf("combined commission rate %s%% leaves nothing to credit", r.AdminPercent.Add(r.AgentPercent))
	}
	if r.Scale < 0 || r.Scale > MaxScale {
		return fmt.Errorf("scale %d is outside 0..%d", r.Scale, MaxScale)
	}
	return nil
}

// ComputeDepositCommission returns the agent and admin cuts of a deposit and
// the net amount the receiver is credited with. Virtual transfers carry no
// commission. Cuts are rounded half-up to the minor unit here so ledger
// amounts are exact.
func (r CommissionRates) ComputeDepositCommission(amount decimal.Decimal, payerRole models.Role, cashType models.CashType) (agentCut, adminCut, net decimal.Decimal) {
	r = r.WithDefaults()
	if cashType != models.CashReal {
		return decimal.Zero, decimal.Zero, amount
	}
	adminCut = percentOf(amount, r.AdminPercent, r.Scale)
	agentCut = decimal.Zero
	if payerRole == models.RoleAgent {
		agentCut = percentOf(amount, r.AgentPercent, r.Scale)
	}
	net = amount.Sub(agentCut).Sub(adminCut)
	return agentCut, adminCut, net
}

func percentOf(amount, percent decimal.Decimal, scale int32) decimal.Decimal {
	// decimal.Round rounds half away from zero, which is half-up for the
	// positive amounts the engine accepts.
	return amount.Mul(percent).Div(hundred).Round(scale)
}
