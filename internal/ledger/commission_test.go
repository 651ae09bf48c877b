package ledger

import (
	"testing"

	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeDepositCommission(t *testing.T) {
	rates := defaultRates()
	tests := []struct {
		name      string
		amount    string
		role      models.Role
		cashType  models.CashType
		wantAgent string
		wantAdmin string
		wantNet   string
	}{
		{"agent payer", "100", models.RoleAgent, models.CashReal, "1", "2", "97"},
		{"user payer", "100", models.RoleUser, models.CashReal, "0", "2", "98"},
		{"admin payer", "100", models.RoleAdmin, models.CashReal, "0", "2", "98"},
		{"virtual is free", "100", models.RoleAgent, models.CashVirtual, "0", "0", "100"},
		{"rounds half up", "0.25", models.RoleAgent, models.CashReal, "0", "0.01", "0.24"},
		{"odd cents", "33.33", models.RoleAgent, models.CashReal, "0.33", "0.67", "32.33"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agent, admin, net := rates.ComputeDepositCommission(dec(tt.amount), tt.role, tt.cashType)
			requireDecimal(t, tt.wantAgent, agent)
			requireDecimal(t, tt.wantAdmin, admin)
			requireDecimal(t, tt.wantNet, net)
			requireDecimal(t, tt.amount, agent.Add(admin).Add(net))
		})
	}
}

func TestCommissionRatesValidate(t *testing.T) {
	assert.NoError(t, defaultRates().Validate())
	assert.Error(t, CommissionRates{AdminPercent: dec("-1"), AgentPercent: decimal.Zero}.Validate())
	assert.Error(t, CommissionRates{AdminPercent: dec("60"), AgentPercent: dec("40")}.Validate())
	assert.Error(t, CommissionRates{AdminPercent: dec("1"), AgentPercent: dec("1"), Scale: -1}.Validate())
	assert.Error(t, CommissionRates{AdminPercent: dec("1"), AgentPercent: dec("1"), Scale: 3}.Validate())
}

func TestCommissionUnsetScaleUsesMinorUnit(t *testing.T) {
	rates := CommissionRates{AdminPercent: dec("2"), AgentPercent: dec("1")}
	assert.EqualValues(t, DefaultScale, rates.WithDefaults().Scale)

	agent, admin, net := rates.ComputeDepositCommission(dec("33.33"), models.RoleAgent, models.CashReal)
	requireDecimal(t, "0.33", agent)
	requireDecimal(t, "0.67", admin)
	requireDecimal(t, "32.33", net)
}
