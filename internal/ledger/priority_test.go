package ledger

import (
	"testing"

	"ledger-service/internal/models"
)

func TestDeductRealCashWithPriority(t *testing.T) {
	tests := []struct {
		name            string
		nonWithdrawable string
		withdrawable    string
		amount          string
		wantNon         string
		wantW           string
		wantRemaining   string
	}{
		{"spills into withdrawable", "30", "50", "40", "30", "10", "0"},
		{"non-withdrawable covers all", "100", "50", "40", "40", "0", "0"},
		{"only withdrawable", "0", "50", "50", "0", "50", "0"},
		{"exact total", "30", "50", "80", "30", "50", "0"},
		{"short", "30", "50", "90", "30", "50", "10"},
		{"cents", "0.25", "1.00", "0.40", "0.25", "0.15", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := models.Wallet{
				RealBalanceNonWithdrawable: dec(tt.nonWithdrawable),
				RealBalanceWithdrawable:    dec(tt.withdrawable),
			}
			non, wd, remaining := DeductRealCashWithPriority(w, dec(tt.amount))
			requireDecimal(t, tt.wantNon, non)
			requireDecimal(t, tt.wantW, wd)
			requireDecimal(t, tt.wantRemaining, remaining)
			requireDecimal(t, tt.amount, non.Add(wd).Add(remaining))
		})
	}
}

func TestDebitAppliesPrioritySplit(t *testing.T) {
	w := models.Wallet{
		RealBalanceNonWithdrawable: dec("30"),
		RealBalanceWithdrawable:    dec("50"),
	}
	meta, err := debit(&w, models.CashReal, dec("40"))
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	requireDecimal(t, "0", w.RealBalanceNonWithdrawable)
	requireDecimal(t, "40", w.RealBalanceWithdrawable)
	if meta["from_non_withdrawable"] != "30" || meta["from_withdrawable"] != "10" {
		t.Errorf("unexpected split metadata %v", meta)
	}
}
