package ledger

import (
	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
)

// DeductRealCashWithPriority splits a real-cash debit across the two pools,
// draining the non-withdrawable pool before touching withdrawable cash. A
// positive remaining means both pools together could not cover the amount; the
// caller must then abort instead of applying the partial split.
func DeductRealCashWithPriority(w models.Wallet, amount decimal.Decimal) (fromNonWithdrawable, fromWithdrawable, remaining decimal.Decimal) {
	remaining = amount
	fromNonWithdrawable = decimal.Min(remaining, decimal.Max(w.RealBalanceNonWithdrawable, decimal.Zero))
	remaining = remaining.Sub(fromNonWithdrawable)

	fromWithdrawable = decimal.Min(remaining, decimal.Max(w.RealBalanceWithdrawable, decimal.Zero))
	remaining = remaining.Sub(fromWithdrawable)
	return fromNonWithdrawable, fromWithdrawable, remaining
}
