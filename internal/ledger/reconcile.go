package ledger

import (
	"fmt"

	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
)

type Discrepancy struct {
	Field    string
	EntryID  int
	Expected decimal.Decimal
	Actual   decimal.Decimal
}

func (d Discrepancy) String() string {
	if d.EntryID != 0 {
		return fmt.Sprintf("%s (entry %d): expected %s, got %s", d.Field, d.EntryID, d.Expected, d.Actual)
	}
	return fmt.Sprintf("%s: expected %s, got %s", d.Field, d.Expected, d.Actual)
}

type Report struct {
	UserId        int
	Entries       int
	Discrepancies []Discrepancy
}

func (r Report) Balanced() bool {
	return len(r.Discrepancies) == 0
}

// Reconcile replays a user's entries, in write order, against the wallet:
//
//	real total = REAL credits - REAL debits - pendingWithdrawals
//	virtual    = VIRTUAL credits - VIRTUAL debits
//
// A withdrawal request counts as a debit once it is COMPLETED or REJECTED and
// as pending while PENDING. A WITHDRAWAL_REJECTED credit posted directly,
// without going through RejectWithdrawal, releases pending cash that its
// request still holds, so it settles that amount before refunding it. Each
// entry's snapshot must also chain onto the previous entry of the same cash
// type.
func Reconcile(w models.Wallet, entries []models.LedgerEntry) Report {
	report := Report{UserId: w.UserId, Entries: len(entries)}

	sums := map[models.CashType]decimal.Decimal{
		models.CashReal:    decimal.Zero,
		models.CashVirtual: decimal.Zero,
	}
	last := map[models.CashType]decimal.Decimal{
		models.CashReal:    decimal.Zero,
		models.CashVirtual: decimal.Zero,
	}
	pending := decimal.Zero

	for _, e := range entries {
		if e.UserId != w.UserId {
			continue
		}
		if !e.NewBalance.Sub(e.PreviousBalance).Equal(e.SignedAmount()) {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Field:    "snapshot delta",
				EntryID:  e.ID,
				Expected: e.SignedAmount(),
				Actual:   e.NewBalance.Sub(e.PreviousBalance),
			})
		}
		if !e.PreviousBalance.Equal(last[e.CashType]) {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{
				Field:    "snapshot chain",
				EntryID:  e.ID,
				Expected: last[e.CashType],
				Actual:   e.PreviousBalance,
			})
		}
		last[e.CashType] = e.NewBalance

		switch e.Direction {
		case models.DirectionCredit:
			if Category(e.Category) == CategoryWithdrawalRejected && !linkedRefund(e) {
				pending = pending.Sub(e.Amount)
				sums[e.CashType] = sums[e.CashType].Sub(e.Amount)
			}
			sums[e.CashType] = sums[e.CashType].Add(e.Amount)
		case models.DirectionDebit:
			sums[e.CashType] = sums[e.CashType].Sub(e.Amount)
		case models.DirectionPendingDebit:
			if e.Status == models.StatusPending {
				pending = pending.Add(e.Amount)
			} else {
				sums[e.CashType] = sums[e.CashType].Sub(e.Amount)
			}
		}
	}

	expectRealTotal := sums[models.CashReal].Sub(pending)
	checks := []struct {
		field    string
		expected decimal.Decimal
		actual   decimal.Decimal
	}{
		{"real balance", expectRealTotal, w.TotalRealBalance()},
		{"virtual balance", sums[models.CashVirtual], w.VirtualBalance},
		{"pending withdrawals", pending, w.PendingWithdrawals},
	}
	for _, c := range checks {
		if !c.expected.Equal(c.actual) {
			report.Discrepancies = append(report.Discrepancies, Discrepancy{Field: c.field, Expected: c.expected, Actual: c.actual})
		}
	}
	return report
}

// linkedRefund reports whether e was written by RejectWithdrawal, in which case
// the request it refunds is already REJECTED.
func linkedRefund(e models.LedgerEntry) bool {
	_, ok := e.Metadata[metaWithdrawalEntryID]
	return ok
}
