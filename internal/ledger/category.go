package ledger

import (
	"fmt"
	"sort"
	"strings"
)

// Category is the business identifier of a balance mutation.
type Category string

const (
	CategoryDeposit            Category = "DEPOSIT"
	CategoryTicketPurchase     Category = "TICKET_PURCHASE"
	CategoryGameEntry          Category = "GAME_ENTRY"
	CategoryBetPlacement       Category = "BET_PLACEMENT"
	CategoryGameWin            Category = "GAME_WIN"
	CategoryCashback           Category = "CASHBACK"
	CategoryReferralCommission Category = "REFERRAL_COMMISSION"
	CategoryCommission         Category = "COMMISSION"
	CategoryPurchase           Category = "PURCHASE"
	CategoryWireCredit         Category = "WIRE_CREDIT"
	CategoryWithdrawalRequest  Category = "WITHDRAWAL_REQUEST"
	CategoryWithdrawalRejected Category = "WITHDRAWAL_REJECTED"
	CategoryCancellationRefund Category = "CANCELLATION_REFUND"
)

// Family groups categories that share one balance rule.
type Family int

const (
	familyUnknown Family = iota
	FamilyDeposit
	FamilyStake
	FamilyWin
	FamilyEarned
	FamilyPurchase
	FamilyWithdrawalRequest
	FamilyWithdrawalRejected
	FamilyRefund
)

func (f Family) String() string {
	switch f {
	case FamilyDeposit:
		return "deposit"
	case FamilyStake:
		return "stake"
	case FamilyWin:
		return "win"
	case FamilyEarned:
		return "earned"
	case FamilyPurchase:
		return "purchase"
	case FamilyWithdrawalRequest:
		return "withdrawal_request"
	case FamilyWithdrawalRejected:
		return "withdrawal_rejected"
	case FamilyRefund:
		return "refund"
	}
	return "unknown"
}

var categoryFamilies = map[Category]Family{
	CategoryDeposit:            FamilyDeposit,
	CategoryTicketPurchase:     FamilyStake,
	CategoryGameEntry:          FamilyStake,
	CategoryBetPlacement:       FamilyStake,
	CategoryGameWin:            FamilyWin,
	CategoryCashback:           FamilyEarned,
	CategoryReferralCommission: FamilyEarned,
	CategoryCommission:         FamilyEarned,
	CategoryPurchase:           FamilyPurchase,
	CategoryWireCredit:         FamilyPurchase,
	CategoryWithdrawalRequest:  FamilyWithdrawalRequest,
	CategoryWithdrawalRejected: FamilyWithdrawalRejected,
	CategoryCancellationRefund: FamilyRefund,
}

// Family returns the balance rule family of c. Unknown categories report false.
func (c Category) Family() (Family, bool) {
	f, ok := categoryFamilies[c]
	return f, ok
}

func (c Category) IsWithdrawal() bool {
	f, _ := c.Family()
	return f == FamilyWithdrawalRequest || f == FamilyWithdrawalRejected
}

// ParseCategory accepts any casing and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := c.Family(); !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedCategory, s)
	}
	return c, nil
}

// Categories lists the full vocabulary in a stable order.
func Categories() []Category {
	out := make([]Category, 0, len(categoryFamilies))
	for c := range categoryFamilies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
