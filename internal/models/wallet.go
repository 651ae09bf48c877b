package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Role string

const (
	RoleUser  Role = "USER"
	RoleAgent Role = "AGENT"
	RoleAdmin Role = "ADMIN"
)

type Wallet struct {
	ID                         int             `gorm:"primaryKey;autoIncrement" json:"id"`
	UserId                     int             `gorm:"column:user_id;not null;uniqueIndex" json:"user_id"`
	Username                   string          `gorm:"column:username;size:255;not null" json:"username"`
	Role                       Role            `gorm:"column:role;size:20;not null;default:USER" json:"role"`
	VirtualBalance             decimal.Decimal `gorm:"column:virtual_balance;type:decimal(20,2);not null;default:0" json:"virtual_balance"`
	RealBalanceWithdrawable    decimal.Decimal `gorm:"column:real_balance_withdrawable;type:decimal(20,2);not null;default:0" json:"real_balance_withdrawable"`
	RealBalanceNonWithdrawable decimal.Decimal `gorm:"column:real_balance_non_withdrawable;type:decimal(20,2);not null;default:0" json:"real_balance_non_withdrawable"`
	PendingWithdrawals         decimal.Decimal `gorm:"column:pending_withdrawals;type:decimal(20,2);not null;default:0" json:"pending_withdrawals"`
	Currency                   string          `gorm:"column:currency;size:10;not null" json:"currency"`
	CreatedAt                  time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt                  time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

// TotalRealBalance is the spendable real cash across both pools.
func (w Wallet) TotalRealBalance() decimal.Decimal {
	return w.RealBalanceWithdrawable.Add(w.RealBalanceNonWithdrawable)
}

// Total returns the balance total that ledger entries of the given cash type snapshot.
func (w Wallet) Total(cashType CashType) decimal.Decimal {
	if cashType == CashVirtual {
		return w.VirtualBalance
	}
	return w.TotalRealBalance()
}

// Valid reports whether every pool is non-negative.
func (w Wallet) Valid() bool {
	return !w.VirtualBalance.IsNegative() &&
		!w.RealBalanceWithdrawable.IsNegative() &&
		!w.RealBalanceNonWithdrawable.IsNegative() &&
		!w.PendingWithdrawals.IsNegative()
}
