package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CashType string

const (
	CashReal    CashType = "REAL"
	CashVirtual CashType = "VIRTUAL"
)

func (c CashType) Valid() bool {
	return c == CashReal || c == CashVirtual
}

type Direction string

const (
	DirectionDebit        Direction = "DEBIT"
	DirectionCredit       Direction = "CREDIT"
	DirectionPendingDebit Direction = "PENDING_DEBIT"
)

type EntryStatus string

const (
	StatusPending   EntryStatus = "PENDING"
	StatusCompleted EntryStatus = "COMPLETED"
	StatusFailed    EntryStatus = "FAILED"
	StatusRejected  EntryStatus = "REJECTED"
)

func (s EntryStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusRejected
}

// Metadata is category specific detail stored as a JSON object.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("metadata: unsupported type %T", value)
	}
	if len(raw) == 0 {
		*m = Metadata{}
		return nil
	}
	out := Metadata{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*m = out
	return nil
}

type LedgerEntry struct {
	ID              int             `gorm:"primaryKey;autoIncrement" json:"id"`
	TransactionNo   string          `gorm:"column:transaction_no;size:64;not null;index" json:"transaction_no"`
	UserId          int             `gorm:"column:user_id;not null;index" json:"user_id"`
	CashType        CashType        `gorm:"column:cash_type;size:10;not null" json:"cash_type"`
	Direction       Direction       `gorm:"column:direction;size:20;not null" json:"direction"`
	Category        string          `gorm:"column:category;size:50;not null;index:idx_ledger_category_status" json:"category"`
	Amount          decimal.Decimal `gorm:"column:amount;type:decimal(20,2);not null" json:"amount"`
	PreviousBalance decimal.Decimal `gorm:"column:previous_balance;type:decimal(20,2);not null" json:"previous_balance"`
	NewBalance      decimal.Decimal `gorm:"column:new_balance;type:decimal(20,2);not null" json:"new_balance"`
	ReferenceType   string          `gorm:"column:reference_type;size:50" json:"reference_type,omitempty"`
	ReferenceIndex  *int64          `gorm:"column:reference_index" json:"reference_index,omitempty"`
	ReferenceId     string          `gorm:"column:reference_id;size:100" json:"reference_id,omitempty"`
	Status          EntryStatus     `gorm:"column:status;size:20;not null;index:idx_ledger_category_status" json:"status"`
	Metadata        Metadata        `gorm:"column:metadata;type:text" json:"metadata"`
	Description     string          `gorm:"column:description;type:text" json:"description,omitempty"`
	IdempotencyKey  *string         `gorm:"column:idempotency_key;size:128;uniqueIndex" json:"idempotency_key,omitempty"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (LedgerEntry) TableName() string {
	return "ledger_entries"
}

// SignedAmount is the amount as it moved the entry's cash-type total.
func (e LedgerEntry) SignedAmount() decimal.Decimal {
	if e.Direction == DirectionCredit {
		return e.Amount
	}
	return e.Amount.Neg()
}
