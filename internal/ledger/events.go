package ledger

import (
	"context"
	"time"

	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
)

// EntryCommitted is emitted once per ledger entry after its transaction commits.
type EntryCommitted struct {
	EntryID        int                `json:"entryId"`
	TransactionNo  string             `json:"transactionNo"`
	UserId         int                `json:"userId"`
	CashType       models.CashType    `json:"cashType"`
	Direction      models.Direction   `json:"direction"`
	Category       Category           `json:"category"`
	Amount         decimal.Decimal    `json:"amount"`
	NewBalance     decimal.Decimal    `json:"newBalance"`
	Status         models.EntryStatus `json:"status"`
	ReferenceType  string             `json:"referenceType,omitempty"`
	ReferenceIndex *int64             `json:"referenceIndex,omitempty"`
	ReferenceId    string             `json:"referenceId,omitempty"`
	Metadata       models.Metadata    `json:"metadata,omitempty"`
	CommittedAt    time.Time          `json:"committedAt"`
}

func EventFromEntry(e models.LedgerEntry) EntryCommitted {
	return EntryCommitted{
		EntryID:        e.ID,
		TransactionNo:  e.TransactionNo,
		UserId:         e.UserId,
		CashType:       e.CashType,
		Direction:      e.Direction,
		Category:       Category(e.Category),
		Amount:         e.Amount,
		NewBalance:     e.NewBalance,
		Status:         e.Status,
		ReferenceType:  e.ReferenceType,
		ReferenceIndex: e.ReferenceIndex,
		ReferenceId:    e.ReferenceId,
		Metadata:       e.Metadata,
		CommittedAt:    e.CreatedAt,
	}
}

// MetadataDecimal reads a decimal stored under key, tolerating the string and
// float encodings JSON round trips produce.
func (ev EntryCommitted) MetadataDecimal(key string) decimal.Decimal {
	return metadataDecimal(ev.Metadata, key)
}

func (ev EntryCommitted) MetadataInt(key string) int {
	switch v := ev.Metadata[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func metadataDecimal(m models.Metadata, key string) decimal.Decimal {
	switch v := m[key].(type) {
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
	case decimal.Decimal:
		return v
	case float64:
		return decimal.NewFromFloat(v)
	}
	return decimal.Zero
}

// Publisher delivers committed-entry events to asynchronous subscribers.
type Publisher interface {
	PublishEntryCommitted(ctx context.Context, ev EntryCommitted) error
}

type NopPublisher struct{}

func (NopPublisher) PublishEntryCommitted(context.Context, EntryCommitted) error { return nil }
