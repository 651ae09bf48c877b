package ledger

import (
	"context"
	"time"

	"ledger-service/internal/models"

	"gorm.io/gorm"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Filter selects ledger entries for reporting collaborators. Zero values are
// ignored.
type Filter struct {
	UserId   int
	From     time.Time
	To       time.Time
	Category Category
	CashType models.CashType
	Status   models.EntryStatus
	Page     int
	Limit    int
}

// Normalize applies the default and maximum page size.
func (f Filter) Normalize() Filter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	return f
}

// ListEntries returns one page of matching entries, newest first, and the
// total number of matches.
func ListEntries(ctx context.Context, db *gorm.DB, f Filter) ([]models.LedgerEntry, int64, error) {
	f = f.Normalize()

	query := db.WithContext(ctx).Model(&models.LedgerEntry{})
	if f.UserId != 0 {
		query = query.Where("user_id = ?", f.UserId)
	}
	if !f.From.IsZero() {
		query = query.Where("created_at >= ?", f.From)
	}
	if !f.To.IsZero() {
		query = query.Where("created_at <= ?", f.To)
	}
	if f.Category != "" {
		query = query.Where("category = ?", string(f.Category))
	}
	if f.CashType != "" {
		query = query.Where("cash_type = ?", f.CashType)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, persistence("count ledger entries", err)
	}

	var entries []models.LedgerEntry
	err := query.Order("created_at DESC").Order("id DESC").
		Limit(f.Limit).
		Offset((f.Page - 1) * f.Limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, persistence("list ledger entries", err)
	}
	return entries, total, nil
}

// EntriesForUser returns a user's full history in write order, which is the
// order balances are reconstructed in.
func EntriesForUser(ctx context.Context, db *gorm.DB, userID int) ([]models.LedgerEntry, error) {
	var entries []models.LedgerEntry
	if err := db.WithContext(ctx).Where("user_id = ?", userID).Order("id ASC").Find(&entries).Error; err != nil {
		return nil, persistence("load user ledger", err)
	}
	return entries, nil
}
