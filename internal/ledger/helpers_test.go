package ledger

import (
	"context"
	"sync"
	"testing"

	"ledger-service/internal/database"
	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	require.True(t, dec(want).Equal(got), append([]interface{}{"want %s, got %s", want, got}, msgAndArgs...)...)
}

type walletSeed struct {
	userID          int
	role            models.Role
	virtual         string
	withdrawable    string
	nonWithdrawable string
}

func seedWallet(t *testing.T, db *gorm.DB, s walletSeed) models.Wallet {
	t.Helper()
	if s.role == "" {
		s.role = models.RoleUser
	}
	w := models.Wallet{
		UserId:                     s.userID,
		Username:                   "user",
		Role:                       s.role,
		VirtualBalance:             decimal.Zero,
		RealBalanceWithdrawable:    decimal.Zero,
		RealBalanceNonWithdrawable: decimal.Zero,
		PendingWithdrawals:         decimal.Zero,
		Currency:                   "NGN",
	}
	require.NoError(t, db.Create(&w).Error)
	return w
}

// fund credits a fresh wallet through the engine so every balance has ledger
// history behind it.
func fund(t *testing.T, p *Processor, userID int, cashType models.CashType, category Category, amount string) {
	t.Helper()
	_, err := p.Process(context.Background(), Request{
		UserId:   userID,
		CashType: cashType,
		Category: category,
		Amount:   dec(amount),
	})
	require.NoError(t, err)
}

func loadWallet(t *testing.T, db *gorm.DB, userID int) models.Wallet {
	t.Helper()
	var w models.Wallet
	require.NoError(t, db.Where("user_id = ?", userID).First(&w).Error)
	return w
}

func requireBalanced(t *testing.T, db *gorm.DB, userID int) {
	t.Helper()
	entries, err := EntriesForUser(context.Background(), db, userID)
	require.NoError(t, err)
	report := Reconcile(loadWallet(t, db, userID), entries)
	require.True(t, report.Balanced(), "user %d: %v", userID, report.Discrepancies)
}

func defaultRates() CommissionRates {
	return CommissionRates{AdminPercent: dec("2"), AgentPercent: dec("1"), Scale: DefaultScale}
}

func newTestProcessor(t *testing.T) (*Processor, *gorm.DB, *recordingPublisher) {
	t.Helper()
	db := database.NewTestDB(t)
	pub := &recordingPublisher{}
	return NewProcessor(db, defaultRates(), pub, nil), db, pub
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []EntryCommitted
	err    error
}

func (r *recordingPublisher) PublishEntryCommitted(_ context.Context, ev EntryCommitted) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) published() []EntryCommitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]EntryCommitted(nil), r.events...)
}
