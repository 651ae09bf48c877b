package consumers

import (
	"context"
	"errors"
	"fmt"

	"ledger-service/internal/ledger"
	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const referenceCommission = "deposit_commission"

// CommissionConsumer pays out the cuts withheld from real-cash deposits: the
// agent cut to the paying agent and the admin cut to the house account.
type CommissionConsumer struct {
	Ledger Mutator
	// HouseUserId receives admin cuts. Zero leaves them unpaid.
	HouseUserId int
	Logger      *zap.Logger
}

func NewCommissionConsumer(mutator Mutator, houseUserID int, logger *zap.Logger) *CommissionConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommissionConsumer{Ledger: mutator, HouseUserId: houseUserID, Logger: logger}
}

func (c *CommissionConsumer) Handle(ctx context.Context, ev ledger.EntryCommitted) error {
	if ev.Category != ledger.CategoryDeposit || ev.Direction != models.DirectionCredit || ev.CashType != models.CashReal {
		return nil
	}

	index := int64(ev.EntryID)
	payouts := []struct {
		userID int
		cut    decimal.Decimal
		key    string
		label  string
	}{
		{ev.MetadataInt("payer_user_id"), ev.MetadataDecimal("agent_cut"), fmt.Sprintf("commission:agent:%d", ev.EntryID), "agent"},
		{c.HouseUserId, ev.MetadataDecimal("admin_cut"), fmt.Sprintf("commission:admin:%d", ev.EntryID), "admin"},
	}

	var errs []error
	for _, p := range payouts {
		if p.userID <= 0 || !p.cut.IsPositive() {
			continue
		}
		_, err := c.Ledger.Process(ctx, ledger.Request{
			UserId:         p.userID,
			CashType:       models.CashReal,
			Category:       ledger.CategoryCommission,
			Amount:         p.cut,
			ReferenceType:  referenceCommission,
			ReferenceIndex: &index,
			ReferenceId:    ev.TransactionNo,
			IdempotencyKey: p.key,
			Description:    fmt.Sprintf("%s commission on deposit %s", p.label, ev.TransactionNo),
		})
		switch {
		case err == nil:
			c.Logger.Info("commission paid",
				zap.Int("user_id", p.userID),
				zap.Int("entry_id", ev.EntryID),
				zap.String("kind", p.label),
				zap.String("amount", p.cut.String()),
			)
		case errors.Is(err, ledger.ErrDuplicateRequest):
			// paid on an earlier delivery
		default:
			errs = append(errs, fmt.Errorf("%s commission for entry %d: %w", p.label, ev.EntryID, err))
		}
	}
	return errors.Join(errs...)
}
