package consumers

import (
	"context"

	"ledger-service/internal/ledger"
	"ledger-service/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// LoyaltyActivity is one completed stake, the unit loyalty points accrue on.
type LoyaltyActivity struct {
	UserId   int
	EntryID  int
	Category ledger.Category
	CashType models.CashType
	Amount   decimal.Decimal
}

// LoyaltyFeed receives staking activity.
type LoyaltyFeed interface {
	Record(ctx context.Context, a LoyaltyActivity) error
}

type LoyaltyConsumer struct {
	Feed LoyaltyFeed
}

func NewLoyaltyConsumer(feed LoyaltyFeed) *LoyaltyConsumer {
	return &LoyaltyConsumer{Feed: feed}
}

func (c *LoyaltyConsumer) Handle(ctx context.Context, ev ledger.EntryCommitted) error {
	fam, _ := ev.Category.Family()
	if fam != ledger.FamilyStake || ev.Direction != models.DirectionDebit || ev.Status != models.StatusCompleted {
		return nil
	}
	return c.Feed.Record(ctx, LoyaltyActivity{
		UserId:   ev.UserId,
		EntryID:  ev.EntryID,
		Category: ev.Category,
		CashType: ev.CashType,
		Amount:   ev.Amount,
	})
}

var loyaltyStakeTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "wallet",
		Subsystem: "loyalty",
		Name:      "stake_amount_total",
		Help:      "Staked amount reported to the loyalty feed, by cash type.",
	},
	[]string{"cash_type"},
)

// LogFeed is the default feed: it logs each activity and tracks staking
// volume until a loyalty service is attached.
type LogFeed struct {
	Logger *zap.Logger
}

func (f LogFeed) Record(_ context.Context, a LoyaltyActivity) error {
	amount, _ := a.Amount.Float64()
	loyaltyStakeTotal.WithLabelValues(string(a.CashType)).Add(amount)
	if f.Logger != nil {
		f.Logger.Info("loyalty activity",
			zap.Int("user_id", a.UserId),
			zap.Int("entry_id", a.EntryID),
			zap.String("category", string(a.Category)),
			zap.String("amount", a.Amount.String()),
		)
	}
	return nil
}
