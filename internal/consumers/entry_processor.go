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

// Mutator is the part of ledger.Processor the consumers need.
type Mutator interface {
	Process(ctx context.Context, req ledger.Request) (ledger.Result, error)
}

// EntryProcessor fans committed-entry events out to the subscribers and
// applies mutations queued by asynchronous callers.
type EntryProcessor struct {
	Ledger     Mutator
	Commission *CommissionConsumer
	Loyalty    *LoyaltyConsumer
	Logger     *zap.Logger
}

func NewEntryProcessor(mutator Mutator, commission *CommissionConsumer, loyalty *LoyaltyConsumer, logger *zap.Logger) *EntryProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EntryProcessor{
		Ledger:     mutator,
		Commission: commission,
		Loyalty:    loyalty,
		Logger:     logger,
	}
}

// --- DTOs ---

// MutationDTO is the queued form of a ledger.Request.
type MutationDTO struct {
	UserId         int             `json:"userId"`
	CashType       string          `json:"cashType"`
	Category       string          `json:"category"`
	Amount         decimal.Decimal `json:"amount"`
	ReferenceType  string          `json:"referenceType,omitempty"`
	ReferenceIndex *int64          `json:"referenceIndex,omitempty"`
	ReferenceId    string          `json:"referenceId,omitempty"`
	PayerUserId    int             `json:"payerUserId,omitempty"`
	PayerRole      string          `json:"payerRole,omitempty"`
	IdempotencyKey string          `json:"idempotencyKey,omitempty"`
	Description    string          `json:"description,omitempty"`
}

func (d MutationDTO) ToRequest() (ledger.Request, error) {
	category, err := ledger.ParseCategory(d.Category)
	if err != nil {
		return ledger.Request{}, err
	}
	req := ledger.Request{
		UserId:         d.UserId,
		CashType:       models.CashType(d.CashType),
		Category:       category,
		Amount:         d.Amount,
		ReferenceType:  d.ReferenceType,
		ReferenceIndex: d.ReferenceIndex,
		ReferenceId:    d.ReferenceId,
		IdempotencyKey: d.IdempotencyKey,
		Description:    d.Description,
	}
	if d.PayerUserId != 0 {
		req.Counterparty = &ledger.Counterparty{UserId: d.PayerUserId, Role: models.Role(d.PayerRole)}
	}
	return req, nil
}

// ProcessMutation applies a queued mutation. A request that was already
// applied is reported as success so queue retries stay harmless.
func (p *EntryProcessor) ProcessMutation(ctx context.Context, dto MutationDTO) error {
	req, err := dto.ToRequest()
	if err != nil {
		return err
	}
	_, err = p.Ledger.Process(ctx, req)
	if errors.Is(err, ledger.ErrDuplicateRequest) {
		p.Logger.Info("queued mutation already applied",
			zap.Int("user_id", dto.UserId),
			zap.String("idempotency_key", dto.IdempotencyKey),
		)
		return nil
	}
	return err
}

// ProcessEntryCommitted runs every subscriber and reports the first failure
// after all of them had their turn.
func (p *EntryProcessor) ProcessEntryCommitted(ctx context.Context, ev ledger.EntryCommitted) error {
	var errs []error
	if p.Commission != nil {
		if err := p.Commission.Handle(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("commission: %w", err))
		}
	}
	if p.Loyalty != nil {
		if err := p.Loyalty.Handle(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("loyalty: %w", err))
		}
	}
	return errors.Join(errs...)
}
