package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"ledger-service/internal/ledger"
	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Claimer grants exclusive, expiring claims on external event ids.
type Claimer interface {
	Claim(ctx context.Context, id string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, id string) error
}

// PaymentWebhookService credits settled card and bank payments to the buyer's
// wallet. Each provider event is applied at most once: a Redis claim filters
// concurrent redeliveries and the ledger idempotency key catches the rest.
type PaymentWebhookService struct {
	Ledger   *ledger.Processor
	Claims   Claimer
	ClaimTTL time.Duration
	Secret   string
	Logger   *zap.Logger
}

func NewPaymentWebhookService(processor *ledger.Processor, claims Claimer, claimTTL time.Duration, secret string, logger *zap.Logger) *PaymentWebhookService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentWebhookService{Ledger: processor, Claims: claims, ClaimTTL: claimTTL, Secret: secret, Logger: logger}
}

type PaymentEventDTO struct {
	EventId   string          `json:"eventId" binding:"required"`
	Event     string          `json:"event" binding:"required"`
	UserId    int             `json:"userId" binding:"required,gt=0"`
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference"`
	Provider  string          `json:"provider"`
}

const EventChargeSuccess = "charge.success"

type WebhookOutcome struct {
	Applied   bool   `json:"applied"`
	Duplicate bool   `json:"duplicate"`
	EntryID   int    `json:"entryId,omitempty"`
	Message   string `json:"message"`
}

// VerifySignature checks the hex HMAC-SHA512 of body. An empty secret
// disables verification.
func (s *PaymentWebhookService) VerifySignature(body []byte, signature string) error {
	if s.Secret == "" {
		return nil
	}
	mac := hmac.New(sha512.New, []byte(s.Secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

func (s *PaymentWebhookService) HandlePayment(ctx context.Context, dto PaymentEventDTO) (WebhookOutcome, error) {
	if dto.Event != EventChargeSuccess {
		webhookEventsTotal.WithLabelValues("ignored").Inc()
		return WebhookOutcome{Message: "Unhandled event"}, nil
	}

	claimed, err := s.Claims.Claim(ctx, dto.EventId, s.ClaimTTL)
	if err != nil {
		webhookEventsTotal.WithLabelValues("error").Inc()
		return WebhookOutcome{}, err
	}
	if !claimed {
		webhookEventsTotal.WithLabelValues("duplicate").Inc()
		return WebhookOutcome{Duplicate: true, Message: "Event already received"}, nil
	}

	res, err := s.Ledger.Process(ctx, ledger.Request{
		UserId:         dto.UserId,
		CashType:       models.CashReal,
		Category:       ledger.CategoryWireCredit,
		Amount:         dto.Amount,
		ReferenceType:  "payment",
		ReferenceId:    dto.Reference,
		IdempotencyKey: "payment:" + dto.EventId,
		Description:    fmt.Sprintf("%s payment %s", dto.Provider, dto.Reference),
	})
	if errors.Is(err, ledger.ErrDuplicateRequest) {
		webhookEventsTotal.WithLabelValues("duplicate").Inc()
		return WebhookOutcome{Duplicate: true, Message: "Event already applied"}, nil
	}
	if err != nil {
		// let the provider redeliver
		if relErr := s.Claims.Release(context.WithoutCancel(ctx), dto.EventId); relErr != nil {
			s.Logger.Error("release webhook claim", zap.String("event_id", dto.EventId), zap.Error(relErr))
		}
		webhookEventsTotal.WithLabelValues("error").Inc()
		return WebhookOutcome{}, err
	}

	webhookEventsTotal.WithLabelValues("applied").Inc()
	s.Logger.Info("payment credited",
		zap.String("event_id", dto.EventId),
		zap.Int("user_id", dto.UserId),
		zap.Int("entry_id", res.Entry.ID),
		zap.String("amount", dto.Amount.String()),
	)
	return WebhookOutcome{Applied: true, EntryID: res.Entry.ID, Message: "Payment credited"}, nil
}
