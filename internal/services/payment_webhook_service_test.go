package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"sync"
	"testing"
	"time"

	"ledger-service/internal/database"
	"ledger-service/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryClaims struct {
	mu     sync.Mutex
	claims map[string]bool
	err    error
}

func newMemoryClaims() *memoryClaims {
	return &memoryClaims{claims: map[string]bool{}}
}

func (m *memoryClaims) Claim(_ context.Context, id string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if m.claims[id] {
		return false, nil
	}
	m.claims[id] = true
	return true, nil
}

func (m *memoryClaims) Release(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.claims, id)
	return nil
}

func newWebhookService(t *testing.T) (*PaymentWebhookService, *WalletService, *memoryClaims) {
	t.Helper()
	db := database.NewTestDB(t)
	processor := ledger.NewProcessor(db, testRates(), nil, nil)
	wallets := NewWalletService(db, processor, "NGN", nil)
	_, err := wallets.CreateWallet(context.Background(), CreateWalletDTO{UserId: 1, Username: "buyer"})
	require.NoError(t, err)
	claims := newMemoryClaims()
	return NewPaymentWebhookService(processor, claims, time.Hour, "s3cret", nil), wallets, claims
}

func TestHandlePaymentCreditsOnce(t *testing.T) {
	svc, wallets, claims := newWebhookService(t)
	ctx := context.Background()
	event := PaymentEventDTO{EventId: "evt_1", Event: EventChargeSuccess, UserId: 1, Amount: dec("250"), Reference: "REF1", Provider: "paystack"}

	out, err := svc.HandlePayment(ctx, event)
	require.NoError(t, err)
	assert.True(t, out.Applied)

	out, err = svc.HandlePayment(ctx, event)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	// claim expired but the ledger still remembers the event
	claims.Release(ctx, "evt_1")
	out, err = svc.HandlePayment(ctx, event)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)

	b, err := wallets.GetBalance(ctx, 1)
	require.NoError(t, err)
	assert.True(t, b.RealBalanceNonWithdrawable.Equal(dec("250")))
}

func TestHandlePaymentReleasesClaimOnFailure(t *testing.T) {
	svc, _, claims := newWebhookService(t)
	ctx := context.Background()

	_, err := svc.HandlePayment(ctx, PaymentEventDTO{EventId: "evt_2", Event: EventChargeSuccess, UserId: 77, Amount: dec("10")})
	require.True(t, errors.Is(err, ledger.ErrWalletNotFound), "got %v", err)
	assert.False(t, claims.claims["evt_2"])
}

func TestHandlePaymentIgnoresOtherEvents(t *testing.T) {
	svc, _, claims := newWebhookService(t)
	out, err := svc.HandlePayment(context.Background(), PaymentEventDTO{EventId: "evt_3", Event: "transfer.failed", UserId: 1, Amount: dec("10")})
	require.NoError(t, err)
	assert.False(t, out.Applied)
	assert.Empty(t, claims.claims)
}

func TestHandlePaymentClaimStoreDown(t *testing.T) {
	svc, _, claims := newWebhookService(t)
	claims.err = errors.New("connection refused")
	_, err := svc.HandlePayment(context.Background(), PaymentEventDTO{EventId: "evt_4", Event: EventChargeSuccess, UserId: 1, Amount: dec("10")})
	assert.Error(t, err)
}

func TestVerifySignature(t *testing.T) {
	svc := &PaymentWebhookService{Secret: "s3cret"}
	body := []byte(`{"event":"charge.success"}`)
	mac := hmac.New(sha512.New, []byte("s3cret"))
	mac.Write(body)

	assert.NoError(t, svc.VerifySignature(body, hex.EncodeToString(mac.Sum(nil))))
	assert.True(t, errors.Is(svc.VerifySignature(body, "deadbeef"), ErrInvalidSignature))
	assert.NoError(t, (&PaymentWebhookService{}).VerifySignature(body, ""))
}
