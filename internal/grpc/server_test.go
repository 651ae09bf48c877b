package grpc

import (
	"context"
	"net"
	"testing"

	"ledger-service/internal/database"
	"ledger-service/internal/ledger"
	"ledger-service/internal/services"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	db := database.NewTestDB(t)
	rates := ledger.CommissionRates{AdminPercent: decimal.NewFromInt(2), AgentPercent: decimal.NewFromInt(1)}
	processor := ledger.NewProcessor(db, rates, nil, zap.NewNop())
	wallets := services.NewWalletService(db, processor, "NGN", zap.NewNop())
	withdrawals := services.NewWithdrawalService(db, processor, services.WithdrawalSettings{
		MinimumWithdrawal: decimal.NewFromInt(1),
		MaximumWithdrawal: decimal.NewFromInt(1000),
	}, zap.NewNop())

	_, err := wallets.CreateWallet(context.Background(), services.CreateWalletDTO{UserId: 7, Username: "ada"})
	require.NoError(t, err)

	lis := bufconn.Listen(1 << 20)
	srv := NewGRPCServer(&Server{Ledger: processor, Wallets: wallets, Withdrawals: withdrawals, Logger: zap.NewNop()})
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn)
}

func mustStruct(t *testing.T, m map[string]interface{}) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	require.NoError(t, err)
	return s
}

func TestProcessAndGetWallet(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	out, err := client.Process(ctx, mustStruct(t, map[string]interface{}{
		"userId":   7,
		"cashType": "REAL",
		"category": "GAME_WIN",
		"amount":   "150.5",
	}))
	require.NoError(t, err)
	assert.Equal(t, "150.5", out.Fields["balance"].GetStringValue())

	wallet, err := client.GetWallet(ctx, mustStruct(t, map[string]interface{}{"userId": 7}))
	require.NoError(t, err)
	assert.Equal(t, "150.5", wallet.Fields["realBalanceWithdrawable"].GetStringValue())

	page, err := client.ListEntries(ctx, mustStruct(t, map[string]interface{}{"userId": 7}))
	require.NoError(t, err)
	assert.Equal(t, float64(1), page.Fields["count"].GetNumberValue())
}

func TestWithdrawalDecisions(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	for _, amount := range []string{"100", "40", "30"} {
		category := "WITHDRAWAL_REQUEST"
		if amount == "100" {
			category = "GAME_WIN"
		}
		_, err := client.Process(ctx, mustStruct(t, map[string]interface{}{
			"userId": 7, "cashType": "REAL", "category": category, "amount": amount,
		}))
		require.NoError(t, err)
	}

	// Entries 2 and 3 are the two requests.
	approved, err := client.ApproveWithdrawal(ctx, mustStruct(t, map[string]interface{}{"entryId": 2}))
	require.NoError(t, err)
	assert.Equal(t, "COMPLETED", approved.Fields["entry"].GetStructValue().Fields["status"].GetStringValue())

	rejected, err := client.RejectWithdrawal(ctx, mustStruct(t, map[string]interface{}{"entryId": 3, "reason": "bank closed"}))
	require.NoError(t, err)
	assert.Equal(t, "60", rejected.Fields["balance"].GetStringValue())

	_, err = client.ApproveWithdrawal(ctx, mustStruct(t, map[string]interface{}{"entryId": 3}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetWallet(ctx, mustStruct(t, map[string]interface{}{"userId": 99}))
	assert.Equal(t, codes.NotFound, status.Code(err))

	_, err = client.Process(ctx, mustStruct(t, map[string]interface{}{
		"userId": 7, "cashType": "REAL", "category": "LOTTERY", "amount": "1",
	}))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Process(ctx, mustStruct(t, map[string]interface{}{
		"userId": 7, "cashType": "REAL", "category": "BET_PLACEMENT", "amount": "1",
	}))
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	win := map[string]interface{}{
		"userId": 7, "cashType": "REAL", "category": "GAME_WIN", "amount": "5", "idempotencyKey": "win-1",
	}
	_, err = client.Process(ctx, mustStruct(t, win))
	require.NoError(t, err)
	_, err = client.Process(ctx, mustStruct(t, win))
	assert.Equal(t, codes.AlreadyExists, status.Code(err))
}

func TestToStatusDefaultsToInternal(t *testing.T) {
	err := toStatus(assert.AnError)
	assert.Equal(t, codes.Internal, status.Code(err))
}
