package services

import (
	"context"
	"errors"
	"testing"

	"ledger-service/internal/database"
	"ledger-service/internal/ledger"
	"ledger-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testRates() ledger.CommissionRates {
	return ledger.CommissionRates{AdminPercent: dec("2"), AgentPercent: dec("1"), Scale: ledger.DefaultScale}
}

type WalletServiceSuite struct {
	suite.Suite
	db        *gorm.DB
	processor *ledger.Processor
	svc       *WalletService
}

func (s *WalletServiceSuite) SetupTest() {
	s.db = database.NewTestDB(s.T())
	s.processor = ledger.NewProcessor(s.db, testRates(), nil, nil)
	s.svc = NewWalletService(s.db, s.processor, "NGN", nil)
}

func (s *WalletServiceSuite) TestCreateWallet() {
	w, err := s.svc.CreateWallet(context.Background(), CreateWalletDTO{UserId: 101, Username: "testuser"})
	s.Require().NoError(err)
	s.Equal(models.RoleUser, w.Role)
	s.Equal("NGN", w.Currency)
	s.True(w.TotalRealBalance().IsZero())

	_, err = s.svc.CreateWallet(context.Background(), CreateWalletDTO{UserId: 101, Username: "again"})
	s.True(errors.Is(err, ErrWalletExists), "got %v", err)
}

func (s *WalletServiceSuite) TestCreateWalletWithBonus() {
	w, err := s.svc.CreateWallet(context.Background(), CreateWalletDTO{UserId: 7, Username: "lucky", Role: "agent", Bonus: dec("50")})
	s.Require().NoError(err)
	s.Equal(models.RoleAgent, w.Role)
	s.True(w.VirtualBalance.Equal(dec("50")))

	entries, err := ledger.EntriesForUser(context.Background(), s.db, 7)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(models.CashVirtual, entries[0].CashType)
	s.Equal("Registration bonus", entries[0].Description)
}

func (s *WalletServiceSuite) TestCreateWalletValidation() {
	cases := []CreateWalletDTO{
		{Username: "nobody"},
		{UserId: 1},
		{UserId: 1, Username: "x", Role: "SUPERUSER"},
		{UserId: 1, Username: "x", Bonus: dec("-1")},
	}
	for _, c := range cases {
		_, err := s.svc.CreateWallet(context.Background(), c)
		s.True(errors.Is(err, ErrInvalidRequest), "%+v: %v", c, err)
	}
}

func (s *WalletServiceSuite) TestGetBalance() {
	_, err := s.svc.CreateWallet(context.Background(), CreateWalletDTO{UserId: 5, Username: "bal"})
	s.Require().NoError(err)
	for _, req := range []ledger.Request{
		{UserId: 5, CashType: models.CashReal, Category: ledger.CategoryGameWin, Amount: dec("80")},
		{UserId: 5, CashType: models.CashReal, Category: ledger.CategoryCashback, Amount: dec("20")},
		{UserId: 5, CashType: models.CashReal, Category: ledger.CategoryWithdrawalRequest, Amount: dec("30")},
	} {
		_, err := s.processor.Process(context.Background(), req)
		s.Require().NoError(err)
	}

	b, err := s.svc.GetBalance(context.Background(), 5)
	s.Require().NoError(err)
	s.True(b.RealBalance.Equal(dec("70")))
	s.True(b.RealBalanceWithdrawable.Equal(dec("50")))
	s.True(b.RealBalanceNonWithdrawable.Equal(dec("20")))
	s.True(b.PendingWithdrawals.Equal(dec("30")))

	_, err = s.svc.GetBalance(context.Background(), 404)
	s.True(errors.Is(err, ledger.ErrWalletNotFound))
}

func (s *WalletServiceSuite) TestGetUserTransactions() {
	_, err := s.svc.CreateWallet(context.Background(), CreateWalletDTO{UserId: 9, Username: "hist"})
	s.Require().NoError(err)
	for i := 0; i < 3; i++ {
		_, err := s.processor.Process(context.Background(), ledger.Request{UserId: 9, CashType: models.CashReal, Category: ledger.CategoryGameWin, Amount: dec("1")})
		s.Require().NoError(err)
	}

	res, err := s.svc.GetUserTransactions(context.Background(), UserTransactionDTO{UserId: 9, Limit: 2})
	s.Require().NoError(err)
	s.EqualValues(3, res.Count)
	s.Equal(1, res.CurrentPage)
	s.Equal(2, res.NextPage)
	s.Equal(2, res.LastPage)
	s.Len(res.Data, 2)

	res, err = s.svc.GetUserTransactions(context.Background(), UserTransactionDTO{UserId: 9, Category: "cashback"})
	s.Require().NoError(err)
	s.EqualValues(0, res.Count)

	_, err = s.svc.GetUserTransactions(context.Background(), UserTransactionDTO{UserId: 9, StartDate: "yesterday"})
	s.True(errors.Is(err, ErrInvalidRequest))
	_, err = s.svc.GetUserTransactions(context.Background(), UserTransactionDTO{UserId: 9, Category: "jackpot"})
	s.True(errors.Is(err, ledger.ErrUnsupportedCategory))
	_, err = s.svc.GetUserTransactions(context.Background(), UserTransactionDTO{UserId: 9, CashType: "bonus"})
	s.True(errors.Is(err, ledger.ErrInvalidCashType))
}

func (s *WalletServiceSuite) TestTransactionDateFilterIsInclusive() {
	f, err := UserTransactionDTO{StartDate: "2025-01-01", EndDate: "2025-01-31"}.Filter()
	s.Require().NoError(err)
	s.Equal("2025-01-01T00:00:00Z", f.From.Format("2006-01-02T15:04:05Z07:00"))
	s.Equal(31, f.To.Day())
	s.Equal(23, f.To.Hour())
}

func TestWalletService(t *testing.T) {
	suite.Run(t, new(WalletServiceSuite))
}
