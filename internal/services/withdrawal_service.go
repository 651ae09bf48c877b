package services

import (
	"context"
	"fmt"
	"strings"

	"ledger-service/internal/ledger"
	"ledger-service/internal/models"
	"ledger-service/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type WithdrawalSettings struct {
	MinimumWithdrawal decimal.Decimal
	MaximumWithdrawal decimal.Decimal
}

type WithdrawalService struct {
	DB       *gorm.DB
	Ledger   *ledger.Processor
	Settings WithdrawalSettings
	Logger   *zap.Logger
}

func NewWithdrawalService(db *gorm.DB, processor *ledger.Processor, settings WithdrawalSettings, logger *zap.Logger) *WithdrawalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WithdrawalService{DB: db, Ledger: processor, Settings: settings, Logger: logger}
}

type WithdrawRequestDTO struct {
	UserId         int             `json:"userId" binding:"required,gt=0"`
	Amount         decimal.Decimal `json:"amount"`
	AccountNumber  string          `json:"accountNumber"`
	AccountName    string          `json:"accountName"`
	BankCode       string          `json:"bankCode"`
	BankName       string          `json:"bankName"`
	IdempotencyKey string          `json:"idempotencyKey"`
}

// WithdrawalRequest is the result of a successful withdrawal request.
type WithdrawalRequest struct {
	EntryID        int             `json:"entryId"`
	WithdrawalCode string          `json:"withdrawalCode"`
	Amount         decimal.Decimal `json:"amount"`
	Balance        decimal.Decimal `json:"balance"`
	Withdrawable   decimal.Decimal `json:"withdrawable"`
	Pending        decimal.Decimal `json:"pendingWithdrawals"`
}

// RequestWithdrawal moves the amount from the withdrawable pool into pending
// withdrawals until an operator approves or rejects it.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, data WithdrawRequestDTO) (WithdrawalRequest, error) {
	if !data.Amount.IsPositive() {
		return WithdrawalRequest{}, fmt.Errorf("%w: %s must be greater than zero", ledger.ErrInvalidAmount, data.Amount)
	}
	if !s.Settings.MinimumWithdrawal.IsZero() && data.Amount.LessThan(s.Settings.MinimumWithdrawal) {
		return WithdrawalRequest{}, fmt.Errorf("%w: minimum withdrawable amount is %s", ledger.ErrInvalidAmount, s.Settings.MinimumWithdrawal)
	}
	if !s.Settings.MaximumWithdrawal.IsZero() && data.Amount.GreaterThan(s.Settings.MaximumWithdrawal) {
		return WithdrawalRequest{}, fmt.Errorf("%w: maximum withdrawable amount is %s", ledger.ErrInvalidAmount, s.Settings.MaximumWithdrawal)
	}

	code := common.GenerateTrxNo()
	res, err := s.Ledger.Process(ctx, ledger.Request{
		UserId:         data.UserId,
		CashType:       models.CashReal,
		Category:       ledger.CategoryWithdrawalRequest,
		Amount:         data.Amount,
		ReferenceType:  "withdrawal",
		ReferenceId:    code,
		IdempotencyKey: data.IdempotencyKey,
		Description:    payoutDescription(data),
	})
	if err != nil {
		return WithdrawalRequest{}, err
	}

	return WithdrawalRequest{
		EntryID:        res.Entry.ID,
		WithdrawalCode: code,
		Amount:         res.Entry.Amount,
		Balance:        res.Balance,
		Withdrawable:   res.Wallet.RealBalanceWithdrawable,
		Pending:        res.Wallet.PendingWithdrawals,
	}, nil
}

func payoutDescription(d WithdrawRequestDTO) string {
	if d.BankName == "" && d.AccountNumber == "" {
		return "Withdrawal request"
	}
	return strings.TrimSpace(fmt.Sprintf("Withdrawal to %s %s %s", d.BankName, maskAccount(d.AccountNumber), d.AccountName))
}

// maskAccount keeps the last four digits of an account number.
func maskAccount(account string) string {
	if len(account) <= 4 {
		return account
	}
	return strings.Repeat("*", len(account)-4) + account[len(account)-4:]
}

func (s *WithdrawalService) ApproveWithdrawal(ctx context.Context, entryID int) (models.LedgerEntry, error) {
	return s.Ledger.ApproveWithdrawal(ctx, entryID)
}

func (s *WithdrawalService) RejectWithdrawal(ctx context.Context, entryID int, reason string) (ledger.Result, error) {
	return s.Ledger.RejectWithdrawal(ctx, entryID, reason)
}

type ListWithdrawalRequestsDTO struct {
	UserId int    `form:"userId"`
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// ListWithdrawalRequests pages through withdrawal requests, pending ones by
// default.
func (s *WithdrawalService) ListWithdrawalRequests(ctx context.Context, data ListWithdrawalRequestsDTO) (common.PaginationResult, error) {
	status := models.EntryStatus(strings.ToUpper(data.Status))
	if status == "" {
		status = models.StatusPending
	}
	f := ledger.Filter{
		UserId:   data.UserId,
		Category: ledger.CategoryWithdrawalRequest,
		Status:   status,
		Page:     data.Page,
		Limit:    data.Limit,
	}
	entries, total, err := ledger.ListEntries(ctx, s.DB, f)
	if err != nil {
		return common.PaginationResult{}, err
	}
	f = f.Normalize()
	return common.PaginateResponse(entries, total, f.Page, f.Limit, "Successful"), nil
}
