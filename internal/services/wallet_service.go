package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"ledger-service/internal/ledger"
	"ledger-service/internal/models"
	"ledger-service/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type WalletService struct {
	DB       *gorm.DB
	Ledger   *ledger.Processor
	Currency string
	Logger   *zap.Logger
}

func NewWalletService(db *gorm.DB, processor *ledger.Processor, currency string, logger *zap.Logger) *WalletService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WalletService{DB: db, Ledger: processor, Currency: currency, Logger: logger}
}

type CreateWalletDTO struct {
	UserId   int             `json:"userId" binding:"required,gt=0"`
	Username string          `json:"username" binding:"required"`
	Role     models.Role     `json:"role"`
	Currency string          `json:"currency"`
	Bonus    decimal.Decimal `json:"bonus"`
}

// CreateWallet opens an empty wallet. A positive Bonus is granted as virtual
// cash through the ledger so the opening balance has an entry behind it.
func (s *WalletService) CreateWallet(ctx context.Context, data CreateWalletDTO) (models.Wallet, error) {
	if data.UserId <= 0 || strings.TrimSpace(data.Username) == "" {
		return models.Wallet{}, fmt.Errorf("%w: user id and username are required", ErrInvalidRequest)
	}
	role := models.Role(strings.ToUpper(string(data.Role)))
	switch role {
	case "":
		role = models.RoleUser
	case models.RoleUser, models.RoleAgent, models.RoleAdmin:
	default:
		return models.Wallet{}, fmt.Errorf("%w: unknown role %q", ErrInvalidRequest, data.Role)
	}
	if data.Bonus.IsNegative() {
		return models.Wallet{}, fmt.Errorf("%w: bonus must not be negative", ErrInvalidRequest)
	}
	currency := data.Currency
	if currency == "" {
		currency = s.Currency
	}

	wallet := models.Wallet{
		UserId:                     data.UserId,
		Username:                   data.Username,
		Role:                       role,
		VirtualBalance:             decimal.Zero,
		RealBalanceWithdrawable:    decimal.Zero,
		RealBalanceNonWithdrawable: decimal.Zero,
		PendingWithdrawals:         decimal.Zero,
		Currency:                   currency,
	}
	if err := s.DB.WithContext(ctx).Create(&wallet).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return models.Wallet{}, fmt.Errorf("%w: user %d", ErrWalletExists, data.UserId)
		}
		return models.Wallet{}, fmt.Errorf("create wallet: %w: %v", ledger.ErrPersistence, err)
	}
	s.Logger.Info("wallet created", zap.Int("user_id", wallet.UserId), zap.String("role", string(role)))

	if !data.Bonus.IsPositive() {
		return wallet, nil
	}
	res, err := s.Ledger.Process(ctx, ledger.Request{
		UserId:         wallet.UserId,
		CashType:       models.CashVirtual,
		Category:       ledger.CategoryPurchase,
		Amount:         data.Bonus,
		ReferenceType:  "registration",
		ReferenceId:    strconv.Itoa(wallet.UserId),
		IdempotencyKey: "registration-bonus:" + strconv.Itoa(wallet.UserId),
		Description:    "Registration bonus",
	})
	if err != nil {
		return wallet, fmt.Errorf("grant registration bonus: %w", err)
	}
	return res.Wallet, nil
}

func (s *WalletService) GetWallet(ctx context.Context, userID int) (models.Wallet, error) {
	var wallet models.Wallet
	err := s.DB.WithContext(ctx).Where("user_id = ?", userID).First(&wallet).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return wallet, fmt.Errorf("%w: user %d", ledger.ErrWalletNotFound, userID)
	}
	if err != nil {
		return wallet, fmt.Errorf("load wallet: %w: %v", ledger.ErrPersistence, err)
	}
	return wallet, nil
}

// Balance is the read model of a wallet returned to callers.
type Balance struct {
	UserId                     int             `json:"userId"`
	Username                   string          `json:"username"`
	Role                       models.Role     `json:"role"`
	Currency                   string          `json:"currency"`
	VirtualBalance             decimal.Decimal `json:"virtualBalance"`
	RealBalance                decimal.Decimal `json:"realBalance"`
	RealBalanceWithdrawable    decimal.Decimal `json:"realBalanceWithdrawable"`
	RealBalanceNonWithdrawable decimal.Decimal `json:"realBalanceNonWithdrawable"`
	PendingWithdrawals         decimal.Decimal `json:"pendingWithdrawals"`
}

func NewBalance(w models.Wallet) Balance {
	return Balance{
		UserId:                     w.UserId,
		Username:                   w.Username,
		Role:                       w.Role,
		Currency:                   w.Currency,
		VirtualBalance:             w.VirtualBalance,
		RealBalance:                w.TotalRealBalance(),
		RealBalanceWithdrawable:    w.RealBalanceWithdrawable,
		RealBalanceNonWithdrawable: w.RealBalanceNonWithdrawable,
		PendingWithdrawals:         w.PendingWithdrawals,
	}
}

func (s *WalletService) GetBalance(ctx context.Context, userID int) (Balance, error) {
	w, err := s.GetWallet(ctx, userID)
	if err != nil {
		return Balance{}, err
	}
	return NewBalance(w), nil
}

type UserTransactionDTO struct {
	UserId    int    `form:"userId"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Category  string `form:"category"`
	CashType  string `form:"cashType"`
	Status    string `form:"status"`
	Page      int    `form:"page"`
	Limit     int    `form:"limit"`
}

const dateLayout = "2006-01-02"

// Filter converts the query into a ledger filter. Dates are whole days, the
// end date inclusive.
func (d UserTransactionDTO) Filter() (ledger.Filter, error) {
	f := ledger.Filter{
		UserId:   d.UserId,
		CashType: models.CashType(strings.ToUpper(d.CashType)),
		Status:   models.EntryStatus(strings.ToUpper(d.Status)),
		Page:     d.Page,
		Limit:    d.Limit,
	}
	if f.CashType != "" && !f.CashType.Valid() {
		return f, fmt.Errorf("%w: %q", ledger.ErrInvalidCashType, d.CashType)
	}
	if d.Category != "" {
		c, err := ledger.ParseCategory(d.Category)
		if err != nil {
			return f, err
		}
		f.Category = c
	}
	if d.StartDate != "" {
		t, err := time.Parse(dateLayout, d.StartDate)
		if err != nil {
			return f, fmt.Errorf("%w: startDate %q", ErrInvalidRequest, d.StartDate)
		}
		f.From = t
	}
	if d.EndDate != "" {
		t, err := time.Parse(dateLayout, d.EndDate)
		if err != nil {
			return f, fmt.Errorf("%w: endDate %q", ErrInvalidRequest, d.EndDate)
		}
		f.To = t.Add(24*time.Hour - time.Nanosecond)
	}
	return f, nil
}

func (s *WalletService) GetUserTransactions(ctx context.Context, data UserTransactionDTO) (common.PaginationResult, error) {
	f, err := data.Filter()
	if err != nil {
		return common.PaginationResult{}, err
	}
	entries, total, err := ledger.ListEntries(ctx, s.DB, f)
	if err != nil {
		return common.PaginationResult{}, err
	}
	f = f.Normalize()
	return common.PaginateResponse(entries, total, f.Page, f.Limit, "Successful"), nil
}
