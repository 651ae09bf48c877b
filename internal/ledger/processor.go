package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-service/internal/models"
	"ledger-service/pkg/common"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Counterparty is the paying side of a peer transfer.
type Counterparty struct {
	UserId int
	// Role overrides the role stored on the payer's wallet when set.
	Role models.Role
}

// Request describes one balance mutation.
type Request struct {
	UserId         int
	CashType       models.CashType
	Category       Category
	Amount         decimal.Decimal
	ReferenceIndex *int64
	ReferenceType  string
	ReferenceId    string
	Counterparty   *Counterparty
	IdempotencyKey string
	Description    string
}

type Result struct {
	// Balance is the requesting user's new total for the request's cash type.
	Balance decimal.Decimal
	Wallet  models.Wallet
	Entry   models.LedgerEntry
	// Entries holds every entry written, the payer leg first for transfers.
	Entries []models.LedgerEntry
}

// Processor is the only code path that writes wallets and ledger entries.
type Processor struct {
	DB        *gorm.DB
	Rates     CommissionRates
	Publisher Publisher
	Logger    *zap.Logger
	locks     *userLocks
}

func NewProcessor(db *gorm.DB, rates CommissionRates, publisher Publisher, logger *zap.Logger) *Processor {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{
		DB:        db,
		Rates:     rates.WithDefaults(),
		Publisher: publisher,
		Logger:    logger,
		locks:     newUserLocks(),
	}
}

// Process validates req, applies its category rule and appends the ledger
// entry, all inside one database transaction guarded by the user's lock.
// Once started the mutation is not abandoned when ctx is cancelled.
func (p *Processor) Process(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	fam, err := p.validate(req)
	if err != nil {
		p.observe(req.Category, err, start)
		return Result{}, err
	}

	ids := []int{req.UserId}
	if fam == FamilyDeposit {
		ids = append(ids, req.Counterparty.UserId)
	}

	var res Result
	err = p.withLock(ids, func() error {
		return p.DB.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
			var txErr error
			res, txErr = p.apply(tx, fam, req)
			return txErr
		})
	})

	err = classify(err)
	p.observe(req.Category, err, start)
	if err != nil {
		p.logFailure(req, err)
		return Result{}, err
	}

	p.Logger.Info("ledger mutation committed",
		zap.Int("user_id", req.UserId),
		zap.String("category", string(req.Category)),
		zap.String("cash_type", string(req.CashType)),
		zap.String("amount", req.Amount.String()),
		zap.Int("entry_id", res.Entry.ID),
		zap.String("balance", res.Balance.String()),
	)
	p.publish(ctx, res.Entries)
	return res, nil
}

// withLock runs fn holding the locks of userIDs. The locks are released even
// if fn panics.
func (p *Processor) withLock(userIDs []int, fn func() error) error {
	unlock := p.locks.lock(userIDs...)
	defer unlock()
	return fn()
}

func (p *Processor) validate(req Request) (Family, error) {
	fam, ok := req.Category.Family()
	if !ok {
		return familyUnknown, fmt.Errorf("%w: %q", ErrUnsupportedCategory, req.Category)
	}
	if !req.CashType.Valid() {
		return fam, fmt.Errorf("%w: %q", ErrInvalidCashType, req.CashType)
	}
	if !req.Amount.IsPositive() {
		return fam, fmt.Errorf("%w: %s must be greater than zero", ErrInvalidAmount, req.Amount)
	}
	if !req.Amount.Equal(req.Amount.Round(p.Rates.Scale)) {
		return fam, fmt.Errorf("%w: %s has more than %d decimal places", ErrInvalidAmount, req.Amount, p.Rates.Scale)
	}
	if req.UserId <= 0 {
		return fam, fmt.Errorf("%w: user %d", ErrWalletNotFound, req.UserId)
	}

	switch fam {
	case FamilyWithdrawalRequest, FamilyWithdrawalRejected:
		if req.CashType != models.CashReal {
			return fam, fmt.Errorf("%w: %s requires REAL cash", ErrInvalidCashType, req.Category)
		}
	case FamilyDeposit:
		if req.Counterparty == nil || req.Counterparty.UserId <= 0 || req.Counterparty.UserId == req.UserId {
			return fam, fmt.Errorf("%w: deposit needs a payer other than the receiver", ErrMissingCounterparty)
		}
	}
	return fam, nil
}

func (p *Processor) apply(tx *gorm.DB, fam Family, req Request) (Result, error) {
	if req.IdempotencyKey != "" {
		var n int64
		if err := tx.Model(&models.LedgerEntry{}).Where("idempotency_key = ?", req.IdempotencyKey).Count(&n).Error; err != nil {
			return Result{}, persistence("check idempotency key", err)
		}
		if n > 0 {
			return Result{}, fmt.Errorf("%w: key %q already applied", ErrDuplicateRequest, req.IdempotencyKey)
		}
	}

	trxNo := common.GenerateTrxNo()
	if fam == FamilyDeposit {
		return p.applyDeposit(tx, req, trxNo)
	}

	wallets, err := lockWallets(tx, req.UserId)
	if err != nil {
		return Result{}, err
	}
	wallet := wallets[req.UserId]

	before := wallet.Total(req.CashType)
	direction, status, meta, err := applyRule(fam, &wallet, req.CashType, req.Amount)
	if err != nil {
		return Result{}, fmt.Errorf("user %d: %w", req.UserId, err)
	}
	if err := saveWallet(tx, wallet); err != nil {
		return Result{}, err
	}

	entry := models.LedgerEntry{
		TransactionNo:   trxNo,
		UserId:          wallet.UserId,
		CashType:        req.CashType,
		Direction:       direction,
		Category:        string(req.Category),
		Amount:          req.Amount,
		PreviousBalance: before,
		NewBalance:      wallet.Total(req.CashType),
		ReferenceType:   req.ReferenceType,
		ReferenceIndex:  req.ReferenceIndex,
		ReferenceId:     req.ReferenceId,
		Status:          status,
		Metadata:        meta,
		Description:     req.Description,
		IdempotencyKey:  optionalKey(req.IdempotencyKey),
	}
	if err := insertEntry(tx, &entry); err != nil {
		return Result{}, err
	}

	return Result{
		Balance: entry.NewBalance,
		Wallet:  wallet,
		Entry:   entry,
		Entries: []models.LedgerEntry{entry},
	}, nil
}

// applyDeposit moves cash from the payer to the receiver. The payer is
// debited the gross amount and the receiver credited the amount net of
// commission.
func (p *Processor) applyDeposit(tx *gorm.DB, req Request, trxNo string) (Result, error) {
	payerID := req.Counterparty.UserId
	wallets, err := lockWallets(tx, req.UserId, payerID)
	if err != nil {
		return Result{}, err
	}
	receiver, payer := wallets[req.UserId], wallets[payerID]

	role := req.Counterparty.Role
	if role == "" {
		role = payer.Role
	}

	payerBefore := payer.Total(req.CashType)
	debitMeta, err := debit(&payer, req.CashType, req.Amount)
	if err != nil {
		return Result{}, fmt.Errorf("payer %d: %w", payerID, err)
	}

	agentCut, adminCut, net := p.Rates.ComputeDepositCommission(req.Amount, role, req.CashType)
	receiverBefore := receiver.Total(req.CashType)
	pool := credit(&receiver, req.CashType, net, poolNonWithdrawable)

	if err := saveWallet(tx, payer); err != nil {
		return Result{}, err
	}
	if err := saveWallet(tx, receiver); err != nil {
		return Result{}, err
	}

	debitMeta["receiver_user_id"] = receiver.UserId
	payerEntry := models.LedgerEntry{
		TransactionNo:   trxNo,
		UserId:          payerID,
		CashType:        req.CashType,
		Direction:       models.DirectionDebit,
		Category:        string(req.Category),
		Amount:          req.Amount,
		PreviousBalance: payerBefore,
		NewBalance:      payer.Total(req.CashType),
		ReferenceType:   req.ReferenceType,
		ReferenceIndex:  req.ReferenceIndex,
		ReferenceId:     req.ReferenceId,
		Status:          models.StatusCompleted,
		Metadata:        debitMeta,
		Description:     req.Description,
	}
	receiverEntry := models.LedgerEntry{
		TransactionNo:   trxNo,
		UserId:          receiver.UserId,
		CashType:        req.CashType,
		Direction:       models.DirectionCredit,
		Category:        string(req.Category),
		Amount:          net,
		PreviousBalance: receiverBefore,
		NewBalance:      receiver.Total(req.CashType),
		ReferenceType:   req.ReferenceType,
		ReferenceIndex:  req.ReferenceIndex,
		ReferenceId:     req.ReferenceId,
		Status:          models.StatusCompleted,
		Metadata: models.Metadata{
			"pool":          string(pool),
			"gross_amount":  req.Amount.String(),
			"agent_cut":     agentCut.String(),
			"admin_cut":     adminCut.String(),
			"payer_user_id": payerID,
			"payer_role":    string(role),
		},
		Description:    req.Description,
		IdempotencyKey: optionalKey(req.IdempotencyKey),
	}
	if err := insertEntry(tx, &payerEntry); err != nil {
		return Result{}, err
	}
	if err := insertEntry(tx, &receiverEntry); err != nil {
		return Result{}, err
	}

	return Result{
		Balance: receiverEntry.NewBalance,
		Wallet:  receiver,
		Entry:   receiverEntry,
		Entries: []models.LedgerEntry{payerEntry, receiverEntry},
	}, nil
}

type pool string

const (
	poolVirtual         pool = "virtual"
	poolWithdrawable    pool = "withdrawable"
	poolNonWithdrawable pool = "non_withdrawable"
)

// applyRule mutates w according to the family's balance rule. Transfers touch
// two wallets and go through applyDeposit instead.
func applyRule(fam Family, w *models.Wallet, cashType models.CashType, amount decimal.Decimal) (models.Direction, models.EntryStatus, models.Metadata, error) {
	switch fam {
	case FamilyStake:
		meta, err := debit(w, cashType, amount)
		return models.DirectionDebit, models.StatusCompleted, meta, err

	case FamilyWin:
		to := credit(w, cashType, amount, poolWithdrawable)
		return models.DirectionCredit, models.StatusCompleted, models.Metadata{"pool": string(to)}, nil

	case FamilyEarned, FamilyPurchase, FamilyRefund:
		to := credit(w, cashType, amount, poolNonWithdrawable)
		return models.DirectionCredit, models.StatusCompleted, models.Metadata{"pool": string(to)}, nil

	case FamilyWithdrawalRequest:
		if w.RealBalanceWithdrawable.LessThan(amount) {
			return "", "", nil, fmt.Errorf("%w: requested %s, withdrawable %s", ErrInsufficientWithdrawable, amount, w.RealBalanceWithdrawable)
		}
		w.RealBalanceWithdrawable = w.RealBalanceWithdrawable.Sub(amount)
		w.PendingWithdrawals = w.PendingWithdrawals.Add(amount)
		return models.DirectionPendingDebit, models.StatusPending, models.Metadata{"pool": string(poolWithdrawable)}, nil

	case FamilyWithdrawalRejected:
		if w.PendingWithdrawals.LessThan(amount) {
			return "", "", nil, fmt.Errorf("%w: pending withdrawals %s cannot release %s", ErrInvalidStateTransition, w.PendingWithdrawals, amount)
		}
		w.RealBalanceWithdrawable = w.RealBalanceWithdrawable.Add(amount)
		w.PendingWithdrawals = w.PendingWithdrawals.Sub(amount)
		return models.DirectionCredit, models.StatusCompleted, models.Metadata{"pool": string(poolWithdrawable)}, nil
	}
	return "", "", nil, fmt.Errorf("%w: family %s", ErrUnsupportedCategory, fam)
}

func debit(w *models.Wallet, cashType models.CashType, amount decimal.Decimal) (models.Metadata, error) {
	if cashType == models.CashVirtual {
		if w.VirtualBalance.LessThan(amount) {
			return nil, fmt.Errorf("%w: requested %s, virtual %s", ErrInsufficientBalance, amount, w.VirtualBalance)
		}
		w.VirtualBalance = w.VirtualBalance.Sub(amount)
		return models.Metadata{"pool": string(poolVirtual)}, nil
	}

	total := w.TotalRealBalance()
	if total.LessThan(amount) {
		return nil, fmt.Errorf("%w: requested %s, available %s", ErrInsufficientBalance, amount, total)
	}
	fromNonWithdrawable, fromWithdrawable, remaining := DeductRealCashWithPriority(*w, amount)
	if remaining.IsPositive() {
		return nil, fmt.Errorf("%w: %s short after both pools", ErrInsufficientBalance, remaining)
	}
	w.RealBalanceNonWithdrawable = w.RealBalanceNonWithdrawable.Sub(fromNonWithdrawable)
	w.RealBalanceWithdrawable = w.RealBalanceWithdrawable.Sub(fromWithdrawable)
	return models.Metadata{
		"from_non_withdrawable": fromNonWithdrawable.String(),
		"from_withdrawable":     fromWithdrawable.String(),
	}, nil
}

func credit(w *models.Wallet, cashType models.CashType, amount decimal.Decimal, realPool pool) pool {
	if cashType == models.CashVirtual {
		w.VirtualBalance = w.VirtualBalance.Add(amount)
		return poolVirtual
	}
	if realPool == poolWithdrawable {
		w.RealBalanceWithdrawable = w.RealBalanceWithdrawable.Add(amount)
		return poolWithdrawable
	}
	w.RealBalanceNonWithdrawable = w.RealBalanceNonWithdrawable.Add(amount)
	return poolNonWithdrawable
}

// lockWallets reads the wallets of userIDs with row locks taken in ascending
// user id order.
func lockWallets(tx *gorm.DB, userIDs ...int) (map[int]models.Wallet, error) {
	var wallets []models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC").
		Find(&wallets).Error
	if err != nil {
		return nil, persistence("lock wallets", err)
	}

	out := make(map[int]models.Wallet, len(wallets))
	for _, w := range wallets {
		out[w.UserId] = w
	}
	for _, id := range userIDs {
		if _, ok := out[id]; !ok {
			return nil, fmt.Errorf("%w: user %d", ErrWalletNotFound, id)
		}
	}
	return out, nil
}

func saveWallet(tx *gorm.DB, w models.Wallet) error {
	if !w.Valid() {
		return fmt.Errorf("%w: wallet of user %d would go negative", ErrInsufficientBalance, w.UserId)
	}
	err := tx.Model(&models.Wallet{}).Where("id = ?", w.ID).Updates(map[string]interface{}{
		"virtual_balance":               w.VirtualBalance,
		"real_balance_withdrawable":     w.RealBalanceWithdrawable,
		"real_balance_non_withdrawable": w.RealBalanceNonWithdrawable,
		"pending_withdrawals":           w.PendingWithdrawals,
	}).Error
	if err != nil {
		return persistence("save wallet", err)
	}
	return nil
}

func insertEntry(tx *gorm.DB, e *models.LedgerEntry) error {
	if err := tx.Create(e).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: key already applied", ErrDuplicateRequest)
		}
		return persistence("insert ledger entry", err)
	}
	return nil
}

func optionalKey(key string) *string {
	if key == "" {
		return nil
	}
	return &key
}

func (p *Processor) publish(ctx context.Context, entries []models.LedgerEntry) {
	ctx = context.WithoutCancel(ctx)
	for _, e := range entries {
		if err := p.Publisher.PublishEntryCommitted(ctx, EventFromEntry(e)); err != nil {
			publishFailuresTotal.Inc()
			p.Logger.Error("publish entry committed",
				zap.Int("entry_id", e.ID),
				zap.Int("user_id", e.UserId),
				zap.Error(err),
			)
		}
	}
}

func (p *Processor) observe(c Category, err error, start time.Time) {
	label := string(c)
	if _, ok := c.Family(); !ok {
		label = "unknown"
	}
	mutationsTotal.WithLabelValues(label, resultLabel(err)).Inc()
	mutationDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
}

func (p *Processor) logFailure(req Request, err error) {
	fields := []zap.Field{
		zap.Int("user_id", req.UserId),
		zap.String("category", string(req.Category)),
		zap.String("amount", req.Amount.String()),
		zap.Error(err),
	}
	if errors.Is(err, ErrPersistence) {
		p.Logger.Error("ledger mutation failed", fields...)
		return
	}
	p.Logger.Warn("ledger mutation rejected", fields...)
}
