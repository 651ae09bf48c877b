package ledger

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ledger-service/internal/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	referenceLedgerEntry  = "ledger_entry"
	metaWithdrawalEntryID = "withdrawal_entry_id"
)

// checkTransition allows only PENDING -> COMPLETED and PENDING -> REJECTED.
func checkTransition(from, to models.EntryStatus) error {
	if from == models.StatusPending && (to == models.StatusCompleted || to == models.StatusRejected) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidStateTransition, from, to)
}

// ApproveWithdrawal marks a pending withdrawal request as settled and releases
// its hold on pendingWithdrawals. Spendable pools are unchanged since the
// request already removed the cash from the withdrawable pool.
func (p *Processor) ApproveWithdrawal(ctx context.Context, entryID int) (models.LedgerEntry, error) {
	owner, err := p.entryOwner(ctx, entryID)
	if err != nil {
		withdrawalTransitionsTotal.WithLabelValues(string(models.StatusCompleted), resultLabel(err)).Inc()
		return models.LedgerEntry{}, err
	}

	var entry models.LedgerEntry
	err = p.withLock([]int{owner}, func() error {
		return p.DB.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
			wallets, err := lockWallets(tx, owner)
			if err != nil {
				return err
			}
			wallet := wallets[owner]

			e, err := lockWithdrawalRequest(tx, entryID, models.StatusCompleted)
			if err != nil {
				return err
			}
			if wallet.PendingWithdrawals.LessThan(e.Amount) {
				return fmt.Errorf("%w: pending withdrawals %s cannot release %s", ErrInvalidStateTransition, wallet.PendingWithdrawals, e.Amount)
			}
			wallet.PendingWithdrawals = wallet.PendingWithdrawals.Sub(e.Amount)
			if err := saveWallet(tx, wallet); err != nil {
				return err
			}
			if err := setStatus(tx, &e, models.StatusCompleted); err != nil {
				return err
			}
			entry = e
			return nil
		})
	})

	err = classify(err)
	withdrawalTransitionsTotal.WithLabelValues(string(models.StatusCompleted), resultLabel(err)).Inc()
	if err != nil {
		p.Logger.Warn("withdrawal approval failed", zap.Int("entry_id", entryID), zap.Error(err))
		return models.LedgerEntry{}, err
	}
	p.Logger.Info("withdrawal approved",
		zap.Int("entry_id", entry.ID),
		zap.Int("user_id", entry.UserId),
		zap.String("amount", entry.Amount.String()),
	)
	return entry, nil
}

// RejectWithdrawal refunds a pending withdrawal request to the withdrawable
// pool, appends the WITHDRAWAL_REJECTED credit and marks the request REJECTED.
func (p *Processor) RejectWithdrawal(ctx context.Context, entryID int, reason string) (Result, error) {
	owner, err := p.entryOwner(ctx, entryID)
	if err != nil {
		withdrawalTransitionsTotal.WithLabelValues(string(models.StatusRejected), resultLabel(err)).Inc()
		return Result{}, err
	}

	var res Result
	err = p.withLock([]int{owner}, func() error {
		return p.DB.WithContext(context.WithoutCancel(ctx)).Transaction(func(tx *gorm.DB) error {
			wallets, err := lockWallets(tx, owner)
			if err != nil {
				return err
			}
			wallet := wallets[owner]

			request, err := lockWithdrawalRequest(tx, entryID, models.StatusRejected)
			if err != nil {
				return err
			}

			before := wallet.TotalRealBalance()
			direction, status, meta, err := applyRule(FamilyWithdrawalRejected, &wallet, models.CashReal, request.Amount)
			if err != nil {
				return err
			}
			if err := saveWallet(tx, wallet); err != nil {
				return err
			}

			meta[metaWithdrawalEntryID] = request.ID
			if reason != "" {
				meta["reason"] = reason
			}
			index := int64(request.ID)
			refund := models.LedgerEntry{
				TransactionNo:   request.TransactionNo,
				UserId:          owner,
				CashType:        models.CashReal,
				Direction:       direction,
				Category:        string(CategoryWithdrawalRejected),
				Amount:          request.Amount,
				PreviousBalance: before,
				NewBalance:      wallet.TotalRealBalance(),
				ReferenceType:   referenceLedgerEntry,
				ReferenceIndex:  &index,
				ReferenceId:     request.ReferenceId,
				Status:          status,
				Metadata:        meta,
				Description:     reason,
				IdempotencyKey:  optionalKey("withdrawal-rejection:" + strconv.Itoa(request.ID)),
			}
			if err := insertEntry(tx, &refund); err != nil {
				return err
			}
			if err := setStatus(tx, &request, models.StatusRejected); err != nil {
				return err
			}

			res = Result{
				Balance: refund.NewBalance,
				Wallet:  wallet,
				Entry:   refund,
				Entries: []models.LedgerEntry{refund},
			}
			return nil
		})
	})

	err = classify(err)
	withdrawalTransitionsTotal.WithLabelValues(string(models.StatusRejected), resultLabel(err)).Inc()
	if err != nil {
		p.Logger.Warn("withdrawal rejection failed", zap.Int("entry_id", entryID), zap.Error(err))
		return Result{}, err
	}
	p.Logger.Info("withdrawal rejected",
		zap.Int("entry_id", entryID),
		zap.Int("refund_entry_id", res.Entry.ID),
		zap.Int("user_id", owner),
	)
	p.publish(ctx, res.Entries)
	return res, nil
}

func (p *Processor) entryOwner(ctx context.Context, entryID int) (int, error) {
	var e models.LedgerEntry
	err := p.DB.WithContext(ctx).Select("id", "user_id").First(&e, entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, fmt.Errorf("%w: %d", ErrEntryNotFound, entryID)
	}
	if err != nil {
		return 0, persistence("load ledger entry", err)
	}
	return e.UserId, nil
}

func lockWithdrawalRequest(tx *gorm.DB, entryID int, target models.EntryStatus) (models.LedgerEntry, error) {
	var e models.LedgerEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&e, entryID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return e, fmt.Errorf("%w: %d", ErrEntryNotFound, entryID)
	}
	if err != nil {
		return e, persistence("lock ledger entry", err)
	}
	if Category(e.Category) != CategoryWithdrawalRequest || e.Direction != models.DirectionPendingDebit {
		return e, fmt.Errorf("%w: entry %d is a %s entry, not a withdrawal request", ErrInvalidStateTransition, e.ID, e.Category)
	}
	if err := checkTransition(e.Status, target); err != nil {
		return e, fmt.Errorf("entry %d: %w", e.ID, err)
	}
	return e, nil
}

func setStatus(tx *gorm.DB, e *models.LedgerEntry, to models.EntryStatus) error {
	res := tx.Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", e.ID, e.Status).
		Update("status", to)
	if res.Error != nil {
		return persistence("update entry status", res.Error)
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: entry %d changed concurrently", ErrInvalidStateTransition, e.ID)
	}
	e.Status = to
	return nil
}
