package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ledger-service/internal/ledger"
	"ledger-service/internal/models"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultReconcileBatch = 200

type ReconciliationService struct {
	DB        *gorm.DB
	BatchSize int
	Logger    *zap.Logger
}

func NewReconciliationService(db *gorm.DB, logger *zap.Logger) *ReconciliationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationService{DB: db, BatchSize: defaultReconcileBatch, Logger: logger}
}

// ReconcileUser checks one wallet against its full ledger history.
func (s *ReconciliationService) ReconcileUser(ctx context.Context, userID int) (ledger.Report, error) {
	var report ledger.Report
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		report, err = reconcileLocked(ctx, tx, userID)
		return err
	})
	return report, err
}

// reconcileLocked reads the wallet under its row lock so no mutation can
// commit between the wallet read and the history read.
func reconcileLocked(ctx context.Context, tx *gorm.DB, userID int) (ledger.Report, error) {
	var wallet models.Wallet
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ledger.Report{}, fmt.Errorf("%w: user %d", ledger.ErrWalletNotFound, userID)
		}
		return ledger.Report{}, fmt.Errorf("load wallet: %w: %v", ledger.ErrPersistence, err)
	}
	entries, err := ledger.EntriesForUser(ctx, tx, userID)
	if err != nil {
		return ledger.Report{}, err
	}
	return ledger.Reconcile(wallet, entries), nil
}

type ReconciliationSummary struct {
	Wallets    int
	Mismatched []ledger.Report
}

// ReconcileAll sweeps every wallet in batches. Mismatches are logged and
// returned; they are never corrected automatically.
func (s *ReconciliationService) ReconcileAll(ctx context.Context) (ReconciliationSummary, error) {
	var summary ReconciliationSummary
	batch := s.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}

	// Only ids are paged here; each wallet is re-read under its lock.
	var wallets []models.Wallet
	res := s.DB.WithContext(ctx).Select("id", "user_id").FindInBatches(&wallets, batch, func(tx *gorm.DB, _ int) error {
		for _, w := range wallets {
			report, err := s.ReconcileUser(ctx, w.UserId)
			if errors.Is(err, ledger.ErrWalletNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			summary.Wallets++
			if report.Balanced() {
				continue
			}
			summary.Mismatched = append(summary.Mismatched, report)
			for _, d := range report.Discrepancies {
				s.Logger.Error("ledger mismatch",
					zap.Int("user_id", w.UserId),
					zap.String("discrepancy", d.String()),
				)
			}
		}
		return nil
	})

	reconciliationLastRun.Set(float64(time.Now().Unix()))
	if res.Error != nil {
		reconciliationRunsTotal.WithLabelValues("error").Inc()
		return summary, fmt.Errorf("reconcile wallets: %w: %v", ledger.ErrPersistence, res.Error)
	}
	reconciliationMismatches.Set(float64(len(summary.Mismatched)))
	if len(summary.Mismatched) > 0 {
		reconciliationRunsTotal.WithLabelValues("mismatch").Inc()
	} else {
		reconciliationRunsTotal.WithLabelValues("ok").Inc()
	}
	return summary, nil
}

// StartScheduler runs ReconcileAll on the cron spec, e.g. "0 0 * * *" for
// daily at midnight. The caller stops the returned cron on shutdown.
func (s *ReconciliationService) StartScheduler(spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		s.Logger.Info("running scheduled reconciliation")
		summary, err := s.ReconcileAll(context.Background())
		if err != nil {
			s.Logger.Error("reconciliation failed", zap.Error(err))
			return
		}
		s.Logger.Info("reconciliation finished",
			zap.Int("wallets", summary.Wallets),
			zap.Int("mismatched", len(summary.Mismatched)),
		)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule reconciliation %q: %w", spec, err)
	}
	c.Start()
	s.Logger.Info("reconciliation scheduler started", zap.String("spec", spec))
	return c, nil
}
