package ledger

import (
	"errors"
	"fmt"
)

var (
	ErrWalletNotFound           = errors.New("wallet not found")
	ErrEntryNotFound            = errors.New("ledger entry not found")
	ErrInsufficientBalance      = errors.New("insufficient balance")
	ErrInsufficientWithdrawable = errors.New("insufficient withdrawable balance")
	ErrInvalidCashType          = errors.New("invalid cash type")
	ErrUnsupportedCategory      = errors.New("unsupported category")
	ErrInvalidStateTransition   = errors.New("invalid state transition")
	ErrInvalidAmount            = errors.New("invalid amount")
	ErrMissingCounterparty      = errors.New("missing counterparty")
	ErrDuplicateRequest         = errors.New("duplicate request")
	ErrPersistence              = errors.New("persistence failure")
)

var domainErrors = []error{
	ErrWalletNotFound,
	ErrEntryNotFound,
	ErrInsufficientBalance,
	ErrInsufficientWithdrawable,
	ErrInvalidCashType,
	ErrUnsupportedCategory,
	ErrInvalidStateTransition,
	ErrInvalidAmount,
	ErrMissingCounterparty,
	ErrDuplicateRequest,
	ErrPersistence,
}

// IsDomainError reports whether err is one of the engine's typed rejections
// as opposed to an unexpected failure.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func persistence(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, ErrPersistence, err)
}

// classify makes sure anything escaping a database transaction is either a
// domain error or wrapped as a persistence failure.
func classify(err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	return persistence("commit", err)
}
