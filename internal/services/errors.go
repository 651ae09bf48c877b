package services

import "errors"

var (
	ErrWalletExists     = errors.New("wallet already exists")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)
