package domain

import "errors"

var (
	ErrWalletUnavailable     = errors.New("wallet unavailable")
	ErrAuthorizationRejected = errors.New("account authorization rejected")
	ErrSessionNotConnected   = errors.New("no connected account")
	ErrTransactionFailed     = errors.New("transaction failed")
	ErrSubmissionNotFound    = errors.New("submission not found")
)
