package settle

import "errors"

var (
	// ErrNotAuthorized indicates the caller is not the trusted operator.
	ErrNotAuthorized = errors.New("settle: caller is not the operator")
	// ErrArrayLengthMismatch indicates the account and claim slices differ
	// in length.
	ErrArrayLengthMismatch = errors.New("settle: accounts and claims must match")
	// ErrMinPriceTooLow indicates the batch floor undercuts a participating
	// account's stored minimum price.
	ErrMinPriceTooLow = errors.New("settle: price floor below account minimum")
	// ErrMultipleOwners indicates an account without an explicit recipient
	// has more than one controlling identity.
	ErrMultipleOwners = errors.New("settle: account has multiple controllers and no recipient")
	// ErrEmptyBatch indicates the batch claims sum to zero.
	ErrEmptyBatch = errors.New("settle: batch total is zero")
	// ErrOverflow indicates the aggregate claim amount left the supported
	// amount domain.
	ErrOverflow = errors.New("settle: aggregate claim amount out of range")
	// ErrInvalidToken indicates an empty token symbol was supplied.
	ErrInvalidToken = errors.New("settle: token symbol required")
	// ErrInvalidAmount indicates a claim with a negative amount.
	ErrInvalidAmount = errors.New("settle: claim amount must not be negative")
	// ErrInvalidAccount indicates a zero account identifier in the batch.
	ErrInvalidAccount = errors.New("settle: account must not be zero")

	errNilState = errors.New("settle: engine dependencies not configured")
)
