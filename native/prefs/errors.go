package prefs

import "errors"

var (
	// ErrArrayLengthMismatch indicates the token and price slices differ in
	// length.
	ErrArrayLengthMismatch = errors.New("prefs: token and price arrays must match")
	// ErrNotAuthorized indicates the caller may not set preferences for the
	// account.
	ErrNotAuthorized = errors.New("prefs: caller not authorized for account")
	// ErrMultipleOwners indicates the account has several controlling
	// identities and must set preferences itself.
	ErrMultipleOwners = errors.New("prefs: account has multiple controllers")
	// ErrInvalidAccount indicates a zero account identifier was supplied.
	ErrInvalidAccount = errors.New("prefs: account must not be zero")
	// ErrInvalidToken indicates an empty token symbol was supplied.
	ErrInvalidToken = errors.New("prefs: token symbol required")
	// ErrNegativePrice indicates a negative minimum price was supplied.
	ErrNegativePrice = errors.New("prefs: min price must not be negative")

	errNilState    = errors.New("prefs: state not configured")
	errNilResolver = errors.New("prefs: ownership resolver not configured")
)
