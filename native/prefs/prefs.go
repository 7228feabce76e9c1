package prefs

import (
	"math/big"
	"strings"
)

// State describes the persistence the preference engine needs from the
// surrounding state implementation. Min prices are stored per (account,
// token) pair; the recipient is stored per account. Both report existence
// explicitly so callers can distinguish "unset" from an explicit zero value.
type State interface {
	PrefsMinPrice(account [20]byte, token string) (*big.Int, bool, error)
	PrefsSetMinPrice(account [20]byte, token string, price *big.Int) error
	PrefsRecipient(account [20]byte) ([20]byte, bool, error)
	PrefsSetRecipient(account [20]byte, recipient *[20]byte) error
}

// OwnershipResolver answers who controls an account. It is an external
// collaborator; the engine only consumes it to resolve default recipients and
// to authorize preference updates.
type OwnershipResolver interface {
	IsController(account, identity [20]byte) (bool, error)
	Controllers(account [20]byte) ([][20]byte, error)
}

// NormalizeToken canonicalises token symbols for consistent lookups.
func NormalizeToken(token string) string {
	return strings.ToUpper(strings.TrimSpace(token))
}
