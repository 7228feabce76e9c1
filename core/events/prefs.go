package events

import (
	"math/big"
	"strconv"
	"strings"

	"pointsale/core/types"
)

const (
	// TypePreferencesUpdated marks a change to an account's sale
	// preferences (recipient and/or per-token minimum prices).
	TypePreferencesUpdated = "prefs.updated"
)

// PreferencesUpdated is emitted whenever an authorized caller overwrites an
// account's sale preferences.
type PreferencesUpdated struct {
	Account   [20]byte
	Caller    [20]byte
	Recipient *[20]byte
	Tokens    []string
	MinPrices []*big.Int
}

func (PreferencesUpdated) EventType() string { return TypePreferencesUpdated }

// Event renders the update as a generic attribute event for off-chain
// observers.
func (e PreferencesUpdated) Event() *types.Event {
	attrs := map[string]string{
		"account": formatAddress(e.Account),
		"caller":  formatAddress(e.Caller),
		"tokens":  strconv.Itoa(len(e.Tokens)),
	}
	if e.Recipient != nil {
		attrs["recipient"] = formatAddress(*e.Recipient)
	}
	names := make([]string, 0, len(e.Tokens))
	prices := make([]string, 0, len(e.MinPrices))
	for _, token := range e.Tokens {
		names = append(names, normalizeToken(token))
	}
	for _, price := range e.MinPrices {
		prices = append(prices, formatAmount(price))
	}
	if len(names) > 0 {
		attrs["tokenList"] = strings.Join(names, ",")
		attrs["minPrices"] = strings.Join(prices, ",")
	}
	return &types.Event{Type: TypePreferencesUpdated, Attributes: attrs}
}
