package storage

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
)

var errNilDatabase = errors.New("storage: database not configured")

// Manager exposes the persisted settlement state on top of a raw key-value
// database. It implements the state interfaces of the prefs and fees
// packages. Records keep an explicit Set flag so "unset" stays
// distinguishable from an explicitly stored zero value.
type Manager struct {
	db Database
}

// NewManager constructs a state manager over the supplied database.
func NewManager(db Database) *Manager {
	return &Manager{db: db}
}

type storedMinPrice struct {
	Price *big.Int
}

type storedRecipient struct {
	Set  bool
	Addr [20]byte
}

type storedFeeRate struct {
	RateBps uint32
}

// PrefsMinPrice returns the stored minimum price for the (account, token)
// pair, reporting whether one was ever written.
func (m *Manager) PrefsMinPrice(account [20]byte, token string) (*big.Int, bool, error) {
	if m == nil || m.db == nil {
		return nil, false, errNilDatabase
	}
	raw, ok, err := m.db.Get(prefsMinPriceKey(account, token))
	if err != nil || !ok {
		return nil, false, err
	}
	var record storedMinPrice
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return nil, false, fmt.Errorf("storage: decode min price: %w", err)
	}
	if record.Price == nil {
		record.Price = big.NewInt(0)
	}
	return record.Price, true, nil
}

// PrefsSetMinPrice overwrites the minimum price for the (account, token)
// pair.
func (m *Manager) PrefsSetMinPrice(account [20]byte, token string, price *big.Int) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	if price == nil {
		price = big.NewInt(0)
	}
	raw, err := rlp.EncodeToBytes(&storedMinPrice{Price: price})
	if err != nil {
		return fmt.Errorf("storage: encode min price: %w", err)
	}
	return m.db.Put(prefsMinPriceKey(account, token), raw)
}

// PrefsRecipient returns the explicit proceeds recipient for the account,
// reporting whether one is currently set.
func (m *Manager) PrefsRecipient(account [20]byte) ([20]byte, bool, error) {
	if m == nil || m.db == nil {
		return [20]byte{}, false, errNilDatabase
	}
	raw, ok, err := m.db.Get(prefsRecipientKey(account))
	if err != nil || !ok {
		return [20]byte{}, false, err
	}
	var record storedRecipient
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return [20]byte{}, false, fmt.Errorf("storage: decode recipient: %w", err)
	}
	if !record.Set {
		return [20]byte{}, false, nil
	}
	return record.Addr, true, nil
}

// PrefsSetRecipient overwrites the account's recipient. A nil recipient
// records the explicit "pay the resolved default owner" state.
func (m *Manager) PrefsSetRecipient(account [20]byte, recipient *[20]byte) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	record := storedRecipient{}
	if recipient != nil {
		record.Set = true
		record.Addr = *recipient
	}
	raw, err := rlp.EncodeToBytes(&record)
	if err != nil {
		return fmt.Errorf("storage: encode recipient: %w", err)
	}
	return m.db.Put(prefsRecipientKey(account), raw)
}

// FeeRate returns the persisted fee rate, reporting whether one was ever
// written.
func (m *Manager) FeeRate() (uint32, bool, error) {
	if m == nil || m.db == nil {
		return 0, false, errNilDatabase
	}
	raw, ok, err := m.db.Get(feesRateKey)
	if err != nil || !ok {
		return 0, false, err
	}
	var record storedFeeRate
	if err := rlp.DecodeBytes(raw, &record); err != nil {
		return 0, false, fmt.Errorf("storage: decode fee rate: %w", err)
	}
	return record.RateBps, true, nil
}

// SetFeeRate persists the fee rate.
func (m *Manager) SetFeeRate(rateBps uint32) error {
	if m == nil || m.db == nil {
		return errNilDatabase
	}
	raw, err := rlp.EncodeToBytes(&storedFeeRate{RateBps: rateBps})
	if err != nil {
		return fmt.Errorf("storage: encode fee rate: %w", err)
	}
	return m.db.Put(feesRateKey, raw)
}
