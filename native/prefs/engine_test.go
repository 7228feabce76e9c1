package prefs

import (
	"errors"
	"math/big"
	"testing"

	"pointsale/core/events"
)

type prefKey struct {
	account [20]byte
	token   string
}

type mockState struct {
	minPrices  map[prefKey]*big.Int
	recipients map[[20]byte][20]byte
}

func newMockState() *mockState {
	return &mockState{
		minPrices:  make(map[prefKey]*big.Int),
		recipients: make(map[[20]byte][20]byte),
	}
}

func (m *mockState) PrefsMinPrice(account [20]byte, token string) (*big.Int, bool, error) {
	price, ok := m.minPrices[prefKey{account, token}]
	if !ok {
		return nil, false, nil
	}
	return new(big.Int).Set(price), true, nil
}

func (m *mockState) PrefsSetMinPrice(account [20]byte, token string, price *big.Int) error {
	m.minPrices[prefKey{account, token}] = new(big.Int).Set(price)
	return nil
}

func (m *mockState) PrefsRecipient(account [20]byte) ([20]byte, bool, error) {
	recipient, ok := m.recipients[account]
	return recipient, ok, nil
}

func (m *mockState) PrefsSetRecipient(account [20]byte, recipient *[20]byte) error {
	if recipient == nil {
		delete(m.recipients, account)
		return nil
	}
	m.recipients[account] = *recipient
	return nil
}

type mockResolver struct {
	controllers map[[20]byte][][20]byte
}

func (m *mockResolver) IsController(account, identity [20]byte) (bool, error) {
	for _, c := range m.controllers[account] {
		if c == identity {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockResolver) Controllers(account [20]byte) ([][20]byte, error) {
	return m.controllers[account], nil
}

type capturingEmitter struct {
	events []events.Event
}

func (c *capturingEmitter) Emit(evt events.Event) { c.events = append(c.events, evt) }

func addr(index byte) [20]byte {
	var out [20]byte
	out[19] = index
	return out
}

func newTestEngine(state State, resolver OwnershipResolver) *Engine {
	engine := NewEngine()
	engine.SetState(state)
	engine.SetResolver(resolver)
	return engine
}

func TestSetPreferencesRoundTrip(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, &mockResolver{})
	account := addr(1)
	recipient := addr(2)

	err := engine.SetPreferences(account, account, &recipient, []string{"pts"}, []*big.Int{big.NewInt(5_000)})
	if err != nil {
		t.Fatalf("set preferences: %v", err)
	}
	price, err := engine.MinPrice(account, "PTS")
	if err != nil {
		t.Fatalf("min price: %v", err)
	}
	if price.Cmp(big.NewInt(5_000)) != 0 {
		t.Fatalf("expected min price 5000, got %s", price)
	}
	got, err := engine.Recipient(account)
	if err != nil {
		t.Fatalf("recipient: %v", err)
	}
	if got == nil || *got != recipient {
		t.Fatalf("unexpected recipient: %v", got)
	}
}

func TestSetPreferencesKeepsUnlistedTokens(t *testing.T) {
	state := newMockState()
	engine := newTestEngine(state, &mockResolver{})
	account := addr(1)

	if err := engine.SetPreferences(account, account, nil, []string{"PTS", "BONUS"}, []*big.Int{big.NewInt(10), big.NewInt(20)}); err != nil {
		t.Fatalf("seed preferences: %v", err)
	}
	if err := engine.SetPreferences(account, account, nil, []string{"PTS"}, []*big.Int{big.NewInt(99)}); err != nil {
		t.Fatalf("overwrite preferences: %v", err)
	}
	price, err := engine.MinPrice(account, "BONUS")
	if err != nil {
		t.Fatalf("min price: %v", err)
	}
	if price.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("expected untouched token to keep price 20, got %s", price)
	}
}

func TestSetPreferencesLengthMismatch(t *testing.T) {
	engine := newTestEngine(newMockState(), &mockResolver{})
	account := addr(1)
	err := engine.SetPreferences(account, account, nil, []string{"PTS", "BONUS"}, []*big.Int{big.NewInt(1)})
	if !errors.Is(err, ErrArrayLengthMismatch) {
		t.Fatalf("expected ErrArrayLengthMismatch, got %v", err)
	}
}

func TestSetPreferencesSoleControllerAllowed(t *testing.T) {
	account := addr(1)
	controller := addr(9)
	resolver := &mockResolver{controllers: map[[20]byte][][20]byte{account: {controller}}}
	engine := newTestEngine(newMockState(), resolver)
	if err := engine.SetPreferences(controller, account, nil, []string{"PTS"}, []*big.Int{big.NewInt(1)}); err != nil {
		t.Fatalf("sole controller should be authorized: %v", err)
	}
}

func TestSetPreferencesMultipleOwnersRejected(t *testing.T) {
	account := addr(1)
	resolver := &mockResolver{controllers: map[[20]byte][][20]byte{account: {addr(8), addr(9)}}}
	engine := newTestEngine(newMockState(), resolver)
	err := engine.SetPreferences(addr(8), account, nil, []string{"PTS"}, []*big.Int{big.NewInt(1)})
	if !errors.Is(err, ErrMultipleOwners) {
		t.Fatalf("expected ErrMultipleOwners, got %v", err)
	}
	// The account itself may always act.
	if err := engine.SetPreferences(account, account, nil, []string{"PTS"}, []*big.Int{big.NewInt(1)}); err != nil {
		t.Fatalf("self call should succeed: %v", err)
	}
}

func TestSetPreferencesStrangerRejected(t *testing.T) {
	account := addr(1)
	resolver := &mockResolver{controllers: map[[20]byte][][20]byte{account: {addr(9)}}}
	engine := newTestEngine(newMockState(), resolver)
	err := engine.SetPreferences(addr(7), account, nil, []string{"PTS"}, []*big.Int{big.NewInt(1)})
	if !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("expected ErrNotAuthorized, got %v", err)
	}
}

func TestSetPreferencesValidation(t *testing.T) {
	engine := newTestEngine(newMockState(), &mockResolver{})
	account := addr(1)
	if err := engine.SetPreferences(account, [20]byte{}, nil, nil, nil); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("expected ErrInvalidAccount, got %v", err)
	}
	if err := engine.SetPreferences(account, account, nil, []string{"  "}, []*big.Int{big.NewInt(1)}); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
	if err := engine.SetPreferences(account, account, nil, []string{"PTS"}, []*big.Int{big.NewInt(-1)}); !errors.Is(err, ErrNegativePrice) {
		t.Fatalf("expected ErrNegativePrice, got %v", err)
	}
}

func TestMinPriceDefaultsToZero(t *testing.T) {
	engine := newTestEngine(newMockState(), &mockResolver{})
	price, err := engine.MinPrice(addr(1), "PTS")
	if err != nil {
		t.Fatalf("min price: %v", err)
	}
	if price.Sign() != 0 {
		t.Fatalf("expected zero default, got %s", price)
	}
	// Repeated reads without writes stay identical.
	again, err := engine.MinPrice(addr(1), "PTS")
	if err != nil {
		t.Fatalf("min price: %v", err)
	}
	if price.Cmp(again) != 0 {
		t.Fatalf("reads diverged: %s vs %s", price, again)
	}
}

func TestSetPreferencesEmitsEvent(t *testing.T) {
	emitter := &capturingEmitter{}
	engine := newTestEngine(newMockState(), &mockResolver{})
	engine.SetEmitter(emitter)
	account := addr(1)
	if err := engine.SetPreferences(account, account, nil, []string{"PTS"}, []*big.Int{big.NewInt(3)}); err != nil {
		t.Fatalf("set preferences: %v", err)
	}
	if len(emitter.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(emitter.events))
	}
	if emitter.events[0].EventType() != events.TypePreferencesUpdated {
		t.Fatalf("unexpected event type %q", emitter.events[0].EventType())
	}
}
