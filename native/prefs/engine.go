package prefs

import (
	"math/big"

	"pointsale/core/events"
	"pointsale/core/types"
	nativecommon "pointsale/native/common"
)

type prefsEvent struct {
	evt *types.Event
}

func (e prefsEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e prefsEvent) Event() *types.Event { return e.evt }

// Engine wires preference reads and guarded writes with external state, the
// ownership resolver, and event emitters.
type Engine struct {
	state    State
	resolver OwnershipResolver
	emitter  events.Emitter
	pauses   nativecommon.PauseView
}

// NewEngine creates a preference engine with a no-op emitter. Callers can
// override the emitter via SetEmitter.
func NewEngine() *Engine {
	return &Engine{emitter: events.NoopEmitter{}}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// SetResolver configures the ownership resolver consulted for authorization
// and default recipients.
func (e *Engine) SetResolver(resolver OwnershipResolver) { e.resolver = resolver }

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses configures the pause switchboard guarding mutations.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) emit(evt *types.Event) {
	if e == nil || e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(prefsEvent{evt: evt})
}

// Authorize reports whether the caller may set preferences for the account.
// The caller qualifies when it is the account itself or the account's sole
// controlling identity. Accounts with several controllers must act for
// themselves so the batch settlement default recipient stays unambiguous.
func (e *Engine) Authorize(caller, account [20]byte) error {
	if e == nil || e.resolver == nil {
		return errNilResolver
	}
	if caller == account {
		return nil
	}
	controllers, err := e.resolver.Controllers(account)
	if err != nil {
		return err
	}
	switch len(controllers) {
	case 0:
		return ErrNotAuthorized
	case 1:
		if controllers[0] == caller {
			return nil
		}
		return ErrNotAuthorized
	default:
		return ErrMultipleOwners
	}
}

// SetPreferences overwrites the account's proceeds recipient and the minimum
// price for each listed point token. Tokens that are not listed keep their
// prior value; preferences are never deleted, only overwritten.
func (e *Engine) SetPreferences(caller, account [20]byte, recipient *[20]byte, tokens []string, minPrices []*big.Int) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, nativecommon.ModulePrefs); err != nil {
		return err
	}
	if account == ([20]byte{}) {
		return ErrInvalidAccount
	}
	if len(tokens) != len(minPrices) {
		return ErrArrayLengthMismatch
	}
	normalized := make([]string, len(tokens))
	for i, token := range tokens {
		symbol := NormalizeToken(token)
		if symbol == "" {
			return ErrInvalidToken
		}
		normalized[i] = symbol
	}
	for _, price := range minPrices {
		if price != nil && price.Sign() < 0 {
			return ErrNegativePrice
		}
	}
	if err := e.Authorize(caller, account); err != nil {
		return err
	}
	if err := e.state.PrefsSetRecipient(account, recipient); err != nil {
		return err
	}
	for i, symbol := range normalized {
		price := minPrices[i]
		if price == nil {
			price = big.NewInt(0)
		}
		if err := e.state.PrefsSetMinPrice(account, symbol, new(big.Int).Set(price)); err != nil {
			return err
		}
	}
	e.emit(events.PreferencesUpdated{
		Account:   account,
		Caller:    caller,
		Recipient: recipient,
		Tokens:    normalized,
		MinPrices: minPrices,
	}.Event())
	return nil
}

// MinPrice returns the stored minimum price for the (account, token) pair.
// An unset preference reads as zero, meaning any price is acceptable.
func (e *Engine) MinPrice(account [20]byte, token string) (*big.Int, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	symbol := NormalizeToken(token)
	if symbol == "" {
		return nil, ErrInvalidToken
	}
	price, ok, err := e.state.PrefsMinPrice(account, symbol)
	if err != nil {
		return nil, err
	}
	if !ok || price == nil {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(price), nil
}

// Recipient returns the explicit proceeds recipient for the account, or nil
// when the account relies on its resolved default owner.
func (e *Engine) Recipient(account [20]byte) (*[20]byte, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	recipient, ok, err := e.state.PrefsRecipient(account)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	out := recipient
	return &out, nil
}
