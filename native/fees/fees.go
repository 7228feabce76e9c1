package fees

import (
	"errors"
	"math/big"
	"sync"

	"pointsale/core/events"
	"pointsale/core/types"
	nativecommon "pointsale/native/common"
)

// RateBpsDenominator is the fixed precision used for fee rates.
const RateBpsDenominator = 10_000

var (
	// ErrFeeTooLarge indicates an attempt to raise the rate above its
	// configured maximum.
	ErrFeeTooLarge = errors.New("fees: rate above configured maximum")
	// ErrNotAuthorized indicates a caller other than governance attempted a
	// mutation.
	ErrNotAuthorized = errors.New("fees: caller is not governance")
	// ErrInvalidMaxRate indicates a maximum above the bps denominator.
	ErrInvalidMaxRate = errors.New("fees: max rate above denominator")

	errNilController = errors.New("fees: controller not configured")
)

type feesEvent struct {
	evt *types.Event
}

func (e feesEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e feesEvent) Event() *types.Event { return e.evt }

// State persists the current fee rate between settlements.
type State interface {
	FeeRate() (uint32, bool, error)
	SetFeeRate(rateBps uint32) error
}

// Controller holds the current settlement fee rate and its governance bound.
// The maximum is fixed at construction time; only the rate itself moves, and
// only through the guarded setter.
type Controller struct {
	mu         sync.RWMutex
	state      State
	governance [20]byte
	maxBps     uint32
	emitter    events.Emitter
	pauses     nativecommon.PauseView
}

// NewController constructs a fee controller bound to the supplied state.
func NewController(state State, governance [20]byte, maxBps uint32) (*Controller, error) {
	if maxBps > RateBpsDenominator {
		return nil, ErrInvalidMaxRate
	}
	return &Controller{
		state:      state,
		governance: governance,
		maxBps:     maxBps,
		emitter:    events.NoopEmitter{},
	}, nil
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op
// implementation.
func (c *Controller) SetEmitter(emitter events.Emitter) {
	if c == nil {
		return
	}
	if emitter == nil {
		c.emitter = events.NoopEmitter{}
		return
	}
	c.emitter = emitter
}

// SetPauses configures the pause switchboard guarding mutations.
func (c *Controller) SetPauses(p nativecommon.PauseView) {
	if c == nil {
		return
	}
	c.pauses = p
}

// MaxRateBps returns the governance-configured upper bound.
func (c *Controller) MaxRateBps() uint32 {
	if c == nil {
		return 0
	}
	return c.maxBps
}

// Rate returns the current fee rate in basis points. An unset rate reads as
// zero.
func (c *Controller) Rate() (uint32, error) {
	if c == nil || c.state == nil {
		return 0, errNilController
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	rate, ok, err := c.state.FeeRate()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return rate, nil
}

// SetRate updates the fee rate. Only governance may call it and the new rate
// must not exceed the configured maximum; the stored rate is untouched on
// failure.
func (c *Controller) SetRate(caller [20]byte, newBps uint32) error {
	if c == nil || c.state == nil {
		return errNilController
	}
	if err := nativecommon.Guard(c.pauses, nativecommon.ModuleFees); err != nil {
		return err
	}
	if caller != c.governance {
		return ErrNotAuthorized
	}
	if newBps > c.maxBps {
		return ErrFeeTooLarge
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	oldBps, _, err := c.state.FeeRate()
	if err != nil {
		return err
	}
	if err := c.state.SetFeeRate(newBps); err != nil {
		return err
	}
	c.emit(events.FeeRateUpdated{
		Caller: caller,
		OldBps: oldBps,
		NewBps: newBps,
		MaxBps: c.maxBps,
	}.Event())
	return nil
}

func (c *Controller) emit(evt *types.Event) {
	if c == nil || c.emitter == nil || evt == nil {
		return
	}
	c.emitter.Emit(feesEvent{evt: evt})
}

// Apply computes the fee owed on the supplied gross amount at the given rate
// using floor division, returning the fee and the remaining net amount.
func Apply(amount *big.Int, rateBps uint32) (fee, net *big.Int) {
	fee = big.NewInt(0)
	if amount == nil || amount.Sign() <= 0 {
		return fee, big.NewInt(0)
	}
	net = new(big.Int).Set(amount)
	if rateBps == 0 {
		return fee, net
	}
	fee = new(big.Int).Mul(net, big.NewInt(int64(rateBps)))
	fee = fee.Div(fee, big.NewInt(RateBpsDenominator))
	if fee.Sign() <= 0 {
		return big.NewInt(0), net
	}
	if fee.Cmp(net) >= 0 {
		return new(big.Int).Set(net), big.NewInt(0)
	}
	net = net.Sub(net, fee)
	return fee, net
}
