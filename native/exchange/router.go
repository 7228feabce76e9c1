package exchange

import (
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"
)

var errNilVenue = errors.New("exchange: venue not configured")

// maxAllowance is the value the router raises token allowances to. Raising
// once and reusing keeps approval traffic idempotent across settlements.
var maxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Router executes multi-hop swaps against a single venue. It converts the
// caller's price floor into the venue's native minimum-output parameter by
// scaling with the output token's unit precision.
type Router struct {
	venue Venue
	nowFn func() int64

	mu       sync.Mutex
	approved map[string]bool
}

// NewRouter constructs a router bound to the supplied venue.
func NewRouter(venue Venue) *Router {
	return &Router{
		venue:    venue,
		nowFn:    func() int64 { return time.Now().Unix() },
		approved: make(map[string]bool),
	}
}

// SetNowFunc overrides the time source, primarily used in tests.
func (r *Router) SetNowFunc(now func() int64) {
	if r == nil {
		return
	}
	if now == nil {
		r.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	r.nowFn = now
}

func (r *Router) now() int64 {
	if r == nil || r.nowFn == nil {
		return time.Now().Unix()
	}
	return r.nowFn()
}

// ensureAllowance raises the venue allowance for the token once. Already
// bootstrapped tokens are skipped without touching the venue.
func (r *Router) ensureAllowance(token string, amountIn *big.Int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.approved[token] {
		return nil
	}
	allowance, err := r.venue.Allowance(token)
	if err != nil {
		return err
	}
	if allowance != nil && allowance.Cmp(amountIn) >= 0 {
		r.approved[token] = true
		return nil
	}
	if err := r.venue.Approve(token, new(big.Int).Set(maxAllowance)); err != nil {
		return err
	}
	r.approved[token] = true
	return nil
}

// Swap implements the Adapter interface. The returned amount is guaranteed to
// be at least priceFloor * amountIn / outputPrecision or the call fails.
func (r *Router) Swap(tokenIn, tokenOut string, amountIn, priceFloor *big.Int, params []byte) (*big.Int, error) {
	if r == nil || r.venue == nil {
		return nil, errNilVenue
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}
	route, err := DecodeRouteParams(params)
	if err != nil {
		return nil, err
	}
	if len(route.Path) < 2 {
		return nil, ErrInvalidPath
	}
	path := make([]string, len(route.Path))
	for i, hop := range route.Path {
		path[i] = strings.ToUpper(strings.TrimSpace(hop))
	}
	if path[0] != strings.ToUpper(strings.TrimSpace(tokenIn)) ||
		path[len(path)-1] != strings.ToUpper(strings.TrimSpace(tokenOut)) {
		return nil, ErrInvalidPath
	}
	if route.Deadline > 0 && int64(route.Deadline) < r.now() {
		return nil, ErrDeadlineExpired
	}
	if err := r.ensureAllowance(path[0], amountIn); err != nil {
		return nil, err
	}
	precision, err := r.venue.Precision(path[len(path)-1])
	if err != nil {
		return nil, err
	}
	minOut := big.NewInt(0)
	if priceFloor != nil && priceFloor.Sign() > 0 && precision != nil && precision.Sign() > 0 {
		minOut = new(big.Int).Mul(priceFloor, amountIn)
		minOut = minOut.Div(minOut, precision)
	}
	amountOut, err := r.venue.SwapExactIn(path, new(big.Int).Set(amountIn), minOut, route.Deadline)
	if err != nil {
		return nil, err
	}
	if amountOut == nil || amountOut.Cmp(minOut) < 0 {
		return nil, ErrSlippageExceeded
	}
	return new(big.Int).Set(amountOut), nil
}
