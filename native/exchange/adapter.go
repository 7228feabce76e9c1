package exchange

import (
	"errors"
	"math/big"
)

var (
	// ErrSlippageExceeded indicates the venue returned less than the floor
	// implied minimum output.
	ErrSlippageExceeded = errors.New("exchange: output below price floor")
	// ErrDeadlineExpired indicates the encoded route deadline has passed.
	ErrDeadlineExpired = errors.New("exchange: route deadline expired")
	// ErrInvalidPath indicates the encoded route does not connect the
	// requested token pair.
	ErrInvalidPath = errors.New("exchange: route path invalid")
	// ErrInvalidParams indicates the route parameters could not be decoded.
	ErrInvalidParams = errors.New("exchange: route params invalid")
	// ErrInvalidAmount indicates a non-positive input amount.
	ErrInvalidAmount = errors.New("exchange: amount must be positive")
)

// Adapter converts an input-token amount into an output-token amount no worse
// than the caller-supplied floor. Concrete strategies differ only in how the
// opaque params are interpreted and how the floor maps onto the venue's
// native minimum-output parameter.
type Adapter interface {
	Swap(tokenIn, tokenOut string, amountIn, priceFloor *big.Int, params []byte) (*big.Int, error)
}

// Venue is the external execution venue a router trades against.
type Venue interface {
	SwapExactIn(path []string, amountIn, minOut *big.Int, deadline uint64) (*big.Int, error)
	Allowance(token string) (*big.Int, error)
	Approve(token string, amount *big.Int) error
	Precision(token string) (*big.Int, error)
}
