package exchange

import (
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/rlp"
)

// RouteParams describes a single-venue multi-hop route. Path lists token
// symbols from input to output; Deadline is a unix timestamp after which the
// route must not execute.
type RouteParams struct {
	Path     []string
	Deadline uint64
}

// EncodeRouteParams serialises route parameters into the opaque byte form
// consumed by the router.
func EncodeRouteParams(params RouteParams) ([]byte, error) {
	encoded, err := rlp.EncodeToBytes(&params)
	if err != nil {
		return nil, fmt.Errorf("exchange: encode route params: %w", err)
	}
	return encoded, nil
}

// DecodeRouteParams parses the opaque byte form back into route parameters.
// Deadlines beyond the unix-seconds domain are rejected so they cannot wrap
// when compared against the clock.
func DecodeRouteParams(raw []byte) (RouteParams, error) {
	var params RouteParams
	if err := rlp.DecodeBytes(raw, &params); err != nil {
		return RouteParams{}, ErrInvalidParams
	}
	if params.Deadline > math.MaxInt64 {
		return RouteParams{}, ErrInvalidParams
	}
	return params, nil
}
