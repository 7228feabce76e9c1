package events

import (
	"strconv"

	"pointsale/core/types"
)

const (
	// TypeFeeRateUpdated marks a governance change to the settlement fee
	// rate.
	TypeFeeRateUpdated = "fees.rate_updated"
)

// FeeRateUpdated is emitted when governance adjusts the fee rate.
type FeeRateUpdated struct {
	Caller  [20]byte
	OldBps  uint32
	NewBps  uint32
	MaxBps  uint32
}

func (FeeRateUpdated) EventType() string { return TypeFeeRateUpdated }

// Event renders the change as a generic attribute event.
func (e FeeRateUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeFeeRateUpdated,
		Attributes: map[string]string{
			"caller": formatAddress(e.Caller),
			"oldBps": strconv.FormatUint(uint64(e.OldBps), 10),
			"newBps": strconv.FormatUint(uint64(e.NewBps), 10),
			"maxBps": strconv.FormatUint(uint64(e.MaxBps), 10),
		},
	}
}
