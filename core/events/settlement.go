package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"pointsale/core/types"
)

const (
	// TypeSettlementCompleted marks a fully executed batch sale.
	TypeSettlementCompleted = "settlement.completed"
)

// SettlementCompleted is emitted once per successful batch settlement.
type SettlementCompleted struct {
	ID          [32]byte
	PointToken  string
	OutputToken string
	Accounts    int
	TotalAmount *big.Int
	AmountOut   *big.Int
	FeeAmount   *big.Int
}

func (SettlementCompleted) EventType() string { return TypeSettlementCompleted }

// Event renders the settlement summary as a generic attribute event.
func (e SettlementCompleted) Event() *types.Event {
	return &types.Event{
		Type: TypeSettlementCompleted,
		Attributes: map[string]string{
			"id":          hex.EncodeToString(e.ID[:]),
			"pointToken":  normalizeToken(e.PointToken),
			"outputToken": normalizeToken(e.OutputToken),
			"accounts":    strconv.Itoa(e.Accounts),
			"totalAmount": formatAmount(e.TotalAmount),
			"amountOut":   formatAmount(e.AmountOut),
			"feeAmount":   formatAmount(e.FeeAmount),
		},
	}
}
