package events

import (
	"math/big"
	"strings"

	ethcommon "github.com/ethereum/go-ethereum/common"
)

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func formatAddress(addr [20]byte) string {
	return ethcommon.BytesToAddress(addr[:]).Hex()
}

func normalizeToken(token string) string {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}
