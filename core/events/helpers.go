package events

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

func formatAmount(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

func formatAddress(addr common.Address) string {
	return strings.ToLower(addr.Hex())
}
