package events

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/core/types"
)

const (
	// TypeTransfer is emitted for every asset balance movement.
	TypeTransfer = "bank.transfer"
	// TypeMint is emitted when new units of an asset are created.
	TypeMint = "bank.mint"
	// TypeAssetRegistered is emitted when an asset joins the registry.
	TypeAssetRegistered = "bank.asset.registered"
)

type Transfer struct {
	Asset  common.Address
	From   common.Address
	To     common.Address
	Amount *big.Int
}

func (Transfer) EventType() string { return TypeTransfer }

func (e Transfer) Event() *types.Event {
	return &types.Event{Type: TypeTransfer, Attributes: map[string]string{
		"asset":  formatAddress(e.Asset),
		"from":   formatAddress(e.From),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}

type Mint struct {
	Asset  common.Address
	To     common.Address
	Amount *big.Int
}

func (Mint) EventType() string { return TypeMint }

func (e Mint) Event() *types.Event {
	return &types.Event{Type: TypeMint, Attributes: map[string]string{
		"asset":  formatAddress(e.Asset),
		"to":     formatAddress(e.To),
		"amount": formatAmount(e.Amount),
	}}
}

type AssetRegistered struct {
	Asset    common.Address
	Symbol   string
	Decimals uint8
}

func (AssetRegistered) EventType() string { return TypeAssetRegistered }

func (e AssetRegistered) Event() *types.Event {
	return &types.Event{Type: TypeAssetRegistered, Attributes: map[string]string{
		"asset":    formatAddress(e.Asset),
		"symbol":   e.Symbol,
		"decimals": strconv.Itoa(int(e.Decimals)),
	}}
}
