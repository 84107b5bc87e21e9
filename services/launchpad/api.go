package launchpad

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/native/launch"
)

// Amounts cross the HTTP boundary as base-unit decimal strings and fractions
// as 1e18-scaled decimal strings.

// SaleView is the JSON form of a sale snapshot.
type SaleView struct {
	Asset                 string `json:"asset"`
	Issuer                string `json:"issuer"`
	Owner                 string `json:"owner"`
	Custody               string `json:"custody"`
	ReserveAsset          string `json:"reserveAsset"`
	SaleDecimals          uint8  `json:"saleDecimals"`
	Phase                 string `json:"phase"`
	PhaseOneStart         int64  `json:"phaseOneStart"`
	PhaseTwoStart         int64  `json:"phaseTwoStart"`
	PhaseThreeStart       int64  `json:"phaseThreeStart"`
	SaleAmount            string `json:"saleAmount"`
	IncentiveAmount       string `json:"incentiveAmount"`
	FloorPrice            string `json:"floorPrice"`
	MaxWithdrawPenalty    string `json:"maxWithdrawPenalty"`
	FixedWithdrawPenalty  string `json:"fixedWithdrawPenalty"`
	MaxUnstakedAllocation string `json:"maxUnstakedAllocation"`
	MaxStakedAllocation   string `json:"maxStakedAllocation"`
	UserTimelock          int64  `json:"userTimelock"`
	IssuerTimelock        int64  `json:"issuerTimelock"`
	TotalReserve          string `json:"totalReserve"`
	Participants          uint64 `json:"participants"`
	Stopped               bool   `json:"stopped"`
	Settled               bool   `json:"settled"`
	Pair                  string `json:"pair,omitempty"`
	PoolShares            string `json:"poolShares"`
	ReservePool           string `json:"reservePool"`
	SalePool              string `json:"salePool"`
	UserIncentives        string `json:"userIncentives"`
	IssuerRefund          string `json:"issuerRefund"`
	UserUnlockAt          int64  `json:"userUnlockAt,omitempty"`
	IssuerUnlockAt        int64  `json:"issuerUnlockAt,omitempty"`
}

// NewSaleView renders sale for clients.
func NewSaleView(sale *launch.Sale) SaleView {
	cfg, agg := sale.Config, sale.Aggregate
	view := SaleView{
		Asset:                 cfg.SaleAsset.Hex(),
		Issuer:                cfg.Issuer.Hex(),
		Owner:                 cfg.Owner.Hex(),
		Custody:               cfg.Custody.Hex(),
		ReserveAsset:          cfg.ReserveAsset.Hex(),
		SaleDecimals:          cfg.SaleDecimals,
		Phase:                 sale.Phase.String(),
		PhaseOneStart:         cfg.PhaseOneStart,
		PhaseTwoStart:         cfg.PhaseTwoStart(),
		PhaseThreeStart:       cfg.PhaseThreeStart(),
		SaleAmount:            amountString(cfg.SaleAmount),
		IncentiveAmount:       amountString(cfg.IncentiveAmount),
		FloorPrice:            amountString(cfg.FloorPrice),
		MaxWithdrawPenalty:    amountString(cfg.MaxWithdrawPenalty),
		FixedWithdrawPenalty:  amountString(cfg.FixedWithdrawPenalty),
		MaxUnstakedAllocation: amountString(cfg.MaxUnstakedAllocation),
		MaxStakedAllocation:   amountString(cfg.MaxStakedAllocation),
		UserTimelock:          cfg.UserTimelock,
		IssuerTimelock:        cfg.IssuerTimelock,
		TotalReserve:          amountString(agg.TotalReserve),
		Participants:          agg.Participants,
		Stopped:               agg.Stopped,
		Settled:               agg.Settled,
		PoolShares:            amountString(agg.PoolShares),
		ReservePool:           amountString(agg.ReservePool),
		SalePool:              amountString(agg.SalePool),
		UserIncentives:        amountString(agg.UserIncentives),
		IssuerRefund:          amountString(agg.IssuerRefund),
		UserUnlockAt:          sale.Timelocks.UserUnlockAt,
		IssuerUnlockAt:        sale.Timelocks.IssuerUnlockAt,
	}
	if agg.Pair != (common.Address{}) {
		view.Pair = agg.Pair.Hex()
	}
	return view
}

// ParticipantView is the JSON form of a participant position.
type ParticipantView struct {
	Address            string `json:"address"`
	Amount             string `json:"amount"`
	Frozen             string `json:"frozen"`
	IsIssuer           bool   `json:"isIssuer"`
	Staked             bool   `json:"staked"`
	MaxAllocation      string `json:"maxAllocation"`
	SharesClaimed      bool   `json:"sharesClaimed"`
	IncentivesClaimed  bool   `json:"incentivesClaimed"`
	EmergencyWithdrawn bool   `json:"emergencyWithdrawn"`
	PendingLiquidity   string `json:"pendingLiquidity"`
	PendingIncentives  string `json:"pendingIncentives"`
}

// NewParticipantView renders info for clients.
func NewParticipantView(info *launch.ParticipantInfo) ParticipantView {
	p := info.Participant
	return ParticipantView{
		Address:            p.Address.Hex(),
		Amount:             amountString(p.Amount),
		Frozen:             amountString(p.Frozen),
		IsIssuer:           info.IsIssuer,
		Staked:             info.Staked,
		MaxAllocation:      amountString(info.MaxAllocation),
		SharesClaimed:      p.SharesClaimed,
		IncentivesClaimed:  p.IncentivesClaimed,
		EmergencyWithdrawn: p.EmergencyWithdrawn,
		PendingLiquidity:   amountString(info.PendingLiquidity),
		PendingIncentives:  amountString(info.PendingIncentives),
	}
}

// SettlementView is the JSON form of the pool sizing.
type SettlementView struct {
	ReservePool    string `json:"reservePool"`
	SalePool       string `json:"salePool"`
	UserIncentives string `json:"userIncentives"`
	IssuerRefund   string `json:"issuerRefund"`
}

// AmountRequest carries a single amount.
type AmountRequest struct {
	Amount string `json:"amount"`
}

// AmountResponse reports a single paid or retained amount.
type AmountResponse struct {
	Amount string `json:"amount"`
}

// WithdrawResponse reports the penalty retained and the updated position.
type WithdrawResponse struct {
	Penalty     string          `json:"penalty"`
	Participant ParticipantView `json:"participant"`
}

// CreateSaleBody is the payload of POST /v1/sales.
type CreateSaleBody struct {
	Issuer                string `json:"issuer" yaml:"issuer"`
	SaleAsset             string `json:"saleAsset" yaml:"saleAsset"`
	PhaseOneStart         int64  `json:"phaseOneStart" yaml:"phaseOneStart"`
	TokenAmount           string `json:"tokenAmount" yaml:"tokenAmount"`
	IncentivesPercent     string `json:"incentivesPercent" yaml:"incentivesPercent"`
	FloorPrice            string `json:"floorPrice" yaml:"floorPrice"`
	MaxWithdrawPenalty    string `json:"maxWithdrawPenalty" yaml:"maxWithdrawPenalty"`
	FixedWithdrawPenalty  string `json:"fixedWithdrawPenalty" yaml:"fixedWithdrawPenalty"`
	MaxUnstakedAllocation string `json:"maxUnstakedAllocation" yaml:"maxUnstakedAllocation"`
	MaxStakedAllocation   string `json:"maxStakedAllocation" yaml:"maxStakedAllocation"`
	UserTimelock          int64  `json:"userTimelock" yaml:"userTimelock"`
	IssuerTimelock        int64  `json:"issuerTimelock" yaml:"issuerTimelock"`
}

// Request converts the body into the factory request.
func (b CreateSaleBody) Request() (launch.CreateSaleRequest, error) {
	req := launch.CreateSaleRequest{
		PhaseOneStart:  b.PhaseOneStart,
		UserTimelock:   b.UserTimelock,
		IssuerTimelock: b.IssuerTimelock,
	}
	var err error
	if req.Issuer, err = ParseAddress("issuer", b.Issuer); err != nil {
		return req, err
	}
	if req.SaleAsset, err = ParseAddress("saleAsset", b.SaleAsset); err != nil {
		return req, err
	}
	amounts := []struct {
		name string
		raw  string
		dst  **big.Int
	}{
		{"tokenAmount", b.TokenAmount, &req.TokenAmountIncludingIncentives},
		{"incentivesPercent", b.IncentivesPercent, &req.IncentivesPercent},
		{"floorPrice", b.FloorPrice, &req.FloorPrice},
		{"maxWithdrawPenalty", b.MaxWithdrawPenalty, &req.MaxWithdrawPenalty},
		{"fixedWithdrawPenalty", b.FixedWithdrawPenalty, &req.FixedWithdrawPenalty},
		{"maxUnstakedAllocation", b.MaxUnstakedAllocation, &req.MaxUnstakedAllocation},
		{"maxStakedAllocation", b.MaxStakedAllocation, &req.MaxStakedAllocation},
	}
	for _, a := range amounts {
		if *a.dst, err = ParseAmount(a.name, a.raw); err != nil {
			return req, err
		}
	}
	return req, nil
}

// RegisterAssetBody is the payload of POST /v1/assets.
type RegisterAssetBody struct {
	Address  string `json:"address"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// MintBody is the payload of POST /v1/assets/{asset}/mint.
type MintBody struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

// LockBody is the payload of POST /v1/votelock.
type LockBody struct {
	Amount   string `json:"amount"`
	UnlockAt int64  `json:"unlockAt"`
}

// LockView reports a vote-lock position.
type LockView struct {
	Owner    string `json:"owner"`
	Amount   string `json:"amount"`
	UnlockAt int64  `json:"unlockAt"`
}

// ParseAddress parses a hex address, wrapping failures in ErrBadRequest.
func ParseAddress(field, raw string) (common.Address, error) {
	trimmed := strings.TrimSpace(raw)
	if !common.IsHexAddress(trimmed) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", ErrBadRequest, field, raw)
	}
	return common.HexToAddress(trimmed), nil
}

// ParseAmount parses a non-negative base-unit integer.
func ParseAmount(field, raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(trimmed, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s %q is not a non-negative integer", ErrBadRequest, field, raw)
	}
	return v, nil
}

func amountString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
