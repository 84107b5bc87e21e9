package launch

import (
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/types"
)

const (
	// EventTypeInitialized is emitted once a sale's parameters are fixed.
	EventTypeInitialized = "launch.initialized"
	// EventTypeUserParticipated is emitted for every accepted deposit.
	EventTypeUserParticipated = "launch.user.participated"
	// EventTypeUserWithdrawn is emitted for every live withdrawal.
	EventTypeUserWithdrawn = "launch.user.withdrawn"
	// EventTypeStopped is emitted when the owner halts the sale.
	EventTypeStopped = "launch.stopped"
	// EventTypePoolCreated is emitted when the sale settles into the AMM.
	EventTypePoolCreated = "launch.pool.created"
	// EventTypeIncentivesWithdrawn is emitted when incentives or the issuer
	// refund are paid out.
	EventTypeIncentivesWithdrawn = "launch.incentives.withdrawn"
	// EventTypeIssuerLiquidityWithdrawn is emitted when the issuer claims pool shares.
	EventTypeIssuerLiquidityWithdrawn = "launch.issuer.liquidity_withdrawn"
	// EventTypeUserLiquidityWithdrawn is emitted when a participant claims pool shares.
	EventTypeUserLiquidityWithdrawn = "launch.user.liquidity_withdrawn"
	// EventTypeEmergencyWithdrawn is emitted for every emergency recovery.
	EventTypeEmergencyWithdrawn = "launch.emergency.withdrawn"
	// EventTypeTokensDeposited is emitted by the factory when the issuer's
	// tokens enter custody.
	EventTypeTokensDeposited = "launch.factory.tokens_deposited"
	// EventTypeSaleCreated is emitted by the factory for every new sale.
	EventTypeSaleCreated = "launch.factory.sale_created"
)

type eventEnvelope struct {
	evt *types.Event
}

func (e eventEnvelope) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e eventEnvelope) Event() *types.Event { return e.evt }

// WrapEvent converts a raw event payload into the emitter-friendly envelope.
func WrapEvent(evt *types.Event) events.Event { return eventEnvelope{evt: evt} }

func unix(v int64) string { return strconv.FormatInt(v, 10) }

// InitializedEvent describes the fixed parameters of a sale.
func InitializedEvent(cfg *SaleConfig) *types.Event {
	return &types.Event{
		Type: EventTypeInitialized,
		Attributes: map[string]string{
			"sale":                  cfg.SaleAsset.Hex(),
			"incentivesPercent":     cfg.IncentivesPercent.String(),
			"floorPrice":            cfg.FloorPrice.String(),
			"maxWithdrawPenalty":    cfg.MaxWithdrawPenalty.String(),
			"fixedWithdrawPenalty":  cfg.FixedWithdrawPenalty.String(),
			"maxUnstakedAllocation": cfg.MaxUnstakedAllocation.String(),
			"maxStakedAllocation":   cfg.MaxStakedAllocation.String(),
			"userTimelock":          unix(cfg.UserTimelock),
			"issuerTimelock":        unix(cfg.IssuerTimelock),
			"saleAmount":            cfg.SaleAmount.String(),
			"incentiveAmount":       cfg.IncentiveAmount.String(),
		},
	}
}

// UserParticipatedEvent records an accepted deposit.
func UserParticipatedEvent(sale, user common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeUserParticipated,
		Attributes: map[string]string{
			"sale":   sale.Hex(),
			"user":   user.Hex(),
			"amount": amount.String(),
		},
	}
}

// UserWithdrawnEvent records a live withdrawal and the penalty retained.
func UserWithdrawnEvent(sale, user common.Address, amount, penalty *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeUserWithdrawn,
		Attributes: map[string]string{
			"sale":    sale.Hex(),
			"user":    user.Hex(),
			"amount":  amount.String(),
			"penalty": penalty.String(),
		},
	}
}

// StoppedEvent records the emergency stop.
func StoppedEvent(sale, by common.Address, at int64) *types.Event {
	return &types.Event{
		Type: EventTypeStopped,
		Attributes: map[string]string{
			"sale": sale.Hex(),
			"by":   by.Hex(),
			"at":   unix(at),
		},
	}
}

// PoolCreatedEvent records the settlement amounts.
func PoolCreatedEvent(sale, pair, by common.Address, reserveAmount, saleAmount, shares *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypePoolCreated,
		Attributes: map[string]string{
			"sale":          sale.Hex(),
			"by":            by.Hex(),
			"pair":          pair.Hex(),
			"reserveAmount": reserveAmount.String(),
			"saleAmount":    saleAmount.String(),
			"shares":        shares.String(),
		},
	}
}

// IncentivesWithdrawnEvent records an incentive or refund payout.
func IncentivesWithdrawnEvent(sale, user common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeIncentivesWithdrawn,
		Attributes: map[string]string{
			"sale":   sale.Hex(),
			"user":   user.Hex(),
			"amount": amount.String(),
		},
	}
}

// LiquidityWithdrawnEvent records a pool-share claim.
func LiquidityWithdrawnEvent(issuer bool, sale, user, pair common.Address, shares *big.Int) *types.Event {
	kind := EventTypeUserLiquidityWithdrawn
	if issuer {
		kind = EventTypeIssuerLiquidityWithdrawn
	}
	return &types.Event{
		Type: kind,
		Attributes: map[string]string{
			"sale":   sale.Hex(),
			"user":   user.Hex(),
			"pair":   pair.Hex(),
			"shares": shares.String(),
		},
	}
}

// EmergencyWithdrawnEvent records an emergency recovery.
func EmergencyWithdrawnEvent(sale, user, asset common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeEmergencyWithdrawn,
		Attributes: map[string]string{
			"sale":   sale.Hex(),
			"user":   user.Hex(),
			"asset":  asset.Hex(),
			"amount": amount.String(),
		},
	}
}

// TokensDepositedEvent records the issuer's tokens entering custody.
func TokensDepositedEvent(sale common.Address, amount *big.Int) *types.Event {
	return &types.Event{
		Type: EventTypeTokensDeposited,
		Attributes: map[string]string{
			"sale":   sale.Hex(),
			"amount": amount.String(),
		},
	}
}

// SaleCreatedEvent announces a new sale and its phase boundaries.
func SaleCreatedEvent(cfg *SaleConfig) *types.Event {
	return &types.Event{
		Type: EventTypeSaleCreated,
		Attributes: map[string]string{
			"sale":            cfg.SaleAsset.Hex(),
			"custody":         cfg.Custody.Hex(),
			"issuer":          cfg.Issuer.Hex(),
			"phaseOneStart":   unix(cfg.PhaseOneStart),
			"phaseTwoStart":   unix(cfg.PhaseTwoStart()),
			"phaseThreeStart": unix(cfg.PhaseThreeStart()),
			"stakeRegistry":   cfg.StakeRegistry.Hex(),
			"saleAmount":      cfg.SaleAmount.String(),
		},
	}
}
