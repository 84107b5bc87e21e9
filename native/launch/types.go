package launch

import (
	"fmt"
	"math"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// SaleConfig is the immutable description of a sale, fixed at Initialize.
type SaleConfig struct {
	Issuer           common.Address
	Owner            common.Address
	Custody          common.Address
	PenaltyCollector common.Address
	StakeRegistry    common.Address

	SaleAsset       common.Address
	SaleDecimals    uint8
	ReserveAsset    common.Address
	ReserveDecimals uint8

	PhaseOneStart    int64
	PhaseOneDuration int64
	PhaseTwoDuration int64

	SaleAmount      *big.Int
	IncentiveAmount *big.Int
	// IncentivesPercent is informational once the split is computed.
	IncentivesPercent *big.Int
	// FloorPrice is reserve base units per whole sale token.
	FloorPrice *big.Int

	MaxWithdrawPenalty   *big.Int
	FixedWithdrawPenalty *big.Int

	MaxUnstakedAllocation *big.Int
	MaxStakedAllocation   *big.Int

	UserTimelock   int64
	IssuerTimelock int64
	CreatedAt      int64
}

// PhaseTwoStart returns the unix time phase two opens.
func (c *SaleConfig) PhaseTwoStart() int64 { return c.PhaseOneStart + c.PhaseOneDuration }

// PhaseThreeStart returns the unix time the sale closes to deposits and
// withdrawals.
func (c *SaleConfig) PhaseThreeStart() int64 { return c.PhaseTwoStart() + c.PhaseTwoDuration }

// GraceLength is the penalty-free opening of phase one.
func (c *SaleConfig) GraceLength() int64 { return c.PhaseOneDuration / 2 }

// Clone returns a deep copy of the configuration.
func (c *SaleConfig) Clone() *SaleConfig {
	if c == nil {
		return nil
	}
	clone := *c
	clone.SaleAmount = cloneBig(c.SaleAmount)
	clone.IncentiveAmount = cloneBig(c.IncentiveAmount)
	clone.IncentivesPercent = cloneBig(c.IncentivesPercent)
	clone.FloorPrice = cloneBig(c.FloorPrice)
	clone.MaxWithdrawPenalty = cloneBig(c.MaxWithdrawPenalty)
	clone.FixedWithdrawPenalty = cloneBig(c.FixedWithdrawPenalty)
	clone.MaxUnstakedAllocation = cloneBig(c.MaxUnstakedAllocation)
	clone.MaxStakedAllocation = cloneBig(c.MaxStakedAllocation)
	return &clone
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrConfigInvalid, fmt.Sprintf(format, args...))
}

func positive(v *big.Int) bool { return v != nil && v.Sign() > 0 }

// Validate checks the configuration against the protocol limits at time now.
func (c *SaleConfig) Validate(params Params, now int64) error {
	if c == nil {
		return invalid("config required")
	}
	zero := common.Address{}
	switch {
	case c.Issuer == zero:
		return invalid("issuer can't be 0 address")
	case c.SaleAsset == zero:
		return invalid("token can't be 0 address")
	case c.ReserveAsset == zero:
		return invalid("reserve asset can't be 0 address")
	case c.SaleAsset == c.ReserveAsset:
		return invalid("token can't be the reserve asset")
	case c.Custody == zero:
		return invalid("custody address required")
	case c.PenaltyCollector == zero:
		return invalid("penalty collector required")
	case c.PenaltyCollector == c.Issuer:
		return invalid("penalty collector can't be the issuer")
	case c.PenaltyCollector == c.Custody:
		return invalid("penalty collector can't be the sale custody")
	}
	if c.PhaseOneStart < now {
		return invalid("start of phase 1 cannot be in the past")
	}
	if c.PhaseOneDuration < 2 || c.PhaseTwoDuration <= 0 {
		return invalid("phase durations must be positive")
	}
	if addSeconds(addSeconds(c.PhaseOneStart, c.PhaseOneDuration), c.PhaseTwoDuration) == math.MaxInt64 {
		return invalid("phase schedule out of range")
	}
	if !positive(c.SaleAmount) {
		return invalid("sale amount must be positive")
	}
	if c.IncentiveAmount == nil || c.IncentiveAmount.Sign() < 0 {
		return invalid("incentive amount must not be negative")
	}
	if !positive(c.FloorPrice) {
		return invalid("floor price must be positive")
	}
	if c.IncentivesPercent == nil || c.IncentivesPercent.Sign() < 0 || c.IncentivesPercent.Cmp(params.MaxIncentivesPercent) >= 0 {
		return invalid("token incentives too high")
	}
	if c.MaxWithdrawPenalty == nil || c.MaxWithdrawPenalty.Sign() < 0 || c.MaxWithdrawPenalty.Cmp(params.MaxWithdrawPenalty) > 0 {
		return invalid("maxWithdrawPenalty too big")
	}
	if c.FixedWithdrawPenalty == nil || c.FixedWithdrawPenalty.Sign() < 0 || c.FixedWithdrawPenalty.Cmp(params.MaxWithdrawPenalty) > 0 {
		return invalid("fixedWithdrawPenalty too big")
	}
	if !positive(c.MaxUnstakedAllocation) || !positive(c.MaxStakedAllocation) {
		return invalid("allocation caps must be positive")
	}
	if c.UserTimelock < 0 || c.UserTimelock > params.MaxUserTimelock {
		return invalid("can't lock user LP for more than %d seconds", params.MaxUserTimelock)
	}
	if c.IssuerTimelock <= c.UserTimelock {
		return invalid("issuer can't withdraw before participants")
	}
	if c.IssuerTimelock > params.MaxIssuerTimelock {
		return invalid("can't lock issuer LP for more than %d seconds", params.MaxIssuerTimelock)
	}
	return nil
}

// Aggregate captures the sale-wide running totals and lifecycle flags.
type Aggregate struct {
	Initialized bool
	// TotalReserve is the live sum of participant deposits.
	TotalReserve *big.Int

	Settled        bool
	SettledAt      int64
	Pair           common.Address
	ReservePool    *big.Int
	SalePool       *big.Int
	PoolShares     *big.Int
	UserIncentives *big.Int
	IssuerRefund   *big.Int

	Stopped   bool
	StoppedAt int64

	IssuerSharesClaimed bool
	IssuerRefundClaimed bool
	IssuerRecovered     bool

	Participants uint64
}

func newAggregate() *Aggregate {
	return &Aggregate{
		TotalReserve:   big.NewInt(0),
		ReservePool:    big.NewInt(0),
		SalePool:       big.NewInt(0),
		PoolShares:     big.NewInt(0),
		UserIncentives: big.NewInt(0),
		IssuerRefund:   big.NewInt(0),
	}
}

// Clone returns a deep copy of the aggregate.
func (a *Aggregate) Clone() *Aggregate {
	if a == nil {
		return nil
	}
	clone := *a
	clone.TotalReserve = cloneBig(a.TotalReserve)
	clone.ReservePool = cloneBig(a.ReservePool)
	clone.SalePool = cloneBig(a.SalePool)
	clone.PoolShares = cloneBig(a.PoolShares)
	clone.UserIncentives = cloneBig(a.UserIncentives)
	clone.IssuerRefund = cloneBig(a.IssuerRefund)
	return &clone
}

// Participant is the per-address ledger entry of a sale.
type Participant struct {
	Address common.Address
	// Amount is the live deposit, adjusted by deposits and withdrawals.
	Amount *big.Int
	// Frozen is the allocation snapshotted at settlement.
	Frozen             *big.Int
	SharesClaimed      bool
	IncentivesClaimed  bool
	EmergencyWithdrawn bool
	FirstDepositAt     int64
}

func newParticipant(addr common.Address) *Participant {
	return &Participant{Address: addr, Amount: big.NewInt(0), Frozen: big.NewInt(0)}
}

// Clone returns a deep copy of the participant.
func (p *Participant) Clone() *Participant {
	if p == nil {
		return nil
	}
	clone := *p
	clone.Amount = cloneBig(p.Amount)
	clone.Frozen = cloneBig(p.Frozen)
	return &clone
}

// Sale is a read-only view of a sale's configuration, aggregate and phase.
type Sale struct {
	Config    *SaleConfig
	Aggregate *Aggregate
	Phase     Phase
	Timelocks TimelockStatus
}

// ParticipantInfo summarises an address's position and pending entitlements.
type ParticipantInfo struct {
	Participant       *Participant
	IsIssuer          bool
	Staked            bool
	MaxAllocation     *big.Int
	PendingLiquidity  *big.Int
	PendingIncentives *big.Int
}
