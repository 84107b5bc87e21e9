package launch

import "math"

// Phase enumerates the lifecycle stages of a sale.
type Phase uint8

const (
	// PhaseNotStarted precedes phase one; no deposits or withdrawals.
	PhaseNotStarted Phase = iota
	// PhaseGrace is the first half of phase one: deposits and free withdrawals.
	PhaseGrace
	// PhaseGradient is the second half of phase one: deposits and withdrawals
	// with a linearly increasing penalty.
	PhaseGradient
	// PhaseTwo only allows withdrawals, at the fixed penalty.
	PhaseTwo
	// PhaseThreeOpen waits for the pool to be created.
	PhaseThreeOpen
	// PhaseThreeSettled has a funded pool and open claims.
	PhaseThreeSettled
)

func (p Phase) String() string {
	switch p {
	case PhaseNotStarted:
		return "not_started"
	case PhaseGrace:
		return "phase_one_grace"
	case PhaseGradient:
		return "phase_one_gradient"
	case PhaseTwo:
		return "phase_two"
	case PhaseThreeOpen:
		return "phase_three_open"
	case PhaseThreeSettled:
		return "phase_three_settled"
	default:
		return "unknown"
	}
}

// AcceptsDeposits reports whether participants may deposit.
func (p Phase) AcceptsDeposits() bool { return p == PhaseGrace || p == PhaseGradient }

// AcceptsWithdrawals reports whether participants may withdraw live deposits.
func (p Phase) AcceptsWithdrawals() bool {
	return p == PhaseGrace || p == PhaseGradient || p == PhaseTwo
}

// CurrentPhase derives the phase of a sale from its configuration, its
// settlement flag and the supplied time. It is pure and total.
func CurrentPhase(cfg *SaleConfig, agg *Aggregate, now int64) Phase {
	if cfg == nil || now < cfg.PhaseOneStart {
		return PhaseNotStarted
	}
	if now < cfg.PhaseTwoStart() {
		if now < cfg.PhaseOneStart+cfg.GraceLength() {
			return PhaseGrace
		}
		return PhaseGradient
	}
	if now < cfg.PhaseThreeStart() {
		return PhaseTwo
	}
	if agg != nil && agg.Settled {
		return PhaseThreeSettled
	}
	return PhaseThreeOpen
}

// TimelockStatus reports whether the post-settlement lockups have elapsed.
type TimelockStatus struct {
	UserUnlocked   bool
	IssuerUnlocked bool
	UserUnlockAt   int64
	IssuerUnlockAt int64
}

// Timelocks computes the lockup status. Before settlement both locks are
// reported as closed with zero unlock times.
func Timelocks(cfg *SaleConfig, agg *Aggregate, now int64) TimelockStatus {
	if cfg == nil || agg == nil || !agg.Settled {
		return TimelockStatus{}
	}
	status := TimelockStatus{
		UserUnlockAt:   addSeconds(agg.SettledAt, cfg.UserTimelock),
		IssuerUnlockAt: addSeconds(agg.SettledAt, cfg.IssuerTimelock),
	}
	status.UserUnlocked = now >= status.UserUnlockAt
	status.IssuerUnlocked = now >= status.IssuerUnlockAt
	return status
}

// addSeconds adds a non-negative offset to a unix time, clamping at
// math.MaxInt64 so a lock never wraps into the past.
func addSeconds(at, offset int64) int64 {
	if offset > 0 && at > math.MaxInt64-offset {
		return math.MaxInt64
	}
	return at + offset
}
