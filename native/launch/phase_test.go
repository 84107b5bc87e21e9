package launch

import (
	"math"
	"math/big"
	"testing"
)

func phaseConfig() *SaleConfig {
	return &SaleConfig{
		PhaseOneStart:        1_000,
		PhaseOneDuration:     2 * day,
		PhaseTwoDuration:     day,
		MaxWithdrawPenalty:   ether("0.5"),
		FixedWithdrawPenalty: ether("0.4"),
		UserTimelock:         7 * day,
		IssuerTimelock:       8 * day,
	}
}

func TestCurrentPhaseBoundaries(t *testing.T) {
	cfg := phaseConfig()
	cases := []struct {
		now  int64
		agg  *Aggregate
		want Phase
	}{
		{now: 0, want: PhaseNotStarted},
		{now: 999, want: PhaseNotStarted},
		{now: 1_000, want: PhaseGrace},
		{now: 1_000 + day - 1, want: PhaseGrace},
		{now: 1_000 + day, want: PhaseGradient},
		{now: 1_000 + 2*day - 1, want: PhaseGradient},
		{now: 1_000 + 2*day, want: PhaseTwo},
		{now: 1_000 + 3*day - 1, want: PhaseTwo},
		{now: 1_000 + 3*day, want: PhaseThreeOpen},
		{now: 1_000 + 30*day, agg: &Aggregate{}, want: PhaseThreeOpen},
		{now: 1_000 + 30*day, agg: &Aggregate{Settled: true}, want: PhaseThreeSettled},
	}
	for _, tc := range cases {
		if got := CurrentPhase(cfg, tc.agg, tc.now); got != tc.want {
			t.Fatalf("now=%d: expected %s, got %s", tc.now, tc.want, got)
		}
	}
	if CurrentPhase(nil, nil, 5) != PhaseNotStarted {
		t.Fatalf("nil config must report not started")
	}
}

func TestPhaseGates(t *testing.T) {
	if !PhaseGrace.AcceptsDeposits() || !PhaseGradient.AcceptsDeposits() {
		t.Fatalf("phase one must accept deposits")
	}
	if PhaseTwo.AcceptsDeposits() || PhaseThreeOpen.AcceptsDeposits() {
		t.Fatalf("deposits must close after phase one")
	}
	if !PhaseTwo.AcceptsWithdrawals() || PhaseThreeOpen.AcceptsWithdrawals() || PhaseNotStarted.AcceptsWithdrawals() {
		t.Fatalf("unexpected withdrawal gates")
	}
}

func TestTimelocks(t *testing.T) {
	cfg := phaseConfig()
	if status := Timelocks(cfg, &Aggregate{}, 1_000_000); status.UserUnlocked || status.IssuerUnlocked {
		t.Fatalf("locks must be closed before settlement")
	}
	agg := &Aggregate{Settled: true, SettledAt: 10_000}
	status := Timelocks(cfg, agg, 10_000+7*day-1)
	if status.UserUnlocked {
		t.Fatalf("user lock opened early")
	}
	status = Timelocks(cfg, agg, 10_000+7*day)
	if !status.UserUnlocked || status.IssuerUnlocked {
		t.Fatalf("unexpected status at user unlock: %+v", status)
	}
	status = Timelocks(cfg, agg, 10_000+8*day)
	if !status.IssuerUnlocked || status.IssuerUnlockAt != 10_000+8*day {
		t.Fatalf("unexpected status at issuer unlock: %+v", status)
	}
}

func TestTimelocksSaturate(t *testing.T) {
	cfg := phaseConfig()
	cfg.IssuerTimelock = math.MaxInt64
	agg := &Aggregate{Settled: true, SettledAt: 10_000}
	status := Timelocks(cfg, agg, 10_000)
	if status.IssuerUnlocked || status.IssuerUnlockAt != math.MaxInt64 {
		t.Fatalf("issuer lock must clamp instead of wrapping: %+v", status)
	}
	if status.UserUnlockAt != 10_000+7*day {
		t.Fatalf("user unlock moved: %+v", status)
	}
	if got := addSeconds(math.MaxInt64-1, 1); got != math.MaxInt64 {
		t.Fatalf("expected exact sum at the edge, got %d", got)
	}
}

func TestPenaltyFraction(t *testing.T) {
	cfg := phaseConfig()
	gradientStart := cfg.PhaseOneStart + day

	frac, err := PenaltyFraction(cfg, PhaseGrace, cfg.PhaseOneStart+100)
	if err != nil || frac.Sign() != 0 {
		t.Fatalf("grace penalty must be zero, got %v err=%v", frac, err)
	}

	frac, err = PenaltyFraction(cfg, PhaseGradient, gradientStart)
	if err != nil || frac.Sign() != 0 {
		t.Fatalf("gradient must start at zero, got %v", frac)
	}

	frac, err = PenaltyFraction(cfg, PhaseGradient, gradientStart+43_267)
	if err != nil {
		t.Fatalf("gradient penalty: %v", err)
	}
	if frac.String() != "250387731481481481" {
		t.Fatalf("unexpected gradient penalty %s", frac)
	}

	frac, _ = PenaltyFraction(cfg, PhaseGradient, gradientStart+10*day)
	if frac.Cmp(cfg.MaxWithdrawPenalty) != 0 {
		t.Fatalf("gradient must clamp to the max penalty, got %s", frac)
	}

	frac, _ = PenaltyFraction(cfg, PhaseTwo, cfg.PhaseTwoStart()+5)
	if frac.Cmp(cfg.FixedWithdrawPenalty) != 0 {
		t.Fatalf("phase two must apply the fixed penalty, got %s", frac)
	}

	for _, phase := range []Phase{PhaseNotStarted, PhaseThreeOpen, PhaseThreeSettled} {
		if _, err := PenaltyFraction(cfg, phase, 0); err == nil {
			t.Fatalf("expected error for %s", phase)
		}
	}
}

func TestPenaltyFractionBounded(t *testing.T) {
	cfg := phaseConfig()
	bound := cfg.MaxWithdrawPenalty
	if cfg.FixedWithdrawPenalty.Cmp(bound) > 0 {
		bound = cfg.FixedWithdrawPenalty
	}
	var previous *big.Int
	for now := cfg.PhaseOneStart; now < cfg.PhaseThreeStart(); now += 977 {
		phase := CurrentPhase(cfg, nil, now)
		frac, err := PenaltyFraction(cfg, phase, now)
		if err != nil {
			t.Fatalf("now=%d: %v", now, err)
		}
		if frac.Sign() < 0 || frac.Cmp(bound) > 0 {
			t.Fatalf("now=%d: fraction %s out of bounds", now, frac)
		}
		if phase == PhaseGradient && previous != nil && frac.Cmp(previous) < 0 {
			t.Fatalf("now=%d: gradient decreased", now)
		}
		if phase == PhaseGradient {
			previous = frac
		}
	}
}

func TestPenaltyAmountTruncates(t *testing.T) {
	got := PenaltyAmount(big.NewInt(3), ether("0.5"))
	if got.Int64() != 1 {
		t.Fatalf("expected truncation to 1, got %s", got)
	}
}

func TestSplitIncentives(t *testing.T) {
	sale, incentives := SplitIncentives(ether("105"), ether("0.05"))
	requireBig(t, ether("100"), sale)
	requireBig(t, ether("5"), incentives)

	sale, incentives = SplitIncentives(big.NewInt(10), nil)
	if sale.Int64() != 10 || incentives.Sign() != 0 {
		t.Fatalf("zero percent must keep everything for sale")
	}
}
