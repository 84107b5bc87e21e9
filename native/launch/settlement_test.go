package launch

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/voltfinance/voltage-launchpad/native/amm"
)

func poolShares(reserve, sale *big.Int) *big.Int {
	root := new(big.Int).Sqrt(new(big.Int).Mul(reserve, sale))
	return root.Sub(root, amm.MinimumLiquidity)
}

// A raise that exactly meets the floor sells every token and refunds nothing.
func TestSettleAtExactFloor(t *testing.T) {
	h := newHarness(t, 18)
	engine := h.create(h.defaultRequest())

	h.at(120)
	require.NoError(t, engine.Deposit(alice, ether("1")))

	h.at(3*day + 1)
	amounts, err := engine.CreatePool(bob)
	require.NoError(t, err)
	requireBig(t, ether("1"), amounts.ReservePool)
	requireBig(t, ether("100"), amounts.SalePool)
	requireBig(t, ether("5"), amounts.UserIncentives)
	require.Equal(t, 0, amounts.IssuerRefund.Sign())

	sale, err := engine.Sale()
	require.NoError(t, err)
	require.Equal(t, PhaseThreeSettled, sale.Phase)
	shares := poolShares(ether("1"), ether("100"))
	requireBig(t, shares, sale.Aggregate.PoolShares)

	h.now = sale.Aggregate.SettledAt + 8*day
	issuerShares, err := engine.ClaimLiquidity(issuer)
	require.NoError(t, err)
	aliceShares, err := engine.ClaimLiquidity(alice)
	require.NoError(t, err)
	half := new(big.Int).Quo(shares, big.NewInt(2))
	requireBig(t, half, issuerShares)
	requireBig(t, half, aliceShares)
	requireBig(t, half, h.balance(sale.Aggregate.Pair, alice))

	incentives, err := engine.ClaimIncentives(alice)
	require.NoError(t, err)
	requireBig(t, ether("5"), incentives)

	_, err = engine.ClaimIncentives(issuer)
	require.True(t, errors.Is(err, ErrNothingToClaim), "issuer has no refund when fully sold")
	require.Equal(t, 0, h.balance(saleToken, sale.Config.Custody).Sign())
}

// A raise covering half the floor sells half the tokens and refunds the rest
// to the issuer.
func TestSettleAtHalfFloor(t *testing.T) {
	h := newHarness(t, 18)
	engine := h.create(h.defaultRequest())

	h.at(120)
	require.NoError(t, engine.Deposit(alice, ether("0.5")))

	h.at(3 * day)
	amounts, err := engine.CreatePool(alice)
	require.NoError(t, err)
	requireBig(t, ether("0.5"), amounts.ReservePool)
	requireBig(t, ether("50"), amounts.SalePool)
	requireBig(t, ether("2.5"), amounts.UserIncentives)
	requireBig(t, ether("52.5"), amounts.IssuerRefund)

	incentives, err := engine.ClaimIncentives(alice)
	require.NoError(t, err)
	requireBig(t, ether("2.5"), incentives)
	refund, err := engine.ClaimIncentives(issuer)
	require.NoError(t, err)
	requireBig(t, ether("52.5"), refund)

	sale, err := engine.Sale()
	require.NoError(t, err)
	custody := sale.Config.Custody
	require.Equal(t, 0, h.balance(saleToken, custody).Sign(), "every sale token is pooled or paid out")
	pooled := h.balance(saleToken, sale.Aggregate.Pair)
	total := new(big.Int).Add(pooled, h.balance(saleToken, alice))
	total.Add(total, h.balance(saleToken, issuer))
	requireBig(t, ether("105"), total)
}

// Oversubscription prices the pool above the floor and splits shares evenly
// between equal depositors.
func TestSettleOversubscribed(t *testing.T) {
	h := newHarness(t, 18)
	engine := h.create(h.defaultRequest())

	h.at(120)
	require.NoError(t, engine.Deposit(alice, ether("2")))
	require.NoError(t, engine.Deposit(bob, ether("2")))

	h.at(3 * day)
	amounts, err := engine.CreatePool(owner)
	require.NoError(t, err)
	requireBig(t, ether("4"), amounts.ReservePool)
	requireBig(t, ether("100"), amounts.SalePool)

	sale, err := engine.Sale()
	require.NoError(t, err)
	shares := sale.Aggregate.PoolShares
	requireBig(t, poolShares(ether("4"), ether("100")), shares)

	h.now = sale.Aggregate.SettledAt + 8*day
	quarter := new(big.Int).Quo(shares, big.NewInt(4))
	total := big.NewInt(0)
	for _, who := range []common.Address{alice, bob} {
		got, err := engine.ClaimLiquidity(who)
		require.NoError(t, err)
		requireBig(t, quarter, got)
		total.Add(total, got)
	}
	issuerShares, err := engine.ClaimLiquidity(issuer)
	require.NoError(t, err)
	requireBig(t, new(big.Int).Quo(shares, big.NewInt(2)), issuerShares)
	total.Add(total, issuerShares)

	dust := new(big.Int).Sub(shares, total)
	require.True(t, dust.Sign() >= 0 && dust.Cmp(big.NewInt(3)) <= 0, "rounding dust %s", dust)

	for _, who := range []common.Address{alice, bob} {
		got, err := engine.ClaimIncentives(who)
		require.NoError(t, err)
		requireBig(t, ether("2.5"), got)
	}
}

// Stopping before settlement lets depositors and the issuer recover their
// assets without penalty.
func TestStopBeforeSettlement(t *testing.T) {
	h := newHarness(t, 18)
	engine := h.create(h.defaultRequest())

	h.at(day + 600)
	require.NoError(t, engine.Deposit(alice, ether("1.5")))
	_, err := engine.EmergencyWithdraw(alice)
	require.True(t, errors.Is(err, ErrNotStopped))

	require.True(t, errors.Is(engine.Stop(alice), ErrUnauthorized))
	require.True(t, errors.Is(engine.Stop(issuer), ErrUnauthorized))
	require.NoError(t, engine.Stop(owner))
	require.True(t, errors.Is(engine.Stop(owner), ErrStopped))

	require.True(t, errors.Is(engine.Deposit(bob, ether("1")), ErrStopped))
	_, err = engine.Withdraw(alice, ether("1"))
	require.True(t, errors.Is(err, ErrStopped))

	before := h.balance(wvolt, alice)
	recovered, err := engine.EmergencyWithdraw(alice)
	require.NoError(t, err)
	requireBig(t, ether("1.5"), recovered)
	requireBig(t, new(big.Int).Add(before, ether("1.5")), h.balance(wvolt, alice))
	require.Equal(t, 0, h.balance(wvolt, collector).Sign(), "no penalty on emergency exit")

	_, err = engine.EmergencyWithdraw(alice)
	require.True(t, errors.Is(err, ErrNothingToClaim))

	recovered, err = engine.EmergencyWithdraw(issuer)
	require.NoError(t, err)
	requireBig(t, ether("105"), recovered)
	_, err = engine.EmergencyWithdraw(issuer)
	require.True(t, errors.Is(err, ErrAlreadyClaimed))

	h.at(3 * day)
	_, err = engine.CreatePool(owner)
	require.True(t, errors.Is(err, ErrStopped))
}

func TestStopAfterSettlementBypassesTimelocks(t *testing.T) {
	h := newHarness(t, 18)
	engine := h.create(h.defaultRequest())
	h.at(120)
	require.NoError(t, engine.Deposit(alice, ether("1")))
	h.at(3 * day)
	_, err := engine.CreatePool(alice)
	require.NoError(t, err)

	_, err = engine.ClaimLiquidity(alice)
	require.True(t, errors.Is(err, ErrUserTimelockActive))
	_, err = engine.ClaimLiquidity(issuer)
	require.True(t, errors.Is(err, ErrIssuerTimelockActive))

	require.NoError(t, engine.Stop(owner))

	sale, err := engine.Sale()
	require.NoError(t, err)
	half := new(big.Int).Quo(sale.Aggregate.PoolShares, big.NewInt(2))
	emitted := len(h.eventTypes())

	got, err := engine.EmergencyWithdraw(alice)
	require.NoError(t, err)
	requireBig(t, half, got)
	got, err = engine.EmergencyWithdraw(issuer)
	require.NoError(t, err)
	requireBig(t, half, got)
	require.Equal(t, []string{EventTypeEmergencyWithdrawn, EventTypeEmergencyWithdrawn}, h.eventTypes()[emitted:],
		"each recovery is reported once")

	_, err = engine.EmergencyWithdraw(alice)
	require.True(t, errors.Is(err, ErrAlreadyClaimed))
	_, err = engine.ClaimLiquidity(issuer)
	require.True(t, errors.Is(err, ErrAlreadyClaimed))

	incentives, err := engine.ClaimIncentives(alice)
	require.NoError(t, err, "incentives stay claimable after stop")
	requireBig(t, ether("5"), incentives)
}

func TestCreatePoolPreconditions(t *testing.T) {
	h := newHarness(t, 18)
	engine := h.create(h.defaultRequest())

	_, err := engine.ClaimLiquidity(alice)
	require.True(t, errors.Is(err, ErrPoolNotCreated))
	_, err = engine.ClaimIncentives(alice)
	require.True(t, errors.Is(err, ErrPoolNotCreated))

	h.at(2 * day)
	_, err = engine.CreatePool(alice)
	require.True(t, errors.Is(err, ErrWrongPhase))

	h.at(3 * day)
	_, err = engine.CreatePool(alice)
	require.True(t, errors.Is(err, ErrNoReserveDeposited))
}

func TestCreatePoolOnce(t *testing.T) {
	h := newHarness(t, 18)
	engine := h.create(h.defaultRequest())
	h.at(120)
	require.NoError(t, engine.Deposit(alice, ether("1")))
	h.at(3 * day)
	_, err := engine.CreatePool(alice)
	require.NoError(t, err)
	_, err = engine.CreatePool(alice)
	require.True(t, errors.Is(err, ErrAlreadySettled))
}

func TestCreatePoolRejectsLiquidPair(t *testing.T) {
	h := newHarness(t, 18)
	engine := h.create(h.defaultRequest())
	h.at(120)
	require.NoError(t, engine.Deposit(alice, ether("1")))

	// Someone seeds the pair directly while the sale is running.
	require.NoError(t, h.bank.Mint(saleToken, bob, ether("10")))
	_, err := h.amm.CreatePair(wvolt, saleToken)
	require.NoError(t, err)
	_, err = h.amm.AddLiquidity(bob, wvolt, saleToken, ether("1"), ether("10"))
	require.NoError(t, err)

	h.at(3 * day)
	_, err = engine.CreatePool(alice)
	require.True(t, errors.Is(err, ErrPoolAlreadyLiquid))
}

func TestSixDecimalSaleAsset(t *testing.T) {
	h := newHarness(t, 6)
	req := h.defaultRequest()
	req.TokenAmountIncludingIncentives = big.NewInt(105_000_000)
	engine := h.create(req)

	sale, err := engine.Sale()
	require.NoError(t, err)
	require.Equal(t, uint8(6), sale.Config.SaleDecimals)
	require.Equal(t, int64(100_000_000), sale.Config.SaleAmount.Int64())
	require.Equal(t, int64(5_000_000), sale.Config.IncentiveAmount.Int64())

	h.at(120)
	require.NoError(t, engine.Deposit(alice, ether("0.5")))
	h.at(3 * day)
	amounts, err := engine.CreatePool(alice)
	require.NoError(t, err)
	require.Equal(t, int64(50_000_000), amounts.SalePool.Int64())
	require.Equal(t, int64(2_500_000), amounts.UserIncentives.Int64())
	require.Equal(t, int64(52_500_000), amounts.IssuerRefund.Int64())

	// salePool × 1e18 == saleAmount × reservePool at a floor of 0.01
	lhs := new(big.Int).Mul(amounts.SalePool, ether("1"))
	rhs := new(big.Int).Mul(sale.Config.SaleAmount, amounts.ReservePool)
	require.Equal(t, 0, lhs.Cmp(rhs))
}

func TestComputeSettlementConservesSaleAsset(t *testing.T) {
	cfg := &SaleConfig{
		SaleDecimals:    18,
		SaleAmount:      ether("100"),
		IncentiveAmount: ether("5"),
		FloorPrice:      ether("0.01"),
	}
	for _, deposited := range []string{"0.000000000000000001", "0.3", "0.999999", "1", "7"} {
		out := ComputeSettlement(cfg, ether(deposited))
		total := new(big.Int).Add(out.SalePool, out.UserIncentives)
		total.Add(total, out.IssuerRefund)
		requireBig(t, ether("105"), total, "deposit %s", deposited)
		require.True(t, out.SalePool.Cmp(cfg.SaleAmount) <= 0)
	}
}
