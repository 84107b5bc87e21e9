package launchpad

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voltfinance/voltage-launchpad/native/bank"
	"github.com/voltfinance/voltage-launchpad/native/launch"
)

func (f *fixture) openSale() *launch.Sale {
	f.t.Helper()
	ctx := context.Background()
	_, err := f.svc.RegisterAsset(ctx, saleToken, "AUC", 18)
	require.NoError(f.t, err)
	require.NoError(f.t, f.svc.Mint(ctx, saleToken, issuer, ether(105)))
	req, err := f.saleBody().Request()
	require.NoError(f.t, err)
	sale, err := f.svc.CreateSale(ctx, issuer, req)
	require.NoError(f.t, err)
	return sale
}

func TestServiceBootstrapsAssets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	balance, err := f.svc.Balance(ctx, wvolt, alice)
	require.NoError(t, err)
	require.Equal(t, 0, balance.Sign())

	_, err = f.svc.RegisterAsset(ctx, wvolt, "WVOLT", 18)
	require.True(t, errors.Is(err, bank.ErrAssetExists))

	// A second service over the same database finds the assets already there.
	_, err = New(f.db, f.svc.Config(), nil)
	require.NoError(t, err)
}

func TestServiceSaleLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.openSale()
	require.Equal(t, launch.PhaseNotStarted, sale.Phase)

	require.NoError(t, f.svc.Mint(ctx, wvolt, alice, ether(10)))
	f.clock = sale.Config.PhaseOneStart + 10
	require.NoError(t, f.svc.Deposit(ctx, saleToken, alice, ether(1)))

	f.clock = sale.Config.PhaseThreeStart()
	amounts, err := f.svc.CreatePool(ctx, saleToken, bob)
	require.NoError(t, err)
	require.Equal(t, ether(100).String(), amounts.SalePool.String())

	incentives, err := f.svc.ClaimIncentives(ctx, saleToken, alice)
	require.NoError(t, err)
	require.Equal(t, ether(5).String(), incentives.String())

	_, err = f.svc.ClaimLiquidity(ctx, saleToken, alice)
	require.True(t, errors.Is(err, launch.ErrUserTimelockActive))

	f.clock += 7 * day
	shares, err := f.svc.ClaimLiquidity(ctx, saleToken, alice)
	require.NoError(t, err)
	require.Equal(t, 1, shares.Sign())

	sales, err := f.svc.Sales(ctx)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, launch.PhaseThreeSettled, sales[0].Phase)

	var types []string
	for _, evt := range f.sink.Events() {
		types = append(types, evt.EventType())
	}
	require.Contains(t, types, launch.EventTypeSaleCreated)
	require.Contains(t, types, launch.EventTypePoolCreated)
	require.Contains(t, types, launch.EventTypeUserLiquidityWithdrawn)
	require.Contains(t, types, "amm.pair.created")
}

func TestFailedCallLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.openSale()
	require.NoError(t, f.svc.Mint(ctx, wvolt, alice, milli(500)))
	f.clock = sale.Config.PhaseOneStart + 10
	before := len(f.sink.Events())

	// The engine records the deposit before pulling funds; the failed pull
	// must roll the whole call back.
	err := f.svc.Deposit(ctx, saleToken, alice, ether(1))
	require.True(t, errors.Is(err, bank.ErrInsufficientBalance))
	require.Equal(t, http.StatusConflict, StatusCode(err))

	info, err := f.svc.Participant(ctx, saleToken, alice)
	require.NoError(t, err)
	require.Equal(t, 0, info.Participant.Amount.Sign())
	snapshot, err := f.svc.Sale(ctx, saleToken)
	require.NoError(t, err)
	require.Equal(t, 0, snapshot.Aggregate.TotalReserve.Sign())
	require.Zero(t, snapshot.Aggregate.Participants)
	require.Len(t, f.sink.Events(), before)

	require.NoError(t, f.svc.Deposit(ctx, saleToken, alice, milli(500)))
	require.Len(t, f.sink.Events(), before+2, "bank transfer and participation events")
}

func TestVoteLockUnlocksStakedTier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.openSale()
	require.NoError(t, f.svc.Mint(ctx, wvolt, alice, ether(10)))
	require.NoError(t, f.svc.Mint(ctx, volt, alice, ether(1)))
	f.clock = sale.Config.PhaseOneStart + 10

	err := f.svc.Deposit(ctx, saleToken, alice, ether(5))
	require.True(t, errors.Is(err, launch.ErrCapExceeded))

	lock, err := f.svc.Lock(ctx, alice, ether(1), f.clock+30*day)
	require.NoError(t, err)
	require.Equal(t, ether(1).String(), lock.Amount.String())
	require.NoError(t, f.svc.Deposit(ctx, saleToken, alice, ether(5)))

	info, err := f.svc.Participant(ctx, saleToken, alice)
	require.NoError(t, err)
	require.True(t, info.Staked)

	_, err = f.svc.Release(ctx, alice)
	require.Error(t, err)
	f.clock += 31 * day
	released, err := f.svc.Release(ctx, alice)
	require.NoError(t, err)
	require.Equal(t, ether(1).String(), released.String())
}

func TestStopAndEmergencyWithdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	sale := f.openSale()
	require.NoError(t, f.svc.Mint(ctx, wvolt, alice, ether(10)))
	f.clock = sale.Config.PhaseOneStart + 10
	require.NoError(t, f.svc.Deposit(ctx, saleToken, alice, ether(2)))

	err := f.svc.Stop(ctx, saleToken, issuer)
	require.True(t, errors.Is(err, launch.ErrUnauthorized))
	require.Equal(t, http.StatusForbidden, StatusCode(err))
	require.NoError(t, f.svc.Stop(ctx, saleToken, owner))

	recovered, err := f.svc.EmergencyWithdraw(ctx, saleToken, alice)
	require.NoError(t, err)
	require.Equal(t, ether(2).String(), recovered.String())
	balance, err := f.svc.Balance(ctx, wvolt, alice)
	require.NoError(t, err)
	require.Equal(t, ether(10).String(), balance.String())

	recovered, err = f.svc.EmergencyWithdraw(ctx, saleToken, issuer)
	require.NoError(t, err)
	require.Equal(t, ether(105).String(), recovered.String())
}

func TestStatusCode(t *testing.T) {
	require.Equal(t, http.StatusOK, StatusCode(nil))
	require.Equal(t, http.StatusBadRequest, StatusCode(launch.ErrConfigInvalid))
	require.Equal(t, http.StatusNotFound, StatusCode(launch.ErrSaleNotFound))
	require.Equal(t, http.StatusConflict, StatusCode(launch.ErrIssuerTimelockActive))
	require.Equal(t, http.StatusInternalServerError, StatusCode(errors.New("disk on fire")))
	_, err := ParseAmount("amount", "-5")
	require.Equal(t, http.StatusBadRequest, StatusCode(err))
	v, err := ParseAmount("amount", " 42 ")
	require.NoError(t, err)
	require.Equal(t, big.NewInt(42), v)
}
