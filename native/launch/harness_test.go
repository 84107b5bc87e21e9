package launch

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/state"
	"github.com/voltfinance/voltage-launchpad/native/amm"
	"github.com/voltfinance/voltage-launchpad/native/bank"
	"github.com/voltfinance/voltage-launchpad/storage"
)

const (
	genesis = int64(1_700_000_000)
	hour    = int64(60 * 60)
)

func addr(last byte) common.Address {
	var a common.Address
	a[19] = last
	return a
}

func ether(v string) *big.Int {
	r, ok := new(big.Rat).SetString(v)
	if !ok {
		panic("bad ether literal " + v)
	}
	r.Mul(r, new(big.Rat).SetInt(Wad))
	if !r.IsInt() {
		panic("ether literal has too many decimals " + v)
	}
	return new(big.Int).Set(r.Num())
}

var (
	owner     = addr(0x01)
	issuer    = addr(0x02)
	collector = addr(0x03)
	alice     = addr(0x0A)
	bob       = addr(0x0B)
	funder    = addr(0x0F)
	wvolt     = addr(0xE0)
	saleToken = addr(0xE1)
	registry  = addr(0xE2)
)

type stakeSet map[common.Address]bool

func (s stakeSet) IsStaked(a common.Address) (bool, error) { return s[a], nil }

type harness struct {
	t       *testing.T
	now     int64
	mgr     *state.Manager
	bank    *bank.Ledger
	amm     *amm.Factory
	stakes  stakeSet
	events  *events.Buffer
	factory *Factory
}

func newHarness(t *testing.T, saleDecimals uint8) *harness {
	t.Helper()
	h := &harness{t: t, now: genesis, stakes: stakeSet{}, events: &events.Buffer{}}
	h.mgr = state.NewManager(storage.NewMemDB())
	h.bank = bank.NewLedger(h.mgr)
	h.amm = amm.NewFactory(h.mgr, h.bank)

	_, err := h.bank.RegisterAsset(wvolt, "WVOLT", 18)
	require.NoError(t, err)
	_, err = h.bank.RegisterAsset(saleToken, "AUC", saleDecimals)
	require.NoError(t, err)

	h.factory = NewFactory(FactoryConfig{
		Owner:            owner,
		ReserveAsset:     wvolt,
		PenaltyCollector: collector,
		StakeRegistry:    registry,
		Params:           DefaultParams(),
	})
	h.factory.SetState(h.mgr)
	h.factory.SetAssets(h.bank)
	h.factory.SetAMM(h.amm)
	h.factory.SetStakeView(h.stakes)
	h.factory.SetEmitter(h.events)
	h.factory.SetNowFunc(func() int64 { return h.now })

	for _, who := range []common.Address{alice, bob} {
		require.NoError(t, h.bank.Mint(wvolt, who, ether("100")))
	}
	return h
}

// defaultRequest sells 100 tokens plus 5 incentive tokens at a floor of
// 0.01 reserve per token, so one reserve unit clears the whole sale.
func (h *harness) defaultRequest() CreateSaleRequest {
	return CreateSaleRequest{
		Issuer:                         issuer,
		SaleAsset:                      saleToken,
		PhaseOneStart:                  h.now + 60,
		TokenAmountIncludingIncentives: ether("105"),
		IncentivesPercent:              ether("0.05"),
		FloorPrice:                     ether("0.01"),
		MaxWithdrawPenalty:             ether("0.5"),
		FixedWithdrawPenalty:           ether("0.4"),
		MaxUnstakedAllocation:          ether("2"),
		MaxStakedAllocation:            ether("10"),
		UserTimelock:                   7 * day,
		IssuerTimelock:                 8 * day,
	}
}

func (h *harness) create(req CreateSaleRequest) *Engine {
	h.t.Helper()
	require.NoError(h.t, h.bank.Mint(req.SaleAsset, funder, req.TokenAmountIncludingIncentives))
	engine, err := h.factory.CreateSale(funder, req)
	require.NoError(h.t, err)
	return engine
}

func (h *harness) start() int64 {
	h.t.Helper()
	engine, err := h.factory.Engine(saleToken)
	require.NoError(h.t, err)
	sale, err := engine.Sale()
	require.NoError(h.t, err)
	return sale.Config.PhaseOneStart
}

// at moves the clock to offset seconds after phase one opens.
func (h *harness) at(offset int64) { h.now = h.start() + offset }

func (h *harness) balance(asset, holder common.Address) *big.Int {
	h.t.Helper()
	bal, err := h.bank.BalanceOf(asset, holder)
	require.NoError(h.t, err)
	return bal
}

func (h *harness) eventTypes() []string {
	var out []string
	for _, evt := range h.events.Events() {
		out = append(out, evt.EventType())
	}
	return out
}

func requireBig(t *testing.T, want, got *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.Equal(t, want.String(), got.String(), msgAndArgs...)
}
