package launchpad

import (
	"io"
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/native/launch"
	"github.com/voltfinance/voltage-launchpad/storage"
)

const (
	genesis = int64(1_700_000_000)
	day     = int64(24 * 60 * 60)
)

var (
	owner     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	issuer    = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	collector = common.HexToAddress("0x00000000000000000000000000000000000000a3")
	alice     = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	bob       = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	wvolt     = common.HexToAddress("0x00000000000000000000000000000000000000e0")
	volt      = common.HexToAddress("0x00000000000000000000000000000000000000e9")
	saleToken = common.HexToAddress("0x00000000000000000000000000000000000000e1")
)

func ether(whole int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(whole), launch.Wad)
}

func milli(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1_000_000_000_000_000))
}

type fixture struct {
	t     *testing.T
	db    *storage.MemDB
	svc   *Service
	sink  *events.Buffer
	clock int64
}

func newFixture(t *testing.T, sinks ...events.Emitter) *fixture {
	t.Helper()
	f := &fixture{t: t, db: storage.NewMemDB(), sink: &events.Buffer{}, clock: genesis}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := New(f.db, Config{
		Factory: launch.FactoryConfig{Owner: owner, PenaltyCollector: collector, Params: launch.DefaultParams()},
		Reserve: AssetSpec{Address: wvolt, Symbol: "WVOLT", Decimals: 18},
		Stake:   AssetSpec{Address: volt, Symbol: "VOLT", Decimals: 18},
	}, logger, append([]events.Emitter{f.sink}, sinks...)...)
	require.NoError(t, err)
	svc.SetNowFunc(func() int64 { return f.clock })
	f.svc = svc
	return f
}

func (f *fixture) saleBody() CreateSaleBody {
	return CreateSaleBody{
		Issuer:                issuer.Hex(),
		SaleAsset:             saleToken.Hex(),
		PhaseOneStart:         f.clock + 60,
		TokenAmount:           ether(105).String(),
		IncentivesPercent:     milli(50).String(),
		FloorPrice:            milli(10).String(),
		MaxWithdrawPenalty:    milli(500).String(),
		FixedWithdrawPenalty:  milli(400).String(),
		MaxUnstakedAllocation: ether(2).String(),
		MaxStakedAllocation:   ether(10).String(),
		UserTimelock:          7 * day,
		IssuerTimelock:        8 * day,
	}
}
