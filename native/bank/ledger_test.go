package bank

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/state"
	"github.com/voltfinance/voltage-launchpad/storage"
)

func newLedger(t *testing.T) (*Ledger, *events.Buffer) {
	t.Helper()
	ledger := NewLedger(state.NewManager(storage.NewMemDB()))
	buf := &events.Buffer{}
	ledger.SetEmitter(buf)
	return ledger, buf
}

func mustBalance(t *testing.T, ledger *Ledger, asset, holder common.Address) int64 {
	t.Helper()
	bal, err := ledger.BalanceOf(asset, holder)
	if err != nil {
		t.Fatalf("balance of %s: %v", holder.Hex(), err)
	}
	return bal.Int64()
}

func TestRegisterAsset(t *testing.T) {
	ledger, buf := newLedger(t)
	token := common.HexToAddress("0x10")

	asset, err := ledger.RegisterAsset(token, " volt ", 18)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if asset.Symbol != "VOLT" {
		t.Fatalf("expected normalised symbol VOLT, got %q", asset.Symbol)
	}
	if !ledger.Exists(token) {
		t.Fatalf("registered asset not found")
	}

	if _, err := ledger.RegisterAsset(token, "VOLT", 18); !errors.Is(err, ErrAssetExists) {
		t.Fatalf("expected ErrAssetExists, got %v", err)
	}
	if _, err := ledger.RegisterAsset(common.HexToAddress("0x11"), "BIG", MaxDecimals+1); err == nil {
		t.Fatalf("expected decimals above %d to be rejected", MaxDecimals)
	}

	assets, err := ledger.Assets()
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	if len(assets) != 1 {
		t.Fatalf("expected 1 asset, got %d", len(assets))
	}
	if n := len(buf.Events()); n != 1 {
		t.Fatalf("expected 1 event, got %d", n)
	}
}

func TestMintAndTransfer(t *testing.T) {
	ledger, buf := newLedger(t)
	token := common.HexToAddress("0x10")
	alice := common.HexToAddress("0xA1")
	bob := common.HexToAddress("0xB0")
	if _, err := ledger.RegisterAsset(token, "USDC", 6); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := ledger.Mint(token, alice, big.NewInt(1_000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer(token, alice, bob, big.NewInt(400)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := mustBalance(t, ledger, token, alice); got != 600 {
		t.Fatalf("alice balance: expected 600, got %d", got)
	}
	if got := mustBalance(t, ledger, token, bob); got != 400 {
		t.Fatalf("bob balance: expected 400, got %d", got)
	}

	supply, err := ledger.TotalSupply(token)
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Int64() != 1_000 {
		t.Fatalf("supply: expected 1000, got %s", supply)
	}

	if err := ledger.Transfer(token, bob, alice, big.NewInt(401)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Transfer(token, bob, alice, big.NewInt(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	var types []string
	for _, evt := range buf.Events() {
		types = append(types, evt.EventType())
	}
	want := []string{events.TypeAssetRegistered, events.TypeMint, events.TypeTransfer}
	if !reflect.DeepEqual(want, types) {
		t.Fatalf("unexpected events: %v", types)
	}
}

func TestUnknownAsset(t *testing.T) {
	ledger, _ := newLedger(t)
	if _, err := ledger.BalanceOf(common.HexToAddress("0x99"), common.HexToAddress("0x01")); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("balance: expected ErrAssetNotFound, got %v", err)
	}
	if _, err := ledger.Decimals(common.HexToAddress("0x99")); !errors.Is(err, ErrAssetNotFound) {
		t.Fatalf("decimals: expected ErrAssetNotFound, got %v", err)
	}
}
