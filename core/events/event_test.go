package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

type recorder struct{ types []string }

func (r *recorder) Emit(evt Event) { r.types = append(r.types, evt.EventType()) }

func TestTransferEventAttributes(t *testing.T) {
	evt := Transfer{
		Asset:  common.HexToAddress("0x01"),
		From:   common.HexToAddress("0x0A"),
		To:     common.HexToAddress("0x0B"),
		Amount: big.NewInt(250),
	}.Event()
	if evt.Type != TypeTransfer {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["amount"] != "250" {
		t.Fatalf("unexpected amount attr: %s", evt.Attributes["amount"])
	}
	if evt.Attributes["from"] != "0x000000000000000000000000000000000000000a" {
		t.Fatalf("unexpected from attr: %s", evt.Attributes["from"])
	}
}

func TestBufferFlushAndReset(t *testing.T) {
	var buf Buffer
	buf.Emit(Mint{Amount: big.NewInt(1)})
	buf.Emit(Transfer{Amount: big.NewInt(2)})
	if got := len(buf.Events()); got != 2 {
		t.Fatalf("expected 2 buffered events, got %d", got)
	}

	rec := &recorder{}
	flushed := buf.Flush(Fanout{rec, NoopEmitter{}, nil})
	if len(flushed) != 2 || len(rec.types) != 2 {
		t.Fatalf("expected both events forwarded, got %v", rec.types)
	}
	if rec.types[0] != TypeMint || rec.types[1] != TypeTransfer {
		t.Fatalf("unexpected order: %v", rec.types)
	}
	if len(buf.Events()) != 0 {
		t.Fatalf("buffer not cleared after flush")
	}

	buf.Emit(Mint{})
	buf.Reset()
	if len(buf.Flush(rec)) != 0 {
		t.Fatalf("reset buffer should flush nothing")
	}
}

type bare struct{}

func (bare) EventType() string { return "bare" }

func TestMaterialize(t *testing.T) {
	raw := Materialize(Mint{Amount: big.NewInt(7)})
	if raw.Type != TypeMint || raw.Attributes["amount"] != "7" {
		t.Fatalf("unexpected payload: %+v", raw)
	}
	if got := Materialize(bare{}); got.Type != "bare" || len(got.Attributes) != 0 {
		t.Fatalf("unexpected bare payload: %+v", got)
	}
	if Materialize(nil) != nil {
		t.Fatalf("nil event should materialize to nil")
	}
}
