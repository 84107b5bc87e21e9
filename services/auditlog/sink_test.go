package auditlog

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/voltfinance/voltage-launchpad/core/events"
	"github.com/voltfinance/voltage-launchpad/core/types"
)

type archived struct{ evt *types.Event }

func (a archived) EventType() string   { return a.evt.Type }
func (a archived) Event() *types.Event { return a.evt }

func openSink(t *testing.T) *Sink {
	t.Helper()
	sink, err := Open(filepath.Join(t.TempDir(), "audit.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sink.Close() })
	return sink
}

func TestSinkArchivesBySale(t *testing.T) {
	sink := openSink(t)
	base := time.Unix(1_700_000_000, 0)
	tick := 0
	sink.SetNowFunc(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})

	sale := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	other := common.HexToAddress("0x00000000000000000000000000000000000000e2")
	var emitter events.Emitter = sink
	for i := 0; i < 3; i++ {
		emitter.Emit(archived{&types.Event{Type: "launch.user.participated", Attributes: map[string]string{
			"sale":   sale.Hex(),
			"amount": fmt.Sprint(i),
		}}})
	}
	emitter.Emit(archived{&types.Event{Type: "launch.stopped", Attributes: map[string]string{"sale": other.Hex()}}})

	records, err := sink.List(sale, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "2", records[0].Attrs()["amount"])
	require.Equal(t, "1", records[1].Attrs()["amount"])
	require.NotEqual(t, records[0].ID, records[1].ID)
	require.True(t, records[0].CreatedAt.After(records[1].CreatedAt))

	records, err = sink.List(other, 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "launch.stopped", records[0].Type)
	require.Zero(t, sink.Failures())
}

func TestDialectorSelection(t *testing.T) {
	require.Equal(t, "postgres", Dialector("postgres://user@localhost/db").Name())
	require.Equal(t, "sqlite", Dialector("file.db").Name())
}
