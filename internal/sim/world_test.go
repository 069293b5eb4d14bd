package sim_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/grid"
	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
	"github.com/gyaneshwarpardhi/powergrid/internal/sim"
	"github.com/gyaneshwarpardhi/powergrid/internal/source"
)

func newWorld(t *testing.T, ids ...relay.ID) *sim.World {
	t.Helper()
	w := sim.New(grid.NewRegistry(nil), nil)
	for _, id := range ids {
		_, err := w.AddRelay(id, "", nil)
		require.NoError(t, err)
	}
	return w
}

func TestWorld_AddRelay(t *testing.T) {
	w := newWorld(t, "a")

	_, err := w.AddRelay("a", "", nil)
	assert.ErrorIs(t, err, sim.ErrDuplicateRelay)

	r, err := w.AddRelay("b", "host-1", nil)
	require.NoError(t, err)
	assert.Equal(t, "host-1", r.Host().ID())
	assert.Equal(t, []relay.ID{"a", "b"}, w.RelayIDs())
}

func TestWorld_UnknownRelay(t *testing.T) {
	w := newWorld(t, "a")

	assert.ErrorIs(t, w.Connect("a", "ghost"), sim.ErrUnknownRelay)
	assert.ErrorIs(t, w.Disconnect("ghost"), sim.ErrUnknownRelay)
	assert.ErrorIs(t, w.Destroy("ghost"), sim.ErrUnknownRelay)
	_, err := w.Status("ghost")
	assert.ErrorIs(t, err, sim.ErrUnknownRelay)
}

func TestWorld_ConnectTracksNetwork(t *testing.T) {
	w := newWorld(t, "a", "b")
	require.NoError(t, w.Connect("a", "b"))

	a, _ := w.Relay("a")
	b, _ := w.Relay("b")
	assert.True(t, w.Grid().SameNetwork(a, b))
	assert.Equal(t, relay.Node(b), a.Outbound())
	require.Len(t, b.Inbound(), 1)
	assert.Equal(t, relay.EdgeRelay, b.Inbound()[0].Kind)
}

func TestWorld_ConnectRejectsLoop(t *testing.T) {
	w := newWorld(t, "a", "b", "c")
	require.NoError(t, w.Connect("a", "b"))
	require.NoError(t, w.Connect("b", "c"))

	assert.ErrorIs(t, w.Connect("c", "a"), sim.ErrRejected)
	c, _ := w.Relay("c")
	assert.Nil(t, c.Outbound())
}

func TestWorld_ConnectRejectsSibling(t *testing.T) {
	w := sim.New(grid.NewRegistry(nil), nil)
	_, err := w.AddRelay("tx-in", "tx", nil)
	require.NoError(t, err)
	_, err = w.AddRelay("tx-out", "tx", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, w.Connect("tx-out", "tx-in"), sim.ErrRejected)
}

func addOnHost(t *testing.T, w *sim.World, host string, ids ...relay.ID) {
	t.Helper()
	for _, id := range ids {
		_, err := w.AddRelay(id, host, nil)
		require.NoError(t, err)
	}
}

func TestWorld_ConnectRejectsLoopThroughHosts(t *testing.T) {
	w := sim.New(grid.NewRegistry(nil), nil)
	addOnHost(t, w, "h1", "a1", "b1")
	addOnHost(t, w, "h2", "a2", "b2")

	require.NoError(t, w.Connect("a1", "a2"))
	assert.ErrorIs(t, w.Connect("b2", "b1"), sim.ErrRejected)
	assert.ErrorIs(t, w.Connect("b1", "b2"), sim.ErrRejected)

	b2, _ := w.Relay("b2")
	assert.Nil(t, b2.Outbound())
}

func TestWorld_HostSharesOneNetwork(t *testing.T) {
	w := sim.New(grid.NewRegistry(nil), nil)
	addOnHost(t, w, "tx", "tx-in", "tx-out")
	_, err := w.AddRelay("gen", "", source.NewGenerator(25, 25, 0))
	require.NoError(t, err)
	_, err = w.AddRelay("sink", "", nil)
	require.NoError(t, err)

	require.NoError(t, w.Connect("gen", "tx-in"))
	require.NoError(t, w.Connect("tx-out", "sink"))

	require.Equal(t, 1, w.Grid().Len())
	capacity, err := w.Capacity("sink")
	require.NoError(t, err)
	assert.Equal(t, 25.0, capacity)

	ok, drawn, err := w.Draw("sink", -5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -5.0, drawn)
}

func TestWorld_ReconnectIsRedelivery(t *testing.T) {
	w := newWorld(t, "a", "b")
	require.NoError(t, w.Connect("a", "b"))
	require.NoError(t, w.Connect("a", "b"))

	b, _ := w.Relay("b")
	assert.Len(t, b.Inbound(), 1)
	assert.Equal(t, 1, w.Grid().Len())
}

func TestWorld_ConnectReplacesOutbound(t *testing.T) {
	w := newWorld(t, "a", "b", "c")
	require.NoError(t, w.Connect("a", "b"))
	require.NoError(t, w.Connect("a", "c"))

	a, _ := w.Relay("a")
	b, _ := w.Relay("b")
	c, _ := w.Relay("c")
	assert.Empty(t, b.Inbound())
	assert.True(t, w.Grid().SameNetwork(a, c))
	_, tracked := w.Grid().NetworkOf(b)
	assert.False(t, tracked)
}

func TestWorld_Disconnect(t *testing.T) {
	w := newWorld(t, "a", "b")
	require.NoError(t, w.Connect("a", "b"))
	require.NoError(t, w.Disconnect("a"))
	require.NoError(t, w.Disconnect("a"))

	assert.Equal(t, 0, w.Grid().Len())
}

func TestWorld_DestroySplitsNetwork(t *testing.T) {
	w := newWorld(t, "x", "a", "b", "c")
	require.NoError(t, w.Connect("x", "a"))
	require.NoError(t, w.Connect("a", "b"))
	require.NoError(t, w.Connect("b", "c"))

	require.NoError(t, w.Destroy("b"))

	_, ok := w.Relay("b")
	assert.False(t, ok)
	nets := w.Grid().Networks()
	require.Len(t, nets, 1)
	assert.Equal(t, []relay.ID{"a", "x"}, nets[0].Members)

	st, err := w.Status("c")
	require.NoError(t, err)
	assert.False(t, st.Tracked)

	a, _ := w.Relay("a")
	assert.Nil(t, a.Outbound())
}

func TestWorld_DrawThroughNetwork(t *testing.T) {
	w := sim.New(grid.NewRegistry(nil), nil)
	_, err := w.AddRelay("gen", "", source.NewGenerator(50, 50, 5))
	require.NoError(t, err)
	_, err = w.AddRelay("sink", "", nil)
	require.NoError(t, err)
	require.NoError(t, w.AttachSource("sink", source.NewBattery(10, 10)))

	// Untracked relays get nothing, even with a local battery.
	ok, drawn, err := w.Draw("sink", -5)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, drawn)

	require.NoError(t, w.Connect("gen", "sink"))

	capacity, err := w.Capacity("sink")
	require.NoError(t, err)
	assert.Equal(t, 60.0, capacity)

	ok, drawn, err = w.Draw("sink", -55)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, -55.0, drawn)

	level, err := w.Level("sink")
	require.NoError(t, err)
	assert.Equal(t, 5.0, level)

	w.Tick(2)
	level, err = w.Level("sink")
	require.NoError(t, err)
	assert.Equal(t, 15.0, level)
}

func TestWorld_Status(t *testing.T) {
	w := sim.New(grid.NewRegistry(nil), nil)
	_, err := w.AddRelay("gen", "plant", source.NewGenerator(20, 20, 0))
	require.NoError(t, err)
	_, err = w.AddRelay("sink", "", nil)
	require.NoError(t, err)
	require.NoError(t, w.Connect("gen", "sink"))

	st, err := w.Status("gen")
	require.NoError(t, err)
	assert.Equal(t, relay.ID("gen"), st.ID)
	assert.Equal(t, "plant", st.Host)
	assert.Equal(t, relay.ID("sink"), st.Outbound)
	assert.True(t, st.Tracked)
	assert.NotZero(t, st.Network)
	assert.True(t, st.Source)
	assert.Equal(t, 20.0, st.Capacity)
}

func TestBuild(t *testing.T) {
	cfg, err := config.Parse([]byte(`
version: v1
relays:
  - id: gen
    internal_source: {kind: generator, params: {max_power: 40}}
  - id: tx-in
    host: tx
  - id: tx-out
    host: tx
  - id: sink
    leaf_sources:
      - {kind: battery, params: {capacity: 10, charge: 4}}
connections:
  - {from: gen, to: tx-in}
  - {from: tx-out, to: sink}
`))
	require.NoError(t, err)
	kinds := source.Defaults()
	require.NoError(t, config.Validate(cfg, kinds))

	w, err := sim.Build(cfg, kinds, nil)
	require.NoError(t, err)
	t.Cleanup(w.Close)

	assert.Equal(t, []relay.ID{"gen", "sink", "tx-in", "tx-out"}, w.RelayIDs())
	assert.Equal(t, 1, w.Grid().Len())
	assert.True(t, w.Grid().IsSource("gen"))

	level, err := w.Level("sink")
	require.NoError(t, err)
	assert.Equal(t, 44.0, level)
}

func TestBuild_RejectedConnection(t *testing.T) {
	cfg := &config.GridConfig{
		Version: "v1",
		Relays:  []config.RelayDef{{ID: "a", Host: "h"}, {ID: "b", Host: "h"}},
		Connections: []config.Connection{
			{From: "a", To: "b"},
		},
	}
	_, err := sim.Build(cfg, source.Defaults(), nil)
	assert.ErrorIs(t, err, sim.ErrRejected)
}
