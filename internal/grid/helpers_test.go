package grid_test

import (
	"sort"
	"testing"

	"github.com/gyaneshwarpardhi/powergrid/internal/grid"
	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
)

// node is an in-memory relay.Node for tests.
type node struct {
	id   relay.ID
	out  *node
	in   []relay.Edge
	src  relay.PowerSource
	sibs []*node
}

func (n *node) ID() relay.ID { return n.id }
func (n *node) Outbound() relay.Node {
	if n.out == nil {
		return nil
	}
	return n.out
}
func (n *node) Inbound() []relay.Edge             { return n.in }
func (n *node) InternalSource() relay.PowerSource { return n.src }
func (n *node) Siblings() []relay.Node {
	out := make([]relay.Node, 0, len(n.sibs))
	for _, s := range n.sibs {
		out = append(out, s)
	}
	return out
}

// topo is a tiny topology layer that keeps a registry informed the way a
// simulation host would.
type topo struct {
	t     *testing.T
	reg   *grid.Registry
	nodes map[string]*node
}

func newTopo(t *testing.T, ids ...string) *topo {
	t.Helper()
	tp := &topo{t: t, reg: grid.NewRegistry(nil), nodes: make(map[string]*node)}
	for _, id := range ids {
		tp.nodes[id] = &node{id: relay.ID(id)}
	}
	return tp
}

func (tp *topo) n(id string) *node {
	tp.t.Helper()
	n, ok := tp.nodes[id]
	if !ok {
		tp.t.Fatalf("unknown node %q", id)
	}
	return n
}

// link installs from -> to and notifies the registry.
func (tp *topo) link(from, to string) {
	tp.t.Helper()
	f, c := tp.n(from), tp.n(to)
	f.out = c
	c.in = append(c.in, relay.RelayEdge(f))
	if err := tp.reg.Connect(f, c); err != nil {
		tp.t.Fatalf("connect %s -> %s: %v", from, to, err)
	}
}

// unlink removes from's outbound edge and notifies the registry.
func (tp *topo) unlink(from string) {
	tp.t.Helper()
	f := tp.n(from)
	c := f.out
	if c == nil {
		return
	}
	f.out = nil
	kept := c.in[:0]
	for _, e := range c.in {
		if e.Kind == relay.EdgeRelay && e.Relay == relay.Node(f) {
			continue
		}
		kept = append(kept, e)
	}
	c.in = kept
	if err := tp.reg.Disconnect(f, c); err != nil {
		tp.t.Fatalf("disconnect %s -> %s: %v", from, c.id, err)
	}
}

// siblings puts the given nodes on one host.
func (tp *topo) siblings(ids ...string) {
	for _, id := range ids {
		n := tp.n(id)
		n.sibs = nil
		for _, other := range ids {
			if other != id {
				n.sibs = append(n.sibs, tp.n(other))
			}
		}
	}
}

func (tp *topo) members(id string) []string {
	tp.t.Helper()
	netID, ok := tp.reg.NetworkOf(tp.n(id))
	if !ok {
		return nil
	}
	for _, info := range tp.reg.Networks() {
		if info.ID == netID {
			out := make([]string, len(info.Members))
			for i, m := range info.Members {
				out[i] = string(m)
			}
			return out
		}
	}
	tp.t.Fatalf("network %d of %s not listed", netID, id)
	return nil
}

func ids(nodes []relay.Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = string(n.ID())
	}
	sort.Strings(out)
	return out
}

// fixedSource always reports the given values and applies nothing.
type fixedSource struct {
	max, level float64
}

func (s *fixedSource) MaxPower() float64 { return s.max }
func (s *fixedSource) Power() float64    { return s.level }
func (s *fixedSource) ModifyPower(float64) (float64, bool) {
	return 0, false
}

// invertingSource applies the opposite of what it is asked.
type invertingSource struct{}

func (invertingSource) MaxPower() float64 { return 1 }
func (invertingSource) Power() float64    { return 1 }
func (invertingSource) ModifyPower(amount float64) (float64, bool) {
	return -amount, true
}
