package grid

import (
	"log/slog"
	"sort"

	"github.com/tidwall/btree"

	"github.com/gyaneshwarpardhi/powergrid/internal/metrics"
	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
)

// NetworkID identifies a live network. IDs are never reused within a
// Registry.
type NetworkID uint64

// network is a maximal set of mutually connected relays.
type network struct {
	id        NetworkID
	members   *btree.BTreeG[relay.ID]
	suppliers *Suppliers
}

func idLess(a, b relay.ID) bool { return a < b }

func (n *network) size() int { return n.members.Len() }

func (n *network) ids() []relay.ID {
	out := make([]relay.ID, 0, n.members.Len())
	n.members.Scan(func(id relay.ID) bool {
		out = append(out, id)
		return true
	})
	return out
}

// NetworkInfo is a read-only snapshot of one network.
type NetworkInfo struct {
	ID      NetworkID  `json:"id"`
	Members []relay.ID `json:"members"`
	Sources []relay.ID `json:"sources"`
}

// Registry partitions relays into networks as edges come and go.
// It is not safe for concurrent use: the owning simulation calls it from a
// single update loop.
type Registry struct {
	logger   *slog.Logger
	byRelay  map[relay.ID]*network
	networks map[NetworkID]*network
	sources  map[relay.ID]relay.Node
	nextID   NetworkID
	empty    *Suppliers
}

// NewRegistry returns an empty Registry. A nil logger means slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		logger:   logger,
		byRelay:  make(map[relay.ID]*network),
		networks: make(map[NetworkID]*network),
		sources:  make(map[relay.ID]relay.Node),
	}
	r.empty = emptySuppliers(r)
	return r
}

// Connect reconciles membership after an edge from -> to was installed.
// Redelivered notifications for an already connected pair are no-ops.
// Tracked siblings of either endpoint are pulled into the resulting network,
// so a network always equals the Both component of each of its members.
func (r *Registry) Connect(from, to relay.Node) error {
	if from == nil || to == nil || from.ID() == to.ID() {
		return nil
	}
	r.registerSource(from)
	r.registerSource(to)

	fromNet, toNet := r.byRelay[from.ID()], r.byRelay[to.ID()]
	if fromNet != nil && fromNet == toNet {
		return nil
	}
	if err := r.join(from, to, fromNet, toNet); err != nil {
		return err
	}
	return r.absorbSiblings(from, to)
}

func (r *Registry) join(from, to relay.Node, fromNet, toNet *network) error {
	switch {
	case fromNet == nil && toNet == nil:
		n := r.create()
		if err := r.add(to.ID(), n); err != nil {
			return err
		}
		return r.add(from.ID(), n)
	case fromNet == nil:
		return r.add(from.ID(), toNet)
	case toNet == nil:
		return r.add(to.ID(), fromNet)
	default:
		return r.union(fromNet, toNet)
	}
}

// union merges the smaller network into the larger one. Equal sizes merge
// b into a.
func (r *Registry) union(a, b *network) error {
	if b.size() > a.size() {
		return r.merge(b, a)
	}
	return r.merge(a, b)
}

// absorbSiblings merges the network of every tracked relay sharing a host
// with one of nodes into that node's network.
func (r *Registry) absorbSiblings(nodes ...relay.Node) error {
	for _, n := range nodes {
		for _, s := range n.Siblings() {
			if s == nil {
				continue
			}
			own, other := r.byRelay[n.ID()], r.byRelay[s.ID()]
			if own == nil || other == nil || own == other {
				continue
			}
			if err := r.union(own, other); err != nil {
				return err
			}
		}
	}
	return nil
}

// Disconnect reconciles membership after the edge from -> to was removed.
// The shared network is discarded and rebuilt from the current topology on
// each side; a side left with a single relay becomes untracked.
func (r *Registry) Disconnect(from, to relay.Node) error {
	if from == nil || to == nil {
		return nil
	}
	shared := r.byRelay[from.ID()]
	if shared == nil || shared != r.byRelay[to.ID()] {
		return nil
	}

	before := shared.ids()
	r.logger.Debug("splitting network", "network", shared.id, "size", len(before),
		"from", relay.Describe(from), "to", relay.Describe(to))
	for _, id := range before {
		r.remove(id)
	}

	assigned := make(map[relay.ID]struct{}, len(before))
	for _, side := range []relay.Node{from, to} {
		if _, ok := assigned[side.ID()]; ok {
			continue
		}
		component := Connected(side, Both)
		for _, n := range component {
			assigned[n.ID()] = struct{}{}
		}
		if len(component) < 2 {
			r.logger.Debug("relay isolated, untracking", "relay", relay.Describe(side))
			continue
		}
		if err := r.build(component); err != nil {
			return err
		}
	}

	for _, id := range before {
		if _, ok := assigned[id]; !ok {
			r.logger.Warn("relay unreachable after split, untracking", "relay", id, "network", shared.id)
		}
	}
	metrics.NetworkSplits.Inc()
	return nil
}

// Destroy forgets n: it leaves its network and the source index. Remaining
// members are not rebuilt; the caller severs the relay's edges first and
// those disconnects do the rebuild.
func (r *Registry) Destroy(n relay.Node) {
	if n == nil {
		return
	}
	id := n.ID()
	r.logger.Debug("destroying relay", "relay", relay.Describe(n))
	r.remove(id)
	delete(r.sources, id)
	metrics.RelaysDestroyed.Inc()
}

// SameNetwork reports whether a and b are both tracked in the same network.
func (r *Registry) SameNetwork(a, b relay.Node) bool {
	if a == nil || b == nil {
		return false
	}
	na := r.byRelay[a.ID()]
	return na != nil && na == r.byRelay[b.ID()]
}

// CanConnect reports whether from may deliver power to to. Relays on the
// same host never connect to each other, and the hosts of from and to may
// not already share a network unless to is from's current consumer: that
// edge would close a loop through the hosts.
func (r *Registry) CanConnect(from, to relay.Node) bool {
	if from == nil || to == nil || from.ID() == to.ID() {
		return false
	}
	for _, s := range from.Siblings() {
		if s != nil && s.ID() == to.ID() {
			return false
		}
	}
	if cur := from.Outbound(); cur != nil && cur.ID() == to.ID() {
		return true
	}
	a := r.hostNetwork(from)
	return a == nil || a != r.hostNetwork(to)
}

// hostNetwork returns the network of n, or of any tracked relay on its host.
func (r *Registry) hostNetwork(n relay.Node) *network {
	if net := r.byRelay[n.ID()]; net != nil {
		return net
	}
	for _, s := range n.Siblings() {
		if s == nil {
			continue
		}
		if net := r.byRelay[s.ID()]; net != nil {
			return net
		}
	}
	return nil
}

// Suppliers returns the supplier registry for n's network, or the empty one
// when n is untracked.
func (r *Registry) Suppliers(n relay.Node) *Suppliers {
	if n == nil {
		return r.empty
	}
	if net := r.byRelay[n.ID()]; net != nil {
		return net.suppliers
	}
	return r.empty
}

// NetworkOf returns the network n belongs to.
func (r *Registry) NetworkOf(n relay.Node) (NetworkID, bool) {
	if n == nil {
		return 0, false
	}
	if net := r.byRelay[n.ID()]; net != nil {
		return net.id, true
	}
	return 0, false
}

// IsSource reports whether id has been registered as an internal source.
func (r *Registry) IsSource(id relay.ID) bool {
	_, ok := r.sources[id]
	return ok
}

// Len returns the number of live networks.
func (r *Registry) Len() int { return len(r.networks) }

// Networks returns a snapshot of every live network, ordered by ID.
func (r *Registry) Networks() []NetworkInfo {
	out := make([]NetworkInfo, 0, len(r.networks))
	for _, n := range r.networks {
		out = append(out, NetworkInfo{
			ID:      n.id,
			Members: n.ids(),
			Sources: n.suppliers.Sources(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Reset drops every network and source registration.
func (r *Registry) Reset() {
	metrics.NetworksActive.Sub(float64(len(r.networks)))
	metrics.RelaysTracked.Sub(float64(len(r.byRelay)))
	clear(r.byRelay)
	clear(r.networks)
	clear(r.sources)
}

// -----------------------------------------------------------------------
// membership bookkeeping
// -----------------------------------------------------------------------

func (r *Registry) registerSource(n relay.Node) bool {
	if !relay.HasInternalSource(n) {
		return false
	}
	if _, ok := r.sources[n.ID()]; ok {
		return false
	}
	r.sources[n.ID()] = n
	// A relay recognised as a source while already tracked joins its
	// network's active set right away.
	if net := r.byRelay[n.ID()]; net != nil {
		net.suppliers.addMember(n.ID())
	}
	return true
}

func (r *Registry) create() *network {
	r.nextID++
	n := &network{
		id:        r.nextID,
		members:   btree.NewBTreeGOptions(idLess, btree.Options{NoLocks: true}),
		suppliers: newSuppliers(r),
	}
	r.networks[n.id] = n
	metrics.NetworksActive.Inc()
	r.logger.Debug("creating network", "network", n.id)
	return n
}

func (r *Registry) drop(n *network) {
	delete(r.networks, n.id)
	metrics.NetworksActive.Dec()
	r.logger.Debug("network empty, discarding", "network", n.id)
}

func (r *Registry) add(id relay.ID, n *network) error {
	if cur, ok := r.byRelay[id]; ok {
		metrics.InvariantViolations.WithLabelValues("add").Inc()
		err := &InvariantError{Op: "add", Relay: id, Network: cur.id, Err: ErrAlreadyTracked}
		r.logger.Error("membership invariant violated", "err", err, "target", n.id)
		if n.size() == 0 {
			r.drop(n)
		}
		return err
	}
	r.logger.Debug("adding relay to network", "relay", id, "network", n.id)
	r.byRelay[id] = n
	n.members.Set(id)
	n.suppliers.addMember(id)
	metrics.RelaysTracked.Inc()
	return nil
}

func (r *Registry) remove(id relay.ID) {
	n, ok := r.byRelay[id]
	if !ok {
		return
	}
	r.logger.Debug("removing relay from network", "relay", id, "network", n.id)
	delete(r.byRelay, id)
	n.members.Delete(id)
	n.suppliers.removeMember(id)
	metrics.RelaysTracked.Dec()
	if n.size() == 0 {
		r.drop(n)
	}
}

func (r *Registry) merge(parent, child *network) error {
	r.logger.Debug("merging network", "child", child.id, "child_size", child.size(),
		"parent", parent.id, "parent_size", parent.size())
	for _, id := range child.ids() {
		r.remove(id)
		if err := r.add(id, parent); err != nil {
			return err
		}
	}
	metrics.NetworkMerges.Inc()
	return nil
}

// build places a freshly traversed component into a new network, pulling
// each relay out of whatever network it was in.
func (r *Registry) build(component []relay.Node) error {
	n := r.create()
	r.logger.Debug("building network", "network", n.id, "relays", len(component))
	for _, node := range component {
		r.registerSource(node)
		r.remove(node.ID())
		if err := r.add(node.ID(), n); err != nil {
			return err
		}
	}
	return nil
}
