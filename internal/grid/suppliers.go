package grid

import (
	"fmt"

	"github.com/tidwall/btree"

	"github.com/gyaneshwarpardhi/powergrid/internal/metrics"
	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
)

// sourceEntry is an active internal source, ordered by relay ID.
type sourceEntry struct {
	id   relay.ID
	node relay.Node
}

func sourceLess(a, b sourceEntry) bool { return a.id < b.id }

// Suppliers aggregates power across the internal sources of one network.
// Leaf sources attached to the querying relay are added on top, since they
// are local to that relay and not part of the network.
//
// The source index lives on the Registry and is shared by all of its
// Suppliers, so knowing whether an ID is a source does not depend on
// network membership.
type Suppliers struct {
	reg    *Registry
	active *btree.BTreeG[sourceEntry]
	empty  bool
}

func newSuppliers(reg *Registry) *Suppliers {
	return &Suppliers{
		reg:    reg,
		active: btree.NewBTreeGOptions(sourceLess, btree.Options{NoLocks: true}),
	}
}

// emptySuppliers is handed out for untracked relays: zero capacity and
// every draw declined.
func emptySuppliers(reg *Registry) *Suppliers {
	s := newSuppliers(reg)
	s.empty = true
	return s
}

// IsEmpty reports whether this is the placeholder for untracked relays.
func (s *Suppliers) IsEmpty() bool { return s.empty }

// RegisterSource records n as able to originate power. It is idempotent
// and keyed by ID; relays without an internal source are ignored.
func (s *Suppliers) RegisterSource(n relay.Node) bool {
	if s.reg == nil {
		return false
	}
	return s.reg.registerSource(n)
}

func (s *Suppliers) addMember(id relay.ID) {
	if n, ok := s.reg.sources[id]; ok {
		s.active.Set(sourceEntry{id: id, node: n})
	}
}

func (s *Suppliers) removeMember(id relay.ID) {
	s.active.Delete(sourceEntry{id: id})
}

// Sources lists the active internal sources in draw order.
func (s *Suppliers) Sources() []relay.ID {
	out := make([]relay.ID, 0, s.active.Len())
	s.active.Scan(func(e sourceEntry) bool {
		out = append(out, e.id)
		return true
	})
	return out
}

// Capacity sums the maximum output of the network's sources and of the
// leaf sources attached to q.
func (s *Suppliers) Capacity(q relay.Node) float64 {
	var total float64
	for _, src := range s.collect(q) {
		total += src.MaxPower()
	}
	return total
}

// Level sums the power currently available, scoped like Capacity.
func (s *Suppliers) Level(q relay.Node) float64 {
	var total float64
	for _, src := range s.collect(q) {
		total += src.Power()
	}
	return total
}

// Draw asks the sources in order to absorb amount (negative draws power,
// positive returns it), stopping at the first source that reports it
// satisfied the remainder. It returns whether the request was satisfied and
// the total actually applied. A total whose sign differs from amount is an
// invariant violation.
func (s *Suppliers) Draw(q relay.Node, amount float64) (bool, float64, error) {
	if s.empty || q == nil {
		metrics.DrawRequests.WithLabelValues("declined").Inc()
		return false, 0, nil
	}
	var (
		ok        bool
		drawn     float64
		remaining = amount
	)
	for _, src := range s.collect(q) {
		var m float64
		m, ok = src.ModifyPower(remaining)
		drawn += m
		remaining -= m
		if ok {
			break
		}
	}
	if !sameSign(amount, drawn) {
		metrics.InvariantViolations.WithLabelValues("draw").Inc()
		return ok, drawn, &InvariantError{
			Op:     "draw",
			Relay:  q.ID(),
			Detail: fmt.Sprintf("requested %g, applied %g", amount, drawn),
			Err:    ErrSignMismatch,
		}
	}
	if ok {
		metrics.DrawRequests.WithLabelValues("satisfied").Inc()
	} else {
		metrics.DrawRequests.WithLabelValues("partial").Inc()
	}
	return ok, drawn, nil
}

func (s *Suppliers) collect(q relay.Node) []relay.PowerSource {
	if s.empty || q == nil {
		return nil
	}
	out := make([]relay.PowerSource, 0, s.active.Len())
	s.active.Scan(func(e sourceEntry) bool {
		if src := e.node.InternalSource(); src != nil {
			out = append(out, src)
		}
		return true
	})
	return append(out, relay.LeafSources(q)...)
}

// sameSign accepts an applied amount of zero for any request.
func sameSign(requested, applied float64) bool {
	if applied == 0 {
		return true
	}
	return requested != 0 && (requested < 0) == (applied < 0)
}
