package relay

import "fmt"

// ID is the stable, process-unique identifier of a relay. It must stay
// derivable while the relay is being destroyed.
type ID string

// PowerSource is anything that can hold or produce power.
// Negative amounts draw power, positive amounts return it.
type PowerSource interface {
	MaxPower() float64
	Power() float64
	// ModifyPower applies amount and reports how much was actually applied.
	// ok is true when the whole amount was satisfied.
	ModifyPower(amount float64) (modified float64, ok bool)
}

// Node is the narrow view of a simulated relay that the grid consumes.
// Implementations must return an untyped nil (not a typed nil pointer)
// from Outbound and InternalSource when there is nothing to return.
type Node interface {
	ID() ID
	// Outbound is the single consumer this relay delivers power to, or nil.
	Outbound() Node
	// Inbound lists everything feeding this relay.
	Inbound() []Edge
	// InternalSource is the relay's own power source, or nil.
	InternalSource() PowerSource
	// Siblings are the other relays on the same host, excluding this one.
	Siblings() []Node
}

// EdgeKind discriminates inbound edges.
type EdgeKind uint8

const (
	EdgeRelay EdgeKind = iota + 1
	EdgeLeaf
)

func (k EdgeKind) String() string {
	switch k {
	case EdgeRelay:
		return "relay"
	case EdgeLeaf:
		return "leaf"
	}
	return fmt.Sprintf("EdgeKind(%d)", uint8(k))
}

// Edge is an inbound connection. Exactly one of Relay or Source is set,
// matching Kind.
type Edge struct {
	Kind   EdgeKind
	Relay  Node
	Source PowerSource
}

// RelayEdge is an inbound edge from another managed relay.
func RelayEdge(n Node) Edge { return Edge{Kind: EdgeRelay, Relay: n} }

// LeafEdge is an inbound edge from a battery, generator or other
// non-relay source attached directly to the relay.
func LeafEdge(s PowerSource) Edge { return Edge{Kind: EdgeLeaf, Source: s} }

// HasInternalSource reports whether n can originate power itself.
func HasInternalSource(n Node) bool {
	return n != nil && n.InternalSource() != nil
}

// InboundRelays returns the managed relays feeding n.
func InboundRelays(n Node) []Node {
	var out []Node
	for _, e := range n.Inbound() {
		if e.Kind == EdgeRelay && e.Relay != nil {
			out = append(out, e.Relay)
		}
	}
	return out
}

// LeafSources returns the non-relay sources attached directly to n.
func LeafSources(n Node) []PowerSource {
	var out []PowerSource
	for _, e := range n.Inbound() {
		if e.Kind == EdgeLeaf && e.Source != nil {
			out = append(out, e.Source)
		}
	}
	return out
}

// Describe renders a short label for log lines.
func Describe(n Node) string {
	if n == nil {
		return "(nil)"
	}
	id := string(n.ID())
	if len(id) > 8 {
		id = id[:8]
	}
	if HasInternalSource(n) {
		return "src " + id
	}
	return "rly " + id
}
