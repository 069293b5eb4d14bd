package grid

import "github.com/gyaneshwarpardhi/powergrid/internal/relay"

// Direction selects which edges Walk follows.
type Direction int

const (
	// Both follows inbound, outbound and sibling edges from every visited
	// relay, yielding the whole weakly connected component.
	Both Direction = iota
	// Inbound recurses into the relays feeding each visited relay.
	Inbound
	// Outbound follows the outbound edge of each visited relay and of
	// every sibling sharing its host.
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Both:
		return "both"
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	}
	return "unknown"
}

type step struct {
	node relay.Node
	dir  Direction
}

// Walk visits every relay reachable from start in the given direction,
// start included, calling fn once per distinct relay ID. Returning false
// from fn stops the walk. Each call starts from scratch.
func Walk(start relay.Node, dir Direction, fn func(relay.Node) bool) {
	if start == nil {
		return
	}
	seen := map[relay.ID]struct{}{start.ID(): {}}
	stack := []step{{node: start, dir: dir}}

	push := func(n relay.Node, d Direction) {
		if n == nil {
			return
		}
		if _, ok := seen[n.ID()]; ok {
			return
		}
		seen[n.ID()] = struct{}{}
		stack = append(stack, step{node: n, dir: d})
	}

	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if !fn(cur.node) {
			return
		}
		switch cur.dir {
		case Inbound:
			for _, sup := range relay.InboundRelays(cur.node) {
				push(sup, Inbound)
			}
		case Outbound:
			for _, h := range onHost(cur.node) {
				push(h.Outbound(), Outbound)
			}
		default:
			for _, h := range onHost(cur.node) {
				for _, sup := range relay.InboundRelays(h) {
					push(sup, Both)
				}
				push(h.Outbound(), Both)
			}
		}
	}
}

// Connected collects the result of Walk.
func Connected(start relay.Node, dir Direction) []relay.Node {
	var out []relay.Node
	Walk(start, dir, func(n relay.Node) bool {
		out = append(out, n)
		return true
	})
	return out
}

// onHost returns n followed by its siblings.
func onHost(n relay.Node) []relay.Node {
	sibs := n.Siblings()
	out := make([]relay.Node, 0, len(sibs)+1)
	out = append(out, n)
	for _, s := range sibs {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}
