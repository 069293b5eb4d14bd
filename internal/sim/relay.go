package sim

import "github.com/gyaneshwarpardhi/powergrid/internal/relay"

// Host is a physical object carrying one or more relays.
type Host struct {
	id     string
	relays []*Relay
}

func (h *Host) ID() string { return h.id }

// Relay is the simulation's relay. It implements relay.Node.
type Relay struct {
	id       relay.ID
	host     *Host
	outbound *Relay
	inbound  []relay.Edge
	internal relay.PowerSource
}

func (r *Relay) ID() relay.ID { return r.id }

func (r *Relay) Host() *Host { return r.host }

func (r *Relay) Outbound() relay.Node {
	if r.outbound == nil {
		return nil
	}
	return r.outbound
}

func (r *Relay) Inbound() []relay.Edge { return r.inbound }

func (r *Relay) InternalSource() relay.PowerSource { return r.internal }

func (r *Relay) Siblings() []relay.Node {
	if r.host == nil {
		return nil
	}
	var out []relay.Node
	for _, s := range r.host.relays {
		if s != r {
			out = append(out, s)
		}
	}
	return out
}

func (r *Relay) removeInbound(from *Relay) {
	kept := r.inbound[:0]
	for _, e := range r.inbound {
		if e.Kind == relay.EdgeRelay && e.Relay == relay.Node(from) {
			continue
		}
		kept = append(kept, e)
	}
	r.inbound = kept
}

// suppliers returns the relays feeding r, as simulation relays.
func (r *Relay) suppliers() []*Relay {
	var out []*Relay
	for _, e := range r.inbound {
		if e.Kind != relay.EdgeRelay {
			continue
		}
		if s, ok := e.Relay.(*Relay); ok {
			out = append(out, s)
		}
	}
	return out
}
