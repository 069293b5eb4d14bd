package sim

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gyaneshwarpardhi/powergrid/internal/grid"
	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
	"github.com/gyaneshwarpardhi/powergrid/internal/source"
)

var (
	ErrUnknownRelay   = errors.New("unknown relay")
	ErrDuplicateRelay = errors.New("relay already exists")
	ErrRejected       = errors.New("connection rejected")
)

// World owns hosts, relays and edges, and keeps the grid registry informed
// at every edge change. It is not safe for concurrent use.
type World struct {
	logger *slog.Logger
	grid   *grid.Registry
	relays map[relay.ID]*Relay
	hosts  map[string]*Host
}

// New creates an empty World reporting to reg.
func New(reg *grid.Registry, logger *slog.Logger) *World {
	if logger == nil {
		logger = slog.Default()
	}
	return &World{
		logger: logger,
		grid:   reg,
		relays: make(map[relay.ID]*Relay),
		hosts:  make(map[string]*Host),
	}
}

// Grid returns the registry the world reports to.
func (w *World) Grid() *grid.Registry { return w.grid }

// AddRelay places a new relay on host, creating the host if needed.
// internal may be nil.
func (w *World) AddRelay(id relay.ID, host string, internal relay.PowerSource) (*Relay, error) {
	if _, ok := w.relays[id]; ok {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRelay, id)
	}
	if host == "" {
		host = string(id)
	}
	h, ok := w.hosts[host]
	if !ok {
		h = &Host{id: host}
		w.hosts[host] = h
	}
	r := &Relay{id: id, host: h, internal: internal}
	h.relays = append(h.relays, r)
	w.relays[id] = r
	return r, nil
}

// AttachSource wires a leaf source into a relay's inbound edges.
func (w *World) AttachSource(id relay.ID, s relay.PowerSource) error {
	r, err := w.lookup(id)
	if err != nil {
		return err
	}
	r.inbound = append(r.inbound, relay.LeafEdge(s))
	return nil
}

// Relay returns the relay with the given ID.
func (w *World) Relay(id relay.ID) (*Relay, bool) {
	r, ok := w.relays[id]
	return r, ok
}

// RelayIDs returns every relay ID, sorted.
func (w *World) RelayIDs() []relay.ID {
	out := make([]relay.ID, 0, len(w.relays))
	for id := range w.relays {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Connect makes from deliver power to to, replacing from's previous
// consumer if any. Reconnecting an existing edge only re-notifies the grid.
func (w *World) Connect(fromID, toID relay.ID) error {
	from, err := w.lookup(fromID)
	if err != nil {
		return err
	}
	to, err := w.lookup(toID)
	if err != nil {
		return err
	}
	if from.outbound == to {
		return w.grid.Connect(from, to)
	}
	if !w.grid.CanConnect(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrRejected, fromID, toID)
	}
	if err := w.disconnect(from); err != nil {
		return err
	}
	from.outbound = to
	to.inbound = append(to.inbound, relay.RelayEdge(from))
	w.logger.Debug("edge added", "from", relay.Describe(from), "to", relay.Describe(to))
	return w.grid.Connect(from, to)
}

// Disconnect removes the relay's outbound edge, if any.
func (w *World) Disconnect(fromID relay.ID) error {
	from, err := w.lookup(fromID)
	if err != nil {
		return err
	}
	return w.disconnect(from)
}

func (w *World) disconnect(from *Relay) error {
	to := from.outbound
	if to == nil {
		return nil
	}
	from.outbound = nil
	to.removeInbound(from)
	w.logger.Debug("edge removed", "from", relay.Describe(from), "to", relay.Describe(to))
	return w.grid.Disconnect(from, to)
}

// Destroy severs every edge touching the relay, then removes it from the
// grid and the world. Leaf sources attached to it go with it.
func (w *World) Destroy(id relay.ID) error {
	r, err := w.lookup(id)
	if err != nil {
		return err
	}
	if err := w.disconnect(r); err != nil {
		return err
	}
	for _, sup := range r.suppliers() {
		if err := w.disconnect(sup); err != nil {
			return err
		}
	}
	w.grid.Destroy(r)

	h := r.host
	for i, s := range h.relays {
		if s == r {
			h.relays = append(h.relays[:i], h.relays[i+1:]...)
			break
		}
	}
	if len(h.relays) == 0 {
		delete(w.hosts, h.id)
	}
	delete(w.relays, id)
	w.logger.Debug("relay destroyed", "relay", id)
	return nil
}

// Capacity is the maximum power available to the relay.
func (w *World) Capacity(id relay.ID) (float64, error) {
	r, err := w.lookup(id)
	if err != nil {
		return 0, err
	}
	return w.grid.Suppliers(r).Capacity(r), nil
}

// Level is the power currently available to the relay.
func (w *World) Level(id relay.ID) (float64, error) {
	r, err := w.lookup(id)
	if err != nil {
		return 0, err
	}
	return w.grid.Suppliers(r).Level(r), nil
}

// Draw consumes (negative amount) or returns (positive amount) power
// through the relay's network.
func (w *World) Draw(id relay.ID, amount float64) (bool, float64, error) {
	r, err := w.lookup(id)
	if err != nil {
		return false, 0, err
	}
	return w.grid.Suppliers(r).Draw(r, amount)
}

// Tick advances every time-dependent source by seconds.
func (w *World) Tick(seconds float64) {
	for _, r := range w.relays {
		if t, ok := r.internal.(source.Ticker); ok {
			t.Tick(seconds)
		}
		for _, s := range relay.LeafSources(r) {
			if t, ok := s.(source.Ticker); ok {
				t.Tick(seconds)
			}
		}
	}
}

// RelayStatus is a read-only view of one relay.
type RelayStatus struct {
	ID       relay.ID       `json:"id"`
	Host     string         `json:"host"`
	Outbound relay.ID       `json:"outbound,omitempty"`
	Network  grid.NetworkID `json:"network,omitempty"`
	Tracked  bool           `json:"tracked"`
	Source   bool           `json:"source"`
	Capacity float64        `json:"capacity"`
	Level    float64        `json:"level"`
}

// Status describes the relay and the power its network offers it.
func (w *World) Status(id relay.ID) (RelayStatus, error) {
	r, err := w.lookup(id)
	if err != nil {
		return RelayStatus{}, err
	}
	sup := w.grid.Suppliers(r)
	st := RelayStatus{
		ID:       r.id,
		Host:     r.host.id,
		Source:   relay.HasInternalSource(r),
		Capacity: sup.Capacity(r),
		Level:    sup.Level(r),
	}
	if r.outbound != nil {
		st.Outbound = r.outbound.id
	}
	st.Network, st.Tracked = w.grid.NetworkOf(r)
	return st, nil
}

// Close drops all grid state. The world must not be used afterwards.
func (w *World) Close() {
	w.grid.Reset()
	clear(w.relays)
	clear(w.hosts)
}

func (w *World) lookup(id relay.ID) (*Relay, error) {
	r, ok := w.relays[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRelay, id)
	}
	return r, nil
}
