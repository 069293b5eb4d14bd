package sim

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/powergrid/internal/config"
	"github.com/gyaneshwarpardhi/powergrid/internal/grid"
	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
	"github.com/gyaneshwarpardhi/powergrid/internal/source"
)

// Build constructs a World from a validated GridConfig. Sources are built
// through kinds and connections are applied in file order, so the grid
// registry sees the same notifications a running simulation would send.
func Build(cfg *config.GridConfig, kinds *source.Registry, logger *slog.Logger) (*World, error) {
	w := New(grid.NewRegistry(logger), logger)
	for _, rd := range cfg.Relays {
		var internal relay.PowerSource
		if rd.InternalSource != nil {
			s, err := kinds.New(rd.InternalSource.Kind, rd.InternalSource.Params)
			if err != nil {
				return nil, fmt.Errorf("relay %s: internal source: %w", rd.ID, err)
			}
			internal = s
		}
		if _, err := w.AddRelay(relay.ID(rd.ID), rd.HostOf(), internal); err != nil {
			return nil, err
		}
		for i, sd := range rd.LeafSources {
			s, err := kinds.New(sd.Kind, sd.Params)
			if err != nil {
				return nil, fmt.Errorf("relay %s: leaf source %d: %w", rd.ID, i, err)
			}
			if err := w.AttachSource(relay.ID(rd.ID), s); err != nil {
				return nil, err
			}
		}
	}
	for i, c := range cfg.Connections {
		if err := w.Connect(relay.ID(c.From), relay.ID(c.To)); err != nil {
			return nil, fmt.Errorf("connection %d (%s -> %s): %w", i, c.From, c.To, err)
		}
	}
	return w, nil
}
