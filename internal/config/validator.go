package config

import (
	"fmt"
	"strings"

	"github.com/gyaneshwarpardhi/powergrid/internal/source"
)

// Validate checks the config for:
//   - Required fields and a known log level
//   - Duplicate relay IDs
//   - Unknown source kinds or invalid source params
//   - Connections to unknown relays, to the relay itself or to a sibling
//   - More than one outbound connection per relay
//   - Cycles (the delivery graph must be a forest)
func Validate(cfg *GridConfig, kinds *source.Registry) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}

	hosts := make(map[string]string) // relay id → host
	for i, r := range cfg.Relays {
		if r.ID == "" {
			errs = append(errs, fmt.Sprintf("relays[%d]: id is required", i))
			continue
		}
		if _, ok := hosts[r.ID]; ok {
			errs = append(errs, fmt.Sprintf("duplicate relay id %q", r.ID))
			continue
		}
		hosts[r.ID] = r.HostOf()
		if r.InternalSource != nil {
			validateSource(*r.InternalSource, fmt.Sprintf("relay %s.internal_source", r.ID), kinds, &errs)
		}
		for j, s := range r.LeafSources {
			validateSource(s, fmt.Sprintf("relay %s.leaf_sources[%d]", r.ID, j), kinds, &errs)
		}
	}

	outbound := make(map[string]string)
	for i, c := range cfg.Connections {
		loc := fmt.Sprintf("connections[%d]", i)
		if c.From == "" || c.To == "" {
			errs = append(errs, fmt.Sprintf("%s: from and to are required", loc))
			continue
		}
		fromHost, fromOK := hosts[c.From]
		toHost, toOK := hosts[c.To]
		if !fromOK {
			errs = append(errs, fmt.Sprintf("%s: unknown relay %q", loc, c.From))
		}
		if !toOK {
			errs = append(errs, fmt.Sprintf("%s: unknown relay %q", loc, c.To))
		}
		if !fromOK || !toOK {
			continue
		}
		if c.From == c.To {
			errs = append(errs, fmt.Sprintf("%s: relay %s cannot connect to itself", loc, c.From))
			continue
		}
		if fromHost == toHost {
			errs = append(errs, fmt.Sprintf("%s: %s and %s share host %s", loc, c.From, c.To, fromHost))
			continue
		}
		if prev, ok := outbound[c.From]; ok {
			errs = append(errs, fmt.Sprintf("%s: relay %s already delivers to %s", loc, c.From, prev))
			continue
		}
		outbound[c.From] = c.To
	}

	for _, cycle := range findCycles(outbound) {
		errs = append(errs, fmt.Sprintf("cycle: %s", strings.Join(cycle, " -> ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateSource(s SourceDef, loc string, kinds *source.Registry, errs *[]string) {
	if s.Kind == "" {
		*errs = append(*errs, fmt.Sprintf("%s: kind is required", loc))
		return
	}
	if err := kinds.Validate(s.Kind, s.Params); err != nil {
		*errs = append(*errs, fmt.Sprintf("%s: %s", loc, err))
	}
}

// findCycles follows every outbound chain. Each relay has at most one
// outbound edge, so a chain either ends or loops.
func findCycles(outbound map[string]string) [][]string {
	const (
		unvisited = iota
		onPath
		done
	)
	state := make(map[string]int, len(outbound))
	var cycles [][]string
	for start := range outbound {
		if state[start] != unvisited {
			continue
		}
		var path []string
		cur := start
		for {
			if state[cur] == onPath {
				for i, id := range path {
					if id == cur {
						cycles = append(cycles, append(append([]string{}, path[i:]...), cur))
						break
					}
				}
				break
			}
			if state[cur] == done {
				break
			}
			state[cur] = onPath
			path = append(path, cur)
			next, ok := outbound[cur]
			if !ok {
				break
			}
			cur = next
		}
		for _, id := range path {
			state[id] = done
		}
	}
	return cycles
}
