package config

// GridConfig is the top-level YAML structure.
type GridConfig struct {
	Version     string       `yaml:"version"`
	LogLevel    string       `yaml:"log_level"`
	Engine      EngineConf   `yaml:"engine"`
	Relays      []RelayDef   `yaml:"relays"`
	Connections []Connection `yaml:"connections"`
}

// EngineConf holds tunable update-loop settings.
type EngineConf struct {
	QueueDepth     int `yaml:"queue_depth"`
	EventTimeoutMs int `yaml:"event_timeout_ms"`
	TickIntervalMs int `yaml:"tick_interval_ms"` // negative disables periodic ticks
}

// RelayDef declares one relay. Relays sharing a Host are siblings.
type RelayDef struct {
	ID             string      `yaml:"id"`
	Host           string      `yaml:"host"` // empty = own host named after ID
	InternalSource *SourceDef  `yaml:"internal_source,omitempty"`
	LeafSources    []SourceDef `yaml:"leaf_sources,omitempty"`
}

// SourceDef names a source kind and its params.
type SourceDef struct {
	Kind   string                 `yaml:"kind"`
	Params map[string]interface{} `yaml:"params"`
}

// Connection is an initial edge: From delivers power to To.
type Connection struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// HostOf returns the host a relay lives on.
func (r RelayDef) HostOf() string {
	if r.Host == "" {
		return r.ID
	}
	return r.Host
}
