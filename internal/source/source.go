package source

import (
	"fmt"

	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
)

// Kind builds power sources of one type from config params.
type Kind interface {
	// Name returns the string key this kind is registered under.
	Name() string
	// Validate checks params at config load time.
	Validate(params map[string]interface{}) error
	// New builds a source from validated params.
	New(params map[string]interface{}) (relay.PowerSource, error)
}

// Ticker is implemented by sources whose output changes over time.
type Ticker interface {
	Tick(seconds float64)
}

// Defaults returns a Registry holding every built-in kind.
func Defaults() *Registry {
	r := NewRegistry()
	r.Register(BatteryKind{})
	r.Register(GeneratorKind{})
	return r
}

func number(params map[string]interface{}, key string) (float64, bool, error) {
	v, ok := params[key]
	if !ok {
		return 0, false, nil
	}
	f, ok := toFloat64(v)
	if !ok {
		return 0, true, fmt.Errorf("%s must be numeric, got %T", key, v)
	}
	return f, true, nil
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
