package source

import (
	"fmt"

	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
)

// Generator produces power into an output buffer at a fixed rate. Power can
// be drawn from it but not returned to it.
type Generator struct {
	maxPower float64
	power    float64
	rate     float64 // per second
}

// NewGenerator returns a generator with the given buffer and refill rate.
func NewGenerator(maxPower, power, rate float64) *Generator {
	return &Generator{maxPower: maxPower, power: clamp(power, 0, maxPower), rate: rate}
}

func (g *Generator) MaxPower() float64 { return g.maxPower }
func (g *Generator) Power() float64    { return g.power }

// ModifyPower draws from the buffer. Positive amounts are declined.
func (g *Generator) ModifyPower(amount float64) (float64, bool) {
	if amount > 0 {
		return 0, false
	}
	if g.power+amount >= 0 {
		g.power += amount
		return amount, true
	}
	drawn := -g.power
	g.power = 0
	return drawn, false
}

// Tick refills the buffer for the elapsed time.
func (g *Generator) Tick(seconds float64) {
	if seconds <= 0 || g.rate <= 0 {
		return
	}
	g.power = clamp(g.power+g.rate*seconds, 0, g.maxPower)
}

// GeneratorKind builds generators from "max_power", optional "power"
// (defaults to max_power) and optional "rate".
type GeneratorKind struct{}

func (GeneratorKind) Name() string { return "generator" }

func (GeneratorKind) Validate(params map[string]interface{}) error {
	maxPower, ok, err := number(params, "max_power")
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	if !ok {
		return fmt.Errorf("generator: max_power is required")
	}
	if maxPower <= 0 {
		return fmt.Errorf("generator: max_power must be positive, got %g", maxPower)
	}
	power, ok, err := number(params, "power")
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	if ok && (power < 0 || power > maxPower) {
		return fmt.Errorf("generator: power %g outside [0, %g]", power, maxPower)
	}
	rate, _, err := number(params, "rate")
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}
	if rate < 0 {
		return fmt.Errorf("generator: rate must not be negative, got %g", rate)
	}
	return nil
}

func (GeneratorKind) New(params map[string]interface{}) (relay.PowerSource, error) {
	maxPower, _, err := number(params, "max_power")
	if err != nil {
		return nil, err
	}
	power, ok, err := number(params, "power")
	if err != nil {
		return nil, err
	}
	if !ok {
		power = maxPower
	}
	rate, _, err := number(params, "rate")
	if err != nil {
		return nil, err
	}
	return NewGenerator(maxPower, power, rate), nil
}
