package source

import (
	"fmt"

	"github.com/gyaneshwarpardhi/powergrid/internal/relay"
)

// Battery stores power up to a fixed capacity. It can be drawn from and
// recharged.
type Battery struct {
	capacity float64
	charge   float64
}

// NewBattery returns a battery holding charge out of capacity.
func NewBattery(capacity, charge float64) *Battery {
	return &Battery{capacity: capacity, charge: clamp(charge, 0, capacity)}
}

func (b *Battery) MaxPower() float64 { return b.capacity }
func (b *Battery) Power() float64    { return b.charge }

// ModifyPower adds amount to the charge. When the result would leave
// [0, capacity] the charge is clamped and only the difference is applied.
func (b *Battery) ModifyPower(amount float64) (float64, bool) {
	next := b.charge + amount
	if next >= 0 && next <= b.capacity {
		b.charge = next
		return amount, true
	}
	prev := b.charge
	b.charge = clamp(next, 0, b.capacity)
	return b.charge - prev, false
}

// BatteryKind builds batteries from "capacity" and optional "charge"
// (defaults to full).
type BatteryKind struct{}

func (BatteryKind) Name() string { return "battery" }

func (BatteryKind) Validate(params map[string]interface{}) error {
	capacity, ok, err := number(params, "capacity")
	if err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	if !ok {
		return fmt.Errorf("battery: capacity is required")
	}
	if capacity <= 0 {
		return fmt.Errorf("battery: capacity must be positive, got %g", capacity)
	}
	charge, ok, err := number(params, "charge")
	if err != nil {
		return fmt.Errorf("battery: %w", err)
	}
	if ok && (charge < 0 || charge > capacity) {
		return fmt.Errorf("battery: charge %g outside [0, %g]", charge, capacity)
	}
	return nil
}

func (BatteryKind) New(params map[string]interface{}) (relay.PowerSource, error) {
	capacity, _, err := number(params, "capacity")
	if err != nil {
		return nil, err
	}
	charge, ok, err := number(params, "charge")
	if err != nil {
		return nil, err
	}
	if !ok {
		charge = capacity
	}
	return NewBattery(capacity, charge), nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
