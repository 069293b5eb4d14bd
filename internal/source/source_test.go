package source_test

import (
	"math"
	"testing"

	"github.com/gyaneshwarpardhi/powergrid/internal/source"
)

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestBattery_ModifyPower(t *testing.T) {
	cases := []struct {
		name      string
		charge    float64
		amount    float64
		wantApply float64
		wantOK    bool
		wantLeft  float64
	}{
		{name: "draw within charge", charge: 50, amount: -20, wantApply: -20, wantOK: true, wantLeft: 30},
		{name: "draw beyond charge", charge: 10, amount: -25, wantApply: -10, wantOK: false, wantLeft: 0},
		{name: "charge within capacity", charge: 90, amount: 5, wantApply: 5, wantOK: true, wantLeft: 95},
		{name: "charge beyond capacity", charge: 90, amount: 30, wantApply: 10, wantOK: false, wantLeft: 100},
		{name: "empty battery", charge: 0, amount: -1, wantApply: 0, wantOK: false, wantLeft: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := source.NewBattery(100, tc.charge)
			got, ok := b.ModifyPower(tc.amount)
			if !approx(got, tc.wantApply) || ok != tc.wantOK {
				t.Errorf("ModifyPower(%g) = (%g, %v), want (%g, %v)", tc.amount, got, ok, tc.wantApply, tc.wantOK)
			}
			if !approx(b.Power(), tc.wantLeft) {
				t.Errorf("charge = %g, want %g", b.Power(), tc.wantLeft)
			}
		})
	}
}

func TestGenerator_DeclinesReturnedPower(t *testing.T) {
	g := source.NewGenerator(10, 4, 0)
	got, ok := g.ModifyPower(3)
	if got != 0 || ok {
		t.Errorf("expected (0, false), got (%g, %v)", got, ok)
	}
	got, ok = g.ModifyPower(-6)
	if !approx(got, -4) || ok {
		t.Errorf("expected (-4, false), got (%g, %v)", got, ok)
	}
}

func TestGenerator_Tick(t *testing.T) {
	g := source.NewGenerator(10, 0, 2)
	g.Tick(3)
	if !approx(g.Power(), 6) {
		t.Errorf("after 3s expected 6, got %g", g.Power())
	}
	g.Tick(10)
	if !approx(g.Power(), 10) {
		t.Errorf("expected buffer capped at 10, got %g", g.Power())
	}
	g.Tick(-1)
	if !approx(g.Power(), 10) {
		t.Errorf("negative tick changed power to %g", g.Power())
	}
}

func TestRegistry_New(t *testing.T) {
	r := source.Defaults()

	s, err := r.New("battery", map[string]interface{}{"capacity": 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.MaxPower() != 40 || s.Power() != 40 {
		t.Errorf("battery should default to full, got %g/%g", s.Power(), s.MaxPower())
	}

	s, err = r.New("generator", map[string]interface{}{"max_power": 75.0, "power": 10, "rate": 1.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Power() != 10 {
		t.Errorf("expected power 10, got %g", s.Power())
	}
}

func TestRegistry_Validate(t *testing.T) {
	r := source.Defaults()
	cases := []struct {
		name   string
		kind   string
		params map[string]interface{}
	}{
		{"unknown kind", "fusion", nil},
		{"battery without capacity", "battery", map[string]interface{}{}},
		{"battery negative capacity", "battery", map[string]interface{}{"capacity": -1}},
		{"battery overcharged", "battery", map[string]interface{}{"capacity": 10, "charge": 11}},
		{"battery non-numeric", "battery", map[string]interface{}{"capacity": "lots"}},
		{"generator without max", "generator", map[string]interface{}{"rate": 1}},
		{"generator negative rate", "generator", map[string]interface{}{"max_power": 5, "rate": -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := r.Validate(tc.kind, tc.params); err == nil {
				t.Errorf("expected validation error")
			}
		})
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("expected panic on duplicate kind")
		}
	}()
	r := source.Defaults()
	r.Register(source.BatteryKind{})
}

func TestRegistry_Names(t *testing.T) {
	names := source.Defaults().Names()
	if len(names) != 2 || names[0] != "battery" || names[1] != "generator" {
		t.Errorf("unexpected names %v", names)
	}
}
