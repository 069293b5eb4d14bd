package event

import (
	"fmt"
	"time"
)

// Type names what happened in the simulation.
type Type string

const (
	Connect    Type = "connect"    // From now delivers power to To
	Disconnect Type = "disconnect" // From lost its outbound edge
	Destroy    Type = "destroy"    // Relay was removed from the simulation
	Draw       Type = "draw"       // Relay draws (negative Amount) or returns power
	Tick       Type = "tick"       // time advanced by Seconds
)

// Event is the canonical input model for all topology and resource events.
type Event struct {
	ID         string    `json:"id"`
	Type       Type      `json:"type"`
	From       string    `json:"from,omitempty"`
	To         string    `json:"to,omitempty"`
	Relay      string    `json:"relay,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	Seconds    float64   `json:"seconds,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
	ReceivedAt time.Time `json:"-"`
}

// Validate checks that the fields the event type needs are present.
func (e *Event) Validate() error {
	switch e.Type {
	case Connect:
		if e.From == "" || e.To == "" {
			return fmt.Errorf("connect event needs from and to")
		}
	case Disconnect:
		if e.From == "" {
			return fmt.Errorf("disconnect event needs from")
		}
	case Destroy, Draw:
		if e.Relay == "" {
			return fmt.Errorf("%s event needs relay", e.Type)
		}
	case Tick:
		if e.Seconds < 0 {
			return fmt.Errorf("tick event needs non-negative seconds")
		}
	case "":
		return fmt.Errorf("event type is required")
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	return nil
}
