package domain

import (
	"encoding/json"
	"fmt"
)

// UnboundedLabel is what an unlimited item serializes to. Unlimited items never
// carry a numeric value on the wire so clients cannot read them as "0 left".
const UnboundedLabel = "unbounded"

// Availability is an available-to-promise quantity, possibly unbounded.
type Availability struct {
	Unbounded bool
	Quantity  int
}

// Unbounded is the availability of an item without stock control.
func Unbounded() Availability {
	return Availability{Unbounded: true}
}

// Limited clamps q at zero.
func Limited(q int) Availability {
	if q < 0 {
		q = 0
	}
	return Availability{Quantity: q}
}

// InStock reports whether at least one unit can be promised.
func (a Availability) InStock() bool {
	return a.Unbounded || a.Quantity > 0
}

// Covers reports whether qty units can be promised.
func (a Availability) Covers(qty int) bool {
	return a.Unbounded || a.Quantity >= qty
}

// Plus sums two availabilities; unbounded absorbs.
func (a Availability) Plus(b Availability) Availability {
	if a.Unbounded || b.Unbounded {
		return Unbounded()
	}
	return Limited(a.Quantity + b.Quantity)
}

func (a Availability) String() string {
	if a.Unbounded {
		return UnboundedLabel
	}
	return fmt.Sprintf("%d", a.Quantity)
}

func (a Availability) MarshalJSON() ([]byte, error) {
	if a.Unbounded {
		return json.Marshal(UnboundedLabel)
	}
	return json.Marshal(a.Quantity)
}

func (a *Availability) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err == nil {
		if label != UnboundedLabel {
			return fmt.Errorf("invalid availability %q", label)
		}
		*a = Unbounded()
		return nil
	}
	var q int
	if err := json.Unmarshal(data, &q); err != nil {
		return fmt.Errorf("invalid availability: %w", err)
	}
	*a = Limited(q)
	return nil
}

// AvailabilityMap maps item ids to their current availability.
type AvailabilityMap map[ItemID]Availability
