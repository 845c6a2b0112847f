package combat

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingTypeData is returned when a unit has no static type data.
	ErrMissingTypeData = errors.New("missing unit type data")
	// ErrInvalidConfiguration is returned for settings or unit records the
	// simulator cannot run with.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// ValidationError pinpoints the rejected input. Side is 1 or 2 for roster entries
// and 0 for settings; Index is -1 when no single unit is at fault.
type ValidationError struct {
	Err    error
	Side   int
	Index  int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Side == 0 {
		return fmt.Sprintf("%v: %s: %s", e.Err, e.Field, e.Reason)
	}
	return fmt.Sprintf("%v: side %d unit %d: %s: %s", e.Err, e.Side, e.Index, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validateRoster(side int, units []Unit) error {
	for i := range units {
		u := &units[i]
		fail := func(err error, field, reason string) error {
			return &ValidationError{Err: err, Side: side, Index: i, Field: field, Reason: reason}
		}
		switch {
		case u.Data == nil:
			return fail(ErrMissingTypeData, "type", fmt.Sprintf("no data for unit type %d", u.Type))
		case u.Data.MineralCost < 0 || u.Data.VespeneCost < 0:
			return fail(ErrInvalidConfiguration, "cost", "negative cost")
		case u.Health < 0 || u.HealthMax < 0:
			return fail(ErrInvalidConfiguration, "health", "negative health")
		case u.Shield < 0 || u.ShieldMax < 0:
			return fail(ErrInvalidConfiguration, "shield", "negative shield")
		case u.Health > u.HealthMax:
			return fail(ErrInvalidConfiguration, "health", fmt.Sprintf("health %g exceeds max %g", u.Health, u.HealthMax))
		case u.Shield > u.ShieldMax:
			return fail(ErrInvalidConfiguration, "shield", fmt.Sprintf("shield %g exceeds max %g", u.Shield, u.ShieldMax))
		case u.Radius < 0:
			return fail(ErrInvalidConfiguration, "radius", "negative radius")
		}
	}
	return nil
}
