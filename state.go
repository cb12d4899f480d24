package rproc

import "fmt"

// State is the lifecycle state of a remote processor.
type State int

// Remote processor states. Faulted is terminal until an external
// intervention calls Reset; a partially attempted boot or a failed stop
// leaves the hardware in an unknown state that cannot be safely
// re-acquired.
const (
	// StateOffline - device is powered off
	StateOffline State = iota

	// StateBooting - firmware loading and power-on is in flight
	StateBooting

	// StateOnline - device is up and running
	StateOnline

	// StateStopping - power-off is in flight
	StateStopping

	// StateFaulted - device is in an undefined hardware state
	StateFaulted
)

// String returns a human-readable state name
func (s State) String() string {
	switch s {
	case StateOffline:
		return "offline"
	case StateBooting:
		return "booting"
	case StateOnline:
		return "online"
	case StateStopping:
		return "stopping"
	case StateFaulted:
		return "faulted"
	default:
		return fmt.Sprintf("invalid state (%d)", int(s))
	}
}
