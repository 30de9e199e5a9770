package enums

import "fmt"

// StationStatus is the per-station preparation state of a kiosk ticket.
type StationStatus string

const (
	StationStatusPending   StationStatus = "pending"
	StationStatusPreparing StationStatus = "preparing"
	StationStatusReady     StationStatus = "ready"
)

var validStationStatuses = []StationStatus{
	StationStatusPending,
	StationStatusPreparing,
	StationStatusReady,
}

// String implements fmt.Stringer.
func (s StationStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StationStatus.
func (s StationStatus) IsValid() bool {
	for _, candidate := range validStationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStationStatus converts raw input into a StationStatus.
func ParseStationStatus(value string) (StationStatus, error) {
	for _, candidate := range validStationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid station status %q", value)
}

// CanTransition reports whether a station may move from one status to
// another. Forward moves go one step at a time; the only regression allowed
// is ready back to preparing ("still working?").
func (s StationStatus) CanTransition(to StationStatus) bool {
	switch s {
	case StationStatusPending:
		return to == StationStatusPreparing
	case StationStatusPreparing:
		return to == StationStatusReady
	case StationStatusReady:
		return to == StationStatusPreparing
	default:
		return false
	}
}
