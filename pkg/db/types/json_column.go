package dbtypes

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/jcalloway/tillpoint-backend/pkg/enums"
)

// StationStatusMap stores per-station preparation states as a JSON column so
// the same model works on both sqlite and postgres.
type StationStatusMap map[enums.Station]enums.StationStatus

func (m *StationStatusMap) Scan(src any) error {
	if src == nil {
		*m = StationStatusMap{}
		return nil
	}
	switch v := src.(type) {
	case string:
		return m.parse([]byte(v))
	case []byte:
		return m.parse(v)
	default:
		return fmt.Errorf("StationStatusMap: unsupported Scan type %T", src)
	}
}

func (m StationStatusMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("StationStatusMap: marshal: %w", err)
	}
	return string(raw), nil
}

func (m *StationStatusMap) parse(raw []byte) error {
	if len(raw) == 0 {
		*m = StationStatusMap{}
		return nil
	}
	out := StationStatusMap{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("StationStatusMap: parse: %w", err)
	}
	*m = out
	return nil
}

// Clone returns an independent copy of the map.
func (m StationStatusMap) Clone() StationStatusMap {
	out := make(StationStatusMap, len(m))
	for station, status := range m {
		out[station] = status
	}
	return out
}
