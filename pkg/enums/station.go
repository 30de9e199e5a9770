package enums

import "fmt"

// Station identifies a preparation area an order item is routed to.
type Station string

const (
	StationKitchen Station = "kitchen"
	StationDrinks  Station = "drinks"
	StationBakery  Station = "bakery"
)

var validStations = []Station{
	StationKitchen,
	StationDrinks,
	StationBakery,
}

// String implements fmt.Stringer.
func (s Station) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Station.
func (s Station) IsValid() bool {
	for _, candidate := range validStations {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStation converts raw input into a Station.
func ParseStation(value string) (Station, error) {
	for _, candidate := range validStations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid station %q", value)
}

// StationFor maps a product category to its preparation station. The mapping
// is total: every category routes somewhere.
func StationFor(category ProductCategory) Station {
	switch category {
	case CategoryDrinks, CategoryCoffee:
		return StationDrinks
	case CategoryBakery:
		return StationBakery
	default:
		return StationKitchen
	}
}
