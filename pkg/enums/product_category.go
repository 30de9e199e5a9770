package enums

import "fmt"

// ProductCategory classifies catalog products and drives kitchen routing.
type ProductCategory string

const (
	CategoryCoffee ProductCategory = "coffee"
	CategoryDrinks ProductCategory = "drinks"
	CategoryBakery ProductCategory = "bakery"
	CategoryFood   ProductCategory = "food"
	CategoryMerch  ProductCategory = "merch"
)

var validProductCategories = []ProductCategory{
	CategoryCoffee,
	CategoryDrinks,
	CategoryBakery,
	CategoryFood,
	CategoryMerch,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}
