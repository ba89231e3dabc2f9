package enums

import "strings"

// ProductSort is the sort_by value for catalog listings.
type ProductSort string

const (
	ProductSortNewest    ProductSort = "newest"
	ProductSortPriceLow  ProductSort = "price_low"
	ProductSortPriceHigh ProductSort = "price_high"
	ProductSortExpiry    ProductSort = "expiry"
	ProductSortPopular   ProductSort = "popular"
)

var productSorts = []ProductSort{
	ProductSortNewest,
	ProductSortPriceLow,
	ProductSortPriceHigh,
	ProductSortExpiry,
	ProductSortPopular,
}

func (s ProductSort) IsValid() bool { return member(productSorts, s) }

// ParseProductSort maps empty input and the "created_at" alias to newest.
func ParseProductSort(value string) (ProductSort, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "created_at":
		return ProductSortNewest, nil
	}
	return lookup(productSorts, value, "sort")
}
