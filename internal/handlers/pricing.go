package handlers

import (
	"fmt"
	"math"
)

func isBookOnOffer(price, originalPrice float64) bool {
	return originalPrice > 0 && price < originalPrice
}

// offerPercent returns the discount of price against originalPrice, rounded
// to one decimal. Zero when the book is not discounted.
func offerPercent(price, originalPrice float64) float64 {
	if !isBookOnOffer(price, originalPrice) {
		return 0
	}
	percent := (originalPrice - price) / originalPrice * 100
	return math.Round(percent*10) / 10
}

func validateBookPricing(price, originalPrice float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be greater than 0")
	}
	if originalPrice < 0 {
		return fmt.Errorf("originalPrice must be zero or greater")
	}
	if originalPrice > 0 && originalPrice < price {
		return fmt.Errorf("originalPrice must not be less than price")
	}
	return nil
}
