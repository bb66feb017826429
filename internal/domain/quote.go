package domain

import "strings"

// Quote - one product's buy/sell price pair as listed by the feed
type Quote struct {
	ProductName string `json:"productName"`
	BuyPrice    int64  `json:"buyPrice"`  // VND, always > 0
	SellPrice   int64  `json:"sellPrice"` // VND, 0 = no sell offer
	Unit        string `json:"unit"`
	Category    string `json:"category,omitempty"`
}

// HasSellOffer reports whether the dealer publishes a sell price for the product.
func (q Quote) HasSellOffer() bool {
	return q.SellPrice > 0
}

// SameProduct - case-insensitive exact name comparison.
func (q Quote) SameProduct(name string) bool {
	return strings.EqualFold(strings.TrimSpace(q.ProductName), strings.TrimSpace(name))
}
