package domain

// Direction - sign of a price delta
type Direction string

const (
	DirectionUp   Direction = "up"
	DirectionDown Direction = "down"
	DirectionSame Direction = "same"
)

// PriceChange - delta between two observations of the tracked product.
// Change/percent pointers are set only for fields whose delta is nonzero.
type PriceChange struct {
	HasChanged         bool      `json:"hasChanged"`
	BuyPriceChange     *int64    `json:"buyPriceChange,omitempty"`
	SellPriceChange    *int64    `json:"sellPriceChange,omitempty"`
	BuyPricePercent    *float64  `json:"buyPricePercent,omitempty"`
	SellPricePercent   *float64  `json:"sellPricePercent,omitempty"`
	BuyPriceDirection  Direction `json:"buyPriceDirection,omitempty"`
	SellPriceDirection Direction `json:"sellPriceDirection,omitempty"`
}

// Policy - dispatch gate for one cycle.
type Policy struct {
	MinChangePercent float64 `json:"minChangePercent"`
}
