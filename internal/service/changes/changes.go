package changes

import (
	"math"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Compare computes the delta between two observations of one product.
// A nil old quote is the first observation ever and never counts as a change.
func Compare(old *domain.Quote, cur domain.Quote) domain.PriceChange {
	if old == nil {
		return domain.PriceChange{HasChanged: false}
	}

	var out domain.PriceChange

	buyDelta := cur.BuyPrice - old.BuyPrice
	out.BuyPriceDirection = direction(buyDelta)
	if buyDelta != 0 {
		out.BuyPriceChange = &buyDelta
		p := percent(buyDelta, old.BuyPrice)
		out.BuyPricePercent = &p
	}

	sellDelta := cur.SellPrice - old.SellPrice
	out.SellPriceDirection = direction(sellDelta)
	if sellDelta != 0 {
		out.SellPriceChange = &sellDelta
		p := percent(sellDelta, old.SellPrice)
		out.SellPricePercent = &p
	}

	out.HasChanged = buyDelta != 0 || sellDelta != 0
	return out
}

// CompareSnapshots compares the primary quotes of two snapshots.
func CompareSnapshots(old *domain.Snapshot, cur domain.Snapshot) domain.PriceChange {
	if old == nil {
		return Compare(nil, cur.Primary)
	}
	prev := old.Primary
	return Compare(&prev, cur.Primary)
}

// ExceedsThreshold - gate for dispatch. Zero threshold lets any change through.
func ExceedsThreshold(change domain.PriceChange, policy domain.Policy) bool {
	if !change.HasChanged {
		return false
	}
	if policy.MinChangePercent <= 0 {
		return true
	}
	return MaxAbsPercent(change) >= policy.MinChangePercent
}

// MaxAbsPercent - largest absolute percent across buy and sell, 0 when none is set.
func MaxAbsPercent(change domain.PriceChange) float64 {
	var m float64
	if change.BuyPricePercent != nil {
		m = math.Abs(*change.BuyPricePercent)
	}
	if change.SellPricePercent != nil {
		m = math.Max(m, math.Abs(*change.SellPricePercent))
	}
	return m
}

func percent(delta, base int64) float64 {
	if base == 0 {
		return 0
	}
	f, _ := decimal.NewFromInt(delta).
		DivRound(decimal.NewFromInt(base), 12).
		Mul(hundred).
		Float64()
	return f
}

func direction(delta int64) domain.Direction {
	switch {
	case delta > 0:
		return domain.DirectionUp
	case delta < 0:
		return domain.DirectionDown
	default:
		return domain.DirectionSame
	}
}
