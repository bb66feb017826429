package changes_test

import (
	"math"
	"testing"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/changes"
)

// Первое наблюдение - изменения нет, какой бы ни была цена
func TestCompare_Bootstrap(t *testing.T) {
	t.Parallel()
	got := changes.Compare(nil, domain.Quote{BuyPrice: 2329000, SellPrice: 2400000})
	if got.HasChanged {
		t.Fatal("bootstrap must not report a change")
	}
	if got.BuyPriceChange != nil || got.SellPriceChange != nil || got.BuyPricePercent != nil {
		t.Fatalf("bootstrap must not populate deltas: %+v", got)
	}
}

// Одинаковые котировки - ни одно опциональное поле не заполнено
func TestCompare_SameQuoteIsSparse(t *testing.T) {
	t.Parallel()
	q := domain.Quote{ProductName: "X", BuyPrice: 2300000, SellPrice: 2370000}
	got := changes.Compare(&q, q)

	if got.HasChanged {
		t.Fatal("identical quotes must not change")
	}
	if got.BuyPriceChange != nil || got.SellPriceChange != nil ||
		got.BuyPricePercent != nil || got.SellPricePercent != nil {
		t.Fatalf("unexpected populated fields: %+v", got)
	}
	if got.BuyPriceDirection != domain.DirectionSame || got.SellPriceDirection != domain.DirectionSame {
		t.Fatalf("directions = %s/%s", got.BuyPriceDirection, got.SellPriceDirection)
	}
}

func TestCompare_BuyUp(t *testing.T) {
	t.Parallel()
	old := domain.Quote{BuyPrice: 2300000, SellPrice: 2370000}
	got := changes.Compare(&old, domain.Quote{BuyPrice: 2329000, SellPrice: 2370000})

	if !got.HasChanged {
		t.Fatal("expected change")
	}
	if got.BuyPriceChange == nil || *got.BuyPriceChange != 29000 {
		t.Fatalf("buy change = %v", got.BuyPriceChange)
	}
	if got.BuyPricePercent == nil || math.Abs(*got.BuyPricePercent-1.26) > 0.01 {
		t.Fatalf("buy percent = %v", got.BuyPricePercent)
	}
	if got.BuyPriceDirection != domain.DirectionUp {
		t.Fatalf("direction = %s", got.BuyPriceDirection)
	}
	// продажа не менялась - поля пустые
	if got.SellPriceChange != nil || got.SellPricePercent != nil {
		t.Fatal("sell fields must stay empty")
	}
}

// Продажа из 0 (нет предложения) - процент 0, без деления на ноль
func TestCompare_ZeroBase(t *testing.T) {
	t.Parallel()
	old := domain.Quote{BuyPrice: 2300000, SellPrice: 0}
	got := changes.Compare(&old, domain.Quote{BuyPrice: 2300000, SellPrice: 2370000})

	if got.SellPriceChange == nil || *got.SellPriceChange != 2370000 {
		t.Fatalf("sell change = %v", got.SellPriceChange)
	}
	if got.SellPricePercent == nil || *got.SellPricePercent != 0 {
		t.Fatalf("sell percent = %v", got.SellPricePercent)
	}
	if got.SellPriceDirection != domain.DirectionUp {
		t.Fatalf("direction = %s", got.SellPriceDirection)
	}
}

func TestCompare_Down(t *testing.T) {
	t.Parallel()
	old := domain.Quote{BuyPrice: 2329000, SellPrice: 2400000}
	got := changes.Compare(&old, domain.Quote{BuyPrice: 2300000, SellPrice: 2390000})
	if got.BuyPriceDirection != domain.DirectionDown || got.SellPriceDirection != domain.DirectionDown {
		t.Fatalf("directions = %s/%s", got.BuyPriceDirection, got.SellPriceDirection)
	}
	if *got.BuyPriceChange != -29000 || *got.SellPriceChange != -10000 {
		t.Fatalf("deltas = %d/%d", *got.BuyPriceChange, *got.SellPriceChange)
	}
}

func TestCompareSnapshots(t *testing.T) {
	t.Parallel()
	prev := domain.Snapshot{Primary: domain.Quote{BuyPrice: 100}}
	cur := domain.Snapshot{Primary: domain.Quote{BuyPrice: 101}}
	if !changes.CompareSnapshots(&prev, cur).HasChanged {
		t.Fatal("expected change")
	}
	if changes.CompareSnapshots(nil, cur).HasChanged {
		t.Fatal("nil previous must be bootstrap")
	}
}

// Порог 1%: 0.5% не проходит, 1.5% проходит
func TestExceedsThreshold(t *testing.T) {
	t.Parallel()
	policy := domain.Policy{MinChangePercent: 1}
	base := domain.Quote{BuyPrice: 2000000, SellPrice: 2100000}

	half := changes.Compare(&base, domain.Quote{BuyPrice: 2010000, SellPrice: 2100000})
	if changes.ExceedsThreshold(half, policy) {
		t.Fatal("0.5% must not pass a 1% threshold")
	}

	big := changes.Compare(&base, domain.Quote{BuyPrice: 2030000, SellPrice: 2100000})
	if !changes.ExceedsThreshold(big, policy) {
		t.Fatal("1.5% must pass a 1% threshold")
	}

	// отрицательное изменение сравнивается по модулю
	drop := changes.Compare(&base, domain.Quote{BuyPrice: 1970000, SellPrice: 2100000})
	if !changes.ExceedsThreshold(drop, policy) {
		t.Fatal("-1.5% must pass a 1% threshold")
	}
}

func TestExceedsThreshold_ZeroPolicy(t *testing.T) {
	t.Parallel()
	base := domain.Quote{BuyPrice: 2000000}
	tiny := changes.Compare(&base, domain.Quote{BuyPrice: 2000001})
	if !changes.ExceedsThreshold(tiny, domain.Policy{}) {
		t.Fatal("zero threshold dispatches on any change")
	}
	if changes.ExceedsThreshold(changes.Compare(&base, base), domain.Policy{}) {
		t.Fatal("no change never dispatches")
	}
}
