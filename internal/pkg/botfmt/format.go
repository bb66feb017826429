package botfmt

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
)

// FormatPrice - thousands separated VND amount: 2329000 -> "2,329,000"
func FormatPrice(v int64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	s := strconv.FormatInt(v, 10)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String()
}

// FormatSignedPrice - "+29,000" / "-10,000"
func FormatSignedPrice(v int64) string {
	if v >= 0 {
		return "+" + FormatPrice(v)
	}
	return FormatPrice(v)
}

// FormatPercent - signed, two decimals: 1.2608 -> "+1.26%"
func FormatPercent(p float64) string {
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", p)
}

// DirectionIcon - emoji for a delta direction
func DirectionIcon(d domain.Direction) string {
	switch d {
	case domain.DirectionUp:
		return "📈"
	case domain.DirectionDown:
		return "📉"
	case domain.DirectionSame:
		return "➡️"
	default:
		return ""
	}
}

// FormatQuoteLine - short line for /price replies
func FormatQuoteLine(q domain.Quote) string {
	sell := "-"
	if q.HasSellOffer() {
		sell = FormatPrice(q.SellPrice)
	}
	return fmt.Sprintf("%s | Mua: %s | Bán: %s | %s",
		q.ProductName,
		FormatPrice(q.BuyPrice),
		sell,
		q.Unit,
	)
}

// FormatChangeCaption - caption sent with the snapshot image
func FormatChangeCaption(s domain.Snapshot, ch domain.PriceChange) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", s.Primary.ProductName)
	if ch.BuyPriceChange != nil && ch.BuyPricePercent != nil {
		fmt.Fprintf(&b, "%s Mua: %s VNĐ (%s)\n",
			DirectionIcon(ch.BuyPriceDirection),
			FormatSignedPrice(*ch.BuyPriceChange),
			FormatPercent(*ch.BuyPricePercent))
	}
	if ch.SellPriceChange != nil && ch.SellPricePercent != nil && s.Primary.HasSellOffer() {
		fmt.Fprintf(&b, "%s Bán: %s VNĐ (%s)\n",
			DirectionIcon(ch.SellPriceDirection),
			FormatSignedPrice(*ch.SellPriceChange),
			FormatPercent(*ch.SellPricePercent))
	}
	fmt.Fprintf(&b, "🕐 Cập nhật: %s %s", s.UpdateDate, s.UpdateTime)
	return b.String()
}

// FormatSnapshotDetails - multi-line summary for the /price command
func FormatSnapshotDetails(s domain.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]\nMua vào: %s\n", s.Primary.ProductName, FormatPrice(s.Primary.BuyPrice))
	if s.Primary.HasSellOffer() {
		fmt.Fprintf(&b, "Bán ra: %s\n", FormatPrice(s.Primary.SellPrice))
	} else {
		b.WriteString("Bán ra: -\n")
	}
	fmt.Fprintf(&b, "Cập nhật: %s %s", s.UpdateDate, s.UpdateTime)
	return b.String()
}
