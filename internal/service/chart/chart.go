package chart

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"strings"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/botfmt"
)

var (
	ErrNotEnoughPoints = errors.New("chart: fewer than 2 points")
	ErrInvalidBase     = errors.New("chart: invalid base price")
	ErrNonFinite       = errors.New("chart: non-finite coordinate")
)

// Point - one resolved observation placed on the canvas.
type Point struct {
	Price   int64
	Percent float64 // relative to the first point
	Label   string  // HH:MM of the snapshot
	X, Y    float64
	Color   string
}

// Chart - computed trend of one product over a window.
type Chart struct {
	Points     []Point
	Trend      domain.Direction
	NetPercent float64
	DisplayMin float64
	DisplayMax float64
	BaselineY  float64
	SVG        string
}

// HTML marks the generated SVG as safe for html/template.
func (c *Chart) HTML() template.HTML {
	if c == nil {
		return ""
	}
	return template.HTML(c.SVG)
}

// Renderer builds charts with fixed options.
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

func NewRenderer(opts Options, logger *slog.Logger) *Renderer {
	return &Renderer{opts: opts.withDefaults(), logger: logger}
}

// Render never fails: any reason not to draw results in nil.
func (r *Renderer) Render(window []domain.Snapshot, product string) *Chart {
	c, err := r.Build(window, product)
	if err != nil {
		if !errors.Is(err, ErrNotEnoughPoints) {
			r.logger.Warn("chart.build skipped",
				slog.String("product", product),
				slog.String("error", err.Error()))
		}
		return nil
	}
	return c
}

// Build computes the chart and reports why it could not be drawn.
func (r *Renderer) Build(window []domain.Snapshot, product string) (c *Chart, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			c, err = nil, fmt.Errorf("%w: %v", ErrNonFinite, rec)
		}
	}()

	pts := resolve(window, product)
	if len(pts) < 2 {
		return nil, ErrNotEnoughPoints
	}
	base := float64(pts[0].Price)
	if base <= 0 {
		return nil, ErrInvalidBase
	}

	o := r.opts
	minP, maxP := math.Inf(1), math.Inf(-1)
	for i := range pts {
		pct := (float64(pts[i].Price) - base) / base * 100
		pts[i].Percent = pct
		minP = math.Min(minP, pct)
		maxP = math.Max(maxP, pct)
	}

	displayMin, displayMax := displayRange(minP, maxP, o)

	innerW := o.Width - 2*o.BadgeMargin
	innerH := o.Height - o.PaddingTop - o.PaddingBottom
	step := innerW / float64(len(pts)-1)
	yOf := func(pct float64) float64 {
		return o.PaddingTop + (displayMax-pct)/(displayMax-displayMin)*innerH
	}

	for i := range pts {
		pts[i].X = o.BadgeMargin + float64(i)*step
		pts[i].Y = yOf(pts[i].Percent)
		switch {
		case i == len(pts)-1:
			pts[i].Color = o.ColorHighlight
		case i == 0:
			pts[i].Color = o.ColorFirst
		default:
			prev := float64(pts[i-1].Price)
			pts[i].Color = o.color(direction((float64(pts[i].Price)-prev)/prev*100, o.StablePercent))
		}
	}

	net := pts[len(pts)-1].Percent
	c = &Chart{
		Points:     pts,
		Trend:      direction(net, o.StablePercent),
		NetPercent: net,
		DisplayMin: displayMin,
		DisplayMax: displayMax,
		BaselineY:  yOf(0),
	}
	if !c.finite() {
		return nil, ErrNonFinite
	}
	c.SVG = r.svg(c)
	return c, nil
}

// displayRange expands flat series so tiny moves stay visible.
func displayRange(minP, maxP float64, o Options) (float64, float64) {
	raw := maxP - minP
	factor := o.DefaultFactor
	switch {
	case raw < o.FlatRange:
		factor = o.FlatFactor
	case raw < o.NearFlatRange:
		factor = o.NearFlatFactor
	}
	floor := o.DefaultFloor
	if raw < o.NearFlatRange {
		floor = o.FlatFloor
	}
	span := math.Max(raw*factor, floor)
	mid := (maxP + minP) / 2
	return mid - span/2, mid + span/2
}

func resolve(window []domain.Snapshot, product string) []Point {
	pts := make([]Point, 0, len(window))
	for _, s := range window {
		price := s.Primary.BuyPrice
		if q, ok := s.FindQuote(product); ok {
			price = q.BuyPrice
		}
		if price <= 0 {
			continue
		}
		pts = append(pts, Point{Price: price, Label: s.UpdateTime})
	}
	return pts
}

func direction(pct, stable float64) domain.Direction {
	switch {
	case pct > stable:
		return domain.DirectionUp
	case pct < -stable:
		return domain.DirectionDown
	default:
		return domain.DirectionSame
	}
}

func (o Options) color(d domain.Direction) string {
	switch d {
	case domain.DirectionUp:
		return o.ColorUp
	case domain.DirectionDown:
		return o.ColorDown
	default:
		return o.ColorStable
	}
}

func (c *Chart) finite() bool {
	vals := []float64{c.DisplayMin, c.DisplayMax, c.BaselineY, c.NetPercent}
	for _, p := range c.Points {
		vals = append(vals, p.X, p.Y, p.Percent)
	}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (r *Renderer) svg(c *Chart) string {
	o := r.opts
	trend := o.color(c.Trend)
	bottom := o.Height - o.PaddingBottom
	first, last := c.Points[0], c.Points[len(c.Points)-1]

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" class="trend-chart" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">`,
		o.Width, o.Height, o.Width, o.Height)
	fmt.Fprintf(&b, `<defs><linearGradient id="trendFill" x1="0" y1="0" x2="0" y2="1">`+
		`<stop offset="0%%" stop-color="%s" stop-opacity="0.35"/>`+
		`<stop offset="100%%" stop-color="%s" stop-opacity="0.02"/></linearGradient></defs>`, trend, trend)

	// area
	fmt.Fprintf(&b, `<path d="M%.2f %.2f`, first.X, bottom)
	for _, p := range c.Points {
		fmt.Fprintf(&b, ` L%.2f %.2f`, p.X, p.Y)
	}
	fmt.Fprintf(&b, ` L%.2f %.2f Z" fill="url(#trendFill)" stroke="none"/>`, last.X, bottom)

	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1" stroke-dasharray="4 4"/>`,
		o.BadgeMargin/2, c.BaselineY, o.Width-o.BadgeMargin/2, c.BaselineY, o.ColorStable)

	b.WriteString(`<polyline fill="none" stroke-width="2.5" stroke-linejoin="round" stroke="` + trend + `" points="`)
	for i, p := range c.Points {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%.2f,%.2f", p.X, p.Y)
	}
	b.WriteString(`"/>`)

	for i, p := range c.Points {
		radius := 4.5
		if i == len(c.Points)-1 {
			radius = 6.5
		}
		fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="%.1f" fill="%s" stroke="#ffffff" stroke-width="2"/>`,
			p.X, p.Y, radius, p.Color)
		if p.Label != "" {
			fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" font-size="12" fill="#6b7280" text-anchor="middle">%s</text>`,
				p.X, o.Height-8, template.HTMLEscapeString(p.Label))
		}
	}

	// badge
	badgeY := last.Y - 30
	if badgeY < 2 {
		badgeY = last.Y + 12
	}
	fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="112" height="22" rx="11" fill="%s"/>`,
		last.X-56, badgeY, o.ColorHighlight)
	fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" font-size="12" font-weight="700" fill="#ffffff" text-anchor="middle">%s</text>`,
		last.X, badgeY+15, template.HTMLEscapeString(botfmt.FormatPrice(last.Price)))
	fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" font-size="12" font-weight="600" fill="%s" text-anchor="end">%s</text>`,
		o.Width-4, o.PaddingTop-10, trend, template.HTMLEscapeString(botfmt.FormatPercent(c.NetPercent)))

	b.WriteString(`</svg>`)
	return b.String()
}
