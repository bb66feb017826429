package card

import (
	"bytes"
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"os"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/consts"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/pkg/botfmt"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/service/chart"
)

//go:embed page.html
var pageFS embed.FS

var page = template.Must(template.ParseFS(pageFS, "page.html"))

// Options - branding and filtering of the snapshot card.
type Options struct {
	Brand             string
	Title             string
	LogoPath          string
	FooterLeft        string
	FooterRight       string
	AllowedCategories []string
	Width             int
}

func DefaultOptions() Options {
	return Options{
		Brand:             "VÀNG BẠC VINH HOA",
		Title:             "GIÁ BẠC HÔM NAY",
		FooterLeft:        "Đơn giá đã bao gồm thuế GTGT",
		FooterRight:       "Niêm yết toàn hệ thống",
		AllowedCategories: consts.AllowedCategories,
		Width:             domain.DefaultViewport.Width,
	}
}

// Input - everything one card is built from.
type Input struct {
	Snapshot domain.Snapshot
	Change   *domain.PriceChange
	Chart    *chart.Chart
	Product  string
}

type Composer struct {
	opts   Options
	logo   template.URL
	logger *slog.Logger
}

// NewComposer loads the optional logo once; a missing file only drops the logo.
func NewComposer(opts Options, logger *slog.Logger) *Composer {
	if opts.Width <= 0 {
		opts.Width = domain.DefaultViewport.Width
	}
	c := &Composer{opts: opts, logger: logger}
	if opts.LogoPath != "" {
		data, err := os.ReadFile(opts.LogoPath)
		if err != nil {
			logger.Warn("template.logo unavailable",
				slog.String("path", opts.LogoPath),
				slog.String("error", err.Error()))
		} else {
			c.logo = template.URL("data:" + http.DetectContentType(data) + ";base64," +
				base64.StdEncoding.EncodeToString(data))
		}
	}
	return c
}

type row struct {
	ProductName string
	Unit        string
	Buy         string
	Sell        string
	Tracked     bool
}

type group struct {
	Name  string
	Rows  []row
	Chart template.HTML
}

type changeLine struct {
	Direction domain.Direction
	Text      string
}

type view struct {
	Width       int
	Logo        template.URL
	Brand       string
	Title       string
	UpdateDate  string
	UpdateTime  string
	Change      *changeLine
	Groups      []group
	FooterLeft  string
	FooterRight string
}

// Compose renders the card HTML.
func (c *Composer) Compose(in Input) (string, error) {
	product := in.Product
	if product == "" {
		product = in.Snapshot.Primary.ProductName
	}

	v := view{
		Width:       c.opts.Width,
		Logo:        c.logo,
		Brand:       c.opts.Brand,
		Title:       c.opts.Title,
		UpdateDate:  in.Snapshot.UpdateDate,
		UpdateTime:  in.Snapshot.UpdateTime,
		Groups:      c.groups(in.Snapshot.Quotes, product),
		FooterLeft:  c.opts.FooterLeft,
		FooterRight: c.opts.FooterRight,
	}
	if in.Change != nil && in.Change.HasChanged {
		v.Change = summarize(*in.Change)
	}
	if in.Chart != nil {
		attachChart(v.Groups, in.Chart.HTML())
	}

	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}
	return buf.String(), nil
}

// groups keeps markup order, merging consecutive rows of one category
// and dropping categories outside the allow-list entirely.
func (c *Composer) groups(quotes []domain.Quote, product string) []group {
	var out []group
	for _, q := range quotes {
		if !consts.IsAllowed(q.Category, c.opts.AllowedCategories) {
			continue
		}
		if len(out) == 0 || out[len(out)-1].Name != q.Category {
			out = append(out, group{Name: q.Category})
		}
		g := &out[len(out)-1]
		sell := "-"
		if q.HasSellOffer() {
			sell = botfmt.FormatPrice(q.SellPrice)
		}
		unit := q.Unit
		if unit == "" {
			unit = consts.DefaultUnit
		}
		g.Rows = append(g.Rows, row{
			ProductName: q.ProductName,
			Unit:        unit,
			Buy:         botfmt.FormatPrice(q.BuyPrice),
			Sell:        sell,
			Tracked:     q.SameProduct(product),
		})
	}
	return out
}

// attachChart puts the chart after the group holding the tracked row,
// or after the last group when the product is not listed.
func attachChart(groups []group, svg template.HTML) {
	if len(groups) == 0 || svg == "" {
		return
	}
	at := -1
	for i, g := range groups {
		if g.hasTracked() {
			at = i
			break
		}
	}
	if at < 0 {
		at = len(groups) - 1
	}
	groups[at].Chart = svg
}

func (g group) hasTracked() bool {
	for _, r := range g.Rows {
		if r.Tracked {
			return true
		}
	}
	return false
}

func summarize(ch domain.PriceChange) *changeLine {
	line := &changeLine{Direction: ch.BuyPriceDirection}
	switch {
	case ch.BuyPriceChange != nil && ch.BuyPricePercent != nil:
		line.Text = fmt.Sprintf("%s Mua vào %s (%s)", botfmt.DirectionIcon(ch.BuyPriceDirection),
			botfmt.FormatSignedPrice(*ch.BuyPriceChange), botfmt.FormatPercent(*ch.BuyPricePercent))
	case ch.SellPriceChange != nil && ch.SellPricePercent != nil:
		line.Direction = ch.SellPriceDirection
		line.Text = fmt.Sprintf("%s Bán ra %s (%s)", botfmt.DirectionIcon(ch.SellPriceDirection),
			botfmt.FormatSignedPrice(*ch.SellPriceChange), botfmt.FormatPercent(*ch.SellPricePercent))
	default:
		return nil
	}
	return line
}
