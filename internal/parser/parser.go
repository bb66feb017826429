// Package parser turns the dealer's price table markup into quotes.
package parser

import (
	"strconv"
	"strings"

	"github.com/NastyaGoryachaya/silver-price-monitor/internal/consts"
	"github.com/NastyaGoryachaya/silver-price-monitor/internal/domain"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Column colors the feed uses to tell buy and sell cells apart.
const (
	buyColor  = "#8b171a"
	sellColor = "#25544b"
)

type row struct {
	quote   domain.Quote
	hasBuy  bool // explicit buy-colored cell
	hasSell bool // explicit sell-colored cell
}

// ParseAll extracts every quote from the price table in markup order.
// Rows without a positive buy price are dropped.
func ParseAll(markup string) []domain.Quote {
	rows := scan(markup)
	out := make([]domain.Quote, 0, len(rows))
	for _, r := range rows {
		if r.quote.BuyPrice <= 0 {
			continue
		}
		out = append(out, r.quote)
	}
	return out
}

// ParseOne picks a single quote: the first row whose product name contains hint,
// else the first row exposing both a buy and a sell cell, else nil.
// An empty hint falls back to consts.DefaultProduct.
func ParseOne(markup, hint string) *domain.Quote {
	if strings.TrimSpace(hint) == "" {
		hint = consts.DefaultProduct
	}
	rows := scan(markup)
	for _, r := range rows {
		if r.quote.ProductName != "" && strings.Contains(r.quote.ProductName, hint) {
			return validQuote(r)
		}
	}
	for _, r := range rows {
		if r.hasBuy && r.hasSell {
			return validQuote(r)
		}
	}
	return nil
}

// Select applies the ParseOne fallback chain to already parsed quotes.
func Select(quotes []domain.Quote, hint string) *domain.Quote {
	if strings.TrimSpace(hint) == "" {
		hint = consts.DefaultProduct
	}
	for i := range quotes {
		if strings.Contains(quotes[i].ProductName, hint) {
			q := quotes[i]
			return &q
		}
	}
	for i := range quotes {
		if quotes[i].BuyPrice > 0 && quotes[i].HasSellOffer() {
			q := quotes[i]
			return &q
		}
	}
	return nil
}

func validQuote(r row) *domain.Quote {
	if r.quote.BuyPrice <= 0 {
		return nil
	}
	q := r.quote
	return &q
}

// scan walks the price table rows, tracking the current category header.
func scan(markup string) []row {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil
	}
	table := findFirst(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && hasClasses(n, "table", "table-striped", "table-bordered")
	})
	if table == nil {
		return nil
	}

	var (
		rows     []row
		category string
	)
	for _, tr := range findAll(table, func(n *html.Node) bool { return n.DataAtom == atom.Tr }) {
		if !insideBody(tr, table) {
			continue
		}
		cells := children(tr, atom.Td)
		if len(cells) == 0 {
			continue
		}

		if title := categoryTitle(cells); title != "" {
			category = title
			continue
		}

		var product *html.Node
		for _, c := range cells {
			if hasClasses(c, "col-product") {
				product = c
				break
			}
		}
		if product == nil {
			continue
		}

		r := row{}
		r.quote.ProductName = text(product)
		r.quote.Category = category
		r.quote.Unit = consts.DefaultUnit
		for _, c := range cells {
			if hasClasses(c, "col-unit-value") {
				if u := text(c); u != "" {
					r.quote.Unit = u
				}
				break
			}
		}

		buyCell := colored(cells, buyColor)
		sellCell := colored(cells, sellColor)
		r.hasBuy = buyCell != nil
		r.hasSell = sellCell != nil
		if buyCell == nil && len(cells) > 2 {
			buyCell = cells[2]
		}
		if sellCell == nil && len(cells) > 3 {
			sellCell = cells[3]
		}

		if buyCell != nil {
			r.quote.BuyPrice, _ = parsePrice(text(buyCell))
		}
		if sellCell != nil {
			sellText := text(sellCell)
			if sellText != "" && sellText != "-" {
				r.quote.SellPrice, _ = parsePrice(sellText)
			}
		}
		rows = append(rows, r)
	}
	return rows
}

// parsePrice strips every non-digit and converts: "2,329,000" -> 2329000.
func parsePrice(s string) (int64, bool) {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func categoryTitle(cells []*html.Node) string {
	for _, c := range cells {
		if _, ok := attr(c, "colspan"); !ok {
			continue
		}
		title := findFirst(c, func(n *html.Node) bool { return hasClasses(n, "branch_title") })
		if title != nil {
			return text(title)
		}
	}
	return ""
}

func colored(cells []*html.Node, color string) *html.Node {
	for _, c := range cells {
		if !hasClasses(c, "col-buy-cell") {
			continue
		}
		style, _ := attr(c, "style")
		if strings.Contains(strings.ToLower(style), color) {
			return c
		}
	}
	return nil
}

// text returns the collapsed text content; leftover numeric entities
// (double-encoded in some feed rows) are decoded as well.
func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	s := html.UnescapeString(b.String())
	return strings.Join(strings.Fields(s), " ")
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClasses(n *html.Node, classes ...string) bool {
	if n.Type != html.ElementNode {
		return false
	}
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	have := strings.Fields(v)
	for _, want := range classes {
		found := false
		for _, h := range have {
			if h == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func children(n *html.Node, a atom.Atom) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == a {
			out = append(out, c)
		}
	}
	return out
}

// insideBody reports whether tr belongs to a tbody of table (not a nested table).
func insideBody(tr, table *html.Node) bool {
	for p := tr.Parent; p != nil; p = p.Parent {
		if p == table {
			return false
		}
		if p.DataAtom == atom.Tbody {
			return p.Parent == table
		}
	}
	return false
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}
