package chart

// Options - geometry, scaling constants and palette of the trend chart.
// Scaling constants are a visual choice and can be tuned from config.
type Options struct {
	Width         float64
	Height        float64
	PaddingTop    float64
	PaddingBottom float64
	// BadgeMargin is reserved at both horizontal ends so the endpoint badge is never clipped.
	BadgeMargin float64

	StablePercent  float64 // |delta| below this is "stable"
	FlatRange      float64
	NearFlatRange  float64
	FlatFactor     float64
	NearFlatFactor float64
	DefaultFactor  float64
	FlatFloor      float64 // min display span when rawRange < NearFlatRange
	DefaultFloor   float64

	ColorUp        string
	ColorDown      string
	ColorStable    string
	ColorFirst     string
	ColorHighlight string
}

// DefaultOptions returns the stock chart settings.
func DefaultOptions() Options {
	return Options{
		Width:         640,
		Height:        220,
		PaddingTop:    28,
		PaddingBottom: 30,
		BadgeMargin:   60,

		StablePercent:  0.01,
		FlatRange:      0.05,
		NearFlatRange:  0.1,
		FlatFactor:     3.0,
		NearFlatFactor: 2.5,
		DefaultFactor:  1.5,
		FlatFloor:      0.3,
		DefaultFloor:   0.2,

		ColorUp:        "#16a34a",
		ColorDown:      "#dc2626",
		ColorStable:    "#9ca3af",
		ColorFirst:     "#2563eb",
		ColorHighlight: "#f59e0b",
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	setF := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	setS := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}
	setF(&o.Width, d.Width)
	setF(&o.Height, d.Height)
	setF(&o.PaddingTop, d.PaddingTop)
	setF(&o.PaddingBottom, d.PaddingBottom)
	setF(&o.BadgeMargin, d.BadgeMargin)
	setF(&o.StablePercent, d.StablePercent)
	setF(&o.FlatRange, d.FlatRange)
	setF(&o.NearFlatRange, d.NearFlatRange)
	setF(&o.FlatFactor, d.FlatFactor)
	setF(&o.NearFlatFactor, d.NearFlatFactor)
	setF(&o.DefaultFactor, d.DefaultFactor)
	setF(&o.FlatFloor, d.FlatFloor)
	setF(&o.DefaultFloor, d.DefaultFloor)
	setS(&o.ColorUp, d.ColorUp)
	setS(&o.ColorDown, d.ColorDown)
	setS(&o.ColorStable, d.ColorStable)
	setS(&o.ColorFirst, d.ColorFirst)
	setS(&o.ColorHighlight, d.ColorHighlight)
	return o
}
