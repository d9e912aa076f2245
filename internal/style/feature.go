package style

import (
	"github.com/sells-group/london-map/internal/area"
	"github.com/sells-group/london-map/internal/metric"
	"github.com/sells-group/london-map/internal/selection"
)

// Descriptor is the per-feature style handed to the map renderer.
type Descriptor struct {
	FillColor   string  `json:"fillColor"`
	Weight      float64 `json:"weight"`
	Opacity     float64 `json:"opacity"`
	BorderColor string  `json:"color"`
	FillOpacity float64 `json:"fillOpacity"`
	Interactive bool    `json:"interactive"`
}

// WithLayerOpacity scales both opacities by the layer multiplier.
func (d Descriptor) WithLayerOpacity(m float64) Descriptor {
	d.Opacity *= m
	d.FillOpacity *= m
	return d
}

// Outline is the border treatment of a feature.
type Outline struct {
	Weight      float64
	BorderColor string
	FillOpacity float64
}

// Outlines by layer and focus state.
var (
	BoroughOutline         = Outline{Weight: 2, BorderColor: "white", FillOpacity: 0.6}
	PostcodeOutline        = Outline{Weight: 1, BorderColor: "#eee", FillOpacity: 0.8}
	FocusedPostcodeOutline = Outline{Weight: 1.5, BorderColor: "#fff", FillOpacity: 0.9}
)

// Focus describes how a feature relates to the focused borough.
type Focus int

// Focus states.
const (
	// FocusNone means no borough is focused.
	FocusNone Focus = iota
	// FocusInside is the focused borough itself, or a postcode within it.
	FocusInside
	// FocusOutside is any other feature while a borough is focused.
	FocusOutside
)

// Painter colors records for the current selection.
type Painter struct {
	engine  *metric.Engine
	palette Palette
}

// NewPainter creates a Painter.
func NewPainter(engine *metric.Engine, palette Palette) *Painter {
	return &Painter{engine: engine, palette: palette}
}

// Palette returns the painter's ramps.
func (p *Painter) Palette() Palette {
	return p.palette
}

// Fill returns the fill color of rec in the selection's mode.
func (p *Painter) Fill(rec *area.Record, sel selection.State) string {
	if sel.Mode == metric.KindPrice {
		price, ok := area.ResolvePrice(rec, sel.Year, sel.SizeBand, sel.DwellingType)
		return PriceFill(price, ok, sel.PriceCeiling)
	}
	res := p.engine.ClassifyRecord(rec, sel.Mode, sel.Year)
	ramp, ok := p.palette.Ramp(sel.Mode)
	if !ok || res.Normalized == nil {
		return MissingColor
	}
	return ramp.At(*res.Normalized).CSS()
}

// Feature styles a record with the given outline. A nil record (a shape with
// no data at all) is drawn in the missing color at reduced opacity.
func (p *Painter) Feature(rec *area.Record, sel selection.State, o Outline) Descriptor {
	if rec == nil {
		return Descriptor{
			FillColor:   MissingColor,
			Weight:      o.Weight,
			Opacity:     1,
			BorderColor: o.BorderColor,
			FillOpacity: 0.4,
			Interactive: true,
		}
	}
	return Descriptor{
		FillColor:   p.Fill(rec, sel),
		Weight:      o.Weight,
		Opacity:     1,
		BorderColor: o.BorderColor,
		FillOpacity: o.FillOpacity,
		Interactive: true,
	}
}

// Borough styles a borough feature.
func (p *Painter) Borough(rec *area.Record, sel selection.State, focus Focus) Descriptor {
	var d Descriptor
	switch focus {
	case FocusInside:
		// Transparent so the postcodes underneath take the clicks.
		d = Descriptor{FillColor: "transparent", Weight: 2, Opacity: 1, BorderColor: "#666"}
	case FocusOutside:
		d = Descriptor{FillColor: "#f5f5f5", Weight: 1, Opacity: 1, BorderColor: "#ddd", FillOpacity: 0.5}
	default:
		d = p.Feature(rec, sel, BoroughOutline)
	}
	return d.WithLayerOpacity(sel.LayerOpacity(area.LevelBorough))
}

// Postcode styles a postcode feature.
func (p *Painter) Postcode(rec *area.Record, sel selection.State, focus Focus) Descriptor {
	var d Descriptor
	switch focus {
	case FocusInside:
		d = p.Feature(rec, sel, FocusedPostcodeOutline)
	case FocusOutside:
		d = Descriptor{FillColor: "transparent", BorderColor: "transparent"}
	default:
		d = p.Feature(rec, sel, PostcodeOutline)
	}
	return d.WithLayerOpacity(sel.LayerOpacity(area.LevelPostcode))
}
