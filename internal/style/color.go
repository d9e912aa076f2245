// Package style turns classified area values into fill colors, feature
// style descriptors and legends for the map renderer.
package style

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// Fixed colors.
const (
	MissingColor = "#9ca3af"
	// OverflowColor marks prices above the selection's ceiling. It is darker
	// than the top price band so the two never read as the same bucket.
	OverflowColor = "#1c0a03"
)

// RGB is an 8-bit color.
type RGB [3]uint8

// Hex formats the color as #rrggbb.
func (c RGB) Hex() string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}

// CSS formats the color as rgb(r, g, b).
func (c RGB) CSS() string {
	return fmt.Sprintf("rgb(%d, %d, %d)", c[0], c[1], c[2])
}

// Ramp is a linear gradient between two colors.
type Ramp struct {
	Low  RGB `yaml:"low" json:"low"`
	High RGB `yaml:"high" json:"high"`
}

// At interpolates the ramp at v in [0,1]; each channel is rounded.
func (r Ramp) At(v float64) RGB {
	v = math.Max(0, math.Min(1, v))
	var out RGB
	for i := range out {
		lo, hi := float64(r.Low[i]), float64(r.High[i])
		out[i] = uint8(math.Round(lo + (hi-lo)*v))
	}
	return out
}

// ParseHex parses #rrggbb.
func ParseHex(s string) (RGB, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[0] != '#' {
		return RGB{}, eris.Errorf("style: invalid color %q", s)
	}
	var c RGB
	for i := range c {
		v, err := strconv.ParseUint(s[1+2*i:3+2*i], 16, 8)
		if err != nil {
			return RGB{}, eris.Wrapf(err, "style: invalid color %q", s)
		}
		c[i] = uint8(v)
	}
	return c, nil
}

// MarshalText encodes the color as #rrggbb.
func (c RGB) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText decodes #rrggbb.
func (c *RGB) UnmarshalText(b []byte) error {
	parsed, err := ParseHex(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// priceBand is one step of the fixed price scale.
type priceBand struct {
	above float64
	color string
}

// priceBands is ordered from most to least expensive.
var priceBands = []priceBand{
	{1_500_000, "#431407"},
	{1_200_000, "#7c2d12"},
	{1_000_000, "#c2410c"},
	{800_000, "#ea580c"},
	{600_000, "#f97316"},
	{450_000, "#fb923c"},
	{300_000, "#fdba74"},
}

const priceFloorColor = "#fed7aa"

// PriceColor maps a price onto the fixed orange scale.
func PriceColor(price float64) string {
	for _, b := range priceBands {
		if price > b.above {
			return b.color
		}
	}
	return priceFloorColor
}

// PriceFill colors a resolved price, honoring the ceiling.
func PriceFill(price float64, ok bool, ceiling float64) string {
	switch {
	case !ok:
		return MissingColor
	case price > ceiling:
		return OverflowColor
	default:
		return PriceColor(price)
	}
}
