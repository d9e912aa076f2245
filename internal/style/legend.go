package style

import (
	"fmt"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/london-map/internal/metric"
)

// LegendEntry is one swatch of the legend. Background is a CSS background
// value: a color or a linear gradient.
type LegendEntry struct {
	Background string `json:"background"`
	Label      string `json:"label"`
}

var priceLegend = []struct {
	floor float64
	label string
}{
	{0, "< £400k"},
	{400_000, "£400k+"},
	{500_000, "£500k+"},
	{600_000, "£600k+"},
	{800_000, "£800k+"},
	{1_000_000, "£1M+"},
	{1_200_000, "£1.2M+"},
	{1_500_000, "> £1.5M"},
}

// Legend returns the legend for mode.
func Legend(mode metric.Kind, palette Palette) []LegendEntry {
	var entries []LegendEntry
	if ramp, ok := palette.Ramp(mode); ok {
		entries = append(entries, LegendEntry{
			Background: fmt.Sprintf("linear-gradient(to right, %s, %s)", ramp.Low.Hex(), ramp.High.Hex()),
			Label:      "Low to High",
		})
	} else {
		for _, g := range priceLegend {
			entries = append(entries, LegendEntry{Background: PriceColor(g.floor + 1), Label: g.label})
		}
	}
	return append(entries, LegendEntry{Background: MissingColor, Label: metric.NotAvailable})
}

var gbp = message.NewPrinter(language.BritishEnglish)

// FormatPrice renders a price as whole pounds with thousands separators.
func FormatPrice(price float64) string {
	return gbp.Sprintf("£%d", int64(math.Round(price)))
}

// PriceText is FormatPrice, or the not-available label.
func PriceText(price float64, ok bool) string {
	if !ok {
		return metric.NotAvailable
	}
	return FormatPrice(price)
}
