package style

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/london-map/internal/metric"
)

// Palette holds the gradient ramps of the continuous metrics.
type Palette struct {
	Crime   Ramp `yaml:"crime" json:"crime"`
	Central Ramp `yaml:"central" json:"central"`
	Culture Ramp `yaml:"culture" json:"culture"`
}

// DefaultPalette is blue for crime, green for central proximity and yellow
// for culture, light to dark.
func DefaultPalette() Palette {
	return Palette{
		Crime:   Ramp{Low: RGB{219, 234, 254}, High: RGB{29, 78, 216}},
		Central: Ramp{Low: RGB{220, 252, 231}, High: RGB{22, 163, 74}},
		Culture: Ramp{Low: RGB{254, 249, 195}, High: RGB{202, 138, 4}},
	}
}

// Ramp returns the gradient for k. Price uses the fixed band scale and has
// no ramp.
func (p Palette) Ramp(k metric.Kind) (Ramp, bool) {
	switch k {
	case metric.KindCrime:
		return p.Crime, true
	case metric.KindCentral:
		return p.Central, true
	case metric.KindCulture:
		return p.Culture, true
	case metric.KindPrice:
		return Ramp{}, false
	default:
		return Ramp{}, false
	}
}

// LoadPalette reads a YAML palette file. Ramps missing from the file keep
// their defaults. An empty path returns the default palette.
func LoadPalette(path string) (Palette, error) {
	p := DefaultPalette()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return p, eris.Wrapf(err, "style: read palette %s", path)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return DefaultPalette(), eris.Wrapf(err, "style: parse palette %s", path)
	}
	return p, nil
}
