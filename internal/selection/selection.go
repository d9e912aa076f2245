// Package selection models the user's current map filters and focus.
package selection

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/london-map/internal/area"
	"github.com/sells-group/london-map/internal/metric"
)

// Map zoom levels.
const (
	DefaultZoom  = 10
	SelectedZoom = 14
	// PostcodeZoom is the zoom at which the postcode layer replaces boroughs.
	PostcodeZoom = SelectedZoom - 1
)

// Bounds constrains what a State may hold.
type Bounds struct {
	MinYear      int     `json:"min_year"`
	MaxYear      int     `json:"max_year"`
	PriceCeiling float64 `json:"price_ceiling"`
}

// DefaultBounds covers the years the price series are published for.
func DefaultBounds() Bounds {
	return Bounds{MinYear: 2015, MaxYear: 2026, PriceCeiling: 3_000_000}
}

// Validate checks the bounds are usable.
func (b Bounds) Validate() error {
	if b.MinYear > b.MaxYear {
		return eris.Errorf("selection: min year %d after max year %d", b.MinYear, b.MaxYear)
	}
	if b.PriceCeiling <= 0 {
		return eris.Errorf("selection: price ceiling must be positive, got %v", b.PriceCeiling)
	}
	return nil
}

// Years lists every selectable year, oldest first.
func (b Bounds) Years() []int {
	years := make([]int, 0, b.MaxYear-b.MinYear+1)
	for y := b.MinYear; y <= b.MaxYear; y++ {
		years = append(years, y)
	}
	return years
}

// AreaRef points at one area.
type AreaRef struct {
	Key   string     `json:"key"`
	Level area.Level `json:"level"`
}

// State is the full set of filters read on every render.
type State struct {
	Year         int         `json:"year"`
	DwellingType string      `json:"dwelling_type"`
	SizeBand     string      `json:"size_band"`
	PriceCeiling float64     `json:"price_ceiling"`
	Mode         metric.Kind `json:"mode"`
	// Focused is the last area the user clicked or searched for.
	Focused *AreaRef `json:"focused,omitempty"`
	Zoom    int      `json:"zoom"`
	// FocusBorough restricts the postcode layer to one borough.
	FocusBorough string `json:"focus_borough,omitempty"`
}

// Default returns the initial state: latest year, every type and size,
// price mode, nothing focused.
func Default(b Bounds) State {
	return State{
		Year:         b.MaxYear,
		DwellingType: area.All,
		SizeBand:     area.All,
		PriceCeiling: b.PriceCeiling,
		Mode:         metric.KindPrice,
		Zoom:         DefaultZoom,
	}
}

// ActiveLevel is the layer shown at the current zoom.
func (s State) ActiveLevel() area.Level {
	if s.Zoom >= PostcodeZoom {
		return area.LevelPostcode
	}
	return area.LevelBorough
}

// LayerOpacity is the opacity multiplier applied to level's styles.
func (s State) LayerOpacity(level area.Level) float64 {
	if s.ActiveLevel() == level {
		return 1
	}
	return 0
}

// Fingerprint identifies every field that affects feature styles.
func (s State) Fingerprint() string {
	return fmt.Sprintf("%d|%s|%s|%g|%s|%d|%s",
		s.Year, s.DwellingType, s.SizeBand, s.PriceCeiling, s.Mode, s.Zoom, s.FocusBorough)
}

// Update is a partial change; nil fields are left alone.
type Update struct {
	Year         *int         `json:"year,omitempty"`
	DwellingType *string      `json:"dwelling_type,omitempty"`
	SizeBand     *string      `json:"size_band,omitempty"`
	PriceCeiling *float64     `json:"price_ceiling,omitempty"`
	Mode         *metric.Kind `json:"mode,omitempty"`
	Zoom         *int         `json:"zoom,omitempty"`
}

// Apply returns s with u applied, or an error if any field is out of bounds.
// The receiver is never modified.
func (s State) Apply(u Update, b Bounds) (State, error) {
	next := s
	if u.Year != nil {
		if *u.Year < b.MinYear || *u.Year > b.MaxYear {
			return s, eris.Errorf("selection: year %d outside %d-%d", *u.Year, b.MinYear, b.MaxYear)
		}
		next.Year = *u.Year
	}
	if u.DwellingType != nil {
		v := normalizeFilter(*u.DwellingType)
		if v == "" {
			return s, eris.New("selection: dwelling type is empty")
		}
		next.DwellingType = v
	}
	if u.SizeBand != nil {
		v := normalizeFilter(*u.SizeBand)
		if v == "" {
			return s, eris.New("selection: size band is empty")
		}
		next.SizeBand = v
	}
	if u.PriceCeiling != nil {
		if *u.PriceCeiling <= 0 {
			return s, eris.Errorf("selection: price ceiling must be positive, got %v", *u.PriceCeiling)
		}
		next.PriceCeiling = *u.PriceCeiling
	}
	if u.Mode != nil {
		if !u.Mode.Valid() {
			return s, eris.Errorf("selection: invalid mode %d", int(*u.Mode))
		}
		next.Mode = *u.Mode
	}
	if u.Zoom != nil {
		next = next.WithZoom(*u.Zoom)
	}
	return next, nil
}

// WithZoom sets the zoom. The borough focus survives only above
// PostcodeZoom, so zooming out to the layer switch point clears it.
func (s State) WithZoom(z int) State {
	s.Zoom = z
	if z <= PostcodeZoom {
		s.FocusBorough = ""
	}
	return s
}

// WithFocus records the focused area.
func (s State) WithFocus(ref AreaRef) State {
	s.Focused = &ref
	return s
}

// WithFocusBorough restricts the postcode layer to the borough key; an empty
// key clears the restriction.
func (s State) WithFocusBorough(key string) State {
	s.FocusBorough = area.NormalizeKey(key)
	return s
}

// normalizeFilter trims a size band or dwelling type; "all" is matched
// case-insensitively. Table keys are otherwise case-sensitive.
func normalizeFilter(v string) string {
	v = strings.TrimSpace(v)
	if strings.EqualFold(v, area.All) {
		return area.All
	}
	return v
}
