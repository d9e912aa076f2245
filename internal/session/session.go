// Package session holds one loaded snapshot of the map data together with
// the user's selection, and answers every render-side question about it.
package session

import (
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/london-map/internal/area"
	"github.com/sells-group/london-map/internal/geo"
	"github.com/sells-group/london-map/internal/metric"
	"github.com/sells-group/london-map/internal/selection"
	"github.com/sells-group/london-map/internal/style"
)

// ErrNotReady is returned while no session has finished loading.
var ErrNotReady = eris.New("session: not ready")

// Search messages shown to the user.
const (
	MsgEmptyQuery = "Enter a postcode."
	MsgNotFound   = "Postcode not found."
)

// Session is an immutable data snapshot plus a mutable selection.
type Session struct {
	ID       string
	LoadedAt time.Time

	store     *area.Store
	engine    *metric.Engine
	painter   *style.Painter
	boroughs  *geo.Collection
	postcodes *geo.Collection
	// postcodeBorough maps postcode keys to the borough key containing them.
	postcodeBorough map[string]string
	bounds          selection.Bounds

	mu  sync.RWMutex
	sel selection.State
}

// Summary describes a loaded session.
type Summary struct {
	ID        string           `json:"id"`
	Ready     bool             `json:"ready"`
	LoadedAt  time.Time        `json:"loaded_at"`
	Boroughs  int              `json:"boroughs"`
	Postcodes int              `json:"postcodes"`
	Bounds    selection.Bounds `json:"bounds"`
	Years     []int            `json:"years"`
}

// Summary reports the session's identity and size.
func (s *Session) Summary() Summary {
	return Summary{
		ID:        s.ID,
		Ready:     true,
		LoadedAt:  s.LoadedAt,
		Boroughs:  s.store.Len(area.LevelBorough),
		Postcodes: s.store.Len(area.LevelPostcode),
		Bounds:    s.bounds,
		Years:     s.bounds.Years(),
	}
}

// Store exposes the snapshot.
func (s *Session) Store() *area.Store {
	return s.store
}

// Engine exposes the classifier.
func (s *Session) Engine() *metric.Engine {
	return s.engine
}

// Selection returns a copy of the current selection.
func (s *Session) Selection() selection.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sel
}

// UpdateSelection applies a partial update. An invalid update leaves the
// selection unchanged.
func (s *Session) UpdateSelection(u selection.Update) (selection.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, err := s.sel.Apply(u, s.bounds)
	if err != nil {
		return s.sel, err
	}
	s.sel = next
	return next, nil
}

// SetZoom records the map zoom.
func (s *Session) SetZoom(z int) selection.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = s.sel.WithZoom(z)
	return s.sel
}

// Focus zooms into a borough and restricts the postcode layer to it.
func (s *Session) Focus(borough string) (selection.State, error) {
	f, ok := s.boroughs.Find(borough)
	if !ok {
		return s.Selection(), eris.Wrapf(area.ErrUnknownArea, "session: focus %q", borough)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = s.sel.WithZoom(selection.SelectedZoom).
		WithFocusBorough(f.Key).
		WithFocus(selection.AreaRef{Key: f.Key, Level: area.LevelBorough})
	return s.sel, nil
}

// ClearFocus lifts the borough restriction.
func (s *Session) ClearFocus() selection.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sel = s.sel.WithFocusBorough("")
	return s.sel
}

// StyleSet is the style of every feature of one level.
type StyleSet struct {
	Level       area.Level                  `json:"level"`
	Fingerprint string                      `json:"fingerprint"`
	Features    map[string]style.Descriptor `json:"features"`
}

// Styles styles level under the current selection.
func (s *Session) Styles(level area.Level) StyleSet {
	return s.StylesFor(level, s.Selection())
}

// StylesFor styles every feature of level under sel. Features are keyed by
// their display name.
func (s *Session) StylesFor(level area.Level, sel selection.State) StyleSet {
	set := StyleSet{Level: level, Fingerprint: sel.Fingerprint(), Features: map[string]style.Descriptor{}}
	switch level {
	case area.LevelBorough:
		for _, f := range s.boroughs.Features() {
			rec, _ := s.store.Get(level, f.Key)
			set.Features[f.Name] = s.painter.Borough(rec, sel, boroughFocus(f.Key, sel.FocusBorough))
		}
	case area.LevelPostcode:
		for _, f := range s.postcodes.Features() {
			rec, _ := s.store.Get(level, f.Key)
			set.Features[f.Name] = s.painter.Postcode(rec, sel, s.postcodeFocus(f.Key, sel.FocusBorough))
		}
	}
	return set
}

func boroughFocus(key, focused string) style.Focus {
	switch {
	case focused == "":
		return style.FocusNone
	case key == focused:
		return style.FocusInside
	default:
		return style.FocusOutside
	}
}

func (s *Session) postcodeFocus(key, focused string) style.Focus {
	switch {
	case focused == "":
		return style.FocusNone
	case s.postcodeBorough[key] == focused:
		return style.FocusInside
	default:
		return style.FocusOutside
	}
}

// MetricDetail is one classified metric of an area.
type MetricDetail struct {
	Value      *float64      `json:"value"`
	Normalized *float64      `json:"normalized"`
	Bucket     metric.Bucket `json:"bucket"`
	Label      string        `json:"label"`
}

// Detail is the sidebar content of one area.
type Detail struct {
	Name      string       `json:"name"`
	Key       string       `json:"key"`
	Level     area.Level   `json:"level"`
	Borough   string       `json:"borough,omitempty"`
	Summary   string       `json:"summary"`
	Year      int          `json:"year"`
	Price     *float64     `json:"price"`
	PriceText string       `json:"price_text"`
	Crime     MetricDetail `json:"crime"`
	Central   MetricDetail `json:"central"`
	Culture   MetricDetail `json:"culture"`
}

// Detail describes name under the current selection without changing it.
// Boroughs are preferred when a name exists at both levels.
func (s *Session) Detail(name string) (*Detail, error) {
	rec, err := s.store.Find(name)
	if err != nil {
		return nil, eris.Wrapf(err, "session: detail %q", name)
	}
	return s.detail(rec, s.Selection()), nil
}

// Select is Detail that also marks the area as focused.
func (s *Session) Select(name string) (*Detail, error) {
	rec, err := s.store.Find(name)
	if err != nil {
		return nil, eris.Wrapf(err, "session: select %q", name)
	}
	s.mu.Lock()
	s.sel = s.sel.WithFocus(selection.AreaRef{Key: rec.Key, Level: rec.Level})
	sel := s.sel
	s.mu.Unlock()
	return s.detail(rec, sel), nil
}

func (s *Session) detail(rec *area.Record, sel selection.State) *Detail {
	d := &Detail{
		Name:    rec.DisplayName(),
		Key:     rec.Key,
		Level:   rec.Level,
		Summary: rec.Summary,
		Year:    sel.Year,
	}
	if rec.Level == area.LevelPostcode {
		d.Borough = s.postcodeBorough[rec.Key]
	}
	price, ok := area.ResolvePrice(rec, sel.Year, sel.SizeBand, sel.DwellingType)
	if ok {
		d.Price = area.Float(price)
	}
	d.PriceText = style.PriceText(price, ok)
	d.Crime = s.metricDetail(rec, metric.KindCrime, sel.Year)
	d.Central = s.metricDetail(rec, metric.KindCentral, sel.Year)
	d.Culture = s.metricDetail(rec, metric.KindCulture, sel.Year)
	return d
}

func (s *Session) metricDetail(rec *area.Record, k metric.Kind, year int) MetricDetail {
	res := s.engine.ClassifyRecord(rec, k, year)
	return MetricDetail{
		Value:      metric.RawValue(rec, k, year),
		Normalized: res.Normalized,
		Bucket:     res.Bucket,
		Label:      res.Bucket.Label(),
	}
}

// Legend returns the legend of the current mode.
func (s *Session) Legend() []style.LegendEntry {
	return style.Legend(s.Selection().Mode, s.painter.Palette())
}

// LegendFor returns the legend of mode.
func (s *Session) LegendFor(mode metric.Kind) []style.LegendEntry {
	return style.Legend(mode, s.painter.Palette())
}

// SearchResult is the outcome of a postcode search. Bounds is
// [minX, minY, maxX, maxY] of the matched postcode.
type SearchResult struct {
	Found   bool       `json:"found"`
	Message string     `json:"message,omitempty"`
	Detail  *Detail    `json:"detail,omitempty"`
	Bounds  [4]float64 `json:"bounds"`
}

// Search finds a postcode by outward code. A hit focuses the postcode and
// zooms to the postcode layer.
func (s *Session) Search(query string) SearchResult {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return SearchResult{Message: MsgEmptyQuery}
	}
	f, ok := s.postcodes.Find(q)
	if !ok {
		return SearchResult{Message: MsgNotFound}
	}
	rec, ok := s.store.Get(area.LevelPostcode, f.Key)
	if !ok {
		return SearchResult{Message: MsgNotFound}
	}

	s.mu.Lock()
	s.sel = s.sel.WithZoom(selection.SelectedZoom).
		WithFocus(selection.AreaRef{Key: f.Key, Level: area.LevelPostcode})
	sel := s.sel
	s.mu.Unlock()

	res := SearchResult{Found: true, Detail: s.detail(rec, sel)}
	if f.Geometry != nil {
		b := f.Geometry.Bounds()
		res.Bounds = [4]float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	}
	return res
}

// MetricStats is the population summary of one metric.
type MetricStats struct {
	Metric     metric.Kind        `json:"metric"`
	Level      area.Level         `json:"level"`
	Year       int                `json:"year,omitempty"`
	Size       int                `json:"size"`
	Thresholds *metric.Thresholds `json:"thresholds,omitempty"`
	Range      *metric.Range      `json:"range,omitempty"`
}

// PopulationStats summarizes every classified metric at level for year.
// Price has no population statistics and is omitted.
func (s *Session) PopulationStats(level area.Level, year int) []MetricStats {
	st := s.engine.Stats()
	var out []MetricStats
	for _, k := range metric.Kinds() {
		if k == metric.KindPrice {
			continue
		}
		ms := MetricStats{Metric: k, Level: level, Size: st.PopulationSize(k, level, year)}
		if k.Yearly() {
			ms.Year = year
		}
		if th, ok := st.Thresholds(k, level, year); ok {
			ms.Thresholds = &th
		}
		if rng, ok := st.Range(k, level, year); ok {
			ms.Range = &rng
		}
		out = append(out, ms)
	}
	return out
}

// CacheStats reports statistics cache usage.
func (s *Session) CacheStats() metric.CacheStats {
	return s.engine.Stats().Stats()
}
