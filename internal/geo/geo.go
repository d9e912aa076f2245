// Package geo loads the borough and postcode boundaries and answers the
// point-in-polygon questions the focus mode needs.
package geo

import (
	"sort"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/london-map/internal/area"
)

// ErrNoFeatures is returned when a boundary source holds no named features.
var ErrNoFeatures = eris.New("geo: no named features")

// Feature is one named boundary.
type Feature struct {
	Name     string
	Key      string
	Geometry geom.T
}

// Center is the center of the feature's bounding box.
func (f *Feature) Center() (geom.Coord, bool) {
	return Center(f.Geometry)
}

// Collection is an ordered set of features indexed by normalized name.
type Collection struct {
	features []*Feature
	byKey    map[string]*Feature
}

// NewCollection indexes features by normalized name. Features without a
// name are dropped; the first feature for a key wins the index but every
// shape is kept for drawing.
func NewCollection(features []*Feature) (*Collection, error) {
	c := &Collection{byKey: make(map[string]*Feature, len(features))}
	for _, f := range features {
		if f == nil {
			continue
		}
		f.Key = area.NormalizeKey(f.Name)
		if f.Key == "" {
			continue
		}
		c.features = append(c.features, f)
		if _, ok := c.byKey[f.Key]; !ok {
			c.byKey[f.Key] = f
		}
	}
	if len(c.features) == 0 {
		return nil, ErrNoFeatures
	}
	return c, nil
}

// Len returns the number of features.
func (c *Collection) Len() int {
	if c == nil {
		return 0
	}
	return len(c.features)
}

// Features returns the features in source order.
func (c *Collection) Features() []*Feature {
	if c == nil {
		return nil
	}
	return c.features
}

// Find looks a feature up by name, case and whitespace insensitively.
func (c *Collection) Find(name string) (*Feature, bool) {
	if c == nil {
		return nil, false
	}
	f, ok := c.byKey[area.NormalizeKey(name)]
	return f, ok
}

// Names returns the first display name of every distinct key, sorted.
func (c *Collection) Names() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.byKey))
	for _, f := range c.byKey {
		names = append(names, f.Name)
	}
	sort.Strings(names)
	return names
}

// Bounds is the extent of every feature.
func (c *Collection) Bounds() *geom.Bounds {
	b := geom.NewBounds(geom.XY)
	for _, f := range c.Features() {
		if f.Geometry != nil {
			b.Extend(f.Geometry)
		}
	}
	return b
}

// Locate returns the first feature whose geometry contains coord.
func (c *Collection) Locate(coord geom.Coord) (*Feature, bool) {
	for _, f := range c.Features() {
		if Contains(f.Geometry, coord) {
			return f, true
		}
	}
	return nil, false
}
