package geo

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// NameProperty is the feature property holding the area name.
const NameProperty = "name"

// DecodeFeatureCollection reads a GeoJSON FeatureCollection. Features whose
// name property is missing or not a string are skipped.
func DecodeFeatureCollection(r io.Reader) (*Collection, error) {
	var fc geojson.FeatureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, eris.Wrap(err, "geo: decode feature collection")
	}
	features := make([]*Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f == nil {
			continue
		}
		name, _ := f.Properties[NameProperty].(string)
		if strings.TrimSpace(name) == "" {
			continue
		}
		features = append(features, &Feature{Name: name, Geometry: f.Geometry})
	}
	return NewCollection(features)
}
