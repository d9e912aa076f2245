package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/london-map/internal/area"
	"github.com/sells-group/london-map/internal/fetcher"
	"github.com/sells-group/london-map/internal/geo"
	"github.com/sells-group/london-map/internal/metric"
	"github.com/sells-group/london-map/internal/selection"
	"github.com/sells-group/london-map/internal/store"
	"github.com/sells-group/london-map/internal/style"
)

// DefaultShapefileNameField is the borough name attribute of the London
// statistical-gis boundary files.
const DefaultShapefileNameField = "NAME"

// Sources locates the payloads a session is built from. Every location is
// a path, an http(s) URL or an ftp:// URL.
type Sources struct {
	BoroughsGeoJSON    string
	PostcodesGeoJSON   string
	BoroughsShapefile  string
	ShapefileNameField string
	PostcodePrices     string
	BoroughPrices      string
	Metrics            string
}

// Options configures Load.
type Options struct {
	Sources     Sources
	Records     store.Options
	Fetch       fetcher.Options
	Bounds      selection.Bounds
	PalettePath string
}

// payloads is everything fetched during the load phase.
type payloads struct {
	boroughs       *geo.Collection
	postcodes      *geo.Collection
	postcodePrices *area.PricePayload
	boroughPrices  *area.PricePayload
	metrics        *area.MetricsPayload
	records        []store.PriceRecord
	palette        style.Palette
}

// Load fetches every payload concurrently and freezes them into a Session.
// Boundary geometry is mandatory; prices, metrics and records degrade to
// empty with a warning.
func Load(ctx context.Context, opts Options) (*Session, error) {
	if err := opts.Bounds.Validate(); err != nil {
		return nil, err
	}
	log := zap.L().With(zap.String("component", "session"))
	start := time.Now()
	f := fetcher.New(opts.Fetch)

	var p payloads
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := loadBoroughs(gctx, f, opts.Sources)
		if err != nil {
			return err
		}
		p.boroughs = c
		return nil
	})
	g.Go(func() error {
		c, err := loadGeoJSON(gctx, f, opts.Sources.PostcodesGeoJSON)
		if err != nil {
			return eris.Wrap(err, "session: postcode boundaries")
		}
		p.postcodes = c
		return nil
	})
	g.Go(func() error {
		p.postcodePrices = loadOptional[area.PricePayload](gctx, f, "postcode_prices", opts.Sources.PostcodePrices)
		return nil
	})
	g.Go(func() error {
		p.boroughPrices = loadOptional[area.PricePayload](gctx, f, "borough_prices", opts.Sources.BoroughPrices)
		return nil
	})
	g.Go(func() error {
		p.metrics = loadOptional[area.MetricsPayload](gctx, f, "metrics", opts.Sources.Metrics)
		return nil
	})
	g.Go(func() error {
		p.records = loadRecords(gctx, f, opts.Records)
		return nil
	})
	g.Go(func() error {
		palette, err := style.LoadPalette(opts.PalettePath)
		if err != nil {
			return err
		}
		p.palette = palette
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := build(p, opts.Bounds)
	log.Info("session loaded",
		zap.String("session_id", s.ID),
		zap.Int("boroughs", s.store.Len(area.LevelBorough)),
		zap.Int("postcodes", s.store.Len(area.LevelPostcode)),
		zap.Int("records", len(p.records)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return s, nil
}

// build assembles the snapshot. Nothing here can fail: missing optional
// payloads simply leave areas without data.
func build(p payloads, bounds selection.Bounds) *Session {
	b := area.NewBuilder()
	for _, f := range p.boroughs.Features() {
		b.AddFeature(area.LevelBorough, f.Name)
	}
	for _, f := range p.postcodes.Features() {
		b.AddFeature(area.LevelPostcode, f.Name)
	}

	b.ApplyPrices(area.LevelPostcode, p.postcodePrices)
	b.ApplyPrices(area.LevelBorough, p.boroughPrices)
	b.ApplyMetrics(area.LevelPostcode, p.metrics)
	b.ApplyMetrics(area.LevelBorough, p.metrics)

	if len(p.records) > 0 {
		res := store.Fold(b, p.records)
		zap.L().Info("session: folded price records",
			zap.Int("applied", res.Applied),
			zap.Int("skipped", res.Skipped),
			zap.Int("borough_cells", res.Boroughs),
		)
	}

	st := b.Build()
	engine := metric.NewEngine(metric.NewStats(st))
	return &Session{
		ID:              uuid.New().String(),
		LoadedAt:        time.Now().UTC(),
		store:           st,
		engine:          engine,
		painter:         style.NewPainter(engine, p.palette),
		boroughs:        p.boroughs,
		postcodes:       p.postcodes,
		postcodeBorough: assignBoroughs(p.postcodes, p.boroughs),
		bounds:          bounds,
		sel:             selection.Default(bounds),
	}
}

// assignBoroughs maps each postcode key to the borough containing the center
// of its bounding box.
func assignBoroughs(postcodes, boroughs *geo.Collection) map[string]string {
	out := make(map[string]string, postcodes.Len())
	for _, pc := range postcodes.Features() {
		if _, seen := out[pc.Key]; seen {
			continue
		}
		center, ok := pc.Center()
		if !ok {
			continue
		}
		if b, ok := boroughs.Locate(center); ok {
			out[pc.Key] = b.Key
		}
	}
	return out
}

func loadGeoJSON(ctx context.Context, f fetcher.Fetcher, location string) (*geo.Collection, error) {
	if location == "" {
		return nil, eris.New("no location configured")
	}
	rc, err := f.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck
	return geo.DecodeFeatureCollection(rc)
}

// loadBoroughs reads the borough boundaries from the shapefile source when
// one is configured, otherwise from GeoJSON.
func loadBoroughs(ctx context.Context, f *fetcher.Router, src Sources) (*geo.Collection, error) {
	if src.BoroughsShapefile == "" {
		c, err := loadGeoJSON(ctx, f, src.BoroughsGeoJSON)
		return c, eris.Wrap(err, "session: borough boundaries")
	}

	dir, err := os.MkdirTemp("", "londonmap-shp-")
	if err != nil {
		return nil, eris.Wrap(err, "session: create temp dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path, err := f.Localize(ctx, src.BoroughsShapefile, dir)
	if err != nil {
		return nil, eris.Wrap(err, "session: fetch borough shapefile")
	}
	if strings.EqualFold(filepath.Ext(path), ".zip") {
		files, err := fetcher.ExtractZIP(path, filepath.Join(dir, "extract"))
		if err != nil {
			return nil, eris.Wrap(err, "session: extract borough shapefile")
		}
		if path, err = fetcher.FindByExt(files, ".shp"); err != nil {
			return nil, eris.Wrap(err, "session: borough shapefile")
		}
	}

	field := src.ShapefileNameField
	if field == "" {
		field = DefaultShapefileNameField
	}
	c, err := geo.ReadShapefile(path, field)
	return c, eris.Wrap(err, "session: borough boundaries")
}

// loadOptional fetches a JSON payload, returning nil when the location is
// unset or the fetch fails.
func loadOptional[T any](ctx context.Context, f fetcher.Fetcher, name, location string) *T {
	if location == "" {
		zap.L().Warn("session: payload not configured", zap.String("payload", name))
		return nil
	}
	v, err := fetcher.Load[T](ctx, f, location)
	if err != nil {
		zap.L().Warn("session: payload unavailable, continuing without it",
			zap.String("payload", name),
			zap.String("location", location),
			zap.Error(err),
		)
		return nil
	}
	return v
}

func loadRecords(ctx context.Context, f *fetcher.Router, opts store.Options) []store.PriceRecord {
	src, err := store.Open(ctx, opts, f)
	if err != nil {
		zap.L().Warn("session: record source unavailable", zap.String("driver", opts.Driver), zap.Error(err))
		return nil
	}
	if src == nil {
		return nil
	}
	defer src.Close() //nolint:errcheck

	records, err := src.PriceRecords(ctx)
	if err != nil {
		zap.L().Warn("session: reading price records failed", zap.String("driver", opts.Driver), zap.Error(err))
		return nil
	}
	return records
}
