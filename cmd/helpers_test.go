package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/london-map/internal/config"
)

func square(name string, x0, y0, x1, y1 float64) string {
	return fmt.Sprintf(`{"type":"Feature","properties":{"name":%q},"geometry":{"type":"Polygon","coordinates":[[[%g,%g],[%g,%g],[%g,%g],[%g,%g],[%g,%g]]]}}`,
		name, x0, y0, x1, y0, x1, y1, x0, y1, x0, y0)
}

func collection(features ...string) string {
	return `{"type":"FeatureCollection","features":[` + strings.Join(features, ",") + `]}`
}

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testConfig points cfg at a two-borough fixture and returns it.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()

	c := &config.Config{}
	c.Data.BoroughsGeoJSON = writeTestFile(t, dir, "boroughs.geojson", collection(
		square("Camden", 0, 0, 1, 1),
		square("Hackney", 1, 0, 2, 1),
	))
	c.Data.PostcodesGeoJSON = writeTestFile(t, dir, "postcodes.geojson", collection(
		square("NW1", 0.2, 0.2, 0.4, 0.4),
		square("E8", 1.2, 0.2, 1.4, 0.4),
	))
	c.Data.PostcodePrices = writeTestFile(t, dir, "postcode_prices.json",
		`{"postcodes":{"NW1":{"prices":{"2026":{"Q1":{"flat":500000}}}}}}`)
	c.Data.BoroughPrices = writeTestFile(t, dir, "borough_prices.json",
		`{"boroughs":{"camden":{"prices":{"2026":{"Q1":{"flat":900000}}}}}}`)
	c.Data.Metrics = writeTestFile(t, dir, "metrics.json",
		`{"boroughs":{"camden":{"crime":{"2026":0.2},"central":1.0,"culture":0.8},"hackney":{"crime":{"2026":0.6},"central":3.0,"culture":0.2}},"postcodes":{}}`)
	c.Data.ShapefileNameField = "NAME"
	c.Fetch.TimeoutSecs = 5
	c.Selection.MinYear = 2015
	c.Selection.MaxYear = 2026
	c.Selection.PriceCeiling = 3_000_000
	c.Server.Port = 8080
	c.Server.CacheSize = 16
	c.Log.Level = "info"

	cfg = c
	return c
}

// execute runs cmd's RunE with a background context and captures stdout.
func execute(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())
	t.Cleanup(func() {
		cmd.SetOut(nil)
		cmd.SetContext(context.TODO())
	})
	err := cmd.RunE(cmd, args)
	return out.String(), err
}
