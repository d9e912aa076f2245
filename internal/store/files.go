package store

import (
	"context"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/london-map/internal/fetcher"
)

// FileSource reads price records from a CSV, JSON or XLSX location.
type FileSource struct {
	Location string
	Format   string
	Sheet    string
	Fetcher  Localizer
}

// PriceRecords implements Source.
func (s *FileSource) PriceRecords(ctx context.Context) ([]PriceRecord, error) {
	switch s.Format {
	case DriverCSV:
		return s.readCSV(ctx)
	case DriverJSON:
		return s.readJSON(ctx)
	case DriverXLSX:
		return s.readXLSX(ctx)
	default:
		return nil, eris.Errorf("store: unknown file format %q", s.Format)
	}
}

// Close implements Source.
func (s *FileSource) Close() error { return nil }

func (s *FileSource) readCSV(ctx context.Context) ([]PriceRecord, error) {
	rc, err := s.Fetcher.Open(ctx, s.Location)
	if err != nil {
		return nil, eris.Wrap(err, "store: open csv")
	}
	defer rc.Close() //nolint:errcheck

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, rc, fetcher.CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
		TrimSpace: true,
	})
	var rows [][]string
	for row := range rowCh {
		rows = append(rows, row)
	}
	for err := range errCh {
		if err != nil {
			return nil, eris.Wrapf(err, "store: read csv %s", s.Location)
		}
	}
	var header []string
	select {
	case header = <-headerCh:
	default:
		return nil, eris.Errorf("store: csv %s is empty", s.Location)
	}
	return parseTable(header, rows)
}

func (s *FileSource) readJSON(ctx context.Context) ([]PriceRecord, error) {
	rc, err := s.Fetcher.Open(ctx, s.Location)
	if err != nil {
		return nil, eris.Wrap(err, "store: open json")
	}
	defer rc.Close() //nolint:errcheck

	var out []PriceRecord
	if _, err := fetcher.EachJSONRecord(ctx, rc, func(r PriceRecord) error {
		out = append(out, r)
		return nil
	}); err != nil {
		return nil, eris.Wrapf(err, "store: read json %s", s.Location)
	}
	return out, nil
}

func (s *FileSource) readXLSX(ctx context.Context) ([]PriceRecord, error) {
	dir, err := tempDir()
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path, err := s.Fetcher.Localize(ctx, s.Location, dir)
	if err != nil {
		return nil, eris.Wrap(err, "store: fetch xlsx")
	}
	header, rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: s.Sheet})
	if err != nil {
		return nil, eris.Wrapf(err, "store: read xlsx %s", s.Location)
	}
	return parseTable(header, rows)
}

// yearColumn matches the wide layout's per-year price columns ("2019_price").
var yearColumn = regexp.MustCompile(`^(\d{4})_price$`)

// parseTable turns a header and rows into records. Two layouts are
// accepted: long (outward, year, propertytype, area_bin, price) and wide
// (outward, propertytype, area_bin, and one <year>_price column per year).
// A borough column is optional in both.
func parseTable(header []string, rows [][]string) ([]PriceRecord, error) {
	cols := map[string]int{}
	years := map[int]int{}
	for i, h := range header {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "property_type" {
			h = "propertytype"
		}
		if m := yearColumn.FindStringSubmatch(h); m != nil {
			y, _ := strconv.Atoi(m[1])
			years[y] = i
			continue
		}
		if _, dup := cols[h]; !dup {
			cols[h] = i
		}
	}
	for _, required := range []string{"outward", "propertytype", "area_bin"} {
		if _, ok := cols[required]; !ok {
			return nil, eris.Errorf("store: missing %s column", required)
		}
	}
	_, hasYear := cols["year"]
	_, hasPrice := cols["price"]
	long := hasYear && hasPrice
	if !long && len(years) == 0 {
		return nil, eris.New("store: need year and price columns or <year>_price columns")
	}

	yearList := make([]int, 0, len(years))
	for y := range years {
		yearList = append(yearList, y)
	}
	sort.Ints(yearList)

	cell := func(row []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var out []PriceRecord
	var bad int
	for _, row := range rows {
		base := PriceRecord{
			Outward:      cell(row, "outward"),
			Borough:      cell(row, "borough"),
			PropertyType: cell(row, "propertytype"),
			AreaBin:      cell(row, "area_bin"),
		}
		if base.Outward == "" {
			continue
		}
		if long {
			year, err := strconv.Atoi(cell(row, "year"))
			if err != nil {
				bad++
				continue
			}
			base.Year = year
			base.Price = parsePrice(cell(row, "price"))
			out = append(out, base)
			continue
		}
		for _, year := range yearList {
			i := years[year]
			r := base
			r.Year = year
			if i < len(row) {
				r.Price = parsePrice(strings.TrimSpace(row[i]))
			}
			out = append(out, r)
		}
	}
	if bad > 0 {
		zap.L().Debug("store: skipped rows with unparseable year", zap.Int("rows", bad))
	}
	return out, nil
}

func parsePrice(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil
	}
	return &v
}
