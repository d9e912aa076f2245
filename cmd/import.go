package main

import (
	"fmt"
	"path"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/london-map/internal/fetcher"
	"github.com/sells-group/london-map/internal/store"
)

var (
	importFormat  string
	importSheet   string
	importDriver  string
	importDSN     string
	importReplace bool
	importsLimit  int
)

var importCmd = &cobra.Command{
	Use:   "import <location>",
	Short: "Import flat price records into a SQLite or Postgres record store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		format, err := importFileFormat(args[0], importFormat)
		if err != nil {
			return err
		}
		target, err := importTarget()
		if err != nil {
			return err
		}

		src := &store.FileSource{
			Location: args[0],
			Format:   format,
			Sheet:    importSheet,
			Fetcher:  fetcher.New(cfg.FetchOptions()),
		}
		records, err := src.PriceRecords(ctx)
		if err != nil {
			return eris.Wrap(err, "import: read records")
		}

		st, err := store.OpenStore(ctx, target)
		if err != nil {
			return eris.Wrap(err, "import: open store")
		}
		defer st.Close() //nolint:errcheck

		n, err := st.WritePriceRecords(ctx, records, importReplace)
		if err != nil {
			return eris.Wrap(err, "import: write records")
		}

		zap.L().Info("import complete",
			zap.Int64("written", n),
			zap.Int("read", len(records)),
			zap.String("location", args[0]),
			zap.String("driver", target.Driver),
			zap.Bool("replace", importReplace),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d price records\n", n)
		return nil
	},
}

var importsCmd = &cobra.Command{
	Use:   "imports",
	Short: "List recent price record imports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		target, err := importTarget()
		if err != nil {
			return err
		}
		st, err := store.OpenStore(ctx, target)
		if err != nil {
			return eris.Wrap(err, "imports: open store")
		}
		defer st.Close() //nolint:errcheck

		imports, err := st.Imports(ctx, importsLimit)
		if err != nil {
			return eris.Wrap(err, "imports: list")
		}
		return printJSON(cmd.OutOrStdout(), imports)
	},
}

// importFileFormat resolves the record file format from the flag or the
// location's extension.
func importFileFormat(location, flag string) (string, error) {
	format := strings.ToLower(strings.TrimSpace(flag))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(path.Ext(location)), ".")
	}
	switch format {
	case store.DriverCSV, store.DriverJSON, store.DriverXLSX:
		return format, nil
	default:
		return "", eris.Errorf("import: unsupported format %q (use csv, json or xlsx)", format)
	}
}

// importTarget resolves the destination store from flags, falling back to
// the configured records source when it is a database.
func importTarget() (store.Options, error) {
	driver := strings.ToLower(strings.TrimSpace(importDriver))
	dsn := importDSN
	configured := strings.ToLower(strings.TrimSpace(cfg.Records.Driver))

	if driver == "" {
		driver = configured
	}
	if dsn == "" && driver == configured {
		dsn = cfg.Records.DSN
	}
	if driver != store.DriverSQLite && driver != store.DriverPostgres {
		return store.Options{}, eris.Errorf("import: target driver must be sqlite or postgres, got %q", driver)
	}
	if dsn == "" {
		return store.Options{}, eris.New("import: --dsn is required")
	}
	return store.Options{Driver: driver, DSN: dsn}, nil
}

func init() {
	for _, c := range []*cobra.Command{importCmd, importsCmd} {
		c.Flags().StringVar(&importDriver, "driver", "", "target store driver: sqlite or postgres (default from config)")
		c.Flags().StringVar(&importDSN, "dsn", "", "target database path or connection string (default from config)")
	}
	importCmd.Flags().StringVar(&importFormat, "format", "", "record file format: csv, json or xlsx (default from extension)")
	importCmd.Flags().StringVar(&importSheet, "sheet", "", "xlsx sheet name (default first sheet)")
	importCmd.Flags().BoolVar(&importReplace, "replace", false, "drop existing records before loading")
	importsCmd.Flags().IntVar(&importsLimit, "limit", 20, "maximum imports to list")
	rootCmd.AddCommand(importCmd, importsCmd)
}
