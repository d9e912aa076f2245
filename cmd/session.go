package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/london-map/internal/session"
)

// loadSession loads a session from the configured data sources.
func loadSession(ctx context.Context) (*session.Session, error) {
	sess, err := session.Load(ctx, cfg.SessionOptions())
	if err != nil {
		return nil, eris.Wrap(err, "load session")
	}
	return sess, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
