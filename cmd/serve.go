package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/london-map/internal/server"
	"github.com/sells-group/london-map/internal/session"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Load the map data and serve the styling API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		api := server.New(server.Options{
			AllowedOrigins: cfg.Server.AllowedOrigins,
			CacheSize:      cfg.Server.CacheSize,
			CacheTTL:       cfg.CacheTTL(),
		})

		// The API answers 503 until the first load finishes.
		done := startLoad(ctx, api, loadSession)

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		<-done
		return nil
	},
}

// startLoad loads a session in the background and installs it on api, or
// records the load error on api so /health and /api report it. The returned
// channel closes when loading has finished, successfully or not.
func startLoad(ctx context.Context, api *server.Server, load func(context.Context) (*session.Session, error)) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		start := time.Now()
		sess, err := load(ctx)
		if err != nil {
			zap.L().Error("session load failed", zap.Error(err))
			api.SetLoadError(err)
			return
		}
		api.SetSession(sess)
		zap.L().Info("session ready",
			zap.String("session_id", sess.ID),
			zap.Duration("elapsed", time.Since(start)),
		)
	}()
	return done
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
