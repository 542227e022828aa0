package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/trackstats/trackstats/pkg/archive"
	apperrors "github.com/trackstats/trackstats/pkg/errors"
	"github.com/trackstats/trackstats/pkg/report"
)

// serveCommand creates the serve command exposing the run archive over
// HTTP.
func (c *CLI) serveCommand() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve archived reports over HTTP",
		Long: `Serve archived report runs over HTTP.

Runs are listed as JSON under /api/runs and individual reports can be
fetched as JSON or rendered markdown. Requires the archive to be
configured.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Archive.URI == "" {
				return fmt.Errorf("archive.uri must be configured for serve")
			}

			store, err := archive.NewStore(ctx, cfg.Archive.URI, cfg.Archive.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(context.Background()) }()

			server := &http.Server{
				Addr:              addr,
				Handler:           newRouter(store, c.Logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = server.Shutdown(shutdownCtx)
			}()

			printInfo("Serving archived runs on %s", addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "listen address")
	return cmd
}

// runServer handles the archive browsing endpoints.
type runServer struct {
	store *archive.Store
}

// newRouter wires the archive endpoints onto a chi router.
func newRouter(store *archive.Store, logger *log.Logger) *chi.Mux {
	r := chi.NewRouter()
	srv := &runServer{store: store}

	r.Use(requestLogger(logger))

	r.Get("/health", srv.handleHealth)
	r.Get("/api/runs", srv.handleList)
	r.Get("/api/runs/{id}", srv.handleGet)
	r.Get("/runs/{id}/report.md", srv.handleMarkdown)

	return r
}

// requestLogger attaches the logger to the request context and logs
// each request with its duration.
func requestLogger(logger *log.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r.WithContext(withLogger(r.Context(), logger)))
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"duration", time.Since(start).Round(time.Millisecond))
		})
	}
}

func (s *runServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *runServer) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	source := r.URL.Query().Get("source")
	if source != "" {
		if err := apperrors.ValidateSourceName(source); err != nil {
			http.Error(w, apperrors.UserMessage(err), http.StatusBadRequest)
			return
		}
	}

	runs, err := s.store.List(r.Context(), source, limit)
	if err != nil {
		loggerFromContext(r.Context()).Error("list runs", "err", err)
		writeError(w, err)
		return
	}
	writeJSON(w, runs)
}

func (s *runServer) handleGet(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, run)
}

func (s *runServer) handleMarkdown(w http.ResponseWriter, r *http.Request) {
	run, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(report.Markdown(&run.Document))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode response", http.StatusInternalServerError)
	}
}

// writeError maps archive errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if apperrors.Is(err, apperrors.ErrCodeRunNotFound) {
		status = http.StatusNotFound
	}
	http.Error(w, apperrors.UserMessage(err), status)
}
