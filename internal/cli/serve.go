package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/api"
	"github.com/Sosoka-Labs/truthfulness-evaluator/internal/pipeline"
)

var (
	serveAddr     string
	servePreset   string
	servePresets  []string
	serveRoot     string
	serveTimeout  time.Duration
	shutdownGrace time.Duration
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve evaluations over HTTP",
	Long: `Serve starts an HTTP API for document evaluation:
- POST /v1/evaluate  {"document": "...", "path": "...", "root_path": "...", "preset": "..."}
- GET  /v1/presets   lists the available workflows
- GET  /healthz      liveness check
- GET  /metrics      Prometheus metrics

Documents are sent as text. Filesystem evidence is only gathered when the server
is started with --root: a request's root_path must then resolve (symlinks included)
to a directory under that root, otherwise the request is rejected. Without --root,
root_path is ignored.

Every served preset is built at startup; a preset whose models or providers are
misconfigured stops the server from starting. Use --presets to serve a subset.

Example:
  truth serve
  truth serve --addr :9090 --preset quick --presets quick --timeout 2m
  truth serve --preset internal --presets internal,full --root /srv/repos`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "listen address")
	serveCmd.Flags().StringVar(&servePreset, "preset", "external", "workflow used when a request names none")
	serveCmd.Flags().StringSliceVar(&servePresets, "presets", nil, "workflows to serve (default: all)")
	serveCmd.Flags().StringVar(&serveRoot, "root", "", "directory request root_path values are confined to")
	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 10*time.Minute, "timeout for one evaluation")
	serveCmd.Flags().DurationVar(&shutdownGrace, "shutdown-timeout", 15*time.Second, "time allowed for in-flight requests on shutdown")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper())
	if err != nil {
		return err
	}
	s, err := newSession(cfg, newLogger())
	if err != nil {
		return err
	}

	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}

	evaluators, err := buildEvaluators(s, servedPresets(servePresets, servePreset))
	if err != nil {
		return err
	}

	server, err := api.NewServer(api.Config{
		Evaluators:    evaluators,
		DefaultPreset: servePreset,
		AllowedRoot:   serveRoot,
		Timeout:       serveTimeout,
		Metrics:       s.deps.Metrics,
		Logger:        s.logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:              serveAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	fmt.Fprintf(os.Stderr, "Truth API listening on %s (default preset: %s)\n", serveAddr, servePreset)
	if serveRoot == "" {
		fmt.Fprintln(os.Stderr, "Filesystem evidence disabled (no --root)")
	}
	fmt.Fprintln(os.Stderr, "Press Ctrl+C to shutdown")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Fprintln(os.Stderr, "\nShutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// servedPresets returns the requested preset names, or every built-in preset,
// always including the default.
func servedPresets(requested []string, defaultPreset string) []string {
	var out []string
	if len(requested) == 0 {
		for _, p := range pipeline.Presets() {
			out = append(out, p.Name)
		}
	} else {
		out = append(out, requested...)
	}
	if defaultPreset != "" && !slices.Contains(out, defaultPreset) {
		out = append(out, defaultPreset)
	}
	return out
}

// buildEvaluators assembles one pipeline per preset; the first failure aborts
func buildEvaluators(s *session, presets []string) (map[string]api.Evaluator, error) {
	out := make(map[string]api.Evaluator, len(presets))
	for _, name := range presets {
		w, err := s.workflow(name)
		if err != nil {
			return nil, fmt.Errorf("preset %s (use --presets to serve a subset): %w", name, err)
		}
		p, err := s.pipeline(w)
		if err != nil {
			return nil, fmt.Errorf("preset %s: %w", name, err)
		}
		out[w.Name] = p
	}
	return out, nil
}
