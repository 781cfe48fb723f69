// nfsload drives a configurable create/write/read workload against an
// NFS server through the resilient session, verifying that everything
// written comes back byte-identical. It is the tool we use to soak
// servers and to watch the client ride out connection failures.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cubbit/nfsclient/internal/logger"
	"github.com/cubbit/nfsclient/internal/protocol/nfs"
	"github.com/cubbit/nfsclient/pkg/config"
	"github.com/cubbit/nfsclient/pkg/metrics"
	"github.com/cubbit/nfsclient/pkg/session"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	host := flag.String("host", "", "NFS server address (overrides config)")
	export := flag.String("export", "", "Export path to mount (overrides config)")
	dir := flag.String("dir", "", "Working directory under the export (overrides config)")
	files := flag.Int("files", 0, "Number of files to create (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics listen address")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	applyFlags(cfg, *host, *export, *dir, *files, *logLevel)

	logger.SetLevel(cfg.Logging.Level)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to set log output: %v", err)
	}

	var clientMetrics metrics.ClientMetrics
	if cfg.Metrics.Enabled {
		metrics.InitRegistry()
		clientMetrics = metrics.NewClientMetrics()
		go serveMetrics(*metricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sess := session.New(cfg, clientMetrics)
	if err := sess.Open(); err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}
	defer sess.Close()

	logger.Info("Mounted %s on %s", cfg.Server.Export, cfg.Server.Host)

	start := time.Now()
	written, err := runWorkload(ctx, sess, cfg)
	elapsed := time.Since(start)

	rebuilds := sess.Generation() - 1
	if err != nil {
		logger.Error("Workload failed after %d files: %v", written, err)
		logger.Info("Rebuilds during run: %d", rebuilds)
		return
	}

	logger.Info("Workload complete: %d files, %d bytes each, %s elapsed, %d rebuilds",
		written, len(cfg.Workload.Content), elapsed.Round(time.Millisecond), rebuilds)
}

// applyFlags lets CLI flags override the loaded configuration.
func applyFlags(cfg *config.Config, host, export, dir string, files int, logLevel string) {
	if host != "" {
		cfg.Server.Host = host
	}
	if export != "" {
		cfg.Server.Export = export
	}
	if dir != "" {
		cfg.Workload.Directory = dir
	}
	if files > 0 {
		cfg.Workload.Files = files
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
}

// runWorkload creates the working directory, then creates, writes and
// verifies every file. Returns the number of files fully verified.
func runWorkload(ctx context.Context, sess *session.Session, cfg *config.Config) (int, error) {
	workDir := cfg.Workload.Directory
	content := []byte(cfg.Workload.Content)

	if err := sess.Mkdir(ctx, workDir, 0o755); err != nil {
		// reusing the directory from a previous run is fine
		var statusErr *nfs.StatusError
		if !errors.As(err, &statusErr) || statusErr.Status != nfs.NFS3ErrExist {
			return 0, fmt.Errorf("create working directory: %w", err)
		}
		logger.Debug("Working directory %s already exists", workDir)
	}

	for i := 0; i < cfg.Workload.Files; i++ {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		path := fmt.Sprintf("%s/file-%05d.txt", workDir, i)

		if err := sess.Create(ctx, path, 0o644); err != nil {
			return i, fmt.Errorf("create %s: %w", path, err)
		}

		count, err := sess.Write(ctx, path, 0, content)
		if err != nil {
			return i, fmt.Errorf("write %s: %w", path, err)
		}
		if int(count) != len(content) {
			return i, fmt.Errorf("write %s: short write (%d of %d bytes)", path, count, len(content))
		}

		readBack, err := sess.Read(ctx, path, 0, uint32(len(content)))
		if err != nil {
			return i, fmt.Errorf("read %s: %w", path, err)
		}
		if !bytes.Equal(readBack, content) {
			return i, fmt.Errorf("verify %s: read back %d bytes that do not match", path, len(readBack))
		}

		logger.Debug("Verified %s (%d bytes)", path, count)
	}

	return cfg.Workload.Files, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	logger.Info("Serving metrics on %s/metrics", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Warn("Metrics server stopped: %v", err)
	}
}
