package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"dtolsp/internal/hosttype/srcparse"
	"dtolsp/internal/lsp"
	"dtolsp/internal/settings"
	"dtolsp/internal/version"
	"dtolsp/internal/workspace"
)

var lspCmd = &cobra.Command{
	Use:          "lsp",
	Short:        "Run the DTO language server over stdio",
	SilenceUsage: true,
	RunE:         runLSP,
}

func init() {
	lspCmd.Flags().String("metrics-addr", "", "serve Prometheus metrics on this address (e.g. localhost:9464)")
	lspCmd.Flags().Duration("debounce", 300*time.Millisecond, "delay before analyzing an edited document")
	lspCmd.Flags().Duration("resolve-timeout", 10*time.Second, "time limit of the resolve command")
	lspCmd.Flags().Bool("watch", true, "refresh project indexes when host sources or classes change")
	lspCmd.Flags().String("settings", "", "settings file (default $XDG_CONFIG_HOME/dtolsp/settings.toml)")
}

func runLSP(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	log := slog.Default()

	settingsPath, _ := cmd.Flags().GetString("settings")
	if settingsPath == "" {
		p, err := settings.Path(appName)
		if err != nil {
			log.Warn("settings path unavailable", "error", err)
		}
		settingsPath = p
	}
	cfg := settings.Default()
	if settingsPath != "" {
		loaded, err := settings.Load(settingsPath)
		if err != nil {
			log.Warn("settings ignored", "error", err)
		}
		cfg = loaded
	}

	cache, err := srcparse.OpenCache(appName)
	if err != nil {
		log.Warn("declaration cache disabled", "error", err)
		cache = nil
	}
	ws := workspace.New(nil, cfg, cache, log)

	if addr, _ := cmd.Flags().GetString("metrics-addr"); addr != "" {
		stop, err := serveMetrics(addr, log)
		if err != nil {
			return err
		}
		defer stop()
	}
	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		go watchWorkspace(ctx, ws, 5*time.Second, log)
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	resolveTimeout, _ := cmd.Flags().GetDuration("resolve-timeout")
	server := lsp.NewServer(os.Stdin, os.Stdout, ws, lsp.ServerOptions{
		Debounce:       debounce,
		MaxDiagnostics: maxDiagnostics(cmd),
		ResolveTimeout: resolveTimeout,
		SettingsPath:   settingsPath,
		Version:        version.Version,
		Log:            log,
	})
	log.Info("language server started", "version", version.Version, "settings", settingsPath)
	if err := server.Run(ctx); err != nil {
		if errors.Is(err, lsp.ErrExit) {
			return nil
		}
		if errors.Is(err, lsp.ErrExitWithoutShutdown) {
			return fmt.Errorf("lsp exit without shutdown")
		}
		return err
	}
	return nil
}

func serveMetrics(addr string, log *slog.Logger) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("metrics listener: %w", err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server stopped", "error", err)
		}
	}()
	log.Info("serving metrics", "addr", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}

// watchWorkspace re-arms the file watcher whenever the set of project
// environments changes. Environments appear lazily as documents open.
func watchWorkspace(ctx context.Context, ws *workspace.Workspace, every time.Duration, log *slog.Logger) {
	var (
		watcher *workspace.Watcher
		watched int
	)
	defer func() {
		if watcher != nil {
			_ = watcher.Close()
		}
	}()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		n := len(ws.Environments())
		if n == watched {
			continue
		}
		if watcher != nil {
			_ = watcher.Close()
			watcher = nil
		}
		w, err := ws.Watch(ctx, workspace.WatcherOptions{Log: log})
		if err != nil {
			log.Warn("file watcher unavailable", "error", err)
			continue
		}
		watcher, watched = w, n
		log.Debug("watching", "environments", n, "dirs", len(w.WatchList()))
	}
}
