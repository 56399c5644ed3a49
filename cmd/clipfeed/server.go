package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kalambet/clipfeed/internal/api"
	"github.com/kalambet/clipfeed/internal/composer"
	"github.com/kalambet/clipfeed/internal/config"
	"github.com/kalambet/clipfeed/internal/ingest"
	"github.com/kalambet/clipfeed/internal/pipeline"
	"github.com/kalambet/clipfeed/internal/profile"
	"github.com/kalambet/clipfeed/internal/reranking"
	"github.com/kalambet/clipfeed/internal/storage"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the clipfeed server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		withMCP, _ := cmd.Flags().GetBool("mcp")
		return runServer(withMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running clipfeed server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show clipfeed status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			printError("config error: %v", err)
			return nil
		}
		showStatus(cfg, fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port))
		return nil
	},
}

func init() {
	startCmd.Flags().Bool("mcp", false, "also serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "clipfeed.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

func parseLogLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

func runServer(withMCP bool) error {
	fmt.Fprintf(os.Stderr, "clipfeed version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	poll, err := cfg.PollInterval()
	if err != nil {
		return err
	}
	if _, err := composer.PresetWeights(cfg.Feed.Preset); err != nil {
		return fmt.Errorf("feed.preset: %w", err)
	}

	// With --mcp, stdout carries the protocol; logs stay on stderr.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)})))

	apiToken, err := config.GetAPIToken(config.NewSecretStore())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("clipfeed is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("clipfeed is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	profiles := profile.NewManager(store)
	rng := reranking.NewLockedRand(nil)
	comp := composer.New(rng, reranking.New(cfg.Feed.Perturb, cfg.Feed.TopFraction, rng))
	feeder := pipeline.NewFeeder(store, profiles, comp, pipeline.Options{
		DefaultPreset:  cfg.Feed.Preset,
		DefaultLimit:   cfg.Feed.DefaultLimit,
		RelatedLimit:   cfg.Feed.RelatedLimit,
		CandidateLimit: cfg.Feed.CandidateLimit,
	})
	svc := ingest.NewService(store, store, profiles)

	worker := ingest.NewWorker(store, svc, poll)
	go worker.Run(ctx)

	handler := api.NewHandler(api.Deps{
		Store:             store,
		Profiles:          profiles,
		Feeder:            feeder,
		Ingest:            svc,
		Token:             apiToken,
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
	})

	if withMCP {
		mcpSrv := api.NewMCPServer(api.MCPDeps{Profiles: profiles, Feeder: feeder, Ingest: svc}, version)
		stdioSrv := server.NewStdioServer(mcpSrv)
		go func() {
			if err := stdioSrv.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
		}()
		slog.Info("MCP server started (stdio transport)")
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", addr, "preset", cfg.Feed.Preset, "reranker", comp.Reranker().Name())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "shutting down...")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("clipfeed is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop clipfeed (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to clipfeed (PID %d)", pid)
	return nil
}

// showStatus reports whether the server at serverURL answers, then the
// local configuration that shapes its feeds.
func showStatus(cfg config.Config, serverURL string) bool {
	client := &http.Client{Timeout: 2 * time.Second}

	running := false
	resp, err := client.Get(serverURL + "/health")
	if err != nil {
		printStatus("Server", "stopped")
	} else {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			running = true
			printStatus("Server", "running on port %d", cfg.Server.Port)
		} else {
			printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		}
	}

	printStatus("Preset", "%s", cfg.Feed.Preset)
	if cfg.Feed.Perturb {
		printStatus("Perturbation", "on (top %.0f%%)", cfg.Feed.TopFraction*100)
	} else {
		printStatus("Perturbation", "off")
	}
	if cfg.RateLimit.RequestsPerMinute > 0 {
		printStatus("Rate limit", "%d req/min per client", cfg.RateLimit.RequestsPerMinute)
	} else {
		printStatus("Rate limit", "off")
	}
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return running
}
