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
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/profileai/internal/api"
	"github.com/kalambet/profileai/internal/autosave"
	"github.com/kalambet/profileai/internal/config"
	"github.com/kalambet/profileai/internal/export"
	"github.com/kalambet/profileai/internal/persist"
	"github.com/kalambet/profileai/internal/resume"
	"github.com/kalambet/profileai/internal/session"
	"github.com/kalambet/profileai/internal/storage"
	"github.com/kalambet/profileai/internal/templates"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the profileai server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running profileai server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and resume status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "profileai.pid")
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

// openStore opens the database in dataDir. When that fails the session runs
// on an in-memory database and nothing survives a restart.
func openStore(dataDir string) *storage.Store {
	store, err := storage.Open(dataDir)
	if err == nil {
		return store
	}
	slog.Warn("local storage unavailable, edits will not be persisted", "data_dir", dataDir, "error", err)
	printWarning("Local storage unavailable; running without persistence")

	store, memErr := storage.Open(storage.MemoryDSN)
	if memErr != nil {
		slog.Error("in-memory storage unavailable", "error", memErr)
		return nil
	}
	return store
}

func runServer() error {
	fmt.Fprintln(stderr, versionString())

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()})))

	apiToken, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return fmt.Errorf("initializing API token: %w", err)
	}
	slog.Info("API bearer token available")

	// Refuse to start twice: a healthy server on our port means another instance.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("profileai is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("profileai is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		slog.Warn("could not write PID file", "path", pidPath, "error", err)
	} else {
		defer removePIDFile(pidPath)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := openStore(cfg.Storage.DataDir)
	if store != nil {
		defer func() {
			if err := store.Close(); err != nil {
				fmt.Fprintf(stderr, "warning: closing storage: %v\n", err)
			}
		}()
	}

	// A nil *storage.Store must not reach the interfaces as a typed nil.
	var kv persist.KeyValueStore
	if store != nil {
		kv = store
	}
	gateway := persist.NewGateway(kv)
	coord := autosave.New(gateway, cfg.Autosave.DebounceDuration())
	sess := session.New(gateway, coord)

	var exports api.ExportService
	var worker *export.Worker
	if store != nil {
		exports = export.NewService(store)
		worker = export.NewWorker(store, cfg.Export.DelayDuration(), 0)
		worker.OnNotify(func(n export.Notification) {
			if n.Success {
				printSuccess("%s", n.Message)
			} else {
				printError("%s", n.Message)
			}
		})
	}

	handler := api.NewAppHandler(api.AppDeps{
		Session:  sess,
		Exports:  exports,
		Autosave: coord,
		Token:    apiToken,
	})

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(stderr, "profileai listening on %s\n", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if worker != nil {
		g.Go(func() error {
			worker.Run(gctx)
			return nil
		})
	}

	if cfg.MCP.Enabled {
		mcpSrv := api.NewMCPServer(api.MCPDeps{
			Session: sess,
			Exports: exports,
		})
		stdioSrv := server.NewStdioServer(mcpSrv)
		g.Go(func() error {
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
		slog.Info("MCP server started (stdio transport)")
	}

	err = g.Wait()

	// Keep the last edits made inside the debounce window.
	if coord.Flush() {
		slog.Info("pending resume changes saved")
	}
	coord.Stop()
	return err
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
		printError("profileai is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop profileai (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to profileai (PID %d)", pid)
	return nil
}

func showStatus(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	serverURL := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
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
	printStatus("MCP", "%s", enabledLabel(cfg.MCP.Enabled))

	var c *apiClient
	if running {
		if apiToken, err := config.GetAPIToken(config.NewKeychain()); err == nil {
			c = &apiClient{baseURL: serverURL, token: apiToken, httpClient: client}
		}
	}
	printStatus("Autosave", "%s", autosaveLine(ctx, c, cfg.Autosave.DebounceDuration()))

	if c != nil {
		var doc resume.Document
		if r, err := c.get(ctx, "/resume"); err == nil && decodeJSON(r, &doc) == nil {
			printResumeSummary(doc)
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}

// autosaveLine describes the running daemon's save window and whether a save
// is waiting. Without a reachable daemon it falls back to the configured window.
func autosaveLine(ctx context.Context, c *apiClient, configured time.Duration) string {
	if c != nil {
		var st struct {
			Autosave *struct {
				Window  string `json:"window"`
				Pending bool   `json:"pending"`
			} `json:"autosave"`
		}
		if r, err := c.get(ctx, "/status"); err == nil && decodeJSON(r, &st) == nil && st.Autosave != nil {
			state := "idle"
			if st.Autosave.Pending {
				state = "save pending"
			}
			return fmt.Sprintf("%s after last edit (%s)", st.Autosave.Window, state)
		}
	}
	return fmt.Sprintf("%s after last edit", configured)
}

func printResumeSummary(doc resume.Document) {
	name := doc.PersonalInfo.FullName
	if name == "" {
		name = "(not set)"
	}
	printStatus("Name", "%s", name)
	printStatus("Entries", "%d experience, %d education, %d skills",
		len(doc.WorkExperience), len(doc.Education), len(doc.Skills))
	if t, ok := templates.Lookup(doc.SelectedTemplate); ok {
		printStatus("Template", "%s (%s)", t.Title, t.ID)
	} else {
		printStatus("Template", "none selected")
	}
	if err := resume.CheckRequired(doc); err != nil {
		printStatus("Export", "blocked: %v", err)
	} else {
		printStatus("Export", "ready")
	}
}

func enabledLabel(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}
