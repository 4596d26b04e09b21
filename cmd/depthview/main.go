package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"github.com/ayusman/depthview/internal/app"
	"github.com/ayusman/depthview/internal/config"
	"github.com/ayusman/depthview/internal/metrics"
	"github.com/ayusman/depthview/internal/render"
	"github.com/ayusman/depthview/internal/sensor"
	"github.com/ayusman/depthview/internal/server"
	"github.com/ayusman/depthview/internal/store"
	"github.com/ayusman/depthview/internal/tray"
)

// HTTP server timeout constants.
const (
	readHeaderTimeout = 5 * time.Second
	idleTimeout       = 60 * time.Second
	shutdownTimeout   = 5 * time.Second
)

func main() {
	fmt.Println("depthview - Skeleton Tracking Viewer")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize the store
	dataDir, err := resolveDataDir(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to get data directory: %v", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "depthview.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	m := metrics.New()

	style := render.DefaultStyle()
	style.JointRadius = cfg.JointRadius
	style.PerUserColors = cfg.PerUserColors
	style.Labels = cfg.Labels

	viewer := app.New(app.Config{
		Provider: newProvider(cfg, st),
		Store:    st,
		Metrics:  m,
		FPS:      cfg.FPS,
		Style:    style,
	})
	defer viewer.Close()

	if err := viewer.Setup(); err != nil {
		log.Fatalf("Failed to set up viewer: %v", err)
	}
	if err := viewer.Start(); err != nil {
		log.Fatalf("Failed to start viewer: %v", err)
	}

	if cfg.Record {
		if _, err := viewer.StartRecording(""); err != nil {
			log.Printf("Failed to start recording: %v", err)
		}
	}

	staticDir := cfg.StaticDir
	if staticDir == "" {
		staticDir = findWebDir()
	}
	if staticDir != "" {
		fmt.Printf("Serving static files from: %s\n", staticDir)
	}

	srv := server.New(server.Config{
		StaticDir: staticDir,
		Store:     st,
		Viewer:    viewer,
		Registry:  m.Registry(),
	})
	defer srv.Close()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           srv,
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	go func() {
		fmt.Printf("Starting server on %s\n", cfg.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Tray {
		t := newTray(viewer, cfg.Addr, stop)
		go func() {
			<-ctx.Done()
			t.Quit()
		}()
		// systray must own the main goroutine
		t.Run()
	} else {
		<-ctx.Done()
	}

	log.Println("shutting down")

	if _, err := viewer.StopRecording(); err != nil {
		log.Printf("Failed to stop recording: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	srv.Close()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}
}

// newProvider selects the tracking provider named by the config.
func newProvider(cfg *config.Config, st *store.Store) sensor.Provider {
	switch cfg.Source {
	case config.SourceReplay:
		log.Printf("replaying session %s", cfg.ReplaySession)
		return sensor.NewReplayProvider(st, cfg.ReplaySession, cfg.ReplayLoop, sensor.DefaultProjection())
	default:
		synth := sensor.DefaultSyntheticConfig()
		synth.Users = cfg.SyntheticUsers
		return sensor.NewSyntheticProvider(synth)
	}
}

// newTray wires the tray menu to the viewer.
func newTray(viewer *app.App, addr string, quit func()) *tray.Tray {
	t := tray.New()

	t.OnToggle(viewer.SetEnabled)

	t.OnRecord(func(recording bool) error {
		if recording {
			sess, err := viewer.StartRecording("")
			if err != nil {
				log.Printf("Failed to start recording: %v", err)
				return err
			}
			t.SetSession(sess.Name)
			return nil
		}

		_, err := viewer.StopRecording()
		t.SetSession("")
		return err
	})

	t.OnOpen(func() {
		if err := openBrowser(viewerURL(addr)); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	})

	t.OnQuit(quit)

	return t
}

// viewerURL returns the local URL of a listen address like ":8080".
func viewerURL(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		addr = "localhost" + addr
	}
	return "http://" + addr
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}

// resolveDataDir returns the configured data directory or ~/.depthview.
func resolveDataDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".depthview"), nil
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.depthview/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".depthview", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
