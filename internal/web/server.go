// Package web provides the Framedeck HTTP server: the login page, the
// framed dashboard, and the admin area, all behind one listener.
package web

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/framedeck-labs/framedeck/internal/frame"
	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web/features/auth"
	"github.com/framedeck-labs/framedeck/internal/web/notifier"
	"github.com/framedeck-labs/framedeck/internal/web/resources"
	"github.com/framedeck-labs/framedeck/internal/web/router"
)

// sweepInterval is how often idle tab managers are reaped.
const sweepInterval = time.Minute

// Server is the main web server.
type Server struct {
	store        store.Store
	sessionStore *sessions.CookieStore
	registry     *frame.Registry
	notifier     *notifier.Notifier
	limiter      *auth.Limiter
	logger       *slog.Logger

	listen  string
	appName string
	layout  string
	dataDir string
	tabTTL  time.Duration

	mu     sync.RWMutex
	assets *resources.Assets

	reloadChan chan struct{}
}

// Config holds configuration for the web server.
type Config struct {
	Store         store.Store
	Logger        *slog.Logger
	Listen        string
	SessionSecret string
	SessionMaxAge int // seconds
	AppName       string
	Layout        string // "side" or "top"
	DataDir       string
	TabTTL        time.Duration

	// Login limiter knobs.
	AuthMaxAttempts int
	AuthWindow      time.Duration
	AuthLockout     time.Duration
}

// NewServer creates a new web server instance.
func NewServer(cfg Config) *Server {
	sessionStore := sessions.NewCookieStore([]byte(cfg.SessionSecret))
	sessionStore.MaxAge(cfg.SessionMaxAge)
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	return &Server{
		store:        cfg.Store,
		sessionStore: sessionStore,
		registry:     frame.NewRegistry(nil),
		notifier:     notifier.New(),
		limiter:      auth.NewLimiter(cfg.AuthMaxAttempts, cfg.AuthWindow, cfg.AuthLockout),
		logger:       cfg.Logger,
		listen:       cfg.Listen,
		appName:      cfg.AppName,
		layout:       cfg.Layout,
		dataDir:      cfg.DataDir,
		tabTTL:       cfg.TabTTL,
		reloadChan:   make(chan struct{}, 1),
	}
}

// Serve starts the web server and blocks until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	assets, err := resources.Build(!resources.Dev)
	if err != nil {
		return fmt.Errorf("failed to build assets: %w", err)
	}
	s.setAssets(assets)

	s.logger.Info("starting web server", "addr", "http://"+s.listen, "dev", resources.Dev)

	eg, egctx := errgroup.WithContext(ctx)

	r := chi.NewMux()
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
		middleware.Compress(5),
	)

	err = router.SetupRoutes(r, router.Deps{
		Store:        s.store,
		SessionStore: s.sessionStore,
		Registry:     s.registry,
		Notifier:     s.notifier,
		Limiter:      s.limiter,
		Logger:       s.logger,
		Assets:       s.currentAssets,
		AppName:      s.appName,
		Layout:       s.layout,
		DataDir:      s.dataDir,
		Dev:          resources.Dev,
		Reload:       s.reloadChan,
	})
	if err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	srv := &http.Server{
		Addr:    s.listen,
		Handler: r,
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Rebuild assets on change in dev mode
	if dir := resources.SourceDir(); resources.Dev && dir != "" {
		eg.Go(func() error {
			return s.watchAssets(egctx, dir)
		})
	}

	// Reap tab managers whose browser tab is gone
	eg.Go(func() error {
		s.sweepRegistry(egctx)
		return nil
	})

	// Start HTTP server
	eg.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Debug("shutting down web server...")
		return srv.Shutdown(shutdownCtx)
	})

	err = eg.Wait()
	s.registry.Close()
	return err
}

// Notifier returns the server's notifier, for callers that mutate the
// store out of band and want dashboards to notice.
func (s *Server) Notifier() *notifier.Notifier {
	return s.notifier
}

func (s *Server) setAssets(a *resources.Assets) {
	s.mu.Lock()
	s.assets = a
	s.mu.Unlock()
}

func (s *Server) currentAssets() *resources.Assets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.assets
}

// sweepRegistry periodically disposes managers whose tab has not spoken
// for longer than the tab TTL.
func (s *Server) sweepRegistry(ctx context.Context) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.Sweep(s.tabTTL); n > 0 {
				s.logger.Debug("reaped idle tabs", "count", n)
			}
		}
	}
}

// watchAssets rebuilds the JS/CSS bundle when a source file changes and
// tells connected dev browsers to reload.
func (s *Server) watchAssets(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(dir); err != nil {
		s.logger.Error("failed to watch asset sources", "dir", dir, "error", err)
		return nil
	}

	// Debounce timer
	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			return nil

		case event := <-watcher.Events:
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			ext := filepath.Ext(event.Name)
			if ext != ".js" && ext != ".css" {
				continue
			}

			// Debounce
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(100*time.Millisecond, func() {
				assets, err := resources.Build(false)
				if err != nil {
					s.logger.Error("asset rebuild failed", "error", err)
					return
				}
				s.setAssets(assets)
				s.logger.Debug("assets rebuilt", "file", event.Name)

				select {
				case s.reloadChan <- struct{}{}:
				default:
				}
			})

		case err := <-watcher.Errors:
			s.logger.Error("watcher error", "error", err)
		}
	}
}
