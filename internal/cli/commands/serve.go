package commands

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/framedeck-labs/framedeck/internal/cli/config"
	"github.com/framedeck-labs/framedeck/internal/store"
	"github.com/framedeck-labs/framedeck/internal/web"
)

// bootstrapAdminUsername is the account created on an empty database so
// the first login is possible at all.
const bootstrapAdminUsername = "admin"

// ServeOptions holds options for the serve command.
type ServeOptions struct {
	Open bool
}

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	opts := &ServeOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Framedeck server",
		Long: `Start the web server: sign-in, the framed dashboard, and the admin area.

On an empty database an admin account is created and its generated
password is printed once.`,
		Example: `  # Start with defaults (sqlite under ./data)
  framedeck serve

  # Listen on all interfaces
  framedeck serve --listen 0.0.0.0:8484

  # Open the dashboard in a browser once running
  framedeck serve --open`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Open, "open", false, "Open the dashboard in a browser")

	return cmd
}

func runServe(cmd *cobra.Command, opts *ServeOptions) error {
	logger := config.GetLogger(cmd.Context())

	st, cfg, err := openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()

	if err := bootstrapAdmin(cmd.Context(), st, cmd.OutOrStdout()); err != nil {
		return err
	}

	secret, err := sessionSecret(cfg)
	if err != nil {
		return err
	}

	server := web.NewServer(web.Config{
		Store:           st,
		Logger:          logger,
		Listen:          cfg.Listen,
		SessionSecret:   secret,
		SessionMaxAge:   cfg.Session.MaxAge,
		AppName:         cfg.UI.Title,
		Layout:          cfg.UI.Layout,
		DataDir:         cfg.DataDir,
		TabTTL:          cfg.UI.TabTTL,
		AuthMaxAttempts: cfg.Auth.MaxAttempts,
		AuthWindow:      cfg.Auth.Window,
		AuthLockout:     cfg.Auth.Lockout,
	})

	if opts.Open {
		go openBrowser(baseURL(cfg))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Serving on %s\n", baseURL(cfg))
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Serve(ctx)
}

// bootstrapAdmin creates the first admin account on an empty database and
// prints its generated password, the only time it is visible.
func bootstrapAdmin(ctx context.Context, st store.Store, out io.Writer) error {
	n, err := st.CountUsers(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword()
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := st.CreateUser(ctx, bootstrapAdminUsername, string(hash), true); err != nil {
		return fmt.Errorf("failed to create bootstrap admin: %w", err)
	}

	fmt.Fprintln(out, "Created the first admin account:")
	fmt.Fprintf(out, "  username: %s\n", bootstrapAdminUsername)
	fmt.Fprintf(out, "  password: %s\n", password)
	fmt.Fprintln(out, "Change this password after signing in.")
	return nil
}

// sessionSecret returns the configured cookie secret, or one generated
// and persisted under the data dir so sessions survive restarts.
func sessionSecret(cfg *config.Config) (string, error) {
	if cfg.Session.Secret != "" {
		return cfg.Session.Secret, nil
	}

	path := filepath.Join(cfg.DataDir, "session.secret")
	if b, err := os.ReadFile(path); err == nil {
		if s := string(bytes.TrimSpace(b)); len(s) >= 32 {
			return s, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read session secret: %w", err)
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	secret := hex.EncodeToString(raw)
	if err := os.WriteFile(path, []byte(secret+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("failed to persist session secret: %w", err)
	}
	return secret, nil
}

// generatePassword returns a random password fit for pasting once.
func generatePassword() (string, error) {
	raw := make([]byte, 12)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// baseURL derives the address to show and open, preferring the
// configured public URL.
func baseURL(cfg *config.Config) string {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/")
	}
	listen := cfg.Listen
	if strings.HasPrefix(listen, ":") {
		listen = "localhost" + listen
	}
	return "http://" + listen
}

// openBrowser opens the default browser to the specified URL.
func openBrowser(url string) {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return
	}

	_ = cmd.Start()
}
