package commands

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/framedeck-labs/framedeck/internal/store"
)

// NewUserCommand creates the user command and its subcommands.
func NewUserCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
		Long:  `Create, list, and remove accounts, and reset passwords.`,
	}

	cmd.AddCommand(newUserAddCommand())
	cmd.AddCommand(newUserListCommand())
	cmd.AddCommand(newUserPasswdCommand())
	cmd.AddCommand(newUserDelCommand())

	return cmd
}

func newUserAddCommand() *cobra.Command {
	var (
		admin    bool
		password string
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create an account",
		Example: `  # Prompt for the password
  framedeck user add alex

  # Create an administrator non-interactively
  framedeck user add root --admin --password s3cret`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if password == "" {
				password, err = promptNewPassword()
				if err != nil {
					return err
				}
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			username := store.NormalizeUsername(args[0])
			user, err := st.CreateUser(cmd.Context(), username, string(hash), admin)
			if errors.Is(err, store.ErrUsernameTaken) {
				return fmt.Errorf("username %q is already taken", username)
			}
			if err != nil {
				return err
			}

			role := "user"
			if user.IsAdmin {
				role = "admin"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s %q\n", role, user.Username)
			return nil
		},
	}

	cmd.Flags().BoolVar(&admin, "admin", false, "Grant the admin flag")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")

	return cmd
}

func newUserListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			users, err := st.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"USERNAME", "ROLE", "CREATED"})
			for _, u := range users {
				role := "user"
				if u.IsAdmin {
					role = "admin"
				}
				t.AppendRow(table.Row{u.Username, role, u.CreatedAt.Format("2006-01-02")})
			}
			t.Render()
			return nil
		},
	}
}

func newUserPasswdCommand() *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "passwd <username>",
		Short: "Reset an account password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			user, err := findUser(cmd, st, args[0])
			if err != nil {
				return err
			}

			if password == "" {
				password, err = promptNewPassword()
				if err != nil {
					return err
				}
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}
			if err := st.UpdateUserPassword(cmd.Context(), user.ID, string(hash)); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %q\n", user.Username)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")

	return cmd
}

func newUserDelCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "del <username>",
		Aliases: []string{"rm"},
		Short:   "Delete an account",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			user, err := findUser(cmd, st, args[0])
			if err != nil {
				return err
			}
			if err := st.DeleteUser(cmd.Context(), user.ID); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %q\n", user.Username)
			return nil
		},
	}
}

// findUser resolves a username argument, normalized the same way login
// is.
func findUser(cmd *cobra.Command, st store.Store, username string) (*store.User, error) {
	username = store.NormalizeUsername(username)
	user, err := st.GetUserByUsername(cmd.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("no such user %q", username)
	}
	return user, err
}

// promptNewPassword reads a password twice from the terminal without
// echo, or a single line when stdin is piped.
func promptNewPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password := strings.TrimRight(line, "\r\n")
		if password == "" {
			return "", errors.New("password must not be empty")
		}
		return password, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}

	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}

	return string(first), nil
}
