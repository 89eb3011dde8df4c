package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/framedeck-labs/framedeck/internal/store"
)

// exportDoc is the YAML shape of `group export` and `group import`.
type exportDoc struct {
	Groups []exportGroup `yaml:"groups"`
}

type exportGroup struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description,omitempty"`
	URLs        []exportURL `yaml:"urls,omitempty"`
	Users       []string    `yaml:"users,omitempty"`
}

type exportURL struct {
	Title              string `yaml:"title"`
	Target             string `yaml:"target"`
	MobileTarget       string `yaml:"mobile_target,omitempty"`
	IdleTimeoutSeconds int    `yaml:"idle_timeout_seconds,omitempty"`
	OpenExternal       bool   `yaml:"open_external,omitempty"`
}

// NewGroupCommand creates the group command and its subcommands.
func NewGroupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "group",
		Short: "Manage URL groups",
		Long:  `List URL groups, and move them between instances as YAML.`,
	}

	cmd.AddCommand(newGroupListCommand())
	cmd.AddCommand(newGroupExportCommand())
	cmd.AddCommand(newGroupImportCommand())

	return cmd
}

func newGroupListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List URL groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			groups, err := st.ListGroups(cmd.Context())
			if err != nil {
				return err
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"NAME", "URLS", "USERS"})
			for _, g := range groups {
				urls, err := st.ListGroupURLs(cmd.Context(), g.ID)
				if err != nil {
					return err
				}
				users, err := st.ListUsersForGroup(cmd.Context(), g.ID)
				if err != nil {
					return err
				}
				t.AppendRow(table.Row{g.Name, len(urls), len(users)})
			}
			t.Render()
			return nil
		},
	}
}

func newGroupExportCommand() *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export groups, URLs, and assignments as YAML",
		Example: `  # Print to stdout
  framedeck group export

  # Write to a file
  framedeck group export --out groups.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			doc, err := buildExport(cmd.Context(), st)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer func() { _ = f.Close() }()
				w = f
			}

			enc := yaml.NewEncoder(w)
			enc.SetIndent(2)
			if err := enc.Encode(doc); err != nil {
				return err
			}
			return enc.Close()
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Write to a file instead of stdout")

	return cmd
}

func newGroupImportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import groups, URLs, and assignments from YAML",
		Long: `Import a YAML document produced by group export.

Groups are matched by name and URLs by target; both are created when
missing and updated when changed. Each imported group's membership
becomes exactly the file's list. User assignments are added, never
removed, and usernames that do not exist are skipped with a warning.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() { _ = f.Close() }()

			var doc exportDoc
			dec := yaml.NewDecoder(f)
			dec.KnownFields(true)
			if err := dec.Decode(&doc); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			st, _, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			return runImport(cmd.Context(), st, &doc, cmd.OutOrStdout(), cmd.ErrOrStderr())
		},
	}

	return cmd
}

func buildExport(ctx context.Context, st store.Store) (*exportDoc, error) {
	groups, err := st.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	doc := &exportDoc{}
	for _, g := range groups {
		eg := exportGroup{Name: g.Name, Description: g.Description}

		urls, err := st.ListGroupURLs(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, u := range urls {
			eg.URLs = append(eg.URLs, exportURL{
				Title:              u.Title,
				Target:             u.Target,
				MobileTarget:       u.MobileTarget,
				IdleTimeoutSeconds: u.IdleTimeoutSeconds,
				OpenExternal:       u.OpenExternal,
			})
		}

		users, err := st.ListUsersForGroup(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			eg.Users = append(eg.Users, u.Username)
		}

		doc.Groups = append(doc.Groups, eg)
	}
	return doc, nil
}

func runImport(ctx context.Context, st store.Store, doc *exportDoc, out, errOut io.Writer) error {
	existing, err := st.ListGroups(ctx)
	if err != nil {
		return err
	}
	byName := make(map[string]*store.URLGroup, len(existing))
	for _, g := range existing {
		byName[g.Name] = g
	}

	allURLs, err := st.ListURLs(ctx)
	if err != nil {
		return err
	}
	byTarget := make(map[string]*store.URL, len(allURLs))
	for _, u := range allURLs {
		byTarget[u.Target] = u
	}

	var created, updated int
	for _, eg := range doc.Groups {
		if eg.Name == "" {
			return errors.New("group without a name in import file")
		}

		group := byName[eg.Name]
		if group == nil {
			group, err = st.CreateGroup(ctx, eg.Name, eg.Description)
			if err != nil {
				return err
			}
			byName[eg.Name] = group
			created++
		} else if group.Description != eg.Description {
			if err := st.UpdateGroup(ctx, group.ID, eg.Name, eg.Description); err != nil {
				return err
			}
			updated++
		}

		order := make([]string, 0, len(eg.URLs))
		for _, eu := range eg.URLs {
			if eu.Target == "" {
				return fmt.Errorf("url without a target in group %q", eg.Name)
			}

			u := byTarget[eu.Target]
			if u == nil {
				u = &store.URL{
					Title:              eu.Title,
					Target:             eu.Target,
					MobileTarget:       eu.MobileTarget,
					IdleTimeoutSeconds: eu.IdleTimeoutSeconds,
					OpenExternal:       eu.OpenExternal,
				}
				if err := st.CreateURL(ctx, u); err != nil {
					return err
				}
				byTarget[eu.Target] = u
			} else if urlDiffers(u, eu) {
				u.Title = eu.Title
				u.MobileTarget = eu.MobileTarget
				u.IdleTimeoutSeconds = eu.IdleTimeoutSeconds
				u.OpenExternal = eu.OpenExternal
				if err := st.UpdateURL(ctx, u); err != nil {
					return err
				}
			}
			order = append(order, u.ID)
		}
		if err := st.SetGroupURLOrder(ctx, group.ID, order); err != nil {
			return err
		}

		for _, username := range eg.Users {
			user, err := st.GetUserByUsername(ctx, store.NormalizeUsername(username))
			if errors.Is(err, store.ErrNotFound) {
				fmt.Fprintf(errOut, "warning: skipping unknown user %q in group %q\n", username, eg.Name)
				continue
			}
			if err != nil {
				return err
			}
			if err := st.AssignGroupToUser(ctx, user.ID, group.ID); err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(out, "Imported %d groups (%d created, %d updated)\n", len(doc.Groups), created, updated)
	return nil
}

func urlDiffers(u *store.URL, e exportURL) bool {
	return u.Title != e.Title ||
		u.MobileTarget != e.MobileTarget ||
		u.IdleTimeoutSeconds != e.IdleTimeoutSeconds ||
		u.OpenExternal != e.OpenExternal
}
