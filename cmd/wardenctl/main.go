// Package main is the wardenctl admin tool. It operates on the SQLite store
// directly, so it works even when the server is down or no admin account is
// left to log in with.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"warden/internal/config"
	internaldb "warden/internal/db"
	"warden/internal/db/repository"
	"warden/internal/domain"
	"warden/internal/service/security"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type store struct {
	writeDB *sql.DB
	readDB  *sql.DB
	users   *repository.UserRepo
	admins  *repository.AdminRepo
	groups  *repository.GroupRepo
}

func openStore(path string) (*store, error) {
	writeDB, readDB, err := internaldb.OpenPair(path, 0)
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	if err := internaldb.RunMigrations(writeDB); err != nil {
		_ = readDB.Close()
		_ = writeDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &store{
		writeDB: writeDB,
		readDB:  readDB,
		users:   repository.NewUserRepo(writeDB, readDB),
		admins:  repository.NewAdminRepo(writeDB, readDB),
		groups:  repository.NewGroupRepo(writeDB, readDB),
	}, nil
}

func (s *store) close() {
	_ = s.readDB.Close()
	_ = s.writeDB.Close()
}

func rootCmd() *cobra.Command {
	var dbPath string

	root := &cobra.Command{
		Use:           "wardenctl",
		Short:         "Administer a warden store directly",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(".env"); err != nil {
				return err
			}
			if dbPath == "" {
				dbPath = os.Getenv("DB_PATH")
			}
			if dbPath == "" {
				dbPath = "warden.sqlite"
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "", "path to the SQLite store (default $DB_PATH or warden.sqlite)")

	root.AddCommand(createUserCmd(&dbPath))
	root.AddCommand(promoteCmd(&dbPath, true))
	root.AddCommand(promoteCmd(&dbPath, false))
	root.AddCommand(createGroupCmd(&dbPath))
	return root
}

func createUserCmd(dbPath *string) *cobra.Command {
	var admin bool

	cmd := &cobra.Command{
		Use:   "create-user <name>",
		Short: "Create a local user, prompting for the password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			password, err := promptPassword()
			if err != nil {
				return err
			}
			hash, err := security.HashPassword(password)
			if err != nil {
				return err
			}

			s, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := context.Background()
			user, err := s.users.Create(ctx, name, hash)
			if err != nil {
				return fmt.Errorf("create user %q: %w", name, err)
			}
			if admin {
				if err := s.admins.Add(ctx, user.ID); err != nil {
					return fmt.Errorf("promote %q: %w", name, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (%s)\n", user.Name, user.ID)
			return nil
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role after creating")
	return cmd
}

// promoteCmd builds both promote and demote; they differ only in direction.
func promoteCmd(dbPath *string, grant bool) *cobra.Command {
	use, short := "promote <name>", "Grant a user the admin role"
	if !grant {
		use, short = "demote <name>", "Revoke a user's admin role"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer s.close()

			ctx := context.Background()
			user, err := s.users.GetByName(ctx, args[0])
			if err != nil {
				return err
			}
			if grant {
				if err := s.admins.Add(ctx, user.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s is an admin\n", user.Name)
				return nil
			}
			if err := s.admins.Remove(ctx, user.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is no longer an admin\n", user.Name)
			return nil
		},
	}
}

func createGroupCmd(dbPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "create-group <name>",
		Short: "Create an access control group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openStore(*dbPath)
			if err != nil {
				return err
			}
			defer s.close()

			group, err := s.groups.Create(context.Background(), &domain.Group{Name: args[0]})
			if err != nil {
				return fmt.Errorf("create group %q: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created group %s (%s)\n", group.Name, group.ID)
			return nil
		},
	}
}

// promptPassword reads the password twice without echo and requires the two
// entries to match.
func promptPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("create-user needs an interactive terminal for the password prompt")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	fmt.Fprint(os.Stderr, "Confirm: ")
	second, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}
	return string(first), nil
}
