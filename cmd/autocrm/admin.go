package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"syscall"
	"text/tabwriter"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	"github.com/Strob0t/AutoCRM/internal/adapter/postgres"
	"github.com/Strob0t/AutoCRM/internal/config"
	"github.com/Strob0t/AutoCRM/internal/domain/approval"
	"github.com/Strob0t/AutoCRM/internal/service"
)

// runAdmin dispatches admin subcommands (migrate, seed, approvals, hash-key).
func runAdmin(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printAdminHelp()
		return nil
	}

	switch args[0] {
	case "migrate":
		return runAdminMigrate(args[1:])
	case "seed":
		return runAdminSeed(args[1:])
	case "approvals":
		return runAdminApprovals(args[1:])
	case "hash-key":
		return runAdminHashKey(args[1:])
	default:
		printAdminHelp()
		return fmt.Errorf("unknown admin command: %s", args[0])
	}
}

func printAdminHelp() {
	fmt.Fprintf(os.Stderr, `Usage: autocrm admin <command> [options]

Commands:
  migrate     Apply, roll back or inspect PostgreSQL migrations
  seed        Reset users and orders to the demo fixtures
  approvals   List suspended runs
  hash-key    Print the bcrypt hash of an approver key
  help        Show this help message

Examples:
  autocrm admin migrate --down 1
  autocrm admin migrate --version
  autocrm admin seed
  autocrm admin approvals --status pending
  autocrm admin hash-key
`)
}

func runAdminMigrate(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	down := fs.Int("down", 0, "roll back this many migrations instead of applying")
	version := fs.Bool("version", false, "print the current schema version")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Driver != "postgres" {
		return fmt.Errorf("migrations apply to the postgres driver, configured driver is %q", cfg.Store.Driver)
	}

	ctx := context.Background()
	switch {
	case *version:
		v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
		if err != nil {
			return fmt.Errorf("migration version: %w", err)
		}
		fmt.Println(v)
		return nil
	case *down > 0:
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *down); err != nil {
			return fmt.Errorf("rollback: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Rolled back %d migration(s)\n", *down)
		return nil
	}

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	fmt.Fprintln(os.Stderr, "Migrations applied")
	return nil
}

func runAdminSeed(args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Store.Driver == "memory" {
		return errors.New("the memory store is seeded on every start")
	}

	ctx := context.Background()
	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := service.NewSeedService(store).Reset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "Database reset to initial state")
	return nil
}

func runAdminApprovals(args []string) error {
	fs := flag.NewFlagSet("approvals", flag.ContinueOnError)
	status := fs.String("status", "", "filter by status: pending, approved or denied")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx := context.Background()
	store, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	list, err := store.ListApprovals(ctx, approval.Status(*status))
	if err != nil {
		return fmt.Errorf("list approvals: %w", err)
	}
	if len(list) == 0 {
		fmt.Println("No approvals found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN_ID\tROUTE\tGUARD_RAIL\tUSER\tSTATUS\tDECIDER\tCREATED")
	for i := range list {
		a := &list[i]
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			a.RunID, a.Route, a.GuardRail, a.UserID, a.Status, a.Decider, a.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return w.Flush()
}

func runAdminHashKey(args []string) error {
	fs := flag.NewFlagSet("hash-key", flag.ContinueOnError)
	key := fs.String("key", "", "approver key (prompted if not provided)") //nolint:gosec // CLI flag
	if err := fs.Parse(args); err != nil {
		return err
	}

	k := *key
	if k == "" {
		var err error
		k, err = promptSecret("Approver key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		confirm, err := promptSecret("Confirm key: ")
		if err != nil {
			return fmt.Errorf("read key: %w", err)
		}
		if k != confirm {
			return errors.New("keys do not match")
		}
	}
	if k == "" {
		return errors.New("key must not be empty")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(k), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash key: %w", err)
	}
	fmt.Println(string(hash))
	return nil
}

// promptSecret reads a secret from the terminal without echoing.
func promptSecret(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin)) //nolint:unconvert // int conversion needed on some platforms
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
