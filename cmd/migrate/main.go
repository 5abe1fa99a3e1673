// Command migrate manages the database schema.
//
// Usage:
//
//	migrate up      apply pending migrations
//	migrate down    roll back the last migration
//	migrate status  list applied migrations
//	migrate seed    apply seed data
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/kamideathless/books-shop/internal/migrate"
	"github.com/kamideathless/books-shop/internal/store/pg"
	"github.com/kamideathless/books-shop/ops/migrations"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("expected exactly one command: up, down, status or seed")
	}

	dsn := os.Getenv("BOOKSHOP_PG_DSN")
	if dsn == "" {
		return fmt.Errorf("BOOKSHOP_PG_DSN is required")
	}

	store, err := pg.Open(dsn)
	if err != nil {
		return err
	}
	defer store.Close()

	mgr := migrate.NewManager(store.DB(), migrations.FS, "sql", "seeds")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	switch args[0] {
	case "up":
		return mgr.Up(ctx)
	case "down":
		return mgr.Down(ctx)
	case "seed":
		return mgr.Seed(ctx)
	case "status":
		applied, err := mgr.Status(ctx)
		if err != nil {
			return err
		}
		if len(applied) == 0 {
			fmt.Println("no migrations applied")
			return nil
		}
		for _, name := range applied {
			fmt.Println(name)
		}
		return nil
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}
