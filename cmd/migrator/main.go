package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/pressly/goose/v3"

	"rollcall/internal/config"
	"rollcall/internal/store"
)

func main() {
	dir := flag.String("dir", "migrations", "directory with migration files")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		return
	}
	command := args[0]

	cfg := config.Load()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.Client.PingContext(ctx); err != nil {
		log.Fatalf("db ping failed: %v", err)
	}

	switch command {
	case "up":
		if err := goose.Up(db.Client, *dir); err != nil {
			log.Fatalf("migrate up failed: %v", err)
		}
		fmt.Println("migrations applied")
	case "down":
		if err := goose.Down(db.Client, *dir); err != nil {
			log.Fatalf("migrate down failed: %v", err)
		}
		fmt.Println("last migration rolled back")
	case "status":
		if err := goose.Status(db.Client, *dir); err != nil {
			log.Fatalf("migration status failed: %v", err)
		}
	default:
		fmt.Printf("unknown command: %s\n", command)
		flag.Usage()
	}
}

func usage() {
	fmt.Println("Usage: migrator [-dir path] COMMAND")
	fmt.Println("Commands:")
	fmt.Println("  up     - apply all pending migrations")
	fmt.Println("  down   - roll back the last migration")
	fmt.Println("  status - show migration status")
}
