package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"github.com/ignite/whisperbox/internal/pkg/logger"
)

var schemaTables = []string{"profiles", "messages", "visits", "blocks", "push_subscriptions"}

func fatal(msg string, err error) {
	logger.Error(msg, "error", err)
	os.Exit(1)
}

func main() {
	_ = godotenv.Load()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	dir := "migrations"
	listOnly := false
	for _, a := range os.Args[1:] {
		if a == "--list" {
			listOnly = true
		} else {
			dir = a
		}
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fatal("connect", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		fatal("ping", err)
	}
	logger.Info("connected to database")

	if listOnly {
		listTables(db)
		return
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		fatal("read migrations dir", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	var okCount, errCount int
	for _, f := range files {
		path := filepath.Join(dir, f)
		data, err := os.ReadFile(path)
		if err != nil {
			fatal("read "+path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			logger.Error("migration begin failed", "file", f, "error", err)
			errCount++
			continue
		}
		if _, err := tx.Exec(string(data)); err != nil {
			tx.Rollback()
			logger.Error("migration failed", "file", f, "error", err)
			errCount++
			continue
		}
		if err := tx.Commit(); err != nil {
			logger.Error("migration commit failed", "file", f, "error", err)
			errCount++
			continue
		}
		logger.Info("migration applied", "file", f)
		okCount++
	}
	logger.Info("migrations complete", "ok", okCount, "errors", errCount)
	if errCount > 0 {
		os.Exit(1)
	}
}

func listTables(db *sql.DB) {
	for _, t := range schemaTables {
		var exists bool
		err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM pg_tables WHERE schemaname = 'public' AND tablename = $1)`, t,
		).Scan(&exists)
		if err != nil {
			fatal("list tables", err)
		}
		state := "missing"
		if exists {
			state = "present"
		}
		fmt.Printf("  %-20s %s\n", t, state)
	}
}
