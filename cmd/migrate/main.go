// Command migrate applies the schema files under migrations/ to the
// reconciliation database, one transaction per file. --list prints the
// platform tables that already exist instead of applying anything.
package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

// platformTables is the full schema this tool manages, in dependency
// order.
var platformTables = []string{
	"unified_customers",
	"health_history",
	"alert_history",
	"campaigns",
	"sync_log",
}

func main() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL is required")
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
		log.Fatalf("connect: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping: %v", err)
	}
	log.Println("Connected to database")

	if listOnly {
		if err := listTables(db); err != nil {
			log.Fatal(err)
		}
		return
	}
	if err := applyDir(db, dir); err != nil {
		log.Fatal(err)
	}
}

func listTables(db *sql.DB) error {
	quoted := make([]string, len(platformTables))
	for i, t := range platformTables {
		quoted[i] = "'" + t + "'"
	}
	rows, err := db.Query(
		"SELECT tablename FROM pg_tables WHERE schemaname='public' AND tablename IN (" +
			strings.Join(quoted, ",") + ") ORDER BY tablename")
	if err != nil {
		return err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return err
		}
		fmt.Println(" ", t)
		n++
	}
	fmt.Printf("%d of %d platform tables present\n", n, len(platformTables))
	return rows.Err()
}

func applyDir(db *sql.DB, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read migrations dir %s: %w", dir, err)
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
			return fmt.Errorf("read %s: %w", path, err)
		}
		if strings.TrimSpace(string(data)) == "" {
			continue
		}
		fmt.Printf("  %s ... ", f)

		if err := applyOne(db, string(data)); err != nil {
			fmt.Printf("ERROR: %v\n", err)
			errCount++
		} else {
			fmt.Println("OK")
			okCount++
		}
	}
	log.Printf("Done: %d OK, %d errors", okCount, errCount)
	if errCount > 0 {
		return fmt.Errorf("%d migrations failed", errCount)
	}
	return nil
}

// applyOne runs a migration file in its own transaction so a failing
// file leaves earlier ones committed and the broken one fully undone.
func applyOne(db *sql.DB, content string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec(content); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}
