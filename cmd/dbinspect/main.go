// Package main prints a summary of every document in a badger document
// store. The store is opened read-only, so it is safe to run next to a
// stopped server's data directory.
//
// Usage:
//
//	DB_PATH=~/.tilecatread/documents go run ./cmd/dbinspect
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/icberg-810202/tilecatread/internal/domain"
	"github.com/icberg-810202/tilecatread/internal/logger"
	"github.com/icberg-810202/tilecatread/internal/remote"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			log.Fatalf("Cannot resolve home directory: %v", err)
		}
		dbPath = filepath.Join(home, ".tilecatread", "documents")
	}

	store, err := remote.OpenBadger(dbPath, true, logger.Discard())
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	fmt.Println("=== Document Store Inspection ===")
	fmt.Printf("Path: %s\n\n", dbPath)

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tREGISTERED\tBOOKS\tQUOTES\tDEVICES\tLAST UPDATED")

	var users, books, quotes int
	err = store.Each(context.Background(), func(doc *domain.Document) error {
		users++
		books += len(doc.Books)
		quotes += doc.QuoteCount()

		updated := "never"
		if !doc.LastUpdated.IsZero() {
			updated = doc.LastUpdated.Local().Format(time.DateTime)
		}
		fmt.Fprintf(tw, "%s\t%t\t%d\t%d\t%d\t%s\n",
			doc.Username, doc.Registered(), len(doc.Books), doc.QuoteCount(), len(doc.DeviceSelections), updated)
		return nil
	})
	if err != nil {
		log.Fatalf("Failed to iterate documents: %v", err)
	}
	_ = tw.Flush()

	fmt.Printf("\nTotal: %d users, %d books, %d quotes\n", users, books, quotes)
}
