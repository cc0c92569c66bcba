// Command dbinspect prints a summary of a fosse catalog database.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/fosse-media/fosse/internal/domain"
	"github.com/fosse-media/fosse/internal/store/sqlite"
)

func main() {
	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "fosse.db"
	}
	if _, err := os.Stat(dbPath); err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}

	db, err := sqlite.Open(dbPath, slog.New(slog.DiscardHandler))
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	fmt.Println("=== Database Inspection ===")
	fmt.Println()

	stats, err := db.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}
	fmt.Printf("Videos:    %d\n", stats.Videos)
	fmt.Printf("Notebooks: %d\n", stats.Notebooks)
	fmt.Printf("Genres:    %d\n", stats.Genres)
	fmt.Printf("Subgenres: %d\n", stats.Subgenres)
	fmt.Printf("Platforms: %d\n", stats.Platforms)
	fmt.Printf("Titles:    %d\n", stats.Titles)
	if stats.LastChange != nil {
		fmt.Printf("Changed:   %s\n", stats.LastChange.Local().Format("2006-01-02 15:04:05"))
	}
	fmt.Println()

	notebooks, err := db.ListNotebooks(ctx)
	if err != nil {
		log.Fatalf("Failed to list notebooks: %v", err)
	}
	fmt.Println("=== Notebooks ===")
	for _, nb := range notebooks {
		fmt.Printf("  %s  (%d fields, modified %s)\n",
			nb.DirectoryPath, nb.Notebook.Len(), nb.LastModified.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()

	for _, kind := range domain.DimensionKinds {
		values, err := db.ListDimension(ctx, kind)
		if err != nil {
			log.Fatalf("Failed to list %s: %v", kind, err)
		}
		fmt.Printf("=== %s (%d) ===\n", kind, len(values))
		for _, d := range values {
			if d.ParentID != nil {
				fmt.Printf("  [%d] %s (parent %d)\n", d.ID, d.Name, *d.ParentID)
			} else {
				fmt.Printf("  [%d] %s\n", d.ID, d.Name)
			}
		}
		fmt.Println()
	}
}
