package main

import (
	"context"
	"flag"
	"log"

	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/datasource"
	"github.com/yerevan-pricing/backend/internal/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	dir := flag.String("dir", cfg.Data.Dir, "directory holding the CSV snapshots")
	flag.Parse()

	log.Printf("🚀 Loading CSV snapshots from %s...", *dir)

	gdb, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	reports, err := datasource.NewLoader(gdb, *dir).LoadAll(context.Background())
	for _, r := range reports {
		log.Printf("%-16s read=%d skipped=%d inserted=%d", r.Table, r.Read, r.Skipped, r.Inserted)
	}
	if err != nil {
		log.Fatalf("load failed: %v", err)
	}

	log.Println("✅ CSV load completed successfully.")
}
