package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"social-content-platform/internal/config"
	"social-content-platform/services"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run ./cmd/migrate <command>")
		fmt.Println("Commands:")
		fmt.Println("  ensure-indexes   - Create the indexes every collection relies on")
		fmt.Println("  backfill-source  - Tag legacy suggestions without a source as profile suggestions")
		os.Exit(1)
	}

	command := os.Args[1]

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// Connect without ConnectMongoDB so index creation failures surface here.
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(cfg.DBName)

	switch command {
	case "ensure-indexes":
		if err := config.EnsureIndexes(ctx, db); err != nil {
			log.Fatalf("Index creation failed: %v", err)
		}
		fmt.Println("Indexes are up to date")

	case "backfill-source":
		n, err := services.NewSuggestionStore(db, nil).BackfillSource(ctx)
		if err != nil {
			log.Fatalf("Backfill failed: %v", err)
		}
		fmt.Printf("Backfilled source on %d suggestions\n", n)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}
