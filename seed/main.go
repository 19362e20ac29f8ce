package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/seed/seeders"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	var (
		seedType = flag.String("type", "all", "Type of seeding: all, content, credentials")
		help     = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	db, err := gorm.Open(postgres.Open(dsn()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Info),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(
		&model.Game{},
		&model.Puzzle{},
		&model.InterstitialScreen{},
		&model.AccessCredential{},
		&model.CredentialUsage{},
		&model.PlaySession{},
	); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	mainSeeder := seeders.NewMainSeeder(db)

	switch *seedType {
	case "all":
		log.Println("Running complete database seeding...")
		if err := mainSeeder.SeedAll(); err != nil {
			log.Fatalf("Failed to seed database: %v", err)
		}
	case "content":
		log.Println("Seeding demo content only...")
		if err := mainSeeder.SeedContentOnly(); err != nil {
			log.Fatalf("Failed to seed content: %v", err)
		}
	case "credentials":
		log.Println("Seeding credentials only...")
		if err := mainSeeder.SeedCredentialsOnly(); err != nil {
			log.Fatalf("Failed to seed credentials: %v", err)
		}
	default:
		log.Fatalf("Unknown seed type: %s. Use 'all', 'content', or 'credentials'", *seedType)
	}

	log.Println("Seeding operation completed successfully!")
}

func dsn() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := envOr("DB_HOST", "localhost")
	port := envOr("DB_PORT", "5432")
	user := envOr("DB_USER", "postgres")
	password := envOr("DB_PASSWORD", "postgres")
	dbname := envOr("DB_NAME", "quest_api")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func showHelp() {
	log.Println(`
Database Seeding Tool for QuestTrail

Usage: go run seed/main.go [flags]

Flags:
  -type string
        Type of seeding to perform (default "all")
        Options: all, content, credentials
  -help
        Show this help message

Examples:
  # Seed everything (demo game, screens, access codes incl. the trial code)
  go run seed/main.go

  # Seed only the demo game content
  go run seed/main.go -type=content

  # Seed only access credentials
  go run seed/main.go -type=credentials

Environment Variables:
  DATABASE_URL - Full Postgres connection string
  DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME - Used when DATABASE_URL is unset`)
}
