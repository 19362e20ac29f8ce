package seeders

import (
	"log"

	"gorm.io/gorm"
)

// MainSeeder coordinates all seeding operations
type MainSeeder struct {
	db *gorm.DB
}

// NewMainSeeder creates a new main seeder
func NewMainSeeder(db *gorm.DB) *MainSeeder {
	return &MainSeeder{db: db}
}

// SeedAll runs all seeders in the correct order
func (s *MainSeeder) SeedAll() error {
	log.Println("Starting database seeding...")

	// 1. Demo game content first (credentials reference the game)
	contentSeeder := NewContentSeeder(s.db)
	if err := contentSeeder.SeedContent(); err != nil {
		log.Printf("Content seeding failed: %v", err)
		return err
	}

	// 2. Access credentials, including the trial code
	credentialSeeder := NewCredentialSeeder(s.db)
	if err := credentialSeeder.SeedCredentials(); err != nil {
		log.Printf("Credential seeding failed: %v", err)
		return err
	}

	log.Println("Database seeding completed successfully!")
	return nil
}

// SeedContentOnly seeds only the demo game content
func (s *MainSeeder) SeedContentOnly() error {
	contentSeeder := NewContentSeeder(s.db)
	return contentSeeder.SeedContent()
}

// SeedCredentialsOnly seeds only access credentials
func (s *MainSeeder) SeedCredentialsOnly() error {
	credentialSeeder := NewCredentialSeeder(s.db)
	return credentialSeeder.SeedCredentials()
}
