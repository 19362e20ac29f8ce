package seeders

import (
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
)

// CredentialSeeder seeds access codes for the demo game
type CredentialSeeder struct {
	db *gorm.DB
}

// NewCredentialSeeder creates a new credential seeder
func NewCredentialSeeder(db *gorm.DB) *CredentialSeeder {
	return &CredentialSeeder{db: db}
}

// SeedCredentials seeds the trial sentinel plus a handful of demo codes
func (s *CredentialSeeder) SeedCredentials() error {
	codes := []string{
		shared.TrialCode,
		"DEMO0001",
		"DEMO0002",
		"DEMO0003",
	}

	now := time.Now()
	for _, code := range codes {
		id, _ := uuid.NewV7()
		cred := model.AccessCredential{
			ID:        id.String(),
			Code:      code,
			GameID:    DemoGameID,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}

		var existing model.AccessCredential
		if err := s.db.Where("code = ?", code).First(&existing).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				if err := s.db.Create(&cred).Error; err != nil {
					log.Printf("Error creating credential %s: %v", code, err)
					return err
				}
				log.Printf("Created credential: %s", code)
				continue
			}
			return err
		}

		log.Printf("Credential %s already exists, skipping", code)
	}

	log.Println("Credential seeding completed successfully")
	return nil
}
