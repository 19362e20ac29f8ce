// model/session.go
package model

import (
	"encoding/json"
	"time"
)

// PlaySession is the durable progress record for one credential. At most
// one session exists per credential (unique index), created lazily on first
// successful redemption and reused on every re-entry.
type PlaySession struct {
	ID               string          `json:"id" gorm:"primaryKey"`
	CredentialID     string          `json:"credential_id" gorm:"uniqueIndex;not null"`
	GameID           string          `json:"game_id" gorm:"not null;index"`
	CurrentPuzzleID  *string         `json:"current_puzzle_id"`
	CompletedPuzzles json.RawMessage `json:"completed_puzzles" gorm:"type:text"` // JSON array of puzzle ids
	ExtensionData    json.RawMessage `json:"extension_data" gorm:"type:text"`    // SessionExtension
	LastActivity     time.Time       `json:"last_activity" gorm:"not null"`
	CreatedAt        time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt        time.Time       `json:"updated_at" gorm:"not null"`
}

// SessionExtension is the opaque extension payload of a PlaySession.
// ViewedScreens carries the interstitial ids already shown. Updates must
// merge into the freshest read so unrelated fields survive concurrent writes.
type SessionExtension struct {
	ViewedScreens []string `json:"viewed_screens"`
}

// DecodedCompleted unpacks the completed-puzzle id list. Membership is what
// matters; insertion order is irrelevant.
func (s *PlaySession) DecodedCompleted() []string {
	var ids []string
	if s.CompletedPuzzles != nil {
		if err := json.Unmarshal(s.CompletedPuzzles, &ids); err != nil {
			return nil
		}
	}
	return ids
}

// DecodedExtension unpacks the extension payload; a broken payload decodes
// as empty rather than poisoning the session.
func (s *PlaySession) DecodedExtension() SessionExtension {
	var ext SessionExtension
	if s.ExtensionData != nil {
		_ = json.Unmarshal(s.ExtensionData, &ext)
	}
	return ext
}
