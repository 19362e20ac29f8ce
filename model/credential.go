// model/credential.go
package model

import "time"

// AccessCredential is the time-boxed access code a purchaser redeems.
// Codes are stored upper-cased. ActivatedAt/ExpiresAt are stamped together
// on first redemption and never reset afterwards.
type AccessCredential struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	Code        string     `json:"code" gorm:"uniqueIndex;not null"`
	GameID      string     `json:"game_id" gorm:"not null;index"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	ActivatedAt *time.Time `json:"activated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Relationship
	Game Game `json:"-" gorm:"foreignKey:GameID"`
}

// Activated reports whether the validity window has been stamped.
func (c *AccessCredential) Activated() bool {
	return c.ActivatedAt != nil
}

// ExpiredAt reports whether the window has elapsed at the given instant.
// The trial sentinel is handled by the caller, not here.
func (c *AccessCredential) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// CredentialUsage is a write-once audit record of credential lifecycle
// events. Failures writing it never fail the primary flow.
type CredentialUsage struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	CredentialID string    `json:"credential_id" gorm:"not null;index"`
	Action       string    `json:"action" gorm:"not null"`
	Timestamp    time.Time `json:"timestamp" gorm:"not null"`
	CreatedAt    time.Time `json:"created_at"`
}
