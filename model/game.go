// model/game.go
package model

import (
	"encoding/json"
	"time"
)

// Game is the top-level hunt definition. Read-only during play; the engine
// never mutates content rows.
type Game struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description" gorm:"type:text"`
	Theme       string    `json:"theme"`
	IsActive    bool      `json:"is_active" gorm:"default:true"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Puzzle is one stop on the hunt. Seq is unique per game and defines the
// sole traversal order.
type Puzzle struct {
	ID         string          `json:"id" gorm:"primaryKey"`
	GameID     string          `json:"game_id" gorm:"not null;index;uniqueIndex:idx_puzzle_game_seq"`
	Seq        int             `json:"seq" gorm:"not null;uniqueIndex:idx_puzzle_game_seq"`
	Title      string          `json:"title" gorm:"not null"`
	Story      string          `json:"story" gorm:"type:text"`
	Challenge  string          `json:"challenge" gorm:"type:text"`
	MediaKey   string          `json:"media_key"`
	AnswerType string          `json:"answer_type" gorm:"default:free_text"` // free_text, multiple_choice
	Options    json.RawMessage `json:"options,omitempty" gorm:"type:text"`   // JSON array for multiple_choice
	Answer     string          `json:"answer" gorm:"not null"`
	Clues      json.RawMessage `json:"clues" gorm:"type:text"` // JSON array of clue strings
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`

	// Relationship
	Game Game `json:"-" gorm:"foreignKey:GameID"`
}

// DecodedClues unpacks the clue list; a broken payload counts as no clues.
func (p *Puzzle) DecodedClues() []string {
	var clues []string
	if p.Clues != nil {
		if err := json.Unmarshal(p.Clues, &clues); err != nil {
			return nil
		}
	}
	return clues
}

// InterstitialScreen is a narrative screen shown between or before puzzles.
// Tag is "" for intro screens, a puzzle id for per-puzzle screens, or the
// end sentinel for the finale. Seq breaks ties among screens sharing a tag.
type InterstitialScreen struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	GameID    string    `json:"game_id" gorm:"not null;index"`
	Seq       int       `json:"seq" gorm:"not null"`
	Tag       string    `json:"tag" gorm:"index"`
	Title     string    `json:"title" gorm:"not null"`
	Body      string    `json:"body" gorm:"type:text"`
	MediaKey  string    `json:"media_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
