package dto

import "time"

type GameResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Theme       string `json:"theme"`
	PuzzleCount int    `json:"puzzle_count"`
}

// PuzzleResponse never carries the canonical answer or the clue list; clues
// are disclosed one at a time through the play view.
type PuzzleResponse struct {
	ID         string   `json:"id"`
	GameID     string   `json:"game_id"`
	Seq        int      `json:"seq"`
	Title      string   `json:"title"`
	Story      string   `json:"story"`
	Challenge  string   `json:"challenge"`
	MediaURL   string   `json:"media_url,omitempty"`
	AnswerType string   `json:"answer_type"`
	Options    []string `json:"options,omitempty"`
	TotalClues int      `json:"total_clues"`
}

type ScreenResponse struct {
	ID       string `json:"id"`
	GameID   string `json:"game_id"`
	Seq      int    `json:"seq"`
	Tag      string `json:"tag"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	MediaURL string `json:"media_url,omitempty"`
}

// ViewResponse is what the player should currently see: exactly one of
// Interstitial or Puzzle is set unless the run is complete.
type ViewResponse struct {
	Type          string          `json:"type"` // interstitial, puzzle, completion
	Interstitial  *ScreenResponse `json:"interstitial,omitempty"`
	Puzzle        *PuzzleResponse `json:"puzzle,omitempty"`
	RevealedClues []string        `json:"revealed_clues,omitempty"`
	Completed     bool            `json:"completed"`
}

type SubmitAnswerRequest struct {
	PuzzleID string `json:"puzzle_id" validate:"required"`
	Answer   string `json:"answer" validate:"required,max=500"`
}

func (r SubmitAnswerRequest) Validate() error {
	return GetValidator().Struct(r)
}

type SubmitAnswerResponse struct {
	Correct       bool     `json:"correct"`
	RevealedClues []string `json:"revealed_clues,omitempty"`
	Completed     bool     `json:"completed"`
	// AutoAdvanceAt is set after a correct answer on a non-final puzzle.
	AutoAdvanceAt *time.Time `json:"auto_advance_at,omitempty"`
}

type SessionResponse struct {
	ID               string    `json:"id"`
	CredentialID     string    `json:"credential_id"`
	GameID           string    `json:"game_id"`
	CurrentPuzzleID  *string   `json:"current_puzzle_id"`
	CompletedPuzzles []string  `json:"completed_puzzles"`
	ViewedScreens    []string  `json:"viewed_screens"`
	LastActivity     time.Time `json:"last_activity"`
	CreatedAt        time.Time `json:"created_at"`
}
