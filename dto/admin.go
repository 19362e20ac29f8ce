package dto

import "time"

type CreateGameRequest struct {
	Title       string `json:"title" validate:"required,max=120"`
	Description string `json:"description" validate:"max=2000"`
	Theme       string `json:"theme" validate:"max=60"`
}

func (r CreateGameRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CreatePuzzleRequest struct {
	GameID     string   `json:"game_id" validate:"required"`
	Seq        int      `json:"seq" validate:"gte=0"`
	Title      string   `json:"title" validate:"required,max=120"`
	Story      string   `json:"story" validate:"max=5000"`
	Challenge  string   `json:"challenge" validate:"required,max=5000"`
	MediaKey   string   `json:"media_key" validate:"max=255"`
	AnswerType string   `json:"answer_type" validate:"required,oneof=free_text multiple_choice"`
	Options    []string `json:"options" validate:"omitempty,max=10"`
	Answer     string   `json:"answer" validate:"required,max=255"`
	Clues      []string `json:"clues" validate:"omitempty,max=10"`
}

func (r CreatePuzzleRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CreateScreenRequest struct {
	GameID   string `json:"game_id" validate:"required"`
	Seq      int    `json:"seq" validate:"gte=0"`
	Tag      string `json:"tag" validate:"max=64"`
	Title    string `json:"title" validate:"required,max=120"`
	Body     string `json:"body" validate:"max=10000"`
	MediaKey string `json:"media_key" validate:"max=255"`
}

func (r CreateScreenRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CreateCredentialRequest struct {
	GameID string `json:"game_id" validate:"required"`
	Code   string `json:"code" validate:"omitempty,min=4,max=32,alphanum"`
	// When set, the code is emailed to the purchaser (fire-and-forget).
	Email string `json:"email" validate:"omitempty,email"`
}

func (r CreateCredentialRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CredentialListItem struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	GameID      string     `json:"game_id"`
	IsActive    bool       `json:"is_active"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
