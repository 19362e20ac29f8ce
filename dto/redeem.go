package dto

import "time"

type RedeemRequest struct {
	Code string `json:"code" validate:"required,min=4,max=32,alphanum"`
}

func (r RedeemRequest) Validate() error {
	return GetValidator().Struct(r)
}

type CredentialResponse struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`
	GameID      string     `json:"game_id"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Sentinel    bool       `json:"sentinel"`
}

type RedeemResponse struct {
	Credential CredentialResponse `json:"credential"`
	Game       GameResponse       `json:"game"`
	Puzzles    []PuzzleResponse   `json:"puzzles"`
	Token      string             `json:"token"`
}
