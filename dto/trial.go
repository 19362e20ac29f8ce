package dto

type StartTrialRequest struct {
	GameID string `json:"game_id,omitempty" validate:"omitempty,max=64"`
}

func (r StartTrialRequest) Validate() error {
	return GetValidator().Struct(r)
}

type StartTrialResponse struct {
	RunID   string           `json:"run_id"`
	Game    GameResponse     `json:"game"`
	Puzzles []PuzzleResponse `json:"puzzles"`
}
