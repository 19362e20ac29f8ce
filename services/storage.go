package services

import (
	"time"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/model"
)

// Storage capabilities consumed by the engine services. PostgresService
// implements all of them; tests substitute mocks. Keeping these narrow is
// what lets the persisted and trial paths share the engine code without the
// trial path ever reaching the database.

type CredentialStore interface {
	GetCredentialByCode(code string) (*model.AccessCredential, error)
	GetCredential(id string) (*model.AccessCredential, error)
	ActivateCredential(id string, activatedAt, expiresAt time.Time) (*model.AccessCredential, bool, error)
	CreateCredentialUsage(usage *model.CredentialUsage) error
}

type SessionStore interface {
	GetSessionByCredentialID(credentialID string) (*model.PlaySession, error)
	GetSession(id string) (*model.PlaySession, error)
	CreateSession(session *model.PlaySession) (*model.PlaySession, error)
	TouchSession(id string, at time.Time) error
	UpdateSessionProgress(id string, cols map[string]interface{}) error
}

type ContentStore interface {
	GetGame(id string) (*model.Game, error)
	GetPuzzlesByGame(gameID string) ([]model.Puzzle, error)
	GetScreensByGame(gameID string) ([]model.InterstitialScreen, error)
}

// ContentProvider is the cached read surface the engine uses during play,
// including the player-safe response mapping.
type ContentProvider interface {
	Game(id string) (*model.Game, error)
	Puzzles(gameID string) ([]model.Puzzle, error)
	Screens(gameID string) ([]model.InterstitialScreen, error)
	MapGameToResponse(game *model.Game, puzzleCount int) dto.GameResponse
	MapPuzzleToResponse(puzzle *model.Puzzle) dto.PuzzleResponse
	MapPuzzlesToResponse(puzzles []model.Puzzle) []dto.PuzzleResponse
	MapScreenToResponse(screen *model.InterstitialScreen) dto.ScreenResponse
}
