package handlers

import (
	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/model"
)

type CredentialServiceInterface interface {
	Redeem(req dto.RedeemRequest) (*dto.RedeemResponse, error)
	CreateCredential(req dto.CreateCredentialRequest) (*model.AccessCredential, error)
	ListCredentials(gameID string) ([]dto.CredentialListItem, error)
}

type ProgressionServiceInterface interface {
	CurrentView(credentialID string) (*dto.ViewResponse, error)
	SubmitAnswer(credentialID string, req dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error)
	AdvanceInterstitial(credentialID string) (*dto.ViewResponse, error)
	Advance(credentialID string) (*dto.ViewResponse, error)
	Logout(credentialID string)
}

type SessionServiceInterface interface {
	Info(credentialID string) (*dto.SessionResponse, error)
}

type TrialServiceInterface interface {
	StartRun(req dto.StartTrialRequest) (*dto.StartTrialResponse, error)
	View(runID string) (*dto.ViewResponse, error)
	Submit(runID string, req dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error)
	AdvanceInterstitial(runID string) (*dto.ViewResponse, error)
	Advance(runID string) (*dto.ViewResponse, error)
	Reset(runID string) error
	EndRun(runID string)
}

type ContentServiceInterface interface {
	CreateGame(req dto.CreateGameRequest) (*model.Game, error)
	CreatePuzzle(req dto.CreatePuzzleRequest) (*model.Puzzle, error)
	CreateScreen(req dto.CreateScreenRequest) (*model.InterstitialScreen, error)
}
