// services/content.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
	log "github.com/sirupsen/logrus"
)

// ContentService is the read surface for game content during play. Content
// is immutable from the engine's point of view, so reads are cached in
// Redis with a short TTL and invalidated on admin writes.
type ContentService struct {
	appContext.DefaultService

	sqlSvc   *PostgresService
	redisSvc *RedisService
	mediaSvc *MediaService
}

const CONTENT_SVC = "content_svc"

const contentCacheTTL = 5 * time.Minute

func (svc ContentService) Id() string {
	return CONTENT_SVC
}

func (svc *ContentService) Configure(ctx *appContext.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *ContentService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.redisSvc = svc.Service(REDIS_SVC).(*RedisService)
	svc.mediaSvc = svc.Service(MEDIA_SVC).(*MediaService)
	return nil
}

func puzzleCacheKey(gameID string) string {
	return fmt.Sprintf("content:puzzles:%s", gameID)
}

func screenCacheKey(gameID string) string {
	return fmt.Sprintf("content:screens:%s", gameID)
}

func (svc *ContentService) Game(id string) (*model.Game, error) {
	return svc.sqlSvc.GetGame(id)
}

// Puzzles returns the game's puzzles in sequence order.
func (svc *ContentService) Puzzles(gameID string) ([]model.Puzzle, error) {
	var puzzles []model.Puzzle
	if svc.redisSvc != nil {
		if hit, err := svc.redisSvc.GetJSON(context.Background(), puzzleCacheKey(gameID), &puzzles); err == nil && hit {
			return puzzles, nil
		}
	}

	puzzles, err := svc.sqlSvc.GetPuzzlesByGame(gameID)
	if err != nil {
		return nil, err
	}

	svc.cache(puzzleCacheKey(gameID), puzzles)
	return puzzles, nil
}

// Screens returns the game's interstitial screens in sequence order.
func (svc *ContentService) Screens(gameID string) ([]model.InterstitialScreen, error) {
	var screens []model.InterstitialScreen
	if svc.redisSvc != nil {
		if hit, err := svc.redisSvc.GetJSON(context.Background(), screenCacheKey(gameID), &screens); err == nil && hit {
			return screens, nil
		}
	}

	screens, err := svc.sqlSvc.GetScreensByGame(gameID)
	if err != nil {
		return nil, err
	}

	svc.cache(screenCacheKey(gameID), screens)
	return screens, nil
}

func (svc *ContentService) cache(key string, value interface{}) {
	if svc.redisSvc == nil {
		return
	}
	if err := svc.redisSvc.Set(context.Background(), key, value, contentCacheTTL); err != nil {
		log.Printf("Failed to cache %s: %v", key, err)
	}
}

// InvalidateGame drops the cached content after an admin write.
func (svc *ContentService) InvalidateGame(gameID string) {
	if svc.redisSvc == nil {
		return
	}
	if err := svc.redisSvc.Delete(context.Background(), puzzleCacheKey(gameID), screenCacheKey(gameID)); err != nil {
		log.Printf("Failed to invalidate content cache for game %s: %v", gameID, err)
	}
}

// ==================== RESPONSE MAPPING ====================

func (svc *ContentService) MapGameToResponse(game *model.Game, puzzleCount int) dto.GameResponse {
	return dto.GameResponse{
		ID:          game.ID,
		Title:       game.Title,
		Description: game.Description,
		Theme:       game.Theme,
		PuzzleCount: puzzleCount,
	}
}

// MapPuzzleToResponse strips the canonical answer and the clue texts; the
// player only ever learns clue count here, the texts come one at a time
// through the play view.
func (svc *ContentService) MapPuzzleToResponse(puzzle *model.Puzzle) dto.PuzzleResponse {
	var options []string
	if puzzle.Options != nil {
		if err := json.Unmarshal(puzzle.Options, &options); err != nil {
			log.Printf("Failed to unmarshal options for puzzle %s: %v", puzzle.ID, err)
			options = nil
		}
	}

	return dto.PuzzleResponse{
		ID:         puzzle.ID,
		GameID:     puzzle.GameID,
		Seq:        puzzle.Seq,
		Title:      puzzle.Title,
		Story:      puzzle.Story,
		Challenge:  puzzle.Challenge,
		MediaURL:   svc.resolveMedia(puzzle.MediaKey),
		AnswerType: puzzle.AnswerType,
		Options:    options,
		TotalClues: len(puzzle.DecodedClues()),
	}
}

func (svc *ContentService) MapScreenToResponse(screen *model.InterstitialScreen) dto.ScreenResponse {
	return dto.ScreenResponse{
		ID:       screen.ID,
		GameID:   screen.GameID,
		Seq:      screen.Seq,
		Tag:      screen.Tag,
		Title:    screen.Title,
		Body:     screen.Body,
		MediaURL: svc.resolveMedia(screen.MediaKey),
	}
}

func (svc *ContentService) MapPuzzlesToResponse(puzzles []model.Puzzle) []dto.PuzzleResponse {
	responses := make([]dto.PuzzleResponse, len(puzzles))
	for i := range puzzles {
		responses[i] = svc.MapPuzzleToResponse(&puzzles[i])
	}
	return responses
}

// resolveMedia degrades to an empty URL; missing media never blocks play.
func (svc *ContentService) resolveMedia(key string) string {
	if key == "" || svc.mediaSvc == nil {
		return ""
	}
	url, err := svc.mediaSvc.ResolveMediaURL(key)
	if err != nil {
		log.Printf("Failed to resolve media %s: %v", key, err)
		return ""
	}
	return url
}

// ==================== ADMIN METHODS ====================

func (svc *ContentService) CreateGame(req dto.CreateGameRequest) (*model.Game, error) {
	game := &model.Game{
		Title:       req.Title,
		Description: req.Description,
		Theme:       req.Theme,
		IsActive:    true,
	}

	return svc.sqlSvc.CreateGame(game)
}

func (svc *ContentService) CreatePuzzle(req dto.CreatePuzzleRequest) (*model.Puzzle, error) {
	if _, err := svc.sqlSvc.GetGame(req.GameID); err != nil {
		return nil, shared.NewBadRequestError(err, "Game not found")
	}

	var options json.RawMessage
	if len(req.Options) > 0 {
		options, _ = json.Marshal(req.Options)
	}
	clues := req.Clues
	if clues == nil {
		clues = []string{}
	}
	cluesJSON, err := json.Marshal(clues)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal clues: %v", err)
	}

	puzzle := &model.Puzzle{
		GameID:     req.GameID,
		Seq:        req.Seq,
		Title:      req.Title,
		Story:      req.Story,
		Challenge:  req.Challenge,
		MediaKey:   req.MediaKey,
		AnswerType: req.AnswerType,
		Options:    options,
		Answer:     req.Answer,
		Clues:      cluesJSON,
	}

	created, err := svc.sqlSvc.CreatePuzzle(puzzle)
	if err != nil {
		return nil, err
	}

	svc.InvalidateGame(req.GameID)
	return created, nil
}

func (svc *ContentService) CreateScreen(req dto.CreateScreenRequest) (*model.InterstitialScreen, error) {
	if _, err := svc.sqlSvc.GetGame(req.GameID); err != nil {
		return nil, shared.NewBadRequestError(err, "Game not found")
	}

	screen := &model.InterstitialScreen{
		GameID:   req.GameID,
		Seq:      req.Seq,
		Tag:      req.Tag,
		Title:    req.Title,
		Body:     req.Body,
		MediaKey: req.MediaKey,
	}

	created, err := svc.sqlSvc.CreateScreen(screen)
	if err != nil {
		return nil, err
	}

	svc.InvalidateGame(req.GameID)
	return created, nil
}
