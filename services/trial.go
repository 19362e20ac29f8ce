package services

import (
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/shared"
)

// TrialService runs ephemeral demo playthroughs. A trial run shares the
// whole play loop with real runs but its progress lives only in memory:
// nothing is written to the database and a restart forgets every run.
type TrialService struct {
	context.DefaultService

	progressionSvc *ProgressionService
	contentSvc     ContentProvider
	credStore      CredentialStore
	clock          shared.Clock

	mu   sync.Mutex
	runs map[string]*trialRun

	stopCleanup chan struct{}
}

type trialRun struct {
	ectx      *EngineContext
	lastTouch time.Time
}

const TRIAL_SVC = "trial_svc"

// trialIdleTTL is how long an untouched run survives before the janitor
// collects it.
const trialIdleTTL = 2 * time.Hour

func (svc TrialService) Id() string {
	return TRIAL_SVC
}

func (svc *TrialService) Configure(ctx *context.Context) error {
	svc.runs = make(map[string]*trialRun)
	svc.clock = shared.NewClock()
	svc.stopCleanup = make(chan struct{})
	return svc.DefaultService.Configure(ctx)
}

func (svc *TrialService) Start() error {
	svc.progressionSvc = svc.Service(PROGRESSION_SVC).(*ProgressionService)
	svc.contentSvc = svc.Service(CONTENT_SVC).(*ContentService)
	svc.credStore = svc.Service(POSTGRES_SVC).(*PostgresService)

	go svc.cleanupLoop()
	return nil
}

func (svc *TrialService) Shutdown() {
	close(svc.stopCleanup)
}

// StartRun opens a fresh trial run. With no game given, the run targets
// whatever game the trial sentinel code is bound to.
func (svc *TrialService) StartRun(req dto.StartTrialRequest) (*dto.StartTrialResponse, error) {
	gameID := req.GameID
	if gameID == "" {
		cred, err := svc.credStore.GetCredentialByCode(shared.TrialCode)
		if err != nil || cred == nil {
			return nil, shared.NewNotFoundError("No trial game is configured")
		}
		gameID = cred.GameID
	}

	game, err := svc.contentSvc.Game(gameID)
	if err != nil {
		return nil, shared.NewNotFoundError("Game not found")
	}

	puzzles, err := svc.contentSvc.Puzzles(gameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	if len(puzzles) == 0 {
		return nil, shared.NewNoPuzzlesError(gameID)
	}

	runID := uuid.New().String()
	ectx := &EngineContext{
		CredentialID: "trial:" + runID,
		GameID:       gameID,
		SessionID:    runID,
		Sentinel:     true,
		Store:        newTrialProgress(runID, gameID),
	}

	svc.mu.Lock()
	svc.runs[runID] = &trialRun{ectx: ectx, lastTouch: svc.clock.Now()}
	svc.mu.Unlock()

	trialRunsTotal.Inc()

	return &dto.StartTrialResponse{
		RunID:   runID,
		Game:    svc.contentSvc.MapGameToResponse(game, len(puzzles)),
		Puzzles: svc.contentSvc.MapPuzzlesToResponse(puzzles),
	}, nil
}

func (svc *TrialService) View(runID string) (*dto.ViewResponse, error) {
	ectx, err := svc.run(runID)
	if err != nil {
		return nil, err
	}
	return svc.progressionSvc.ViewFor(ectx)
}

func (svc *TrialService) Submit(runID string, req dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error) {
	ectx, err := svc.run(runID)
	if err != nil {
		return nil, err
	}
	return svc.progressionSvc.SubmitFor(ectx, req)
}

func (svc *TrialService) AdvanceInterstitial(runID string) (*dto.ViewResponse, error) {
	ectx, err := svc.run(runID)
	if err != nil {
		return nil, err
	}
	return svc.progressionSvc.AdvanceInterstitialFor(ectx)
}

func (svc *TrialService) Advance(runID string) (*dto.ViewResponse, error) {
	ectx, err := svc.run(runID)
	if err != nil {
		return nil, err
	}
	return svc.progressionSvc.AdvanceFor(ectx)
}

// Reset rewinds a run to the beginning without allocating a new run id.
func (svc *TrialService) Reset(runID string) error {
	ectx, err := svc.run(runID)
	if err != nil {
		return err
	}

	ectx.CancelAdvance()
	ectx.SetQueue(nil)
	ectx.Store.(*trialProgress).reset()
	return nil
}

// EndRun discards the run outright.
func (svc *TrialService) EndRun(runID string) {
	svc.mu.Lock()
	run, ok := svc.runs[runID]
	delete(svc.runs, runID)
	svc.mu.Unlock()

	if ok {
		run.ectx.CancelAdvance()
	}
}

func (svc *TrialService) run(runID string) (*EngineContext, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	run, ok := svc.runs[runID]
	if !ok {
		return nil, shared.NewNotFoundError("Trial run not found")
	}
	run.lastTouch = svc.clock.Now()
	return run.ectx, nil
}

func (svc *TrialService) cleanupLoop() {
	ticker := time.NewTicker(15 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.collectIdle()
		case <-svc.stopCleanup:
			return
		}
	}
}

func (svc *TrialService) collectIdle() {
	cutoff := svc.clock.Now().Add(-trialIdleTTL)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for id, run := range svc.runs {
		if run.lastTouch.Before(cutoff) {
			run.ectx.CancelAdvance()
			delete(svc.runs, id)
			log.Printf("Collected idle trial run %s", id)
		}
	}
}

// trialProgress is the in-memory mirror of a session row. It satisfies the
// same store contract the persisted path uses, which is the whole trick:
// the play loop cannot tell a trial from a purchase.
type trialProgress struct {
	mu sync.Mutex

	runID           string
	gameID          string
	currentPuzzleID string
	completed       []string
	viewed          []string
}

func newTrialProgress(runID, gameID string) *trialProgress {
	return &trialProgress{runID: runID, gameID: gameID}
}

func (p *trialProgress) Snapshot() (*ProgressSnapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	snap := &ProgressSnapshot{
		SessionID:       p.runID,
		GameID:          p.gameID,
		CurrentPuzzleID: p.currentPuzzleID,
		Completed:       make([]string, len(p.completed)),
		ViewedScreens:   make([]string, len(p.viewed)),
	}
	copy(snap.Completed, p.completed)
	copy(snap.ViewedScreens, p.viewed)
	return snap, nil
}

func (p *trialProgress) MarkViewed(screenID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.viewed {
		if id == screenID {
			return nil
		}
	}
	p.viewed = append(p.viewed, screenID)
	return nil
}

func (p *trialProgress) CompletePuzzle(puzzleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, id := range p.completed {
		if id == puzzleID {
			return nil
		}
	}
	p.completed = append(p.completed, puzzleID)
	p.currentPuzzleID = ""
	return nil
}

func (p *trialProgress) SetCurrentPuzzle(puzzleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentPuzzleID = puzzleID
	return nil
}

func (p *trialProgress) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.currentPuzzleID = ""
	p.completed = nil
	p.viewed = nil
}
