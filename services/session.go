package services

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
)

// SessionService owns the durable play sessions and the in-memory engine
// contexts layered on top of them. A session is permanent per credential;
// a context is rebuilt on demand after a restart, so losing it only resets
// the transient state (revealed clues, raised interstitial queue, pending
// auto-advance).
type SessionService struct {
	context.DefaultService

	sqlSvc SessionStore
	clock  shared.Clock

	mu       sync.RWMutex
	contexts map[string]*EngineContext
}

const SESSION_SVC = "session_svc"

func (svc SessionService) Id() string {
	return SESSION_SVC
}

func (svc *SessionService) Configure(ctx *context.Context) error {
	svc.contexts = make(map[string]*EngineContext)
	svc.clock = shared.NewClock()
	return svc.DefaultService.Configure(ctx)
}

func (svc *SessionService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	return nil
}

// ResolveSession finds the credential's session or creates it pointed at
// the run's first puzzle. Creation can race with another device entering
// the same code; the store converges both writers onto the single
// surviving row.
func (svc *SessionService) ResolveSession(credentialID, gameID, firstPuzzleID string) (*model.PlaySession, error) {
	session, err := svc.sqlSvc.GetSessionByCredentialID(credentialID)
	if err == nil && session != nil {
		if err := svc.sqlSvc.TouchSession(session.ID, svc.clock.Now()); err != nil {
			log.Printf("Failed to update session activity: %v", err)
		}
		return session, nil
	}

	now := svc.clock.Now()
	id, _ := uuid.NewV7()
	session = &model.PlaySession{
		ID:               id.String(),
		CredentialID:     credentialID,
		GameID:           gameID,
		CompletedPuzzles: json.RawMessage("[]"),
		ExtensionData:    json.RawMessage("{}"),
		LastActivity:     now,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if firstPuzzleID != "" {
		session.CurrentPuzzleID = &firstPuzzleID
	}

	return svc.sqlSvc.CreateSession(session)
}

// Register builds (or returns) the engine context for a redeemed credential.
func (svc *SessionService) Register(cred *model.AccessCredential, session *model.PlaySession) *EngineContext {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if ectx, ok := svc.contexts[cred.ID]; ok {
		return ectx
	}

	ectx := &EngineContext{
		CredentialID: cred.ID,
		GameID:       cred.GameID,
		SessionID:    session.ID,
		Sentinel:     cred.Code == shared.TrialCode,
		Store: &persistedProgress{
			sqlSvc:    svc.sqlSvc,
			sessionID: session.ID,
		},
	}
	svc.contexts[cred.ID] = ectx
	return ectx
}

// Context returns the live engine context for a credential, if any.
func (svc *SessionService) Context(credentialID string) (*EngineContext, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	ectx, ok := svc.contexts[credentialID]
	return ectx, ok
}

// Info returns the durable progress for a credential's session.
func (svc *SessionService) Info(credentialID string) (*dto.SessionResponse, error) {
	session, err := svc.sqlSvc.GetSessionByCredentialID(credentialID)
	if err != nil {
		return nil, shared.NewNotFoundError("Session not found")
	}

	ext := session.DecodedExtension()
	return &dto.SessionResponse{
		ID:               session.ID,
		CredentialID:     session.CredentialID,
		GameID:           session.GameID,
		CurrentPuzzleID:  session.CurrentPuzzleID,
		CompletedPuzzles: session.DecodedCompleted(),
		ViewedScreens:    ext.ViewedScreens,
		LastActivity:     session.LastActivity,
		CreatedAt:        session.CreatedAt,
	}, nil
}

// Teardown drops the engine context and cancels any pending auto-advance.
// Durable progress is untouched; re-entry resumes from the session row.
func (svc *SessionService) Teardown(credentialID string) {
	svc.mu.Lock()
	ectx, ok := svc.contexts[credentialID]
	delete(svc.contexts, credentialID)
	svc.mu.Unlock()

	if ok {
		ectx.CancelAdvance()
	}
}

// EngineContext is the transient per-credential play state. The durable
// side lives behind Store; everything here can be rebuilt from it except
// clue disclosure and a raised interstitial queue, which intentionally
// reset when the context is lost.
type EngineContext struct {
	CredentialID string
	GameID       string
	SessionID    string
	Sentinel     bool
	Store        ProgressStore

	mu            sync.Mutex
	cluesRevealed int
	cluePuzzleID  string
	queue         []string
	advanceTimer  shared.Timer
}

// CluesFor returns how many clues are disclosed for the puzzle. The counter
// is scoped to a single puzzle; moving on discards it.
func (e *EngineContext) CluesFor(puzzleID string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cluePuzzleID != puzzleID {
		return 0
	}
	return e.cluesRevealed
}

// RevealClue bumps the disclosure counter for the puzzle, capped at total.
func (e *EngineContext) RevealClue(puzzleID string, total int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cluePuzzleID != puzzleID {
		e.cluePuzzleID = puzzleID
		e.cluesRevealed = 0
	}
	if e.cluesRevealed < total {
		e.cluesRevealed++
	}
	return e.cluesRevealed
}

// Queue returns the raised interstitial queue, head first.
func (e *EngineContext) Queue() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.queue))
	copy(out, e.queue)
	return out
}

func (e *EngineContext) SetQueue(screenIDs []string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = screenIDs
}

// PopQueue removes and returns the head of the raised queue.
func (e *EngineContext) PopQueue() (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return "", false
	}
	head := e.queue[0]
	e.queue = e.queue[1:]
	return head, true
}

// ScheduleAdvance arms a one-shot advance, replacing any pending one.
func (e *EngineContext) ScheduleAdvance(clock shared.Clock, d time.Duration, f func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.advanceTimer != nil {
		e.advanceTimer.Stop()
	}
	e.advanceTimer = clock.AfterFunc(d, f)
}

// CancelAdvance stops a pending advance, if one is armed. Reports whether a
// timer was actually canceled before firing.
func (e *EngineContext) CancelAdvance() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.advanceTimer == nil {
		return false
	}
	stopped := e.advanceTimer.Stop()
	e.advanceTimer = nil
	return stopped
}

// persistedProgress writes progress through to the session row. Every
// mutation re-reads the freshest row and merges, so two tabs on the same
// credential never clobber each other's columns.
type persistedProgress struct {
	sqlSvc SessionStore

	sessionID string
}

func (p *persistedProgress) Snapshot() (*ProgressSnapshot, error) {
	session, err := p.sqlSvc.GetSession(p.sessionID)
	if err != nil {
		return nil, err
	}

	snap := &ProgressSnapshot{
		SessionID:     session.ID,
		GameID:        session.GameID,
		Completed:     session.DecodedCompleted(),
		ViewedScreens: session.DecodedExtension().ViewedScreens,
	}
	if session.CurrentPuzzleID != nil {
		snap.CurrentPuzzleID = *session.CurrentPuzzleID
	}
	return snap, nil
}

func (p *persistedProgress) MarkViewed(screenID string) error {
	session, err := p.sqlSvc.GetSession(p.sessionID)
	if err != nil {
		return err
	}

	ext := session.DecodedExtension()
	for _, id := range ext.ViewedScreens {
		if id == screenID {
			return nil
		}
	}
	ext.ViewedScreens = append(ext.ViewedScreens, screenID)

	raw, err := json.Marshal(ext)
	if err != nil {
		return err
	}
	return p.sqlSvc.UpdateSessionProgress(p.sessionID, map[string]interface{}{
		"extension_data": json.RawMessage(raw),
	})
}

func (p *persistedProgress) CompletePuzzle(puzzleID string) error {
	session, err := p.sqlSvc.GetSession(p.sessionID)
	if err != nil {
		return err
	}

	completed := session.DecodedCompleted()
	for _, id := range completed {
		if id == puzzleID {
			return nil
		}
	}
	completed = append(completed, puzzleID)

	raw, err := json.Marshal(completed)
	if err != nil {
		return err
	}
	return p.sqlSvc.UpdateSessionProgress(p.sessionID, map[string]interface{}{
		"completed_puzzles": json.RawMessage(raw),
		"current_puzzle_id": nil,
	})
}

func (p *persistedProgress) SetCurrentPuzzle(puzzleID string) error {
	var val interface{}
	if puzzleID != "" {
		val = puzzleID
	}
	return p.sqlSvc.UpdateSessionProgress(p.sessionID, map[string]interface{}{
		"current_puzzle_id": val,
	})
}
