package services

import (
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
)

// ProgressSnapshot is a point-in-time read of a run's durable progress.
type ProgressSnapshot struct {
	SessionID       string
	GameID          string
	CurrentPuzzleID string
	Completed       []string
	ViewedScreens   []string
}

// ProgressStore is the durable side of a run. The persisted implementation
// writes through to the session row; the trial implementation keeps
// everything in memory and discards it when the run ends.
type ProgressStore interface {
	Snapshot() (*ProgressSnapshot, error)
	MarkViewed(screenID string) error
	CompletePuzzle(puzzleID string) error
	SetCurrentPuzzle(puzzleID string) error
}

// ProgressionService is the play loop: what to show, how to judge an
// answer, when to move on. All operations work against an EngineContext so
// persisted and trial runs share the same rules.
type ProgressionService struct {
	context.DefaultService

	contentSvc      ContentProvider
	sessionSvc      *SessionService
	interstitialSvc *InterstitialService
	watchdogSvc     *WatchdogService
	credStore       CredentialStore
	clock           shared.Clock
}

const PROGRESSION_SVC = "progression_svc"

// autoAdvanceDelay is how long a correct answer lingers before the run
// moves to the next view on its own.
const autoAdvanceDelay = 3 * time.Second

func (svc ProgressionService) Id() string {
	return PROGRESSION_SVC
}

func (svc *ProgressionService) Configure(ctx *context.Context) error {
	svc.clock = shared.NewClock()
	return svc.DefaultService.Configure(ctx)
}

func (svc *ProgressionService) Start() error {
	svc.contentSvc = svc.Service(CONTENT_SVC).(*ContentService)
	svc.sessionSvc = svc.Service(SESSION_SVC).(*SessionService)
	svc.interstitialSvc = svc.Service(INTERSTITIAL_SVC).(*InterstitialService)
	svc.watchdogSvc = svc.Service(WATCHDOG_SVC).(*WatchdogService)
	svc.credStore = svc.Service(POSTGRES_SVC).(*PostgresService)
	return nil
}

// CurrentView returns what the credential's player should see right now.
func (svc *ProgressionService) CurrentView(credentialID string) (*dto.ViewResponse, error) {
	ectx, err := svc.ensureContext(credentialID)
	if err != nil {
		return nil, err
	}
	return svc.ViewFor(ectx)
}

// SubmitAnswer judges an answer against the active puzzle.
func (svc *ProgressionService) SubmitAnswer(credentialID string, req dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error) {
	ectx, err := svc.ensureContext(credentialID)
	if err != nil {
		return nil, err
	}
	return svc.SubmitFor(ectx, req)
}

// AdvanceInterstitial acknowledges the head of the raised screen queue.
func (svc *ProgressionService) AdvanceInterstitial(credentialID string) (*dto.ViewResponse, error) {
	ectx, err := svc.ensureContext(credentialID)
	if err != nil {
		return nil, err
	}
	return svc.AdvanceInterstitialFor(ectx)
}

// Advance skips the post-answer linger and moves on immediately.
func (svc *ProgressionService) Advance(credentialID string) (*dto.ViewResponse, error) {
	ectx, err := svc.ensureContext(credentialID)
	if err != nil {
		return nil, err
	}
	return svc.AdvanceFor(ectx)
}

// Logout drops the transient engine state. Durable progress survives and
// the same code resumes the run later.
func (svc *ProgressionService) Logout(credentialID string) {
	svc.sessionSvc.Teardown(credentialID)
	svc.watchdogSvc.Disarm(credentialID)
}

// ensureContext resolves the live engine context for a credential,
// rebuilding it from the session row after a restart. Expiry is checked on
// every call: a token can outlive its credential's window by a few seconds
// of clock skew, the window is what counts.
func (svc *ProgressionService) ensureContext(credentialID string) (*EngineContext, error) {
	cred, err := svc.credStore.GetCredential(credentialID)
	if err != nil {
		if isNotFound(err) {
			return nil, shared.NewInvalidCodeError()
		}
		return nil, shared.NewPersistenceError(err)
	}

	sentinel := cred.Code == shared.TrialCode
	if !sentinel && cred.ExpiredAt(svc.clock.Now()) {
		svc.watchdogSvc.Expire(credentialID)
		return nil, shared.NewExpiredError()
	}

	if ectx, ok := svc.sessionSvc.Context(credentialID); ok {
		return ectx, nil
	}

	puzzles, err := svc.contentSvc.Puzzles(cred.GameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	firstID := ""
	if first := firstIncomplete(nil, puzzles); first != nil {
		firstID = first.ID
	}

	session, err := svc.sessionSvc.ResolveSession(cred.ID, cred.GameID, firstID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	return svc.sessionSvc.Register(cred, session), nil
}

// ViewFor computes the current view for a run. A raised interstitial queue
// is consumed head-first before the tier rules are consulted again.
func (svc *ProgressionService) ViewFor(ectx *EngineContext) (*dto.ViewResponse, error) {
	snap, err := ectx.Store.Snapshot()
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}

	puzzles, err := svc.contentSvc.Puzzles(ectx.GameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	if len(puzzles) == 0 {
		return nil, shared.NewNoPuzzlesError(ectx.GameID)
	}

	screens, err := svc.contentSvc.Screens(ectx.GameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}

	current, done := resolveCurrentPuzzle(snap, puzzles)
	if current != nil && snap.CurrentPuzzleID != current.ID {
		if err := ectx.Store.SetCurrentPuzzle(current.ID); err != nil {
			log.Printf("Failed to pin current puzzle: %v", err)
		}
	}

	if screen := svc.headScreen(ectx, screens); screen != nil {
		resp := svc.contentSvc.MapScreenToResponse(screen)
		return &dto.ViewResponse{
			Type:         shared.ViewTypeInterstitial,
			Interstitial: &resp,
			Completed:    done,
		}, nil
	}

	currentID := ""
	if current != nil {
		currentID = current.ID
	}
	if owed := svc.interstitialSvc.Pending(snap.ViewedScreens, currentID, done, screens); len(owed) > 0 {
		ids := make([]string, len(owed))
		for i, s := range owed {
			ids[i] = s.ID
		}
		ectx.SetQueue(ids)

		resp := svc.contentSvc.MapScreenToResponse(&owed[0])
		return &dto.ViewResponse{
			Type:         shared.ViewTypeInterstitial,
			Interstitial: &resp,
			Completed:    done,
		}, nil
	}

	if done {
		return &dto.ViewResponse{
			Type:      shared.ViewTypeCompletion,
			Completed: true,
		}, nil
	}

	resp := svc.contentSvc.MapPuzzleToResponse(current)
	return &dto.ViewResponse{
		Type:          shared.ViewTypePuzzle,
		Puzzle:        &resp,
		RevealedClues: revealedClues(current, ectx.CluesFor(current.ID)),
	}, nil
}

// SubmitFor judges an answer. Wrong answers buy one more clue each, capped
// at the puzzle's clue count; a correct answer completes the puzzle and
// arms the auto-advance.
func (svc *ProgressionService) SubmitFor(ectx *EngineContext, req dto.SubmitAnswerRequest) (*dto.SubmitAnswerResponse, error) {
	snap, err := ectx.Store.Snapshot()
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}

	if len(ectx.Queue()) > 0 {
		return nil, shared.NewNotReadyError("An interstitial screen must be acknowledged first")
	}

	puzzles, err := svc.contentSvc.Puzzles(ectx.GameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	if len(puzzles) == 0 {
		return nil, shared.NewNoPuzzlesError(ectx.GameID)
	}

	for _, id := range snap.Completed {
		if id == req.PuzzleID {
			// Duplicate submission after completion is a no-op.
			return &dto.SubmitAnswerResponse{
				Correct:   true,
				Completed: completedAll(snap.Completed, puzzles),
			}, nil
		}
	}

	current, done := resolveCurrentPuzzle(snap, puzzles)

	// Screens owed for the current tier gate the answer even when no
	// queue was raised yet, as on a context rebuilt after a restart.
	screens, err := svc.contentSvc.Screens(ectx.GameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	currentID := ""
	if current != nil {
		currentID = current.ID
	}
	if len(svc.interstitialSvc.Pending(snap.ViewedScreens, currentID, done, screens)) > 0 {
		return nil, shared.NewNotReadyError("An interstitial screen must be acknowledged first")
	}

	if done {
		return nil, shared.NewNotReadyError("The adventure is already complete")
	}
	if current.ID != req.PuzzleID {
		return nil, shared.NewNotReadyError("That puzzle is not the active one")
	}

	if !answerMatches(current, req.Answer) {
		answersTotal.WithLabelValues("incorrect").Inc()
		clues := current.DecodedClues()
		count := ectx.RevealClue(current.ID, len(clues))
		return &dto.SubmitAnswerResponse{
			Correct:       false,
			RevealedClues: clues[:count],
		}, nil
	}

	if err := ectx.Store.CompletePuzzle(current.ID); err != nil {
		return nil, shared.NewPersistenceError(err)
	}

	answersTotal.WithLabelValues("correct").Inc()

	completed := append(snap.Completed, current.ID)
	done = completedAll(completed, puzzles)
	if done {
		completionsTotal.Inc()
	}

	resp := &dto.SubmitAnswerResponse{
		Correct:   true,
		Completed: done,
	}

	if !done {
		advanceAt := svc.clock.Now().Add(autoAdvanceDelay)
		resp.AutoAdvanceAt = &advanceAt
		svc.scheduleAdvance(ectx, completed, puzzles)
	}

	return resp, nil
}

// AdvanceInterstitialFor marks the head screen viewed and pops it. Only
// when the raised queue drains does the view computation run tier selection
// again.
func (svc *ProgressionService) AdvanceInterstitialFor(ectx *EngineContext) (*dto.ViewResponse, error) {
	head, ok := ectx.PopQueue()
	if !ok {
		return nil, shared.NewNotReadyError("No interstitial screen is waiting")
	}

	if err := ectx.Store.MarkViewed(head); err != nil {
		return nil, shared.NewPersistenceError(err)
	}

	return svc.ViewFor(ectx)
}

// AdvanceFor cancels a pending auto-advance and moves on immediately.
func (svc *ProgressionService) AdvanceFor(ectx *EngineContext) (*dto.ViewResponse, error) {
	ectx.CancelAdvance()

	snap, err := ectx.Store.Snapshot()
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}

	puzzles, err := svc.contentSvc.Puzzles(ectx.GameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	if next, _ := resolveCurrentPuzzle(snap, puzzles); next != nil {
		if err := ectx.Store.SetCurrentPuzzle(next.ID); err != nil {
			return nil, shared.NewPersistenceError(err)
		}
	}

	return svc.ViewFor(ectx)
}

// scheduleAdvance arms the post-answer timer that pins the next puzzle.
func (svc *ProgressionService) scheduleAdvance(ectx *EngineContext, completed []string, puzzles []model.Puzzle) {
	next := firstIncomplete(completed, puzzles)
	if next == nil {
		return
	}
	nextID := next.ID

	ectx.ScheduleAdvance(svc.clock, autoAdvanceDelay, func() {
		if err := ectx.Store.SetCurrentPuzzle(nextID); err != nil {
			log.Printf("Auto-advance failed for session %s: %v", ectx.SessionID, err)
		}
	})
}

// headScreen resolves the raised queue's head, discarding ids whose screen
// no longer exists.
func (svc *ProgressionService) headScreen(ectx *EngineContext, screens []model.InterstitialScreen) *model.InterstitialScreen {
	for {
		queue := ectx.Queue()
		if len(queue) == 0 {
			return nil
		}
		for i := range screens {
			if screens[i].ID == queue[0] {
				return &screens[i]
			}
		}
		ectx.PopQueue()
	}
}

// resolveCurrentPuzzle applies the three-step rule: the pinned puzzle if it
// is still real and incomplete, else the first incomplete puzzle in
// sequence order, else the run is done.
func resolveCurrentPuzzle(snap *ProgressSnapshot, puzzles []model.Puzzle) (*model.Puzzle, bool) {
	completed := make(map[string]bool, len(snap.Completed))
	for _, id := range snap.Completed {
		completed[id] = true
	}

	if snap.CurrentPuzzleID != "" && !completed[snap.CurrentPuzzleID] {
		for i := range puzzles {
			if puzzles[i].ID == snap.CurrentPuzzleID {
				return &puzzles[i], false
			}
		}
	}

	for i := range puzzles {
		if !completed[puzzles[i].ID] {
			return &puzzles[i], false
		}
	}

	return nil, true
}

func firstIncomplete(completed []string, puzzles []model.Puzzle) *model.Puzzle {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	for i := range puzzles {
		if !done[puzzles[i].ID] {
			return &puzzles[i]
		}
	}
	return nil
}

func completedAll(completed []string, puzzles []model.Puzzle) bool {
	return firstIncomplete(completed, puzzles) == nil
}

func revealedClues(puzzle *model.Puzzle, count int) []string {
	clues := puzzle.DecodedClues()
	if count > len(clues) {
		count = len(clues)
	}
	if count == 0 {
		return nil
	}
	return clues[:count]
}

// answerMatches normalizes both sides before comparing: surrounding
// whitespace and letter case never cost the player a clue, interior
// whitespace does.
func answerMatches(puzzle *model.Puzzle, answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(puzzle.Answer))
}
