package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/shared"
)

// viewPastIntro acknowledges interstitials until a non-interstitial view
// comes back.
func viewPastIntro(t *testing.T, svc *ProgressionService, ectx *EngineContext) *dto.ViewResponse {
	t.Helper()

	view, err := svc.ViewFor(ectx)
	require.NoError(t, err)
	for view.Type == shared.ViewTypeInterstitial {
		view, err = svc.AdvanceInterstitialFor(ectx)
		require.NoError(t, err)
	}
	return view
}

func TestViewStartsWithIntro(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")

	view, err := svc.ViewFor(ectx)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s0", view.Interstitial.ID)
}

func TestAcknowledgeIntroLeadsToFirstPuzzle(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")

	_, err := svc.ViewFor(ectx)
	require.NoError(t, err)

	view, err := svc.AdvanceInterstitialFor(ectx)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypePuzzle, view.Type)
	assert.Equal(t, "p1", view.Puzzle.ID)
	assert.Empty(t, view.RevealedClues)
}

func TestAdvanceInterstitialWithoutQueueFails(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")

	_, err := svc.AdvanceInterstitialFor(ectx)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNotReady))
}

func TestSubmitBlockedWhileInterstitialPending(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")

	_, err := svc.ViewFor(ectx)
	require.NoError(t, err)

	_, err = svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNotReady))
}

func TestWrongAnswerRevealsCluesOneAtATime(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	resp, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "rome"})
	require.NoError(t, err)
	assert.False(t, resp.Correct)
	assert.Equal(t, []string{"clue one"}, resp.RevealedClues)

	resp, err = svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "berlin"})
	require.NoError(t, err)
	assert.Equal(t, []string{"clue one", "clue two"}, resp.RevealedClues)

	// Capped at the clue count.
	resp, err = svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "madrid"})
	require.NoError(t, err)
	assert.Equal(t, []string{"clue one", "clue two"}, resp.RevealedClues)
}

func TestRevealedCluesShowInView(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	_, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "rome"})
	require.NoError(t, err)

	view, err := svc.ViewFor(ectx)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypePuzzle, view.Type)
	assert.Equal(t, []string{"clue one"}, view.RevealedClues)
}

func TestAnswerNormalization(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	// Interior whitespace is not forgiven.
	resp, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "par is"})
	require.NoError(t, err)
	assert.False(t, resp.Correct)

	// Case and surrounding whitespace are.
	resp, err = svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "  PaRiS  "})
	require.NoError(t, err)
	assert.True(t, resp.Correct)
}

func TestCorrectAnswerSchedulesAutoAdvance(t *testing.T) {
	clock := newFakeClock()
	svc := newTestEngine(twoPuzzleGame(), clock)
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	resp, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)
	assert.True(t, resp.Correct)
	assert.False(t, resp.Completed)
	require.NotNil(t, resp.AutoAdvanceAt)
	assert.Equal(t, clock.Now().Add(3*time.Second), *resp.AutoAdvanceAt)

	clock.Advance(3 * time.Second)

	snap, err := ectx.Store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "p2", snap.CurrentPuzzleID)
	assert.Equal(t, []string{"p1"}, snap.Completed)
}

func TestManualAdvanceCancelsTimer(t *testing.T) {
	clock := newFakeClock()
	svc := newTestEngine(twoPuzzleGame(), clock)
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	_, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)

	view, err := svc.AdvanceFor(ectx)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s1", view.Interstitial.ID)

	// The dead timer must not fire later.
	clock.Advance(time.Minute)
	snap, err := ectx.Store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, "p2", snap.CurrentPuzzleID)
}

func TestDuplicateSubmissionIsIdempotent(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	_, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)

	resp, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "anything at all"})
	require.NoError(t, err)
	assert.True(t, resp.Correct)

	snap, err := ectx.Store.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, snap.Completed)
}

func TestSubmitForNonActivePuzzleFails(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	_, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p2", Answer: "london"})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNotReady))
}

func TestClueCounterResetsOnNextPuzzle(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	_, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "wrong"})
	require.NoError(t, err)
	_, err = svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)

	view := viewPastIntro(t, svc, ectx)
	require.Equal(t, shared.ViewTypePuzzle, view.Type)
	require.Equal(t, "p2", view.Puzzle.ID)
	assert.Empty(t, view.RevealedClues)
}

func TestFullRunEndsInCompletion(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	_, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)

	view := viewPastIntro(t, svc, ectx)
	require.Equal(t, "p2", view.Puzzle.ID)

	resp, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p2", Answer: "london"})
	require.NoError(t, err)
	assert.True(t, resp.Completed)
	assert.Nil(t, resp.AutoAdvanceAt)

	// The finale screen is owed, then the run settles on completion.
	view, err = svc.ViewFor(ectx)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s9", view.Interstitial.ID)

	view, err = svc.AdvanceInterstitialFor(ectx)
	require.NoError(t, err)
	assert.Equal(t, shared.ViewTypeCompletion, view.Type)
	assert.True(t, view.Completed)
}

func TestSubmitAfterCompletionFails(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	_, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)
	viewPastIntro(t, svc, ectx)
	_, err = svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p2", Answer: "london"})
	require.NoError(t, err)

	_, err = svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p3", Answer: "x"})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNotReady))
}

func TestViewWithoutPuzzlesFails(t *testing.T) {
	content := twoPuzzleGame()
	content.puzzles = nil
	svc := newTestEngine(content, newFakeClock())
	ectx := newTrialContext("g1")

	_, err := svc.ViewFor(ectx)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNoPuzzlesConfigured))
}

// A context rebuilt after a restart has no raised queue, but screens owed
// for the current tier must still be shown before an answer is accepted.
func TestSubmitOnRebuiltContextHonorsOwedScreens(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	ectx := newTrialContext("g1")
	viewPastIntro(t, svc, ectx)

	_, err := svc.SubmitFor(ectx, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)

	// Same durable progress, fresh transient state.
	rebuilt := &EngineContext{
		CredentialID: ectx.CredentialID,
		GameID:       ectx.GameID,
		SessionID:    ectx.SessionID,
		Sentinel:     true,
		Store:        ectx.Store,
	}

	_, err = svc.SubmitFor(rebuilt, dto.SubmitAnswerRequest{PuzzleID: "p2", Answer: "london"})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNotReady))

	view := viewPastIntro(t, svc, rebuilt)
	require.Equal(t, shared.ViewTypePuzzle, view.Type)
	require.Equal(t, "p2", view.Puzzle.ID)

	resp, err := svc.SubmitFor(rebuilt, dto.SubmitAnswerRequest{PuzzleID: "p2", Answer: "london"})
	require.NoError(t, err)
	assert.True(t, resp.Correct)
}

func TestCurrentViewUnknownCredential(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	svc.credStore = newMemCredentialStore()
	svc.sessionSvc = newTestSessionService(newMemSessionStore())

	_, err := svc.CurrentView("ghost")
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeInvalidCode))
}

func TestCurrentViewStoreOutageIsNotInvalidCode(t *testing.T) {
	svc := newTestEngine(twoPuzzleGame(), newFakeClock())
	svc.credStore = downCredStore{}
	svc.sessionSvc = newTestSessionService(newMemSessionStore())

	_, err := svc.CurrentView("cred-1")
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodePersistenceFailure))
}

func TestQueueConsumedHeadFirstWithoutReselection(t *testing.T) {
	content := twoPuzzleGame()
	content.screens = append(content.screens,
		twoPuzzleGame().screens[0])
	content.screens[3].ID = "s0b"
	content.screens[3].Seq = 2

	svc := newTestEngine(content, newFakeClock())
	ectx := newTrialContext("g1")

	view, err := svc.ViewFor(ectx)
	require.NoError(t, err)
	assert.Equal(t, "s0", view.Interstitial.ID)

	view, err = svc.AdvanceInterstitialFor(ectx)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s0b", view.Interstitial.ID)

	view, err = svc.AdvanceInterstitialFor(ectx)
	require.NoError(t, err)
	assert.Equal(t, shared.ViewTypePuzzle, view.Type)
}
