package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
)

func newTestTrialService(content *stubContent, clock *fakeClock) *TrialService {
	return &TrialService{
		progressionSvc: newTestEngine(content, clock),
		contentSvc:     content,
		credStore: newMemCredentialStore(&model.AccessCredential{
			ID: "cred-t", Code: shared.TrialCode, GameID: "g1", IsActive: true,
		}),
		clock: clock,
		runs:  make(map[string]*trialRun),
	}
}

func TestStartRunDefaultsToSentinelGame(t *testing.T) {
	svc := newTestTrialService(twoPuzzleGame(), newFakeClock())

	resp, err := svc.StartRun(dto.StartTrialRequest{})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, "g1", resp.Game.ID)
	assert.Len(t, resp.Puzzles, 2)

	ectx, err := svc.run(resp.RunID)
	require.NoError(t, err)
	assert.True(t, ectx.Sentinel)
	assert.Equal(t, "trial:"+resp.RunID, ectx.CredentialID)
}

func TestStartRunUnknownGame(t *testing.T) {
	svc := newTestTrialService(twoPuzzleGame(), newFakeClock())

	_, err := svc.StartRun(dto.StartTrialRequest{GameID: "missing"})
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestTrialFullPlaythrough(t *testing.T) {
	clock := newFakeClock()
	svc := newTestTrialService(twoPuzzleGame(), clock)

	started, err := svc.StartRun(dto.StartTrialRequest{})
	require.NoError(t, err)
	runID := started.RunID

	view, err := svc.View(runID)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s0", view.Interstitial.ID)

	view, err = svc.AdvanceInterstitial(runID)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypePuzzle, view.Type)
	assert.Equal(t, "p1", view.Puzzle.ID)

	sub, err := svc.Submit(runID, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "wrong"})
	require.NoError(t, err)
	assert.False(t, sub.Correct)
	assert.Equal(t, []string{"clue one"}, sub.RevealedClues)

	sub, err = svc.Submit(runID, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)
	assert.True(t, sub.Correct)
	require.NotNil(t, sub.AutoAdvanceAt)

	view, err = svc.Advance(runID)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s1", view.Interstitial.ID)

	view, err = svc.AdvanceInterstitial(runID)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypePuzzle, view.Type)
	assert.Equal(t, "p2", view.Puzzle.ID)

	sub, err = svc.Submit(runID, dto.SubmitAnswerRequest{PuzzleID: "p2", Answer: "london"})
	require.NoError(t, err)
	assert.True(t, sub.Correct)
	assert.True(t, sub.Completed)
	assert.Nil(t, sub.AutoAdvanceAt)

	view, err = svc.View(runID)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s9", view.Interstitial.ID)

	view, err = svc.AdvanceInterstitial(runID)
	require.NoError(t, err)
	assert.Equal(t, shared.ViewTypeCompletion, view.Type)
	assert.True(t, view.Completed)
}

func TestTrialResetRewindsRun(t *testing.T) {
	clock := newFakeClock()
	svc := newTestTrialService(twoPuzzleGame(), clock)

	started, err := svc.StartRun(dto.StartTrialRequest{})
	require.NoError(t, err)
	runID := started.RunID

	_, err = svc.View(runID)
	require.NoError(t, err)
	_, err = svc.AdvanceInterstitial(runID)
	require.NoError(t, err)
	_, err = svc.Submit(runID, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)

	require.NoError(t, svc.Reset(runID))

	view, err := svc.View(runID)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s0", view.Interstitial.ID, "intro plays again from the top")
}

func TestTrialEndRunForgetsState(t *testing.T) {
	svc := newTestTrialService(twoPuzzleGame(), newFakeClock())

	started, err := svc.StartRun(dto.StartTrialRequest{})
	require.NoError(t, err)

	svc.EndRun(started.RunID)

	_, err = svc.View(started.RunID)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}

func TestTrialRunsAreIsolated(t *testing.T) {
	clock := newFakeClock()
	svc := newTestTrialService(twoPuzzleGame(), clock)

	a, err := svc.StartRun(dto.StartTrialRequest{})
	require.NoError(t, err)
	b, err := svc.StartRun(dto.StartTrialRequest{})
	require.NoError(t, err)

	_, err = svc.View(a.RunID)
	require.NoError(t, err)
	_, err = svc.AdvanceInterstitial(a.RunID)
	require.NoError(t, err)
	_, err = svc.Submit(a.RunID, dto.SubmitAnswerRequest{PuzzleID: "p1", Answer: "paris"})
	require.NoError(t, err)

	view, err := svc.View(b.RunID)
	require.NoError(t, err)
	require.Equal(t, shared.ViewTypeInterstitial, view.Type)
	assert.Equal(t, "s0", view.Interstitial.ID, "second run still sits at the intro")
}

func TestTrialIdleCollection(t *testing.T) {
	clock := newFakeClock()
	svc := newTestTrialService(twoPuzzleGame(), clock)

	started, err := svc.StartRun(dto.StartTrialRequest{})
	require.NoError(t, err)

	clock.Advance(trialIdleTTL + time.Minute)
	svc.collectIdle()

	_, err = svc.View(started.RunID)
	require.Error(t, err)
	assert.True(t, shared.IsCode(err, shared.CodeNotFound))
}
