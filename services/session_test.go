package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questrail-games/quest_api/model"
)

func newTestSessionService(store SessionStore) *SessionService {
	return &SessionService{
		sqlSvc:   store,
		clock:    newFakeClock(),
		contexts: make(map[string]*EngineContext),
	}
}

func TestResolveSessionCreatesOnce(t *testing.T) {
	store := newMemSessionStore()
	svc := newTestSessionService(store)

	first, err := svc.ResolveSession("cred-1", "g1", "p1")
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)

	second, err := svc.ResolveSession("cred-1", "g1", "p1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestResolveSessionStampsFirstPuzzle(t *testing.T) {
	svc := newTestSessionService(newMemSessionStore())

	session, err := svc.ResolveSession("cred-1", "g1", "p1")
	require.NoError(t, err)
	require.NotNil(t, session.CurrentPuzzleID)
	assert.Equal(t, "p1", *session.CurrentPuzzleID)
}

func TestResolveSessionTouchesActivity(t *testing.T) {
	store := newMemSessionStore()
	svc := newTestSessionService(store)
	clock := svc.clock.(*fakeClock)

	first, err := svc.ResolveSession("cred-1", "g1", "p1")
	require.NoError(t, err)

	clock.Advance(time.Hour)
	_, err = svc.ResolveSession("cred-1", "g1", "p1")
	require.NoError(t, err)

	stored, err := store.GetSession(first.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastActivity.After(first.LastActivity))
}

func TestResolveSessionConvergesConcurrentCreators(t *testing.T) {
	store := newMemSessionStore()
	svc := newTestSessionService(store)

	var wg sync.WaitGroup
	ids := make([]string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			session, err := svc.ResolveSession("cred-race", "g1", "p1")
			require.NoError(t, err)
			ids[i] = session.ID
		}(i)
	}
	wg.Wait()

	for _, id := range ids[1:] {
		assert.Equal(t, ids[0], id)
	}
}

func TestRegisterReturnsSameContext(t *testing.T) {
	svc := newTestSessionService(newMemSessionStore())
	cred := &model.AccessCredential{ID: "cred-1", Code: "ABCD1234", GameID: "g1"}
	session := &model.PlaySession{ID: "sess-1", CredentialID: "cred-1", GameID: "g1"}

	first := svc.Register(cred, session)
	second := svc.Register(cred, session)
	assert.Same(t, first, second)

	ectx, ok := svc.Context("cred-1")
	require.True(t, ok)
	assert.Same(t, first, ectx)
}

func TestTeardownDropsContextAndCancelsAdvance(t *testing.T) {
	svc := newTestSessionService(newMemSessionStore())
	clock := svc.clock.(*fakeClock)
	cred := &model.AccessCredential{ID: "cred-1", Code: "ABCD1234", GameID: "g1"}
	session := &model.PlaySession{ID: "sess-1", CredentialID: "cred-1", GameID: "g1"}

	ectx := svc.Register(cred, session)

	fired := false
	ectx.ScheduleAdvance(clock, time.Second, func() { fired = true })

	svc.Teardown("cred-1")

	_, ok := svc.Context("cred-1")
	assert.False(t, ok)

	clock.Advance(time.Minute)
	assert.False(t, fired)
}

func TestPersistedProgressRoundTrip(t *testing.T) {
	store := newMemSessionStore()
	svc := newTestSessionService(store)

	session, err := svc.ResolveSession("cred-1", "g1", "p1")
	require.NoError(t, err)

	progress := &persistedProgress{sqlSvc: store, sessionID: session.ID}

	require.NoError(t, progress.MarkViewed("s0"))
	require.NoError(t, progress.MarkViewed("s0")) // second view is a no-op
	require.NoError(t, progress.SetCurrentPuzzle("p1"))
	require.NoError(t, progress.CompletePuzzle("p1"))
	require.NoError(t, progress.CompletePuzzle("p1")) // idempotent

	snap, err := progress.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"s0"}, snap.ViewedScreens)
	assert.Equal(t, []string{"p1"}, snap.Completed)
	assert.Empty(t, snap.CurrentPuzzleID)
}

// Completing a puzzle must not clobber screens viewed since the snapshot
// was taken: the columns are written independently.
func TestPersistedProgressMergesIndependentColumns(t *testing.T) {
	store := newMemSessionStore()
	svc := newTestSessionService(store)

	session, err := svc.ResolveSession("cred-1", "g1", "p1")
	require.NoError(t, err)

	a := &persistedProgress{sqlSvc: store, sessionID: session.ID}
	b := &persistedProgress{sqlSvc: store, sessionID: session.ID}

	require.NoError(t, a.MarkViewed("s0"))
	require.NoError(t, b.CompletePuzzle("p1"))

	snap, err := a.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []string{"s0"}, snap.ViewedScreens)
	assert.Equal(t, []string{"p1"}, snap.Completed)
}

func TestSessionInfo(t *testing.T) {
	store := newMemSessionStore()
	svc := newTestSessionService(store)

	session, err := svc.ResolveSession("cred-1", "g1", "p1")
	require.NoError(t, err)

	progress := &persistedProgress{sqlSvc: store, sessionID: session.ID}
	require.NoError(t, progress.CompletePuzzle("p1"))
	require.NoError(t, progress.MarkViewed("s0"))

	info, err := svc.Info("cred-1")
	require.NoError(t, err)
	assert.Equal(t, session.ID, info.ID)
	assert.Equal(t, "g1", info.GameID)
	assert.Equal(t, []string{"p1"}, info.CompletedPuzzles)
	assert.Equal(t, []string{"s0"}, info.ViewedScreens)
}

func TestEngineContextClueScoping(t *testing.T) {
	ectx := newTrialContext("g1")

	assert.Equal(t, 0, ectx.CluesFor("p1"))
	assert.Equal(t, 1, ectx.RevealClue("p1", 2))
	assert.Equal(t, 2, ectx.RevealClue("p1", 2))
	assert.Equal(t, 2, ectx.RevealClue("p1", 2)) // capped

	// Moving to another puzzle discards the counter.
	assert.Equal(t, 1, ectx.RevealClue("p2", 3))
	assert.Equal(t, 0, ectx.CluesFor("p1"))
}

func TestEngineContextQueue(t *testing.T) {
	ectx := newTrialContext("g1")

	_, ok := ectx.PopQueue()
	assert.False(t, ok)

	ectx.SetQueue([]string{"a", "b"})
	head, ok := ectx.PopQueue()
	require.True(t, ok)
	assert.Equal(t, "a", head)
	assert.Equal(t, []string{"b"}, ectx.Queue())
}

func TestScheduleAdvanceReplacesPending(t *testing.T) {
	clock := newFakeClock()
	ectx := newTrialContext("g1")

	var firstFired, secondFired bool
	ectx.ScheduleAdvance(clock, time.Second, func() { firstFired = true })
	ectx.ScheduleAdvance(clock, time.Second, func() { secondFired = true })

	clock.Advance(2 * time.Second)
	assert.False(t, firstFired)
	assert.True(t, secondFired)
}
