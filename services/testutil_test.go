package services

import (
	"encoding/json"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
)

// fakeClock drives timers by hand so window and auto-advance behavior can
// be tested without sleeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) shared.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward, firing due timers in order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	for _, t := range due {
		t.f()
	}
}

// memSessionStore is an in-memory SessionStore mirroring the store's
// semantics: one session per credential, merge-style column updates.
type memSessionStore struct {
	mu       sync.Mutex
	sessions map[string]*model.PlaySession
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{sessions: make(map[string]*model.PlaySession)}
}

func (m *memSessionStore) GetSessionByCredentialID(credentialID string) (*model.PlaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.CredentialID == credentialID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memSessionStore) GetSession(id string) (*model.PlaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessionStore) CreateSession(session *model.PlaySession) (*model.PlaySession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.CredentialID == session.CredentialID {
			cp := *s
			return &cp, nil
		}
	}
	cp := *session
	m.sessions[session.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memSessionStore) TouchSession(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.LastActivity = at
	return nil
}

func (m *memSessionStore) UpdateSessionProgress(id string, cols map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for col, val := range cols {
		switch col {
		case "completed_puzzles":
			s.CompletedPuzzles = val.(json.RawMessage)
		case "extension_data":
			s.ExtensionData = val.(json.RawMessage)
		case "current_puzzle_id":
			if val == nil {
				s.CurrentPuzzleID = nil
			} else {
				id := val.(string)
				s.CurrentPuzzleID = &id
			}
		}
	}
	return nil
}

// memCredentialStore is an in-memory CredentialStore with the same
// activate-once semantics as the real one.
type memCredentialStore struct {
	mu    sync.Mutex
	creds map[string]*model.AccessCredential
	usage []model.CredentialUsage
}

func newMemCredentialStore(creds ...*model.AccessCredential) *memCredentialStore {
	store := &memCredentialStore{creds: make(map[string]*model.AccessCredential)}
	for _, c := range creds {
		cp := *c
		store.creds[c.ID] = &cp
	}
	return store
}

func (m *memCredentialStore) GetCredentialByCode(code string) (*model.AccessCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.creds {
		if c.Code == code {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memCredentialStore) GetCredential(id string) (*model.AccessCredential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memCredentialStore) ActivateCredential(id string, activatedAt, expiresAt time.Time) (*model.AccessCredential, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.creds[id]
	if !ok {
		return nil, false, gorm.ErrRecordNotFound
	}
	if c.ActivatedAt != nil {
		cp := *c
		return &cp, false, nil
	}
	c.ActivatedAt = &activatedAt
	c.ExpiresAt = &expiresAt
	cp := *c
	return &cp, true, nil
}

func (m *memCredentialStore) CreateCredentialUsage(usage *model.CredentialUsage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = append(m.usage, *usage)
	return nil
}

func (m *memCredentialStore) usageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.usage)
}

// stubContent serves fixed content and maps responses without touching
// media storage.
type stubContent struct {
	game    *model.Game
	puzzles []model.Puzzle
	screens []model.InterstitialScreen
}

func (s *stubContent) Game(id string) (*model.Game, error) {
	if s.game == nil || s.game.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.game, nil
}

func (s *stubContent) Puzzles(gameID string) ([]model.Puzzle, error) {
	return s.puzzles, nil
}

func (s *stubContent) Screens(gameID string) ([]model.InterstitialScreen, error) {
	return s.screens, nil
}

func (s *stubContent) MapGameToResponse(game *model.Game, puzzleCount int) dto.GameResponse {
	return dto.GameResponse{ID: game.ID, Title: game.Title, PuzzleCount: puzzleCount}
}

func (s *stubContent) MapPuzzleToResponse(puzzle *model.Puzzle) dto.PuzzleResponse {
	return dto.PuzzleResponse{
		ID:         puzzle.ID,
		GameID:     puzzle.GameID,
		Seq:        puzzle.Seq,
		Title:      puzzle.Title,
		AnswerType: puzzle.AnswerType,
		TotalClues: len(puzzle.DecodedClues()),
	}
}

func (s *stubContent) MapPuzzlesToResponse(puzzles []model.Puzzle) []dto.PuzzleResponse {
	out := make([]dto.PuzzleResponse, len(puzzles))
	for i := range puzzles {
		out[i] = s.MapPuzzleToResponse(&puzzles[i])
	}
	return out
}

func (s *stubContent) MapScreenToResponse(screen *model.InterstitialScreen) dto.ScreenResponse {
	return dto.ScreenResponse{
		ID:    screen.ID,
		Seq:   screen.Seq,
		Tag:   screen.Tag,
		Title: screen.Title,
	}
}

// twoPuzzleGame builds the standard fixture: two puzzles, one intro screen,
// one screen bound to the second puzzle, and a finale.
func twoPuzzleGame() *stubContent {
	return &stubContent{
		game: &model.Game{ID: "g1", Title: "Test Hunt", IsActive: true},
		puzzles: []model.Puzzle{
			{
				ID: "p1", GameID: "g1", Seq: 1, Title: "First",
				AnswerType: shared.AnswerTypeFreeText, Answer: "paris",
				Clues: json.RawMessage(`["clue one","clue two"]`),
			},
			{
				ID: "p2", GameID: "g1", Seq: 2, Title: "Second",
				AnswerType: shared.AnswerTypeFreeText, Answer: "london",
				Clues: json.RawMessage(`["only clue"]`),
			},
		},
		screens: []model.InterstitialScreen{
			{ID: "s0", GameID: "g1", Seq: 1, Tag: shared.ScreenTagIntro, Title: "Welcome"},
			{ID: "s1", GameID: "g1", Seq: 1, Tag: "p2", Title: "Before the second"},
			{ID: "s9", GameID: "g1", Seq: 1, Tag: shared.ScreenTagEnd, Title: "Finale"},
		},
	}
}

func newTestEngine(content ContentProvider, clock shared.Clock) *ProgressionService {
	return &ProgressionService{
		contentSvc:      content,
		interstitialSvc: &InterstitialService{},
		clock:           clock,
	}
}

func newTrialContext(gameID string) *EngineContext {
	return &EngineContext{
		CredentialID: "trial:test",
		GameID:       gameID,
		SessionID:    "run-1",
		Sentinel:     true,
		Store:        newTrialProgress("run-1", gameID),
	}
}
