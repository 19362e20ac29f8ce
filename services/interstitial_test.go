package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
)

func TestPendingIntroBeatsEverything(t *testing.T) {
	svc := &InterstitialService{}
	screens := []model.InterstitialScreen{
		{ID: "s0", Tag: shared.ScreenTagIntro, Seq: 1},
		{ID: "s1", Tag: "p1", Seq: 1},
		{ID: "s9", Tag: shared.ScreenTagEnd, Seq: 1},
	}

	owed := svc.Pending(nil, "p1", true, screens)
	require.Len(t, owed, 1)
	assert.Equal(t, "s0", owed[0].ID)
}

func TestPendingPuzzleTierAfterIntroViewed(t *testing.T) {
	svc := &InterstitialService{}
	screens := []model.InterstitialScreen{
		{ID: "s0", Tag: shared.ScreenTagIntro, Seq: 1},
		{ID: "s1", Tag: "p1", Seq: 1},
	}

	owed := svc.Pending([]string{"s0"}, "p1", false, screens)
	require.Len(t, owed, 1)
	assert.Equal(t, "s1", owed[0].ID)
}

func TestPendingNothingForUnrelatedPuzzle(t *testing.T) {
	svc := &InterstitialService{}
	screens := []model.InterstitialScreen{
		{ID: "s1", Tag: "p2", Seq: 1},
	}

	owed := svc.Pending(nil, "p1", false, screens)
	assert.Empty(t, owed)
}

func TestPendingFinaleOnlyWhenComplete(t *testing.T) {
	svc := &InterstitialService{}
	screens := []model.InterstitialScreen{
		{ID: "s9", Tag: shared.ScreenTagEnd, Seq: 1},
	}

	assert.Empty(t, svc.Pending(nil, "p1", false, screens))

	owed := svc.Pending(nil, "", true, screens)
	require.Len(t, owed, 1)
	assert.Equal(t, "s9", owed[0].ID)
}

func TestPendingSortsWithinTierBySeq(t *testing.T) {
	svc := &InterstitialService{}
	screens := []model.InterstitialScreen{
		{ID: "b", Tag: shared.ScreenTagIntro, Seq: 2},
		{ID: "a", Tag: shared.ScreenTagIntro, Seq: 1},
		{ID: "c", Tag: shared.ScreenTagIntro, Seq: 3},
	}

	owed := svc.Pending(nil, "", false, screens)
	require.Len(t, owed, 3)
	assert.Equal(t, "a", owed[0].ID)
	assert.Equal(t, "b", owed[1].ID)
	assert.Equal(t, "c", owed[2].ID)
}

func TestPendingSkipsViewedScreens(t *testing.T) {
	svc := &InterstitialService{}
	screens := []model.InterstitialScreen{
		{ID: "a", Tag: shared.ScreenTagIntro, Seq: 1},
		{ID: "b", Tag: shared.ScreenTagIntro, Seq: 2},
	}

	owed := svc.Pending([]string{"a"}, "", false, screens)
	require.Len(t, owed, 1)
	assert.Equal(t, "b", owed[0].ID)
}

// Walks a two-puzzle game: intro first, then nothing before the first
// puzzle, then the screen bound to the second puzzle once the first is done.
func TestPendingTierProgression(t *testing.T) {
	svc := &InterstitialService{}
	screens := []model.InterstitialScreen{
		{ID: "s0", Tag: shared.ScreenTagIntro, Seq: 1},
		{ID: "s1", Tag: "p2", Seq: 1},
	}

	owed := svc.Pending(nil, "p1", false, screens)
	require.Len(t, owed, 1)
	assert.Equal(t, "s0", owed[0].ID)

	assert.Empty(t, svc.Pending([]string{"s0"}, "p1", false, screens))

	owed = svc.Pending([]string{"s0"}, "p2", false, screens)
	require.Len(t, owed, 1)
	assert.Equal(t, "s1", owed[0].ID)
}
