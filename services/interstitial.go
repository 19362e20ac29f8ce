package services

import (
	"sort"

	"github.com/alphabatem/common/context"

	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
)

// InterstitialService decides which narrative screens are owed to the player
// before the next puzzle may be shown. Tiers are strict: intro screens beat
// per-puzzle screens, which beat the finale; a lower tier is never raised
// while a higher one still has unviewed screens.
type InterstitialService struct {
	context.DefaultService
}

const INTERSTITIAL_SVC = "interstitial_svc"

func (svc InterstitialService) Id() string {
	return INTERSTITIAL_SVC
}

func (svc *InterstitialService) Configure(ctx *context.Context) error {
	return svc.DefaultService.Configure(ctx)
}

func (svc *InterstitialService) Start() error {
	return nil
}

// Pending returns the unviewed screens owed right now, in display order.
// currentPuzzleID selects the per-puzzle tier; completedAll unlocks the
// finale tier. The result is a whole tier, never a mix.
func (svc *InterstitialService) Pending(viewed []string, currentPuzzleID string, completedAll bool, screens []model.InterstitialScreen) []model.InterstitialScreen {
	if intro := svc.tier(viewed, shared.ScreenTagIntro, screens); len(intro) > 0 {
		return intro
	}

	if currentPuzzleID != "" {
		if owed := svc.tier(viewed, currentPuzzleID, screens); len(owed) > 0 {
			return owed
		}
	}

	if completedAll {
		if finale := svc.tier(viewed, shared.ScreenTagEnd, screens); len(finale) > 0 {
			return finale
		}
	}

	return nil
}

func (svc *InterstitialService) tier(viewed []string, tag string, screens []model.InterstitialScreen) []model.InterstitialScreen {
	seen := make(map[string]bool, len(viewed))
	for _, id := range viewed {
		seen[id] = true
	}

	var owed []model.InterstitialScreen
	for _, screen := range screens {
		if screen.Tag == tag && !seen[screen.ID] {
			owed = append(owed, screen)
		}
	}

	sort.Slice(owed, func(i, j int) bool {
		return owed[i].Seq < owed[j].Seq
	})
	return owed
}
