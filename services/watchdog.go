package services

import (
	"sync"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/questrail-games/quest_api/shared"
)

// WatchdogService tears down live engine state when a credential's window
// elapses. It only drops transient state; the session row stays, so an
// expired run is frozen, not erased. The trial sentinel is never armed.
type WatchdogService struct {
	context.DefaultService

	sessionSvc *SessionService
	clock      shared.Clock

	mu     sync.Mutex
	timers map[string]shared.Timer
}

const WATCHDOG_SVC = "watchdog_svc"

// expiryGrace pads the teardown past the nominal deadline so an in-flight
// request racing the window does not see its context vanish mid-request.
const expiryGrace = 5 * time.Second

func (svc WatchdogService) Id() string {
	return WATCHDOG_SVC
}

func (svc *WatchdogService) Configure(ctx *context.Context) error {
	svc.timers = make(map[string]shared.Timer)
	svc.clock = shared.NewClock()
	return svc.DefaultService.Configure(ctx)
}

func (svc *WatchdogService) Start() error {
	svc.sessionSvc = svc.Service(SESSION_SVC).(*SessionService)
	return nil
}

// Arm schedules teardown for when the credential's window elapses,
// replacing any earlier schedule. Sentinel credentials are exempt.
func (svc *WatchdogService) Arm(credentialID string, expiresAt time.Time, sentinel bool) {
	if sentinel {
		return
	}

	delay := expiresAt.Sub(svc.clock.Now()) + expiryGrace
	if delay < expiryGrace {
		delay = expiryGrace
	}
	svc.arm(credentialID, delay)
}

// Expire schedules an immediate grace-delayed teardown, used when expiry is
// discovered mid-play rather than predicted at redemption.
func (svc *WatchdogService) Expire(credentialID string) {
	svc.arm(credentialID, expiryGrace)
}

func (svc *WatchdogService) arm(credentialID string, delay time.Duration) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if timer, ok := svc.timers[credentialID]; ok {
		timer.Stop()
	}
	svc.timers[credentialID] = svc.clock.AfterFunc(delay, func() {
		svc.expire(credentialID)
	})
}

// Disarm cancels a scheduled teardown, if any.
func (svc *WatchdogService) Disarm(credentialID string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	if timer, ok := svc.timers[credentialID]; ok {
		timer.Stop()
		delete(svc.timers, credentialID)
	}
}

func (svc *WatchdogService) expire(credentialID string) {
	svc.mu.Lock()
	delete(svc.timers, credentialID)
	svc.mu.Unlock()

	log.Infof("Credential %s window elapsed, dropping live state", credentialID)
	svc.sessionSvc.Teardown(credentialID)
}
