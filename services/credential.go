package services

import (
	"crypto/rand"
	"math/big"
	"strings"
	"time"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/model"
	"github.com/questrail-games/quest_api/shared"
)

// CredentialService owns the access-code lifecycle: minting codes, the
// one-time activation stamp at first redemption, and the expiry checks on
// re-entry. The trial sentinel passes through redemption like any code but
// is exempt from activation and expiry.
type CredentialService struct {
	context.DefaultService

	credStore   CredentialStore
	contentSvc  ContentProvider
	sessionSvc  *SessionService
	watchdogSvc *WatchdogService
	jwtSvc      *JWTService
	emailSvc    *EmailService
	sqlSvc      *PostgresService
	clock       shared.Clock
}

const CREDENTIAL_SVC = "credential_svc"

// CredentialWindow is how long a code stays playable after first use.
const CredentialWindow = 12 * time.Hour

const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
const codeLength = 8

func (svc CredentialService) Id() string {
	return CREDENTIAL_SVC
}

func (svc *CredentialService) Configure(ctx *context.Context) error {
	svc.clock = shared.NewClock()
	return svc.DefaultService.Configure(ctx)
}

func (svc *CredentialService) Start() error {
	svc.sqlSvc = svc.Service(POSTGRES_SVC).(*PostgresService)
	svc.credStore = svc.sqlSvc
	svc.contentSvc = svc.Service(CONTENT_SVC).(*ContentService)
	svc.sessionSvc = svc.Service(SESSION_SVC).(*SessionService)
	svc.watchdogSvc = svc.Service(WATCHDOG_SVC).(*WatchdogService)
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	svc.emailSvc = svc.Service(EMAIL_SVC).(*EmailService)
	return nil
}

// Redeem exchanges an access code for a play token and the run's content.
// First redemption stamps the validity window; every later redemption with
// the same code resumes the same run until the window elapses.
func (svc *CredentialService) Redeem(req dto.RedeemRequest) (*dto.RedeemResponse, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))

	cred, err := svc.credStore.GetCredentialByCode(code)
	if err != nil {
		if !isNotFound(err) {
			return nil, shared.NewPersistenceError(err)
		}
		redemptionsTotal.WithLabelValues("invalid_code").Inc()
		return nil, shared.NewInvalidCodeError()
	}

	// Refuse before burning the activation on a game with nothing to play.
	puzzles, err := svc.contentSvc.Puzzles(cred.GameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	if len(puzzles) == 0 {
		return nil, shared.NewNoPuzzlesError(cred.GameID)
	}

	sentinel := cred.Code == shared.TrialCode
	now := svc.clock.Now()

	if !sentinel {
		if !cred.Activated() {
			activated, activatedNow, err := svc.credStore.ActivateCredential(cred.ID, now, now.Add(CredentialWindow))
			if err != nil {
				return nil, shared.NewPersistenceError(err)
			}
			cred = activated

			if activatedNow {
				activationsTotal.Inc()
				svc.recordUsage(cred.ID, shared.UsageActionActivated)
			}
		}

		if cred.ExpiredAt(now) {
			redemptionsTotal.WithLabelValues("expired").Inc()
			svc.watchdogSvc.Expire(cred.ID)
			return nil, shared.NewExpiredError()
		}
	}

	firstPuzzleID := ""
	if first := firstIncomplete(nil, puzzles); first != nil {
		firstPuzzleID = first.ID
	}
	session, err := svc.sessionSvc.ResolveSession(cred.ID, cred.GameID, firstPuzzleID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}
	svc.sessionSvc.Register(cred, session)

	if cred.ExpiresAt != nil {
		svc.watchdogSvc.Arm(cred.ID, *cred.ExpiresAt, sentinel)
	}

	var tokenExpiry *time.Time
	if !sentinel {
		tokenExpiry = cred.ExpiresAt
	}
	token, err := svc.jwtSvc.IssuePlayToken(cred.ID, cred.GameID, tokenExpiry)
	if err != nil {
		return nil, shared.NewInternalError(err, "Failed to issue play token")
	}

	game, err := svc.contentSvc.Game(cred.GameID)
	if err != nil {
		return nil, shared.NewPersistenceError(err)
	}

	redemptionsTotal.WithLabelValues("success").Inc()

	return &dto.RedeemResponse{
		Credential: dto.CredentialResponse{
			ID:          cred.ID,
			Code:        cred.Code,
			GameID:      cred.GameID,
			ActivatedAt: cred.ActivatedAt,
			ExpiresAt:   cred.ExpiresAt,
			Sentinel:    sentinel,
		},
		Game:    svc.contentSvc.MapGameToResponse(game, len(puzzles)),
		Puzzles: svc.contentSvc.MapPuzzlesToResponse(puzzles),
		Token:   token,
	}, nil
}

// recordUsage writes the audit row off the request path; losing it never
// fails a redemption.
func (svc *CredentialService) recordUsage(credentialID, action string) {
	timestamp := svc.clock.Now()
	go func() {
		usage := &model.CredentialUsage{
			CredentialID: credentialID,
			Action:       action,
			Timestamp:    timestamp,
		}
		if err := svc.credStore.CreateCredentialUsage(usage); err != nil {
			log.Printf("Failed to record credential usage: %v", err)
		}
	}()
}

// ==================== ADMIN METHODS ====================

// CreateCredential mints a code for a game. An explicit code is honored
// (upper-cased); otherwise one is generated. With an email set the code is
// delivered out-of-band, best effort.
func (svc *CredentialService) CreateCredential(req dto.CreateCredentialRequest) (*model.AccessCredential, error) {
	game, err := svc.contentSvc.Game(req.GameID)
	if err != nil {
		return nil, shared.NewBadRequestError(err, "Game not found")
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		code, err = generateCode()
		if err != nil {
			return nil, shared.NewInternalError(err, "Failed to generate access code")
		}
	}

	cred := &model.AccessCredential{
		Code:     code,
		GameID:   req.GameID,
		IsActive: true,
	}

	created, err := svc.sqlSvc.CreateCredential(cred)
	if err != nil {
		return nil, err
	}

	if req.Email != "" {
		email := req.Email
		go func() {
			if err := svc.emailSvc.SendAccessCode(email, created.Code, game.Title, int(CredentialWindow.Hours())); err != nil {
				log.Printf("Failed to email access code: %v", err)
			}
		}()
	}

	return created, nil
}

func (svc *CredentialService) ListCredentials(gameID string) ([]dto.CredentialListItem, error) {
	creds, err := svc.sqlSvc.ListCredentials(gameID)
	if err != nil {
		return nil, err
	}

	items := make([]dto.CredentialListItem, len(creds))
	for i, c := range creds {
		items[i] = dto.CredentialListItem{
			ID:          c.ID,
			Code:        c.Code,
			GameID:      c.GameID,
			IsActive:    c.IsActive,
			ActivatedAt: c.ActivatedAt,
			ExpiresAt:   c.ExpiresAt,
			CreatedAt:   c.CreatedAt,
		}
	}
	return items, nil
}

func generateCode() (string, error) {
	out := make([]byte, codeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = codeAlphabet[n.Int64()]
	}
	return string(out), nil
}
