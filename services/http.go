package services

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	log "github.com/sirupsen/logrus"

	"github.com/questrail-games/quest_api/services/handlers"
	"github.com/questrail-games/quest_api/shared"
)

type HttpService struct {
	context.DefaultService

	credentialSvc  *CredentialService
	progressionSvc *ProgressionService
	sessionSvc     *SessionService
	trialSvc       *TrialService
	contentSvc     *ContentService
	rateLimitSvc   *RateLimitService
	authSvc        *AuthMiddleware
	monitoringSvc  *MonitoringService

	port   int
	server *fiber.App
}

const HTTP_SVC = "http_svc"

func (svc HttpService) Id() string {
	return HTTP_SVC
}

func (svc *HttpService) Configure(ctx *context.Context) error {
	if port := os.Getenv("HTTP_PORT"); port != "" {
		var err error
		if svc.port, err = strconv.Atoi(port); err != nil {
			return err
		}
	} else {
		svc.port = 8000
	}

	return svc.DefaultService.Configure(ctx)
}

func (svc *HttpService) Start() error {
	svc.credentialSvc = svc.Service(CREDENTIAL_SVC).(*CredentialService)
	svc.progressionSvc = svc.Service(PROGRESSION_SVC).(*ProgressionService)
	svc.sessionSvc = svc.Service(SESSION_SVC).(*SessionService)
	svc.trialSvc = svc.Service(TRIAL_SVC).(*TrialService)
	svc.contentSvc = svc.Service(CONTENT_SVC).(*ContentService)
	svc.rateLimitSvc = svc.Service(RATE_LIMIT_SVC).(*RateLimitService)
	svc.authSvc = svc.Service(AUTH_MIDDLEWARE_SVC).(*AuthMiddleware)
	svc.monitoringSvc = svc.Service(MONITORING_SVC).(*MonitoringService)

	app := fiber.New(fiber.Config{
		ErrorHandler: svc.handleError,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Admin-Key",
	}))
	app.Use(MonitoringMiddleware(svc.monitoringSvc))
	app.Use(svc.rateLimitSvc.IPRateLimit())

	app.Get("/ping", svc.ping)

	v1 := app.Group("/api/v1")
	v1.Get("/ping", svc.ping)

	redeemHandler := handlers.NewRedeemHandler(svc.credentialSvc)
	playHandler := handlers.NewPlayHandler(svc.progressionSvc, svc.sessionSvc)
	trialHandler := handlers.NewTrialHandler(svc.trialSvc)
	adminHandler := handlers.NewAdminHandler(svc.contentSvc, svc.credentialSvc)

	v1.Post("/redeem", svc.rateLimitSvc.RateLimit("redeem"), redeemHandler.Redeem)

	play := v1.Group("/play", svc.authSvc.RequirePlayToken())
	play.Get("/view", playHandler.GetView)
	play.Get("/session", playHandler.GetSession)
	play.Post("/answer", svc.rateLimitSvc.RateLimit("answer"), playHandler.SubmitAnswer)
	play.Post("/interstitial/advance", playHandler.AdvanceInterstitial)
	play.Post("/advance", playHandler.Advance)
	play.Post("/logout", playHandler.Logout)

	trial := v1.Group("/trial")
	trial.Post("/", svc.rateLimitSvc.RateLimit("trial_start"), trialHandler.StartRun)
	trial.Get("/:runId/view", trialHandler.GetView)
	trial.Post("/:runId/answer", svc.rateLimitSvc.RateLimit("answer"), trialHandler.SubmitAnswer)
	trial.Post("/:runId/interstitial/advance", trialHandler.AdvanceInterstitial)
	trial.Post("/:runId/advance", trialHandler.Advance)
	trial.Post("/:runId/reset", trialHandler.Reset)
	trial.Delete("/:runId", trialHandler.EndRun)

	admin := v1.Group("/admin", svc.authSvc.RequireAdminKey(), svc.rateLimitSvc.RateLimit("admin"))
	admin.Post("/games", adminHandler.CreateGame)
	admin.Post("/puzzles", adminHandler.CreatePuzzle)
	admin.Post("/screens", adminHandler.CreateScreen)
	admin.Post("/credentials", adminHandler.CreateCredential)
	admin.Get("/credentials", adminHandler.ListCredentials)

	app.Use(func(c *fiber.Ctx) error {
		return shared.ResponseNotFound(c)
	})

	svc.server = app

	log.Infof("HTTP server listening on :%d", svc.port)
	return app.Listen(fmt.Sprintf(":%v", svc.port))
}

func (svc *HttpService) Shutdown() {
	if svc.server != nil {
		_ = svc.server.Shutdown()
	}
}

// handleError maps engine errors onto the wire format. Unknown errors are
// logged in full but leave the process as a plain 500.
func (svc *HttpService) handleError(c *fiber.Ctx, err error) error {
	if appErr, ok := shared.GetAppError(err); ok {
		if appErr.StatusCode >= 500 {
			log.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
		}
		return shared.ResponseJSON(c, appErr.StatusCode, appErr.Message, fiber.Map{
			"code": appErr.Code,
			"data": appErr.Data,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return shared.ResponseJSON(c, fiberErr.Code, fiberErr.Message, nil)
	}

	log.Errorf("%s %s failed: %v", c.Method(), c.Path(), err)
	return shared.ResponseInternalError(c, err)
}

// @Summary Ping
// @Success 200
// @Router /ping [get]
func (svc *HttpService) ping(c *fiber.Ctx) error {
	return shared.ResponseOK(c, fiber.Map{"message": "pong"})
}
