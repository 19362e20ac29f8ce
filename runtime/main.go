package main

import (
	"github.com/questrail-games/quest_api/services"

	"github.com/alphabatem/common/context"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

func main() {
	err := godotenv.Load()
	if err != nil {
		log.Warn().Err(err).Msg("No .env file loaded")
	}

	ctx, err := context.NewCtx(
		&services.PostgresService{},
		&services.RedisService{},
		&services.MediaService{},
		&services.EmailService{},
		&services.JWTService{},
		&services.MonitoringService{},

		&services.ContentService{},
		&services.SessionService{},
		&services.InterstitialService{},
		&services.WatchdogService{},
		&services.CredentialService{},
		&services.ProgressionService{},
		&services.TrialService{},

		&services.RateLimitService{},
		&services.AuthMiddleware{},

		&services.HttpService{},
	)
	if err != nil {
		log.Fatal().Err(err)
		return
	}

	err = ctx.Run()
	if err != nil {
		log.Fatal().Err(err)
		return
	}
}
