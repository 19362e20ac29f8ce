package services

import (
	"net/http"
	"os"

	"github.com/alphabatem/common/context"
	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/questrail-games/quest_api/shared"
)

type AuthMiddleware struct {
	context.DefaultService

	jwtSvc *JWTService

	adminKeyHash string
}

const AUTH_MIDDLEWARE_SVC = "auth"

func (svc AuthMiddleware) Id() string {
	return AUTH_MIDDLEWARE_SVC
}

func (svc *AuthMiddleware) Configure(ctx *context.Context) error {
	svc.adminKeyHash = os.Getenv("ADMIN_KEY_HASH")
	return svc.DefaultService.Configure(ctx)
}

func (svc *AuthMiddleware) Start() error {
	svc.jwtSvc = svc.Service(JWT_SVC).(*JWTService)
	return nil
}

// RequirePlayToken gates the play surface. The verified credential and game
// ids land in the request locals.
func (svc *AuthMiddleware) RequirePlayToken() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		token, err := svc.jwtSvc.ExtractTokenFromHeader(authHeader)
		if err != nil {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", err.Error())
		}

		credentialID, gameID, err := svc.jwtSvc.VerifyPlayToken(token)
		if err != nil {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", "Invalid play token")
		}

		if credentialID == "" {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", "Invalid credential in token")
		}

		c.Locals(shared.CredentialID, credentialID)
		c.Locals(shared.GameID, gameID)
		return c.Next()
	}
}

// RequireAdminKey gates the admin surface with a pre-shared key checked
// against a bcrypt hash from the environment. No hash configured means the
// surface is closed, not open.
func (svc *AuthMiddleware) RequireAdminKey() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if svc.adminKeyHash == "" {
			log.Warn("ADMIN_KEY_HASH not set, admin API disabled")
			return shared.ResponseJSON(c, http.StatusForbidden, "Forbidden", "Admin API is not configured")
		}

		key := c.Get("X-Admin-Key")
		if key == "" {
			return shared.ResponseJSON(c, http.StatusUnauthorized, "Unauthorized", "Missing admin key")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(svc.adminKeyHash), []byte(key)); err != nil {
			return shared.ResponseJSON(c, http.StatusForbidden, "Forbidden", "Invalid admin key")
		}

		return c.Next()
	}
}
