package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/alphabatem/common/context"
)

// JWTService issues and verifies play tokens. A play token is minted at
// redemption and carries the credential and game it belongs to; its expiry
// mirrors the credential's window so the token dies with the credential.
type JWTService struct {
	context.DefaultService

	SentinelTokenDuration time.Duration
	jwtSecretKey          string
}

type PlayClaims struct {
	CredentialID string `json:"credential_id"`
	GameID       string `json:"game_id"`
	jwt.RegisteredClaims
}

const JWT_SVC = "jwt_svc"

func (svc JWTService) Id() string {
	return JWT_SVC
}

func (svc *JWTService) Configure(ctx *context.Context) error {
	svc.SentinelTokenDuration = 24 * time.Hour
	svc.jwtSecretKey = os.Getenv("JWT_SECRET")
	return svc.DefaultService.Configure(ctx)
}

func (svc *JWTService) Start() error {
	return nil
}

// IssuePlayToken signs a token for the credential. expiresAt may be nil for
// sentinel credentials, which get a rolling window instead.
func (svc *JWTService) IssuePlayToken(credentialID, gameID string, expiresAt *time.Time) (string, error) {
	expTime := time.Now().Add(svc.SentinelTokenDuration)
	if expiresAt != nil {
		expTime = *expiresAt
	}

	claims := &PlayClaims{
		CredentialID: credentialID,
		GameID:       gameID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "QuestTrail",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(svc.jwtSecretKey))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %v", err)
	}

	return tokenString, nil
}

// VerifyPlayToken validates the token and returns the credential and game ids.
func (svc *JWTService) VerifyPlayToken(jwtToken string) (string, string, error) {
	token, err := jwt.ParseWithClaims(jwtToken, &PlayClaims{}, svc.getJWTKey)
	if err == nil && token.Valid {
		claims, ok := token.Claims.(*PlayClaims)
		if ok && claims != nil {
			expTime, err := claims.GetExpirationTime()
			if err != nil {
				return "", "", fmt.Errorf("failed to get expiration time: %v", err)
			}
			now := jwt.NewNumericDate(time.Now())
			if expTime.Unix() < now.Unix() {
				return "", "", errors.New("token has expired")
			}

			return claims.CredentialID, claims.GameID, nil
		}
	}

	return "", "", errors.New("unsupported JWT format")
}

func (svc *JWTService) getJWTKey(token *jwt.Token) (interface{}, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
	}

	return []byte(svc.jwtSecretKey), nil
}

func (svc *JWTService) ExtractTokenFromHeader(authHeader string) (string, error) {
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	if len(authHeader) < 7 || authHeader[:7] != "Bearer " {
		return "", errors.New("invalid authorization header format")
	}

	return authHeader[7:], nil
}
