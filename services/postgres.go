package services

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/questrail-games/quest_api/model"

	"github.com/alphabatem/common/context"
	log "github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type PostgresService struct {
	context.DefaultService
	db *gorm.DB

	database string
}

const POSTGRES_SVC = "postgres_svc"

func (ds PostgresService) Id() string {
	return POSTGRES_SVC
}

func (ds PostgresService) Db() *gorm.DB {
	return ds.db
}

func (ds *PostgresService) Configure(ctx *context.Context) error {
	ds.database = os.Getenv("DATABASE_URL")
	if ds.database == "" {
		// Fallback to individual environment variables
		host := os.Getenv("DB_HOST")
		if host == "" {
			host = "localhost"
		}
		port := os.Getenv("DB_PORT")
		if port == "" {
			port = "5432"
		}
		user := os.Getenv("DB_USER")
		if user == "" {
			user = "postgres"
		}
		password := os.Getenv("DB_PASSWORD")
		if password == "" {
			password = "postgres"
		}
		dbname := os.Getenv("DB_NAME")
		if dbname == "" {
			dbname = "quest_api"
		}
		sslmode := os.Getenv("DB_SSLMODE")
		if sslmode == "" {
			sslmode = "disable"
		}
		timezone := os.Getenv("DB_TIMEZONE")
		if timezone == "" {
			timezone = "UTC"
		}

		ds.database = fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
			host, user, password, dbname, port, sslmode, timezone)
	}

	return ds.DefaultService.Configure(ctx)
}

func (ds *PostgresService) Start() (err error) {
	// Retry connection with exponential backoff
	maxRetries := 10
	retryDelay := time.Second

	for attempt := 1; attempt <= maxRetries; attempt++ {
		log.Printf("Attempting to connect to database (attempt %d/%d)...", attempt, maxRetries)

		ds.db, err = gorm.Open(postgres.Open(ds.database), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Error),
		})

		if err == nil {
			sqlDB, dbErr := ds.db.DB()
			if dbErr == nil {
				pingErr := sqlDB.Ping()
				if pingErr == nil {
					break
				}
				err = pingErr
			} else {
				err = dbErr
			}
		}

		if attempt == maxRetries {
			log.Printf("Failed to connect to database after %d attempts: %v", maxRetries, err)
			return err
		}

		log.Printf("Database connection failed: %v. Retrying in %v...", err, retryDelay)
		time.Sleep(retryDelay)

		retryDelay *= 2
		if retryDelay > 10*time.Second {
			retryDelay = 10 * time.Second
		}
	}

	models := []interface{}{
		&model.Game{},
		&model.Puzzle{},
		&model.InterstitialScreen{},
		&model.AccessCredential{},
		&model.CredentialUsage{},
		&model.PlaySession{},
		&model.RateLimit{},
	}

	err = ds.db.AutoMigrate(models...)
	if err != nil {
		log.Printf("Failed to migrate database: %v", err)
		return err
	}

	ticker := time.NewTicker(24 * time.Hour)
	go func() {
		for range ticker.C {
			if err := ds.CleanupOldRecords(); err != nil {
				log.Printf("Failed to cleanup expired data: %v", err)
			}
		}
	}()

	log.Println("Database connected and migrated successfully")
	return nil
}

func (ds *PostgresService) Shutdown() {
	sqlDB, err := ds.db.DB()
	if err == nil {
		sqlDB.Close()
	}
}

func (ds *PostgresService) HandleError(err error) error {
	if err == nil {
		return nil
	}

	var statusCode int
	var errorType string

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		statusCode = http.StatusNotFound
		errorType = "NOT_FOUND"
	case errors.Is(err, gorm.ErrDuplicatedKey):
		statusCode = http.StatusConflict
		errorType = "CONFLICT"
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		statusCode = http.StatusBadRequest
		errorType = "FOREIGN_KEY_VIOLATION"
	case errors.Is(err, gorm.ErrInvalidTransaction):
		statusCode = http.StatusInternalServerError
		errorType = "TRANSACTION_ERROR"
	default:
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			statusCode = http.StatusConflict
			errorType = "UNIQUE_CONSTRAINT"
		} else if strings.Contains(err.Error(), "connection refused") {
			statusCode = http.StatusServiceUnavailable
			errorType = "DATABASE_CONNECTION_ERROR"
		} else {
			statusCode = http.StatusInternalServerError
			errorType = "INTERNAL_ERROR"
		}
	}

	logEntry := log.WithFields(log.Fields{
		"status_code": statusCode,
		"error_type":  errorType,
		"error":       err.Error(),
	})

	if statusCode >= 500 {
		logEntry.Error("Database error occurred")
	} else {
		logEntry.Warn("Database operation failed")
	}

	return fmt.Errorf("%s: %w", errorType, err)
}

// isNotFound distinguishes a missing row from a storage failure; callers
// map the former to a user-facing lookup error and the latter to a 500.
func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isDuplicate matches both gorm's translated error and the raw postgres
// unique violation, which surfaces untranslated on some driver paths.
func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key value violates unique constraint")
}

// ==================== GAME METHODS ====================

func (ds *PostgresService) CreateGame(game *model.Game) (*model.Game, error) {
	if game.ID == "" {
		id, _ := uuid.NewV7()
		game.ID = id.String()
	}
	game.CreatedAt = time.Now()
	game.UpdatedAt = time.Now()

	if err := ds.db.Create(game).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return game, nil
}

func (ds *PostgresService) GetGame(id string) (*model.Game, error) {
	var game model.Game
	if err := ds.db.Where("id = ?", id).First(&game).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &game, nil
}

// ==================== PUZZLE METHODS ====================

func (ds *PostgresService) CreatePuzzle(puzzle *model.Puzzle) (*model.Puzzle, error) {
	if puzzle.ID == "" {
		id, _ := uuid.NewV7()
		puzzle.ID = id.String()
	}
	puzzle.CreatedAt = time.Now()
	puzzle.UpdatedAt = time.Now()

	if err := ds.db.Create(puzzle).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return puzzle, nil
}

func (ds *PostgresService) GetPuzzlesByGame(gameID string) ([]model.Puzzle, error) {
	var puzzles []model.Puzzle
	if err := ds.db.Where("game_id = ?", gameID).
		Order("seq ASC").Find(&puzzles).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return puzzles, nil
}

// ==================== INTERSTITIAL SCREEN METHODS ====================

func (ds *PostgresService) CreateScreen(screen *model.InterstitialScreen) (*model.InterstitialScreen, error) {
	if screen.ID == "" {
		id, _ := uuid.NewV7()
		screen.ID = id.String()
	}
	screen.CreatedAt = time.Now()
	screen.UpdatedAt = time.Now()

	if err := ds.db.Create(screen).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return screen, nil
}

func (ds *PostgresService) GetScreensByGame(gameID string) ([]model.InterstitialScreen, error) {
	var screens []model.InterstitialScreen
	if err := ds.db.Where("game_id = ?", gameID).
		Order("seq ASC").Find(&screens).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return screens, nil
}

// ==================== CREDENTIAL METHODS ====================

func (ds *PostgresService) CreateCredential(credential *model.AccessCredential) (*model.AccessCredential, error) {
	if credential.ID == "" {
		id, _ := uuid.NewV7()
		credential.ID = id.String()
	}
	credential.Code = strings.ToUpper(credential.Code)
	credential.CreatedAt = time.Now()
	credential.UpdatedAt = time.Now()

	if err := ds.db.Create(credential).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return credential, nil
}

func (ds *PostgresService) GetCredentialByCode(code string) (*model.AccessCredential, error) {
	var credential model.AccessCredential
	if err := ds.db.Where("code = ? AND is_active = ?", strings.ToUpper(code), true).
		First(&credential).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &credential, nil
}

func (ds *PostgresService) GetCredential(id string) (*model.AccessCredential, error) {
	var credential model.AccessCredential
	if err := ds.db.Where("id = ?", id).First(&credential).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &credential, nil
}

// ActivateCredential stamps the validity window exactly once. The
// conditional update makes concurrent first redemptions safe: only one
// writer matches activated_at IS NULL, everyone reads back the winner's row.
func (ds *PostgresService) ActivateCredential(id string, activatedAt, expiresAt time.Time) (*model.AccessCredential, bool, error) {
	res := ds.db.Model(&model.AccessCredential{}).
		Where("id = ? AND activated_at IS NULL", id).
		Updates(map[string]interface{}{
			"activated_at": activatedAt,
			"expires_at":   expiresAt,
			"updated_at":   time.Now(),
		})
	if res.Error != nil {
		return nil, false, ds.HandleError(res.Error)
	}

	cred, err := ds.GetCredential(id)
	if err != nil {
		return nil, false, err
	}
	return cred, res.RowsAffected > 0, nil
}

func (ds *PostgresService) ListCredentials(gameID string) ([]model.AccessCredential, error) {
	var credentials []model.AccessCredential
	query := ds.db.Model(&model.AccessCredential{})
	if gameID != "" {
		query = query.Where("game_id = ?", gameID)
	}
	if err := query.Order("created_at DESC").Find(&credentials).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return credentials, nil
}

func (ds *PostgresService) CreateCredentialUsage(usage *model.CredentialUsage) error {
	if usage.ID == "" {
		id, _ := uuid.NewV7()
		usage.ID = id.String()
	}
	usage.CreatedAt = time.Now()

	if err := ds.db.Create(usage).Error; err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// ==================== PLAY SESSION METHODS ====================

func (ds *PostgresService) GetSessionByCredentialID(credentialID string) (*model.PlaySession, error) {
	var session model.PlaySession
	if err := ds.db.Where("credential_id = ?", credentialID).First(&session).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &session, nil
}

func (ds *PostgresService) GetSession(id string) (*model.PlaySession, error) {
	var session model.PlaySession
	if err := ds.db.Where("id = ?", id).First(&session).Error; err != nil {
		return nil, ds.HandleError(err)
	}
	return &session, nil
}

// CreateSession inserts the session; a duplicate on credential_id means a
// concurrent resolver won the race, so the loser re-reads the winner's row.
func (ds *PostgresService) CreateSession(session *model.PlaySession) (*model.PlaySession, error) {
	if session.ID == "" {
		id, _ := uuid.NewV7()
		session.ID = id.String()
	}
	if err := ds.db.Create(session).Error; err != nil {
		if isDuplicate(err) {
			return ds.GetSessionByCredentialID(session.CredentialID)
		}
		return nil, ds.HandleError(err)
	}
	return session, nil
}

func (ds *PostgresService) TouchSession(id string, at time.Time) error {
	err := ds.db.Model(&model.PlaySession{}).Where("id = ?", id).Updates(map[string]interface{}{
		"last_activity": at,
		"updated_at":    at,
	}).Error
	if err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// UpdateSessionProgress updates only the named columns so concurrent writes
// to unrelated session fields are never clobbered by a full-row save.
func (ds *PostgresService) UpdateSessionProgress(id string, cols map[string]interface{}) error {
	if len(cols) == 0 {
		return nil
	}
	cols["updated_at"] = time.Now()

	err := ds.db.Model(&model.PlaySession{}).Where("id = ?", id).Updates(cols).Error
	if err != nil {
		return ds.HandleError(err)
	}
	return nil
}

// ==================== RATE LIMIT METHODS ====================

func (ds *PostgresService) GetRateLimit(identifier, endpointType string) (*model.RateLimit, error) {
	var rateLimit model.RateLimit

	err := ds.db.Where("identifier = ? AND endpoint_type = ?", identifier, endpointType).First(&rateLimit).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &rateLimit, nil
}

func (ds *PostgresService) SaveRateLimit(rateLimit *model.RateLimit) error {
	if rateLimit.ID == "" {
		id, _ := uuid.NewV7()
		rateLimit.ID = id.String()
	}

	now := time.Now()
	if rateLimit.CreatedAt.IsZero() {
		rateLimit.CreatedAt = now
	}
	rateLimit.UpdatedAt = now

	if err := ds.db.Save(rateLimit).Error; err != nil {
		return err
	}
	return nil
}

func (ds *PostgresService) UpdateRateLimit(rateLimit *model.RateLimit) error {
	return ds.db.Model(rateLimit).Where("id = ?", rateLimit.ID).Updates(map[string]interface{}{
		"request_count": rateLimit.RequestCount,
		"blocked_until": rateLimit.BlockedUntil,
		"updated_at":    rateLimit.UpdatedAt,
	}).Error
}

// CleanupOldRecords removes stale rate limit rows (older than 7 days and
// not currently blocked).
func (ds *PostgresService) CleanupOldRecords() error {
	cutoff := time.Now().Add(-7 * 24 * time.Hour)
	now := time.Now()

	return ds.db.Where("created_at < ? AND (blocked_until IS NULL OR blocked_until < ?)", cutoff, now).
		Delete(&model.RateLimit{}).Error
}
