package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/shared"
)

type AdminHandler struct {
	contentSvc    ContentServiceInterface
	credentialSvc CredentialServiceInterface
}

func NewAdminHandler(contentSvc ContentServiceInterface, credentialSvc CredentialServiceInterface) *AdminHandler {
	return &AdminHandler{
		contentSvc:    contentSvc,
		credentialSvc: credentialSvc,
	}
}

// @Summary Create Game
// @Tags admin
// @Accept  json
// @Produce json
// @Security AdminKeyAuth
// @Param createGameRequest body dto.CreateGameRequest true "Create game request"
// @Success 201
// @Router /api/v1/admin/games [post]
func (h *AdminHandler) CreateGame(c *fiber.Ctx) error {
	var req dto.CreateGameRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	game, err := h.contentSvc.CreateGame(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", game)
}

// @Summary Create Puzzle
// @Tags admin
// @Accept  json
// @Produce json
// @Security AdminKeyAuth
// @Param createPuzzleRequest body dto.CreatePuzzleRequest true "Create puzzle request"
// @Success 201
// @Router /api/v1/admin/puzzles [post]
func (h *AdminHandler) CreatePuzzle(c *fiber.Ctx) error {
	var req dto.CreatePuzzleRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	puzzle, err := h.contentSvc.CreatePuzzle(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", puzzle)
}

// @Summary Create Interstitial Screen
// @Tags admin
// @Accept  json
// @Produce json
// @Security AdminKeyAuth
// @Param createScreenRequest body dto.CreateScreenRequest true "Create screen request"
// @Success 201
// @Router /api/v1/admin/screens [post]
func (h *AdminHandler) CreateScreen(c *fiber.Ctx) error {
	var req dto.CreateScreenRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	screen, err := h.contentSvc.CreateScreen(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", screen)
}

// @Summary Create Access Credential
// @Description Mints an access code for a game, optionally emailing it to the purchaser.
// @Tags admin
// @Accept  json
// @Produce json
// @Security AdminKeyAuth
// @Param createCredentialRequest body dto.CreateCredentialRequest true "Create credential request"
// @Success 201
// @Router /api/v1/admin/credentials [post]
func (h *AdminHandler) CreateCredential(c *fiber.Ctx) error {
	var req dto.CreateCredentialRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	cred, err := h.credentialSvc.CreateCredential(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusCreated, "Created", cred)
}

// @Summary List Access Credentials
// @Tags admin
// @Produce json
// @Security AdminKeyAuth
// @Param game_id query string false "Filter by game"
// @Success 200 {object} shared.Response{data=[]dto.CredentialListItem}
// @Router /api/v1/admin/credentials [get]
func (h *AdminHandler) ListCredentials(c *fiber.Ctx) error {
	items, err := h.credentialSvc.ListCredentials(c.Query("game_id"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", items)
}
