package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/shared"
)

type PlayHandler struct {
	progressionSvc ProgressionServiceInterface
	sessionSvc     SessionServiceInterface
}

func NewPlayHandler(progressionSvc ProgressionServiceInterface, sessionSvc SessionServiceInterface) *PlayHandler {
	return &PlayHandler{
		progressionSvc: progressionSvc,
		sessionSvc:     sessionSvc,
	}
}

func credentialID(c *fiber.Ctx) string {
	if id, ok := c.Locals(shared.CredentialID).(string); ok {
		return id
	}
	return ""
}

// @Summary Current View
// @Description Returns what the player should see right now: an interstitial screen, the active puzzle, or the completion state.
// @Tags play
// @Produce json
// @Security BearerAuth
// @Success 200 {object} shared.Response{data=dto.ViewResponse}
// @Router /api/v1/play/view [get]
func (h *PlayHandler) GetView(c *fiber.Ctx) error {
	view, err := h.progressionSvc.CurrentView(credentialID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", view)
}

// @Summary Submit Answer
// @Description Judges an answer against the active puzzle. A wrong answer discloses one more clue; a correct one completes the puzzle.
// @Tags play
// @Accept  json
// @Produce json
// @Security BearerAuth
// @Param submitAnswerRequest body dto.SubmitAnswerRequest true "Answer submission"
// @Success 200 {object} shared.Response{data=dto.SubmitAnswerResponse}
// @Router /api/v1/play/answer [post]
func (h *PlayHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req dto.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.progressionSvc.SubmitAnswer(credentialID(c), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Acknowledge Interstitial
// @Description Marks the current interstitial screen as viewed and returns the next view.
// @Tags play
// @Produce json
// @Security BearerAuth
// @Success 200 {object} shared.Response{data=dto.ViewResponse}
// @Router /api/v1/play/interstitial/advance [post]
func (h *PlayHandler) AdvanceInterstitial(c *fiber.Ctx) error {
	view, err := h.progressionSvc.AdvanceInterstitial(credentialID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", view)
}

// @Summary Advance
// @Description Skips the post-answer linger and moves to the next view immediately.
// @Tags play
// @Produce json
// @Security BearerAuth
// @Success 200 {object} shared.Response{data=dto.ViewResponse}
// @Router /api/v1/play/advance [post]
func (h *PlayHandler) Advance(c *fiber.Ctx) error {
	view, err := h.progressionSvc.Advance(credentialID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", view)
}

// @Summary Session Info
// @Description Returns the durable progress of the caller's run.
// @Tags play
// @Produce json
// @Security BearerAuth
// @Success 200 {object} shared.Response{data=dto.SessionResponse}
// @Router /api/v1/play/session [get]
func (h *PlayHandler) GetSession(c *fiber.Ctx) error {
	info, err := h.sessionSvc.Info(credentialID(c))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", info)
}

// @Summary Logout
// @Description Drops the live play state. Progress is kept; redeeming the same code resumes the run.
// @Tags play
// @Produce json
// @Security BearerAuth
// @Success 200
// @Router /api/v1/play/logout [post]
func (h *PlayHandler) Logout(c *fiber.Ctx) error {
	h.progressionSvc.Logout(credentialID(c))
	return shared.ResponseJSON(c, fiber.StatusOK, "Success", nil)
}
