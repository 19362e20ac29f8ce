package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/shared"
)

type TrialHandler struct {
	trialSvc TrialServiceInterface
}

func NewTrialHandler(trialSvc TrialServiceInterface) *TrialHandler {
	return &TrialHandler{
		trialSvc: trialSvc,
	}
}

// @Summary Start Trial Run
// @Description Opens an ephemeral demo run. Nothing is persisted; the run disappears on restart or after idling out.
// @Tags trial
// @Accept  json
// @Produce json
// @Param startTrialRequest body dto.StartTrialRequest true "Start trial request"
// @Success 200 {object} shared.Response{data=dto.StartTrialResponse}
// @Router /api/v1/trial [post]
func (h *TrialHandler) StartRun(c *fiber.Ctx) error {
	var req dto.StartTrialRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return shared.NewBadRequestError(err, "Invalid request")
		}
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.trialSvc.StartRun(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Trial Current View
// @Tags trial
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200 {object} shared.Response{data=dto.ViewResponse}
// @Router /api/v1/trial/{runId}/view [get]
func (h *TrialHandler) GetView(c *fiber.Ctx) error {
	view, err := h.trialSvc.View(c.Params("runId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", view)
}

// @Summary Trial Submit Answer
// @Tags trial
// @Accept  json
// @Produce json
// @Param runId path string true "Run ID"
// @Param submitAnswerRequest body dto.SubmitAnswerRequest true "Answer submission"
// @Success 200 {object} shared.Response{data=dto.SubmitAnswerResponse}
// @Router /api/v1/trial/{runId}/answer [post]
func (h *TrialHandler) SubmitAnswer(c *fiber.Ctx) error {
	var req dto.SubmitAnswerRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.trialSvc.Submit(c.Params("runId"), req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}

// @Summary Trial Acknowledge Interstitial
// @Tags trial
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200 {object} shared.Response{data=dto.ViewResponse}
// @Router /api/v1/trial/{runId}/interstitial/advance [post]
func (h *TrialHandler) AdvanceInterstitial(c *fiber.Ctx) error {
	view, err := h.trialSvc.AdvanceInterstitial(c.Params("runId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", view)
}

// @Summary Trial Advance
// @Tags trial
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200 {object} shared.Response{data=dto.ViewResponse}
// @Router /api/v1/trial/{runId}/advance [post]
func (h *TrialHandler) Advance(c *fiber.Ctx) error {
	view, err := h.trialSvc.Advance(c.Params("runId"))
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", view)
}

// @Summary Reset Trial Run
// @Description Rewinds the run to the beginning, keeping the run id.
// @Tags trial
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200
// @Router /api/v1/trial/{runId}/reset [post]
func (h *TrialHandler) Reset(c *fiber.Ctx) error {
	if err := h.trialSvc.Reset(c.Params("runId")); err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", nil)
}

// @Summary End Trial Run
// @Tags trial
// @Produce json
// @Param runId path string true "Run ID"
// @Success 200
// @Router /api/v1/trial/{runId} [delete]
func (h *TrialHandler) EndRun(c *fiber.Ctx) error {
	h.trialSvc.EndRun(c.Params("runId"))
	return shared.ResponseJSON(c, fiber.StatusOK, "Success", nil)
}
