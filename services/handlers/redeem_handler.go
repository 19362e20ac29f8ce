package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/questrail-games/quest_api/dto"
	"github.com/questrail-games/quest_api/shared"
)

type RedeemHandler struct {
	credentialSvc CredentialServiceInterface
}

func NewRedeemHandler(credentialSvc CredentialServiceInterface) *RedeemHandler {
	return &RedeemHandler{
		credentialSvc: credentialSvc,
	}
}

// @Summary Redeem Access Code
// @Description Exchanges an access code for a play token. The first redemption starts the validity window; later redemptions resume the same run.
// @Tags play
// @Accept  json
// @Produce json
// @Param redeemRequest body dto.RedeemRequest true "Redeem request"
// @Success 200 {object} shared.Response{data=dto.RedeemResponse}
// @Router /api/v1/redeem [post]
func (h *RedeemHandler) Redeem(c *fiber.Ctx) error {
	var req dto.RedeemRequest
	if err := c.BodyParser(&req); err != nil {
		return shared.NewBadRequestError(err, "Invalid request")
	}

	if err := req.Validate(); err != nil {
		validationResp := dto.CreateValidationErrorResponse(err)
		return c.Status(fiber.StatusBadRequest).JSON(validationResp)
	}

	resp, err := h.credentialSvc.Redeem(req)
	if err != nil {
		return err
	}

	return shared.ResponseJSON(c, fiber.StatusOK, "Success", resp)
}
