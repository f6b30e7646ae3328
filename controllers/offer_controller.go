package controllers

import (
	"github.com/gofiber/fiber/v2"

	"linkup/services"
)

type OfferController struct {
	offers *services.OfferService
}

func NewOfferController(offers *services.OfferService) *OfferController {
	return &OfferController{offers: offers}
}

// Create sends an offer from the caller to another user.
// Expects JSON body with targetUserId and optional activityTag.
func (oc *OfferController) Create(c *fiber.Ctx) error {
	var payload struct {
		TargetUserID string `json:"targetUserId"`
		ActivityTag  string `json:"activityTag"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if payload.TargetUserID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "targetUserId is required"})
	}

	res, err := oc.offers.Create(c.Context(), callerID(c), payload.TargetUserID, payload.ActivityTag)
	if err != nil {
		return fail(c, err)
	}
	body := fiber.Map{"offerId": res.OfferID, "matchCreated": res.MatchCreated}
	if res.MatchID != "" {
		body["matchId"] = res.MatchID
	}
	return c.Status(201).JSON(body)
}

// Respond accepts or declines a pending offer addressed to the caller.
func (oc *OfferController) Respond(c *fiber.Ctx) error {
	offerID := c.Params("offerId")
	var payload struct {
		Action string `json:"action"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	res, err := oc.offers.Respond(c.Context(), offerID, callerID(c), payload.Action)
	if err != nil {
		return fail(c, err)
	}
	body := fiber.Map{"matchCreated": res.MatchCreated}
	if res.MatchID != "" {
		body["matchId"] = res.MatchID
	}
	return c.JSON(body)
}

// Cancel withdraws a pending offer sent by the caller.
func (oc *OfferController) Cancel(c *fiber.Ctx) error {
	if err := oc.offers.Cancel(c.Context(), c.Params("offerId"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(200).JSON(fiber.Map{"message": "Offer cancelled"})
}
