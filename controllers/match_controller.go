package controllers

import (
	"github.com/gofiber/fiber/v2"

	"linkup/services"
)

type MatchController struct {
	matches *services.MatchService
}

func NewMatchController(matches *services.MatchService) *MatchController {
	return &MatchController{matches: matches}
}

// ConfirmPlace sets the match's meeting place, first confirm wins.
// Expects JSON body with placeId.
func (mc *MatchController) ConfirmPlace(c *fiber.Ctx) error {
	matchID := c.Params("matchId")
	var payload struct {
		PlaceID string `json:"placeId"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if payload.PlaceID == "" {
		return c.Status(400).JSON(fiber.Map{"error": "placeId is required"})
	}

	conf, err := mc.matches.ConfirmPlace(c.Context(), matchID, payload.PlaceID, callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"placeName": conf.PlaceName, "placeAddress": conf.PlaceAddress})
}

// Arrived records the caller's arrival at the confirmed place.
func (mc *MatchController) Arrived(c *fiber.Ctx) error {
	status, err := mc.matches.MarkArrived(c.Context(), c.Params("matchId"), callerID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": status})
}

// Complete closes the match as completed.
func (mc *MatchController) Complete(c *fiber.Ctx) error {
	if err := mc.matches.Complete(c.Context(), c.Params("matchId"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(200).JSON(fiber.Map{"message": "Match completed"})
}

// Cancel closes the match as cancelled.
func (mc *MatchController) Cancel(c *fiber.Ctx) error {
	if err := mc.matches.Cancel(c.Context(), c.Params("matchId"), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(200).JSON(fiber.Map{"message": "Match cancelled"})
}
