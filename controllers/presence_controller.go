package controllers

import (
	"github.com/gofiber/fiber/v2"

	"linkup/services"
)

type PresenceController struct {
	presence *services.PresenceService
}

func NewPresenceController(presence *services.PresenceService) *PresenceController {
	return &PresenceController{presence: presence}
}

// Start opens an availability lease for the caller.
// Expects JSON body with activityTag, durationMinutes, lat and lng.
func (pc *PresenceController) Start(c *fiber.Ctx) error {
	var payload struct {
		ActivityTag     string   `json:"activityTag"`
		DurationMinutes int      `json:"durationMinutes"`
		Lat             *float64 `json:"lat"`
		Lng             *float64 `json:"lng"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if payload.Lat == nil || payload.Lng == nil {
		return c.Status(400).JSON(fiber.Map{"error": "lat and lng are required"})
	}

	p, err := pc.presence.Start(c.Context(), callerID(c), payload.ActivityTag, payload.DurationMinutes, *payload.Lat, *payload.Lng)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(p)
}

// End closes the caller's availability lease.
func (pc *PresenceController) End(c *fiber.Ctx) error {
	if err := pc.presence.End(c.Context(), callerID(c)); err != nil {
		return fail(c, err)
	}
	return c.Status(200).JSON(fiber.Map{"message": "Availability ended"})
}
