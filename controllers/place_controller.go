package controllers

import (
	"github.com/gofiber/fiber/v2"

	"linkup/services"
)

type PlaceController struct {
	places *services.PlaceService
}

func NewPlaceController(places *services.PlaceService) *PlaceController {
	return &PlaceController{places: places}
}

// Create adds a meeting place to the catalog.
// Expects JSON body with name and address.
func (plc *PlaceController) Create(c *fiber.Ctx) error {
	var payload struct {
		Name    string `json:"name"`
		Address string `json:"address"`
	}
	if err := c.BodyParser(&payload); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	p, err := plc.places.Create(c.Context(), payload.Name, payload.Address)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"placeId": p.ID})
}
