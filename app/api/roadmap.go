package api

import (
	"careerai/app/service/roadmap"
	"errors"

	"github.com/gofiber/fiber/v2"
)

func userID(c *fiber.Ctx) string {
	return c.Get(userHeader)
}

func roadmapError(err error) error {
	switch {
	case errors.Is(err, roadmap.ErrUnauthenticated):
		return fiber.NewError(fiber.StatusUnauthorized, "Authentication required")
	case errors.Is(err, roadmap.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, "Roadmap item not found")
	case errors.Is(err, roadmap.ErrInvalid):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return err
	}
}

func (s *Server) listItems(c *fiber.Ctx) error {
	items, err := s.roadmap.List(c.UserContext(), userID(c))
	if err != nil {
		return roadmapError(err)
	}
	return c.JSON(items)
}

func (s *Server) createItem(c *fiber.Ctx) error {
	var input roadmap.CreateInput
	if err := c.BodyParser(&input); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}

	item, err := s.roadmap.Create(c.UserContext(), userID(c), input)
	if err != nil {
		return roadmapError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

func (s *Server) getItem(c *fiber.Ctx) error {
	item, err := s.roadmap.Get(c.UserContext(), userID(c), c.Params("id"))
	if err != nil {
		return roadmapError(err)
	}
	return c.JSON(item)
}

func (s *Server) updateItem(c *fiber.Ctx) error {
	var patch roadmap.Patch
	if err := c.BodyParser(&patch); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}

	item, err := s.roadmap.Update(c.UserContext(), userID(c), c.Params("id"), patch)
	if err != nil {
		return roadmapError(err)
	}
	return c.JSON(item)
}

func (s *Server) deleteItem(c *fiber.Ctx) error {
	if err := s.roadmap.Delete(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return roadmapError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
