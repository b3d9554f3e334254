package api

import (
	"careerai/app/service/advisor"
	"careerai/app/service/assessment"
	"careerai/app/service/profile"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var errRequestCancelled = fiber.NewError(fiber.StatusServiceUnavailable, "Request cancelled")

type historyEntry struct {
	Role string `json:"role"`
	Text string `json:"text"`
	// Content is accepted as an alias of Text
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp"`
}

type chatRequest struct {
	Message string         `json:"message"`
	History []historyEntry `json:"history"`
}

func toTurns(entries []historyEntry) []profile.Turn {
	turns := make([]profile.Turn, 0, len(entries))
	for _, entry := range entries {
		role, ok := profile.ParseRole(entry.Role)
		if !ok {
			continue
		}

		text := entry.Text
		if text == "" {
			text = entry.Content
		}

		turn := profile.Turn{
			Role: role,
			Text: text,
		}
		if entry.Timestamp != nil {
			turn.Timestamp = *entry.Timestamp
		}
		turns = append(turns, turn)
	}
	return turns
}

func (s *Server) chat(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}

	req.Message = strings.TrimSpace(req.Message)
	if req.Message == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Please provide a message")
	}

	reply, err := s.advisor.GenerateReply(c.UserContext(), req.Message, toTurns(req.History))
	if errors.Is(err, advisor.ErrUnavailable) {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": advisor.UnavailableMessage(err),
		})
	}
	if errors.Is(err, context.Canceled) {
		return errRequestCancelled
	}
	if err != nil {
		return err
	}

	return c.JSON(reply)
}

func (s *Server) assess(c *fiber.Ctx) error {
	var req assessment.Request
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid JSON body")
	}

	dashboard, err := s.assessment.Assess(c.UserContext(), req)
	if errors.Is(err, assessment.ErrInvalidRequest) {
		return fiber.NewError(fiber.StatusBadRequest, "Name is required")
	}
	if errors.Is(err, context.Canceled) {
		return errRequestCancelled
	}
	if err != nil {
		return err
	}

	return c.JSON(dashboard)
}
