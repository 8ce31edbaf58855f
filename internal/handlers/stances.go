package handlers

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/billpulse/internal/model"
	"github.com/jjenkins/billpulse/internal/stance"
	"github.com/jjenkins/billpulse/internal/store"
)

// StanceService records and reads users' stances.
type StanceService interface {
	Submit(ctx context.Context, userID, billID int, req stance.SubmitRequest) (*model.UserStance, error)
	Remove(ctx context.Context, userID, billID int) error
	Current(ctx context.Context, userID, billID int) (*stance.Entry, error)
	History(ctx context.Context, userID, billID int) ([]stance.Entry, error)
}

// StanceHandler serves the caller's stance on a bill.
type StanceHandler struct {
	service StanceService
}

func NewStanceHandler(service StanceService) *StanceHandler {
	return &StanceHandler{service: service}
}

// Submit handles POST /bills/:id/stance. A second submission revises the
// caller's active stance.
func (h *StanceHandler) Submit(c *fiber.Ctx) error {
	billID, ok := paramID(c, "id")
	if !ok {
		return BadRequest(c, "Invalid bill ID", nil)
	}

	var req stance.SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return BadRequest(c, "Invalid request body", nil)
	}

	st, err := h.service.Submit(c.UserContext(), CurrentUserID(c), billID, req)
	if err != nil {
		return h.handleError(c, err, "Failed to record stance")
	}

	return c.Status(fiber.StatusCreated).JSON(mapStance(st, false))
}

// Current handles GET /bills/:id/stance.
func (h *StanceHandler) Current(c *fiber.Ctx) error {
	billID, ok := paramID(c, "id")
	if !ok {
		return BadRequest(c, "Invalid bill ID", nil)
	}

	entry, err := h.service.Current(c.UserContext(), CurrentUserID(c), billID)
	if err != nil {
		return h.handleError(c, err, "Failed to load stance")
	}

	return c.JSON(mapStance(&entry.UserStance, entry.BillOutdated))
}

// Remove handles DELETE /bills/:id/stance.
func (h *StanceHandler) Remove(c *fiber.Ctx) error {
	billID, ok := paramID(c, "id")
	if !ok {
		return BadRequest(c, "Invalid bill ID", nil)
	}

	if err := h.service.Remove(c.UserContext(), CurrentUserID(c), billID); err != nil {
		return h.handleError(c, err, "Failed to remove stance")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// History handles GET /bills/:id/stance/history.
func (h *StanceHandler) History(c *fiber.Ctx) error {
	billID, ok := paramID(c, "id")
	if !ok {
		return BadRequest(c, "Invalid bill ID", nil)
	}

	entries, err := h.service.History(c.UserContext(), CurrentUserID(c), billID)
	if err != nil {
		return h.handleError(c, err, "Failed to load stance history")
	}

	revisions := mapEntries(entries)
	return c.JSON(StanceHistoryResponse{Revisions: revisions, Count: len(revisions)})
}

func (h *StanceHandler) handleError(c *fiber.Ctx, err error, message string) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrors):
		return ValidationError(c, validationErrors)
	case errors.Is(err, stance.ErrUserNotFound):
		return NotFound(c, "User not found")
	case errors.Is(err, stance.ErrBillNotFound):
		return NotFound(c, "Bill not found")
	case errors.Is(err, stance.ErrNoActiveStance):
		return NotFound(c, err.Error())
	case errors.Is(err, stance.ErrNoZipCode), errors.Is(err, stance.ErrGuidelinesNotAccepted):
		return Unprocessable(c, err.Error())
	case errors.Is(err, store.ErrStanceConflict):
		return Conflict(c, "Another submission for this stance is in progress; retry the request")
	}
	return InternalServerError(c, message, err)
}
