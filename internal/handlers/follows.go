package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/billpulse/internal/model"
)

// FollowerStore manages bill subscriptions.
type FollowerStore interface {
	Follow(ctx context.Context, userID, billID int, prefs model.NotificationPreferences) (*model.BillFollower, error)
	UpdatePreferences(ctx context.Context, userID, billID int, prefs model.NotificationPreferences) (*model.BillFollower, error)
	Unfollow(ctx context.Context, userID, billID int) (bool, error)
}

// FollowRequest carries notification preferences. Omitted fields take the
// default preferences.
type FollowRequest struct {
	OnAmendment     *bool `json:"notify_on_amendment"`
	OnVote          *bool `json:"notify_on_vote"`
	OnStatusChange  *bool `json:"notify_on_status_change"`
	OnNewDiscussion *bool `json:"notify_on_new_discussion"`
}

func (r FollowRequest) apply(prefs model.NotificationPreferences) model.NotificationPreferences {
	if r.OnAmendment != nil {
		prefs.OnAmendment = *r.OnAmendment
	}
	if r.OnVote != nil {
		prefs.OnVote = *r.OnVote
	}
	if r.OnStatusChange != nil {
		prefs.OnStatusChange = *r.OnStatusChange
	}
	if r.OnNewDiscussion != nil {
		prefs.OnNewDiscussion = *r.OnNewDiscussion
	}
	return prefs
}

// FollowHandler serves bill follow subscriptions for the caller.
type FollowHandler struct {
	followers FollowerStore
	bills     BillReader
}

func NewFollowHandler(followers FollowerStore, bills BillReader) *FollowHandler {
	return &FollowHandler{
		followers: followers,
		bills:     bills,
	}
}

// Follow handles POST /bills/:id/follow.
func (h *FollowHandler) Follow(c *fiber.Ctx) error {
	billID, req, ok, err := h.parse(c)
	if !ok {
		return err
	}

	bill, err := h.bills.GetByID(c.UserContext(), billID)
	if err != nil {
		return InternalServerError(c, "Failed to load bill", err)
	}
	if bill == nil {
		return NotFound(c, "Bill not found")
	}

	prefs := req.apply(model.DefaultNotificationPreferences())
	follower, err := h.followers.Follow(c.UserContext(), CurrentUserID(c), billID, prefs)
	if err != nil {
		return InternalServerError(c, "Failed to follow bill", err)
	}

	return c.Status(fiber.StatusCreated).JSON(mapFollow(follower))
}

// Update handles PUT /bills/:id/follow.
func (h *FollowHandler) Update(c *fiber.Ctx) error {
	billID, req, ok, err := h.parse(c)
	if !ok {
		return err
	}

	prefs := req.apply(model.DefaultNotificationPreferences())
	follower, err := h.followers.UpdatePreferences(c.UserContext(), CurrentUserID(c), billID, prefs)
	if err != nil {
		return InternalServerError(c, "Failed to update follow preferences", err)
	}
	if follower == nil {
		return NotFound(c, "Not following this bill")
	}

	return c.JSON(mapFollow(follower))
}

// Unfollow handles DELETE /bills/:id/follow.
func (h *FollowHandler) Unfollow(c *fiber.Ctx) error {
	billID, ok := paramID(c, "id")
	if !ok {
		return BadRequest(c, "Invalid bill ID", nil)
	}

	removed, err := h.followers.Unfollow(c.UserContext(), CurrentUserID(c), billID)
	if err != nil {
		return InternalServerError(c, "Failed to unfollow bill", err)
	}
	if !removed {
		return NotFound(c, "Not following this bill")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *FollowHandler) parse(c *fiber.Ctx) (int, FollowRequest, bool, error) {
	var req FollowRequest

	billID, ok := paramID(c, "id")
	if !ok {
		return 0, req, false, BadRequest(c, "Invalid bill ID", nil)
	}

	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return 0, req, false, BadRequest(c, "Invalid request body", nil)
		}
	}
	return billID, req, true, nil
}
