package handlers

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/billpulse/internal/district"
	"github.com/jjenkins/billpulse/internal/geo"
	"github.com/jjenkins/billpulse/internal/model"
	"github.com/jjenkins/billpulse/internal/stance"
)

// LocalBillsService finds bills sponsored by a user's representatives or
// scoped to their location.
type LocalBillsService interface {
	LocalBills(ctx context.Context, userID, limit int) (*model.User, []model.SponsoredBill, error)
}

type UserStore interface {
	GetUser(ctx context.Context, id int) (*model.User, error)
	UpdateLocation(ctx context.Context, id int, zip, district string, verifiedAt time.Time) error
}

type DistrictResolver interface {
	LookupDistrict(ctx context.Context, zip string) (string, error)
}

// LocationRequest sets the user's ZIP code.
type LocationRequest struct {
	ZipCode string `json:"zip_code" validate:"required"`
}

// UserHandler serves per-user views and onboarding.
type UserHandler struct {
	local    LocalBillsService
	users    UserStore
	resolver DistrictResolver
	validate *validator.Validate
	now      func() time.Time
}

func NewUserHandler(local LocalBillsService, users UserStore, resolver DistrictResolver) *UserHandler {
	return &UserHandler{
		local:    local,
		users:    users,
		resolver: resolver,
		validate: stance.NewValidator(),
		now:      time.Now,
	}
}

// LocalBills handles GET /users/:id/local-bills.
func (h *UserHandler) LocalBills(c *fiber.Ctx) error {
	userID, ok, err := h.authorize(c)
	if !ok {
		return err
	}

	limit, err := queryInt(c, "limit", defaultPageSize)
	if err != nil || limit < 1 || limit > maxPageSize {
		return BadRequest(c, "Invalid query parameters", map[string]interface{}{
			"limit": "Must be between 1 and " + strconv.Itoa(maxPageSize),
		})
	}

	user, bills, err := h.local.LocalBills(c.UserContext(), userID, limit)
	if err != nil {
		return InternalServerError(c, "Failed to load local bills", err)
	}
	if user == nil {
		return NotFound(c, "User not found")
	}

	out := make([]LocalBill, len(bills))
	for i := range bills {
		out[i] = LocalBill{
			BillData: mapBill(&bills[i].Bill),
			Sponsor:  mapActor(bills[i].Sponsor),
		}
	}

	return c.JSON(LocalBillsResponse{
		District: user.CongressionalDistrict.String,
		Bills:    out,
		Count:    len(out),
	})
}

// UpdateLocation handles PUT /users/:id/location. It resolves the ZIP code to
// a congressional district and stores both.
func (h *UserHandler) UpdateLocation(c *fiber.Ctx) error {
	userID, ok, err := h.authorize(c)
	if !ok {
		return err
	}

	var req LocationRequest
	if err = c.BodyParser(&req); err != nil {
		return BadRequest(c, "Invalid request body", nil)
	}
	if err := h.validate.Struct(req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return ValidationError(c, validationErrors)
		}
		return BadRequest(c, "Invalid request body", nil)
	}

	zip, valid := geo.NormalizeZip(req.ZipCode)
	if !valid {
		return BadRequest(c, "Invalid ZIP code", map[string]interface{}{
			"zip_code": district.ErrInvalidZip.Error(),
		})
	}

	ctx := c.UserContext()
	user, err := h.users.GetUser(ctx, userID)
	if err != nil {
		return InternalServerError(c, "Failed to load user", err)
	}
	if user == nil {
		return NotFound(c, "User not found")
	}

	resolved, err := h.resolver.LookupDistrict(ctx, zip)
	if errors.Is(err, district.ErrInvalidZip) {
		return BadRequest(c, "Invalid ZIP code", map[string]interface{}{"zip_code": err.Error()})
	}
	if err != nil {
		return InternalServerError(c, "Failed to resolve congressional district", err)
	}

	if err := h.users.UpdateLocation(ctx, userID, zip, resolved, h.now()); err != nil {
		return InternalServerError(c, "Failed to update location", err)
	}

	if log := GetLogger(c); log != nil {
		log.Info("User location updated", map[string]interface{}{
			"user_id":  userID,
			"district": resolved,
		})
	}

	return c.JSON(LocationResponse{UserID: userID, ZipCode: zip, District: resolved})
}

// authorize checks the caller is the user named in the path. When ok is
// false a response has already been written and err is its result.
func (h *UserHandler) authorize(c *fiber.Ctx) (userID int, ok bool, err error) {
	userID, valid := paramID(c, "id")
	if !valid {
		return 0, false, BadRequest(c, "Invalid user ID", nil)
	}
	if userID != CurrentUserID(c) {
		return 0, false, Forbidden(c, "Cannot access another user's data")
	}
	return userID, true, nil
}
