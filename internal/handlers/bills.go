package handlers

import (
	"context"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/jjenkins/billpulse/internal/consensus"
	"github.com/jjenkins/billpulse/internal/model"
	"github.com/jjenkins/billpulse/internal/store"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// BillReader is the read side of the bill store.
type BillReader interface {
	GetByID(ctx context.Context, id int) (*model.Bill, error)
	List(ctx context.Context, filter store.BillFilter) ([]model.Bill, error)
	GetSponsor(ctx context.Context, billID int) (*model.BillActor, error)
	ListEvents(ctx context.Context, billID int) ([]model.BillEvent, error)
	ListVersions(ctx context.Context, billID int) ([]model.BillVersion, error)
}

// ConsensusReader computes bill statistics.
type ConsensusReader interface {
	BillSummary(ctx context.Context, billID int) (*consensus.Summary, error)
	BillGeography(ctx context.Context, billID int) (*consensus.Geography, error)
}

// BillHandler serves bills and their consensus statistics.
type BillHandler struct {
	bills     BillReader
	consensus ConsensusReader
}

func NewBillHandler(bills BillReader, engine ConsensusReader) *BillHandler {
	return &BillHandler{
		bills:     bills,
		consensus: engine,
	}
}

// List handles GET /bills with optional keyword, sponsor, national and sort
// parameters.
func (h *BillHandler) List(c *fiber.Ctx) error {
	filter := store.BillFilter{
		Status:  model.BillStatus(c.Query("status")),
		Chamber: model.Chamber(c.Query("chamber")),
		Query:   c.Query("q"),
		Sponsor: c.Query("sponsor"),
		Sort:    store.BillSort(c.Query("sort")),
	}

	var details map[string]interface{}
	var err error
	if !filter.Sort.Valid() {
		details = addDetail(details, "sort", "Must be one of last_action, last_action_asc, introduced, introduced_asc, popular")
	}
	if raw := c.Query("national"); raw != "" {
		national, perr := strconv.ParseBool(raw)
		if perr != nil {
			details = addDetail(details, "national", "Must be true or false")
		} else {
			filter.National = &national
		}
	}
	if filter.Congress, err = queryInt(c, "congress", 0); err != nil || filter.Congress < 0 {
		details = addDetail(details, "congress", "Must be a positive integer")
	}
	if filter.Limit, err = queryInt(c, "limit", defaultPageSize); err != nil || filter.Limit < 1 || filter.Limit > maxPageSize {
		details = addDetail(details, "limit", "Must be between 1 and "+strconv.Itoa(maxPageSize))
	}
	if filter.Offset, err = queryInt(c, "offset", 0); err != nil || filter.Offset < 0 {
		details = addDetail(details, "offset", "Must be a non-negative integer")
	}
	if details != nil {
		return BadRequest(c, "Invalid query parameters", details)
	}

	bills, err := h.bills.List(c.UserContext(), filter)
	if err != nil {
		return InternalServerError(c, "Failed to list bills", err)
	}

	out := make([]BillData, len(bills))
	for i := range bills {
		out[i] = mapBill(&bills[i])
	}

	return c.JSON(BillListResponse{Bills: out, Count: len(out)})
}

// Get handles GET /bills/:id.
func (h *BillHandler) Get(c *fiber.Ctx) error {
	bill, ok, err := h.loadBill(c)
	if !ok {
		return err
	}
	ctx := c.UserContext()

	sponsor, err := h.bills.GetSponsor(ctx, bill.ID)
	if err != nil {
		return InternalServerError(c, "Failed to load sponsor", err)
	}
	events, err := h.bills.ListEvents(ctx, bill.ID)
	if err != nil {
		return InternalServerError(c, "Failed to load bill events", err)
	}
	versions, err := h.bills.ListVersions(ctx, bill.ID)
	if err != nil {
		return InternalServerError(c, "Failed to load bill versions", err)
	}

	return c.JSON(BillDetailResponse{
		Bill:     mapBill(bill),
		Sponsor:  mapActor(sponsor),
		Events:   mapEvents(events),
		Versions: mapVersions(versions),
	})
}

// Consensus handles GET /bills/:id/consensus.
func (h *BillHandler) Consensus(c *fiber.Ctx) error {
	bill, ok, err := h.loadBill(c)
	if !ok {
		return err
	}

	summary, err := h.consensus.BillSummary(c.UserContext(), bill.ID)
	if err != nil {
		return InternalServerError(c, "Failed to calculate consensus", err)
	}
	return c.JSON(summary)
}

// Geography handles GET /bills/:id/geography.
func (h *BillHandler) Geography(c *fiber.Ctx) error {
	bill, ok, err := h.loadBill(c)
	if !ok {
		return err
	}

	geography, err := h.consensus.BillGeography(c.UserContext(), bill.ID)
	if err != nil {
		return InternalServerError(c, "Failed to calculate geographic consensus", err)
	}
	return c.JSON(geography)
}

// loadBill resolves the :id parameter. When ok is false a response has
// already been written and err is its result.
func (h *BillHandler) loadBill(c *fiber.Ctx) (bill *model.Bill, ok bool, err error) {
	id, valid := paramID(c, "id")
	if !valid {
		return nil, false, BadRequest(c, "Invalid bill ID", nil)
	}

	bill, err = h.bills.GetByID(c.UserContext(), id)
	if err != nil {
		return nil, false, InternalServerError(c, "Failed to load bill", err)
	}
	if bill == nil {
		return nil, false, NotFound(c, "Bill not found")
	}
	return bill, true, nil
}

func queryInt(c *fiber.Ctx, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func addDetail(details map[string]interface{}, field, message string) map[string]interface{} {
	if details == nil {
		details = make(map[string]interface{})
	}
	details[field] = message
	return details
}

func paramID(c *fiber.Ctx, key string) (int, bool) {
	id, err := c.ParamsInt(key)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
