package account

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/money"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	store Store
}

// NewHandler builds an account HTTP handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

type openRequest struct {
	OwnerID  string `json:"owner_id"`
	Type     string `json:"type"`
	Currency string `json:"currency"`
}

type accountResponse struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Number    string    `json:"account_number"`
	Type      string    `json:"type"`
	Currency  string    `json:"currency"`
	Balance   string    `json:"balance"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

func toResponse(acc Account) accountResponse {
	return accountResponse{
		ID:        acc.ID.String(),
		OwnerID:   acc.OwnerID.String(),
		Number:    acc.Number,
		Type:      acc.Type,
		Currency:  acc.Currency,
		Balance:   money.Format(acc.Balance),
		Status:    acc.Status,
		CreatedAt: acc.CreatedAt,
	}
}

// Open provisions a new account for an owner.
func (h *Handler) Open(c *fiber.Ctx) error {
	var req openRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	ownerID, err := uuid.Parse(req.OwnerID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid owner_id")
	}
	if req.Type == "" {
		req.Type = TypeChecking
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	acc, err := h.store.Open(c.UserContext(), OpenInput{OwnerID: ownerID, Type: req.Type, Currency: req.Currency})
	if err != nil {
		if errors.Is(err, ErrExhaustedRetries) {
			return fiber.NewError(http.StatusServiceUnavailable, "could not allocate account number")
		}
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toResponse(acc))
}

// Get returns one account by identifier.
func (h *Handler) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	acc, err := h.store.GetByID(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	return c.Status(http.StatusOK).JSON(toResponse(acc))
}

// List returns all accounts for an owner.
func (h *Handler) List(c *fiber.Ctx) error {
	ownerID, err := uuid.Parse(c.Query("owner_id"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "owner_id query parameter is required")
	}
	accounts, err := h.store.ListByOwner(c.UserContext(), ownerID)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, acc := range accounts {
		out = append(out, toResponse(acc))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"accounts": out})
}

// Close transitions an account to closed.
func (h *Handler) Close(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	if err := h.store.Close(c.UserContext(), id); err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			return fiber.NewError(http.StatusNotFound, "account not found")
		case errors.Is(err, ErrInvalidState):
			return fiber.NewError(http.StatusConflict, "account must be active with zero balance")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.SendStatus(http.StatusNoContent)
}
