package banking

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/account"
	"github.com/crestbank/crest_bank/internal/ledger"
	"github.com/crestbank/crest_bank/internal/money"
	"github.com/crestbank/crest_bank/internal/payee"
	"github.com/crestbank/crest_bank/internal/storage"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Handler exposes the money movement and transaction listing endpoints.
type Handler struct {
	service *Service
	log     ledger.Log
}

// NewHandler builds a banking HTTP handler.
func NewHandler(service *Service, log ledger.Log) *Handler {
	return &Handler{service: service, log: log}
}

type entryResponse struct {
	ID                string    `json:"id"`
	AccountID         string    `json:"account_id"`
	AccountNumber     string    `json:"account_number"`
	Type              string    `json:"type"`
	Amount            string    `json:"amount"`
	BalanceAfter      string    `json:"balance_after"`
	Description       string    `json:"description,omitempty"`
	Reference         string    `json:"reference"`
	DestinationNumber string    `json:"destination_account_number,omitempty"`
	PayeeName         string    `json:"payee_name,omitempty"`
	PayeeCode         string    `json:"payee_code,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

func toEntryResponse(e ledger.Entry) entryResponse {
	return entryResponse{
		ID:                e.ID.String(),
		AccountID:         e.AccountID.String(),
		AccountNumber:     e.AccountNumber,
		Type:              e.Type,
		Amount:            money.Format(e.Amount),
		BalanceAfter:      money.Format(e.BalanceAfter),
		Description:       e.Description,
		Reference:         e.Reference,
		DestinationNumber: e.DestinationAccountNumber,
		PayeeName:         e.PayeeName,
		PayeeCode:         e.PayeeCode,
		CreatedAt:         e.CreatedAt,
	}
}

func auditFrom(c *fiber.Ctx) Audit {
	return Audit{OriginAddress: c.IP(), ClientAgent: c.Get(fiber.HeaderUserAgent)}
}

// mapError translates engine errors to HTTP failures.
func mapError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrSameAccount):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, "insufficient funds")
	case errors.Is(err, account.ErrNotFound), errors.Is(err, payee.ErrNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, account.ErrInvalidState), errors.Is(err, payee.ErrInactive):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrBusy):
		return fiber.NewError(http.StatusServiceUnavailable, "account is busy, retry later")
	case errors.Is(err, ErrExhaustedRetries):
		return fiber.NewError(http.StatusServiceUnavailable, "could not allocate transaction reference")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

type depositRequest struct {
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// Deposit credits an account.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	var req depositRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account_id")
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.service.Deposit(c.UserContext(), DepositInput{
		AccountID:   accountID,
		Amount:      amount,
		Description: req.Description,
		Audit:       auditFrom(c),
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toEntryResponse(entry))
}

type withdrawRequest struct {
	AccountID   string `json:"account_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// Withdraw debits an account.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account_id")
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.service.Withdraw(c.UserContext(), WithdrawInput{
		AccountID:   accountID,
		Amount:      amount,
		Description: req.Description,
		Audit:       auditFrom(c),
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toEntryResponse(entry))
}

type transferRequest struct {
	AccountID         string `json:"account_id"`
	DestinationNumber string `json:"destination_account_number"`
	Amount            string `json:"amount"`
	Description       string `json:"description"`
}

// Transfer moves funds between accounts.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account_id")
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.service.Transfer(c.UserContext(), TransferInput{
		AccountID:         accountID,
		DestinationNumber: req.DestinationNumber,
		Amount:            amount,
		Description:       req.Description,
		Audit:             auditFrom(c),
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toEntryResponse(entry))
}

type payBillRequest struct {
	AccountID   string `json:"account_id"`
	PayeeID     string `json:"payee_id"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
}

// PayBill pays a bill to a directory payee.
func (h *Handler) PayBill(c *fiber.Ctx) error {
	var req payBillRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	accountID, err := uuid.Parse(req.AccountID)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account_id")
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	entry, err := h.service.PayBill(c.UserContext(), PayBillInput{
		AccountID:   accountID,
		PayeeID:     req.PayeeID,
		Amount:      amount,
		Description: req.Description,
		Audit:       auditFrom(c),
	})
	if err != nil {
		return mapError(err)
	}
	return c.Status(http.StatusCreated).JSON(toEntryResponse(entry))
}

// Transactions lists an account's entries, newest first.
func (h *Handler) Transactions(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	limit := queryInt(c, "limit", defaultListLimit)
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	entries, err := h.log.ByAccount(c.UserContext(), accountID, limit, offset)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}

// ByReference looks a transaction up by its reference number.
func (h *Handler) ByReference(c *fiber.Ctx) error {
	entries, err := h.log.ByReference(c.UserContext(), c.Params("reference"))
	if err != nil {
		if errors.Is(err, ledger.ErrNotFound) {
			return fiber.NewError(http.StatusNotFound, "transaction not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"transactions": out})
}

func queryInt(c *fiber.Ctx, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}
