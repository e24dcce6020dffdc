package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crestbank/crest_bank/internal/banking"
)

// RegisterTransactionRoutes wires the money movement endpoints.
func RegisterTransactionRoutes(r fiber.Router, h *banking.Handler) {
	r.Post("/transactions/deposit", h.Deposit)
	r.Post("/transactions/withdraw", h.Withdraw)
	r.Post("/transactions/transfer", h.Transfer)
	r.Post("/transactions/paybill", h.PayBill)
	r.Get("/transactions/:reference", h.ByReference)
}
