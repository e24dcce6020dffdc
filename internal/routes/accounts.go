package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crestbank/crest_bank/internal/account"
	"github.com/crestbank/crest_bank/internal/banking"
	"github.com/crestbank/crest_bank/internal/statement"
)

// RegisterAccountRoutes wires account lifecycle and per-account read endpoints.
func RegisterAccountRoutes(r fiber.Router, h *account.Handler, b *banking.Handler, s *statement.Handler) {
	r.Post("/accounts", h.Open)
	r.Get("/accounts", h.List)
	r.Get("/accounts/:accountId", h.Get)
	r.Post("/accounts/:accountId/close", h.Close)
	r.Get("/accounts/:accountId/transactions", b.Transactions)
	r.Get("/accounts/:accountId/statement", s.Get)
}
