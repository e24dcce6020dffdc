package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/crestbank/crest_bank/internal/payee"
)

// RegisterPayeeRoutes wires the payee directory endpoints.
func RegisterPayeeRoutes(r fiber.Router, h *payee.Handler) {
	r.Get("/payees", h.List)
}
