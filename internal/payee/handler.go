package payee

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes payee directory endpoints.
type Handler struct {
	directory Directory
}

// NewHandler builds a payee HTTP handler.
func NewHandler(directory Directory) *Handler {
	return &Handler{directory: directory}
}

type payeeResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"code"`
	Category string `json:"category"`
}

// List returns active payees, optionally filtered by category.
func (h *Handler) List(c *fiber.Ctx) error {
	var (
		payees []Payee
		err    error
	)
	if category := c.Query("category"); category != "" {
		payees, err = h.directory.ListByCategory(c.UserContext(), category)
	} else {
		payees, err = h.directory.ListActive(c.UserContext())
	}
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	out := make([]payeeResponse, 0, len(payees))
	for _, p := range payees {
		out = append(out, payeeResponse{ID: p.ID, Name: p.Name, Code: p.Code, Category: p.Category})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"payees": out})
}
