package statement

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/crestbank/crest_bank/internal/money"
)

// Handler exposes statement endpoints.
type Handler struct {
	builder *Builder
}

// NewHandler builds a statement HTTP handler.
func NewHandler(builder *Builder) *Handler {
	return &Handler{builder: builder}
}

type lineResponse struct {
	Type        string    `json:"type"`
	Amount      string    `json:"amount"`
	Running     string    `json:"running_balance"`
	Description string    `json:"description,omitempty"`
	Reference   string    `json:"reference"`
	CreatedAt   time.Time `json:"created_at"`
}

type statementResponse struct {
	AccountID   string         `json:"account_id"`
	PeriodStart time.Time      `json:"period_start"`
	PeriodEnd   time.Time      `json:"period_end"`
	Opening     string         `json:"opening_balance"`
	Lines       []lineResponse `json:"lines"`
	Closing     string         `json:"closing_balance"`
}

// Get builds the statement for one calendar month.
func (h *Handler) Get(c *fiber.Ctx) error {
	accountID, err := uuid.Parse(c.Params("accountId"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid account id")
	}
	year, err := strconv.Atoi(c.Query("year"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "year query parameter is required")
	}
	month, err := strconv.Atoi(c.Query("month"))
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, "month query parameter is required")
	}

	start, end, err := MonthPeriod(year, month)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	stmt, err := h.builder.Build(c.UserContext(), accountID, start, end)
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	lines := make([]lineResponse, 0, len(stmt.Lines))
	for _, line := range stmt.Lines {
		lines = append(lines, lineResponse{
			Type:        line.Entry.Type,
			Amount:      money.Format(line.Entry.Amount),
			Running:     money.Format(line.Running),
			Description: line.Entry.Description,
			Reference:   line.Entry.Reference,
			CreatedAt:   line.Entry.CreatedAt,
		})
	}

	return c.Status(http.StatusOK).JSON(statementResponse{
		AccountID:   stmt.AccountID.String(),
		PeriodStart: stmt.PeriodStart,
		PeriodEnd:   stmt.PeriodEnd,
		Opening:     money.Format(stmt.Opening),
		Lines:       lines,
		Closing:     money.Format(stmt.Closing),
	})
}
