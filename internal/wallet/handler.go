package wallet

import (
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/homefixer/homefixer/internal/middleware"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type walletResponse struct {
	ID        string    `json:"id"`
	Balance   int64     `json:"balance"`
	UpdatedAt time.Time `json:"updated_at"`
}

type transactionResponse struct {
	ID          string    `json:"id"`
	BookingID   *int64    `json:"booking_id"`
	Type        TxType    `json:"type"`
	Amount      int64     `json:"amount"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// Mine returns the caller's wallet and recent history.
func (h *Handler) Mine(c *fiber.Ctx) error {
	stmt, err := h.service.ForOwner(c.UserContext(), middleware.AccountID(c), c.QueryInt("limit", defaultHistoryLimit))
	if err != nil {
		return err
	}
	txs := make([]transactionResponse, 0, len(stmt.Transactions))
	for _, tx := range stmt.Transactions {
		txs = append(txs, transactionResponse{
			ID:          tx.ID,
			BookingID:   tx.BookingID,
			Type:        tx.Type,
			Amount:      tx.Amount,
			Description: tx.Description,
			CreatedAt:   tx.CreatedAt,
		})
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"wallet": walletResponse{
			ID:        stmt.Wallet.ID,
			Balance:   stmt.Wallet.Balance,
			UpdatedAt: stmt.Wallet.UpdatedAt,
		},
		"transactions": txs,
	})
}
