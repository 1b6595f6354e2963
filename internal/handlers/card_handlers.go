package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"eventreg_app/internal/services"
)

// CardHandler handles card payment intents and the gateway webhook
type CardHandler struct {
	cards *services.CardService
}

func NewCardHandler(cards *services.CardService) *CardHandler {
	return &CardHandler{cards: cards}
}

// CreateIntent handles POST /api/installments/:id/card-intent
func (h *CardHandler) CreateIntent(c echo.Context) error {
	installmentID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req CreateChargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	amount := decimal.Zero
	if req.Amount != "" {
		amount, err = parseAmount(req.Amount, "amount")
		if err != nil {
			return err
		}
	}

	payment, err := h.cards.CreateIntent(c.Request().Context(), installmentID, amount)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"intent_id":     payment.IntentID,
		"client_secret": payment.ClientSecret,
		"status":        payment.Status,
		"amount":        payment.Amount,
		"mocked":        h.cards.Mocked(),
	})
}

// Webhook handles POST /api/webhooks/card from the gateway
func (h *CardHandler) Webhook(c echo.Context) error {
	var req CardWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	switch req.Status {
	case "succeeded":
		if _, err := h.cards.MarkSucceeded(c.Request().Context(), req.IntentID, "card-webhook"); err != nil {
			return err
		}
	case "failed", "cancelled":
		if _, err := h.cards.MarkClosed(c.Request().Context(), req.IntentID, req.Status); err != nil {
			return err
		}
	default:
		return services.NewValidationError("unknown card status %q", req.Status)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
