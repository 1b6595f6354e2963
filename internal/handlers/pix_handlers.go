package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// PIXHandler handles PIX charge creation, polling and the provider webhook
type PIXHandler struct {
	pix *services.PIXService
}

func NewPIXHandler(pix *services.PIXService) *PIXHandler {
	return &PIXHandler{pix: pix}
}

func pixChargeResponse(charge *models.PIXPayment, simulated bool) map[string]interface{} {
	return map[string]interface{}{
		"txid":            charge.TxID,
		"status":          charge.Status,
		"amount":          charge.Amount,
		"copy_paste_code": charge.CopyPasteCode,
		"qr_code_image":   charge.QRCodeImage,
		"expires_at":      charge.ExpiresAt,
		"paid_at":         charge.PaidAt,
		"simulated":       simulated,
	}
}

// CreateCharge handles POST /api/installments/:id/pix
func (h *PIXHandler) CreateCharge(c echo.Context) error {
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

	charge, err := h.pix.CreateCharge(c.Request().Context(), installmentID, amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, pixChargeResponse(charge, h.pix.Simulated()))
}

// GetCharge handles GET /api/pix/:txid
func (h *PIXHandler) GetCharge(c echo.Context) error {
	charge, err := h.pix.GetCharge(c.Request().Context(), c.Param("txid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pixChargeResponse(charge, h.pix.Simulated()))
}

// SimulatePay handles POST /api/pix/:txid/simulate-pay. Only available when
// no provider is configured.
func (h *PIXHandler) SimulatePay(c echo.Context) error {
	charge, err := h.pix.SimulatePaid(c.Request().Context(), c.Param("txid"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pixChargeResponse(charge, true))
}

// Webhook handles POST /api/webhooks/pix from the provider
func (h *PIXHandler) Webhook(c echo.Context) error {
	var req PIXWebhookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	switch req.Status {
	case "paid":
		if _, err := h.pix.MarkPaid(c.Request().Context(), req.TxID, "pix-webhook"); err != nil {
			return err
		}
	case "cancelled", "expired", "failed":
		if _, err := h.pix.MarkClosed(c.Request().Context(), req.TxID, models.PIXStatus(req.Status)); err != nil {
			return err
		}
	default:
		return services.NewValidationError("unknown pix status %q", req.Status)
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
