package handlers

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// InstallmentHandler exposes the installment ledger operations
type InstallmentHandler struct {
	db      *gorm.DB
	billing *services.BillingService
	lateFee *services.LateFeeService
}

func NewInstallmentHandler(db *gorm.DB, billing *services.BillingService, lateFee *services.LateFeeService) *InstallmentHandler {
	return &InstallmentHandler{db: db, billing: billing, lateFee: lateFee}
}

// installmentResponse decorates the stored row with the derived display
// status ("partial" when partially paid)
type installmentResponse struct {
	models.PaymentInstallment
	EffectiveStatus string `json:"effective_status"`
}

func newInstallmentResponse(inst models.PaymentInstallment) installmentResponse {
	return installmentResponse{PaymentInstallment: inst, EffectiveStatus: inst.EffectiveStatus()}
}

func newInstallmentResponses(installments []models.PaymentInstallment) []installmentResponse {
	out := make([]installmentResponse, 0, len(installments))
	for _, inst := range installments {
		out = append(out, newInstallmentResponse(inst))
	}
	return out
}

// authorizeInstallment resolves the installment's owning event and checks the
// actor's access to it
func (h *InstallmentHandler) authorizeInstallment(c echo.Context, installmentID uint, perm models.Permission) (*models.User, error) {
	var inst models.PaymentInstallment
	if err := h.db.Preload("Registration.Event").First(&inst, installmentID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, services.NewNotFoundError("installment")
		}
		return nil, err
	}
	return authorizeEvent(c, h.db, &inst.Registration.Event, perm)
}

// ProcessPayment handles POST /api/installments/:id/payment
func (h *InstallmentHandler) ProcessPayment(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req PaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authorizeInstallment(c, id, models.PermManagePayments)
	if err != nil {
		return err
	}

	amount, err := parseAmount(req.Amount, "amount")
	if err != nil {
		return err
	}

	inst, err := h.billing.ProcessPayment(c.Request().Context(), id, amount, req.PaymentMethod, req.Notes, user.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInstallmentResponse(*inst))
}

// ApplyDiscount handles POST /api/installments/:id/discount
func (h *InstallmentHandler) ApplyDiscount(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req DiscountRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authorizeInstallment(c, id, models.PermManagePayments)
	if err != nil {
		return err
	}

	amount, err := parseAmount(req.DiscountAmount, "discount_amount")
	if err != nil {
		return err
	}

	inst, err := h.billing.ApplyDiscount(c.Request().Context(), id, amount, req.Notes, user.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInstallmentResponse(*inst))
}

// ApplyLateFee handles POST /api/installments/:id/late-fee
func (h *InstallmentHandler) ApplyLateFee(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req LateFeeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := h.authorizeInstallment(c, id, models.PermManagePayments)
	if err != nil {
		return err
	}

	amount, err := parseAmount(req.LateFeeAmount, "late_fee_amount")
	if err != nil {
		return err
	}

	inst, err := h.billing.ApplyLateFee(c.Request().Context(), id, amount, req.Notes, user.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInstallmentResponse(*inst))
}

// Waive handles POST /api/installments/:id/waive
func (h *InstallmentHandler) Waive(c echo.Context) error {
	return h.closeInstallment(c, h.billing.Waive)
}

// Cancel handles POST /api/installments/:id/cancel
func (h *InstallmentHandler) Cancel(c echo.Context) error {
	return h.closeInstallment(c, h.billing.Cancel)
}

func (h *InstallmentHandler) closeInstallment(c echo.Context, op func(ctx context.Context, id uint, notes, actor string) (*models.PaymentInstallment, error)) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req NotesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	user, err := h.authorizeInstallment(c, id, models.PermManagePayments)
	if err != nil {
		return err
	}

	inst, err := op(c.Request().Context(), id, req.Notes, user.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInstallmentResponse(*inst))
}

// ListByRegistration handles GET /api/registrations/:id/installments
func (h *InstallmentHandler) ListByRegistration(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var reg models.Registration
	if err := h.db.Preload("Event").First(&reg, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("registration")
		}
		return err
	}
	if _, err := authorizeEvent(c, h.db, &reg.Event, models.PermViewAnalytics); err != nil {
		return err
	}

	installments, err := h.billing.ListByRegistration(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInstallmentResponses(installments))
}

// ListOverdue handles GET /api/overdue-installments?event_id=
func (h *InstallmentHandler) ListOverdue(c echo.Context) error {
	eventID, err := optionalEventID(c.QueryParam("event_id"))
	if err != nil {
		return err
	}

	if eventID != nil {
		var event models.Event
		if err := h.db.First(&event, *eventID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return services.NewNotFoundError("event")
			}
			return err
		}
		if _, err := authorizeEvent(c, h.db, &event, models.PermViewAnalytics); err != nil {
			return err
		}
	} else {
		user, err := currentUser(c, h.db)
		if err != nil {
			return err
		}
		if user.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "event_id is required for non-admin users")
		}
	}

	installments, err := h.billing.ListOverdue(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newInstallmentResponses(installments))
}

// RecalculateLateFees handles POST /api/recalculate-late-fees
func (h *InstallmentHandler) RecalculateLateFees(c echo.Context) error {
	var req RecalculateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	if req.EventID != nil {
		var event models.Event
		if err := h.db.First(&event, *req.EventID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return services.NewNotFoundError("event")
			}
			return err
		}
		if _, err := authorizeEvent(c, h.db, &event, models.PermRecalculateFees); err != nil {
			return err
		}
	} else {
		user, err := currentUser(c, h.db)
		if err != nil {
			return err
		}
		if user.Role != models.RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "event_id is required for non-admin users")
		}
	}

	updated, err := h.lateFee.Recalculate(c.Request().Context(), req.EventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": updated})
}

func optionalEventID(raw string) (*uint, error) {
	if raw == "" {
		return nil, nil
	}
	val, err := strconvParseUint(raw)
	if err != nil {
		return nil, services.NewValidationError("event_id is not a valid id: %q", raw)
	}
	return &val, nil
}
