package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// PlanHandler owns payment plan configuration per event
type PlanHandler struct {
	db    *gorm.DB
	plans *services.PlanService
}

func NewPlanHandler(db *gorm.DB, plans *services.PlanService) *PlanHandler {
	return &PlanHandler{db: db, plans: plans}
}

// Create handles POST /api/events/:id/payment-plans
func (h *PlanHandler) Create(c echo.Context) error {
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var event models.Event
	if err := h.db.First(&event, eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("event")
		}
		return err
	}
	if _, err := authorizeEvent(c, h.db, &event, models.PermManageEvents); err != nil {
		return err
	}

	firstDue, err := parseDate(req.FirstInstallmentDate, "first_installment_date")
	if err != nil {
		return err
	}

	plan := models.PaymentPlan{
		EventID:              eventID,
		Name:                 req.Name,
		InstallmentCount:     req.InstallmentCount,
		InstallmentInterval:  models.InstallmentInterval(req.InstallmentInterval),
		FirstInstallmentDate: firstDue,
		LateFeePolicy:        datatypes.JSONMap(req.LateFeePolicy),
		DiscountPolicy:       datatypes.JSONMap(req.DiscountPolicy),
		IsDefault:            req.IsDefault,
		Status:               models.PlanStatusActive,
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		// Only one default plan per event
		if plan.IsDefault {
			if err := tx.Model(&models.PaymentPlan{}).
				Where("event_id = ?", eventID).
				Update("is_default", false).Error; err != nil {
				return err
			}
		}
		return tx.Create(&plan).Error
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, plan)
}

// List handles GET /api/events/:id/payment-plans
func (h *PlanHandler) List(c echo.Context) error {
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var event models.Event
	if err := h.db.First(&event, eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("event")
		}
		return err
	}
	if _, err := authorizeEvent(c, h.db, &event, models.PermViewAnalytics); err != nil {
		return err
	}

	var plans []models.PaymentPlan
	if err := h.db.Where("event_id = ?", eventID).Order("created_at asc").Find(&plans).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plans)
}

// Deactivate handles POST /api/payment-plans/:id/deactivate. Plans with
// generated installments cannot be edited, only deactivated for new use.
func (h *PlanHandler) Deactivate(c echo.Context) error {
	planID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var plan models.PaymentPlan
	if err := h.db.Preload("Event").First(&plan, planID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("payment plan")
		}
		return err
	}
	if _, err := authorizeEvent(c, h.db, &plan.Event, models.PermManageEvents); err != nil {
		return err
	}

	if err := h.db.Model(&plan).Update("status", models.PlanStatusInactive).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}

// Update handles PUT /api/payment-plans/:id. Rejected once installments have
// been generated from the plan.
func (h *PlanHandler) Update(c echo.Context) error {
	planID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req CreatePlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var plan models.PaymentPlan
	if err := h.db.Preload("Event").First(&plan, planID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("payment plan")
		}
		return err
	}
	if _, err := authorizeEvent(c, h.db, &plan.Event, models.PermManageEvents); err != nil {
		return err
	}

	generated, err := h.plans.HasGeneratedInstallments(c.Request().Context(), plan.ID)
	if err != nil {
		return err
	}
	if generated {
		return services.NewValidationError("plan %d has generated installments and is immutable", plan.ID)
	}

	firstDue, err := parseDate(req.FirstInstallmentDate, "first_installment_date")
	if err != nil {
		return err
	}

	plan.Name = req.Name
	plan.InstallmentCount = req.InstallmentCount
	plan.InstallmentInterval = models.InstallmentInterval(req.InstallmentInterval)
	plan.FirstInstallmentDate = firstDue
	plan.LateFeePolicy = datatypes.JSONMap(req.LateFeePolicy)
	plan.DiscountPolicy = datatypes.JSONMap(req.DiscountPolicy)
	plan.IsDefault = req.IsDefault

	if err := h.db.Save(&plan).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, plan)
}
