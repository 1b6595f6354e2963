package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// RegistrationHandler owns participant registrations. Creating a registration
// with a payment plan generates its installment schedule in the same request.
type RegistrationHandler struct {
	db    *gorm.DB
	plans *services.PlanService
}

func NewRegistrationHandler(db *gorm.DB, plans *services.PlanService) *RegistrationHandler {
	return &RegistrationHandler{db: db, plans: plans}
}

// Create handles POST /api/events/:id/registrations
func (h *RegistrationHandler) Create(c echo.Context) error {
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req CreateRegistrationRequest
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
	if _, err := authorizeEvent(c, h.db, &event, models.PermManageGroups); err != nil {
		return err
	}

	total, err := parseAmount(req.TotalAmount, "total_amount")
	if err != nil {
		return err
	}
	if !total.IsPositive() {
		return services.NewValidationError("total_amount must be positive, got %s", total.String())
	}

	if req.GroupID != nil {
		var group models.ParticipantGroup
		if err := h.db.Where("id = ? AND event_id = ?", *req.GroupID, eventID).First(&group).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return services.NewNotFoundError("group")
			}
			return err
		}
	}

	var plan *models.PaymentPlan
	if req.PaymentPlanID != nil {
		var p models.PaymentPlan
		if err := h.db.Where("id = ? AND event_id = ?", *req.PaymentPlanID, eventID).First(&p).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return services.NewNotFoundError("payment plan")
			}
			return err
		}
		if p.Status != models.PlanStatusActive {
			return services.NewValidationError("payment plan %d is inactive", p.ID)
		}
		plan = &p
	} else {
		// Fall back to the event's default plan when one exists
		var p models.PaymentPlan
		err := h.db.Where("event_id = ? AND is_default = ? AND status = ?",
			eventID, true, models.PlanStatusActive).First(&p).Error
		if err == nil {
			plan = &p
		} else if err != gorm.ErrRecordNotFound {
			return err
		}
	}

	reg := models.Registration{
		EventID:          eventID,
		GroupID:          req.GroupID,
		ParticipantName:  req.ParticipantName,
		ParticipantEmail: req.ParticipantEmail,
		UUID:             uuid.New().String(),
		TotalAmount:      total,
		Status:           models.RegistrationStatusPending,
	}
	if plan != nil {
		reg.PaymentPlanID = &plan.ID
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&reg).Error; err != nil {
			return err
		}
		if plan == nil {
			return nil
		}
		installments, err := services.BuildInstallments(plan, &reg)
		if err != nil {
			return err
		}
		return tx.Create(&installments).Error
	})
	if err != nil {
		return err
	}

	if err := h.db.Preload("Installments", func(db *gorm.DB) *gorm.DB {
		return db.Order("installment_number asc")
	}).First(&reg, reg.ID).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, reg)
}

// Get handles GET /api/registrations/:id
func (h *RegistrationHandler) Get(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var reg models.Registration
	err = h.db.Preload("Event").Preload("Group").
		Preload("Installments", func(db *gorm.DB) *gorm.DB {
			return db.Order("installment_number asc")
		}).First(&reg, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("registration")
		}
		return err
	}
	if _, err := authorizeEvent(c, h.db, &reg.Event, models.PermViewAnalytics); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reg)
}
