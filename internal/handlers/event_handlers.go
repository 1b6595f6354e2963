package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// EventHandler owns event CRUD
type EventHandler struct {
	db *gorm.DB
}

func NewEventHandler(db *gorm.DB) *EventHandler {
	return &EventHandler{db: db}
}

// Create handles POST /api/events
func (h *EventHandler) Create(c echo.Context) error {
	var req CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}
	if !user.Can(models.PermManageEvents) {
		return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	}

	startsAt, err := parseDate(req.StartsAt, "starts_at")
	if err != nil {
		return err
	}
	endsAt, err := parseDate(req.EndsAt, "ends_at")
	if err != nil {
		return err
	}
	if endsAt.Before(startsAt) {
		return services.NewValidationError("ends_at cannot be before starts_at")
	}

	event := models.Event{
		OrganizerID:    user.ID,
		Name:           req.Name,
		Description:    req.Description,
		StartsAt:       startsAt,
		EndsAt:         endsAt,
		Status:         models.EventStatusDraft,
		LateFeePolicy:  datatypes.JSONMap(req.LateFeePolicy),
		DiscountPolicy: datatypes.JSONMap(req.DiscountPolicy),
	}
	if err := h.db.Create(&event).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

// List handles GET /api/events; organizers see their own events, admins all
func (h *EventHandler) List(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	query := h.db.Order("starts_at desc")
	if user.Role != models.RoleAdmin {
		query = query.Where("organizer_id = ?", user.ID)
	}

	var events []models.Event
	if err := query.Find(&events).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, events)
}

// Get handles GET /api/events/:id
func (h *EventHandler) Get(c echo.Context) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var event models.Event
	if err := h.db.Preload("Groups").Preload("PaymentPlans").First(&event, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("event")
		}
		return err
	}
	if _, err := authorizeEvent(c, h.db, &event, models.PermViewAnalytics); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, event)
}
