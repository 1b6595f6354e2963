package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// AnalyticsHandler exposes the read-only payment rollups
type AnalyticsHandler struct {
	db        *gorm.DB
	analytics *services.AnalyticsService
}

func NewAnalyticsHandler(db *gorm.DB, analytics *services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{db: db, analytics: analytics}
}

// EventAnalytics handles GET /api/events/:id/payment-analytics
func (h *AnalyticsHandler) EventAnalytics(c echo.Context) error {
	eventID, err := h.authorizeEventParam(c)
	if err != nil {
		return err
	}

	summary, err := h.analytics.ForEvent(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// EventReport handles GET /api/events/:id/payment-report
func (h *AnalyticsHandler) EventReport(c echo.Context) error {
	eventID, err := h.authorizeEventParam(c)
	if err != nil {
		return err
	}

	report, err := h.analytics.EventReport(c.Request().Context(), eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, report)
}

// GroupAnalytics handles GET /api/groups/:id/payment-analytics
func (h *AnalyticsHandler) GroupAnalytics(c echo.Context) error {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var group models.ParticipantGroup
	if err := h.db.First(&group, groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("group")
		}
		return err
	}
	if _, err := authorizeGroup(c, h.db, &group, models.PermViewAnalytics); err != nil {
		return err
	}

	summary, err := h.analytics.ForGroup(c.Request().Context(), groupID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

// RegistrationAnalytics handles GET /api/registrations/:id/payment-analytics
func (h *AnalyticsHandler) RegistrationAnalytics(c echo.Context) error {
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

	summary, err := h.analytics.ForRegistration(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}

func (h *AnalyticsHandler) authorizeEventParam(c echo.Context) (uint, error) {
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return 0, err
	}

	var event models.Event
	if err := h.db.First(&event, eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, services.NewNotFoundError("event")
		}
		return 0, err
	}
	if _, err := authorizeEvent(c, h.db, &event, models.PermViewAnalytics); err != nil {
		return 0, err
	}
	return eventID, nil
}
