package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// NotificationHandler serves the notification feed and delivery preferences
type NotificationHandler struct {
	db *gorm.DB
}

func NewNotificationHandler(db *gorm.DB) *NotificationHandler {
	return &NotificationHandler{db: db}
}

// List handles GET /api/notifications. Unread first, newest first.
func (h *NotificationHandler) List(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var notifications []models.Notification
	err = h.db.WithContext(c.Request().Context()).
		Where("user_id = ?", user.ID).
		Order("read_at IS NOT NULL, created_at DESC").
		Limit(100).
		Find(&notifications).Error
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"notifications": notifications,
	})
}

// MarkRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}
	id, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var notification models.Notification
	err = h.db.WithContext(c.Request().Context()).
		Where("id = ? AND user_id = ?", id, user.ID).
		First(&notification).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("notification")
		}
		return err
	}

	if notification.ReadAt == nil {
		now := time.Now()
		notification.ReadAt = &now
		if err := h.db.WithContext(c.Request().Context()).Save(&notification).Error; err != nil {
			return err
		}
	}
	return c.JSON(http.StatusOK, notification)
}

// GetPreference handles GET /api/notifications/preference
func (h *NotificationHandler) GetPreference(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var pref models.NotificationPreference
	err = h.db.WithContext(c.Request().Context()).
		Where("user_id = ?", user.ID).First(&pref).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return c.JSON(http.StatusOK, models.NotificationPreference{
				UserID:  user.ID,
				Channel: models.NotificationChannelEmail,
			})
		}
		return err
	}
	return c.JSON(http.StatusOK, pref)
}

// UpdatePreference handles PUT /api/notifications/preference
func (h *NotificationHandler) UpdatePreference(c echo.Context) error {
	user, err := currentUser(c, h.db)
	if err != nil {
		return err
	}

	var req NotificationPreferenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var pref models.NotificationPreference
	err = h.db.WithContext(c.Request().Context()).
		Where(models.NotificationPreference{UserID: user.ID}).
		FirstOrCreate(&pref).Error
	if err != nil {
		return err
	}

	pref.Channel = models.NotificationChannel(req.Channel)
	if err := h.db.WithContext(c.Request().Context()).Save(&pref).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pref)
}
