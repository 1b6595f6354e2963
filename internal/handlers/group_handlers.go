package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

// GroupHandler owns participant groups and manager delegation
type GroupHandler struct {
	db *gorm.DB
}

func NewGroupHandler(db *gorm.DB) *GroupHandler {
	return &GroupHandler{db: db}
}

// Create handles POST /api/events/:id/groups
func (h *GroupHandler) Create(c echo.Context) error {
	eventID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req CreateGroupRequest
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

	group := models.ParticipantGroup{
		EventID:     eventID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := h.db.Create(&group).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, group)
}

// List handles GET /api/events/:id/groups
func (h *GroupHandler) List(c echo.Context) error {
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

	var groups []models.ParticipantGroup
	if err := h.db.Preload("Managers.User").Where("event_id = ?", eventID).Order("name asc").Find(&groups).Error; err != nil {
		return err
	}
	return c.JSON(http.StatusOK, groups)
}

// AssignManager handles PUT /api/groups/:id/manager. The delegated user is
// granted the manager role when they hold none above viewer.
func (h *GroupHandler) AssignManager(c echo.Context) error {
	groupID, err := parseUintParam(c, "id")
	if err != nil {
		return err
	}

	var req AssignManagerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	var group models.ParticipantGroup
	if err := h.db.First(&group, groupID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("group")
		}
		return err
	}
	if _, err := authorizeGroup(c, h.db, &group, models.PermManageGroups); err != nil {
		return err
	}

	var manager models.User
	if err := h.db.First(&manager, req.UserID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return services.NewNotFoundError("user")
		}
		return err
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		link := models.GroupManager{
			GroupID: group.ID,
			UserID:  manager.ID,
			Role:    models.RoleManager,
		}
		if err := tx.Where("group_id = ? AND user_id = ?", group.ID, manager.ID).
			FirstOrCreate(&link).Error; err != nil {
			return err
		}
		if manager.Role == models.RoleViewer {
			return tx.Model(&manager).Update("role", models.RoleManager).Error
		}
		return nil
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "manager assigned"})
}
