package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
)

// authorizeEvent checks that the actor may act on the event with the given
// permission. Admins pass everywhere; organizers only on events they own;
// managers only when they hold a delegated group inside the event.
func authorizeEvent(c echo.Context, db *gorm.DB, event *models.Event, perm models.Permission) (*models.User, error) {
	user, err := currentUser(c, db)
	if err != nil {
		return nil, err
	}
	if !user.Can(perm) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	}
	if user.Role == models.RoleAdmin {
		return user, nil
	}
	if event.OrganizerID == user.ID {
		return user, nil
	}

	var count int64
	err = db.Model(&models.GroupManager{}).
		Joins("JOIN participant_groups ON participant_groups.id = group_managers.group_id").
		Where("group_managers.user_id = ? AND participant_groups.event_id = ?", user.ID, event.ID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, echo.NewHTTPError(http.StatusForbidden, "no access to this event")
	}
	return user, nil
}

// authorizeGroup checks access to a single group: the owning organizer, an
// admin, or a manager the group was delegated to.
func authorizeGroup(c echo.Context, db *gorm.DB, group *models.ParticipantGroup, perm models.Permission) (*models.User, error) {
	user, err := currentUser(c, db)
	if err != nil {
		return nil, err
	}
	if !user.Can(perm) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
	}
	if user.Role == models.RoleAdmin {
		return user, nil
	}

	var event models.Event
	if err := db.First(&event, group.EventID).Error; err != nil {
		return nil, err
	}
	if event.OrganizerID == user.ID {
		return user, nil
	}

	var count int64
	err = db.Model(&models.GroupManager{}).
		Where("user_id = ? AND group_id = ?", user.ID, group.ID).
		Count(&count).Error
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, echo.NewHTTPError(http.StatusForbidden, "no access to this group")
	}
	return user, nil
}
