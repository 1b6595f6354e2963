package handlers

import (
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"eventreg_app/internal/models"
	"eventreg_app/internal/services"
)

func getStringFromContext(c echo.Context, key string) string {
	val := c.Get(key)
	if val == nil {
		return ""
	}
	strVal, ok := val.(string)
	if !ok {
		return ""
	}
	return strVal
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func strconvParseUint(raw string) (uint, error) {
	val, err := strconv.ParseUint(raw, 10, 32)
	return uint(val), err
}

func parseUintParam(c echo.Context, name string) (uint, error) {
	raw := c.Param(name)
	val, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return uint(val), nil
}

// parseAmount parses a decimal-string monetary field. Amounts never pass
// through a binary float.
func parseAmount(raw, field string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, services.NewValidationError("%s is required", field)
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, services.NewValidationError("%s is not a valid decimal amount: %q", field, raw)
	}
	return amount, nil
}

func parseDate(raw, field string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, services.NewValidationError("%s must be a YYYY-MM-DD date: %q", field, raw)
	}
	return t, nil
}

// currentUser resolves the authenticated user record, creating it on first
// login. The Firebase UID comes from the auth middleware.
func currentUser(c echo.Context, db *gorm.DB) (*models.User, error) {
	uid := getStringFromContext(c, "userUID")
	if uid == "" {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
	}

	var user models.User
	err := db.Where("firebase_uid = ?", uid).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}

	user = models.User{
		FirebaseUID: uid,
		Name:        getStringFromContext(c, "userName"),
		Email:       getStringFromContext(c, "userEmail"),
		Role:        models.RoleOrganizer,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
