package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/middleware"
	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/utils"
)

// ProfileHandler manages customer profiles.
type ProfileHandler struct {
	db *gorm.DB
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(db *gorm.DB) *ProfileHandler {
	return &ProfileHandler{db: db}
}

type createProfileRequest struct {
	FirstName    string             `json:"first_name" validate:"required"`
	LastName     string             `json:"last_name"`
	IsdCode      string             `json:"isd_code" validate:"required"`
	PhoneNumber  string             `json:"phone_number" validate:"required"`
	EmailID      string             `json:"email_id" validate:"omitempty,email"`
	Address      string             `json:"address"`
	NotifyOffers bool               `json:"notify_offers"`
	BikesOwned   []models.OwnedBike `json:"bikes_owned"`
}

type updateProfileRequest struct {
	FirstName    *string            `json:"first_name"`
	LastName     *string            `json:"last_name"`
	EmailID      *string            `json:"email_id" validate:"omitempty,email"`
	Address      *string            `json:"address"`
	NotifyOffers *bool              `json:"notify_offers"`
	BikesOwned   []models.OwnedBike `json:"bikes_owned"`
}

// CreateProfile registers the profile of the verified caller.
func (h *ProfileHandler) CreateProfile(c *fiber.Ctx) error {
	isdCode, phone, ok := middleware.GetCurrentPhone(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req createProfileRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}
	if req.IsdCode != isdCode || req.PhoneNumber != phone {
		return fiber.NewError(fiber.StatusForbidden, "phone number does not match the verified session")
	}

	profile := models.Profile{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		IsdCode:      req.IsdCode,
		PhoneNumber:  req.PhoneNumber,
		EmailID:      req.EmailID,
		Address:      req.Address,
		NotifyOffers: req.NotifyOffers,
		BikesOwned:   req.BikesOwned,
	}
	if err := h.db.WithContext(c.UserContext()).Create(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "Profile with this ISD code and phone number already exists")
		}
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": profile})
}

// GetProfile looks a profile up by isd code and phone number.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	var profile models.Profile
	err := h.db.WithContext(c.UserContext()).
		Where("isd_code = ? AND phone_number = ?", c.Params("isdCode"), c.Params("phoneNumber")).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Profile not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}

// UpdateProfile changes the caller's contact details. The phone key is immutable.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	isdCode, phone, ok := middleware.GetCurrentPhone(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var profile models.Profile
	if err := db.Where("isd_code = ? AND phone_number = ?", isdCode, phone).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Profile not found")
		}
		return err
	}

	if req.FirstName != nil {
		profile.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		profile.LastName = *req.LastName
	}
	if req.EmailID != nil {
		profile.EmailID = *req.EmailID
	}
	if req.Address != nil {
		profile.Address = *req.Address
	}
	if req.NotifyOffers != nil {
		profile.NotifyOffers = *req.NotifyOffers
	}
	if req.BikesOwned != nil {
		profile.BikesOwned = req.BikesOwned
	}

	if err := db.Save(&profile).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": profile})
}
