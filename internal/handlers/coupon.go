package handlers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
	"github.com/example/bikestore/internal/utils"
)

// CouponHandler manages coupons. Admin CRUD talks to the database directly;
// public validation goes through the coupon engine.
type CouponHandler struct {
	db      *gorm.DB
	coupons *services.CouponService
}

// NewCouponHandler constructs CouponHandler.
func NewCouponHandler(db *gorm.DB, coupons *services.CouponService) *CouponHandler {
	return &CouponHandler{db: db, coupons: coupons}
}

type couponRequest struct {
	Code          string     `json:"code" validate:"required"`
	Type          string     `json:"type" validate:"required"`
	Discount      float64    `json:"discount" validate:"required,gt=0"`
	MaxDiscount   *float64   `json:"max_discount" validate:"omitempty,gt=0"`
	MinCartAmount float64    `json:"min_cart_amount" validate:"gte=0"`
	UsageLimit    *int       `json:"usage_limit" validate:"omitempty,gt=0"`
	IsActive      *bool      `json:"is_active"`
	ExpiresAt     *time.Time `json:"expires_at"`
	Description   string     `json:"description"`
}

type validateCouponRequest struct {
	CouponCode  string   `json:"coupon_code" validate:"required"`
	PhoneNumber string   `json:"phone_number"`
	CartAmount  *float64 `json:"cart_amount" validate:"omitempty,gte=0"`
}

// ListCoupons returns coupons filtered by type, active flag and a search over
// code and description.
func (h *CouponHandler) ListCoupons(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Coupon{})

	if t := c.Query("type"); t != "" {
		query = query.Where("type = ?", t)
	}
	if v := c.Query("is_active"); v != "" {
		active, err := strconv.ParseBool(v)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "is_active must be true or false")
		}
		query = query.Where("is_active = ?", active)
	}
	if search := strings.TrimSpace(c.Query("search")); search != "" {
		q := "%" + search + "%"
		query = query.Where("code ILIKE ? OR description ILIKE ?", q, q)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var coupons []models.Coupon
	if err := query.Limit(pg.Limit).Offset(pg.Offset).Order("created_at desc").Find(&coupons).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       coupons,
		"pagination": pg.Meta(total),
	})
}

func (h *CouponHandler) GetCoupon(c *fiber.Ctx) error {
	coupon, err := h.findCoupon(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": coupon})
}

func (h *CouponHandler) CreateCoupon(c *fiber.Ctx) error {
	var req couponRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	coupon := models.Coupon{IsActive: true}
	if err := applyCouponRequest(&coupon, req); err != nil {
		return err
	}

	if err := h.db.WithContext(c.UserContext()).Create(&coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "Coupon code already exists")
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "Coupon created successfully",
		"data":    coupon,
	})
}

func (h *CouponHandler) UpdateCoupon(c *fiber.Ctx) error {
	coupon, err := h.findCoupon(c)
	if err != nil {
		return err
	}

	var req couponRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}
	if err := applyCouponRequest(coupon, req); err != nil {
		return err
	}

	if err := h.db.WithContext(c.UserContext()).Omit("UsedBy").Save(coupon).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "Coupon code already exists")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Coupon updated successfully", "data": coupon})
}

// DeleteCoupon removes a coupon that has never been redeemed.
func (h *CouponHandler) DeleteCoupon(c *fiber.Ctx) error {
	coupon, err := h.findCoupon(c)
	if err != nil {
		return err
	}
	if coupon.UsedCount > 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot delete coupon that has been used")
	}

	res := h.db.WithContext(c.UserContext()).
		Where("id = ? AND used_count = 0", coupon.ID).
		Delete(&models.Coupon{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot delete coupon that has been used")
	}
	return c.JSON(fiber.Map{"success": true, "message": "Coupon deleted successfully"})
}

func (h *CouponHandler) ToggleStatus(c *fiber.Ctx) error {
	coupon, err := h.findCoupon(c)
	if err != nil {
		return err
	}

	coupon.IsActive = !coupon.IsActive
	if err := h.db.WithContext(c.UserContext()).Model(coupon).Update("is_active", coupon.IsActive).Error; err != nil {
		return err
	}

	state := "deactivated"
	if coupon.IsActive {
		state = "activated"
	}
	return c.JSON(fiber.Map{"success": true, "message": "Coupon " + state + " successfully", "data": coupon})
}

// ValidateCoupon is the public check used before applying a code to a cart.
func (h *CouponHandler) ValidateCoupon(c *fiber.Ctx) error {
	var req validateCouponRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.coupons.Validate(c.UserContext(), req.CouponCode, req.PhoneNumber, req.CartAmount)
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "data": result})
}

func (h *CouponHandler) findCoupon(c *fiber.Ctx) (*models.Coupon, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var coupon models.Coupon
	if err := h.db.WithContext(c.UserContext()).First(&coupon, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Coupon not found")
		}
		return nil, err
	}
	return &coupon, nil
}

func applyCouponRequest(coupon *models.Coupon, req couponRequest) error {
	coupon.Code = services.NormalizeCode(req.Code)
	coupon.Type = req.Type
	coupon.Discount = req.Discount
	coupon.MaxDiscount = req.MaxDiscount
	coupon.MinCartAmount = req.MinCartAmount
	coupon.UsageLimit = req.UsageLimit
	coupon.ExpiresAt = req.ExpiresAt
	coupon.Description = req.Description
	if req.IsActive != nil {
		coupon.IsActive = *req.IsActive
	}

	if err := services.ValidateCouponDefinition(coupon); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return nil
}
