package handlers

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/utils"
)

// WishlistHandler manages per-phone wishlists.
type WishlistHandler struct {
	db *gorm.DB
}

// NewWishlistHandler constructs WishlistHandler.
func NewWishlistHandler(db *gorm.DB) *WishlistHandler {
	return &WishlistHandler{db: db}
}

type wishlistItemRequest struct {
	PhoneNumber string `json:"phone_number" validate:"required"`
	ProductID   string `json:"product_id" validate:"required,uuid"`
}

// AddToWishlist adds a product once; adding it again is not an error.
func (h *WishlistHandler) AddToWishlist(c *fiber.Ctx) error {
	var req wishlistItemRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var count int64
	if err := db.Model(&models.Product{}).Where("id = ?", req.ProductID).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Product not found")
	}

	row := models.Wishlist{PhoneNumber: req.PhoneNumber, ProductIDs: pq.StringArray{req.ProductID}}
	res := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "phone_number"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"product_ids": gorm.Expr("array_append(wishlists.product_ids, ?)", req.ProductID),
			"updated_at":  time.Now(),
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			gorm.Expr("NOT (? = ANY(wishlists.product_ids))", req.ProductID),
		}},
	}).Create(&row)
	if res.Error != nil {
		return res.Error
	}

	message := "Product added to wishlist successfully"
	if res.RowsAffected == 0 {
		message = "Product already in wishlist"
	}

	wishlist, err := h.load(db, req.PhoneNumber)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": message, "data": wishlist})
}

// GetWishlist returns the wishlist with products, or an empty list with a
// null id when the phone has none.
func (h *WishlistHandler) GetWishlist(c *fiber.Ctx) error {
	phone := c.Params("phoneNumber")
	if phone == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone_number is required")
	}

	wishlist, err := h.load(h.db.WithContext(c.UserContext()), phone)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"id":           nil,
				"phone_number": phone,
				"product_ids":  []string{},
				"products":     []models.Product{},
			},
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": wishlist})
}

// RemoveFromWishlist drops a product and deletes the wishlist once empty.
func (h *WishlistHandler) RemoveFromWishlist(c *fiber.Ctx) error {
	var req wishlistItemRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	var emptied bool
	err := h.db.WithContext(c.UserContext()).Transaction(func(tx *gorm.DB) error {
		var wishlist models.Wishlist
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("phone_number = ?", req.PhoneNumber).
			First(&wishlist).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Wishlist not found")
			}
			return err
		}

		if !wishlist.Remove(req.ProductID) {
			return fiber.NewError(fiber.StatusNotFound, "Product not found in wishlist")
		}

		if len(wishlist.ProductIDs) == 0 {
			emptied = true
			return tx.Delete(&wishlist).Error
		}
		return tx.Model(&wishlist).Update("product_ids", wishlist.ProductIDs).Error
	})
	if err != nil {
		return err
	}

	if emptied {
		return c.JSON(fiber.Map{
			"success": true,
			"message": "Product removed from wishlist successfully",
			"data": fiber.Map{
				"id":           nil,
				"phone_number": req.PhoneNumber,
				"product_ids":  []string{},
				"products":     []models.Product{},
			},
		})
	}

	wishlist, err := h.load(h.db.WithContext(c.UserContext()), req.PhoneNumber)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "message": "Product removed from wishlist successfully", "data": wishlist})
}

// load reads the wishlist and fills Products in list order.
func (h *WishlistHandler) load(db *gorm.DB, phone string) (*models.Wishlist, error) {
	var wishlist models.Wishlist
	if err := db.Where("phone_number = ?", phone).First(&wishlist).Error; err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(wishlist.ProductIDs))
	for _, raw := range wishlist.ProductIDs {
		if id, err := uuid.Parse(raw); err == nil {
			ids = append(ids, id)
		}
	}

	wishlist.Products = []models.Product{}
	if len(ids) == 0 {
		return &wishlist, nil
	}

	var products []models.Product
	if err := db.Preload("Brand").Preload("BikeModel").Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for _, id := range ids {
		if p, ok := byID[id]; ok {
			wishlist.Products = append(wishlist.Products, p)
		}
	}
	return &wishlist, nil
}
