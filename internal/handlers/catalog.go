package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/utils"
)

// CatalogHandler manages bike brands and models.
type CatalogHandler struct {
	db *gorm.DB
}

// NewCatalogHandler constructs CatalogHandler.
func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

type brandRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type modelRequest struct {
	BrandID     string `json:"brand_id" validate:"required,uuid"`
	Name        string `json:"name" validate:"required"`
	Type        string `json:"type"`
	Category    string `json:"category"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url"`
}

// ListBrands returns every brand ordered by name.
func (h *CatalogHandler) ListBrands(c *fiber.Ctx) error {
	var brands []models.Brand
	if err := h.db.WithContext(c.UserContext()).Order("name asc").Find(&brands).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": brands})
}

// ListBrandsWithModels returns brands that have at least one model, each with
// its models. An optional category query narrows the models.
func (h *CatalogHandler) ListBrandsWithModels(c *fiber.Ctx) error {
	category := c.Query("category")

	var brands []models.Brand
	err := h.db.WithContext(c.UserContext()).
		Preload("Models", func(db *gorm.DB) *gorm.DB {
			if category != "" {
				db = db.Where("category = ?", category)
			}
			return db.Order("name asc")
		}).
		Order("name asc").
		Find(&brands).Error
	if err != nil {
		return err
	}

	out := make([]models.Brand, 0, len(brands))
	for _, b := range brands {
		if len(b.Models) > 0 {
			out = append(out, b)
		}
	}
	return c.JSON(fiber.Map{"success": true, "data": out})
}

func (h *CatalogHandler) GetBrand(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var brand models.Brand
	if err := h.db.WithContext(c.UserContext()).Preload("Models").First(&brand, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Brand not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": brand})
}

func (h *CatalogHandler) CreateBrand(c *fiber.Ctx) error {
	var req brandRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	brand := models.Brand{Name: req.Name, Description: req.Description}
	if err := h.db.WithContext(c.UserContext()).Create(&brand).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "Brand already exists")
		}
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": brand})
}

func (h *CatalogHandler) UpdateBrand(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req brandRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var brand models.Brand
	if err := db.First(&brand, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Brand not found")
		}
		return err
	}

	brand.Name = req.Name
	brand.Description = req.Description
	if err := db.Save(&brand).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusBadRequest, "Brand already exists")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": brand})
}

func (h *CatalogHandler) DeleteBrand(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.WithContext(c.UserContext()).Delete(&models.Brand{}, "id = ?", id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return fiber.NewError(fiber.StatusBadRequest, "Brand still has models or products")
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Brand not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// ListModels returns all models with their brand.
func (h *CatalogHandler) ListModels(c *fiber.Ctx) error {
	query := h.db.WithContext(c.UserContext()).Preload("Brand").Order("name asc")
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var items []models.BikeModel
	if err := query.Find(&items).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

// ListModelsByBrand returns the id and name of every model of a brand.
func (h *CatalogHandler) ListModelsByBrand(c *fiber.Ctx) error {
	brandID, err := uuid.Parse(c.Params("brandId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid brand id")
	}

	type modelSummary struct {
		ID   uuid.UUID `json:"id"`
		Name string    `json:"name"`
	}
	var items []modelSummary
	if err := h.db.WithContext(c.UserContext()).Model(&models.BikeModel{}).
		Select("id", "name").
		Where("brand_id = ?", brandID).
		Order("name asc").
		Scan(&items).Error; err != nil {
		return err
	}
	if items == nil {
		items = []modelSummary{}
	}
	return c.JSON(fiber.Map{"success": true, "data": items})
}

func (h *CatalogHandler) GetModel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var item models.BikeModel
	if err := h.db.WithContext(c.UserContext()).Preload("Brand").First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Model not found")
		}
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": item})
}

func (h *CatalogHandler) CreateModel(c *fiber.Ctx) error {
	var req modelRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	brand, err := h.findBrand(db, req.BrandID)
	if err != nil {
		return err
	}

	item := models.BikeModel{
		BrandID:     brand.ID,
		Name:        req.Name,
		Type:        req.Type,
		Category:    req.Category,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}
	if err := db.Create(&item).Error; err != nil {
		return err
	}
	item.Brand = brand
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": item})
}

func (h *CatalogHandler) UpdateModel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req modelRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var item models.BikeModel
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Model not found")
		}
		return err
	}

	brand, err := h.findBrand(db, req.BrandID)
	if err != nil {
		return err
	}

	item.BrandID = brand.ID
	item.Name = req.Name
	item.Type = req.Type
	item.Category = req.Category
	item.Description = req.Description
	item.ImageURL = req.ImageURL
	if err := db.Omit("Brand").Save(&item).Error; err != nil {
		return err
	}
	item.Brand = brand
	return c.JSON(fiber.Map{"success": true, "data": item})
}

func (h *CatalogHandler) DeleteModel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.WithContext(c.UserContext()).Delete(&models.BikeModel{}, "id = ?", id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrForeignKeyViolated) {
			return fiber.NewError(fiber.StatusBadRequest, "Model still has products")
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Model not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *CatalogHandler) findBrand(db *gorm.DB, rawID string) (*models.Brand, error) {
	id, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid brand_id")
	}
	var brand models.Brand
	if err := db.First(&brand, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fiber.NewError(fiber.StatusNotFound, "Brand not found")
		}
		return nil, err
	}
	return &brand, nil
}
