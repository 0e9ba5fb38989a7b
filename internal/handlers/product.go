package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/services"
	"github.com/example/bikestore/internal/utils"
)

// ProductHandler manages products and product listings.
type ProductHandler struct {
	db *gorm.DB
	fx *services.CurrencyService
}

// NewProductHandler constructs ProductHandler.
func NewProductHandler(db *gorm.DB, fx *services.CurrencyService) *ProductHandler {
	return &ProductHandler{db: db, fx: fx}
}

// RegisterProductRoutes attaches product endpoints to router. Fixed paths are
// registered before /:id.
func (h *ProductHandler) RegisterProductRoutes(router fiber.Router) {
	router.Post("/", h.CreateProduct)
	router.Get("/all", h.ListProducts)
	router.Get("/search", h.SearchProducts)
	router.Get("/categories/count", h.CategoryCounts)
	router.Get("/new-arrivals", h.ListNewArrivals)
	router.Get("/garage-favorites", h.ListGarageFavorites)
	router.Get("/model/:modelId", h.ListByModel)
	router.Get("/category/:category", h.ListByCategory)
	router.Get("/:id", h.GetProduct)
	router.Put("/:id", h.UpdateProduct)
	router.Delete("/:id", h.DeleteProduct)
}

type productRequest struct {
	BrandID           string   `json:"brand_id" validate:"omitempty,uuid"`
	ModelID           string   `json:"model_id" validate:"omitempty,uuid"`
	IsBikeSpecific    *bool    `json:"is_bike_specific"`
	Name              string   `json:"name" validate:"required"`
	ShortDescription  string   `json:"short_description"`
	LongDescription   string   `json:"long_description"`
	Description       string   `json:"description"`
	Category          string   `json:"category" validate:"required"`
	CategoryIcon      string   `json:"category_icon"`
	Price             *float64 `json:"price" validate:"required,gte=0"`
	ImageURL          string   `json:"image_url"`
	Images            []string `json:"images"`
	QuantityAvailable int      `json:"quantity_available" validate:"gte=0"`
	Specifications    string   `json:"specifications"`
	ShippingAndReturn string   `json:"shipping_and_return"`
	IsNewArrival      bool     `json:"is_new_arrival"`
	IsGarageFavorite  bool     `json:"is_garage_favorite"`
}

// ListProducts returns all products, newest first.
func (h *ProductHandler) ListProducts(c *fiber.Ctx) error {
	return h.listPaginated(c, h.db.Model(&models.Product{}))
}

func (h *ProductHandler) ListByCategory(c *fiber.Ctx) error {
	return h.listPaginated(c, h.db.Model(&models.Product{}).Where("category = ?", c.Params("category")))
}

func (h *ProductHandler) ListByModel(c *fiber.Ctx) error {
	modelID, err := uuid.Parse(c.Params("modelId"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid model id")
	}
	return h.listPaginated(c, h.db.Model(&models.Product{}).Where("bike_model_id = ?", modelID))
}

func (h *ProductHandler) ListNewArrivals(c *fiber.Ctx) error {
	return h.listPaginated(c, h.db.Model(&models.Product{}).Where("is_new_arrival = ?", true))
}

func (h *ProductHandler) ListGarageFavorites(c *fiber.Ctx) error {
	return h.listPaginated(c, h.db.Model(&models.Product{}).Where("is_garage_favorite = ?", true))
}

// SearchProducts matches the product name or the name of its bike model.
// Only products in stock are returned.
func (h *ProductHandler) SearchProducts(c *fiber.Ctx) error {
	search := strings.TrimSpace(c.Query("query"))
	if search == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Query parameter is required")
	}

	pattern := "%" + search + "%"
	query := h.db.Model(&models.Product{}).
		Where("quantity_available > 0").
		Where(
			h.db.Where("name ILIKE ?", pattern).
				Or("bike_model_id IN (?)", h.db.Model(&models.BikeModel{}).Select("id").Where("name ILIKE ?", pattern)),
		)
	return h.listPaginated(c, query)
}

type categoryCount struct {
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Count int64  `json:"count"`
}

// CategoryCounts returns each category with its icon and product count,
// largest first.
func (h *ProductHandler) CategoryCounts(c *fiber.Ctx) error {
	var counts []categoryCount
	if err := h.db.WithContext(c.UserContext()).Model(&models.Product{}).
		Select("category AS name, MAX(category_icon) AS icon, COUNT(*) AS count").
		Where("category <> ''").
		Group("category").
		Order("count desc, name asc").
		Scan(&counts).Error; err != nil {
		return err
	}
	if counts == nil {
		counts = []categoryCount{}
	}
	return c.JSON(fiber.Map{"success": true, "data": counts})
}

func (h *ProductHandler) GetProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var product models.Product
	if err := h.db.WithContext(c.UserContext()).
		Preload("Brand").
		Preload("BikeModel").
		First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		return err
	}

	views := newProductViews(c.UserContext(), h.fx, []models.Product{product}, c.Query("currency"))
	return c.JSON(fiber.Map{"success": true, "data": views[0]})
}

func (h *ProductHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	var product models.Product
	if err := h.applyRequest(c, &product, req); err != nil {
		return err
	}
	if err := h.db.WithContext(c.UserContext()).Omit("Brand", "BikeModel").Create(&product).Error; err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"success": true, "data": product})
}

func (h *ProductHandler) UpdateProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	var req productRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return err
	}

	db := h.db.WithContext(c.UserContext())
	var product models.Product
	if err := db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusNotFound, "Product not found")
		}
		return err
	}

	if err := h.applyRequest(c, &product, req); err != nil {
		return err
	}
	if err := db.Omit("Brand", "BikeModel").Save(&product).Error; err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": product})
}

func (h *ProductHandler) DeleteProduct(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}

	res := h.db.WithContext(c.UserContext()).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fiber.NewError(fiber.StatusNotFound, "Product not found")
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// applyRequest copies req onto product. A product is bike specific only when
// it references a model; the brand then defaults to the model's brand.
func (h *ProductHandler) applyRequest(c *fiber.Ctx, product *models.Product, req productRequest) error {
	db := h.db.WithContext(c.UserContext())

	product.BrandID = nil
	if req.BrandID != "" {
		brandID := uuid.MustParse(req.BrandID)
		var count int64
		if err := db.Model(&models.Brand{}).Where("id = ?", brandID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return fiber.NewError(fiber.StatusNotFound, "Brand not found")
		}
		product.BrandID = &brandID
	}

	product.BikeModelID = nil
	product.IsBikeSpecific = false
	if req.ModelID != "" {
		var bikeModel models.BikeModel
		if err := db.First(&bikeModel, "id = ?", req.ModelID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "Model not found")
			}
			return err
		}
		product.BikeModelID = &bikeModel.ID
		if product.BrandID == nil {
			brandID := bikeModel.BrandID
			product.BrandID = &brandID
		}
		product.IsBikeSpecific = true
		if req.IsBikeSpecific != nil {
			product.IsBikeSpecific = *req.IsBikeSpecific
		}
	}

	product.Name = req.Name
	product.ShortDescription = req.ShortDescription
	product.LongDescription = req.LongDescription
	product.Description = req.Description
	product.Category = req.Category
	product.CategoryIcon = req.CategoryIcon
	product.Price = *req.Price
	product.ImageURL = req.ImageURL
	product.Images = req.Images
	product.QuantityAvailable = req.QuantityAvailable
	product.Specifications = req.Specifications
	product.ShippingAndReturn = req.ShippingAndReturn
	product.IsNewArrival = req.IsNewArrival
	product.IsGarageFavorite = req.IsGarageFavorite
	return nil
}

func (h *ProductHandler) listPaginated(c *fiber.Ctx, query *gorm.DB) error {
	ctx := c.UserContext()
	pg := utils.ParsePagination(c)
	query = query.WithContext(ctx)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return err
	}

	var products []models.Product
	if err := query.Session(&gorm.Session{}).
		Limit(pg.Limit).Offset(pg.Offset).
		Order("created_at desc").
		Find(&products).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       newProductViews(ctx, h.fx, products, c.Query("currency")),
		"pagination": pg.Meta(total),
	})
}
