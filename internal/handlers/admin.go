package handlers

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/models"
	"github.com/example/bikestore/internal/utils"
)

// AdminHandler serves the store dashboard.
type AdminHandler struct {
	db *gorm.DB
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(db *gorm.DB) *AdminHandler {
	return &AdminHandler{db: db}
}

// DashboardStats returns aggregate statistics for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())
	orders := func() *gorm.DB {
		return db.Model(&models.Cart{}).Where("status = ?", models.CartStatusOrdered)
	}

	var totalCustomers int64
	if err := db.Model(&models.Profile{}).Count(&totalCustomers).Error; err != nil {
		return err
	}

	var totalOrders int64
	if err := orders().Count(&totalOrders).Error; err != nil {
		return err
	}

	var openCarts int64
	if err := db.Model(&models.Cart{}).Where("status IN ?", models.OpenCartStatuses).Count(&openCarts).Error; err != nil {
		return err
	}

	type statusCount struct {
		Status string `json:"status"`
		Count  int64  `json:"count"`
	}
	var statusCounts []statusCount
	if err := orders().
		Select("order_status AS status, count(*) AS count").
		Group("order_status").
		Scan(&statusCounts).Error; err != nil {
		return err
	}

	ordersByStatus := make(map[string]int64)
	for _, sc := range statusCounts {
		ordersByStatus[sc.Status] = sc.Count
	}

	// Revenue excludes cancelled and returned orders.
	excluded := []string{models.OrderStatusCancelled, models.OrderStatusReturned}
	var totalRevenue float64
	if err := orders().
		Where("order_status NOT IN ?", excluded).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&totalRevenue).Error; err != nil {
		return err
	}

	var todayRevenue float64
	if err := orders().
		Where("order_status NOT IN ? AND order_date::date = CURRENT_DATE", excluded).
		Select("COALESCE(SUM(total_amount), 0)").
		Scan(&todayRevenue).Error; err != nil {
		return err
	}

	var activeCoupons int64
	if err := db.Model(&models.Coupon{}).Where("is_active = ?", true).Count(&activeCoupons).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"total_customers":  totalCustomers,
			"total_orders":     totalOrders,
			"open_carts":       openCarts,
			"active_coupons":   activeCoupons,
			"total_revenue":    models.RoundAmount(totalRevenue),
			"today_revenue":    models.RoundAmount(todayRevenue),
			"orders_by_status": ordersByStatus,
		},
	})
}

// ListAllOrders returns every order with pagination and filtering.
func (h *AdminHandler) ListAllOrders(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)
	query := h.db.WithContext(c.UserContext()).Model(&models.Cart{}).
		Where("status = ?", models.CartStatusOrdered)

	if status := c.Query("order_status"); status != "" {
		query = query.Where("order_status = ?", status)
	}
	if status := c.Query("payment_status"); status != "" {
		query = query.Where("payment_status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where(
			"order_number ILIKE ? OR phone_number ILIKE ?",
			"%"+search+"%", "%"+search+"%",
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var orders []models.Cart
	if err := query.Order("order_date desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       orders,
		"pagination": pg.Meta(total),
	})
}

// ListCustomers returns profiles with their order count and total spend.
func (h *AdminHandler) ListCustomers(c *fiber.Ctx) error {
	db := h.db.WithContext(c.UserContext())
	pg := utils.ParsePagination(c)
	query := db.Model(&models.Profile{})

	if search := c.Query("search"); search != "" {
		query = query.Where(
			"first_name ILIKE ? OR last_name ILIKE ? OR phone_number ILIKE ?",
			"%"+search+"%", "%"+search+"%", "%"+search+"%",
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return err
	}

	var profiles []models.Profile
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&profiles).Error; err != nil {
		return err
	}

	phones := make([]string, 0, len(profiles))
	for _, p := range profiles {
		phones = append(phones, p.PhoneNumber)
	}

	type customerStats struct {
		PhoneNumber string
		OrderCount  int64
		TotalSpent  float64
	}
	var stats []customerStats
	if len(phones) > 0 {
		if err := db.Model(&models.Cart{}).
			Select("phone_number, count(*) AS order_count, COALESCE(SUM(total_amount), 0) AS total_spent").
			Where("status = ? AND phone_number IN ?", models.CartStatusOrdered, phones).
			Group("phone_number").
			Scan(&stats).Error; err != nil {
			return err
		}
	}

	statsMap := make(map[string]customerStats, len(stats))
	for _, s := range stats {
		statsMap[s.PhoneNumber] = s
	}

	type customerResponse struct {
		models.Profile
		OrderCount int64   `json:"order_count"`
		TotalSpent float64 `json:"total_spent"`
	}

	result := make([]customerResponse, len(profiles))
	for i, p := range profiles {
		result[i] = customerResponse{Profile: p}
		if s, ok := statsMap[p.PhoneNumber]; ok {
			result[i].OrderCount = s.OrderCount
			result[i].TotalSpent = models.RoundAmount(s.TotalSpent)
		}
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"data":       result,
		"pagination": pg.Meta(total),
	})
}

// RecentOrders returns the five newest orders for the dashboard.
func (h *AdminHandler) RecentOrders(c *fiber.Ctx) error {
	var orders []models.Cart
	if err := h.db.WithContext(c.UserContext()).
		Where("status = ?", models.CartStatusOrdered).
		Order("order_date desc").
		Limit(5).
		Find(&orders).Error; err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    orders,
	})
}
