package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/bikestore/internal/config"
	"github.com/example/bikestore/internal/handlers"
	"github.com/example/bikestore/internal/middleware"
	"github.com/example/bikestore/internal/services"
	"github.com/example/bikestore/internal/store"
)

// Integrations are the optional backends wired in main. Nil fields are skipped.
type Integrations struct {
	RateStore services.RateStore
	Events    services.OrderEventPublisher
}

// Services holds the domain services shared by handlers and background jobs.
type Services struct {
	Coupons  *services.CouponService
	Carts    *services.CartService
	Orders   *services.OrderService
	Payments *services.PaymentService
	OTPs     *services.OTPService
	FX       *services.CurrencyService
}

// BuildServices constructs the domain services on top of the gorm stores.
func BuildServices(db *gorm.DB, cfg *config.Config, in Integrations) *Services {
	cartStore := store.NewCartStore(db)

	coupons := services.NewCouponService(store.NewCouponStore(db))
	carts := services.NewCartService(cartStore, store.NewProductStore(db), coupons, services.Pricing{
		ShippingCost: cfg.ShippingCost,
		TaxPercent:   cfg.TaxPercent,
	})
	orders := services.NewOrderService(cartStore)

	gateway := services.NewRazorpayClient(cfg.RazorpayBaseURL, cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
	payments := services.NewPaymentService(cartStore, carts, gateway, store.NewPaymentEventStore(db), services.PaymentConfig{
		KeyID:       cfg.RazorpayKeyID,
		KeySecret:   cfg.RazorpayKeySecret,
		DisplayName: cfg.PaymentDisplayName,
	})

	sender := services.NewSMSSender(services.SMSConfig{
		Provider:         cfg.SMSProvider,
		Fast2SMSAPIKey:   cfg.Fast2SMSAPIKey,
		Fast2SMSURL:      cfg.Fast2SMSURL,
		TwilioAccountSID: cfg.TwilioAccountSID,
		TwilioAuthToken:  cfg.TwilioAuthToken,
		TwilioFromNumber: cfg.TwilioFromNumber,
	})
	otps := services.NewOTPService(store.NewOTPStore(db), store.NewProfileStore(db), sender, services.OTPConfig{
		TTL:       cfg.OTPTTL,
		JWTSecret: cfg.JWTSecret,
		TokenTTL:  cfg.TokenExpires,
	})

	fx := services.NewCurrencyService(services.CurrencyConfig{
		APIKey:     cfg.ExchangeRateAPIKey,
		BaseURL:    cfg.ExchangeRateURL,
		Multiplier: cfg.CurrencyMultiplier,
		TTL:        cfg.RatesTTL,
	})
	if in.RateStore != nil {
		fx.SetRateStore(in.RateStore)
	}

	telegram := services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat)
	if telegram.Enabled() {
		carts.SetNotifier(telegram)
	}

	if in.Events != nil {
		carts.SetEventPublisher(in.Events)
		orders.SetEventPublisher(in.Events)
		payments.SetEventPublisher(in.Events)
	}

	return &Services{
		Coupons:  coupons,
		Carts:    carts,
		Orders:   orders,
		Payments: payments,
		OTPs:     otps,
		FX:       fx,
	}
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config, svc *Services) {
	catalogHandler := handlers.NewCatalogHandler(db)
	productHandler := handlers.NewProductHandler(db, svc.FX)
	cartHandler := handlers.NewCartHandler(svc.Carts)
	couponHandler := handlers.NewCouponHandler(db, svc.Coupons)
	orderHandler := handlers.NewOrderHandler(svc.Orders, svc.FX)
	paymentHandler := handlers.NewPaymentHandler(svc.Payments)
	otpHandler := handlers.NewOTPHandler(svc.OTPs)
	profileHandler := handlers.NewProfileHandler(db)
	wishlistHandler := handlers.NewWishlistHandler(db)
	adminHandler := handlers.NewAdminHandler(db)

	api := app.Group("/api/v1")

	api.Get("/health", handlers.Health)

	country := api.Group("/country")
	country.Get("/isd-codes", handlers.ListISDCodes)
	country.Get("/currencies", handlers.ListCurrencies)

	// Catalog routes
	brand := api.Group("/brand")
	brand.Get("/", catalogHandler.ListBrands)
	brand.Get("/with-models", catalogHandler.ListBrandsWithModels)
	brand.Post("/", catalogHandler.CreateBrand)
	brand.Get("/:id", catalogHandler.GetBrand)
	brand.Put("/:id", catalogHandler.UpdateBrand)
	brand.Delete("/:id", catalogHandler.DeleteBrand)

	model := api.Group("/model")
	model.Get("/", catalogHandler.ListModels)
	model.Post("/", catalogHandler.CreateModel)
	model.Get("/brand/:brandId", catalogHandler.ListModelsByBrand)
	model.Get("/:id", catalogHandler.GetModel)
	model.Put("/:id", catalogHandler.UpdateModel)
	model.Delete("/:id", catalogHandler.DeleteModel)

	productHandler.RegisterProductRoutes(api.Group("/product"))

	// Cart and orders
	cart := api.Group("/cart")
	cart.Get("/active/:phoneNumber", cartHandler.GetActiveCart)
	cart.Post("/item", cartHandler.ManageItems)
	cart.Post("/validate", cartHandler.ValidateItems)
	cart.Post("/clear", cartHandler.ClearCart)
	cart.Post("/addresses", cartHandler.UpdateAddresses)
	cart.Post("/apply-coupon", cartHandler.ApplyCoupon)
	cart.Post("/remove-coupon", cartHandler.RemoveCoupon)
	cart.Post("/checkout", cartHandler.Checkout)
	cart.Get("/:phoneNumber/orders", orderHandler.ListUserOrders)

	coupon := api.Group("/coupon")
	coupon.Get("/", couponHandler.ListCoupons)
	coupon.Post("/", couponHandler.CreateCoupon)
	coupon.Post("/validate", couponHandler.ValidateCoupon)
	coupon.Get("/:id", couponHandler.GetCoupon)
	coupon.Put("/:id", couponHandler.UpdateCoupon)
	coupon.Delete("/:id", couponHandler.DeleteCoupon)
	coupon.Post("/:id/toggle-status", couponHandler.ToggleStatus)

	order := api.Group("/order")
	order.Get("/user/:phoneNumber", orderHandler.ListUserOrders)
	order.Get("/number/:orderNumber", orderHandler.GetOrderByNumber)
	order.Get("/:orderId", orderHandler.GetOrder)
	order.Put("/:orderId/status", orderHandler.UpdateStatus)
	order.Put("/:orderId/cancel", orderHandler.CancelOrder)

	// Payment routes
	payment := api.Group("/payment")
	payment.Post("/create-order", paymentHandler.CreateOrder)
	payment.Post("/verify", paymentHandler.VerifyPayment)
	payment.Post("/webhook", middleware.RazorpaySignatureMiddleware(cfg.RazorpayWebhookSecret), paymentHandler.Webhook)
	payment.Get("/status/:cartId", paymentHandler.GetStatus)

	// Phone auth and profiles
	otp := api.Group("/otp")
	otp.Post("/generate", otpHandler.Generate)
	otp.Post("/verify", otpHandler.Verify)

	profile := api.Group("/profile")
	profile.Get("/:isdCode/:phoneNumber", profileHandler.GetProfile)
	profile.Post("/", middleware.AuthMiddleware(cfg.JWTSecret), profileHandler.CreateProfile)
	profile.Put("/", middleware.AuthMiddleware(cfg.JWTSecret), profileHandler.UpdateProfile)

	wishlist := api.Group("/wishlist")
	wishlist.Post("/add", wishlistHandler.AddToWishlist)
	wishlist.Post("/remove", wishlistHandler.RemoveFromWishlist)
	wishlist.Get("/:phoneNumber", wishlistHandler.GetWishlist)

	// Admin dashboard
	admin := api.Group("/admin")
	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Get("/orders/recent", adminHandler.RecentOrders)
	admin.Get("/customers", adminHandler.ListCustomers)
}
