package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/barbershop/internal/config"
	"github.com/example/barbershop/internal/handlers"
	"github.com/example/barbershop/internal/middleware"
	"github.com/example/barbershop/internal/models"
	"github.com/example/barbershop/internal/services"
)

// Dependencies is everything the HTTP layer needs from main.
type Dependencies struct {
	DB        *gorm.DB
	Config    *config.Config
	Log       *zap.Logger
	Notifier  services.AdminNotifier
	Uploader  services.MediaUploader
	ChatModel services.ChatModel
	Location  *time.Location

	// AccessLog enables Fiber's request logger.
	AccessLog bool
}

// NewApp builds the Fiber application with the shared middleware stack and
// every route registered.
func NewApp(deps Dependencies) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      "Barbershop Backend",
		ErrorHandler: handlers.ErrorHandler(deps.Log),
		BodyLimit:    services.MaxUploadSize + 1<<20,
	})

	app.Use(recover.New())
	if deps.AccessLog {
		app.Use(logger.New())
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: deps.Config.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Accept-Language, Authorization",
	}))

	Register(app, deps)
	return app
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Dependencies) {
	db, cfg, log := deps.DB, deps.Config, deps.Log
	loc := deps.Location
	if loc == nil {
		loc = time.UTC
	}

	checkoutService := services.NewCheckoutService(db, deps.Notifier, log)
	paymentService := services.NewPaymentService(db, deps.Uploader, deps.Notifier, log)
	orderService := services.NewOrderService(db, log)
	bookingService := services.NewBookingService(db, deps.Notifier, log)
	queueService := services.NewQueueService(db, loc, log)
	reportService := services.NewReportService(db, queueService, log)
	chatService := services.NewChatService(deps.ChatModel, cfg.ChatSystemPrompt, log)

	authHandler := handlers.NewAuthHandler(db, cfg)
	productHandler := handlers.NewProductHandler(db)
	catalogHandler := handlers.NewCatalogHandler(db)
	cartHandler := handlers.NewCartHandler(db)
	voucherHandler := handlers.NewVoucherHandler(db, checkoutService)
	orderHandler := handlers.NewOrderHandler(checkoutService, orderService, paymentService)
	bookingHandler := handlers.NewBookingHandler(db, bookingService, queueService)
	adminHandler := handlers.NewAdminHandler(db, orderService, paymentService, reportService, deps.Uploader, loc)
	expenseHandler := handlers.NewExpenseHandler(db, loc)
	reportHandler := handlers.NewReportHandler(reportService, loc)
	chatHandler := handlers.NewChatHandler(chatService, log)

	requireAuth := middleware.AuthMiddleware(cfg.JWTSecret)
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	staff := middleware.RequireRole(models.RoleAdmin, models.RoleBarber)

	api := app.Group("/api")
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"success": true, "data": fiber.Map{"status": "ok"}})
	})

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Get("/me", requireAuth, authHandler.Me)

	// Public catalogue
	api.Get("/products", productHandler.ListProducts)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Get("/services", catalogHandler.ListServices)
	api.Get("/services/:id", catalogHandler.GetService)
	api.Get("/barbers", catalogHandler.ListBarbers)
	api.Get("/barbers/:id", catalogHandler.GetBarber)

	// Assistant
	api.Post("/chat", chatHandler.Chat)
	api.Post("/chat/stream", chatHandler.Stream)

	// Walk-in queue
	api.Get("/queue", bookingHandler.TodayQueue)
	api.Post("/queue", middleware.OptionalAuth(cfg.JWTSecret), bookingHandler.JoinQueue)

	// Cart
	cart := api.Group("/cart", requireAuth)
	cart.Get("/", cartHandler.GetCart)
	cart.Post("/", cartHandler.AddItem)
	cart.Delete("/", cartHandler.ClearCart)
	cart.Put("/:productId", cartHandler.UpdateItem)
	cart.Delete("/:productId", cartHandler.RemoveItem)

	api.Post("/vouchers/validate", requireAuth, voucherHandler.ValidateVoucher)

	// Orders
	orders := api.Group("/orders", requireAuth)
	orders.Post("/", orderHandler.CreateOrder)
	orders.Get("/", orderHandler.ListOrders)
	orders.Get("/:id", orderHandler.GetOrder)
	orders.Post("/:id/payment-proof", orderHandler.UploadPaymentProof)
	orders.Post("/:id/cancel", orderHandler.CancelOrder)

	// Appointments
	appointments := api.Group("/appointments", requireAuth)
	appointments.Post("/", bookingHandler.BookAppointment)
	appointments.Get("/", bookingHandler.ListMyAppointments)
	appointments.Post("/:id/cancel", bookingHandler.CancelMyAppointment)

	// Back-office. Barbers share the schedule and queue routes; everything
	// else is admin only.
	admin := api.Group("/admin", requireAuth)
	admin.Get("/appointments", staff, bookingHandler.ListAppointments)
	admin.Patch("/appointments/:id/status", staff, bookingHandler.UpdateAppointmentStatus)
	admin.Patch("/queue/:id/status", staff, bookingHandler.UpdateQueueStatus)

	admin.Get("/dashboard", adminOnly, adminHandler.DashboardStats)
	admin.Get("/users", adminOnly, adminHandler.ListAllUsers)
	admin.Post("/upload", adminOnly, adminHandler.Upload)

	admin.Get("/orders", adminOnly, adminHandler.ListAllOrders)
	admin.Get("/orders/:id", adminOnly, adminHandler.GetOrder)
	admin.Post("/orders/:id/verify", adminOnly, adminHandler.VerifyPayment)
	admin.Post("/orders/:id/advance", adminOnly, adminHandler.AdvanceOrder)
	admin.Post("/orders/:id/cancel", adminOnly, adminHandler.CancelOrder)

	admin.Get("/vouchers", adminOnly, voucherHandler.ListVouchers)
	admin.Post("/vouchers", adminOnly, voucherHandler.CreateVoucher)
	admin.Get("/vouchers/:id", adminOnly, voucherHandler.GetVoucher)
	admin.Put("/vouchers/:id", adminOnly, voucherHandler.UpdateVoucher)
	admin.Delete("/vouchers/:id", adminOnly, voucherHandler.DeleteVoucher)

	admin.Get("/products", adminOnly, productHandler.ListProducts)
	admin.Post("/products", adminOnly, productHandler.CreateProduct)
	admin.Get("/products/:id", adminOnly, productHandler.GetProduct)
	admin.Put("/products/:id", adminOnly, productHandler.UpdateProduct)
	admin.Post("/products/:id/stock", adminOnly, productHandler.AdjustStock)
	admin.Delete("/products/:id", adminOnly, productHandler.DeleteProduct)

	admin.Get("/services", adminOnly, catalogHandler.ListServices)
	admin.Post("/services", adminOnly, catalogHandler.CreateService)
	admin.Put("/services/:id", adminOnly, catalogHandler.UpdateService)
	admin.Delete("/services/:id", adminOnly, catalogHandler.DeleteService)

	admin.Get("/barbers", adminOnly, catalogHandler.ListBarbers)
	admin.Post("/barbers", adminOnly, catalogHandler.CreateBarber)
	admin.Put("/barbers/:id", adminOnly, catalogHandler.UpdateBarber)
	admin.Delete("/barbers/:id", adminOnly, catalogHandler.DeleteBarber)

	admin.Get("/expenses", adminOnly, expenseHandler.ListExpenses)
	admin.Post("/expenses", adminOnly, expenseHandler.CreateExpense)
	admin.Put("/expenses/:id", adminOnly, expenseHandler.UpdateExpense)
	admin.Delete("/expenses/:id", adminOnly, expenseHandler.DeleteExpense)

	admin.Get("/reports/financial", adminOnly, reportHandler.Financial)
	admin.Get("/reports/financial/export", adminOnly, reportHandler.ExportFinancial)
}
