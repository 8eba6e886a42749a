/**
 * @description
 * API Route definitions.
 * Sets up the router groups and assigns handlers.
 *
 * @dependencies
 * - github.com/gofiber/fiber/v2
 * - backend/internal/api/handlers
 * - backend/internal/api/middleware
 * - backend/internal/services
 *
 * @notes
 * - Without a database only health, prediction, model and reference routes
 *   are mounted.
 */

package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"github.com/yerevan-pricing/backend/internal/api/handlers"
	"github.com/yerevan-pricing/backend/internal/api/middleware"
	"github.com/yerevan-pricing/backend/internal/config"
	"github.com/yerevan-pricing/backend/internal/services"
)

// NewApp builds the Fiber app with global middleware.
func NewApp(cfg *config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:       "Yerevan Dynamic Pricing",
		StrictRouting: true,
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if cfg == nil || cfg.Server.Env != "test" {
		app.Use(logger.New(logger.Config{
			Format: "${time} ${locals:request_id} ${status} ${latency} ${method} ${path}\n",
		}))
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, " + middleware.RequestIDHeader,
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))
	return app
}

// SetupRoutes configures all API routes. db may be nil.
func SetupRoutes(app *fiber.App, db *gorm.DB, pricingService *services.PricingService) {
	// 1. Initialize Handlers
	pricingHandler := handlers.NewPricingHandler(pricingService)
	healthHandler := handlers.NewHealthHandler(db, pricingService)

	var menuService *services.MenuService
	if db != nil {
		menuService = services.NewMenuService(db)
	}
	referenceHandler := handlers.NewReferenceHandler(menuService, pricingService)

	// 2. Define Routes
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/health", healthHandler.GetHealth)

	// Prediction
	v1.Get("/predict-price", pricingHandler.PredictPrice)
	v1.Post("/predict-price", pricingHandler.PredictPriceJSON)
	v1.Get("/model", pricingHandler.GetModelStatus)

	admin := v1.Group("/admin")
	admin.Post("/reload", pricingHandler.ReloadModel)

	// Reference enumerations
	ref := v1.Group("/reference")
	ref.Get("/locations", referenceHandler.GetLocations)
	ref.Get("/venue-types", referenceHandler.GetVenueTypes)
	ref.Get("/age-groups", referenceHandler.GetAgeGroups)
	ref.Get("/portion-sizes", referenceHandler.GetPortionSizes)
	ref.Get("/menu-item-names", referenceHandler.GetMenuItemNames)

	if db == nil {
		return
	}

	restaurantHandler := handlers.NewRestaurantHandler(services.NewRestaurantService(db))
	menuHandler := handlers.NewMenuHandler(menuService)
	customerHandler := handlers.NewCustomerHandler(services.NewCustomerService(db), services.NewCategoryService(db))
	analyticsHandler := handlers.NewAnalyticsHandler(services.NewAnalyticsService(db))
	modelRunHandler := handlers.NewModelRunHandler(services.NewModelRunService(db))

	admin.Get("/model-runs", modelRunHandler.ListModelRuns)

	restaurants := v1.Group("/restaurants")
	restaurants.Get("", restaurantHandler.ListRestaurants)
	restaurants.Get("/:id", restaurantHandler.GetRestaurant)
	restaurants.Post("", restaurantHandler.CreateRestaurant)
	restaurants.Put("/:id", restaurantHandler.UpdateRestaurant)
	restaurants.Delete("/:id", restaurantHandler.DeleteRestaurant)

	menuItems := v1.Group("/menu-items")
	menuItems.Get("", menuHandler.ListMenuItems)
	menuItems.Get("/:id", menuHandler.GetMenuItem)
	menuItems.Post("", menuHandler.CreateMenuItem)
	menuItems.Put("/:id", menuHandler.UpdateMenuItem)
	menuItems.Delete("/:id", menuHandler.DeleteMenuItem)

	customers := v1.Group("/customers")
	customers.Get("", customerHandler.ListCustomers)
	customers.Get("/:id", customerHandler.GetCustomer)
	v1.Get("/categories", customerHandler.ListCategories)

	analytics := v1.Group("/analytics")
	analytics.Get("/historical", analyticsHandler.GetHistorical)
	analytics.Get("/forecast", analyticsHandler.GetForecast)
}
