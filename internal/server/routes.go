package server

import (
	"github.com/labstack/echo/v4"

	"example.com/finance-tracker/internal/handlers"
)

func registerRoutes(
	e *echo.Echo,
	authHandler *handlers.AuthHandler,
	expenseHandler *handlers.ExpenseHandler,
	budgetHandler *handlers.BudgetHandler,
	dashboardHandler *handlers.DashboardHandler,
	statsHandler *handlers.StatsHandler,
	reminderHandler *handlers.ReminderHandler,
	insightHandler *handlers.InsightHandler,
	aiProxyHandler *handlers.AIProxyHandler,
	notificationHandler *handlers.NotificationHandler,
	healthHandler *handlers.HealthHandler,
	authMiddleware echo.MiddlewareFunc,
	corsMiddleware echo.MiddlewareFunc,
	authRateLimiter echo.MiddlewareFunc,
	aiRateLimiter echo.MiddlewareFunc,
) {
	e.GET("/health", healthHandler.Health)

	// Функция подсказок сама отвечает на preflight; CORS ставится раньше лимитера.
	functions := e.Group("/functions/v1", aiProxyHandler.CORS, aiRateLimiter)
	functions.POST("/ai-suggestions", aiProxyHandler.Serve)
	functions.OPTIONS("/ai-suggestions", aiProxyHandler.Serve)

	api := e.Group("/api/v1", corsMiddleware)
	authGroup := api.Group("/auth", authRateLimiter)

	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/refresh", authHandler.Refresh)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authHandler.Me, authMiddleware)

	expenses := api.Group("/expenses", authMiddleware)
	expenses.GET("", expenseHandler.List)
	expenses.POST("", expenseHandler.Create)
	expenses.GET("/recent", expenseHandler.Recent)
	expenses.GET("/export.csv", expenseHandler.ExportCSV)

	budgetGroup := api.Group("/budget", authMiddleware)
	budgetGroup.GET("", budgetHandler.Get)
	budgetGroup.PUT("", budgetHandler.Put)

	api.GET("/dashboard", dashboardHandler.Get, authMiddleware)

	stats := api.Group("/stats", authMiddleware)
	stats.GET("/monthly", statsHandler.Monthly)

	reminders := api.Group("/reminders", authMiddleware)
	reminders.GET("", reminderHandler.List)
	reminders.POST("", reminderHandler.Create)
	reminders.DELETE("/:id", reminderHandler.Delete)

	insightGroup := api.Group("/insights", authMiddleware)
	insightGroup.GET("", insightHandler.Get)
	insightGroup.POST("", insightHandler.Request, aiRateLimiter)

	notifications := api.Group("/notifications", authMiddleware)
	notifications.GET("/stream", notificationHandler.Stream)
}
