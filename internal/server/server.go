package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"example.com/finance-tracker/internal/auth"
	"example.com/finance-tracker/internal/config"
	"example.com/finance-tracker/internal/handlers"
	"example.com/finance-tracker/internal/insights"
	"example.com/finance-tracker/internal/notifications"
	"example.com/finance-tracker/internal/proxy"
	"example.com/finance-tracker/internal/repository"
)

// New собирает HTTP-сервер Echo с роутами и зависимостями.
// events дополняет SSE-хаб внешним получателем событий и может быть nil.
// Возвращаемая функция освобождает сессии AI-аналитики при остановке.
func New(cfg config.Config, logger *slog.Logger, db *pgxpool.Pool, events notifications.Publisher) (*echo.Echo, func()) {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewValidator()

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(logger))

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTL, cfg.Auth.RefreshTokenTTL)
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewRefreshTokenRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	budgetRepo := repository.NewBudgetRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	notificationHub := notifications.NewHub()
	var publisher notifications.Publisher = notificationHub
	if events != nil {
		publisher = notifications.Fanout{notificationHub, events}
	}

	proxyHandler := proxy.NewHandler(proxy.LoadClient, logger)
	registry := insights.NewRegistry(expenseRepo, budgetRepo, insightsProxy(cfg.Insights, proxyHandler, logger), publisher, logger)

	authHandler := handlers.NewAuthHandler(userRepo, tokenRepo, tokenManager, registry)
	expenseHandler := handlers.NewExpenseHandler(expenseRepo, publisher)
	budgetHandler := handlers.NewBudgetHandler(budgetRepo, expenseRepo, publisher)
	dashboardHandler := handlers.NewDashboardHandler(budgetRepo, expenseRepo, statsRepo)
	statsHandler := handlers.NewStatsHandler(statsRepo)
	reminderHandler := handlers.NewReminderHandler(reminderRepo, publisher)
	insightHandler := handlers.NewInsightHandler(registry)
	aiProxyHandler := handlers.NewAIProxyHandler(proxyHandler)
	notificationHandler := handlers.NewNotificationHandler(notificationHub)
	healthHandler := handlers.NewHealthHandler(db)

	registerRoutes(
		e,
		authHandler,
		expenseHandler,
		budgetHandler,
		dashboardHandler,
		statsHandler,
		reminderHandler,
		insightHandler,
		aiProxyHandler,
		notificationHandler,
		healthHandler,
		auth.JWTMiddleware(tokenManager),
		corsMiddleware(cfg.Server),
		authRateLimiter(cfg.Auth),
		aiRateLimiter(cfg.AI),
	)

	return e, registry.Close
}

func insightsProxy(cfg config.InsightsConfig, handler *proxy.Handler, logger *slog.Logger) insights.Proxy {
	if cfg.ProxyURL == "" {
		return insights.NewLocalProxy(handler)
	}

	logger.Info("insights use remote proxy", slog.String("url", cfg.ProxyURL))
	return insights.NewHTTPProxy(cfg.ProxyURL, cfg.ProxyTimeout)
}

// NewHTTPServer создает net/http сервер с заданными таймаутами.
func NewHTTPServer(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogError:     true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []slog.Attr{
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.String("remote_ip", v.RemoteIP),
				slog.String("request_id", v.RequestID),
				slog.Duration("latency", v.Latency),
			}

			if v.Error != nil {
				attrs = append(attrs, slog.String("error", v.Error.Error()))
			}

			msg := "request completed"
			if v.Status >= http.StatusInternalServerError {
				logger.LogAttrs(c.Request().Context(), slog.LevelError, msg, attrs...)
				return nil
			}

			logger.LogAttrs(c.Request().Context(), slog.LevelInfo, msg, attrs...)
			return nil
		},
	})
}

func corsMiddleware(cfg config.ServerConfig) echo.MiddlewareFunc {
	origins := cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: origins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	})
}

func authRateLimiter(cfg config.AuthConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

func aiRateLimiter(cfg config.AIConfig) echo.MiddlewareFunc {
	return rateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
}

// rateLimiter ограничивает запросы по IP; превышение отдает 429 в формате ошибок API.
func rateLimiter(perMinute, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60.0),
		Burst:     burst,
		ExpiresIn: time.Minute,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, _ error) error {
			return c.JSON(http.StatusForbidden, handlers.ErrorResponse{Error: "rate limiter unavailable"})
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return c.JSON(http.StatusTooManyRequests, handlers.ErrorResponse{Error: "too many requests"})
		},
	})
}
