package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"bookstore/internal/cache"
	"bookstore/internal/config"
	"bookstore/internal/database"
	"bookstore/internal/events"
	"bookstore/internal/handlers"
	"bookstore/internal/logger"
	"bookstore/internal/middleware"
)

func main() {
	config.Load()
	cfg := config.AppEnv

	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	if cfg.MongoURI == "" {
		log.Fatal("MONGO_URI is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	client, err := database.Connect(cfg.MongoURI)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Disconnect(ctx)
	}()

	db := client.Database(cfg.DBName)

	if err := database.EnsureBookIndexes(db); err != nil {
		log.Fatal("failed to create book indexes", zap.Error(err))
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Fatal("failed to create user indexes", zap.Error(err))
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Fatal("failed to create order indexes", zap.Error(err))
	}

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb, err = cache.InitRedis(cfg.RedisAddr, log)
		if err != nil {
			log.Warn("Redis unavailable, running without cache", zap.Error(err))
			rdb = nil
		}
	}

	publisher := events.NewNopPublisher()
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			log.Warn("Kafka unavailable, order events disabled", zap.Error(err))
		} else {
			publisher = kp
		}
	}
	defer publisher.Close()

	if cfg.JaegerEndpoint != "" {
		shutdown, err := middleware.InitTracing("bookstore", cfg.JaegerEndpoint)
		if err != nil {
			log.Warn("tracing unavailable", zap.Error(err))
		} else {
			defer shutdown()
		}
	}

	handlers.SetUploadRoot(cfg.UploadDir)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("bookstore"))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.MetricsMiddleware())

	router.GET("/health", handlers.Health(db, log))
	router.GET("/metrics", middleware.PrometheusHandler())
	router.Static("/public", cfg.UploadDir)

	// Storefront, no auth.
	router.GET("/books", handlers.GetBooks(db, log))
	router.GET("/books/deals", handlers.GetDeals(db, log))
	router.GET("/books/:id", handlers.GetBookByID(db, rdb, log))
	router.GET("/categories", handlers.GetCategories(db, log))

	auth := router.Group("/auth")
	{
		auth.POST("/register", handlers.Register(db, cfg.JWTSecret, cfg.AccessTokenTTL, log))
		auth.POST("/login", handlers.Login(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, log))
		auth.POST("/refresh", handlers.Refresh(db, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, log))
		auth.POST("/logout", handlers.Logout(db, log))
		auth.GET("/me", middleware.UserAuth(cfg.JWTSecret, log), handlers.GetMe(db, log))
	}

	user := router.Group("/user")
	user.Use(middleware.UserAuth(cfg.JWTSecret, log))
	{
		user.GET("/cart", handlers.GetCart(db, log))
		user.POST("/cart/items", handlers.AddCartItem(db, log))
		user.PATCH("/cart/items/:productId", handlers.UpdateCartItemQuantity(db, log))
		user.DELETE("/cart/items/:productId", handlers.RemoveCartItem(db, log))
		user.DELETE("/cart", handlers.ClearCart(db, log))

		user.POST("/checkout", handlers.Checkout(db, publisher, log))
		user.GET("/orders", handlers.GetUserOrders(db, log))
		user.GET("/orders/:id", handlers.GetOrderByID(db, log))

		user.GET("/profile", handlers.GetProfile(db, log))
		user.PUT("/profile", handlers.SaveProfile(db, log))
	}

	router.POST("/admin/login", handlers.AdminLogin(db, cfg.JWTSecret, cfg.AccessTokenTTL, log))

	admin := router.Group("/admin/api")
	admin.Use(middleware.AdminAuth(cfg.JWTSecret))
	{
		admin.GET("/books", handlers.GetAllBooks(db, log))
		admin.POST("/books", handlers.CreateBook(db, log))
		admin.PUT("/books/:id", handlers.UpdateBook(db, rdb, log))
		admin.DELETE("/books/:id", handlers.DeleteBook(db, rdb, log))
		admin.POST("/books/import", handlers.ImportBooks(db, log))
		admin.POST("/books/:id/image", handlers.UploadBookImage(db, log))

		admin.GET("/categories", handlers.GetAllCategories(db, log))
		admin.POST("/categories", handlers.CreateCategory(db, log))
		admin.PUT("/categories/:id", handlers.UpdateCategory(db, log))
		admin.DELETE("/categories/:id", handlers.DeleteCategory(db, log))

		admin.GET("/orders", handlers.GetAllOrders(db, log))
		admin.PATCH("/orders/:id/status", handlers.UpdateOrderStatus(db, publisher, log))
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("forced shutdown", zap.Error(err))
	}
	log.Info("server stopped")
}
