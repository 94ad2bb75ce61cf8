package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/freshkart/api/internal/config"
	"github.com/freshkart/api/internal/handler"
	"github.com/freshkart/api/internal/middleware"
	"github.com/freshkart/api/internal/model"
	"github.com/freshkart/api/internal/repository"
	"github.com/freshkart/api/internal/service"
	"github.com/freshkart/api/internal/worker"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// PostgreSQL
	poolCfg, err := pgxpool.ParseConfig(cfg.DB.DSN())
	if err != nil {
		log.Error("parse db config", "error", err)
		os.Exit(1)
	}
	poolCfg.MaxConns = cfg.DB.MaxConns

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Error("ping database", "error", err)
		os.Exit(1)
	}
	log.Info("connected to PostgreSQL")

	// Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to Redis")

	// RabbitMQ
	amqpConn, err := amqp.Dial(cfg.RabbitMQ.URL)
	if err != nil {
		log.Error("connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer amqpConn.Close()

	amqpCh, err := amqpConn.Channel()
	if err != nil {
		log.Error("open RabbitMQ channel", "error", err)
		os.Exit(1)
	}
	defer amqpCh.Close()

	if err := worker.SetupRabbitMQ(amqpCh); err != nil {
		log.Error("setup RabbitMQ", "error", err)
		os.Exit(1)
	}
	log.Info("connected to RabbitMQ")

	// Repositories
	userRepo := repository.NewUserRepository(dbPool)
	itemRepo := repository.NewItemRepository(dbPool)
	cartRepo := repository.NewCartRepository(dbPool)
	orderRepo := repository.NewOrderRepository(dbPool)

	// Services
	authSvc := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	itemSvc := service.NewItemService(itemRepo, redisClient)
	cartSvc := service.NewCartService(cartRepo, itemRepo)
	orderSvc := service.NewOrderService(orderRepo, userRepo, amqpCh)

	// Handlers
	authH := handler.NewAuthHandler(authSvc)
	itemH := handler.NewItemHandler(itemSvc)
	cartH := handler.NewCartHandler(cartSvc)
	orderH := handler.NewOrderHandler(orderSvc)
	healthH := handler.NewHealthHandler(dbPool, redisClient, amqpConn)

	// Worker
	eventsWorker := worker.NewOrderEventsWorker(amqpCh, orderRepo, redisClient, log)

	// Router
	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthH.Healthz)
	router.GET("/readyz", healthH.Readyz)

	auth := middleware.AuthMiddleware(cfg.JWT.Secret)
	adminOnly := middleware.RequireGroup(model.GroupAdmin)

	router.POST("/register", authH.Register)
	router.POST("/login", authH.Login)
	router.GET("/user", auth, authH.Profile)

	// Catalog
	router.GET("/items", itemH.Catalog)
	router.GET("/items/:id", itemH.GetByID)
	router.GET("/items/:id/related", itemH.Detail)
	router.GET("/categories/:category/items", itemH.ListByCategory)
	router.GET("/new-arrivals", itemH.NewArrivals)
	router.GET("/shop", itemH.Shop)
	router.POST("/items", auth, adminOnly, itemH.Create)
	router.PUT("/items/:id", auth, adminOnly, itemH.Update)
	router.DELETE("/items/:id", auth, adminOnly, itemH.Delete)

	// Cart and purchase
	cart := router.Group("/cart", auth)
	cart.GET("", cartH.List)
	cart.POST("", cartH.AddOrUpdate)
	cart.DELETE("/:id", cartH.Delete)
	router.POST("/purchase-cart-items", auth, orderH.BulkPurchase)

	// Own orders
	router.GET("/user-orders", auth, orderH.ListUserOrders)
	router.PATCH("/user-orders/:id", auth, orderH.CancelOrder)

	// Admin order board and reporting
	admin := router.Group("", auth, adminOnly)
	admin.GET("/orders", orderH.AdminBoard)
	admin.GET("/orders/:unique_id", orderH.GetByUniqueID)
	admin.PATCH("/orders/:unique_id", orderH.UpdateStatus)
	admin.GET("/orders-status/:category", orderH.ListByStatus)
	admin.GET("/new-orders", orderH.NewOrders)
	admin.GET("/payments", orderH.Payments)
	admin.GET("/dashboard", orderH.Dashboard)

	if err := eventsWorker.Start(ctx); err != nil {
		log.Error("start order events worker", "error", err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", "error", err)
	}

	eventsWorker.Stop()
	time.Sleep(500 * time.Millisecond)
	cancel()
	log.Info("server stopped")
}
