package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"coopstore/internal/config"
	"coopstore/internal/database"
	"coopstore/internal/handlers"
	"coopstore/internal/inventory"
	"coopstore/internal/middleware"
	"coopstore/internal/notify"
	"coopstore/internal/orders"
	"coopstore/internal/store"
)

func main() {
	config.Load()
	if config.AppEnv.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	client, err := database.Connect(config.AppEnv.MongoURI)
	if err != nil {
		log.Fatal(err)
	}
	defer client.Disconnect(context.Background())

	db := client.Database(config.AppEnv.DBName)

	log.Println("MongoDB connected to:", db.Name())

	if err := database.EnsureProductIndexes(db); err != nil {
		log.Printf("product index warning: %v", err)
	}
	if err := database.EnsureUserIndexes(db); err != nil {
		log.Printf("user index warning: %v", err)
	}
	if err := database.EnsureOrderIndexes(db); err != nil {
		log.Printf("order index warning: %v", err)
	}
	if err := database.EnsureLogIndexes(db); err != nil {
		log.Printf("log index warning: %v", err)
	}

	st := store.New(db)

	var notifier orders.Notifier = notify.Logger{}
	if config.AppEnv.RedisURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		queue, err := notify.Dial(ctx, config.AppEnv.RedisURL, config.AppEnv.NotifyQueue)
		cancel()
		if err != nil {
			log.Fatal(err)
		}
		defer queue.Close()
		notifier = queue
		log.Println("delivery notifications queued on:", config.AppEnv.NotifyQueue)
	}

	policy := inventory.ParsePolicy(config.AppEnv.OversellPolicy)
	log.Println("oversell policy:", policy)

	svc := orders.NewService(st, st, notifier,
		orders.WithPolicy(policy),
		orders.WithMaxAttempts(config.AppEnv.TxMaxAttempts),
	)

	secret := config.AppEnv.JWTSecret
	r := gin.Default()

	r.GET("/healthz", handlers.Health(st))

	r.POST("/auth/register", handlers.Register(st, secret, config.AppEnv.AccessTokenTTL))
	r.POST("/auth/login", handlers.Login(st, secret, config.AppEnv.AccessTokenTTL))
	r.GET("/auth/me", middleware.UserAuth(secret), handlers.GetMe(st))

	r.GET("/products", handlers.GetProducts(st))
	r.GET("/products/:id", handlers.GetProduct(st))
	r.GET("/categories", handlers.GetCategories(st))

	r.POST("/orders", middleware.OptionalAuth(secret), handlers.CreateOrder(svc))

	user := r.Group("/orders")
	user.Use(middleware.UserAuth(secret))
	{
		user.GET("/mine", handlers.GetMyOrders(svc))
		user.GET("/:id", handlers.GetOrder(svc))
		user.PUT("/:id/payment", handlers.ConfirmPayment(svc))
		user.PUT("/:id/status", middleware.AdminAuth(secret), handlers.UpdateOrderStatus(svc))
	}

	admin := r.Group("/admin/api")
	admin.Use(middleware.AdminAuth(secret))
	{
		admin.GET("/products", handlers.GetAllProducts(st))
		admin.POST("/products", handlers.CreateProduct(st))
		admin.PUT("/products/:id", handlers.UpdateProduct(st))
		admin.DELETE("/products/:id", handlers.ArchiveProduct(st))
		admin.POST("/products/:id/restore", handlers.RestoreProduct(st))

		admin.GET("/orders", handlers.ListOrders(svc))
		admin.DELETE("/orders/:id", handlers.DeleteOrder(svc))

		admin.GET("/logs", handlers.GetLogs(st))
	}

	if err := r.Run(":" + config.AppEnv.Port); err != nil {
		log.Fatal(err)
	}
}
