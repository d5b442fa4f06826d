package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/citycycle/citycycle-bot/internal/bot"
	"github.com/citycycle/citycycle-bot/internal/database"
	"github.com/citycycle/citycycle-bot/internal/handlers"
	"github.com/citycycle/citycycle-bot/internal/middleware"
	"github.com/citycycle/citycycle-bot/internal/reports"
	"github.com/citycycle/citycycle-bot/internal/services"
	"github.com/citycycle/citycycle-bot/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	db, err := database.InitDB()
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get database instance: %v", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	seedFile := os.Getenv("SEED_FILE")
	if seedFile == "" {
		seedFile = "configs/seed.yaml"
	}
	if err := database.Seed(db, seedFile); err != nil {
		log.Printf("Seed warning: %v", err)
	}

	// Redis is optional: without it reports are uncached and rental
	// events are only broadcast over WebSocket.
	if err := services.InitRedis(); err != nil {
		log.Printf("Redis initialization warning: %v", err)
	}

	if err := services.InitStorage(); err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	hub := services.NewHub()
	go hub.Run()

	st := store.New(db)
	renderer := reports.New(os.Getenv("CHARTS_DIR"))
	metrics := bot.NewMetrics()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN is required")
	}

	tgBot, err := bot.NewBot(token, st, renderer, hub, metrics)
	if err != nil {
		log.Fatalf("Failed to initialize bot: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go runHTTP(st, renderer, hub)
	go tgBot.Start(ctx)

	<-ctx.Done()
	log.Println("Shutting down")
	tgBot.Stop()
}

func runHTTP(st *store.Store, renderer *reports.Renderer, hub *services.Hub) {
	r := gin.Default()

	config := cors.DefaultConfig()
	config.AllowOrigins = []string{"*"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	r.Static("/uploads", "/app/uploads")

	r.GET("/health", handlers.Health(hub))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		api.POST("/auth/login", handlers.Login(st))

		api.GET("/ws", middleware.AuthMiddleware(), handlers.WebSocketHandler(hub))

		stats := api.Group("/stats")
		stats.Use(middleware.AuthMiddleware(), middleware.AdminOnly())
		{
			stats.GET("/rentals", handlers.GetRentalsStats(st, renderer))
			stats.GET("/income", handlers.GetIncomeStats(st, renderer))
			stats.GET("/ratings/:bikeId", handlers.GetRatingsStats(st, renderer))
			stats.GET("/stations", handlers.GetStationsStats(st, renderer))
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
