package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/config"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/handlers"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/ledger"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/services"
	"github.com/marinsarbulescu/stock-portfolio-tracker-sub005/internal/store"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

func main() {
	// .env is optional; in deployed environments everything comes from
	// real environment variables.
	_ = godotenv.Load()

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()

	client, err := config.ConnectDB(cfg.MongoURI)
	if err != nil {
		logger.Fatal().Err(err).Msg("mongodb connection failed")
	}
	defer func() {
		if err := config.DisconnectDB(client); err != nil {
			logger.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()
	logger.Info().Msg("connected to MongoDB")

	// Wiring: store -> engine -> services -> handlers.
	positionStore := store.NewMongoStore(client.Database(cfg.DatabaseName))
	engine := ledger.NewEngine(positionStore, logger.With().Str("component", "ledger").Logger())

	hub := services.NewPositionHub(logger.With().Str("component", "hub").Logger())
	go hub.Run()

	assetService := services.NewAssetService(positionStore, engine, logger.With().Str("component", "assets").Logger())
	txnService := services.NewTransactionService(positionStore, engine, hub, logger.With().Str("component", "transactions").Logger())

	assetHandler := handlers.NewAssetHandler(assetService)
	txnHandler := handlers.NewTransactionHandler(txnService, assetService)
	ledgerHandler := handlers.NewLedgerHandler(engine, assetService, assetHandler)

	// Nightly idempotent cash-flow re-replay across all assets.
	scheduler := cron.New()
	_, err = scheduler.AddFunc(cfg.MigrationCron, func() {
		if err := assetService.MigrateAllCashFlows(context.Background()); err != nil {
			logger.Error().Err(err).Msg("scheduled cash flow migration failed")
		}
	})
	if err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.MigrationCron).Msg("invalid migration schedule")
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "OK",
			"message": "Position Ledger API is running",
		})
	})

	// WebSocket endpoint for live position updates.
	router.GET("/ws", func(c *gin.Context) {
		owner := c.Query("owner")
		if owner == "" {
			owner = "anonymous"
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn().Err(err).Msg("websocket upgrade failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to upgrade to WebSocket"})
			return
		}

		wsClient := hub.RegisterClient(conn, owner)
		go wsClient.WritePump()
		go wsClient.ReadPump()
	})

	auth := handlers.OwnerMiddleware(cfg.JWTSecret)
	api := router.Group("/api", auth)
	{
		api.POST("/assets", assetHandler.CreateAsset)
		api.GET("/assets", assetHandler.ListAssets)
		api.GET("/assets/:id", assetHandler.GetAsset)
		api.PUT("/assets/:id", assetHandler.UpdateAsset)
		api.GET("/assets/:id/summary", assetHandler.GetSummary)

		api.POST("/transactions", txnHandler.CreateTransaction)
		api.GET("/assets/:id/transactions", txnHandler.ListTransactions)
		api.PUT("/transactions/:txnId", txnHandler.UpdateTransaction)
		api.DELETE("/transactions/:txnId", txnHandler.DeleteTransaction)

		api.POST("/assets/:id/split", ledgerHandler.ProcessSplit)
		api.POST("/assets/:id/split/resume", ledgerHandler.ResumeSplit)
		api.POST("/assets/:id/cashflow/migrate", ledgerHandler.MigrateCashFlow)
	}

	logger.Info().Str("port", cfg.Port).Msg("position ledger backend listening")
	fmt.Printf("📒 Position Ledger API available at http://localhost:%s\n", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
