package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/handler"
	"go-inventory-pos/internal/logger"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/internal/ws"
	"go-inventory-pos/pkg/database"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

func main() {
	// 1. Config and logging
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	defer log.Sync() //nolint:errcheck

	// 2. Database
	db, err := database.ConnectDB(cfg.Database, cfg.Log.Level, log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}
	// AutoMigrate is enough for a single deployment; use a migration tool once schemas diverge
	if err := database.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	// 3. Event hub
	hub := ws.NewHub(log)
	go hub.Run()

	// 4. Wiring
	loc := cfg.App.Location()
	txn := repository.NewTransactor(db, cfg.Database.TxTimeout, cfg.Database.MaxRetries, log)

	branchRepo := repository.NewBranchRepo(db)
	categoryRepo := repository.NewCategoryRepo(db)
	productRepo := repository.NewProductRepo(db)
	counterpartyRepo := repository.NewCounterpartyRepo(db)
	userRepo := repository.NewUserRepo(db)
	stockRepo := repository.NewStockRepo(db)
	docRepo := repository.NewDocumentRepo(db)
	cashRepo := repository.NewCashRepo(db)
	reportRepo := repository.NewReportRepo(db)

	catalogService := service.NewCatalogService(txn, branchRepo, categoryRepo, productRepo, stockRepo, counterpartyRepo, userRepo, log)
	stockService := service.NewStockService(txn, stockRepo, branchRepo, productRepo, cfg.Stock, log)
	cashService := service.NewCashService(txn, cashRepo, docRepo, branchRepo, userRepo, hub, loc, service.SystemClock, log)
	docService := service.NewDocumentService(txn, docRepo, stockRepo, productRepo, branchRepo, userRepo, counterpartyRepo,
		cashRepo, cashService, cfg.Stock, hub, loc, service.SystemClock, log)
	reportService := service.NewReportService(txn, docRepo, stockRepo, reportRepo, loc, service.SystemClock)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := catalogService.Seed(seedCtx); err != nil {
		log.Warn("seeding failed", zap.Error(err))
	}
	cancel()

	// 5. Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: handler.ErrorHandler(log),
	})
	app.Use(recover.New())
	app.Use(cors.New())
	app.Use(logger.FiberMiddleware(log))

	handler.Register(app, handler.Handlers{
		Catalog:  handler.NewCatalogHandler(catalogService),
		Stock:    handler.NewStockHandler(stockService),
		Document: handler.NewDocumentHandler(docService),
		Cash:     handler.NewCashHandler(cashService, loc),
		Report:   handler.NewReportHandler(reportService, loc),
	}, userRepo, hub)

	// 6. Graceful shutdown
	go func() {
		log.Info("listening", zap.String("port", cfg.App.Port), zap.String("timezone", loc.String()))
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			log.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	hub.Stop()
	log.Info("server exited")
}
