// Command reconcile posts the missing cash movement of PAID documents whose
// post-commit movement failed. Run it after an outage, or from cron.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go-inventory-pos/internal/config"
	"go-inventory-pos/internal/logger"
	"go-inventory-pos/internal/repository"
	"go-inventory-pos/internal/service"
	"go-inventory-pos/pkg/database"

	"go.uber.org/zap"
)

func main() {
	since := flag.Duration("since", 7*24*time.Hour, "look back this far for orphaned documents")
	dryRun := flag.Bool("dry-run", false, "list orphaned documents without posting movements")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log)
	defer log.Sync() //nolint:errcheck

	db, err := database.ConnectDB(cfg.Database, cfg.Log.Level, log)
	if err != nil {
		log.Fatal("database unavailable", zap.Error(err))
	}

	loc := cfg.App.Location()
	docRepo := repository.NewDocumentRepo(db)
	from := time.Now().UTC().Add(-*since)
	ctx := context.Background()
	txn := repository.NewTransactor(db, cfg.Database.TxTimeout, cfg.Database.MaxRetries, log)

	if *dryRun {
		reports := service.NewReportService(txn, docRepo, repository.NewStockRepo(db), repository.NewReportRepo(db), loc, service.SystemClock)
		docs, err := reports.OrphanedDocuments(ctx, nil, from, time.Now().UTC())
		if err != nil {
			log.Fatal("listing orphaned documents failed", zap.Error(err))
		}
		for _, d := range docs {
			log.Info("orphaned document", zap.String("id", d.ID.String()), zap.String("folio", d.Folio),
				zap.String("branch_id", d.BranchID.String()), zap.String("total", d.Total.StringFixed(2)))
		}
		log.Info("dry run finished", zap.Int("orphaned", len(docs)))
		return
	}

	cash := service.NewCashService(txn, repository.NewCashRepo(db), docRepo, repository.NewBranchRepo(db),
		repository.NewUserRepo(db), service.NopNotifier, loc, service.SystemClock, log)

	posted, err := cash.RepairOrphanedDocuments(ctx, from)
	if err != nil {
		log.Fatal("repair failed", zap.Error(err))
	}
	log.Info("repair finished", zap.Int("movements_posted", len(posted)), zap.Time("since", from))
}
