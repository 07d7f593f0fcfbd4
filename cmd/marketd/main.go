// marketd runs the marketplace storage and maintenance plane on its own: the
// listing store, the market-config cache and the storage-fee sweeper. Live
// economy and inventory providers come from the host engine when the library
// is embedded; marketd wires permissive stand-ins so the sweep plane can run
// against a provisioned database.
package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	_ "modernc.org/sqlite"

	"github.com/hmkt/market/internal/adapter/notify"
	"github.com/hmkt/market/internal/adapter/storage"
	"github.com/hmkt/market/internal/cache"
	"github.com/hmkt/market/internal/config"
	"github.com/hmkt/market/internal/core/domain"
	"github.com/hmkt/market/internal/core/service"
	"github.com/hmkt/market/internal/worker"
)

type systemClock struct{}

func (systemClock) Now() int64 { return time.Now().UnixMilli() }

// openEconomy approves every movement and charges nobody; it stands in until
// the host engine supplies the real provider.
type openEconomy struct{}

func (openEconomy) Balance(uuid.UUID) float64        { return 0 }
func (openEconomy) Withdraw(uuid.UUID, float64) bool { return true }
func (openEconomy) Deposit(uuid.UUID, float64) bool  { return true }
func (openEconomy) DepositVault(float64) bool        { return true }

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Database. The schema is provisioned out of band.
	db, err := sql.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	if cfg.DBDriver == "sqlite" {
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
	}
	if err := db.PingContext(ctx); err != nil {
		log.Fatalf("failed to ping database: %v", err)
	}
	log.Printf("connected to %s database", cfg.DBDriver)

	// Redis carries the notification channels.
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	log.Println("connected to redis")

	// Storage worker and the stores it serializes.
	storageWorker := worker.NewSerial(cfg.QueueSize)
	clock := systemClock{}
	listingStore := storage.NewListingStore(db, storageWorker, clock)
	configStore := storage.NewMarketConfigStore(db, storageWorker)
	configs := cache.New[uuid.UUID, domain.MarketConfig](configStore)

	fees := service.NewFeeModel(cfg.SystemMarketConfig(), cfg.SignshopConfig(), configs)
	notifier := notify.NewRedisNotifier(rdb)

	// The sync context of a standalone daemon is its own serialized worker.
	tick := worker.NewSerial(cfg.QueueSize)
	economy := openEconomy{}

	sweeper := service.NewSweeper(listingStore, fees, economy, tick)

	sweepDone := make(chan struct{})
	go func() {
		defer close(sweepDone)
		ticker := time.NewTicker(cfg.SweepInterval)
		defer ticker.Stop()
		lastRun := clock.Now()
		log.Printf("sweeper running every %s", cfg.SweepInterval)
		for {
			select {
			case <-ticker.C:
				now := clock.Now()
				sweeper.Sweep(ctx, lastRun, now)
				lastRun = now
				// Evictions may have changed what markets display.
				notifier.UIRefresh(domain.SystemMarketID)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down...")
	cancel()
	<-sweepDone
	log.Println("sweeper stopped")

	tick.Close()
	storageWorker.Close()
	log.Println("workers stopped")

	rdb.Close()
	db.Close()
	log.Println("connections closed")
}
