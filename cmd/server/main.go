/*
main.go - Application entry point

STARTUP SEQUENCE:
  1. Load env config (.env supported), parse flag overrides
  2. Open the SQLite store
  3. Wire the engine (service, authorizer, directory, cache)
  4. Start the accrual scheduler
  5. Serve HTTP with graceful shutdown on SIGINT/SIGTERM

FLAGS:
  -port    HTTP port (overrides APP_PORT)
  -db      SQLite path (overrides DB_PATH); ":memory:" for in-memory
*/
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/ledger"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load()
	port := flag.String("port", cfg.AppPort, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path (\":memory:\" for in-memory)")
	flag.Parse()

	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer store.Close()

	authorizer := api.RoleAuthorizer{Users: store}
	directory := ledger.StoreDirectory{Users: store}
	service := ledger.NewService(store, authorizer, directory, log)

	cache := api.NewCache(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if cache != nil {
		log.WithField("addr", cfg.RedisAddr).Info("redis read cache enabled")
	}

	handler := api.NewHandler(service, store, store, cache, log)
	router := api.NewRouter(handler, cfg.JWTSecret)

	scheduler := api.NewAccrualScheduler(service, cfg.SchedulerInterval, log)
	scheduler.Enabled = cfg.SchedulerEnabled
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         ":" + *port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithField("addr", server.Addr).Info("payroll engine listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Info("server stopped")
}
