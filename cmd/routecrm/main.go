package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/example/route-crm/internal/application"
	"github.com/example/route-crm/internal/calendar"
	"github.com/example/route-crm/internal/config"
	httptransport "github.com/example/route-crm/internal/http"
	"github.com/example/route-crm/internal/logging"
	"github.com/example/route-crm/internal/persistence/sqlite"
	"github.com/example/route-crm/internal/recurrence"
	"github.com/example/route-crm/internal/tour"
)

func main() {
	// A missing .env file is fine; the environment wins either way.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(os.Stdout, cfg.LogFormat, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, falling back to Europe/Berlin", "timezone", cfg.Timezone)
		loc = calendar.DefaultLocation()
	}

	store, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := store.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	if err := store.Migrate(context.Background()); err != nil {
		logger.Error("failed to apply migrations", "error", err)
		os.Exit(1)
	}

	idGenerator := uuid.NewString
	now := time.Now

	customerRepo := sqlite.NewCustomerRepository(store)
	listRepo := sqlite.NewCustomerListRepository(store)
	ruleRepo := sqlite.NewRuleRepository(store)
	slotRepo := sqlite.NewTourSlotRepository(store)

	cache := tour.NewCache(cfg.TourCacheSize)
	engine := recurrence.NewEngine(loc)
	aggregator := tour.NewAggregator(engine, cache, cfg.LookbackDays, cfg.HorizonDays)

	customerService := application.NewCustomerService(customerRepo, cache, loc, idGenerator, now, logger)
	listService := application.NewListService(listRepo, cache, loc, idGenerator, now, logger)
	ruleService := application.NewRuleService(ruleRepo, customerRepo, cache, loc, idGenerator, now, logger)
	tourService := application.NewTourService(customerRepo, listRepo, slotRepo, aggregator, loc, idGenerator, now, logger)

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Customers:  httptransport.NewCustomerHandler(customerService, loc, logger),
		Lists:      httptransport.NewListHandler(listService, loc, logger),
		Rules:      httptransport.NewRuleHandler(ruleService, loc, logger),
		Tours:      httptransport.NewTourHandler(tourService, loc, logger),
		Middleware: []func(http.Handler) http.Handler{httptransport.RequestLogger(logger)},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("route CRM API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}
