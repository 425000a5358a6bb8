package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Overland-East-Bay/fleet-console-api/internal/adapters/httpapi"
	memcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/contractrepo"
	memcustomerrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/customerrepo"
	memidempotency "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/idempotency"
	memvehiclerepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/memory/vehiclerepo"
	postgres "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres"
	pgcontractrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/contractrepo"
	pgcustomerrepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/customerrepo"
	pgidempotency "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/idempotency"
	pgvehiclerepo "github.com/Overland-East-Bay/fleet-console-api/internal/adapters/postgres/vehiclerepo"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/cache"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/contracts"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/customers"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/reconcile"
	"github.com/Overland-East-Bay/fleet-console-api/internal/app/vehicles"
	platformclock "github.com/Overland-East-Bay/fleet-console-api/internal/platform/clock"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/config"
	"github.com/Overland-East-Bay/fleet-console-api/internal/platform/logger"
	contractrepoport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/contractrepo"
	customerrepoport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/customerrepo"
	idempotencyport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/idempotency"
	vehiclerepoport "github.com/Overland-East-Bay/fleet-console-api/internal/ports/out/vehiclerepo"
)

func main() {
	if err := run(); err != nil {
		logger.Error(context.Background(), "api exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"), os.Getenv)
	if err != nil {
		return err
	}
	logger.Init(cfg.Log)

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	clk := platformclock.NewSystemClockIn(loc)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var (
		customerRepo customerrepoport.Repository
		vehicleRepo  vehiclerepoport.Repository
		contractRepo contractrepoport.Repository
		idemStore    idempotencyport.Store
	)

	switch cfg.Storage.Backend {
	case "postgres":
		pool, err := postgres.NewPool(ctx, cfg.Storage.DatabaseURL, postgres.PoolOptions{MaxConns: cfg.Storage.MaxConns})
		if err != nil {
			return err
		}
		defer pool.Close()
		if cfg.Storage.Migrate {
			if err := postgres.Migrate(ctx, pool); err != nil {
				return err
			}
			logger.Info(ctx, "migrations applied")
		}

		customerRepo = pgcustomerrepo.NewRepo(pool)
		vehicleRepo = pgvehiclerepo.NewRepo(pool)
		contractRepo = pgcontractrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	default:
		memCustomers := memcustomerrepo.NewRepo()
		memVehicles := memvehiclerepo.NewRepo()
		customerRepo = memCustomers
		vehicleRepo = memVehicles
		contractRepo = memcontractrepo.NewRepo(memCustomers, memVehicles)
		idemStore = memidempotency.NewStore()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	recordCache := cache.New(clk,
		cache.WithTTL(cache.FamilyContracts, cfg.Cache.ContractsTTL),
		cache.WithTTL(cache.FamilyCustomers, cfg.Cache.CustomersTTL),
		cache.WithMetrics(cache.NewMetrics(reg)),
	)

	contractSvc := contracts.NewService(contractRepo, customerRepo, vehicleRepo, recordCache, clk,
		contracts.WithSearchDelay(cfg.Search.Delay))
	defer contractSvc.Close()
	customerSvc := customers.NewService(customerRepo, contractRepo, recordCache, clk,
		customers.WithSearchDelay(cfg.Search.Delay))
	defer customerSvc.Close()
	reconciler := reconcile.NewService(contractRepo, vehicleRepo, recordCache, reconcile.WithRefresher(contractSvc))

	sched, err := reconcile.NewScheduler(reconciler, recordCache, clk, reconcile.Schedules{
		Reconcile:  cfg.Jobs.Reconcile,
		Repair:     cfg.Jobs.ReconcileRepair,
		Expire:     cfg.Jobs.Expire,
		CacheSweep: cfg.Jobs.CacheSweep,

		IdempotencyPurge:     cfg.Jobs.IdempotencyPurge,
		IdempotencyRetention: cfg.Jobs.IdempotencyRetention,
		Idempotency:          idemStore,

		Location: loc,
	})
	if err != nil {
		return err
	}
	sched.Start()

	api := httpapi.NewServer(contractSvc, customerSvc, vehicles.NewService(vehicleRepo, clk), reconciler, idemStore, clk)
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{Gatherer: reg})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "api listening",
			"port", cfg.Server.Port,
			"storage", cfg.Storage.Backend,
			"timezone", loc.String(),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	sched.Stop(shutdownCtx)
	return srv.Shutdown(shutdownCtx)
}
