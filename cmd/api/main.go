package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplus-backend/api/routes"
	"github.com/angelmondragon/surplus-backend/internal/addresses"
	"github.com/angelmondragon/surplus-backend/internal/auth"
	"github.com/angelmondragon/surplus-backend/internal/cart"
	"github.com/angelmondragon/surplus-backend/internal/categories"
	"github.com/angelmondragon/surplus-backend/internal/orders"
	products "github.com/angelmondragon/surplus-backend/internal/products"
	"github.com/angelmondragon/surplus-backend/internal/reviews"
	"github.com/angelmondragon/surplus-backend/internal/users"
	"github.com/angelmondragon/surplus-backend/internal/vendors"
	"github.com/angelmondragon/surplus-backend/pkg/auth/session"
	"github.com/angelmondragon/surplus-backend/pkg/config"
	"github.com/angelmondragon/surplus-backend/pkg/db"
	"github.com/angelmondragon/surplus-backend/pkg/logger"
	"github.com/angelmondragon/surplus-backend/pkg/metrics"
	"github.com/angelmondragon/surplus-backend/pkg/migrate"
	"github.com/angelmondragon/surplus-backend/pkg/outbox"
	"github.com/angelmondragon/surplus-backend/pkg/redis"
	"github.com/angelmondragon/surplus-backend/pkg/storage/gcs"
	"github.com/angelmondragon/surplus-backend/pkg/tracing"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	// Money goes over the wire as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true

	shutdownTracing, err := tracing.Init(context.Background(), cfg.Tracing, "surplus-api")
	if err != nil {
		logg.Error(context.Background(), "failed to init tracing", err)
		os.Exit(1)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	services, err := buildServices(context.Background(), cfg, logg, dbClient, sessionManager, registry)
	if err != nil {
		logg.Error(context.Background(), "failed to wire services", err)
		os.Exit(1)
	}
	services.Config = cfg
	services.Logger = logg
	services.Registry = registry
	services.DB = dbClient
	services.Redis = redisClient
	services.Sessions = sessionManager

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(services),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}

func buildServices(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, sessions *session.Manager, reg prometheus.Registerer) (routes.Deps, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	productRepo := products.NewRepository(conn)
	cartRepo := cart.NewRepository(conn)
	addressRepo := addresses.NewRepository(conn)
	vendorRepo := vendors.NewRepository(conn)

	categorySvc, err := categories.NewService(categories.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}

	var signer products.ImageSigner
	if cfg.GCS.Enabled() {
		gcsClient, err := gcs.NewClient(ctx, cfg.GCS, cfg.GCP, logg)
		if err != nil {
			return routes.Deps{}, err
		}
		signer = gcsClient
	} else {
		logg.Warn(ctx, "gcs bucket not configured, product image uploads disabled")
	}

	productSvc, err := products.NewService(productRepo, dbClient, categorySvc, emitter, signer, cfg.Media, logg)
	if err != nil {
		return routes.Deps{}, err
	}

	cartSvc, err := cart.NewService(cartRepo, productRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	addressSvc, err := addresses.NewService(addressRepo, dbClient)
	if err != nil {
		return routes.Deps{}, err
	}

	orderSvc, err := orders.NewService(orders.Deps{
		Repo:      orders.NewRepository(conn),
		Cart:      cartRepo,
		Products:  productRepo,
		Addresses: addressRepo,
		Tx:        dbClient,
		Outbox:    emitter,
		Metrics:   metrics.NewOrderMetrics(reg),
		Logger:    logg,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	reviewSvc, err := reviews.NewService(reviews.NewRepository(conn), productRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	vendorSvc, err := vendors.NewService(vendorRepo)
	if err != nil {
		return routes.Deps{}, err
	}

	authSvc, err := auth.NewService(auth.ServiceParams{
		Tx:             dbClient,
		Users:          users.NewRepository(conn),
		Vendors:        vendorRepo,
		Sessions:       sessions,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	return routes.Deps{
		Auth:       authSvc,
		Products:   productSvc,
		Categories: categorySvc,
		Cart:       cartSvc,
		Orders:     orderSvc,
		Reviews:    reviewSvc,
		Addresses:  addressSvc,
		Vendors:    vendorSvc,
	}, nil
}
