// README: Entry point; loads config, wires stores and services, starts the HTTP server and the compass sweeper.
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

	firebase "firebase.google.com/go/v4"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"trailquest/internal/config"
	httptransport "trailquest/internal/http"
	"trailquest/internal/http/handlers"
	"trailquest/internal/infra"
	"trailquest/internal/maps"
	"trailquest/internal/modules/orientation"
	"trailquest/internal/modules/position"
	"trailquest/internal/modules/waypoint"
)

const shutdownTimeout = 10 * time.Second

// positionBackend is what devices report into and the position source reads.
type positionBackend interface {
	position.Provider
	position.Permissions
	handlers.FixReporter
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("trailquest-api stopped", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var app *firebase.App
	if cfg.Auth.Mode == config.AuthModeFirebase || cfg.Store.Backend == config.BackendFirestore {
		var err error
		app, err = infra.NewFirebaseApp(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return err
		}
	}

	var verifier infra.TokenVerifier
	if cfg.Auth.Mode == config.AuthModeJWT {
		logger.Warn("auth uses HS256 development tokens")
		verifier = infra.NewJWTVerifier(cfg.Auth.JWTSecret)
	} else {
		v, err := infra.NewFirebaseVerifier(ctx, app)
		if err != nil {
			return err
		}
		verifier = v
	}

	store, closeStore, err := openWaypointStore(ctx, cfg, app)
	if err != nil {
		return err
	}
	defer closeStore()

	var positions positionBackend
	if cfg.Store.Backend == config.BackendMemory {
		positions = position.NewMemoryStore()
	} else {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		positions = position.NewRedisStore(redisClient, cfg.Redis.FixTTL)
	}
	source := position.NewSource(positions, positions, logger.Named("position"))

	var labeler waypoint.Labeler
	if cfg.Maps.APIKey != "" {
		geocoder, err := maps.NewGeocodeService(cfg.Maps.APIKey, cfg.Maps.Language)
		if err != nil {
			return err
		}
		labeler = geocoder
	}
	waypointSvc := waypoint.NewService(source, store, labeler, logger.Named("waypoint"))

	compass := orientation.NewRegistry(cfg.Compass.IdleTimeout, logger.Named("compass"))
	go compass.RunSweeper(ctx, cfg.Compass.SweepInterval)

	if cfg.Env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Verifier:  verifier,
		Waypoints: waypointSvc,
		Positions: source,
		Reporter:  positions,
		Compass:   compass,
		Logger:    logger.Named("http"),
	})
	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("store", cfg.Store.Backend),
			zap.String("auth", cfg.Auth.Mode),
		)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	return server.Shutdown(shutdownCtx)
}

// openWaypointStore builds the configured waypoint backend and returns a
// cleanup func for its client.
func openWaypointStore(ctx context.Context, cfg config.Config, app *firebase.App) (waypoint.Store, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendFirestore:
		client, err := infra.NewFirestore(ctx, app)
		if err != nil {
			return nil, nil, err
		}
		return waypoint.NewFirestoreStore(client, cfg.Store.Collection), func() { _ = client.Close() }, nil

	case config.BackendPostgres:
		pool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, nil, err
		}
		store := waypoint.NewPostgresStore(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		return store, pool.Close, nil

	case config.BackendMongo:
		client, err := infra.NewMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, nil, err
		}
		store := waypoint.NewMongoStore(client.Database(cfg.Mongo.Database), cfg.Store.Collection)
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}
		return store, func() { _ = client.Disconnect(context.Background()) }, nil

	case config.BackendMemory:
		return waypoint.NewMemoryStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
}
