package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/Jasani8259/Final-Capstone/internal/auth"
	"github.com/Jasani8259/Final-Capstone/internal/backend"
	"github.com/Jasani8259/Final-Capstone/internal/config"
	"github.com/Jasani8259/Final-Capstone/internal/dashboard"
	"github.com/Jasani8259/Final-Capstone/internal/db"
	healthgrpc "github.com/Jasani8259/Final-Capstone/internal/grpc"
	internalhttp "github.com/Jasani8259/Final-Capstone/internal/http"
	"github.com/Jasani8259/Final-Capstone/internal/jobs"
	"github.com/Jasani8259/Final-Capstone/internal/logging"
	"github.com/Jasani8259/Final-Capstone/internal/metrics"
	"github.com/Jasani8259/Final-Capstone/internal/navigation"
	"github.com/Jasani8259/Final-Capstone/internal/repository"
	"github.com/Jasani8259/Final-Capstone/internal/sources"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway and the gRPC health endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return Serve(cmd.Context(), cfg, opts.logger(cfg))
		},
	}
}

// Serve runs until ctx is cancelled, then shuts both servers down.
func Serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	directory, closeDirectory, err := openDirectory(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeDirectory()

	var cache dashboard.IdentityCache
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = redisClient.Close()
			return fmt.Errorf("redis ping failed: %w", err)
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Warn().Err(err).Msg("redis close error")
			}
		}()
		cache = dashboard.NewRedisCache(redisClient, cfg.SessionTTL)
	}

	views, err := navigation.NewRegistry(navigation.DefaultViews())
	if err != nil {
		return err
	}
	recorder := metrics.New()
	backendClient := backend.New(cfg.BackendURL, cfg.BackendProbePath, cfg.RequestTimeout)

	manager := dashboard.NewManager(dashboard.Options{
		Views: views,
		Sources: sources.NewRegistry(sources.Options{
			AppointmentCapacity: cfg.AppointmentCapacity,
			RecentLabLimit:      cfg.RecentLabLimit,
			LabListLimit:        cfg.LabListLimit,
		}),
		Fetcher:        backendClient,
		PollInterval:   cfg.PollInterval,
		RequestTimeout: cfg.RequestTimeout,
		SessionTTL:     cfg.SessionTTL,
		Cache:          cache,
		Observer:       recorder,
		OnNavigate:     recorder.ObserveNavigation,
		OnSessions:     recorder.SetActiveSessions,
		Logger:         logging.Component(log, "sessions"),
	})
	defer manager.Close()
	manager.StartReaper(ctx, cfg.SessionReapInterval)

	verifier, err := auth.NewVerifier(directory)
	if err != nil {
		return err
	}
	server := internalhttp.NewServer(cfg, verifier, manager, views, backendClient, recorder, logging.Component(log, "http"))
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer, healthServer, err := healthgrpc.NewServer(cfg.ServiceAuthToken)
	if err != nil {
		return fmt.Errorf("grpc init failed: %w", err)
	}
	jobs.StartBackendProbe(ctx, cfg, backendClient, func(up bool) {
		recorder.SetBackendUp(up)
		healthgrpc.SetBackendServing(healthServer, up)
	}, logging.Component(log, "probe"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("http listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if cfg.GRPCAddr != "" {
		g.Go(func() error {
			listener, err := net.Listen("tcp", cfg.GRPCAddr)
			if err != nil {
				return fmt.Errorf("grpc listen: %w", err)
			}
			log.Info().Str("addr", cfg.GRPCAddr).Msg("grpc listening")
			if err := grpcServer.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				return fmt.Errorf("grpc server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("shutdown error")
		}
		healthServer.Shutdown()
		grpcServer.GracefulStop()
		return nil
	})

	err = g.Wait()
	log.Info().Msg("stopped")
	return err
}

// openDirectory picks Postgres when DATABASE_URL is set and the demo
// accounts otherwise.
func openDirectory(ctx context.Context, cfg config.Config, log zerolog.Logger) (auth.UserDirectory, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, signing in against the built-in demo accounts")
		directory, err := auth.NewStaticDirectory(auth.DemoAccounts())
		if err != nil {
			return nil, nil, err
		}
		return directory, func() {}, nil
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("db connection failed: %w", err)
	}
	store := repository.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ensure schema: %w", err)
	}
	return store, pool.Close, nil
}
