package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pyquiz-service/internal/app"
	"pyquiz-service/internal/bank"
	"pyquiz-service/internal/config"
	"pyquiz-service/internal/infra/memory"
	"pyquiz-service/internal/infra/postgres"
	infraredis "pyquiz-service/internal/infra/redis"
	"pyquiz-service/internal/infra/remote"
	"pyquiz-service/internal/infra/sqlite"
	"pyquiz-service/internal/logger"
	transport "pyquiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var (
		pool *pgxpool.Pool
		db   *bun.DB
	)
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		db = postgres.OpenDB(cfg.Postgres.URL)
		defer db.Close()
	}

	catalog, err := memory.DefaultCatalog()
	if err != nil {
		return err
	}
	questions := newQuestionBank(cfg, catalog, pool, redisClient, log)

	recorder, closeHistory, err := newRecorder(cfg, redisClient, log)
	if err != nil {
		return err
	}
	defer closeHistory()

	var (
		reporter    app.Reporter = app.NopReporter{}
		leaderboard transport.Leaderboard
	)
	if db != nil {
		pgReporter := postgres.NewSessionReporter(db)
		reporter, leaderboard = pgReporter, pgReporter
	}
	if cfg.Remote.BaseURL != "" {
		reporter = remote.NewReporter(remote.New(cfg.Remote.BaseURL, config.TTLDuration(cfg.Remote.Timeout, 3*time.Second)))
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}

	serviceCfg, err := serviceConfig(cfg)
	if err != nil {
		return err
	}
	service := app.NewQuizService(store, questions, recorder, reporter, serviceCfg, log)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", transport.NewWSHandler(service, log).ServeWS)
	transport.NewRESTHandler(service, leaderboard, log).Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := server.Shutdown(shutdownCtx)
		service.Wait()
		return err
	})
	return g.Wait()
}

// newQuestionBank picks the primary question source: the remote API when
// configured, else Postgres behind a Redis or in-process cache. The bundled
// catalog is always the fallback.
func newQuestionBank(cfg config.Config, catalog *memory.StaticCatalog, pool *pgxpool.Pool, redisClient *redis.Client, log *zap.Logger) *bank.Bank {
	timeout := config.TTLDuration(cfg.Remote.Timeout, 3*time.Second)
	fallback := bank.NewCatalogSource(catalog, cfg.Shuffle())

	var primary bank.Source
	switch {
	case cfg.Remote.BaseURL != "":
		primary = remote.New(cfg.Remote.BaseURL, timeout)
	case pool != nil:
		loader := postgres.NewCategoryLoader(pool)
		quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
		var repo bank.CategoryRepository
		if redisClient != nil {
			repo = infraredis.NewCategoryRepository(redisClient, loader, quizTTL)
		} else {
			repo = memory.NewCategoryRepository(loader, quizTTL)
		}
		primary = bank.NewCatalogSource(repo, cfg.Shuffle())
	}
	return bank.New(primary, fallback, timeout, log)
}

func newRecorder(cfg config.Config, redisClient *redis.Client, log *zap.Logger) (*app.Recorder, func(), error) {
	var (
		kv      app.KVStore
		closeFn = func() {}
	)
	switch cfg.History.Driver {
	case "", "memory":
		kv = memory.NewKVStore()
	case "redis":
		if redisClient == nil {
			return nil, nil, fmt.Errorf("history driver redis needs redis.addr")
		}
		kv = infraredis.NewKVStore(redisClient)
	case "sqlite":
		path := cfg.History.Path
		if path == "" {
			path = "data/history.db"
		}
		store, err := sqlite.Open(path)
		if err != nil {
			return nil, nil, err
		}
		kv = store
		closeFn = func() { _ = store.Close() }
	default:
		return nil, nil, fmt.Errorf("unknown history driver %q", cfg.History.Driver)
	}
	return app.NewRecorder(kv, cfg.History.Capacity, log), closeFn, nil
}

func serviceConfig(cfg config.Config) (app.Config, error) {
	out := app.DefaultConfig()
	if cfg.Quiz.QuestionCount > 0 {
		out.QuestionCount = cfg.Quiz.QuestionCount
	}
	if cfg.Quiz.TimeLimit > 0 {
		out.Session.Scoring.TimeLimit = cfg.Quiz.TimeLimit
	}
	if cfg.Scoring.TimeBonusMax > 0 {
		out.Session.Scoring.TimeBonusMax = cfg.Scoring.TimeBonusMax
	}
	if cfg.Scoring.StreakBonus > 0 {
		out.Session.Scoring.StreakBonus = cfg.Scoring.StreakBonus
	}
	out.Session.Tick = config.TTLDuration(cfg.Quiz.Tick, time.Second)
	if err := out.Session.Scoring.Validate(); err != nil {
		return app.Config{}, err
	}
	return out, nil
}
