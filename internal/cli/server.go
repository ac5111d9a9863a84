package cli

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"trivia-duel-service/internal/app"
	"trivia-duel-service/internal/config"
	"trivia-duel-service/internal/infra/groq"
	"trivia-duel-service/internal/infra/memory"
	mongostore "trivia-duel-service/internal/infra/mongo"
	natsrelay "trivia-duel-service/internal/infra/nats"
	"trivia-duel-service/internal/infra/postgres"
	redisinfra "trivia-duel-service/internal/infra/redis"
	"trivia-duel-service/internal/infra/scheduler"
	"trivia-duel-service/internal/infra/token"
	transport "trivia-duel-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

// relay carries events between instances and feeds the local hub.
type relay interface {
	app.Broadcaster
	Run(ctx context.Context, sink app.Broadcaster, ready chan<- struct{}) error
}

// pickSequencer returns a counter every instance shares when Redis is
// available. Relayed events from independent local counters are not
// comparable, so they go out unsequenced.
func pickSequencer(redisClient *redis.Client, relayed bool) app.Sequencer {
	switch {
	case redisClient != nil:
		return redisinfra.NewSequencer(redisClient)
	case relayed:
		return memory.UnorderedSequencer{}
	default:
		return memory.NewSequencer()
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := config.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
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

	var (
		users   app.UserRepository   = memory.NewUserStore()
		results app.ResultRepository = memory.NewResultStore()
		duels   app.DuelRepository   = memory.NewDuelStore()
	)
	if cfg.Postgres.URL != "" {
		db := openBunDB(cfg.Postgres.URL)
		defer db.Close()
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		users = postgres.NewUserStore(db)
		duels = postgres.NewDuelStore(db)
		results = postgres.NewResultStore(pool)
	}
	if cfg.Mongo.URL != "" {
		client, err := mongostore.Connect(ctx, cfg.Mongo.URL)
		if err != nil {
			return err
		}
		defer client.Disconnect(context.Background())
		duels = mongostore.NewDuelStore(client, cfg.Mongo.Database)
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

	var source app.QuestionSource
	if cfg.Generator.APIKey != "" {
		client := groq.NewClient(cfg.Generator.APIKey,
			groq.WithBaseURL(cfg.Generator.BaseURL),
			groq.WithModel(cfg.Generator.Model),
			groq.WithTimeout(config.TTLDuration(cfg.Generator.Timeout, 30*time.Second)),
			groq.WithLogger(logger))
		source = groq.NewSource(client, logger)
		if cacheTTL := config.TTLDuration(cfg.Generator.CacheTTL, 0); cacheTTL > 0 {
			if redisClient != nil {
				source = redisinfra.NewQuestionCache(redisClient, source, cacheTTL, logger)
			} else {
				source = memory.NewQuestionCache(source, cacheTTL)
			}
		}
	} else {
		logger.Info("no generator api key configured, using fallback questions")
	}
	generator := app.NewQuestionGenerator(source, logger)

	hub := app.NewHub()
	var broadcaster app.Broadcaster = hub
	var eventRelay relay
	switch {
	case cfg.NATS.URL != "":
		r, err := natsrelay.Connect(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			return err
		}
		defer r.Close()
		eventRelay = r
	case redisClient != nil && cfg.Redis.Relay:
		eventRelay = redisinfra.NewRelay(redisClient, cfg.Redis.Channel, logger)
	}
	seq := pickSequencer(redisClient, eventRelay != nil)
	if eventRelay != nil && redisClient == nil {
		logger.Warn("relay without redis: broadcasts are unsequenced")
	}
	if eventRelay != nil {
		ready := make(chan struct{})
		go func() {
			if err := eventRelay.Run(ctx, hub, ready); err != nil {
				logger.Error("event relay stopped", zap.Error(err))
			}
		}()
		select {
		case <-ready:
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(10 * time.Second):
			logger.Warn("event relay not ready, continuing")
		}
		broadcaster = eventRelay
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = uuid.NewString()
		logger.Warn("auth.secret not set, tokens will not survive a restart")
	}
	issuer, err := token.NewIssuer(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		return err
	}

	board := app.NewLeaderboardService(results, users)
	scores := app.NewScoreCoordinator(users, results, board, broadcaster, seq, logger)
	auth := app.NewAuthService(users, logger)
	duelService := app.NewDuelService(duels, users, results, generator, logger)

	rebroadcast, err := scheduler.New(cfg.Leaderboard.RebroadcastCron, scores, logger)
	if err != nil {
		return err
	}
	rebroadcast.Start()
	defer rebroadcast.Stop()

	api := transport.NewAPIHandler(auth, duelService, board, scores, issuer, users, logger)
	ws := transport.NewWSHandler(hub, board, scores, logger)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(api, ws),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting trivia service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down server")
	case err := <-serveErr:
		logger.Error("server failed", zap.Error(err))
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
