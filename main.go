package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/arima-bot/internal/access"
	"github.com/BatmanBruc/arima-bot/internal/admin"
	"github.com/BatmanBruc/arima-bot/internal/broadcast"
	"github.com/BatmanBruc/arima-bot/internal/chat"
	"github.com/BatmanBruc/arima-bot/internal/config"
	"github.com/BatmanBruc/arima-bot/internal/handlers"
	"github.com/BatmanBruc/arima-bot/internal/llm"
	"github.com/BatmanBruc/arima-bot/internal/messenger"
	"github.com/BatmanBruc/arima-bot/internal/middleware"
	"github.com/BatmanBruc/arima-bot/internal/modelstatus"
	"github.com/BatmanBruc/arima-bot/internal/opsserver"
	"github.com/BatmanBruc/arima-bot/internal/plans"
	"github.com/BatmanBruc/arima-bot/internal/sl"
	"github.com/BatmanBruc/arima-bot/store"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// jobQueue is a broadcast queue with a worker lifecycle.
type jobQueue interface {
	broadcast.Queue
	Start()
	Stop()
}

func main() {
	_ = config.LoadEnvFile("config.env")
	cfg := config.MustLoad()

	log := setupLogger(cfg.Env)
	log.Info("starting arima bot", slog.String("env", cfg.Env), slog.Int("admins", len(cfg.AdminIDs())))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rdb, err := store.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Prefix)
	if err != nil {
		log.Error("failed to connect to redis", sl.Err(err))
		os.Exit(1)
	}
	defer rdb.Close()
	sessions := store.NewRedisSessionStore(rdb, cfg.Redis.SessionTTLHours)

	pg, err := store.NewPostgresStore(ctx, cfg.Postgres.DSN())
	if err != nil {
		log.Error("failed to connect to postgres", sl.Err(err))
		os.Exit(1)
	}
	defer pg.Close()

	catalog := plans.NewCatalog(cfg.Limits.ByLevel())
	policy := access.NewPolicy(pg, catalog, cfg.AdminIDs())
	counter := access.NewCounter(pg, cfg.Location(), log)
	gate := access.NewGate(policy, counter)

	api := llm.New(llm.Config{
		APIKey:   cfg.API.Key,
		ChatURL:  cfg.API.URL,
		ImageURL: cfg.API.ImageURL,
		Timeout:  cfg.API.Timeout,
	})
	status := modelstatus.NewCache()
	sweeper := modelstatus.NewSweeper(api, status, modelstatus.SweeperConfig{
		Models:     catalog.AllModels(),
		ImageModel: cfg.API.ImageModel,
		ImageSize:  cfg.API.ImageSize,
		Timeout:    cfg.API.TestTimeout,
	}, log)

	chatSvc := chat.NewService(gate, api, pg, catalog, status, chat.Config{
		SystemPrompt:      cfg.Chat.SystemPrompt,
		Temperature:       cfg.Chat.Temperature,
		HistoryMaxLen:     cfg.Chat.HistoryMaxLen,
		ImageModel:        cfg.API.ImageModel,
		ImageSize:         cfg.API.ImageSize,
		DefaultGroupModel: cfg.Chat.DefaultGroupModel,
	}, log)

	httpClient := &http.Client{
		Timeout: cfg.Telegram.PollTimeout + cfg.API.Timeout,
	}
	b, err := bot.New(
		cfg.Telegram.Token,
		bot.WithHTTPClient(cfg.Telegram.PollTimeout, httpClient),
	)
	if err != nil {
		log.Error("failed to create bot", sl.Err(err))
		os.Exit(1)
	}
	m := messenger.New(b)

	adminSvc := admin.NewService(pg, policy, catalog, m, admin.Config{
		Validity: cfg.Subscription.Validity(),
		Location: cfg.Location(),
	}, log)

	manager := broadcast.NewManager(pg, m, handlers.NewBroadcastReporter(m, log), cfg.Broadcast.Delay, log)
	queue, err := newQueue(cfg, manager, log)
	if err != nil {
		log.Error("failed to set up broadcast queue", sl.Err(err))
		os.Exit(1)
	}
	manager.SetQueue(queue)
	queue.Start()
	defer queue.Stop()

	h := handlers.NewHandlers(handlers.Deps{
		Sessions:   sessions,
		Users:      pg,
		Catalog:    catalog,
		Chat:       chatSvc,
		Admin:      adminSvc,
		Broadcasts: manager,
		Sweeper:    sweeper,
		Status:     status,
		Counter:    counter,
		Admins:     policy,
		Config: handlers.Config{
			SupportUsername: cfg.Telegram.SupportUsername,
			PaymentUsername: cfg.Telegram.PaymentUsername,
			GroupTrigger:    cfg.Chat.GroupTrigger,
		},
		Log: log,
	})

	handlerChain := middleware.New(policy, pg, cfg.Chat.GroupTrigger, log).Chain(h.MainHandler)

	b.RegisterHandlerMatchFunc(func(update *models.Update) bool {
		return update.Message != nil
	}, handlerChain)

	b.RegisterHandler(bot.HandlerTypeCallbackQueryData, "", bot.MatchTypePrefix, handlerChain)

	ops := opsserver.New(opsserver.Config{
		Address:     cfg.HTTPServer.Address,
		Timeout:     cfg.HTTPServer.Timeout,
		IdleTimeout: cfg.HTTPServer.IdleTimeout,
	}, map[string]opsserver.Pinger{
		"postgres": pg,
		"redis":    rdb,
	}, log)
	go func() {
		if err := ops.Run(ctx); err != nil {
			log.Error("ops server stopped", sl.Err(err))
		}
	}()

	log.Info("bot started", slog.String("ops_addr", cfg.HTTPServer.Address))
	b.Start(ctx)
	log.Info("bot stopped")
}

// newQueue prefers the durable RabbitMQ queue and falls back to the
// in-process scheduler when AMQP_URL is not set.
func newQueue(cfg *config.Config, manager *broadcast.Manager, log *slog.Logger) (jobQueue, error) {
	if cfg.Broadcast.AMQPURL != "" {
		q, err := broadcast.NewAMQPQueue(cfg.Broadcast.AMQPURL, cfg.Broadcast.QueueName, manager, log)
		if err != nil {
			return nil, err
		}
		return q, nil
	}
	return broadcast.NewScheduler(manager, broadcast.SchedulerConfig{Workers: cfg.Broadcast.Workers}, log), nil
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		log = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}

	return log
}
