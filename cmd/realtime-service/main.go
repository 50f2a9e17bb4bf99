package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meshline-backend/internal/database"
	httpHandler "meshline-backend/internal/handler/http"
	wsHandler "meshline-backend/internal/handler/ws"
	"meshline-backend/internal/middleware"
	"meshline-backend/internal/notify"
	"meshline-backend/internal/realtime"
	"meshline-backend/internal/repository/cassandra"
	"meshline-backend/internal/repository/cockroach"
	redisrepo "meshline-backend/internal/repository/redis"
	"meshline-backend/internal/worker"
	"meshline-backend/pkg/config"
	"meshline-backend/pkg/constants"
	"meshline-backend/pkg/jwt"
	"meshline-backend/pkg/logger"
	"meshline-backend/pkg/metrics"
	"meshline-backend/pkg/push"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	log := logger.With(zap.String("service", cfg.Server.ServiceName))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Databases
	cockroachDB, err := database.NewCockroachDB(ctx, cfg.Cockroach)
	if err != nil {
		log.Fatal("failed to connect to cockroach", zap.Error(err))
	}
	defer cockroachDB.Close()
	log.Info("connected to cockroach")

	cassandraDB, err := database.NewCassandraDB(cfg.Cassandra)
	if err != nil {
		log.Fatal("failed to connect to cassandra", zap.Error(err))
	}
	defer cassandraDB.Close()
	log.Info("connected to cassandra")

	redisDB, err := database.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisDB.Close()
	log.Info("connected to redis")

	// Repositories
	userRepo := cockroach.NewUserRepository(cockroachDB.Pool)
	blockedRepo := cockroach.NewBlockedUserRepository(cockroachDB.Pool)
	conversationRepo := cockroach.NewConversationRepository(cockroachDB.Pool)
	callRepo := cockroach.NewCallRepository(cockroachDB.Pool)
	pollRepo := cockroach.NewPollRepository(cockroachDB.Pool)
	messageRepo := cassandra.NewMessageRepository(cassandraDB)
	memberRepo := redisrepo.NewMemberRepository(redisDB.Client)
	presenceRepo := redisrepo.NewPresenceRepository(redisDB.Client)
	pushTokenRepo := redisrepo.NewPushTokenRepository(redisDB.Client)
	publisher := redisrepo.NewEventPublisher(redisDB.Client)

	// Metrics
	appMetrics := metrics.NewMetrics(cfg.Server.ServiceName)

	// Realtime core
	presence := realtime.NewPresenceRegistry(log)
	calls := realtime.NewCallManager(presence, userRepo, blockedRepo, callRepo, log)
	groups := realtime.NewGroupCallTracker(presence, userRepo, log)
	signaling := realtime.NewSignalingRelay(presence, log)
	broadcaster := realtime.NewBroadcaster(realtime.BroadcasterDeps{
		Presence:      presence,
		Users:         userRepo,
		Blocks:        blockedRepo,
		Conversations: conversationRepo,
		Messages:      messageRepo,
		Polls:         pollRepo,
		Members:       memberRepo,
		Publisher:     publisher,
		Metrics:       appMetrics,
	}, log)
	hub := realtime.NewHub(presence, calls, groups, signaling, broadcaster, presenceRepo, log)

	// Background workers
	releaser := worker.NewScheduledReleaser(messageRepo, broadcaster, cfg.Worker.ScheduledReleaseInterval, appMetrics, log)
	sweeper := worker.NewSelfDestructSweeper(messageRepo, broadcaster, cfg.Worker.SelfDestructSweepInterval, appMetrics, log)
	go releaser.Run(ctx)
	go sweeper.Run(ctx)

	// Push notifications
	provider := newPushProvider(cfg, log)
	dispatcher := notify.NewDispatcher(publisher, conversationRepo, presenceRepo, pushTokenRepo, provider, appMetrics, log)
	go dispatcher.Run(ctx)

	// Handlers
	jwtManager := jwt.NewManager(cfg.JWT.Secret, 15*time.Minute)
	socketHandler := wsHandler.NewHandler(hub, appMetrics, log)
	statusHandler := httpHandler.NewStatusHandler(cfg.Server.ServiceName, presenceRepo, cockroachDB, redisDB)
	pushHandler := httpHandler.NewPushHandler(pushTokenRepo, log)
	callHandler := httpHandler.NewCallHandler(callRepo, log)

	// Router
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.PrometheusMiddleware(appMetrics))

	router.GET("/healthz", statusHandler.Healthz)
	router.GET("/metrics", middleware.MetricsHandler())

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager))
	{
		v1.GET("/ws", socketHandler.ServeWS)
		v1.GET("/online", statusHandler.Online)
		v1.GET("/calls/:call_id", callHandler.GetCall)
		v1.POST("/push/tokens", pushHandler.RegisterToken)
		v1.DELETE("/push/tokens", pushHandler.UnregisterToken)
		v1.GET("/push/tokens", pushHandler.ListTokens)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Info("realtime service starting", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel() // stops workers and the dispatcher

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn("forced shutdown", zap.Error(err))
	}

	log.Info("server exited")
}

// newPushProvider selects the configured push backend, falling back to the
// noop provider when none is configured or construction fails.
func newPushProvider(cfg *config.Config, log *zap.Logger) push.Provider {
	switch cfg.Push.Provider {
	case "fcm":
		provider, err := push.NewFCMProvider(&push.FCMConfig{
			CredentialsPath: cfg.Push.FCMCredentialsPath,
			ProjectID:       cfg.Push.FCMProjectID,
		})
		if err != nil {
			log.Warn("fcm provider unavailable, pushes disabled", zap.Error(err))
			return push.NoopProvider{}
		}
		return provider
	case "apns":
		provider, err := push.NewAPNsProvider(&push.APNsConfig{
			KeyPath:    cfg.Push.APNsKeyPath,
			KeyID:      cfg.Push.APNsKeyID,
			TeamID:     cfg.Push.APNsTeamID,
			BundleID:   cfg.Push.APNsBundleID,
			Production: cfg.Push.APNsProduction,
		})
		if err != nil {
			log.Warn("apns provider unavailable, pushes disabled", zap.Error(err))
			return push.NoopProvider{}
		}
		return provider
	default:
		return push.NoopProvider{}
	}
}
