package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"party-service/internal/config"
	"party-service/internal/dispatch"
	"party-service/internal/events"
	hrest "party-service/internal/handler/http"
	wshandler "party-service/internal/handler/ws"
	"party-service/internal/housekeeping"
	"party-service/internal/middleware"
	"party-service/internal/repository"
	"party-service/internal/router"
	"party-service/internal/usecase"
	"party-service/pkg/notifier/ws"
	"party-service/pkg/push"
)

// NewServer wires the whole service: Postgres, Redis, Kafka producer and
// consumer, FCM, the dispatch pipeline, and the HTTP surface. The returned
// server is ready for ListenAndServe; background loops stop when ctx is
// cancelled.
func NewServer(ctx context.Context, cfg config.AppConfig) *http.Server {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}

	// --- DB connection ---
	dbpool, err := config.ConnectDB()
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Init repos ---
	partyRepo := repository.NewPartyRepository(dbpool)
	requestRepo := repository.NewJoinRequestRepository(dbpool)
	notifRepo := repository.NewNotificationRepository(dbpool)
	userRepo := repository.NewUserRepository(dbpool)
	chatRepo := repository.NewChatRepository(dbpool)
	markerRepo := repository.NewLeaveMarkerRepository(rdb)

	// --- Event feed ---
	pub := events.NewKafkaPublisher(cfg.KafkaBrokers)

	// --- WS manager and handler ---
	wsManager := ws.NewManager()
	go wsManager.Heartbeat(30 * time.Second)
	wsHandler := wshandler.NewWSHandler(wsManager)

	// --- Push sender ---
	sender, err := push.NewFCMSender(ctx, cfg.FCMCredentialsFile, logger)
	if err != nil {
		log.Fatalf("failed to init FCM sender: %v", err)
	}

	// --- Dispatch pipeline ---
	hygiene := dispatch.NewTokenHygiene(userRepo)
	dispatcher := dispatch.NewDispatcher(partyRepo, notifRepo, userRepo, sender, hygiene, wsManager)
	watcher := dispatch.NewWatcher(markerRepo, notifRepo, dispatcher)
	go events.StartConsumer(ctx, cfg.KafkaBrokers, cfg.ConsumerGroup, logger, watcher, dispatcher)

	// --- Housekeeping ---
	purger := housekeeping.NewPurger(partyRepo, notifRepo, chatRepo, cfg.PartyMaxAge, logger)
	go purger.Run(ctx, cfg.PurgeInterval)

	// --- Usecases ---
	partyUC := usecase.NewPartyUsecase(partyRepo, markerRepo, pub)
	requestUC := usecase.NewJoinRequestUsecase(requestRepo, partyRepo, chatRepo, userRepo, pub)
	chatUC := usecase.NewChatUsecase(chatRepo, partyRepo, userRepo, pub)
	notifUC := usecase.NewNotificationUsecase(notifRepo)
	userUC := usecase.NewUserUsecase(userRepo)

	// --- Handlers ---
	partyHandler := hrest.NewPartyHandler(partyUC, chatUC)
	requestHandler := hrest.NewJoinRequestHandler(requestUC)
	notifHandler := hrest.NewNotificationHandler(notifUC, userUC)

	// --- Auth middleware ---
	auth := middleware.NewAuth(cfg.JWTSecret)

	// --- HTTP routes ---
	r := chi.NewRouter()
	r = router.SetupRoutes(r, partyHandler, requestHandler, notifHandler, wsHandler, auth, rdb).(*chi.Mux)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}
}
