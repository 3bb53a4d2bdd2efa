package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"syncroom-service/internal/assistant"
	"syncroom-service/internal/auth"
	"syncroom-service/internal/chat"
	"syncroom-service/internal/config"
	"syncroom-service/internal/db"
	"syncroom-service/internal/handlers"
	"syncroom-service/internal/middleware"
	"syncroom-service/internal/observability"
	"syncroom-service/internal/rabbitmq"
	"syncroom-service/internal/repositories"
	"syncroom-service/internal/telemetry"
	"syncroom-service/internal/ws"
)

const serviceName = "syncroom-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.Environment == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.SetupTracing(ctx, serviceName, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatal().Err(err).Msg("setup tracing")
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Error().Err(err).Msg("tracing shutdown")
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer database.Close()

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, "audit.syncroom", serviceName, cfg.Environment)

	membershipRepo := repositories.NewMembershipRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	reactionRepo := repositories.NewReactionRepo(database)
	historyRepo := repositories.NewAssistantHistoryRepo(database)
	fileRepo := repositories.NewFileRepo(database)

	identity := auth.NewJWTIdentityProvider(cfg.JWTSecret)
	gate := auth.NewGate(membershipRepo)

	hub := ws.NewHub()
	calls := ws.NewCallRelay()
	router := chat.NewRouter(messageRepo, reactionRepo, membershipRepo, gate, hub)

	completer := assistant.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.GeminiBaseURL)
	relay := assistant.NewRelay(completer, historyRepo, router, cfg.AssistantTimeout, cfg.AssistantHistory)

	wsHandler := ws.NewHandler(identity, gate, hub, router, calls, relay)
	roomHandler := handlers.NewRoomHandler(membershipRepo, messageRepo, reactionRepo, fileRepo, gate, router, hub, audit)
	assistantHandler := handlers.NewAssistantHandler(relay, audit)

	if cfg.Environment != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(otelgin.Middleware(serviceName))
	engine.Use(observability.HTTPMetricsMiddleware())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(identity)

	engine.GET("/rooms/:room_id/messages", authMiddleware, roomHandler.GetMessages)
	engine.DELETE("/rooms/:room_id/messages/:message_id", authMiddleware, roomHandler.DeleteMessage)
	engine.GET("/rooms/:room_id/members", authMiddleware, roomHandler.ListMembers)
	engine.DELETE("/rooms/:room_id/members/:user_id", authMiddleware, roomHandler.KickMember)
	engine.PATCH("/rooms/:room_id/members/:user_id/role", authMiddleware, roomHandler.UpdateMemberRole)
	engine.DELETE("/rooms/:room_id", authMiddleware, roomHandler.DeleteRoom)
	engine.GET("/rooms/:room_id/files", authMiddleware, roomHandler.ListFiles)
	engine.DELETE("/rooms/:room_id/files/:file_id", authMiddleware, roomHandler.DeleteFile)

	engine.POST("/assistant/chat", authMiddleware, assistantHandler.Chat)
	engine.GET("/assistant/history", authMiddleware, assistantHandler.History)

	engine.GET("/ws", wsHandler.Serve)

	handlers.RegisterDebugRoutes(engine, audit, identity, cfg.DebugRoutes)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}
}
