package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"workshop-chat-service/internal/auth"
	"workshop-chat-service/internal/broadcast"
	"workshop-chat-service/internal/chat"
	"workshop-chat-service/internal/config"
	"workshop-chat-service/internal/db"
	"workshop-chat-service/internal/handlers"
	"workshop-chat-service/internal/middleware"
	"workshop-chat-service/internal/observability"
	"workshop-chat-service/internal/registry"
	"workshop-chat-service/internal/repositories"
	"workshop-chat-service/internal/ws"
)

func main() {
	cfg := config.Load()

	shutdownTracing, err := observability.SetupTracing(context.Background(), cfg.OTLPEndpoint, cfg.Environment)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	database, err := db.Connect(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}

	if cfg.AMQPURL != "" {
		publisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.EventExchange)
		if err != nil {
			log.Printf("lifecycle events disabled: %v", err)
		} else {
			observability.SetPublisher(publisher)
			defer publisher.Close()
		}
	}

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	directoryRepo := repositories.NewDirectoryRepo(database)

	reg := registry.NewRegistry()
	local := broadcast.NewLocalBroadcaster(reg)
	distributed := broadcast.NewAMQPBroadcaster(cfg.AMQPURL, cfg.BroadcastExchange, local)
	defer distributed.Close()
	broadcaster := broadcast.NewResilientBroadcaster(distributed, local)

	roomService := chat.NewRoomService(roomRepo, directoryRepo)
	messageService := chat.NewMessageService(messageRepo)
	membership := chat.NewMembershipManager(roomService, reg, broadcaster)

	verifier := auth.NewVerifier(cfg.JWTSecret)
	sessionHandler := ws.NewSessionHandler(verifier, reg, membership, roomService, messageService, broadcaster, local)
	roomsHandler := handlers.NewRoomsHandler(roomService, messageService, cfg.AdminKey)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("workshop-chat-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.Auth(verifier)

	router.GET("/rooms", authMiddleware, roomsHandler.ListRooms)
	router.GET("/rooms/:room_id/messages", authMiddleware, roomsHandler.GetMessages)
	router.POST("/rooms/:room_id/read", authMiddleware, roomsHandler.MarkRead)
	router.DELETE("/rooms/:room_id", authMiddleware, roomsHandler.DeleteRoom)

	router.GET("/ws", sessionHandler.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterDebugRoutes(router, broadcaster, cfg.DebugRoutes)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
