package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"iptv-live/internal/auth"
	"iptv-live/internal/chat"
	"iptv-live/internal/config"
	"iptv-live/internal/db"
	"iptv-live/internal/email"
	"iptv-live/internal/identity"
	myMiddleware "iptv-live/internal/middleware"
	"iptv-live/internal/notification"
	"iptv-live/internal/pubsub"
	"iptv-live/internal/ws"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mama165/sdk-go/logs"
	"github.com/redis/go-redis/v9"
)

const (
	tokenIssuer     = "iptv-live"
	tokenValidity   = 24 * time.Hour
	shutdownTimeout = 10 * time.Second
)

func main() {
	// 1. Config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ %v", err)
	}
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Storage: PostgreSQL when configured, in-memory otherwise
	var chatStore chat.Store = chat.NewMemoryStore()
	var notificationStore notification.Store = notification.NewMemoryStore()
	if cfg.UsesDatabase() {
		database, err := db.NewDatabase(cfg.DBDSN)
		if err != nil {
			log.Fatalf("❌ Failed to connect to DB: %v", err)
		}
		defer database.Close()
		log.Println("✅ Connected to PostgreSQL")

		if err := database.AutoMigrate(); err != nil {
			log.Fatalf("❌ Migration failed: %v", err)
		}
		log.Println("✅ Database Schema Initialized")

		chatStore = chat.NewRepository(database.Conn)
		notificationStore = notification.NewRepository(database.Conn)
	} else {
		log.Println("⚠️ DB_DSN not set, using in-memory stores")
	}

	// 3. Hub and connection manager
	hub := ws.NewHub(logger)
	manager := ws.NewConnectionManager(hub, logger)
	manager.Start(ctx)

	// 4. Bus: Redis fan-out across instances, local delivery otherwise
	var bus pubsub.Bus = pubsub.NewLocalBus(hub.Deliver)
	if cfg.UsesRedis() {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if _, err := redisClient.Ping(ctx).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Println("✅ Connected to Redis")

		redisBus := pubsub.NewRedisBus(redisClient, pubsub.DefaultChannel, hub.Deliver, logger)
		if err := redisBus.Start(ctx); err != nil {
			log.Fatalf("❌ Failed to subscribe to Redis: %v", err)
		}
		bus = redisBus
	}

	// 5. Email
	var mailer email.Sender = email.NewLogSender(cfg.AdminEmail, logger)
	if cfg.UsesSMTP() {
		smtpSender, err := email.NewSMTPSender(email.SMTPConfig{
			Host:       cfg.SMTPHost,
			Port:       cfg.SMTPPort,
			Username:   cfg.SMTPUsername,
			Password:   cfg.SMTPPassword,
			From:       cfg.SMTPFrom,
			AdminEmail: cfg.AdminEmail,
		})
		if err != nil {
			log.Fatalf("❌ Failed to configure SMTP: %v", err)
		}
		mailer = smtpSender
		log.Println("✅ SMTP configured")
	}

	// 6. Notifications and chat
	dispatcher, err := notification.NewDispatcher(
		notificationStore,
		bus,
		mailer,
		notification.Recipient{UserID: cfg.AdminUserID, Email: cfg.AdminEmail},
		logger,
		notification.WithEmailTimeout(cfg.EmailTimeout),
		notification.WithAppURL(cfg.AppURL),
	)
	if err != nil {
		log.Fatalf("❌ Notifications unavailable: %v", err)
	}
	router := chat.NewRouter(chatStore, bus, dispatcher, manager, logger)

	// 7. Identity: signed tokens when a secret is set, query parameters otherwise
	resolver := identity.NewResolver(nil)
	if cfg.JWTSecret != "" {
		resolver = identity.NewResolver(auth.NewAuthenticator(cfg.JWTSecret, tokenIssuer, tokenValidity))
	}

	wsHandler := ws.NewHandler(manager, ws.NewEventHandler(manager, router, dispatcher, logger), resolver)
	chatHandler := chat.NewHandler(router)
	notificationHandler := notification.NewHandler(dispatcher)

	// 8. Routes
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"online": len(manager.OnlineUsers()),
		})
	})
	r.Get("/ws", wsHandler.ServeWs)

	if cfg.JWTSecret != "" {
		authMiddleware := myMiddleware.NewAuthMiddleware(resolver)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handle)

			r.Post("/api/conversations", chatHandler.CreateConversation)
			r.Get("/api/conversations", chatHandler.ListConversations)
			r.Get("/api/conversations/{id}/messages", chatHandler.ListMessages)

			r.Get("/api/notifications", notificationHandler.List)
			r.Post("/api/notifications/read-all", notificationHandler.MarkAllRead)
			r.Post("/api/notifications/{id}/read", notificationHandler.MarkRead)
			r.Delete("/api/notifications/{id}", notificationHandler.Delete)
			r.Delete("/api/notifications", notificationHandler.Clear)

			r.With(myMiddleware.RequireAdmin).Post("/api/events", notificationHandler.PublishEvent)
		})
	} else {
		log.Println("⚠️ JWT_SECRET not set, REST API disabled")
	}

	srv := &http.Server{Addr: cfg.Addr, Handler: r}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Shutdown failed", "error", err)
		}
	}()

	log.Printf("🚀 Server starting on %s", cfg.Addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}
	manager.Close()
	log.Println("👋 Server stopped")
}
