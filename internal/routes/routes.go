package routes

import (
	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachLinkBack/internal/config"
	"github.com/saeid-a/CoachLinkBack/internal/handlers"
	"github.com/saeid-a/CoachLinkBack/internal/middleware"
	"github.com/saeid-a/CoachLinkBack/internal/repository"
	"github.com/saeid-a/CoachLinkBack/internal/services"
	chatws "github.com/saeid-a/CoachLinkBack/internal/websocket"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool, hub *chatws.Hub, logger *slog.Logger) error {
	userRepo := repository.NewUserRepository(db)
	sessionRepo := repository.NewAuthSessionRepository(db)
	relationshipRepo := repository.NewRelationshipRepository(db)
	chatRepo := repository.NewChatRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	var storageService services.StorageService
	if cfg.StorageConfigured() {
		storageService = services.NewSupabaseStorageService(cfg.SupabaseURL, cfg.SupabaseBucket, cfg.SupabaseServiceKey)
	} else {
		logger.Warn("object storage is not configured; chat image uploads are disabled")
	}

	authService := services.NewAuthService(db, userRepo, sessionRepo, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.SessionTTL, logger)
	notificationService := services.NewNotificationService(notificationRepo, hub, logger)
	relationshipService := services.NewRelationshipService(db, relationshipRepo, userRepo, notificationService, logger)
	chatService := services.NewChatService(
		db,
		chatRepo,
		messageRepo,
		relationshipRepo,
		userRepo,
		storageService,
		hub,
		notificationService,
		logger,
	)

	authHandler := handlers.NewAuthHandler(authService)
	relationshipHandler := handlers.NewRelationshipHandler(relationshipService)
	chatHandler := handlers.NewChatHandler(chatService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	gateway := chatws.NewGateway(hub, authService, chatService, logger)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})
	if err := registerDocsRoutes(app, cfg); err != nil {
		return err
	}

	api := app.Group("/api/v1")

	// The gateway authenticates during the handshake itself.
	api.Get("/ws", gateway.Upgrade, gateway.Handler())

	authRequired := middleware.AuthRequired(cfg.JWTSecret, authService)
	registerAPIRoutes(api, apiHandlers{
		auth:          authHandler,
		relationships: relationshipHandler,
		chats:         chatHandler,
		notifications: notificationHandler,
	}, authRequired)

	return nil
}

type apiHandlers struct {
	auth          *handlers.AuthHandler
	relationships *handlers.RelationshipHandler
	chats         *handlers.ChatHandler
	notifications *handlers.NotificationHandler
}

// registerAPIRoutes attaches authRequired per route so unmatched paths under
// the API prefix still fall through to 404.
func registerAPIRoutes(api fiber.Router, h apiHandlers, authRequired fiber.Handler) {
	auth := api.Group("/auth")
	auth.Post("/register", h.auth.Register)
	auth.Post("/login", h.auth.Login)
	auth.Post("/logout", authRequired, h.auth.Logout)
	auth.Get("/me", authRequired, h.auth.Me)

	api.Post("/invite-trainer", authRequired, h.relationships.InviteTrainer)
	api.Get("/invites", authRequired, h.relationships.ListInvites)
	api.Post("/invites/:id/accept", authRequired, h.relationships.AcceptInvite)
	api.Post("/invites/:id/reject", authRequired, h.relationships.RejectInvite)
	api.Delete("/invites/trainer/:trainerId", authRequired, h.relationships.CancelInviteByTrainer)
	api.Delete("/invites/:id", authRequired, h.relationships.CancelInvite)
	api.Get("/trainer", authRequired, h.relationships.GetTrainer)
	api.Delete("/trainer", authRequired, h.relationships.CancelCooperation)
	api.Get("/clients", authRequired, h.relationships.ListClients)
	api.Put("/clients/:id/favorite", authRequired, h.relationships.ToggleFavorite)

	api.Get("/chats", authRequired, h.chats.GetChats)
	api.Get("/chats/:chatId/messages", authRequired, h.chats.GetMessages)
	api.Get("/chats/:chatId/unread-count", authRequired, h.chats.UnreadCount)
	api.Post("/messages", authRequired, h.chats.SendMessage)

	api.Get("/notifications", authRequired, h.notifications.List)
	api.Get("/notifications/unread-count", authRequired, h.notifications.UnreadCount)
	api.Patch("/notifications/mark-all-read", authRequired, h.notifications.MarkAllAsRead)
	api.Patch("/notifications/:id/read", authRequired, h.notifications.MarkAsRead)

	// Older clients fetch history without the /chats prefix.
	api.Get("/:chatId/messages", authRequired, h.chats.GetMessages)
}
