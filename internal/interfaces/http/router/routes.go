package router

import (
	"github.com/gin-gonic/gin"
	"github.com/thirdhand/marketplace/internal/domain/identity"
	"github.com/thirdhand/marketplace/internal/interfaces/http/handler"
	"github.com/thirdhand/marketplace/internal/interfaces/http/middleware"
)

// Handlers are the HTTP handlers of the marketplace API
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Artwork      *handler.ArtworkHandler
	Upload       *handler.UploadHandler
	Traceability *handler.TraceabilityHandler
	Payment      *handler.PaymentHandler
	Message      *handler.MessageHandler
	Admin        *handler.AdminHandler
	Analytics    *handler.AnalyticsHandler
	Outbox       *handler.OutboxHandler
	System       *handler.SystemHandler
}

// Guards are the per-route middleware
type Guards struct {
	// Auth rejects requests without a valid access token
	Auth gin.HandlerFunc
	// OptionalAuth identifies the caller when a token is present
	OptionalAuth gin.HandlerFunc
	// AuthRateLimit is the stricter limit of the credential endpoints. May be nil.
	AuthRateLimit gin.HandlerFunc
}

// MarketplaceRoutes builds the route groups of the /api/{version} tree
func MarketplaceRoutes(h Handlers, g Guards) []*DomainGroup {
	artistOnly := middleware.RequireRoles(identity.RoleArtist)
	adminOnly := middleware.RequireRoles(identity.RoleAdmin)

	authRoutes := NewDomainGroup("auth", "/auth")
	if g.AuthRateLimit != nil {
		authRoutes.Use(g.AuthRateLimit)
	}
	authRoutes.POST("/register", h.Auth.Register).
		POST("/verify-email", h.Auth.VerifyEmail).
		POST("/resend-verification", h.Auth.ResendVerification).
		POST("/login", h.Auth.Login).
		POST("/refresh", h.Auth.RefreshToken).
		POST("/forgot-password", h.Auth.ForgotPassword).
		POST("/reset-password", h.Auth.ResetPassword).
		POST("/logout", g.Auth, h.Auth.Logout).
		PUT("/change-password", g.Auth, h.Auth.ChangePassword).
		GET("/me", g.Auth, h.Auth.Me)

	userRoutes := NewDomainGroup("users", "/users")
	userRoutes.GET("/:id", h.User.GetProfile).
		PUT("/profile", g.Auth, h.User.UpdateProfile).
		POST("/:id/block", g.Auth, h.User.Block).
		DELETE("/:id/block", g.Auth, h.User.Unblock).
		GET("/blocked", g.Auth, h.User.ListBlocked).
		GET("/online", g.Auth, h.User.OnlineUsers)

	artworkRoutes := NewDomainGroup("artworks", "/artworks")
	artworkRoutes.GET("", g.OptionalAuth, h.Artwork.List).
		GET("/search", h.Artwork.Search).
		GET("/artist/:artistId", g.OptionalAuth, h.Artwork.ListByArtist).
		GET("/mine", g.Auth, artistOnly, h.Artwork.ListMine).
		GET("/stats", g.Auth, h.Artwork.Stats).
		GET("/:id", g.OptionalAuth, h.Artwork.Get).
		POST("", g.Auth, artistOnly, h.Artwork.Create).
		PUT("/:id", g.Auth, h.Artwork.Update).
		DELETE("/:id", g.Auth, h.Artwork.Delete)

	uploadRoutes := NewDomainGroup("upload", "/upload")
	uploadRoutes.Use(g.Auth, artistOnly)
	uploadRoutes.POST("/image", h.Upload.UploadImage)

	traceRoutes := NewDomainGroup("traceability", "/traceability")
	traceRoutes.Use(g.OptionalAuth)
	traceRoutes.GET("/hash/:hash", h.Traceability.Lookup).
		GET("/:artworkId", h.Traceability.History).
		GET("/:artworkId/verify", h.Traceability.Verify).
		GET("/:artworkId/certificate", h.Traceability.Certificate)

	paymentRoutes := NewDomainGroup("payments", "/payments")
	paymentRoutes.POST("/webhook", h.Payment.Webhook).
		POST("/create-listing-session", g.Auth, artistOnly, h.Payment.CreateListingSession).
		POST("/create-purchase-session/:artworkId", g.Auth, h.Payment.CreatePurchaseSession).
		GET("/history", g.Auth, h.Payment.History).
		GET("/transaction/:id", g.Auth, h.Payment.GetTransaction).
		GET("/stats", g.Auth, h.Payment.Stats)

	messageRoutes := NewDomainGroup("messages", "/messages")
	messageRoutes.Use(g.Auth)
	messageRoutes.POST("/send", h.Message.Send).
		GET("/conversations", h.Message.Conversations).
		GET("/unread-count", h.Message.UnreadCount).
		GET("/:userId", h.Message.Messages).
		PUT("/:userId/read", h.Message.MarkRead)

	adminRoutes := NewDomainGroup("admin", "/admin")
	adminRoutes.Use(g.Auth, adminOnly)
	adminRoutes.GET("/overview", h.Admin.Overview).
		GET("/stats/artworks", h.Admin.ArtworkStats).
		GET("/stats/users", h.Admin.UserStats).
		GET("/artworks", h.Admin.Artworks).
		GET("/artworks/pending", h.Admin.PendingArtworks).
		PUT("/artworks/:id/approve", h.Admin.ApproveArtwork).
		PUT("/artworks/:id/reject", h.Admin.RejectArtwork).
		GET("/users", h.Admin.Users).
		GET("/transactions", h.Admin.Transactions)

	outbox := adminRoutes.Group("outbox", "/outbox")
	outbox.GET("/dead", h.Outbox.DeadLetters).
		GET("/stats", h.Outbox.Stats).
		POST("/retry-all", h.Outbox.RetryAll).
		GET("/:id", h.Outbox.Get).
		POST("/:id/retry", h.Outbox.Retry)

	analyticsRoutes := NewDomainGroup("analytics", "/analytics")
	analyticsRoutes.GET("/featured/artists", h.Analytics.FeaturedArtists).
		GET("/featured/artworks", h.Analytics.FeaturedArtworks)
	ranking := analyticsRoutes.Group("rankings", "")
	ranking.Use(g.Auth, adminOnly)
	ranking.GET("/top-artists", h.Analytics.TopArtists).
		GET("/top-artworks", h.Analytics.TopArtworks).
		GET("/top-categories", h.Analytics.TopCategories).
		GET("/report", h.Analytics.Report)

	systemRoutes := NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", h.System.Info)

	return []*DomainGroup{
		authRoutes,
		userRoutes,
		artworkRoutes,
		uploadRoutes,
		traceRoutes,
		paymentRoutes,
		messageRoutes,
		adminRoutes,
		analyticsRoutes,
		systemRoutes,
	}
}
