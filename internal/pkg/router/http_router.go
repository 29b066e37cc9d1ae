package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/subfoxapp/SubFox/app/controllers"
	"github.com/subfoxapp/SubFox/app/repository"
	"github.com/subfoxapp/SubFox/internal/pkg/authstate"
	"github.com/subfoxapp/SubFox/internal/pkg/jobqueue"
	"github.com/subfoxapp/SubFox/internal/pkg/middleware"
	"github.com/subfoxapp/SubFox/internal/pkg/oauth"
	"github.com/subfoxapp/SubFox/internal/pkg/querycache"
	"github.com/subfoxapp/SubFox/internal/pkg/session"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init session
	session.NewSessionStore()

	// init oauth providers
	oauth.Setup()

	// Apply UserContext middleware globally as first middleware
	app.Use(middleware.UserContextMiddleware)

	// One query cache instance for the whole process, purged on sign-out.
	qc := querycache.New(repository.GetGlobalFactory().GetSubscriptionRepository())
	broadcaster := authstate.NewBroadcaster()
	watchAuthState(qc, broadcaster)

	controllers.InitializeSubscriptionController(qc)
	controllers.InitializeAuthController(broadcaster)

	// Background jobs invalidate through the same cache instance.
	jobqueue.SetCacheInvalidator(func(ownerID uint, subscriptionUUID string) {
		qc.InvalidateDetail(subscriptionUUID)
		if ownerID != 0 {
			qc.InvalidateList(ownerID)
		}
	})

	h.registerAuthRoutes(app)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) registerAuthRoutes(app *fiber.App) {
	app.Post("/register", controllers.HandleAuthRegister)
	app.Get("/activate", controllers.HandleAuthActivate)
	app.Post("/login", controllers.HandleAuthLogin)
	app.Post("/logout", controllers.HandleAuthLogout)

	// OAuth flow (Google). The logout route must precede the provider
	// wildcard or fiber matches "logout" as a provider name.
	app.Get("/auth/logout", controllers.HandleOAuthLogout)
	app.Get("/auth/:provider", controllers.HandleOAuthBegin)
	app.Get("/auth/:provider/callback", controllers.HandleOAuthCallback)
}

// watchAuthState drops every cached entry when the session the cache served
// ends, so the next user never sees the previous user's data.
func watchAuthState(qc *querycache.Client, b *authstate.Broadcaster) {
	events, _ := b.Subscribe()
	go func() {
		for ev := range events {
			if ev.Status == authstate.StatusSignedOut {
				qc.Purge()
			}
		}
	}()
}
