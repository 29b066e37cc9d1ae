package apiv1

import (
	"github.com/gofiber/fiber/v2"

	// Delegate to existing controllers to keep behavior consistent
	"github.com/subfoxapp/SubFox/app/controllers"
	"github.com/subfoxapp/SubFox/internal/pkg/middleware"
	"github.com/subfoxapp/SubFox/internal/pkg/usercontext"
)

// APIServer implements the ServerInterface
type APIServer struct{}

// NewAPIServer creates a new API server instance
func NewAPIServer() *APIServer {
	return &APIServer{}
}

// Pong is the ping response body
type Pong struct {
	Ping string `json:"ping"`
}

// RegisterHandlers attaches all v1 routes to the given router group.
// Subscription and user routes accept either a logged-in session or an API
// key; the key middleware only runs when no session produced a user context.
func RegisterHandlers(r fiber.Router, s *APIServer) {
	r.Get("/ping", s.GetPing)
	r.Get("/stats", controllers.HandleGetStats)

	authed := r.Group("", sessionOrAPIKey())

	authed.Get("/subscriptions", s.GetSubscriptions)
	authed.Post("/subscriptions", s.PostSubscription)
	authed.Get("/subscriptions/:uuid", s.GetSubscription)
	authed.Put("/subscriptions/:uuid", s.PutSubscription)
	authed.Delete("/subscriptions/:uuid", s.DeleteSubscription)
	authed.Post("/subscriptions/:uuid/transactions", s.PostSubscriptionTransaction)

	authed.Get("/user/profile", s.GetUserProfile)
	authed.Post("/user/apikey", s.PostUserAPIKey)
	authed.Delete("/user/apikey", s.DeleteUserAPIKey)
	authed.Post("/user/export", s.PostUserExport)

	// Admin routes need a session; API keys never grant admin access.
	admin := r.Group("/admin", middleware.RequireAuth, middleware.RequireAdmin)
	admin.Get("/jobs", s.GetAdminJobStats)
	admin.Post("/stats/refresh", s.PostAdminStatsRefresh)
}

// sessionOrAPIKey falls back to API key auth when the session middleware did
// not authenticate the request.
func sessionOrAPIKey() fiber.Handler {
	apiKey := middleware.APIKeyAuthMiddleware()
	return func(c *fiber.Ctx) error {
		if loggedIn, ok := c.Locals(usercontext.KeyFromProtected).(bool); ok && loggedIn {
			return c.Next()
		}
		return apiKey(c)
	}
}

// GetPing handles the ping endpoint
func (s *APIServer) GetPing(c *fiber.Ctx) error {
	response := Pong{
		Ping: "pong",
	}

	return c.Status(fiber.StatusOK).JSON(response)
}

// GetSubscriptions lists the caller's subscriptions
func (s *APIServer) GetSubscriptions(c *fiber.Ctx) error {
	return controllers.HandleListSubscriptions(c)
}

// PostSubscription creates a subscription for the caller
func (s *APIServer) PostSubscription(c *fiber.Ctx) error {
	return controllers.HandleCreateSubscription(c)
}

// GetSubscription returns one subscription by its public id
func (s *APIServer) GetSubscription(c *fiber.Ctx) error {
	return controllers.HandleGetSubscription(c)
}

// PutSubscription replaces every field of a subscription
func (s *APIServer) PutSubscription(c *fiber.Ctx) error {
	return controllers.HandleUpdateSubscription(c)
}

// DeleteSubscription removes a subscription
func (s *APIServer) DeleteSubscription(c *fiber.Ctx) error {
	return controllers.HandleDeleteSubscription(c)
}

// PostSubscriptionTransaction appends one charge to a subscription's history
func (s *APIServer) PostSubscriptionTransaction(c *fiber.Ctx) error {
	return controllers.HandleAppendTransaction(c)
}

// GetUserProfile returns account information for the authenticated user.
// Security is enforced via the auth middleware attached in RegisterHandlers.
func (s *APIServer) GetUserProfile(c *fiber.Ctx) error {
	return controllers.HandleGetUserAccount(c)
}

// PostUserAPIKey issues a fresh API key
func (s *APIServer) PostUserAPIKey(c *fiber.Ctx) error {
	return controllers.HandleIssueAPIKey(c)
}

// DeleteUserAPIKey revokes the current API key
func (s *APIServer) DeleteUserAPIKey(c *fiber.Ctx) error {
	return controllers.HandleRevokeAPIKey(c)
}

// PostUserExport enqueues an asynchronous subscription export
func (s *APIServer) PostUserExport(c *fiber.Ctx) error {
	return controllers.HandleExportSubscriptions(c)
}

// GetAdminJobStats returns job queue counters
func (s *APIServer) GetAdminJobStats(c *fiber.Ctx) error {
	return controllers.HandleAdminJobStats(c)
}

// PostAdminStatsRefresh forces a statistics cache refresh
func (s *APIServer) PostAdminStatsRefresh(c *fiber.Ctx) error {
	return controllers.HandleAdminStatsRefresh(c)
}
