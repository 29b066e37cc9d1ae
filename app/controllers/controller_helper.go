package controllers

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/subfoxapp/SubFox/internal/pkg/authstate"
	"github.com/subfoxapp/SubFox/internal/pkg/querycache"
)

// Session keys shared with the user context middleware.
const (
	AUTH_KEY      string = "authenticated"
	USER_ID       string = "user_id"
	USER_NAME     string = "username"
	USER_IS_ADMIN string = "isAdmin"
)

const dateLayout = "2006-01-02"

var (
	queryCache *querycache.Client
	authEvents *authstate.Broadcaster
	validate   = validator.New()
)

// InitializeSubscriptionController wires the query cache constructed at
// application start into the subscription handlers.
func InitializeSubscriptionController(qc *querycache.Client) {
	queryCache = qc
}

// InitializeAuthController wires the auth-state broadcaster into the auth
// handlers so login/logout publish explicit events.
func InitializeAuthController(b *authstate.Broadcaster) {
	authEvents = b
}

// AuthEvents returns the wired broadcaster (nil before initialization).
func AuthEvents() *authstate.Broadcaster {
	return authEvents
}

func jsonError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

func formatDatePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(dateLayout)
}

func parseDate(value string) (time.Time, error) {
	return time.Parse(dateLayout, value)
}

func parseDatePtr(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
