package oauth

import (
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/middleware/session"
	redisstorage "github.com/gofiber/storage/redis"
	"github.com/markbates/goth"
	"github.com/markbates/goth/providers/google"
	gothfiber "github.com/shareed2k/goth_fiber"

	"github.com/subfoxapp/SubFox/internal/pkg/cache"
	"github.com/subfoxapp/SubFox/internal/pkg/env"
)

// Setup initializes the Google provider and a dedicated session store for the
// OAuth handshake. Safe to call multiple times; providers are re-registered.
func Setup() {
	base := strings.TrimRight(env.GetEnv("PUBLIC_DOMAIN", ""), "/")
	if base == "" {
		base = "http://localhost:" + env.GetEnv("APP_PORT", "4000")
	}

	goth.UseProviders(
		google.New(
			env.GetEnv("GOOGLE_KEY", ""),
			env.GetEnv("GOOGLE_SECRET", ""),
			base+"/auth/google/callback",
			"email", "profile",
		),
	)

	// Goth keeps its handshake state in its own fiber session store, backed
	// by the same Redis as the app sessions but in a separate database.
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if client := cache.GetClient(); client != nil {
		addr := client.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := client.Options().Password; p != "" {
			password = p
		}
	}

	storage := redisstorage.New(redisstorage.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 2,
	})

	gothfiber.SessionStore = session.New(session.Config{
		Storage:        storage,
		KeyLookup:      "cookie:oauth_session",
		CookieHTTPOnly: true,
		Expiration:     10 * time.Minute,
	})
}
