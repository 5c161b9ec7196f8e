package fiber

import (
	"time"

	"github.com/gofiber/fiber/v3"
)

const (
	SessionCookieName = "session"
	StateCookieName   = "oauth_state"
)

// setCookie writes an HttpOnly, Lax cookie scoped to the whole site.
// It is marked Secure whenever the request arrived over https.
func setCookie(c fiber.Ctx, name, value string, maxAge time.Duration) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge / time.Second),
		Secure:   c.Scheme() == "https",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func clearCookie(c fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		Secure:   c.Scheme() == "https",
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
