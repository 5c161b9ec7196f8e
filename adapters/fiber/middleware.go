package fiber

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/lborres/playlistify/core"
)

type principalKey struct{}

// requireSession is the only way into /api. It resolves the session cookie,
// refreshing the access token if needed, and stores the principal for handlers.
func (a *Adapter) requireSession(c fiber.Ctx) error {
	if a.p.Sessions == nil {
		return unauthorized(c)
	}

	envelope := c.Cookies(SessionCookieName)
	principal, err := a.p.Sessions.Resolve(c.Context(), envelope)
	if errors.Is(err, core.ErrNoSession) {
		if envelope != "" {
			clearCookie(c, SessionCookieName)
		}
		return unauthorized(c)
	}
	if err != nil {
		a.logger.Error().Err(err).Str("request_id", requestid.FromContext(c)).Msg("session lookup failed")
		return c.Status(fiber.StatusServiceUnavailable).JSON(core.ErrorResponse{Error: "Service Unavailable"})
	}

	c.Locals(principalKey{}, principal)
	return c.Next()
}

// PrincipalFrom returns the principal stored by the request guard, or
// core.ErrNoSession when the guard did not run.
func PrincipalFrom(c fiber.Ctx) (*core.Principal, error) {
	principal, ok := c.Locals(principalKey{}).(*core.Principal)
	if !ok || principal == nil {
		return nil, core.ErrNoSession
	}
	return principal, nil
}

func unauthorized(c fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(core.ErrorResponse{Error: "Unauthorized"})
}

// AccessLog logs one line per request. Cookies and query strings are left
// out since they carry credentials.
func AccessLog(logger zerolog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		event := logger.Info()
		if status >= fiber.StatusInternalServerError {
			event = logger.Error()
		}
		event.
			Str("request_id", requestid.FromContext(c)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("request")

		return err
	}
}
