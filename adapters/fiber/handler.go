package fiber

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"

	"github.com/lborres/playlistify/core"
	"github.com/lborres/playlistify/services"
)

var errInvalidBody = errors.New("invalid request body")

func (a *Adapter) handlers() map[string]fiber.Handler {
	return map[string]fiber.Handler{
		services.OpLogin:            a.login,
		services.OpCallback:         a.callback,
		services.OpLogout:           a.logout,
		services.OpMe:               a.me,
		services.OpListBlocklist:    a.listBlocklist,
		services.OpAddBlocklist:     a.addBlockedArtist,
		services.OpRemoveBlocklist:  a.removeBlockedArtist,
		services.OpSearch:           a.search,
		services.OpListPlaylists:    a.listPlaylists,
		services.OpPlaylistTracks:   a.playlistTracks,
		services.OpEditPlaylist:     a.editPlaylist,
		services.OpUnfollowPlaylist: a.unfollowPlaylist,
		services.OpCreatePlaylist:   a.createPlaylist,
		services.OpRecent:           a.recentlyPlayed,
		services.OpGenreSeeds:       a.genreSeeds,
		services.OpGeneratePlaylist: a.generatePlaylist,
	}
}

// ============================================
// AUTH
// ============================================

// authUnavailable answers every /auth route while login is not configured.
func (a *Adapter) authUnavailable(c fiber.Ctx) error {
	a.logger.Warn().Err(a.p.AuthConfigErr).Msg("auth route hit while login is not configured")
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Status(fiber.StatusServiceUnavailable).SendString("Authentication is not configured")
}

func (a *Adapter) login(c fiber.Ctx) error {
	if a.p.OAuth == nil {
		return a.authUnavailable(c)
	}

	redirect, err := a.p.OAuth.Begin()
	if err != nil {
		return a.fail(c, err)
	}

	setCookie(c, StateCookieName, redirect.StateCookie, redirect.MaxAge)
	return c.Redirect().Status(fiber.StatusFound).To(redirect.URL)
}

func (a *Adapter) callback(c fiber.Ctx) error {
	if a.p.OAuth == nil {
		return a.authUnavailable(c)
	}

	result, err := a.p.OAuth.Complete(c.Context(), services.CallbackParams{
		Error:       c.Query("error"),
		State:       c.Query("state"),
		Code:        c.Query("code"),
		StateCookie: c.Cookies(StateCookieName),
	})
	// The state is single use whatever the outcome
	clearCookie(c, StateCookieName)

	if err != nil {
		code := services.CodeStorage
		var cbErr *services.CallbackError
		if errors.As(err, &cbErr) {
			code = cbErr.Code
		}
		a.logger.Warn().Err(err).Str("code", code).Str("request_id", requestid.FromContext(c)).Msg("login failed")
		return c.Redirect().Status(fiber.StatusFound).To("/?error=" + url.QueryEscape(code))
	}

	setCookie(c, SessionCookieName, result.SessionCookie, a.p.Sessions.MaxAge())
	return c.Redirect().Status(fiber.StatusFound).To("/")
}

func (a *Adapter) logout(c fiber.Ctx) error {
	if a.p.OAuth == nil {
		clearCookie(c, SessionCookieName)
		return a.authUnavailable(c)
	}

	if err := a.p.OAuth.Logout(c.Context(), c.Cookies(SessionCookieName)); err != nil {
		// The cookie is cleared anyway; the row ages out with prune
		a.logger.Error().Err(err).Msg("failed to delete session")
	}

	clearCookie(c, SessionCookieName)
	return c.Redirect().Status(fiber.StatusFound).To("/")
}

// ============================================
// USER & BLOCKLIST
// ============================================

func (a *Adapter) me(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	user, err := a.p.Library.Me(c.Context(), principal)
	if err != nil {
		return a.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"id":          user.ID,
		"externalId":  user.ExternalID,
		"displayName": user.DisplayName,
		"imageUrl":    user.ImageURL,
	})
}

func (a *Adapter) listBlocklist(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	artists, err := a.p.Blocklist.List(c.Context(), principal.UserID)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"blocklist": artists})
}

type blockArtistInput struct {
	ArtistID string `json:"artistId"`
	Name     string `json:"name"`
}

func (a *Adapter) addBlockedArtist(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	var input blockArtistInput
	if err := bindJSON(c, &input); err != nil {
		return a.fail(c, err)
	}

	artist, err := a.p.Blocklist.Add(c.Context(), principal.UserID, input.ArtistID, input.Name)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(artist)
}

func (a *Adapter) removeBlockedArtist(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	if err := a.p.Blocklist.Remove(c.Context(), principal.UserID, c.Params("id")); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

// ============================================
// CATALOG
// ============================================

func (a *Adapter) search(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	raw, err := a.p.Library.Search(c.Context(), principal, c.Query("q"), c.Query("type"))
	if err != nil {
		return a.fail(c, err)
	}
	return sendRaw(c, raw)
}

func (a *Adapter) listPlaylists(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	items, err := a.p.Library.Playlists(c.Context(), principal)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"items": items, "total": len(items)})
}

func (a *Adapter) playlistTracks(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	tracks, err := a.p.Library.PlaylistTracks(c.Context(), principal, c.Params("id"))
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"tracks": tracks})
}

func (a *Adapter) editPlaylist(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	var update core.PlaylistUpdate
	if err := bindJSON(c, &update); err != nil {
		return a.fail(c, err)
	}

	if err := a.p.Library.EditPlaylist(c.Context(), principal, c.Params("id"), update); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

func (a *Adapter) unfollowPlaylist(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	if err := a.p.Library.UnfollowPlaylist(c.Context(), principal, c.Params("id")); err != nil {
		return a.fail(c, err)
	}
	return c.JSON(fiber.Map{"ok": true})
}

type createPlaylistInput struct {
	Name      string   `json:"name"`
	TrackURIs []string `json:"trackUris"`
}

func (a *Adapter) createPlaylist(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	var input createPlaylistInput
	if err := bindJSON(c, &input); err != nil {
		return a.fail(c, err)
	}

	playlist, err := a.p.Library.CreatePlaylist(c.Context(), principal, input.Name, input.TrackURIs)
	if err != nil {
		return a.fail(c, err)
	}
	return c.JSON(playlist)
}

func (a *Adapter) recentlyPlayed(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	raw, err := a.p.Library.RecentlyPlayed(c.Context(), principal)
	if err != nil {
		return a.fail(c, err)
	}
	return sendRaw(c, raw)
}

func (a *Adapter) genreSeeds(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	raw, err := a.p.Library.GenreSeeds(c.Context(), principal)
	if err != nil {
		return a.fail(c, err)
	}
	return sendRaw(c, raw)
}

func (a *Adapter) generatePlaylist(c fiber.Ctx) error {
	principal, err := PrincipalFrom(c)
	if err != nil {
		return a.fail(c, err)
	}

	var input core.GenerateInput
	if err := bindJSON(c, &input); err != nil {
		return a.fail(c, err)
	}

	tracks, err := a.p.Generator.Generate(c.Context(), principal, input)
	if err != nil {
		return a.fail(c, err)
	}
	if tracks == nil {
		tracks = []*core.Track{}
	}
	return c.JSON(fiber.Map{"tracks": tracks})
}

// ============================================
// HELPERS
// ============================================

// bindJSON decodes the request body into dest. An empty body leaves dest untouched.
func bindJSON(c fiber.Ctx, dest any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	if err := json.Unmarshal(c.Body(), dest); err != nil {
		return errInvalidBody
	}
	return nil
}

func sendRaw(c fiber.Ctx, raw json.RawMessage) error {
	if raw == nil {
		raw = json.RawMessage("null")
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

// fail writes err as a JSON error. Upstream errors keep their status and
// body; unexpected errors are logged and reported without detail.
func (a *Adapter) fail(c fiber.Ctx, err error) error {
	var upstream *core.UpstreamError
	if errors.As(err, &upstream) {
		return c.Status(upstream.Status).JSON(core.ErrorResponse{Error: upstream.Body})
	}

	status := mapErrorToStatus(err)
	message := err.Error()
	switch status {
	case http.StatusUnauthorized:
		message = "Unauthorized"
	case http.StatusInternalServerError:
		a.logger.Error().Err(err).Str("request_id", requestid.FromContext(c)).Str("path", c.Path()).Msg("request failed")
		message = "Internal Server Error"
	}

	return c.Status(status).JSON(core.ErrorResponse{Error: message})
}

// mapErrorToStatus maps core error types to HTTP status codes
func mapErrorToStatus(err error) int {
	if err == nil {
		return http.StatusOK
	}

	switch {
	case errors.Is(err, core.ErrNoSession),
		errors.Is(err, core.ErrSessionNotFound):
		return http.StatusUnauthorized

	case errors.Is(err, core.ErrAccessDenied):
		return http.StatusForbidden

	case errors.Is(err, errInvalidBody),
		errors.Is(err, core.ErrArtistIDRequired),
		errors.Is(err, core.ErrInvalidBlockedArtistID),
		errors.Is(err, core.ErrQueryTooShort),
		errors.Is(err, core.ErrPlaylistIDRequired),
		errors.Is(err, core.ErrEmptyPlaylistName),
		errors.Is(err, core.ErrEmptyPlaylistEdit),
		errors.Is(err, core.ErrNoSeeds):
		return http.StatusBadRequest

	case errors.Is(err, core.ErrBlockedArtistNotFound),
		errors.Is(err, core.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, core.ErrArtistAlreadyBlocked),
		errors.Is(err, core.ErrUserExists):
		return http.StatusConflict

	case errors.Is(err, core.ErrSuggesterDisabled):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}
