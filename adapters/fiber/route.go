package fiber

import (
	"fmt"

	"github.com/gofiber/fiber/v3"
	"github.com/rs/zerolog"

	"github.com/lborres/playlistify"
)

type Adapter struct {
	app    *fiber.App
	p      *playlistify.Playlistify
	logger zerolog.Logger
}

var _ playlistify.HTTPAdapter = (*Adapter)(nil)

func New(app *fiber.App) *Adapter {
	return &Adapter{app: app}
}

// RegisterRoutes mounts every endpoint of p's registry, putting the request
// guard in front of the protected ones.
func (a *Adapter) RegisterRoutes(p *playlistify.Playlistify) error {
	a.p = p
	a.logger = p.Logger.With().Str("component", "http").Logger()

	handlers := a.handlers()
	for _, ep := range p.Endpoints.Endpoints() {
		handler, ok := handlers[ep.Metadata.OperationID]
		if !ok {
			return fmt.Errorf("no handler for operation %q (%s %s)", ep.Metadata.OperationID, ep.Method, ep.Path)
		}

		if ep.Metadata.Protected {
			a.app.Add([]string{ep.Method}, ep.Path, a.requireSession, handler)
			continue
		}
		a.app.Add([]string{ep.Method}, ep.Path, handler)
	}

	return nil
}
