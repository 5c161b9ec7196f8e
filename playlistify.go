package playlistify

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/lborres/playlistify/core"
	"github.com/lborres/playlistify/pkg/crypto"
	"github.com/lborres/playlistify/services"
)

// HTTPAdapter mounts the routes of a Playlistify instance on a web framework.
type HTTPAdapter interface {
	RegisterRoutes(p *Playlistify) error
}

// interfaces
type (
	StorageProvider  = core.StorageProvider
	IdentityProvider = core.IdentityProvider
	Catalog          = core.Catalog
	Suggester        = core.Suggester
)

// structs
type (
	SessionConfig = core.SessionConfig
	Principal     = core.Principal
	User          = core.User
	Session       = core.Session
	BlockedArtist = core.BlockedArtist
	Track         = core.Track
)

const minSecretLen = 32

var DefaultSessionConfig = core.DefaultSessionConfig

var (
	ErrNoSession            = core.ErrNoSession
	ErrUserExists           = core.ErrUserExists
	ErrUserNotFound         = core.ErrUserNotFound
	ErrSessionNotFound      = core.ErrSessionNotFound
	ErrArtistAlreadyBlocked = core.ErrArtistAlreadyBlocked
)

var (
	ErrStorageRequired  = core.ErrStorageRequired
	ErrHTTPRequired     = core.ErrHTTPRequired
	ErrCatalogRequired  = core.ErrCatalogRequired
	ErrSecretRequired   = core.ErrSecretRequired
	ErrSecretTooShort   = core.ErrSecretTooShort
	ErrIdentityRequired = core.ErrIdentityRequired
)

type Config struct {
	Storage StorageProvider
	HTTP    HTTPAdapter
	Catalog Catalog

	// Identity and Secret enable login. Without them the auth routes
	// answer 503 and no session can be resolved.
	Identity IdentityProvider
	Secret   string

	// Suggester enables playlist generation
	Suggester Suggester

	// AllowedExternalID restricts login to one provider account when set
	AllowedExternalID string

	SessionConfig *SessionConfig

	// Registerer receives the auth metrics; nil disables them
	Registerer prometheus.Registerer
	Logger     *zerolog.Logger
}

// Playlistify holds the wired services handed to the HTTP adapter.
type Playlistify struct {
	// Sessions and OAuth are nil when AuthConfigErr is set
	Sessions      *services.SessionResolver
	OAuth         *services.OAuthFlow
	AuthConfigErr error

	Blocklist *services.BlocklistService
	Library   *services.LibraryService
	Generator *services.Generator
	Endpoints *services.EndpointRegistry
	Logger    zerolog.Logger
}

func New(config Config) (*Playlistify, error) {
	if config.Storage == nil {
		return nil, ErrStorageRequired
	}
	if config.HTTP == nil {
		return nil, ErrHTTPRequired
	}
	if config.Catalog == nil {
		return nil, ErrCatalogRequired
	}
	if config.Secret != "" && len(config.Secret) < minSecretLen {
		return nil, fmt.Errorf("%w - minimum of %d characters", ErrSecretTooShort, minSecretLen)
	}

	// Set Defaults

	logger := zerolog.Nop()
	if config.Logger != nil {
		logger = *config.Logger
	}

	sessionConfig := core.DefaultSessionConfig()
	if config.SessionConfig != nil {
		sessionConfig = config.SessionConfig.WithDefaults()
	}

	var metrics *services.Metrics
	if config.Registerer != nil {
		metrics = services.NewMetrics(config.Registerer)
	}

	blocklist := services.NewBlocklistService(config.Storage)

	var generator *services.Generator
	if config.Suggester != nil {
		generator = services.NewGenerator(config.Suggester, config.Catalog, blocklist, metrics, logger)
	}

	p := &Playlistify{
		Blocklist: blocklist,
		Library:   services.NewLibraryService(config.Catalog, config.Storage),
		Generator: generator,
		Endpoints: services.NewEndpointRegistry(),
		Logger:    logger,
	}

	switch {
	case config.Secret == "":
		p.AuthConfigErr = ErrSecretRequired
	case config.Identity == nil:
		p.AuthConfigErr = ErrIdentityRequired
	default:
		sessionSigner, err := crypto.NewPurposeSigner(config.Secret, crypto.PurposeSessionCookie)
		if err != nil {
			return nil, err
		}
		stateSigner, err := crypto.NewPurposeSigner(config.Secret, crypto.PurposeStateCookie)
		if err != nil {
			return nil, err
		}

		p.Sessions = services.NewSessionResolver(sessionConfig, config.Storage, config.Identity, sessionSigner, metrics, logger)
		p.OAuth = services.NewOAuthFlow(config.Identity, config.Storage, p.Sessions, stateSigner, sessionConfig, config.AllowedExternalID, metrics, logger)
	}

	if p.AuthConfigErr != nil {
		logger.Warn().Err(p.AuthConfigErr).Msg("login disabled")
	}

	if err := config.HTTP.RegisterRoutes(p); err != nil {
		return nil, err
	}

	return p, nil
}
