package spotify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/lborres/playlistify/core"
)

// Provider is the OAuth side: authorize URL, code exchange, refresh and profile.
type Provider struct {
	oauth2Config *oauth2.Config
	catalog      *Catalog
	httpClient   *http.Client
	timeout      time.Duration
	now          func() time.Time
}

var _ core.IdentityProvider = (*Provider)(nil)

func NewProvider(cfg Config) (*Provider, error) {
	cfg = cfg.WithDefaults()

	catalog, err := NewCatalog(cfg)
	if err != nil {
		return nil, err
	}

	return &Provider{
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// Client credentials go in a Basic header, never in the form body
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		catalog:    catalog,
		httpClient: cfg.HTTPClient,
		timeout:    cfg.Timeout,
		now:        time.Now,
	}, nil
}

func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth2Config.AuthCodeURL(state)
}

func (p *Provider) Exchange(ctx context.Context, code string) (*core.TokenSet, error) {
	ctx, cancel := p.context(ctx)
	defer cancel()

	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrTokenExchange, retrieveError(err))
	}
	return p.tokenSet(token), nil
}

// Refresh mints a new access token. RefreshToken of the result is the
// rotated token, or the one passed in when the provider did not rotate.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (*core.TokenSet, error) {
	ctx, cancel := p.context(ctx)
	defer cancel()

	token, err := p.oauth2Config.TokenSource(ctx, &oauth2.Token{
		RefreshToken: refreshToken,
	}).Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrRefreshFailed, retrieveError(err))
	}
	return p.tokenSet(token), nil
}

func (p *Provider) FetchProfile(ctx context.Context, accessToken string) (*core.Profile, error) {
	profile, err := p.catalog.Me(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrProfileFetch, err)
	}
	return profile, nil
}

// context carries the configured HTTP client into x/oauth2 and bounds the call.
func (p *Provider) context(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	return context.WithTimeout(ctx, p.timeout)
}

func (p *Provider) tokenSet(token *oauth2.Token) *core.TokenSet {
	expiresAt := token.Expiry
	if expiresAt.IsZero() {
		expiresAt = p.now().Add(core.DefaultTokenLifetime)
	}
	return &core.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
	}
}

// retrieveError turns an x/oauth2 token endpoint failure into an UpstreamError.
func retrieveError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.Response != nil {
		return &core.UpstreamError{Status: re.Response.StatusCode, Body: string(re.Body)}
	}
	return err
}
