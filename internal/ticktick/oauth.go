package ticktick

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"tomanage/internal/models"
)

const (
	DefaultAuthURL  = "https://ticktick.com/oauth/authorize"
	DefaultTokenURL = "https://ticktick.com/oauth/token"
	Scope           = "tasks:read tasks:write"
)

// OAuth wraps the authorization-code flow for TickTick.
type OAuth struct {
	config oauth2.Config
	http   *http.Client
}

func NewOAuth(clientID, clientSecret, authURL, tokenURL string, timeout time.Duration) *OAuth {
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OAuth{
		config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Scopes:       []string{Scope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		http: &http.Client{Timeout: timeout},
	}
}

func (o *OAuth) Configured() bool {
	return o.config.ClientID != "" && o.config.ClientSecret != ""
}

// AuthCodeURL builds the consent URL carrying state and the redirect URI.
func (o *OAuth) AuthCodeURL(state, redirectURI string) string {
	cfg := o.config
	cfg.RedirectURL = redirectURI
	return cfg.AuthCodeURL(state)
}

// Exchange trades an authorization code for an access token.
func (o *OAuth) Exchange(ctx context.Context, code, redirectURI string) (string, error) {
	if !o.Configured() {
		return "", fmt.Errorf("%w: ticktick client id or secret not configured", models.ErrExternalService)
	}
	cfg := o.config
	cfg.RedirectURL = redirectURI
	ctx = context.WithValue(ctx, oauth2.HTTPClient, o.http)

	tok, err := cfg.Exchange(ctx, code, oauth2.SetAuthURLParam("scope", Scope))
	if err != nil {
		return "", fmt.Errorf("%w: ticktick token exchange: %v", models.ErrExternalService, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: ticktick returned no access token", models.ErrExternalService)
	}
	return tok.AccessToken, nil
}
