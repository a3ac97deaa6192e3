package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

// Profile is what an OAuth provider tells us about the signed-in user.
// The rest of the exchange (consent screens, redirects) happens on the
// provider side; the server only sees code -> profile.
type Profile struct {
	Email    string
	Name     string
	Provider string
}

// OAuthProvider wraps a single provider's code exchange and profile fetch.
type OAuthProvider struct {
	name        string
	config      *oauth2.Config
	userinfoURL string
}

// OAuthRegistry holds the configured providers by name.
type OAuthRegistry struct {
	providers map[string]*OAuthProvider
}

type OAuthCredentials struct {
	GoogleClientID string
	GoogleSecret   string
	YandexClientID string
	YandexSecret   string
	RedirectURL    string
}

// NewOAuthRegistry builds the provider set from configured credentials.
// Providers without credentials are simply absent from the registry.
func NewOAuthRegistry(creds OAuthCredentials) *OAuthRegistry {
	r := &OAuthRegistry{providers: make(map[string]*OAuthProvider)}

	if creds.GoogleClientID != "" {
		r.providers["google"] = &OAuthProvider{
			name: "google",
			config: &oauth2.Config{
				ClientID:     creds.GoogleClientID,
				ClientSecret: creds.GoogleSecret,
				RedirectURL:  creds.RedirectURL,
				Scopes:       []string{"openid", "email", "profile"},
				Endpoint:     endpoints.Google,
			},
			userinfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		}
	}

	if creds.YandexClientID != "" {
		r.providers["yandex"] = &OAuthProvider{
			name: "yandex",
			config: &oauth2.Config{
				ClientID:     creds.YandexClientID,
				ClientSecret: creds.YandexSecret,
				RedirectURL:  creds.RedirectURL,
				Endpoint:     endpoints.Yandex,
			},
			userinfoURL: "https://login.yandex.ru/info?format=json",
		}
	}

	return r
}

// Provider returns the named provider or an error when it is not configured.
func (r *OAuthRegistry) Provider(name string) (*OAuthProvider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("oauth provider %q is not configured", name)
	}
	return p, nil
}

// AuthCodeURL returns the provider's consent page URL for the given state.
func (p *OAuthProvider) AuthCodeURL(state string) string {
	return p.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for the user's profile.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code with %s: %w", p.name, err)
	}

	client := p.config.Client(ctx, token)
	resp, err := client.Get(p.userinfoURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s userinfo: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s userinfo returned status %d", p.name, resp.StatusCode)
	}

	// Google and Yandex use different field names for the same facts.
	var raw struct {
		Email        string `json:"email"`
		Name         string `json:"name"`
		DefaultEmail string `json:"default_email"`
		RealName     string `json:"real_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode %s userinfo: %w", p.name, err)
	}

	profile := &Profile{Email: raw.Email, Name: raw.Name, Provider: p.name}
	if profile.Email == "" {
		profile.Email = raw.DefaultEmail
	}
	if profile.Name == "" {
		profile.Name = raw.RealName
	}
	if profile.Email == "" {
		return nil, fmt.Errorf("%s userinfo contains no email", p.name)
	}

	return profile, nil
}
