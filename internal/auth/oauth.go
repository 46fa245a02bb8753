package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"
)

// OAuthIdentity is the part of a provider's profile we need to find or
// create a local account.
type OAuthIdentity struct {
	Provider  string
	Email     string
	Name      string
	AvatarURL string
}

// OAuthProvider wraps golang.org/x/oauth2 for one provider's Authorization
// Code flow:
//
//  1. redirect the user to AuthURL(state)
//  2. the provider calls back with a short-lived code
//  3. Exchange trades the code for a token and fetches the profile
//
// The code-for-token exchange is server-to-server and uses the client
// secret, so the provider's access token never reaches the browser.
type OAuthProvider struct {
	name        string
	config      *oauth2.Config
	userInfoURL string
	decode      func(body []byte) (*OAuthIdentity, error)
}

// OAuthCredentials are the client id/secret registered with a provider.
type OAuthCredentials struct {
	ClientID     string
	ClientSecret string
}

func (c OAuthCredentials) configured() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// NewGitHubProvider requests "read:user" and "user:email".
func NewGitHubProvider(creds OAuthCredentials, callbackURL string) *OAuthProvider {
	return &OAuthProvider{
		name: "github",
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		userInfoURL: "https://api.github.com/user",
		decode: func(body []byte) (*OAuthIdentity, error) {
			var u struct {
				Login     string `json:"login"`
				Name      string `json:"name"`
				Email     string `json:"email"`
				AvatarURL string `json:"avatar_url"`
			}
			if err := json.Unmarshal(body, &u); err != nil {
				return nil, err
			}
			name := u.Name
			if name == "" {
				name = u.Login
			}
			return &OAuthIdentity{Provider: "github", Email: u.Email, Name: name, AvatarURL: u.AvatarURL}, nil
		},
	}
}

// NewGoogleProvider requests the OpenID profile and email scopes.
func NewGoogleProvider(creds OAuthCredentials, callbackURL string) *OAuthProvider {
	return &OAuthProvider{
		name: "google",
		config: &oauth2.Config{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
		decode: func(body []byte) (*OAuthIdentity, error) {
			var u struct {
				Email   string `json:"email"`
				Name    string `json:"name"`
				Picture string `json:"picture"`
			}
			if err := json.Unmarshal(body, &u); err != nil {
				return nil, err
			}
			return &OAuthIdentity{Provider: "google", Email: u.Email, Name: u.Name, AvatarURL: u.Picture}, nil
		},
	}
}

func (p *OAuthProvider) Name() string { return p.name }

// WithEndpoints points the provider at different token and profile URLs.
// Tests use it to talk to an httptest server.
func (p *OAuthProvider) WithEndpoints(authURL, tokenURL, userInfoURL string) *OAuthProvider {
	p.config.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL}
	p.userInfoURL = userInfoURL
	return p
}

// AuthURL returns the provider URL to send the user to. state must be an
// unguessable value the callback can check to prevent CSRF.
func (p *OAuthProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow: code → access token → profile.
func (p *OAuthProvider) Exchange(ctx context.Context, code string) (*OAuthIdentity, error) {
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging %s OAuth code: %w", p.name, err)
	}

	// config.Client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building %s profile request: %w", p.name, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling %s profile API: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: %s profile API returned status %d", p.name, resp.StatusCode)
	}

	var body json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("auth: decoding %s profile: %w", p.name, err)
	}
	id, err := p.decode(body)
	if err != nil {
		return nil, fmt.Errorf("auth: decoding %s profile: %w", p.name, err)
	}
	if id.Email == "" {
		return nil, fmt.Errorf("auth: %s did not share an email address", p.name)
	}
	return id, nil
}

// OAuthProviders is the set of providers with credentials configured.
type OAuthProviders struct {
	byName map[string]*OAuthProvider
}

// NewOAuthProviders registers every provider whose credentials are complete.
func NewOAuthProviders(githubCreds, googleCreds OAuthCredentials, callbackURL string) *OAuthProviders {
	ps := &OAuthProviders{byName: map[string]*OAuthProvider{}}
	base := strings.TrimRight(callbackURL, "/")
	if githubCreds.configured() {
		ps.Add(NewGitHubProvider(githubCreds, base+"/github/callback"))
	}
	if googleCreds.configured() {
		ps.Add(NewGoogleProvider(googleCreds, base+"/google/callback"))
	}
	return ps
}

func (ps *OAuthProviders) Add(p *OAuthProvider) {
	if ps.byName == nil {
		ps.byName = map[string]*OAuthProvider{}
	}
	ps.byName[p.name] = p
}

// Get returns the named provider. A nil *OAuthProviders has none.
func (ps *OAuthProviders) Get(name string) (*OAuthProvider, bool) {
	if ps == nil {
		return nil, false
	}
	p, ok := ps.byName[name]
	return p, ok
}

// Names lists the configured providers in alphabetical order.
func (ps *OAuthProviders) Names() []string {
	if ps == nil {
		return nil
	}
	names := make([]string, 0, len(ps.byName))
	for n := range ps.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
