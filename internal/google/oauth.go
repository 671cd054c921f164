package google

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/sboros/pimsync/internal/config"
	"github.com/sboros/pimsync/internal/syncer"
)

// redirectURI for the installed-app flow; the user pastes the code back.
const redirectURI = "http://localhost"

// Config is the Google OAuth config file.
type Config struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	RefreshToken string   `json:"refresh_token,omitempty"`
}

// LoadConfig reads and validates the Google config file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, &syncer.DataError{Detail: fmt.Sprintf("google config %s is missing client_id or client_secret", path)}
	}
	return &cfg, nil
}

// OAuth returns the oauth2 configuration for this client.
func (c *Config) OAuth() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURI,
		Scopes:       c.Scopes,
	}
}

// persistingSource wraps a refresh-token source and writes any rotated
// refresh token back to the config file, so the next run keeps working.
type persistingSource struct {
	mu   sync.Mutex
	src  oauth2.TokenSource
	cfg  *Config
	path string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	token, err := p.src.Token()
	if err != nil {
		return nil, &syncer.AuthError{Provider: "google", Err: err}
	}
	if token.RefreshToken != "" && token.RefreshToken != p.cfg.RefreshToken {
		p.cfg.RefreshToken = token.RefreshToken
		if err := config.Save(p.path, p.cfg); err != nil {
			return nil, fmt.Errorf("failed to persist rotated refresh token: %w", err)
		}
	}
	return token, nil
}

// TokenSource returns a token source backed by the stored refresh token.
// A missing refresh token is an AuthError: the user has to run
// `pimsync auth google` first.
func TokenSource(ctx context.Context, path string) (oauth2.TokenSource, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	if cfg.RefreshToken == "" {
		return nil, &syncer.AuthError{
			Provider: "google",
			Err:      fmt.Errorf("no refresh token in %s, run `pimsync auth google` first", path),
		}
	}

	src := cfg.OAuth().TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return &persistingSource{src: src, cfg: cfg, path: path}, nil
}

// HTTPClient returns an HTTP client that authenticates with the stored
// token and refreshes it transparently.
func HTTPClient(ctx context.Context, path string) (*http.Client, error) {
	ts, err := TokenSource(ctx, path)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// Authorize runs the interactive auth-code flow: it prints the
// authorization URL, reads the pasted code from in, exchanges it and
// persists the resulting refresh token into the config file.
func Authorize(ctx context.Context, path string, in io.Reader, out io.Writer) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}

	conf := cfg.OAuth()
	authURL := conf.AuthCodeURL("state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	fmt.Fprintf(out, "Open the following URL in your browser:\n\n%s\n\nAuthorization code: ", authURL)

	code, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && code == "" {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	token, err := conf.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return &syncer.AuthError{Provider: "google", Err: err}
	}
	if token.RefreshToken == "" {
		return &syncer.AuthError{Provider: "google", Err: fmt.Errorf("authorization response contained no refresh token")}
	}

	cfg.RefreshToken = token.RefreshToken
	return config.Save(path, cfg)
}
