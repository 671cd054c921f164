package exchange

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/sboros/pimsync/internal/config"
	"github.com/sboros/pimsync/internal/syncer"
)

const (
	exchangeServer = "outlook.office365.com"
	resourceURI    = "https://" + exchangeServer

	// nativeclient redirect used by the device's interactive flow; the
	// code arrives as a query parameter on this URL.
	redirectURI = "https://login.microsoftonline.com/common/oauth2/nativeclient"
)

// Config is the Exchange (Office 365) OAuth config file.
type Config struct {
	ClientID     string `json:"client_id"`
	TenantID     string `json:"tenant_id"`
	EmailAddress string `json:"email_address"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// LoadConfig reads and validates the Exchange config file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.ClientID == "" || cfg.TenantID == "" || cfg.EmailAddress == "" {
		return nil, &syncer.DataError{
			Detail: fmt.Sprintf("exchange config %s is missing client_id, tenant_id or email_address", path),
		}
	}
	return &cfg, nil
}

func (c *Config) tokenURL() string {
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/token", c.TenantID)
}

func (c *Config) authorizeURL() string {
	q := url.Values{
		"client_id":     {c.ClientID},
		"login_hint":    {c.EmailAddress},
		"response_type": {"code"},
		"response_mode": {"query"},
		"redirect_uri":  {redirectURI},
		"resource":      {resourceURI},
	}
	return fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/authorize?%s", c.TenantID, q.Encode())
}

// tokenResponse is the subset of the token endpoint response we use.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in,string"`
	Error        string `json:"error"`
	ErrorDesc    string `json:"error_description"`
}

// tokenSource refreshes against the legacy tenant endpoint, which needs
// the resource parameter that golang.org/x/oauth2 does not send, and
// persists the rotated refresh token back to the config file.
type tokenSource struct {
	mu      sync.Mutex
	cfg     *Config
	path    string
	client  *http.Client
	current *oauth2.Token
}

// TokenSource returns a token source backed by the stored refresh token.
func TokenSource(cfg *Config, path string, client *http.Client) (oauth2.TokenSource, error) {
	if cfg.RefreshToken == "" {
		return nil, &syncer.AuthError{
			Provider: "exchange",
			Err:      fmt.Errorf("no refresh token in %s, run `pimsync auth exchange` first", path),
		}
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &tokenSource{cfg: cfg, path: path, client: client}, nil
}

func (ts *tokenSource) Token() (*oauth2.Token, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	if ts.current.Valid() {
		return ts.current, nil
	}

	token, err := ts.post(url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {ts.cfg.ClientID},
		"refresh_token": {ts.cfg.RefreshToken},
		"redirect_uri":  {redirectURI},
		"resource":      {resourceURI},
	})
	if err != nil {
		return nil, err
	}
	ts.current = token
	return token, nil
}

func (ts *tokenSource) post(form url.Values) (*oauth2.Token, error) {
	resp, err := ts.client.PostForm(ts.cfg.tokenURL(), form)
	if err != nil {
		return nil, &syncer.AuthError{Provider: "exchange", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &syncer.AuthError{Provider: "exchange", Err: err}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &syncer.AuthError{
			Provider: "exchange",
			Err:      fmt.Errorf("unexpected token response (status %d): %w", resp.StatusCode, err),
		}
	}
	if resp.StatusCode != http.StatusOK || tr.AccessToken == "" {
		detail := tr.ErrorDesc
		if detail == "" {
			detail = tr.Error
		}
		return nil, &syncer.AuthError{
			Provider: "exchange",
			Err:      fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, detail),
		}
	}

	// The endpoint rotates the refresh token on every grant.
	if tr.RefreshToken != "" && tr.RefreshToken != ts.cfg.RefreshToken {
		ts.cfg.RefreshToken = tr.RefreshToken
		if err := config.Save(ts.path, ts.cfg); err != nil {
			return nil, fmt.Errorf("failed to persist rotated refresh token: %w", err)
		}
	}

	return &oauth2.Token{
		AccessToken: tr.AccessToken,
		TokenType:   "Bearer",
		Expiry:      time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}

// Authorize runs the interactive flow: the user opens the authorization
// URL, signs in, and pastes back the nativeclient redirect URL (or the
// bare code). The resulting refresh token is saved into the config file.
func Authorize(ctx context.Context, path string, in io.Reader, out io.Writer) error {
	cfg, err := LoadConfig(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Open the following URL in your browser and sign in:\n\n%s\n\n"+
		"Paste the full redirect URL (or just the code): ", cfg.authorizeURL())

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}
	code := extractCode(strings.TrimSpace(line))
	if code == "" {
		return &syncer.AuthError{Provider: "exchange", Err: fmt.Errorf("no authorization code found in input")}
	}

	ts := &tokenSource{cfg: cfg, path: path, client: http.DefaultClient}
	if _, err := ts.post(url.Values{
		"grant_type":   {"authorization_code"},
		"client_id":    {cfg.ClientID},
		"code":         {code},
		"redirect_uri": {redirectURI},
		"resource":     {resourceURI},
	}); err != nil {
		return err
	}
	return nil
}

// extractCode pulls the authorization code out of a pasted redirect URL,
// or returns the input unchanged when it is already a bare code.
func extractCode(s string) string {
	if !strings.Contains(s, "://") {
		return s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return u.Query().Get("code")
}
