package exchange

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sboros/pimsync/internal/config"
	"github.com/sboros/pimsync/internal/syncer"
)

func writeConfig(t *testing.T, cfg Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "o365.json")
	require.NoError(t, config.Save(path, cfg))
	return path
}

func TestLoadConfigValidates(t *testing.T) {
	path := writeConfig(t, Config{ClientID: "id", TenantID: "tenant"})

	_, err := LoadConfig(path)
	var dataErr *syncer.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Contains(t, dataErr.Detail, "email_address")
}

func TestTokenSourceRequiresRefreshToken(t *testing.T) {
	cfg := &Config{ClientID: "id", TenantID: "tenant", EmailAddress: "user@example.com"}

	_, err := TokenSource(cfg, "o365.json", nil)
	var authErr *syncer.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "exchange", authErr.Provider)
}

// tokenEndpoint fakes the tenant token endpoint via a transport rewrite,
// since the endpoint URL is derived from the tenant id.
func tokenEndpoint(t *testing.T, handler http.HandlerFunc) *http.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)
	return &http.Client{Transport: rewriteHost{host: serverURL.Host}}
}

type rewriteHost struct{ host string }

func (rt rewriteHost) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = rt.host
	return http.DefaultTransport.RoundTrip(req)
}

func TestTokenRefreshPersistsRotatedToken(t *testing.T) {
	cfg := Config{
		ClientID:     "client-1",
		TenantID:     "tenant-1",
		EmailAddress: "user@example.com",
		RefreshToken: "rt-old",
	}
	path := writeConfig(t, cfg)

	client := tokenEndpoint(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.Form.Get("grant_type"))
		assert.Equal(t, "client-1", r.Form.Get("client_id"))
		assert.Equal(t, "rt-old", r.Form.Get("refresh_token"))
		assert.Equal(t, resourceURI, r.Form.Get("resource"))
		assert.Contains(t, r.URL.Path, "tenant-1")

		fmt.Fprint(w, `{"access_token":"at-new","refresh_token":"rt-new","expires_in":"3599"}`)
	})

	ts, err := TokenSource(&cfg, path, client)
	require.NoError(t, err)

	token, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, "at-new", token.AccessToken)
	assert.True(t, token.Valid())

	var saved Config
	require.NoError(t, config.Load(path, &saved))
	assert.Equal(t, "rt-new", saved.RefreshToken)

	// A still-valid token is reused without another round trip.
	again, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, token, again)
}

func TestTokenRefreshFailure(t *testing.T) {
	cfg := Config{
		ClientID:     "client-1",
		TenantID:     "tenant-1",
		EmailAddress: "user@example.com",
		RefreshToken: "rt-revoked",
	}
	path := writeConfig(t, cfg)

	client := tokenEndpoint(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid_grant","error_description":"AADSTS70000: the refresh token has expired"}`)
	})

	ts, err := TokenSource(&cfg, path, client)
	require.NoError(t, err)

	_, err = ts.Token()
	var authErr *syncer.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Contains(t, authErr.Error(), "AADSTS70000")
}

func TestExtractCode(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"M.R3_ABC.code-value", "M.R3_ABC.code-value"},
		{redirectURI + "?code=the-code&session_state=xyz", "the-code"},
		{redirectURI + "?error=access_denied", ""},
		{"http://%zz", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractCode(tt.in), "input %q", tt.in)
	}
}

func TestAuthorizeURLContainsLoginHint(t *testing.T) {
	cfg := Config{ClientID: "client-1", TenantID: "tenant-1", EmailAddress: "user@example.com"}
	u := cfg.authorizeURL()
	assert.Contains(t, u, "tenant-1")
	assert.Contains(t, u, url.QueryEscape("user@example.com"))
	assert.Contains(t, u, "response_type=code")
}
