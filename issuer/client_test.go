package issuer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/launchdarkly/go-test-helpers/v2/httphelpers"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/h2non/gock.v1"

	"github.com/vc-interop/issuer-contract-tests/implementations"
	"github.com/vc-interop/issuer-contract-tests/zcap"
)

var jsonHeaders = http.Header{"Content-Type": []string{"application/json"}}

func noSecrets(string) (string, bool) { return "", false }

func prepare(t *testing.T, c *Client, d implementations.IssuerDescriptor) *Target {
	target, err := c.Prepare(d)
	require.NoError(t, err)
	return target
}

func TestIssueSuccess(t *testing.T) {
	body := []byte(`{"verifiableCredential":{"id":"urn:uuid:1"}}`)
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithResponse(201, jsonHeaders, body))
	server := httptest.NewServer(handler)
	defer server.Close()

	c := NewClient(TransportConfig{})
	target := prepare(t, c, implementations.IssuerDescriptor{
		ID:       "did:example:issuer",
		Endpoint: server.URL + "/credentials/issue",
		Headers:  map[string]string{"X-Tenant": "interop"},
	})
	assert.Equal(t, implementations.AuthNone, target.Strategy.Kind())

	outcome, err := c.Issue(context.Background(), target, map[string]interface{}{"credential": map[string]interface{}{}})
	require.NoError(t, err)
	require.Nil(t, outcome.Error)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 201, outcome.Result.Status)
	assert.Equal(t, 201, outcome.Status().IntValue())
	assert.Equal(t, map[string]interface{}{"verifiableCredential": map[string]interface{}{"id": "urn:uuid:1"}}, outcome.Data)

	require.Len(t, requestsCh, 1)
	r := <-requestsCh
	assert.Equal(t, http.MethodPost, r.Request.Method)
	assert.Equal(t, "/credentials/issue", r.Request.URL.Path)
	assert.Equal(t, "application/json", r.Request.Header.Get("Content-Type"))
	assert.Equal(t, "interop", r.Request.Header.Get("X-Tenant"))
	assert.Empty(t, r.Request.Header.Get("Authorization"))
	assert.JSONEq(t, `{"credential":{}}`, string(r.Body))
}

func TestIssueErrorStatuses(t *testing.T) {
	for _, p := range []struct {
		status  int
		kind    error
		body    string
		message string
	}{
		{400, ErrInputValidation, `{"message":"credential.@context is required"}`, "credential.@context is required"},
		{401, ErrAuthorization, `{"error":"unauthorized"}`, "unauthorized"},
		{500, ErrProtocol, `boom`, "boom"},
		{302, ErrProtocol, ``, ""},
	} {
		t.Run(http.StatusText(p.status), func(t *testing.T) {
			handler, requestsCh := httphelpers.RecordingHandler(
				httphelpers.HandlerWithResponse(p.status, nil, []byte(p.body)))
			server := httptest.NewServer(handler)
			defer server.Close()

			c := NewClient(TransportConfig{})
			target := prepare(t, c, implementations.IssuerDescriptor{ID: "did:example:issuer", Endpoint: server.URL})

			outcome, err := c.Issue(context.Background(), target, map[string]interface{}{})
			require.NoError(t, err)
			assert.Nil(t, outcome.Result)
			assert.Nil(t, outcome.Data)
			require.NotNil(t, outcome.Error)
			assert.True(t, errors.Is(outcome.Error, p.kind))
			assert.Equal(t, p.status, outcome.Error.Status.IntValue())
			assert.Equal(t, p.message, outcome.Error.Message)
			assert.Len(t, requestsCh, 1, "requests are never retried")
		})
	}
}

func TestIssueDoesNotFollowRedirects(t *testing.T) {
	for _, status := range []int{302, 303, 307, 308} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("/issue", func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/elsewhere", status)
			})
			elsewhere, redirectedCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(201))
			mux.Handle("/elsewhere", elsewhere)
			server := httptest.NewServer(mux)
			defer server.Close()

			c := NewClient(TransportConfig{})
			target := prepare(t, c, implementations.IssuerDescriptor{ID: "did:example:issuer", Endpoint: server.URL + "/issue"})

			outcome, err := c.Issue(context.Background(), target, map[string]interface{}{})
			require.NoError(t, err)
			assert.Nil(t, outcome.Result)
			require.NotNil(t, outcome.Error)
			assert.True(t, errors.Is(outcome.Error, ErrProtocol))
			assert.Equal(t, status, outcome.Error.Status.IntValue())
			assert.Len(t, redirectedCh, 0)
		})
	}
}

type wrappedTransport struct {
	http.RoundTripper
}

func TestNewClientWithWrappedDefaultTransport(t *testing.T) {
	original := http.DefaultTransport
	http.DefaultTransport = wrappedTransport{original}
	defer func() { http.DefaultTransport = original }()

	server := httptest.NewServer(httphelpers.HandlerWithResponse(201, jsonHeaders, []byte(`{}`)))
	defer server.Close()

	c := NewClient(TransportConfig{})
	target := prepare(t, c, implementations.IssuerDescriptor{ID: "did:example:issuer", Endpoint: server.URL})
	outcome, err := c.Issue(context.Background(), target, map[string]interface{}{})
	require.NoError(t, err)
	require.NotNil(t, outcome.Result)
	assert.Equal(t, 201, outcome.Result.Status)
}

func TestIssueTransportError(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithStatus(201))
	url := server.URL
	server.Close()

	c := NewClient(TransportConfig{})
	target := prepare(t, c, implementations.IssuerDescriptor{ID: "did:example:issuer", Endpoint: url})

	outcome, err := c.Issue(context.Background(), target, map[string]interface{}{})
	require.NoError(t, err)
	require.NotNil(t, outcome.Error)
	assert.True(t, errors.Is(outcome.Error, ErrTransport))
	assert.False(t, outcome.Error.Status.IsDefined())
	assert.False(t, outcome.Status().IsDefined())
}

func TestIssueTLS(t *testing.T) {
	server := httptest.NewTLSServer(httphelpers.HandlerWithResponse(201, jsonHeaders, []byte(`{}`)))
	defer server.Close()
	d := implementations.IssuerDescriptor{ID: "did:example:issuer", Endpoint: server.URL}

	t.Run("self-signed certificate rejected by default", func(t *testing.T) {
		c := NewClient(TransportConfig{})
		outcome, err := c.Issue(context.Background(), prepare(t, c, d), map[string]interface{}{})
		require.NoError(t, err)
		require.NotNil(t, outcome.Error)
		assert.True(t, errors.Is(outcome.Error, ErrTransport))
	})

	t.Run("self-signed certificate accepted when verification is disabled", func(t *testing.T) {
		c := NewClient(TransportConfig{InsecureSkipVerify: true, Tracing: true})
		outcome, err := c.Issue(context.Background(), prepare(t, c, d), map[string]interface{}{})
		require.NoError(t, err)
		require.NotNil(t, outcome.Result)
		assert.Equal(t, 201, outcome.Result.Status)
	})
}

func TestIssueNonJSONBody(t *testing.T) {
	server := httptest.NewServer(httphelpers.HandlerWithResponse(201, nil, []byte("issued")))
	defer server.Close()

	c := NewClient(TransportConfig{})
	outcome, err := c.Issue(context.Background(),
		prepare(t, c, implementations.IssuerDescriptor{ID: "did:example:issuer", Endpoint: server.URL}), struct{}{})
	require.NoError(t, err)
	assert.Equal(t, "issued", outcome.Data)
}

func TestPrepareRejectsBadEndpoint(t *testing.T) {
	c := NewClient(TransportConfig{})
	for _, endpoint := range []string{"", "not a url", "ftp://issuer.example", "https://"} {
		_, err := c.Prepare(implementations.IssuerDescriptor{ID: "did:example:issuer", Endpoint: endpoint})
		assert.True(t, errors.Is(err, ErrConfiguration), endpoint)
	}
}

func TestBearerFromEnvironment(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(201))
	server := httptest.NewServer(handler)
	defer server.Close()

	c := NewClient(TransportConfig{}, WithLookupEnv(func(name string) (string, bool) {
		return "token-123", name == "ISSUER_TOKEN"
	}))
	target := prepare(t, c, implementations.IssuerDescriptor{
		ID:       "did:example:issuer",
		Endpoint: server.URL,
		Bearer:   &implementations.BearerConfig{TokenEnv: "ISSUER_TOKEN"},
	})
	assert.Equal(t, implementations.AuthBearer, target.Strategy.Kind())

	_, err := c.Issue(context.Background(), target, struct{}{})
	require.NoError(t, err)
	r := <-requestsCh
	assert.Equal(t, "Bearer token-123", r.Request.Header.Get("Authorization"))

	_, err = NewClient(TransportConfig{}, WithLookupEnv(noSecrets)).Prepare(target.Descriptor)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestBearerFromOAuth2(t *testing.T) {
	defer gock.Off()
	tokenClient := &http.Client{}
	gock.InterceptClient(tokenClient)
	defer gock.RestoreClient(tokenClient)

	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(201))
	server := httptest.NewServer(handler)
	defer server.Close()

	c := NewClient(TransportConfig{},
		WithTokenClient(tokenClient),
		WithLookupEnv(func(name string) (string, bool) { return "s3cret", name == "OAUTH_SECRET" }))

	gock.New("https://auth.issuer.example").
		Post("/oauth/token").
		Reply(200).
		JSON(map[string]interface{}{"access_token": "oauth-token", "token_type": "bearer", "expires_in": 3600})
	target := prepare(t, c, implementations.IssuerDescriptor{
		ID:       "did:example:issuer",
		Endpoint: server.URL,
		OAuth2: &implementations.OAuth2Config{
			ClientID:      "harness",
			ClientSecret:  "OAUTH_SECRET",
			TokenEndpoint: "https://auth.issuer.example/oauth/token",
			TokenAudience: server.URL,
		},
	})

	for i := 0; i < 2; i++ {
		outcome, err := c.Issue(context.Background(), target, struct{}{})
		require.NoError(t, err)
		require.NotNil(t, outcome.Result)
		r := <-requestsCh
		assert.Equal(t, "Bearer oauth-token", r.Request.Header.Get("Authorization"))
	}
	assert.True(t, gock.IsDone(), "the token is fetched once and cached")
}

func TestBearerTokenEndpointFailure(t *testing.T) {
	defer gock.Off()
	tokenClient := &http.Client{}
	gock.InterceptClient(tokenClient)
	defer gock.RestoreClient(tokenClient)

	c := NewClient(TransportConfig{}, WithTokenClient(tokenClient),
		WithLookupEnv(func(string) (string, bool) { return "s3cret", true }))

	gock.New("https://auth.issuer.example").Post("/oauth/token").Reply(500)
	target := prepare(t, c, implementations.IssuerDescriptor{
		ID:       "did:example:issuer",
		Endpoint: "https://issuer.example/credentials/issue",
		OAuth2: &implementations.OAuth2Config{
			ClientID:      "harness",
			ClientSecret:  "OAUTH_SECRET",
			TokenEndpoint: "https://auth.issuer.example/oauth/token",
		},
	})

	outcome, err := c.Issue(context.Background(), target, struct{}{})
	require.NoError(t, err)
	require.NotNil(t, outcome.Error)
	assert.True(t, errors.Is(outcome.Error, ErrTransport))
}

func capabilityDescriptor(endpoint string) implementations.IssuerDescriptor {
	return implementations.IssuerDescriptor{
		ID:       "did:example:issuer",
		Endpoint: endpoint,
		Zcap:     &implementations.ZcapConfig{ClientSecret: "ISSUER_SEED"},
	}
}

func testSeedSource(t *testing.T) zcap.StaticSeedSource {
	seed, err := zcap.EncodeSeed([]byte(strings.Repeat("s", 32)))
	require.NoError(t, err)
	return zcap.StaticSeedSource{"ISSUER_SEED": seed}
}

func TestCapabilityInvocation(t *testing.T) {
	handler, requestsCh := httphelpers.RecordingHandler(httphelpers.HandlerWithStatus(201))
	server := httptest.NewServer(handler)
	defer server.Close()

	c := NewClient(TransportConfig{}, WithSigner(zcap.NewSigner(testSeedSource(t))))
	target := prepare(t, c, capabilityDescriptor(server.URL+"/credentials/issue"))
	assert.Equal(t, implementations.AuthCapability, target.Strategy.Kind())

	for i := 0; i < 2; i++ {
		_, err := c.Issue(context.Background(), target, map[string]interface{}{"credential": map[string]interface{}{}})
		require.NoError(t, err)
	}
	first, second := <-requestsCh, <-requestsCh

	invocation := first.Request.Header.Get(zcap.HeaderCapabilityInvocation)
	assert.Equal(t, `zcap id="`+zcap.RootCapability(server.URL+"/credentials/issue").ID+`",action="write"`, invocation)
	assert.True(t, strings.HasPrefix(first.Request.Header.Get("Authorization"), "Signature keyId=\"did:key:"))
	assert.NotEmpty(t, first.Request.Header.Get(zcap.HeaderDigest))
	assert.NotEqual(t, first.Request.Header.Get("Authorization"), second.Request.Header.Get("Authorization"))
}

func TestCapabilityConfigurationErrors(t *testing.T) {
	t.Run("missing seed", func(t *testing.T) {
		c := NewClient(TransportConfig{}, WithSigner(zcap.NewSigner(zcap.StaticSeedSource{})))
		_, err := c.Prepare(capabilityDescriptor("https://issuer.example"))
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.True(t, errors.Is(err, zcap.ErrSeedNotFound))
	})

	t.Run("malformed capability", func(t *testing.T) {
		c := NewClient(TransportConfig{}, WithSigner(zcap.NewSigner(testSeedSource(t))))
		d := capabilityDescriptor("https://issuer.example")
		capability, _ := json.Marshal("{not json")
		d.Zcap.Capability = capability
		_, err := c.Prepare(d)
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.True(t, errors.Is(err, zcap.ErrMalformedCapability))
	})

	t.Run("unknown auth kind", func(t *testing.T) {
		c := NewClient(TransportConfig{})
		_, err := c.Prepare(implementations.IssuerDescriptor{ID: "x", Endpoint: "https://issuer.example", AuthKind: "magic"})
		assert.True(t, errors.Is(err, ErrConfiguration))
	})

	t.Run("seed removed after setup", func(t *testing.T) {
		seeds := testSeedSource(t)
		c := NewClient(TransportConfig{}, WithSigner(zcap.NewSigner(seeds)))
		target := prepare(t, c, capabilityDescriptor("https://issuer.example"))
		delete(seeds, "ISSUER_SEED")

		outcome, err := c.Issue(context.Background(), target, struct{}{})
		assert.True(t, errors.Is(err, ErrConfiguration))
		assert.Nil(t, outcome.Result)
		assert.Nil(t, outcome.Error)
	})
}
