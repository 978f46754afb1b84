// Package issuer sends issuance requests to the services under test and normalizes what comes
// back into an Outcome.
package issuer

import (
	"bytes"
	"context"
	"crypto/tls"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"gopkg.in/launchdarkly/go-sdk-common.v2/ldvalue"

	"github.com/vc-interop/issuer-contract-tests/implementations"
	"github.com/vc-interop/issuer-contract-tests/zcap"
)

const maxErrorBody = 2048

// TransportConfig controls the HTTP transport used to reach issuers.
type TransportConfig struct {
	// InsecureSkipVerify disables TLS certificate verification. Only for staging endpoints
	// with self-signed certificates.
	InsecureSkipVerify bool

	// Timeout bounds each request. Zero means no timeout.
	Timeout time.Duration

	// Tracing wraps the transport with OpenTelemetry instrumentation.
	Tracing bool
}

// Response is the part of a successful HTTP response the harness inspects.
type Response struct {
	Status int
	Header http.Header
}

// Outcome is the normalized result of one request. Exactly one of Result and Error is set;
// Data is only set along with Result.
type Outcome struct {
	Result *Response
	Data   interface{}
	Error  *RequestError
}

// Status returns the HTTP status, if any response was received.
func (o Outcome) Status() ldvalue.OptionalInt {
	switch {
	case o.Result != nil:
		return ldvalue.NewOptionalInt(o.Result.Status)
	case o.Error != nil:
		return o.Error.Status
	default:
		return ldvalue.OptionalInt{}
	}
}

// Target is an issuer whose authorization strategy has been resolved.
type Target struct {
	Descriptor implementations.IssuerDescriptor
	Strategy   Strategy
	endpoint   *url.URL
}

// Client sends issuance requests.
type Client struct {
	http        *http.Client
	tokenClient *http.Client
	signer      *zcap.Signer
	lookupEnv   func(string) (string, bool)
	log         logrus.FieldLogger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithSigner sets the capability signer. The default signer reads seeds from the environment.
func WithSigner(s *zcap.Signer) ClientOption {
	return func(c *Client) {
		c.signer = s
	}
}

// WithLookupEnv replaces the lookup of named secrets such as OAuth2 client secrets.
func WithLookupEnv(lookup func(string) (string, bool)) ClientOption {
	return func(c *Client) {
		c.lookupEnv = lookup
	}
}

// WithTokenClient sets the HTTP client used for OAuth2 token requests.
func WithTokenClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.tokenClient = hc
	}
}

// WithLogger sets the logger for request diagnostics.
func WithLogger(log logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a Client.
func NewClient(cfg TransportConfig, opts ...ClientOption) *Client {
	transport := newTransport()
	if cfg.InsecureSkipVerify {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}
	var rt http.RoundTripper = transport
	if cfg.Tracing {
		rt = otelhttp.NewTransport(rt)
	}

	c := &Client{
		http: &http.Client{
			Transport: rt,
			Timeout:   cfg.Timeout,
			// A redirect is the issuer's answer, not something to follow.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		signer:    zcap.NewSigner(zcap.EnvSeedSource{}),
		lookupEnv: lookupNonEmptyEnv,
		log:       logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.tokenClient == nil {
		c.tokenClient = c.http
	}
	return c
}

// newTransport copies the default transport's settings. The default transport may have been
// replaced by a wrapper, such as an interceptor in tests.
func newTransport() *http.Transport {
	if t, ok := http.DefaultTransport.(*http.Transport); ok {
		return t.Clone()
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

func lookupNonEmptyEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(name)
	return v, ok && v != ""
}

// Prepare validates a descriptor and resolves its authorization strategy. Any error is a
// *ConfigurationError.
func (c *Client) Prepare(d implementations.IssuerDescriptor) (*Target, error) {
	endpoint, err := url.Parse(d.Endpoint)
	if err != nil || endpoint.Host == "" || (endpoint.Scheme != "http" && endpoint.Scheme != "https") {
		return nil, configurationError(d.ID, errors.Errorf("invalid endpoint %q", d.Endpoint))
	}
	strategy, err := ResolveStrategy(d, StrategyDeps{
		Signer:      c.signer,
		LookupEnv:   c.lookupEnv,
		TokenClient: c.tokenClient,
	})
	if err != nil {
		return nil, err
	}
	return &Target{Descriptor: d, Strategy: strategy, endpoint: endpoint}, nil
}

// Issue POSTs body as JSON to the target, exactly once. Failed requests are reported in the
// Outcome; the error is only set when the request could not be authorized because of the
// issuer's configuration.
func (c *Client) Issue(ctx context.Context, target *Target, body interface{}) (Outcome, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "marshalling request body")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.endpoint.String(), bytes.NewReader(data))
	if err != nil {
		return Outcome{}, errors.Wrap(err, "creating request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	for name, value := range target.Descriptor.Headers {
		req.Header.Set(name, value)
	}

	if err := target.Strategy.authorize(req, data); err != nil {
		if errors.Is(err, zcap.ErrSeedNotFound) || errors.Is(err, zcap.ErrInvalidSeed) ||
			errors.Is(err, zcap.ErrMalformedCapability) {
			return Outcome{}, configurationError(target.Descriptor.ID, err)
		}
		// a token endpoint that cannot be reached is a transport failure of this request
		return Outcome{Error: &RequestError{Kind: ErrTransport, Message: "authorization failed", Cause: err}}, nil
	}

	log := c.log.WithFields(logrus.Fields{"issuer": target.Descriptor.ID, "auth": target.Strategy.Kind()})
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		log.WithError(err).Debugf("POST %s failed", target.endpoint.Redacted())
		return Outcome{Error: &RequestError{Kind: ErrTransport, Cause: err}}, nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{Error: &RequestError{Kind: ErrTransport, Status: ldvalue.NewOptionalInt(resp.StatusCode), Cause: err}}, nil
	}
	log.Debugf("POST %s -> %d in %s", target.endpoint.Redacted(), resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Outcome{Error: &RequestError{
			Kind:    kindForStatus(resp.StatusCode),
			Status:  ldvalue.NewOptionalInt(resp.StatusCode),
			Message: errorMessage(respBody),
			Body:    truncate(string(respBody), maxErrorBody),
		}}, nil
	}

	return Outcome{
		Result: &Response{Status: resp.StatusCode, Header: resp.Header},
		Data:   parseBody(respBody),
	}, nil
}

// parseBody decodes a JSON body. A body that is not JSON is returned as a string so that the
// caller can report it.
func parseBody(body []byte) interface{} {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	var v interface{}
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return truncate(strings.TrimSpace(string(body)), 200)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
