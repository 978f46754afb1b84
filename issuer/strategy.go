package issuer

import (
	"context"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/vc-interop/issuer-contract-tests/implementations"
	"github.com/vc-interop/issuer-contract-tests/zcap"
)

// Strategy authorizes requests to one issuer. The set of strategies is closed: NoAuth,
// Bearer and CapabilityInvocation.
type Strategy interface {
	Kind() implementations.AuthKind
	authorize(req *http.Request, body []byte) error
}

// NoAuth sends requests unchanged.
type NoAuth struct{}

func (NoAuth) Kind() implementations.AuthKind { return implementations.AuthNone }

func (NoAuth) authorize(*http.Request, []byte) error { return nil }

// Bearer adds an OAuth2 bearer token.
type Bearer struct {
	tokens oauth2.TokenSource
}

func (Bearer) Kind() implementations.AuthKind { return implementations.AuthBearer }

func (b Bearer) authorize(req *http.Request, _ []byte) error {
	token, err := b.tokens.Token()
	if err != nil {
		return errors.Wrap(err, "obtaining bearer token")
	}
	token.SetAuthHeader(req)
	return nil
}

// CapabilityInvocation signs every request as an invocation of an authorization capability.
type CapabilityInvocation struct {
	signer     *zcap.Signer
	seedRef    string
	capability zcap.Capability
}

func (CapabilityInvocation) Kind() implementations.AuthKind { return implementations.AuthCapability }

func (c CapabilityInvocation) authorize(req *http.Request, body []byte) error {
	inv, err := c.signer.Sign(c.seedRef, c.capability, zcap.ActionWrite, zcap.Request{
		Method:      req.Method,
		URL:         req.URL,
		Body:        body,
		ContentType: req.Header.Get("Content-Type"),
	})
	if err != nil {
		return err
	}
	inv.Apply(req)
	return nil
}

// StrategyDeps are the collaborators a strategy may need.
type StrategyDeps struct {
	Signer    *zcap.Signer
	LookupEnv func(string) (string, bool)

	// TokenClient is used to call OAuth2 token endpoints.
	TokenClient *http.Client
}

// ResolveStrategy chooses the strategy for a descriptor. It does no network I/O; any error
// is a *ConfigurationError.
func ResolveStrategy(d implementations.IssuerDescriptor, deps StrategyDeps) (Strategy, error) {
	switch kind := d.ResolvedAuthKind(); kind {
	case implementations.AuthNone:
		return NoAuth{}, nil

	case implementations.AuthBearer:
		tokens, err := tokenSource(d, deps)
		if err != nil {
			return nil, configurationError(d.ID, err)
		}
		return Bearer{tokens: tokens}, nil

	case implementations.AuthCapability:
		if d.Zcap == nil || d.Zcap.ClientSecret == "" {
			return nil, configurationError(d.ID, errors.New("capability authorization requires zcap.clientSecret"))
		}
		if deps.Signer == nil {
			return nil, configurationError(d.ID, errors.New("no capability signer available"))
		}
		// fail at setup rather than on the first request
		if _, err := deps.Signer.KeyPair(d.Zcap.ClientSecret); err != nil {
			return nil, configurationError(d.ID, err)
		}
		var capability zcap.Capability
		value, err := d.Zcap.CapabilityValue()
		if err != nil {
			return nil, configurationError(d.ID, errors.Wrap(zcap.ErrMalformedCapability, err.Error()))
		}
		if value != nil {
			if capability, err = zcap.ParseCapability(value); err != nil {
				return nil, configurationError(d.ID, err)
			}
		}
		return CapabilityInvocation{signer: deps.Signer, seedRef: d.Zcap.ClientSecret, capability: capability}, nil

	default:
		return nil, configurationError(d.ID, errors.Errorf("unknown auth kind %q", kind))
	}
}

func tokenSource(d implementations.IssuerDescriptor, deps StrategyDeps) (oauth2.TokenSource, error) {
	lookup := deps.LookupEnv
	switch {
	case d.OAuth2 != nil:
		secret, ok := lookup(d.OAuth2.ClientSecret)
		if !ok {
			return nil, errors.Errorf("OAuth2 client secret %q not found", d.OAuth2.ClientSecret)
		}
		cfg := clientcredentials.Config{
			ClientID:     d.OAuth2.ClientID,
			ClientSecret: secret,
			TokenURL:     d.OAuth2.TokenEndpoint,
			Scopes:       d.OAuth2.Scopes,
		}
		if d.OAuth2.TokenAudience != "" {
			cfg.EndpointParams = url.Values{"audience": {d.OAuth2.TokenAudience}}
		}
		ctx := context.Background()
		if deps.TokenClient != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, deps.TokenClient)
		}
		return cfg.TokenSource(ctx), nil

	case d.Bearer != nil:
		token, ok := lookup(d.Bearer.TokenEnv)
		if !ok {
			return nil, errors.Errorf("bearer token %q not found", d.Bearer.TokenEnv)
		}
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}), nil

	default:
		return nil, errors.New("bearer authorization requires oauth2 or bearer settings")
	}
}
