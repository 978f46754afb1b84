package zcap

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

const (
	HeaderCapabilityInvocation = "Capability-Invocation"
	HeaderInvocationNonce      = "X-Invocation-Nonce"
	HeaderDigest               = "Digest"
	HeaderAuthorization        = "Authorization"

	// ActionWrite is the capability action used to issue credentials.
	ActionWrite = "write"

	defaultExpiry = 10 * time.Minute
)

// Request is the part of an HTTP request that gets covered by the invocation signature.
type Request struct {
	Method      string
	URL         *url.URL
	Body        []byte
	ContentType string
}

// Invocation is a signed capability invocation, ready to be copied onto an HTTP request.
type Invocation struct {
	KeyID         string
	Controller    string
	CapabilityID  string
	Action        string
	Created       time.Time
	Expires       time.Time
	Nonce         string
	SignedHeaders []string
	SigningString string
	Signature     []byte

	// Header holds every header the request must carry, including Authorization.
	Header http.Header
}

// Apply copies the invocation headers onto a request.
func (inv *Invocation) Apply(req *http.Request) {
	for name, values := range inv.Header {
		req.Header[name] = append([]string(nil), values...)
	}
}

// Signer produces capability invocations signed with keys derived from secret seeds.
type Signer struct {
	seeds  SeedSource
	now    func() time.Time
	expiry time.Duration
	nonce  func() (string, error)
}

// SignerOption configures a Signer.
type SignerOption func(*Signer)

// WithSignerClock replaces the time source for the created and expires parameters.
func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		s.now = now
	}
}

// WithExpiry sets how long a signature remains valid.
func WithExpiry(d time.Duration) SignerOption {
	return func(s *Signer) {
		if d > 0 {
			s.expiry = d
		}
	}
}

// NewSigner creates a Signer that looks up seeds in the given source.
func NewSigner(seeds SeedSource, opts ...SignerOption) *Signer {
	s := &Signer{
		seeds:  seeds,
		now:    time.Now,
		expiry: defaultExpiry,
		nonce:  randomNonce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// KeyPair resolves and decodes the seed for seedRef and derives its key.
func (s *Signer) KeyPair(seedRef string) (*KeyPair, error) {
	encoded, ok := s.seeds.LookupSeed(seedRef)
	if !ok {
		return nil, errors.Wrapf(ErrSeedNotFound, "%q", seedRef)
	}
	seed, err := DecodeSeed(encoded)
	if err != nil {
		return nil, errors.Wrapf(err, "seed %q", seedRef)
	}
	return DeriveKeyPair(seed)
}

// Sign builds a fresh invocation of capability for the given request. Two calls never produce
// the same signature, because every invocation carries a new random nonce.
func (s *Signer) Sign(seedRef string, capability Capability, action string, req Request) (*Invocation, error) {
	if req.URL == nil {
		return nil, errors.New("request URL is required")
	}
	kp, err := s.KeyPair(seedRef)
	if err != nil {
		return nil, err
	}
	if capability.ID == "" {
		capability = RootCapability(req.URL.String())
	}
	invocationHeader, err := capability.headerValue(action)
	if err != nil {
		return nil, err
	}
	nonce, err := s.nonce()
	if err != nil {
		return nil, errors.Wrap(err, "generating nonce")
	}

	created := s.now().UTC().Truncate(time.Second)
	expires := created.Add(s.expiry)

	header := make(http.Header)
	header.Set("Host", req.URL.Host)
	header.Set(HeaderCapabilityInvocation, invocationHeader)
	header.Set(HeaderInvocationNonce, nonce)

	covered := []string{"(key)", "(created)", "(expires)", "(request-target)", "host",
		"capability-invocation", "x-invocation-nonce"}
	if req.Body != nil {
		digest, err := digestHeader(req.Body)
		if err != nil {
			return nil, err
		}
		contentType := req.ContentType
		if contentType == "" {
			contentType = "application/json"
		}
		header.Set("Content-Type", contentType)
		header.Set(HeaderDigest, digest)
		covered = append(covered, "content-type", "digest")
	}

	params := map[string]string{
		"(key)":            kp.KeyID,
		"(created)":        strconv.FormatInt(created.Unix(), 10),
		"(expires)":        strconv.FormatInt(expires.Unix(), 10),
		"(request-target)": strings.ToLower(req.Method) + " " + req.URL.RequestURI(),
	}
	lines := make([]string, 0, len(covered))
	for _, name := range covered {
		value, ok := params[name]
		if !ok {
			value = header.Get(name)
		}
		lines = append(lines, name+": "+value)
	}
	signingString := strings.Join(lines, "\n")
	signature := ed25519.Sign(kp.PrivateKey, []byte(signingString))

	header.Set(HeaderAuthorization, `Signature keyId="`+kp.KeyID+`",headers="`+strings.Join(covered, " ")+
		`",signature="`+base64.StdEncoding.EncodeToString(signature)+
		`",created="`+params["(created)"]+`",expires="`+params["(expires)"]+`"`)
	// net/http takes the host from the URL
	header.Del("Host")

	return &Invocation{
		KeyID:         kp.KeyID,
		Controller:    kp.Controller,
		CapabilityID:  capability.ID,
		Action:        action,
		Created:       created,
		Expires:       expires,
		Nonce:         nonce,
		SignedHeaders: covered,
		SigningString: signingString,
		Signature:     signature,
		Header:        header,
	}, nil
}

func digestHeader(body []byte) (string, error) {
	sum := sha256.Sum256(body)
	mh, err := multihash.Encode(sum[:], multihash.SHA2_256)
	if err != nil {
		return "", errors.Wrap(err, "encoding digest multihash")
	}
	encoded, err := multibase.Encode(multibase.Base64url, mh)
	if err != nil {
		return "", errors.Wrap(err, "encoding digest")
	}
	return "mh=" + encoded, nil
}

func randomNonce() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
