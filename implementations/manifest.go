// Package implementations describes the issuer services under test and loads them from a
// JSON manifest.
package implementations

import (
	_ "embed"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed manifest.schema.json
var manifestSchema []byte

// AuthKind selects how requests to an issuer are authorized.
type AuthKind string

const (
	AuthNone       AuthKind = "none"
	AuthBearer     AuthKind = "bearer"
	AuthCapability AuthKind = "capability"
)

// ZcapConfig configures capability invocation. ClientSecret is the name of the environment
// variable that holds the secret key seed, never the seed itself.
type ZcapConfig struct {
	Capability   json.RawMessage `json:"capability,omitempty"`
	ClientSecret string          `json:"clientSecret"`
}

// CapabilityValue returns the configured capability as either its serialized string form or
// a decoded object, or nil if none was given.
func (z ZcapConfig) CapabilityValue() (interface{}, error) {
	if len(z.Capability) == 0 || string(z.Capability) == "null" {
		return nil, nil
	}
	var v interface{}
	if err := json.Unmarshal(z.Capability, &v); err != nil {
		return nil, errors.Wrap(err, "parsing capability")
	}
	return v, nil
}

// OAuth2Config configures the OAuth2 client credentials grant. ClientSecret is the name of the
// environment variable that holds the secret.
type OAuth2Config struct {
	ClientID      string   `json:"clientId"`
	ClientSecret  string   `json:"clientSecret"`
	TokenEndpoint string   `json:"tokenEndpoint"`
	TokenAudience string   `json:"tokenAudience,omitempty"`
	Scopes        []string `json:"scopes,omitempty"`
}

// BearerConfig configures a static bearer token read from an environment variable.
type BearerConfig struct {
	TokenEnv string `json:"tokenEnv"`
}

// IssuerDescriptor identifies one issuer endpoint of an implementation.
type IssuerDescriptor struct {
	ID       string                 `json:"id"`
	Endpoint string                 `json:"endpoint"`
	AuthKind AuthKind               `json:"authKind,omitempty"`
	Zcap     *ZcapConfig            `json:"zcap,omitempty"`
	OAuth2   *OAuth2Config          `json:"oauth2,omitempty"`
	Bearer   *BearerConfig          `json:"bearer,omitempty"`
	Headers  map[string]string      `json:"headers,omitempty"`
	Options  map[string]interface{} `json:"options,omitempty"`
	Tags     []string               `json:"tags,omitempty"`
}

// ResolvedAuthKind returns AuthKind, or infers it from the configured credentials.
func (d IssuerDescriptor) ResolvedAuthKind() AuthKind {
	switch {
	case d.AuthKind != "":
		return d.AuthKind
	case d.Zcap != nil:
		return AuthCapability
	case d.OAuth2 != nil, d.Bearer != nil:
		return AuthBearer
	default:
		return AuthNone
	}
}

// HasTag reports whether the issuer advertises a tag. Tags are compared case-insensitively.
func (d IssuerDescriptor) HasTag(tag string) bool {
	for _, t := range d.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Implementation is one independently operated service.
type Implementation struct {
	Name    string             `json:"name"`
	Issuers []IssuerDescriptor `json:"issuers"`
}

// Issuer returns the first issuer advertising tag.
func (i Implementation) Issuer(tag string) (IssuerDescriptor, bool) {
	for _, d := range i.Issuers {
		if d.HasTag(tag) {
			return d, true
		}
	}
	return IssuerDescriptor{}, false
}

// Manifest is the ordered list of implementations under test.
type Manifest []Implementation

// Selected pairs an implementation with the issuer chosen for a test run.
type Selected struct {
	Name   string
	Issuer IssuerDescriptor
}

// Select picks the issuer advertising tag for each implementation, in manifest order. The
// names of implementations with no such issuer are returned separately.
func (m Manifest) Select(tag string) (selected []Selected, missing []string) {
	for _, impl := range m {
		if d, ok := impl.Issuer(tag); ok {
			selected = append(selected, Selected{Name: impl.Name, Issuer: d})
		} else {
			missing = append(missing, impl.Name)
		}
	}
	return selected, missing
}

// Names returns the implementation names in manifest order.
func (m Manifest) Names() []string {
	ret := make([]string, 0, len(m))
	for _, impl := range m {
		ret = append(ret, impl.Name)
	}
	return ret
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading manifest: %s", path)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, errors.Wrapf(err, "manifest %s", path)
	}
	return m, nil
}

// ParseManifest validates data against the manifest schema and decodes it. Implementation
// names must be unique.
func ParseManifest(data []byte) (Manifest, error) {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(manifestSchema), gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, errors.Wrap(err, "validating manifest")
	}
	if !result.Valid() {
		var problems []string
		for _, e := range result.Errors() {
			problems = append(problems, e.String())
		}
		return nil, errors.Errorf("invalid manifest: %s", strings.Join(problems, "; "))
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "decoding manifest")
	}
	seen := make(map[string]bool)
	for _, impl := range m {
		if seen[impl.Name] {
			return nil, errors.Errorf("duplicate implementation name %q", impl.Name)
		}
		seen[impl.Name] = true
	}
	return m, nil
}
