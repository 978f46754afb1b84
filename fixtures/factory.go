// Package fixtures builds the credentials that are sent to issuers under test.
package fixtures

import (
	"embed"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

//go:embed testdata/validVC.json
var templates embed.FS

const defaultTemplatePath = "testdata/validVC.json"

// Override changes a freshly built credential. Overrides run after the id, issuer and
// issuanceDate have been stamped, so they can also remove or corrupt those.
type Override func(servicedef.Credential)

// Factory produces independent copies of a credential template.
type Factory struct {
	template []byte
	now      func() time.Time
	newID    func() string
}

// Option configures a Factory.
type Option func(*Factory)

// WithClock replaces the time source used for issuanceDate.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) {
		f.now = now
	}
}

// WithIDGenerator replaces the generator of credential ids.
func WithIDGenerator(newID func() string) Option {
	return func(f *Factory) {
		f.newID = newID
	}
}

// NewFactory creates a Factory from a template credential.
func NewFactory(template servicedef.Credential, opts ...Option) (*Factory, error) {
	if template == nil {
		return nil, errors.New("template cannot be nil")
	}
	data, err := json.Marshal(template)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling credential template")
	}
	f := &Factory{
		template: data,
		now:      time.Now,
		newID:    NewCredentialID,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// NewDefaultFactory creates a Factory from the embedded valid credential.
func NewDefaultFactory(opts ...Option) (*Factory, error) {
	data, err := templates.ReadFile(defaultTemplatePath)
	if err != nil {
		return nil, errors.Wrap(err, "reading embedded template")
	}
	return newFactoryFromJSON(data, opts...)
}

// NewFactoryFromFile creates a Factory from a credential stored as a JSON file.
func NewFactoryFromFile(path string, opts ...Option) (*Factory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading template: %s", path)
	}
	return newFactoryFromJSON(data, opts...)
}

func newFactoryFromJSON(data []byte, opts ...Option) (*Factory, error) {
	var template servicedef.Credential
	if err := json.Unmarshal(data, &template); err != nil {
		return nil, errors.Wrap(err, "parsing credential template")
	}
	return NewFactory(template, opts...)
}

// NewCredentialID returns a globally unique URN for a credential.
func NewCredentialID() string {
	return "urn:uuid:" + uuid.NewString()
}

// Build returns a new copy of the template with a fresh id, the given issuer and a current
// issuanceDate, then applies the overrides in order. An empty issuerID keeps the template's
// issuer. The result shares no memory with the template or with earlier results.
func (f *Factory) Build(issuerID string, overrides ...Override) servicedef.Credential {
	var c servicedef.Credential
	if err := json.Unmarshal(f.template, &c); err != nil {
		// the template was produced by json.Marshal in NewFactory
		panic(errors.Wrap(err, "template is no longer valid JSON"))
	}

	c[servicedef.PropertyID] = f.newID()
	if issuerID != "" {
		setIssuer(c, issuerID)
	}
	c[servicedef.PropertyIssuanceDate] = FormatDate(f.now())

	for _, o := range overrides {
		o(c)
	}
	return c
}

func setIssuer(c servicedef.Credential, issuerID string) {
	if existing, ok := c[servicedef.PropertyIssuer].(map[string]interface{}); ok {
		existing[servicedef.PropertyID] = issuerID
		return
	}
	c[servicedef.PropertyIssuer] = issuerID
}

// FormatDate formats a time in UTC with second precision.
func FormatDate(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(servicedef.DateFormat)
}

// Delete removes a property.
func Delete(property string) Override {
	return func(c servicedef.Credential) {
		delete(c, property)
	}
}

// Set replaces a property with any value, including values of the wrong type.
func Set(property string, value interface{}) Override {
	return func(c servicedef.Credential) {
		c[property] = value
	}
}

// IssuedAt sets issuanceDate.
func IssuedAt(t time.Time) Override {
	return Set(servicedef.PropertyIssuanceDate, FormatDate(t))
}

// ExpiresAt sets expirationDate.
func ExpiresAt(t time.Time) Override {
	return Set(servicedef.PropertyExpirationDate, FormatDate(t))
}
