package fixtures

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

var fixedTime = time.Date(2023, 8, 1, 12, 30, 45, 987654321, time.FixedZone("x", 3600))

func TestDefaultFactory(t *testing.T) {
	f, err := NewDefaultFactory(WithClock(func() time.Time { return fixedTime }))
	require.NoError(t, err)

	c := f.Build("did:example:issuer")
	assert.Equal(t, "did:example:issuer", c[servicedef.PropertyIssuer])
	assert.Equal(t, "2023-08-01T11:30:45Z", c[servicedef.PropertyIssuanceDate])
	assert.True(t, strings.HasPrefix(c[servicedef.PropertyID].(string), "urn:uuid:"))
	assert.Equal(t, []interface{}{servicedef.BaseContext}, c[servicedef.PropertyContext])
	assert.IsType(t, map[string]interface{}{}, c[servicedef.PropertyCredentialSubject])
}

func TestBuildNeverRepeatsIDs(t *testing.T) {
	f, err := NewDefaultFactory()
	require.NoError(t, err)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := f.Build("", Delete(servicedef.PropertyType))[servicedef.PropertyID].(string)
		require.False(t, seen[id], "duplicate id %s", id)
		seen[id] = true
	}
}

func TestBuildDoesNotAlias(t *testing.T) {
	template := servicedef.Credential{
		"@context":          []interface{}{servicedef.BaseContext},
		"type":              []interface{}{"VerifiableCredential"},
		"issuer":            map[string]interface{}{"id": "did:example:template", "name": "Template"},
		"credentialSubject": map[string]interface{}{"id": "did:example:subject"},
	}
	f, err := NewFactory(template)
	require.NoError(t, err)

	first := f.Build("did:example:one")
	first[servicedef.PropertyCredentialSubject].(map[string]interface{})["id"] = "changed"
	first[servicedef.PropertyContext] = 4

	second := f.Build("did:example:two")
	assert.Equal(t, "did:example:subject", second[servicedef.PropertyCredentialSubject].(map[string]interface{})["id"])
	assert.Equal(t, []interface{}{servicedef.BaseContext}, second[servicedef.PropertyContext])

	assert.Equal(t, "did:example:template", template["issuer"].(map[string]interface{})["id"])
	assert.Equal(t, map[string]interface{}{"id": "did:example:two", "name": "Template"}, second[servicedef.PropertyIssuer])
}

func TestBuildKeepsTemplateIssuerWhenEmpty(t *testing.T) {
	f, err := NewDefaultFactory()
	require.NoError(t, err)

	c := f.Build("")
	assert.Equal(t, "did:key:z6MkptjaoxjyKQFSqf1dHXswP6EayYhPQBYzprVCPmGBHz9S", c[servicedef.PropertyIssuer])
}

func TestOverrides(t *testing.T) {
	f, err := NewDefaultFactory(WithIDGenerator(func() string { return "urn:uuid:fixed" }))
	require.NoError(t, err)

	t.Run("delete", func(t *testing.T) {
		c := f.Build("did:example:issuer", Delete(servicedef.PropertyContext), Delete(servicedef.PropertyID))
		assert.NotContains(t, c, servicedef.PropertyContext)
		assert.NotContains(t, c, servicedef.PropertyID)
	})

	t.Run("type corruption", func(t *testing.T) {
		c := f.Build("did:example:issuer", Set(servicedef.PropertyType, 4),
			Set(servicedef.PropertyCredentialSubject, []interface{}{nil, true, 4}))
		assert.Equal(t, 4, c[servicedef.PropertyType])
		assert.Equal(t, []interface{}{nil, true, 4}, c[servicedef.PropertyCredentialSubject])
	})

	t.Run("dates", func(t *testing.T) {
		expires := fixedTime.AddDate(1, 0, 0)
		c := f.Build("did:example:issuer", IssuedAt(fixedTime), ExpiresAt(expires))
		assert.Equal(t, "2023-08-01T11:30:45Z", c[servicedef.PropertyIssuanceDate])
		assert.Equal(t, "2024-08-01T11:30:45Z", c[servicedef.PropertyExpirationDate])
	})
}

func TestNewFactoryRejectsNil(t *testing.T) {
	_, err := NewFactory(nil)
	assert.Error(t, err)
}

func TestNewFactoryFromFile(t *testing.T) {
	f, err := NewFactoryFromFile("testdata/validVC.json")
	require.NoError(t, err)
	assert.NotEmpty(t, f.Build("did:example:issuer"))

	_, err = NewFactoryFromFile("testdata/missing.json")
	assert.Error(t, err)
}
