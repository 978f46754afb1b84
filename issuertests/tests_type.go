package issuertests

import (
	"github.com/vc-interop/issuer-contract-tests/fixtures"
	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

var typeRules = []Rule{
	{`credential MUST have property "type".`, DoTypeRequiredTest},
	{`"credential.type" MUST be an array.`, DoTypeArrayTest},
	{`"credential.type" items MUST be strings.`, DoTypeItemsTest},
	{`"credential.type" MUST contain "VerifiableCredential".`, DoTypeContainsVCTest},
}

func DoTypeRequiredTest(t *T) {
	c := t.NewCredential(fixtures.Delete(servicedef.PropertyType))
	t.RequireRejected(t.IssueCredential(c), `credential without "type"`)
}

func DoTypeArrayTest(t *T) {
	c := t.NewCredential(fixtures.Set(servicedef.PropertyType, 4))
	t.ExpectRejected(t.IssueCredential(c), `"type" set to 4`)

	c = t.NewCredential(fixtures.Set(servicedef.PropertyType, servicedef.VerifiableCredentialType))
	t.ExpectRejected(t.IssueCredential(c), `"type" set to a string`)
}

func DoTypeItemsTest(t *T) {
	c := t.NewCredential(fixtures.Set(servicedef.PropertyType,
		[]interface{}{2, nil, map[string]interface{}{"foo": true}, false}))
	t.RequireRejected(t.IssueCredential(c), `"type" of non-string items`)
}

func DoTypeContainsVCTest(t *T) {
	c := t.NewCredential(fixtures.Set(servicedef.PropertyType, []interface{}{"ExampleCredential"}))
	t.RequireRejected(t.IssueCredential(c), `"type" without "VerifiableCredential"`)
}
