package issuertests

import (
	"github.com/vc-interop/issuer-contract-tests/fixtures"
	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

var issuerRules = []Rule{
	{`credential MUST have property "issuer".`, DoIssuerRequiredTest},
	{`"credential.issuer" MUST be a string or an object with an id.`, DoIssuerShapeTest},
}

func DoIssuerRequiredTest(t *T) {
	c := t.NewCredential(fixtures.Delete(servicedef.PropertyIssuer))
	outcome := t.IssueCredential(c)
	if t.Profile().IssuerAssigned {
		t.Debug("profile %s: the service assigns the issuer", t.Profile().Name)
		t.RequireIssued(outcome)
		return
	}
	t.RequireRejected(outcome, `credential without "issuer"`)
}

func DoIssuerShapeTest(t *T) {
	c := t.NewCredential(fixtures.Set(servicedef.PropertyIssuer, 4))
	t.ExpectRejected(t.IssueCredential(c), `"issuer" set to 4`)

	c = t.NewCredential(fixtures.Set(servicedef.PropertyIssuer, map[string]interface{}{}))
	t.ExpectRejected(t.IssueCredential(c), `"issuer" set to an object without an id`)
}
