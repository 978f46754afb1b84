package issuertests

import (
	"github.com/vc-interop/issuer-contract-tests/fixtures"
	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

var subjectRules = []Rule{
	{`credential MUST have property "credentialSubject".`, DoSubjectRequiredTest},
	{`"credential.credentialSubject" MUST be an object.`, DoSubjectObjectTest},
}

func DoSubjectRequiredTest(t *T) {
	c := t.NewCredential(fixtures.Delete(servicedef.PropertyCredentialSubject))
	t.RequireRejected(t.IssueCredential(c), `credential without "credentialSubject"`)
}

func DoSubjectObjectTest(t *T) {
	c := t.NewCredential(fixtures.Set(servicedef.PropertyCredentialSubject, []interface{}{nil, true, 4}))
	t.ExpectRejected(t.IssueCredential(c), `"credentialSubject" set to an array`)

	c = t.NewCredential(fixtures.Set(servicedef.PropertyCredentialSubject, "did:example:subject"))
	t.ExpectRejected(t.IssueCredential(c), `"credentialSubject" set to a string`)
}
