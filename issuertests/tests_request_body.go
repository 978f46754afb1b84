package issuertests

import (
	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

var requestBodyRules = []Rule{
	{`Request body MUST have property "credential".`, DoMisnamedCredentialTest},
}

func DoMisnamedCredentialTest(t *T) {
	body := servicedef.MisnamedCredentialRequest{
		VerifiableCredential: t.NewCredential(),
		Options:              t.requestOptions(),
	}
	t.RequireRejected(t.Issue(body), `body with "verifiableCredential" instead of "credential"`)
}
