package issuertests

import (
	"time"

	"github.com/vc-interop/issuer-contract-tests/fixtures"
)

var validCredentialRules = []Rule{
	{`a valid credential MUST be issued.`, DoValidCredentialTest},
}

var dateRules = []Rule{
	{`credential MAY have property "issuanceDate".`, DoIssuanceDateTest},
	{`credential MAY have property "expirationDate".`, DoExpirationDateTest},
}

func DoValidCredentialTest(t *T) {
	t.RequireIssued(t.IssueCredential(t.NewCredential()))
}

func DoIssuanceDateTest(t *T) {
	c := t.NewCredential(fixtures.IssuedAt(time.Now()))
	t.RequireStatus(t.IssueCredential(c), 201)
}

func DoExpirationDateTest(t *T) {
	c := t.NewCredential(fixtures.ExpiresAt(time.Now().AddDate(1, 0, 0)))
	t.RequireIssued(t.IssueCredential(c))
}
