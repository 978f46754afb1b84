package issuertests

import (
	"context"

	"github.com/vc-interop/issuer-contract-tests/fixtures"
	"github.com/vc-interop/issuer-contract-tests/framework"
	"github.com/vc-interop/issuer-contract-tests/issuer"
	"github.com/vc-interop/issuer-contract-tests/oracle"
	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

type environment struct {
	ctx      context.Context
	client   *issuer.Client
	fixtures *fixtures.Factory
	profile  Profile
}

// T represents a test or subtest in the issuer test suite.
//
// It implements the same basic functionality as Go's testing.T, in an environment outside of
// the Go test runner, with debug logging provided by the lower-level framework package.
//
// Every T belongs to one implementation under test, and has methods for building credentials,
// sending them to that implementation's issuer, and checking the outcome.
//
// To make test assertions, you can use the assert and require packages, passing the *T as if it
// were a *testing.T.
type T struct {
	context *framework.Context
	env     *environment
	name    string
	target  *issuer.Target
}

// Errorf is called by assertions to log a test failure. It does not cause an immediate exit.
func (t *T) Errorf(format string, args ...interface{}) {
	t.context.Errorf(format, args...)
}

// FailNow is called by assertions when a test should fail and immediately exit. The methods in
// the require package call FailNow.
func (t *T) FailNow() {
	t.context.FailNow()
}

// Run runs a subtest. This is equivalent to the Run method of testing.T.
func (t *T) Run(name string, action func(*T)) framework.TestResult {
	return t.context.Run(name, func(c *framework.Context) {
		action(&T{context: c, env: t.env, name: t.name, target: t.target})
	})
}

// Debug logs some debug output for the test. The output will be passed to the test logger at
// the end of the test.
func (t *T) Debug(format string, args ...interface{}) {
	t.context.Debug(format, args...)
}

// Profile returns the protocol profile of this test run.
func (t *T) Profile() Profile {
	return t.env.profile
}

// NewCredential builds a valid credential for the issuer under test, then applies overrides.
func (t *T) NewCredential(overrides ...fixtures.Override) servicedef.Credential {
	return t.env.fixtures.Build(t.target.Descriptor.ID, overrides...)
}

// requestOptions merges the profile's options with the issuer's own.
func (t *T) requestOptions() map[string]interface{} {
	if len(t.env.profile.Options) == 0 && len(t.target.Descriptor.Options) == 0 {
		return nil
	}
	ret := make(map[string]interface{})
	for k, v := range t.env.profile.Options {
		ret[k] = v
	}
	for k, v := range t.target.Descriptor.Options {
		ret[k] = v
	}
	return ret
}

// IssueCredential sends a well-formed issue request for credential.
func (t *T) IssueCredential(credential servicedef.Credential) issuer.Outcome {
	return t.Issue(servicedef.IssueCredentialRequest{Credential: credential, Options: t.requestOptions()})
}

// Issue sends any request body to the issuer under test. If the issuer cannot be called
// because of its configuration, the test fails and immediately exits.
func (t *T) Issue(body interface{}) issuer.Outcome {
	t.Debug("sending issue request to %s (%s)", t.name, t.target.Descriptor.Endpoint)
	outcome, err := t.env.client.Issue(t.env.ctx, t.target, body)
	if err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
	switch {
	case outcome.Result != nil:
		t.Debug("issuer responded with status %d", outcome.Result.Status)
	case outcome.Error != nil:
		t.Debug("issuer request failed: %s", outcome.Error)
		if outcome.Error.Body != "" {
			t.Debug("response body: %s", outcome.Error.Body)
		}
	}
	return outcome
}

// ExpectRejected checks that the issuer rejected a request as invalid input. On failure the
// test continues, so that several cases can be checked in one test.
func (t *T) ExpectRejected(outcome issuer.Outcome, description string) {
	if err := oracle.ExpectRejection(outcome); err != nil {
		t.Errorf("%s: %s", description, err)
	}
}

// RequireRejected is like ExpectRejected, but the test exits immediately on failure.
func (t *T) RequireRejected(outcome issuer.Outcome, description string) {
	t.ExpectRejected(outcome, description)
	if t.context.Failed() {
		t.FailNow()
	}
}

// RequireIssued checks that the issuer issued a credential.
func (t *T) RequireIssued(outcome issuer.Outcome) {
	if err := oracle.ExpectIssuedCredential(outcome, t.env.profile.oracleOptions()); err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
}

// RequireStatus checks that the request succeeded with a specific status.
func (t *T) RequireStatus(outcome issuer.Outcome, status int) {
	if err := oracle.ExpectStatus(outcome, status); err != nil {
		t.Errorf("%s", err)
		t.FailNow()
	}
}
