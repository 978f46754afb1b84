// Package servicedef defines the JSON bodies exchanged with issuer services under test.
package servicedef

import "github.com/goccy/go-json"

const (
	// BaseContext is the URI that must be the first element of a credential's "@context".
	BaseContext = "https://www.w3.org/2018/credentials/v1"

	// VerifiableCredentialType must appear in every credential's "type".
	VerifiableCredentialType = "VerifiableCredential"

	// DateFormat is the timestamp layout used for issuanceDate and expirationDate. It has
	// second precision and no fractional seconds.
	DateFormat = "2006-01-02T15:04:05Z"
)

// Property names of a credential.
const (
	PropertyContext           = "@context"
	PropertyID                = "id"
	PropertyType              = "type"
	PropertyIssuer            = "issuer"
	PropertyCredentialSubject = "credentialSubject"
	PropertyIssuanceDate      = "issuanceDate"
	PropertyExpirationDate    = "expirationDate"
	PropertyProof             = "proof"

	// PropertyVerifiableCredential wraps the credential in some response bodies.
	PropertyVerifiableCredential = "verifiableCredential"
)

// Credential is a JSON-LD credential as an untyped JSON object, so that tests can delete or
// corrupt any of its properties.
type Credential map[string]interface{}

// IssueCredentialRequest is the body of a request to an issue endpoint.
type IssueCredentialRequest struct {
	Credential Credential             `json:"credential"`
	Options    map[string]interface{} `json:"options,omitempty"`
}

// MisnamedCredentialRequest uses the wrong property name for the credential. A conforming
// issuer rejects it as invalid input.
type MisnamedCredentialRequest struct {
	VerifiableCredential Credential             `json:"verifiableCredential"`
	Options              map[string]interface{} `json:"options,omitempty"`
}

// IssueCredentialResponse is the wrapped form of a successful response. Some issuers return
// the credential itself instead.
type IssueCredentialResponse struct {
	VerifiableCredential json.RawMessage `json:"verifiableCredential"`
}
