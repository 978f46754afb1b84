// Package oracle decides whether an issuer's response conforms to the credential data model
// and the issuance protocol.
package oracle

import (
	"fmt"
	"strings"
	"time"

	"github.com/vc-interop/issuer-contract-tests/issuer"
	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

// Violation is a failed conformance check.
type Violation struct {
	Field  string
	Reason string
}

func (v *Violation) Error() string {
	if v.Field == "" {
		return v.Reason
	}
	return fmt.Sprintf("%s: %s", v.Field, v.Reason)
}

func violation(field, format string, args ...interface{}) *Violation {
	return &Violation{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IssuerShape is a form the issuer property of a credential may take.
type IssuerShape int

const (
	IssuerString IssuerShape = 1 << iota
	IssuerObject

	AnyIssuerShape = IssuerString | IssuerObject
)

func (s IssuerShape) String() string {
	switch s {
	case IssuerString:
		return "a string"
	case IssuerObject:
		return "an object with an id"
	default:
		return "a string or an object with an id"
	}
}

// Options adjusts the checks on issued credentials.
type Options struct {
	// IssuerShapes is the set of accepted issuer forms. Zero means AnyIssuerShape.
	IssuerShapes IssuerShape

	// ExpectedStatus is the status of a successful issuance. Zero means 201.
	ExpectedStatus int
}

func (o Options) issuerShapes() IssuerShape {
	if o.IssuerShapes == 0 {
		return AnyIssuerShape
	}
	return o.IssuerShapes
}

func (o Options) expectedStatus() int {
	if o.ExpectedStatus == 0 {
		return 201
	}
	return o.ExpectedStatus
}

// ExpectRejection checks that a request was refused as invalid input: an error response with
// status 400. A 401 means the harness never got past authorization, which is reported as its
// own failure rather than as a validation result.
func ExpectRejection(outcome issuer.Outcome) error {
	if outcome.Error == nil {
		status := "no status"
		if outcome.Result != nil {
			status = fmt.Sprintf("status %d", outcome.Result.Status)
		}
		return violation("", "expected the request to be rejected, but it succeeded with %s", status)
	}
	if !outcome.Error.Status.IsDefined() {
		return violation("", "expected status 400, but no response was received: %s", outcome.Error)
	}
	switch status := outcome.Error.Status.IntValue(); status {
	case 400:
		return nil
	case 401:
		return violation("", "expected status 400, but the request was not authorized (401)")
	default:
		return violation("", "expected status 400, got %d", status)
	}
}

// ExpectStatus checks that a request succeeded with the given status, without looking at the
// response body.
func ExpectStatus(outcome issuer.Outcome, status int) error {
	if outcome.Error != nil {
		return violation("", "expected status %d, but the request failed: %s", status, outcome.Error)
	}
	if outcome.Result == nil {
		return violation("", "expected a response")
	}
	if outcome.Result.Status != status {
		return violation("", "expected status %d, got %d", status, outcome.Result.Status)
	}
	return nil
}

// ExpectIssuedCredential checks that a request succeeded and returned a credential with the
// properties every issued credential must have.
func ExpectIssuedCredential(outcome issuer.Outcome, opts Options) error {
	if err := ExpectStatus(outcome, opts.expectedStatus()); err != nil {
		return err
	}
	if outcome.Data == nil {
		return violation("", "expected a response body")
	}
	vc, ok := ExtractCredential(outcome.Data)
	if !ok {
		return violation("", "response body is not a credential object")
	}

	if _, ok := vc[servicedef.PropertyContext]; !ok {
		return violation(servicedef.PropertyContext, "missing")
	}
	if err := checkType(vc); err != nil {
		return err
	}
	if id, ok := vc[servicedef.PropertyID].(string); !ok || id == "" {
		return violation(servicedef.PropertyID, "must be a string")
	}
	if _, ok := vc[servicedef.PropertyCredentialSubject].(map[string]interface{}); !ok {
		return violation(servicedef.PropertyCredentialSubject, "must be an object")
	}
	if err := checkIssuer(vc, opts.issuerShapes()); err != nil {
		return err
	}
	if _, ok := vc[servicedef.PropertyProof].(map[string]interface{}); !ok {
		return violation(servicedef.PropertyProof, "must be an object")
	}
	return nil
}

// ExtractCredential finds the credential in a response body, which may be the credential
// itself or an object wrapping it in "verifiableCredential".
func ExtractCredential(data interface{}) (servicedef.Credential, bool) {
	obj, ok := data.(map[string]interface{})
	if !ok {
		return nil, false
	}
	if wrapped, ok := obj[servicedef.PropertyVerifiableCredential].(map[string]interface{}); ok {
		return wrapped, true
	}
	return obj, true
}

// CheckCredential applies every data model rule for a credential, as sent to or returned by an
// issuer. The proof is not required.
func CheckCredential(vc servicedef.Credential, shapes IssuerShape) error {
	if err := checkContext(vc); err != nil {
		return err
	}
	if err := checkType(vc); err != nil {
		return err
	}
	if err := checkIssuer(vc, shapes); err != nil {
		return err
	}
	if _, ok := vc[servicedef.PropertyCredentialSubject].(map[string]interface{}); !ok {
		return violation(servicedef.PropertyCredentialSubject, "must be an object")
	}
	for _, property := range []string{servicedef.PropertyIssuanceDate, servicedef.PropertyExpirationDate} {
		if err := checkDate(vc, property); err != nil {
			return err
		}
	}
	return nil
}

func checkContext(vc servicedef.Credential) error {
	value, ok := vc[servicedef.PropertyContext]
	if !ok {
		return violation(servicedef.PropertyContext, "missing")
	}
	items, ok := value.([]interface{})
	if !ok || len(items) == 0 {
		return violation(servicedef.PropertyContext, "must be a non-empty array")
	}
	for i, item := range items {
		switch item.(type) {
		case string, map[string]interface{}:
		default:
			return violation(servicedef.PropertyContext, "item %d must be a string or an object", i)
		}
	}
	if items[0] != servicedef.BaseContext {
		return violation(servicedef.PropertyContext, "first item must be %q", servicedef.BaseContext)
	}
	return nil
}

func checkType(vc servicedef.Credential) error {
	value, ok := vc[servicedef.PropertyType]
	if !ok {
		return violation(servicedef.PropertyType, "missing")
	}
	items, ok := value.([]interface{})
	if !ok || len(items) == 0 {
		return violation(servicedef.PropertyType, "must be a non-empty array")
	}
	found := false
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return violation(servicedef.PropertyType, "item %d must be a string", i)
		}
		if s == servicedef.VerifiableCredentialType {
			found = true
		}
	}
	if !found {
		return violation(servicedef.PropertyType, "must contain %q", servicedef.VerifiableCredentialType)
	}
	return nil
}

func checkIssuer(vc servicedef.Credential, shapes IssuerShape) error {
	switch v := vc[servicedef.PropertyIssuer].(type) {
	case string:
		if shapes&IssuerString != 0 && v != "" {
			return nil
		}
	case map[string]interface{}:
		if id, ok := v[servicedef.PropertyID].(string); ok && id != "" && shapes&IssuerObject != 0 {
			return nil
		}
	case nil:
		if _, present := vc[servicedef.PropertyIssuer]; !present {
			return violation(servicedef.PropertyIssuer, "missing")
		}
	}
	return violation(servicedef.PropertyIssuer, "must be %s", shapes)
}

func checkDate(vc servicedef.Credential, property string) error {
	value, ok := vc[property]
	if !ok {
		return nil
	}
	s, ok := value.(string)
	if !ok {
		return violation(property, "must be a string")
	}
	if _, err := time.Parse(time.RFC3339, s); err != nil {
		return violation(property, "must be an RFC 3339 date-time: %s", err)
	}
	// time.Parse accepts fractional seconds even though the layout has none
	if strings.Contains(s, ".") {
		return violation(property, "must not have fractional seconds")
	}
	return nil
}
