// Package issuertests contains the issuer conformance rules and their supporting API.
//
// Infrastructure that is not specific to credential issuance, such as test contexts, filters
// and result collection, is in the lower-level framework package. Talking to issuers is done
// by the issuer package, and judging their responses by the oracle package.
package issuertests
