package issuertests

import (
	"io"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/vc-interop/issuer-contract-tests/oracle"
	"github.com/vc-interop/issuer-contract-tests/servicedef"
)

// mockIssuer is an issue endpoint that validates credentials the way a conforming service
// would, and signs nothing.
type mockIssuer struct {
	issuerID       string
	assignIssuer   bool
	requireAuthz   bool
	wrapResponse   bool
	acceptAnything bool
}

func (m mockIssuer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if m.requireAuthz && r.Header.Get("Authorization") == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"message": "missing authorization"})
		return
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	var body map[string]interface{}
	if err := json.Unmarshal(data, &body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": "body is not JSON"})
		return
	}
	credential, ok := body["credential"].(map[string]interface{})
	if !ok && !m.acceptAnything {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": `"credential" is required`})
		return
	}
	if credential == nil {
		credential = map[string]interface{}{}
	}
	if _, hasIssuer := credential[servicedef.PropertyIssuer]; !hasIssuer && m.assignIssuer {
		credential[servicedef.PropertyIssuer] = m.issuerID
	}
	if !m.acceptAnything {
		if err := oracle.CheckCredential(credential, oracle.AnyIssuerShape); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"message": err.Error()})
			return
		}
	}

	credential[servicedef.PropertyProof] = map[string]interface{}{
		"type":               "Ed25519Signature2020",
		"verificationMethod": m.issuerID + "#key-1",
		"proofPurpose":       "assertionMethod",
		"proofValue":         "z3FXQjecWufY46yg5abdVZsXqLhxhueuSoZgNSARiKBk9czhSePTFehP8c3PGfb6a22gkfUKKFkerQR6G5tHhLLG7",
	}
	if m.wrapResponse {
		writeJSON(w, http.StatusCreated, map[string]interface{}{"verifiableCredential": credential})
		return
	}
	writeJSON(w, http.StatusCreated, credential)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	data, _ := json.Marshal(body)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
