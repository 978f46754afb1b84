package zcap

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

// ErrMalformedCapability means a configured capability could not be parsed as a JSON object
// with an id.
var ErrMalformedCapability = errors.New("malformed capability")

const rootCapabilityPrefix = "urn:zcap:root:"

// Capability is an authorization capability. A root capability is referenced by id only; a
// delegated capability carries the full JSON document.
type Capability struct {
	ID       string
	Document map[string]interface{}
}

// IsRoot reports whether the capability is a root capability reference.
func (c Capability) IsRoot() bool {
	return c.Document == nil
}

// RootCapability returns the root capability for a target URL.
func RootCapability(target string) Capability {
	return Capability{ID: rootCapabilityPrefix + encodeURIComponent(target)}
}

// ParseCapability accepts a capability as it may appear in configuration: a JSON string,
// raw JSON bytes, or an already decoded object. The object must have a non-empty "id".
func ParseCapability(value interface{}) (Capability, error) {
	var doc map[string]interface{}
	switch v := value.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &doc); err != nil {
			return Capability{}, errors.Wrapf(ErrMalformedCapability, "not a JSON object: %s", err)
		}
	case []byte:
		if err := json.Unmarshal(v, &doc); err != nil {
			return Capability{}, errors.Wrapf(ErrMalformedCapability, "not a JSON object: %s", err)
		}
	case json.RawMessage:
		if err := json.Unmarshal(v, &doc); err != nil {
			return Capability{}, errors.Wrapf(ErrMalformedCapability, "not a JSON object: %s", err)
		}
	case map[string]interface{}:
		doc = v
	default:
		return Capability{}, errors.Wrapf(ErrMalformedCapability, "unsupported type %T", value)
	}
	if doc == nil {
		return Capability{}, errors.Wrap(ErrMalformedCapability, "null capability")
	}
	id, _ := doc["id"].(string)
	if id == "" {
		return Capability{}, errors.Wrap(ErrMalformedCapability, `missing "id"`)
	}
	if strings.HasPrefix(id, rootCapabilityPrefix) {
		return Capability{ID: id}, nil
	}
	return Capability{ID: id, Document: doc}, nil
}

// headerValue renders the capability-invocation header for this capability.
func (c Capability) headerValue(action string) (string, error) {
	if c.IsRoot() {
		return `zcap id="` + c.ID + `",action="` + action + `"`, nil
	}
	encoded, err := compressCapability(c.Document)
	if err != nil {
		return "", err
	}
	return `zcap capability="` + encoded + `",action="` + action + `"`, nil
}

func compressCapability(doc map[string]interface{}) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "marshalling capability")
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return "", errors.Wrap(err, "compressing capability")
	}
	if err := zw.Close(); err != nil {
		return "", errors.Wrap(err, "compressing capability")
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// encodeURIComponent escapes everything except the unreserved characters A-Z a-z 0-9 - _ . ! ~ * ' ( )
func encodeURIComponent(s string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
	return strings.NewReplacer("%21", "!", "%27", "'", "%28", "(", "%29", ")", "%2A", "*").Replace(escaped)
}
