package issuertests

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/vc-interop/issuer-contract-tests/oracle"
)

const DefaultProfile = "vc-api"

// Profile is a variant of the issuance protocol. Profiles differ in which issuers they select
// and in the few behaviors the protocol leaves open.
type Profile struct {
	Name string

	// Tag selects the issuer of each implementation.
	Tag string

	// IssuerAssigned means the service fills in a missing issuer instead of rejecting the
	// credential.
	IssuerAssigned bool

	// IssuerShapes are the accepted forms of the issuer on issued credentials.
	IssuerShapes oracle.IssuerShape

	// Options are sent with every request.
	Options map[string]interface{}
}

var profiles = map[string]Profile{
	"vc-api": {
		Name:         "vc-api",
		Tag:          "VC-API",
		IssuerShapes: oracle.AnyIssuerShape,
	},
	"vc-api-issuer-assigned": {
		Name:           "vc-api-issuer-assigned",
		Tag:            "VC-API",
		IssuerAssigned: true,
		IssuerShapes:   oracle.AnyIssuerShape,
	},
	"vc-api-object-issuer": {
		Name:         "vc-api-object-issuer",
		Tag:          "VC-API",
		IssuerShapes: oracle.IssuerObject,
	},
}

// LookupProfile returns a built-in profile by name.
func LookupProfile(name string) (Profile, error) {
	if name == "" {
		name = DefaultProfile
	}
	p, ok := profiles[name]
	if !ok {
		return Profile{}, errors.Errorf("unknown profile %q (known profiles: %v)", name, ProfileNames())
	}
	return p, nil
}

// ProfileNames lists the built-in profiles.
func ProfileNames() []string {
	ret := make([]string, 0, len(profiles))
	for name := range profiles {
		ret = append(ret, name)
	}
	sort.Strings(ret)
	return ret
}

func (p Profile) oracleOptions() oracle.Options {
	return oracle.Options{IssuerShapes: p.IssuerShapes}
}
