package zcap

import (
	"crypto/ed25519"
	"os"

	"github.com/TBD54566975/ssi-sdk/crypto"
	"github.com/TBD54566975/ssi-sdk/did/key"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
	"github.com/pkg/errors"
)

var (
	// ErrSeedNotFound means the named secret seed is not present in the SeedSource.
	ErrSeedNotFound = errors.New("secret key seed not found")

	// ErrInvalidSeed means the seed is present but cannot be decoded into 32 bytes.
	ErrInvalidSeed = errors.New("invalid secret key seed")
)

// SeedSource resolves a reference to a secret key seed, such as the name of an environment
// variable, into the encoded seed.
type SeedSource interface {
	LookupSeed(ref string) (string, bool)
}

// EnvSeedSource reads seeds from environment variables.
type EnvSeedSource struct{}

func (EnvSeedSource) LookupSeed(ref string) (string, bool) {
	v, ok := os.LookupEnv(ref)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// StaticSeedSource is a fixed set of seeds, keyed by reference.
type StaticSeedSource map[string]string

func (s StaticSeedSource) LookupSeed(ref string) (string, bool) {
	v, ok := s[ref]
	return v, ok && v != ""
}

// KeyPair is an Ed25519 key derived from a seed, together with its did:key identifiers.
type KeyPair struct {
	PublicKey  ed25519.PublicKey
	PrivateKey ed25519.PrivateKey

	// Controller is the did:key DID of the public key.
	Controller string

	// KeyID is the verification method used to sign capability invocations.
	KeyID string
}

// DecodeSeed decodes a secret key seed. The expected form is a multibase-encoded identity
// multihash of 32 bytes, such as "z1Aa..."; a multibase string of exactly 32 raw bytes is
// also accepted.
func DecodeSeed(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, errors.Wrap(ErrInvalidSeed, "empty seed")
	}
	_, data, err := multibase.Decode(encoded)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSeed, "multibase: %s", err)
	}
	if decoded, err := multihash.Decode(data); err == nil && decoded.Code == multihash.IDENTITY {
		data = decoded.Digest
	}
	if len(data) != ed25519.SeedSize {
		return nil, errors.Wrapf(ErrInvalidSeed, "expected %d bytes, got %d", ed25519.SeedSize, len(data))
	}
	return data, nil
}

// EncodeSeed is the inverse of DecodeSeed.
func EncodeSeed(seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", errors.Wrapf(ErrInvalidSeed, "expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	mh, err := multihash.Encode(seed, multihash.IDENTITY)
	if err != nil {
		return "", errors.Wrap(err, "encoding identity multihash")
	}
	return multibase.Encode(multibase.Base58BTC, mh)
}

// DeriveKeyPair derives the Ed25519 key for a seed. The same seed always produces the same
// key and identifiers.
func DeriveKeyPair(seed []byte) (*KeyPair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, errors.Wrapf(ErrInvalidSeed, "expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	privateKey := ed25519.NewKeyFromSeed(seed)
	publicKey := privateKey.Public().(ed25519.PublicKey)

	didKey, err := key.CreateDIDKey(crypto.Ed25519, publicKey)
	if err != nil {
		return nil, errors.Wrap(err, "creating did:key")
	}
	doc, err := didKey.Expand()
	if err != nil {
		return nil, errors.Wrap(err, "expanding did:key")
	}
	if len(doc.VerificationMethod) == 0 {
		return nil, errors.Errorf("did:key<%s> has no verification method", didKey.String())
	}

	return &KeyPair{
		PublicKey:  publicKey,
		PrivateKey: privateKey,
		Controller: didKey.String(),
		KeyID:      doc.VerificationMethod[0].ID,
	}, nil
}
