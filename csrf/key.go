package csrf

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
)

// KeySize is the length in bytes of an encryption key (AES-256).
const KeySize = 32

// ErrInvalidKey is returned when key material cannot be imported.
var ErrInvalidKey = errors.New("csrf: invalid encryption key")

// Key is the process-wide symmetric key used to encrypt secrets into tokens.
// A Key is immutable once created and safe for concurrent use.
type Key struct {
	raw []byte
	alg string // canonical algorithm name from an imported JWK, if any
}

// GenerateKey returns a new random 256-bit key.
func GenerateKey() (*Key, error) {
	b := make([]byte, KeySize)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("csrf: failed to generate key: %w", err)
	}
	return &Key{raw: b}, nil
}

// NewKey wraps raw key material. The slice is copied.
func NewKey(raw []byte) (*Key, error) {
	if len(raw) != KeySize {
		return nil, fmt.Errorf("%w: want %d bytes, got %d", ErrInvalidKey, KeySize, len(raw))
	}
	return &Key{raw: slices.Clone(raw)}, nil
}

// JWK is the JSON Web Key representation of a symmetric key, the format used
// to move keys between processes (RFC 7517, "oct" key type).
type JWK struct {
	Kty    string   `json:"kty" yaml:"kty"`
	K      string   `json:"k" yaml:"k"`
	Alg    string   `json:"alg,omitempty" yaml:"alg,omitempty"`
	Ext    bool     `json:"ext,omitempty" yaml:"ext,omitempty"`
	KeyOps []string `json:"key_ops,omitempty" yaml:"key_ops,omitempty"`
}

// ParseJWK decodes a JSON Web Key document.
func ParseJWK(data []byte) (*Key, error) {
	var jwk JWK
	if err := json.Unmarshal(data, &jwk); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return jwk.Key()
}

// Key imports the key material. The alg member, when present, is checked
// later against the configured algorithm by New.
func (j JWK) Key() (*Key, error) {
	if j.Kty != "oct" {
		return nil, fmt.Errorf("%w: unsupported kty %q", ErrInvalidKey, j.Kty)
	}
	raw, err := base64.RawURLEncoding.DecodeString(j.K)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	k, err := NewKey(raw)
	if err != nil {
		return nil, err
	}
	if j.Alg != "" {
		alg, err := lookupAlgorithm(j.Alg)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
		}
		k.alg = alg.name
	}
	return k, nil
}

// JWK exports the key for the given algorithm name.
func (k *Key) JWK(algorithm string) (JWK, error) {
	alg, err := lookupAlgorithm(algorithm)
	if err != nil {
		return JWK{}, err
	}
	return JWK{
		Kty:    "oct",
		K:      base64.RawURLEncoding.EncodeToString(k.raw),
		Alg:    alg.jwkName,
		Ext:    true,
		KeyOps: []string{"encrypt", "decrypt"},
	}, nil
}

// MarshalJSON exports the key as an AES-CBC JSON Web Key.
func (k *Key) MarshalJSON() ([]byte, error) {
	jwk, err := k.JWK(DefaultAlgorithm)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jwk)
}

// String hides the key material from logs and fmt verbs.
func (k *Key) String() string {
	return "csrf.Key(REDACTED)"
}
