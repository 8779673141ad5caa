package csrf

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
)

// DefaultAlgorithm is the cipher used when Config.EncryptAlgorithm is empty.
const DefaultAlgorithm = "AES-CBC"

// IVSize is the length in bytes of the per-token initialization vector.
const IVSize = 16

var (
	ErrUnknownAlgorithm = errors.New("csrf: unknown encryption algorithm")

	// ErrMalformedToken and ErrDecrypt are only reported through Decrypt and
	// the debug log; clients always see ErrBadToken.
	ErrMalformedToken = errors.New("csrf: malformed token")
	ErrDecrypt        = errors.New("csrf: token decryption failed")
)

// algorithm is a block cipher mode keyed by a shared AES block.
type algorithm struct {
	name    string
	jwkName string
	seal    func(block cipher.Block, iv, plaintext []byte) ([]byte, error)
	open    func(block cipher.Block, iv, ciphertext []byte) ([]byte, error)
}

var algorithms = []algorithm{
	{name: "AES-CBC", jwkName: "A256CBC", seal: sealCBC, open: openCBC},
	{name: "AES-GCM", jwkName: "A256GCM", seal: sealGCM, open: openGCM},
}

// lookupAlgorithm accepts the Web Crypto name ("AES-CBC"), the OpenSSL style
// name ("aes-256-cbc") and the JWK alg value ("A256CBC"), case-insensitively.
func lookupAlgorithm(name string) (algorithm, error) {
	n := strings.ToUpper(strings.TrimSpace(name))
	for _, a := range algorithms {
		mode := strings.TrimPrefix(a.name, "AES-")
		if n == a.name || n == a.jwkName || n == "AES-256-"+mode {
			return a, nil
		}
	}
	return algorithm{}, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Codec turns secrets into tokens and back. It holds no per-request state and
// is safe for concurrent use.
type Codec struct {
	block cipher.Block
	alg   algorithm
}

// NewCodec returns a Codec for the given key and algorithm name. An empty
// name selects DefaultAlgorithm.
func NewCodec(key *Key, algorithmName string) (*Codec, error) {
	if key == nil {
		return nil, fmt.Errorf("%w: nil key", ErrInvalidKey)
	}
	if algorithmName == "" {
		algorithmName = DefaultAlgorithm
	}
	alg, err := lookupAlgorithm(algorithmName)
	if err != nil {
		return nil, err
	}
	if key.alg != "" && key.alg != alg.name {
		return nil, fmt.Errorf("%w: key is for %s, configured %s", ErrInvalidKey, key.alg, alg.name)
	}
	block, err := aes.NewCipher(key.raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidKey, err)
	}
	return &Codec{block: block, alg: alg}, nil
}

// Algorithm reports the canonical name of the cipher in use.
func (c *Codec) Algorithm() string {
	return c.alg.name
}

// Mint encrypts secret under a fresh IV and returns "base64(iv):base64(ct)".
// Every call yields a different token for the same secret.
func (c *Codec) Mint(secret string) (string, error) {
	iv := make([]byte, IVSize)
	if _, err := rand.Read(iv); err != nil {
		return "", fmt.Errorf("csrf: failed to generate iv: %w", err)
	}
	ct, err := c.alg.seal(c.block, iv, []byte(secret))
	if err != nil {
		return "", fmt.Errorf("csrf: failed to encrypt secret: %w", err)
	}
	return encodeToken(iv, ct), nil
}

// Decrypt recovers the secret a token was minted from. The error is
// ErrMalformedToken or ErrDecrypt and is meant for diagnostics only.
func (c *Codec) Decrypt(token string) (string, error) {
	iv, ct, err := decodeToken(token)
	if err != nil {
		return "", err
	}
	plain, err := c.alg.open(c.block, iv, ct)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecrypt, err)
	}
	return string(plain), nil
}

// Verify reports whether token decrypts to exactly secret. It never panics
// and treats every decoding or decryption failure as a mismatch.
func (c *Codec) Verify(secret, token string) bool {
	plain, err := c.Decrypt(token)
	if err != nil {
		return false
	}
	return c.equal(plain, secret)
}

func (c *Codec) equal(plain, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(plain), []byte(secret)) == 1
}

func sealCBC(block cipher.Block, iv, plaintext []byte) ([]byte, error) {
	padded := pkcs7Pad(plaintext, block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, padded)
	return out, nil
}

func openCBC(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	bs := block.BlockSize()
	if len(ciphertext) == 0 || len(ciphertext)%bs != 0 {
		return nil, errors.New("ciphertext is not a multiple of the block size")
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return pkcs7Unpad(out, bs)
}

func pkcs7Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	return append(bytes.Clone(b), bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(b []byte, blockSize int) ([]byte, error) {
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize || n > len(b) {
		return nil, errors.New("invalid padding")
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, errors.New("invalid padding")
		}
	}
	return b[:len(b)-n], nil
}

func sealGCM(block cipher.Block, iv, plaintext []byte) ([]byte, error) {
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, iv, plaintext, nil), nil
}

func openGCM(block cipher.Block, iv, ciphertext []byte) ([]byte, error) {
	aead, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, iv, ciphertext, nil)
}
