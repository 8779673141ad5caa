package csrf

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strings"
)

// tokenSeparator joins the IV and ciphertext halves of a token. It is not
// part of the standard base64 alphabet.
const tokenSeparator = ":"

func encodeToken(iv, ciphertext []byte) string {
	return base64.StdEncoding.EncodeToString(iv) + tokenSeparator + base64.StdEncoding.EncodeToString(ciphertext)
}

// decodeToken splits on the first separator and decodes both halves.
func decodeToken(token string) (iv, ciphertext []byte, err error) {
	ivPart, ctPart, ok := strings.Cut(token, tokenSeparator)
	if !ok || ivPart == "" || ctPart == "" {
		return nil, nil, fmt.Errorf("%w: missing iv or ciphertext", ErrMalformedToken)
	}
	iv, err = base64.StdEncoding.DecodeString(ivPart)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: iv: %w", ErrMalformedToken, err)
	}
	if len(iv) != IVSize {
		return nil, nil, fmt.Errorf("%w: iv is %d bytes", ErrMalformedToken, len(iv))
	}
	ciphertext, err = base64.StdEncoding.DecodeString(ctPart)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: ciphertext: %w", ErrMalformedToken, err)
	}
	return iv, ciphertext, nil
}

// extractClientToken reads the token the client echoed back. Only the header
// is consulted; a missing header yields "" which never verifies.
func extractClientToken(r *http.Request, headerName string) string {
	return strings.TrimSpace(r.Header.Get(headerName))
}
