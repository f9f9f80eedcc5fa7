package acmeutils

import (
	"encoding/base64"
	"strings"
)

// DecodeAutoBase64 decodes s, which may be standard or URL-safe base64,
// padded or unpadded: "+/" characters are normalized to "-_", missing
// padding is added, then the result is decoded as URL-safe base64. This
// accommodates the range of encodings EAB HMAC key material is distributed
// in by CAs.
func DecodeAutoBase64(s string) ([]byte, error) {
	s = strings.NewReplacer("+", "-", "/", "_").Replace(s)
	if rem := len(s) % 4; rem != 0 {
		s += strings.Repeat("=", 4-rem)
	}
	return base64.URLEncoding.DecodeString(s)
}
