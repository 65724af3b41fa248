package core

import "encoding/base64"

// EncodeUID turns a primary key into the opaque, URL-safe identifier used in
// password-reset links.
func EncodeUID(pk string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(pk))
}

// DecodeUID recovers a primary key from its opaque identifier.
func DecodeUID(uid string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", ErrInvalidResetID
	}
	return string(raw), nil
}
