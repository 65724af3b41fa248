package schema

import (
	"encoding/base64"
	"errors"
	"strings"
)

const globalIDPrefix = "User:"

// EncodeGlobalID turns a primary key into the opaque identifier exposed as
// the id field.
func EncodeGlobalID(pk string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(globalIDPrefix + pk))
}

// DecodeGlobalID recovers the primary key from an opaque identifier.
// Any identifier that does not decode to a user key is an error; callers
// treat decode failures as a missing record.
func DecodeGlobalID(id string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		return "", errors.New("malformed global id")
	}
	decoded := string(raw)
	if !strings.HasPrefix(decoded, globalIDPrefix) {
		return "", errors.New("global id does not name a user")
	}
	return strings.TrimPrefix(decoded, globalIDPrefix), nil
}
