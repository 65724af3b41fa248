package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/morgante/graph-auth/core"
)

const (
	DefaultResetTokenMaxAge = 3 * 24 * time.Hour
	resetTokenHashLength    = 20 // bytes of the HMAC kept in the token
)

// ResetTokens issues and checks one-time password-reset tokens.
//
// A token is "<base36 timestamp>-<truncated hmac>" where the HMAC covers the
// user's ID, password hash, and last login together with the timestamp. Any
// credential change rotates the fingerprint, so a token stops verifying the
// moment it is used to set a new password.
type ResetTokens struct {
	secret []byte
	maxAge time.Duration
	now    func() time.Time
}

var _ core.ResetTokenGenerator = (*ResetTokens)(nil)

func NewResetTokens(secret string, maxAge time.Duration) *ResetTokens {
	if maxAge <= 0 {
		maxAge = DefaultResetTokenMaxAge
	}
	return &ResetTokens{
		secret: []byte(secret),
		maxAge: maxAge,
		now:    time.Now,
	}
}

// Make issues a reset token bound to the user's current credential state.
func (r *ResetTokens) Make(u *core.User) (string, error) {
	ts := r.now().Unix()
	return fmt.Sprintf("%s-%s", strconv.FormatInt(ts, 36), r.signature(u, ts)), nil
}

// Check reports whether token was issued for the user's current credential
// state and has not outlived the configured max age.
func (r *ResetTokens) Check(u *core.User, token string) bool {
	if u == nil || token == "" {
		return false
	}

	tsPart, sig, found := strings.Cut(token, "-")
	if !found {
		return false
	}
	ts, err := strconv.ParseInt(tsPart, 36, 64)
	if err != nil {
		return false
	}

	expected := r.signature(u, ts)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return false
	}

	issued := time.Unix(ts, 0)
	now := r.now()
	if issued.After(now) {
		return false
	}
	return now.Sub(issued) <= r.maxAge
}

// signature fingerprints the parts of the user record that change on any
// credential update.
func (r *ResetTokens) signature(u *core.User, ts int64) string {
	var lastLogin string
	if u.LastLogin != nil {
		lastLogin = strconv.FormatInt(u.LastLogin.Unix(), 10)
	}

	mac := hmac.New(sha256.New, r.secret)
	fmt.Fprintf(mac, "%s\x00%s\x00%s\x00%d", u.ID, u.PasswordHash, lastLogin, ts)
	sum := mac.Sum(nil)

	return base64.RawURLEncoding.EncodeToString(sum[:resetTokenHashLength])
}
