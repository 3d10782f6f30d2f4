package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/elimuhub/elimu/core"
)

// Password reset tokens are self-contained: a base32 day counter plus an HMAC
// over the user's mutable state, so changing the password or logging in
// invalidates any outstanding token without server-side storage.

var (
	salt       = []byte("elimu.core.user.token_gen")
	tokenEpoch = time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	b32        = base32.StdEncoding.WithPadding(base32.NoPadding)
	nowFunc    = time.Now // mockable

	secretKey                 []byte
	passwordResetTimeoutDelta time.Duration

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

func initTokenGen(conf *core.Config) {
	secretKey = conf.SecretKey
	passwordResetTimeoutDelta = conf.PasswordResetTimeoutDelta
}

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

// decodeUID base64 decodes given UID
func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// makeToken generates a password reset token for a given User.
func makeToken(usr User) string {
	return stampToken(usr, daysSinceEpoch(nowFunc()))
}

// verifyToken checks that a password reset token for a given User is valid
// and has not expired.
func verifyToken(usr User, token string) error {
	if token == "" {
		return errInvalidToken
	}
	dayPart, _, found := strings.Cut(token, "-")
	if !found {
		return errInvalidToken
	}

	raw, err := b32.DecodeString(dayPart)
	if err != nil {
		return errInvalidToken
	}
	day, err := strconv.Atoi(string(raw))
	if err != nil {
		return errInvalidToken
	}

	// recompute and compare; any tampering breaks the signature
	if subtle.ConstantTimeCompare([]byte(stampToken(usr, day)), []byte(token)) == 0 {
		return errInvalidToken
	}

	if daysSinceEpoch(time.Now())-day > int(passwordResetTimeoutDelta/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func stampToken(usr User, day int) string {
	return b32.EncodeToString([]byte(strconv.Itoa(day))) + "-" + signUserState(usr, day)
}

func daysSinceEpoch(t time.Time) int {
	return int(math.Ceil(t.Sub(tokenEpoch).Hours() / 24))
}

// signUserState HMACs the user's ID, password hash and last login together
// with the day counter.
func signUserState(usr User, day int) string {
	var state bytes.Buffer
	state.WriteString(usr.ID)
	state.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		state.WriteString(usr.LastLogin.String())
	}
	state.WriteString(strconv.Itoa(day))

	key := sha256.Sum256(append(salt, secretKey...))
	mac := hmac.New(sha256.New, key[:])
	mac.Write(state.Bytes())
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
