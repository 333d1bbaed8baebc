package user

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/trezcool/mahudhurio/core"
)

// Password reset tokens are "<base32 day-stamp>-<hmac signature>". The
// signature covers the user's id, password hash and last login, so a token
// dies as soon as the password changes or the user signs in.

var (
	salt    = []byte("mahudhurio.core.user.token_gen")
	NowFunc = time.Now // mockable

	errInvalidToken = errors.New("invalid token")
	errTokenExpired = errors.New("token expired")
)

var b32 = base32.StdEncoding.WithPadding(base32.NoPadding)

// EncodeUID base64 encodes given User ID
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

// MakeToken generates a password reset token for a given User.
func MakeToken(usr User) (string, error) {
	return tokenAtDay(usr, daysSinceEpoch(NowFunc()))
}

// verifyToken checks that a password reset token for a given User is valid
// and within the configured timeout.
func verifyToken(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if token == "" || len(parts) < 2 {
		return errInvalidToken
	}

	raw, err := b32.DecodeString(parts[0])
	if err != nil {
		return errInvalidToken
	}
	day, err := strconv.Atoi(string(raw))
	if err != nil {
		return errInvalidToken
	}

	// recompute and compare so tampering with either part invalidates
	expected, err := tokenAtDay(usr, day)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(token)) == 0 {
		return errInvalidToken
	}

	if (daysSinceEpoch(time.Now()) - day) > int(core.Conf.PasswordResetTimeoutDelta/(24*time.Hour)) {
		return errTokenExpired
	}
	return nil
}

func tokenAtDay(usr User, day int) (string, error) {
	stamp := b32.EncodeToString([]byte(strconv.Itoa(day)))
	sig, err := sign(fingerprint(usr, day))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", stamp, sig), nil
}

func daysSinceEpoch(t time.Time) int {
	epoch := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(epoch).Hours() / 24))
}

func sign(val []byte) (string, error) {
	key := sha256.Sum256(append(salt, core.Conf.SecretKey...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func fingerprint(usr User, day int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.PasswordHash)
	if !usr.LastLogin.IsZero() {
		val.WriteString(usr.LastLogin.String())
	}
	val.WriteString(strconv.Itoa(day))
	return val.Bytes()
}
