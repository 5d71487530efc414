package storage

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CheckCredential rejects an empty token or a JWT whose exp has passed.
// Opaque API keys that do not parse as JWTs are accepted as-is.
func CheckCredential(token string, now time.Time) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingCredential
	}
	if strings.Count(token, ".") != 2 {
		return nil
	}

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return nil
	}

	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil
	}
	if !now.Before(exp.Time) {
		return fmt.Errorf("%w at %s", ErrCredentialExpired, exp.Time.UTC().Format(time.RFC3339))
	}
	return nil
}
