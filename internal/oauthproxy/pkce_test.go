package oauthproxy

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePKCE(t *testing.T) {
	verifier := "this-is-a-valid-looking-code-verifier-value-1234567890"
	sum := sha256.Sum256([]byte(verifier))
	s256Challenge := base64.RawURLEncoding.EncodeToString(sum[:])

	t.Run("no challenge stored means no verification required", func(t *testing.T) {
		assert.NoError(t, validatePKCE("", "", ""))
		assert.NoError(t, validatePKCE("anything", "", ""))
	})

	t.Run("missing verifier when challenge present is rejected", func(t *testing.T) {
		err := validatePKCE("", s256Challenge, "S256")
		assert.Error(t, err)
	})

	t.Run("malformed verifier format is rejected", func(t *testing.T) {
		err := validatePKCE("too-short", s256Challenge, "S256")
		assert.Error(t, err)
	})

	t.Run("S256 happy path", func(t *testing.T) {
		assert.NoError(t, validatePKCE(verifier, s256Challenge, "S256"))
	})

	t.Run("plain happy path", func(t *testing.T) {
		assert.NoError(t, validatePKCE(verifier, verifier, "plain"))
	})

	t.Run("empty method defaults to plain, not S256", func(t *testing.T) {
		assert.NoError(t, validatePKCE(verifier, verifier, ""))
		assert.Error(t, validatePKCE(verifier, s256Challenge, ""))
	})

	t.Run("mismatched challenge is rejected", func(t *testing.T) {
		err := validatePKCE(verifier, "not-the-right-challenge-value-long-enough-to-pass-format", "plain")
		assert.Error(t, err)
	})

	t.Run("unsupported method is rejected", func(t *testing.T) {
		err := validatePKCE(verifier, s256Challenge, "md5")
		assert.Error(t, err)
	})
}
