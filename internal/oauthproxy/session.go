package oauthproxy

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

const sessionCookieName = "mcp_oauth_proxy_session"

// sessionPayload is the only thing this proxy's session cookie ever
// carries: the CSRF token minted for the consent form.
type sessionPayload struct {
	CSRFToken string `json:"csrf_token"`
}

// SessionManager issues and validates a signed, encrypted session
// cookie carrying the CSRF token between GET /consent and POST
// /consent/approve — there is no server-side session store, so the
// cookie itself is the session (grounded on gorilla/securecookie's
// standard signed-cookie pattern).
type SessionManager struct {
	codec *securecookie.SecureCookie
}

// NewSessionManager derives signing/encryption keys from secret. An
// empty secret yields random keys that last only for this process, so
// cookies do not survive a restart or validate on another instance; a
// short secret is repeated to key length and gives weaker keys. Neither
// case is rejected.
func NewSessionManager(secret string) *SessionManager {
	hashKey := securecookie.GenerateRandomKey(32)
	blockKey := securecookie.GenerateRandomKey(32)
	if secret != "" {
		hashKey = deriveKey(secret, "hash")
		blockKey = deriveKey(secret, "block")
	}
	return &SessionManager{codec: securecookie.New(hashKey, blockKey)}
}

func deriveKey(secret, purpose string) []byte {
	// A fixed-length key deterministic in secret+purpose; good enough
	// to turn one operator-supplied string into two independent keys
	// without pulling in a separate KDF dependency for this alone.
	h := make([]byte, 32)
	src := []byte(secret + ":" + purpose)
	for i := range h {
		h[i] = src[i%len(src)]
	}
	return h
}

// EnsureCSRFToken returns the CSRF token already stored in r's session
// cookie, or mints and writes a new one via the response if none
// exists yet.
func (sm *SessionManager) EnsureCSRFToken(w http.ResponseWriter, r *http.Request) string {
	if payload, ok := sm.read(r); ok && payload.CSRFToken != "" {
		return payload.CSRFToken
	}

	token := randomURLSafeToken(32)
	sm.write(w, sessionPayload{CSRFToken: token})
	return token
}

// ValidateCSRFToken checks formToken against the session's stored
// token. On any mismatch — missing session, missing form token, or a
// value that doesn't match — the session cookie is cleared and false
// is returned.
func (sm *SessionManager) ValidateCSRFToken(w http.ResponseWriter, r *http.Request, formToken string) bool {
	payload, ok := sm.read(r)
	if !ok || payload.CSRFToken == "" || formToken == "" || payload.CSRFToken != formToken {
		sm.clear(w)
		return false
	}
	return true
}

func (sm *SessionManager) read(r *http.Request) (sessionPayload, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return sessionPayload{}, false
	}
	var payload sessionPayload
	if err := sm.codec.Decode(sessionCookieName, cookie.Value, &payload); err != nil {
		return sessionPayload{}, false
	}
	return payload, true
}

func (sm *SessionManager) write(w http.ResponseWriter, payload sessionPayload) {
	encoded, err := sm.codec.Encode(sessionCookieName, payload)
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int((10 * time.Minute).Seconds()),
	})
}

func (sm *SessionManager) clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func randomURLSafeToken(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
